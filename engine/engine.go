package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"visitassist/config"
	"visitassist/loader"
	"visitassist/model"
	"visitassist/store"
	"visitassist/types"
)

// ErrGeneration marks a failure of the embedding or generation capability.
// Unlike retrieval and fetch failures, which degrade into the fallback
// chain, these propagate: an answer must never be partially fabricated
// because a model call half-failed.
var ErrGeneration = errors.New("generation failed")

// maxContextTokens caps the grounding context handed to the chat model.
const maxContextTokens = 3500

// Assistant is the engine surface consumed by the HTTP handlers.
type Assistant interface {
	Initialize(ctx context.Context) error
	LoadAll(ctx context.Context) []types.LoadResult
	AddDocument(ctx context.Context, path string) types.LoadResult
	Query(ctx context.Context, question string) (types.QueryResult, error)
	Clear(ctx context.Context) error
}

// ExtractFunc produces per-page text for a source document; upstream of
// the chunker and replaceable in tests.
type ExtractFunc func(path string) ([]string, error)

// Engine is the retrieval-and-fallback decision core. Per query it runs
// similarity search, decides local versus external, renders the topic
// prompt and invokes generation. Read-only at query time; ingestion goes
// through LoadAll and AddDocument.
type Engine struct {
	index     store.VectorIndexer
	embedder  model.Embedder
	generator model.Generator
	fetcher   Fetcher

	collection string
	dimension  int
	metric     string
	topK       int
	threshold  float64
	sources    []types.DocumentSource

	extract ExtractFunc
	encoder *tiktoken.Tiktoken
	logger  *slog.Logger

	// ingestMu serializes LoadAll and AddDocument against each other.
	// Queries stay lock-free: a query racing a reload may observe an
	// empty or partially repopulated collection, which degrades to the
	// fallback path rather than erroring.
	ingestMu sync.Mutex
}

// Fetcher mirrors web.Fetcher; declared here so the engine package states
// exactly what it consumes.
type Fetcher interface {
	Fetch(ctx context.Context, topic types.Topic) (string, error)
}

func New(cfg *config.Config, index store.VectorIndexer, embedder model.Embedder, generator model.Generator, fetcher Fetcher) *Engine {
	// A missing encoding only disables the token cap; answers still work.
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("[ENGINE] token encoding unavailable, context cap disabled: %v", err)
	}

	return &Engine{
		index:      index,
		embedder:   embedder,
		generator:  generator,
		fetcher:    fetcher,
		collection: cfg.Index.Collection,
		dimension:  cfg.Index.Dimension,
		metric:     cfg.Index.Metric,
		topK:       cfg.Index.TopK,
		threshold:  cfg.Index.ScoreThreshold,
		sources:    cfg.Documents,
		extract:    loader.ExtractPages,
		encoder:    encoder,
		logger:     slog.Default(),
	}
}

// SetExtractor replaces the page extractor; tests use this to ingest
// synthetic documents without PDF files.
func (e *Engine) SetExtractor(fn ExtractFunc) {
	e.extract = fn
}

// Initialize makes sure the collection exists. Idempotent.
func (e *Engine) Initialize(ctx context.Context) error {
	return e.index.EnsureCollection(ctx, e.collection, e.dimension, e.metric)
}

// LoadAll resets the collection and reingests every configured source
// document. One failing document is recorded and skipped, never aborting
// the rest of the batch.
func (e *Engine) LoadAll(ctx context.Context) []types.LoadResult {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	results := make([]types.LoadResult, 0, len(e.sources))

	if err := e.index.Clear(ctx, e.collection); err != nil {
		e.logger.Error("failed to clear collection before reload", "error", err)
	}
	if err := e.index.EnsureCollection(ctx, e.collection, e.dimension, e.metric); err != nil {
		for _, src := range e.sources {
			results = append(results, types.LoadResult{Path: src.Path, Err: err})
		}
		return results
	}

	for _, src := range e.sources {
		res := e.ingest(ctx, src.Path)
		if res.Err != nil {
			e.logger.Error("document ingestion failed", "path", src.Path, "error", res.Err)
		} else {
			e.logger.Info("document ingested", "path", src.Path, "chunks", res.Chunks)
		}
		results = append(results, res)
	}
	return results
}

// AddDocument ingests a single uploaded document without resetting the
// collection.
func (e *Engine) AddDocument(ctx context.Context, path string) types.LoadResult {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	if err := e.index.EnsureCollection(ctx, e.collection, e.dimension, e.metric); err != nil {
		return types.LoadResult{Path: path, Err: err}
	}
	return e.ingest(ctx, path)
}

func (e *Engine) ingest(ctx context.Context, path string) types.LoadResult {
	title := loader.TitleFromPath(path)
	res := types.LoadResult{Path: path, Title: title}

	pages, err := e.extract(path)
	if err != nil {
		res.Err = fmt.Errorf("extract %s: %w", path, err)
		return res
	}

	chunks := loader.ChunkPages(uuid.New(), title, pages)
	if len(chunks) == 0 {
		res.Err = fmt.Errorf("no text extracted from %s", path)
		return res
	}

	vectors := make([][]float32, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := e.embedder.EmbedDocument(ctx, chunk.Content)
		if err != nil {
			res.Err = fmt.Errorf("embed chunk %d of %s: %w", chunk.Index, path, err)
			return res
		}
		vectors = append(vectors, vec)
	}

	if err := e.index.Insert(ctx, e.collection, chunks, vectors); err != nil {
		res.Err = fmt.Errorf("insert chunks of %s: %w", path, err)
		return res
	}
	res.Chunks = len(chunks)
	return res
}

// Query answers one question. The state machine is LOCAL_SEARCH, then
// either LOCAL_ANSWER, or FALLBACK_SEARCH followed by FALLBACK_ANSWER or
// NO_ANSWER. Index and fetch failures degrade along that chain;
// embedding and generation failures wrap ErrGeneration and propagate.
func (e *Engine) Query(ctx context.Context, question string) (types.QueryResult, error) {
	topic := ClassifyTopic(question)

	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("%w: embed query: %v", ErrGeneration, err)
	}

	matches, err := e.index.QuerySimilar(ctx, e.collection, vector, e.topK, e.threshold)
	if err != nil {
		if ctx.Err() != nil {
			return types.QueryResult{}, ctx.Err()
		}
		e.logger.Warn("similarity search failed, treating as no results", "error", err)
		matches = nil
	}

	if len(matches) > 0 {
		return e.answerLocal(ctx, topic, question, matches)
	}
	return e.answerFallback(ctx, topic, question)
}

func (e *Engine) answerLocal(ctx context.Context, topic types.Topic, question string, matches []types.ScoredChunk) (types.QueryResult, error) {
	evidence := make([]types.Chunk, 0, len(matches))
	for _, m := range matches {
		evidence = append(evidence, m.Chunk)
	}

	grounding := e.buildContext(evidence)
	prompt := localPrompt(topic, grounding, question)
	log.Printf("[QUERY] topic=%s matches=%d prompt_tokens=%d", topic, len(matches), e.countTokens(prompt))

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	return types.QueryResult{Answer: answer, Evidence: evidence, Topic: topic}, nil
}

func (e *Engine) answerFallback(ctx context.Context, topic types.Topic, question string) (types.QueryResult, error) {
	if topic == types.TopicGeneral {
		// No reference page exists for general questions.
		return types.QueryResult{Answer: NoAnswerReply, Topic: topic}, nil
	}

	fetched, err := e.fetcher.Fetch(ctx, topic)
	if err != nil {
		if ctx.Err() != nil {
			return types.QueryResult{}, ctx.Err()
		}
		e.logger.Warn("reference page fetch failed", "topic", topic, "error", err)
		return types.QueryResult{Answer: NoAnswerReply, Topic: topic}, nil
	}

	answer, err := e.generator.Generate(ctx, buildFallbackPrompt(question, fetched))
	if err != nil {
		return types.QueryResult{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return types.QueryResult{Answer: answer, Topic: topic}, nil
}

// buildContext joins the retrieved chunks into the grounding context,
// stopping once the token cap is reached. Matches arrive ordered by
// similarity, so truncation drops the weakest evidence first.
func (e *Engine) buildContext(chunks []types.Chunk) string {
	var sb strings.Builder
	total := 0
	for i, chunk := range chunks {
		block := fmt.Sprintf("[%s, page %d]\n%s\n\n", chunk.DocTitle, chunk.Page, chunk.Content)
		tokens := e.countTokens(block)
		if i > 0 && total+tokens > maxContextTokens {
			log.Printf("[CONTEXT] token cap reached, using %d of %d chunks", i, len(chunks))
			break
		}
		sb.WriteString(block)
		total += tokens
	}
	return strings.TrimSpace(sb.String())
}

func (e *Engine) countTokens(text string) int {
	if e.encoder == nil {
		// Rough fallback, close enough for capping.
		return len(text) / 4
	}
	return len(e.encoder.Encode(text, nil, nil))
}

// Clear drops the index collection. Idempotent.
func (e *Engine) Clear(ctx context.Context) error {
	return e.index.Clear(ctx, e.collection)
}
