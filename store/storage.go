package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"visitassist/types"
)

var (
	// ErrIndexUnavailable marks backend connectivity or DDL failures.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrDimensionMismatch marks a vector whose length differs from the
	// collection's declared dimension. Configuration drift, not retryable.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// VectorIndexer is the persistent similarity-search store. An empty result
// from QuerySimilar is not an error; it is the signal to fall back to an
// external source.
type VectorIndexer interface {
	EnsureCollection(ctx context.Context, name string, dimension int, metric string) error
	Insert(ctx context.Context, name string, chunks []types.Chunk, vectors [][]float32) error
	QuerySimilar(ctx context.Context, name string, vector []float32, k int, scoreThreshold float64) ([]types.ScoredChunk, error)
	Clear(ctx context.Context, name string) error
}

// PostgresIndex keeps collections in Postgres with pgvector. All chunks
// live in one table partitioned logically by collection name; the vector
// column dimension is fixed by the first EnsureCollection call.
type PostgresIndex struct {
	pool *pgxpool.Pool

	mu   sync.Mutex
	dims map[string]int
}

func NewPostgresIndex(ctx context.Context, connStr string) (*PostgresIndex, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	return &PostgresIndex{
		pool: pool,
		dims: make(map[string]int),
	}, nil
}

func (p *PostgresIndex) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	ddl := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS collections (
		name      TEXT PRIMARY KEY,
		dimension INT NOT NULL,
		metric    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id         UUID PRIMARY KEY,
		collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
		doc_id     UUID NOT NULL,
		doc_title  TEXT NOT NULL,
		position   INT NOT NULL,
		page       INT NOT NULL,
		content    TEXT NOT NULL,
		embedding  vector(%d) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);
	`, dimension)

	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}

	var existing int
	err := p.pool.QueryRow(ctx, "SELECT dimension FROM collections WHERE name = $1", name).Scan(&existing)
	if err == nil {
		if existing != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, want %d", ErrDimensionMismatch, name, existing, dimension)
		}
		p.rememberDim(name, dimension)
		return nil
	}

	query := `INSERT INTO collections (name, dimension, metric) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`
	if _, err := p.pool.Exec(ctx, query, name, dimension, metric); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	p.rememberDim(name, dimension)
	return nil
}

func (p *PostgresIndex) Insert(ctx context.Context, name string, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	dim, err := p.collectionDim(ctx, name)
	if err != nil {
		return err
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("%w: vector %d has %d values, collection %s wants %d", ErrDimensionMismatch, i, len(vec), name, dim)
		}
	}

	query := `
	INSERT INTO chunks (id, collection, doc_id, doc_title, position, page, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, c := range chunks {
		_, err := p.pool.Exec(ctx, query,
			c.ID, name, c.DocID, c.DocTitle, c.Index, c.Page, c.Content, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
	}
	return nil
}

func (p *PostgresIndex) QuerySimilar(ctx context.Context, name string, vector []float32, k int, scoreThreshold float64) ([]types.ScoredChunk, error) {
	if k <= 0 {
		k = 5
	}

	query := `
	SELECT id, doc_id, doc_title, position, page, content,
	       1 - (embedding <=> $1) AS score
	FROM chunks
	WHERE collection = $2 AND 1 - (embedding <=> $1) >= $3
	ORDER BY embedding <=> $1
	LIMIT $4
	`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(vector), name, scoreThreshold, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var results []types.ScoredChunk
	for rows.Next() {
		var sc types.ScoredChunk
		if err := rows.Scan(
			&sc.Chunk.ID,
			&sc.Chunk.DocID,
			&sc.Chunk.DocTitle,
			&sc.Chunk.Index,
			&sc.Chunk.Page,
			&sc.Chunk.Content,
			&sc.Score,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
		}
		results = append(results, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	return results, nil
}

// Clear removes the collection and its chunks. Absence is not an error.
func (p *PostgresIndex) Clear(ctx context.Context, name string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM collections WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	p.mu.Lock()
	delete(p.dims, name)
	p.mu.Unlock()
	return nil
}

func (p *PostgresIndex) collectionDim(ctx context.Context, name string) (int, error) {
	p.mu.Lock()
	dim, ok := p.dims[name]
	p.mu.Unlock()
	if ok {
		return dim, nil
	}

	err := p.pool.QueryRow(ctx, "SELECT dimension FROM collections WHERE name = $1", name).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown collection %s: %v", ErrIndexUnavailable, name, err)
	}
	p.rememberDim(name, dim)
	return dim, nil
}

func (p *PostgresIndex) rememberDim(name string, dim int) {
	p.mu.Lock()
	p.dims[name] = dim
	p.mu.Unlock()
}

func (p *PostgresIndex) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
