package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"visitassist/types"
)

// Defaults mirror the reference deployment. Everything tunable at runtime
// comes from the environment; anything secret or environment-specific is
// required and its absence is fatal before the server starts.
const (
	DefaultCohereAPIURL = "https://api.cohere.com"
	DefaultEmbedModel   = "embed-english-v3.0"
	DefaultChatModel    = "command-r7b-12-2024"

	DefaultCollection     = "prison_visitor_assistant"
	DefaultDimension      = 1024
	DefaultMetric         = "cosine"
	DefaultScoreThreshold = 0.7
	DefaultTopK           = 5

	DefaultFetchTimeout = 10 * time.Second
)

type Config struct {
	ListenAddr string

	Store  StoreConfig
	Cohere CohereConfig
	Index  IndexConfig
	GovUK  GovUKConfig

	// Documents are the policy PDFs ingested by LoadAll at startup.
	Documents []types.DocumentSource
	// UploadDir is where uploaded PDFs are stored before ingestion.
	UploadDir string
}

type StoreConfig struct {
	// Backend selects the index implementation: "postgres" or "memory".
	Backend string
	Host    string
	Port    int
	User    string
	Pass    string
	DBName  string
}

func (s StoreConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		s.Host, s.Port, s.User, s.Pass, s.DBName)
}

type CohereConfig struct {
	APIURL     string
	APIKey     string
	EmbedModel string
	ChatModel  string
}

type IndexConfig struct {
	Collection     string
	Dimension      int
	Metric         string
	ScoreThreshold float64
	TopK           int
}

type GovUKConfig struct {
	IDURL        string
	DressCodeURL string
	FetchTimeout time.Duration
}

// Load collects the configuration from the environment and validates it.
// Missing required variables are reported together in a single error.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr: getEnv("SERVER_ADDR", ":3000"),
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "postgres"),
			Host:    os.Getenv("PG_HOST"),
			User:    os.Getenv("PG_USER"),
			Pass:    os.Getenv("PG_PASS"),
			DBName:  os.Getenv("PG_DB_NAME"),
		},
		Cohere: CohereConfig{
			APIURL:     getEnv("COHERE_API_URL", DefaultCohereAPIURL),
			APIKey:     os.Getenv("COHERE_API_KEY"),
			EmbedModel: getEnv("COHERE_EMBEDDING_MODEL", DefaultEmbedModel),
			ChatModel:  getEnv("COHERE_CHAT_MODEL", DefaultChatModel),
		},
		Index: IndexConfig{
			Collection: getEnv("COLLECTION_NAME", DefaultCollection),
			Metric:     getEnv("VECTOR_METRIC", DefaultMetric),
		},
		GovUK: GovUKConfig{
			IDURL:        os.Getenv("GOVUK_ID_URL"),
			DressCodeURL: os.Getenv("GOVUK_DRESS_CODE_URL"),
			FetchTimeout: DefaultFetchTimeout,
		},
		UploadDir: getEnv("UPLOAD_DIR", "data/uploads"),
	}

	var err error
	if cfg.Index.Dimension, err = getEnvInt("VECTOR_DIM", DefaultDimension); err != nil {
		return nil, err
	}
	if cfg.Index.TopK, err = getEnvInt("TOP_K", DefaultTopK); err != nil {
		return nil, err
	}
	if cfg.Index.ScoreThreshold, err = getEnvFloat("SCORE_THRESHOLD", DefaultScoreThreshold); err != nil {
		return nil, err
	}
	if cfg.Store.Port, err = getEnvInt("PG_PORT", 5432); err != nil {
		return nil, err
	}

	for name, env := range map[string]string{
		"dress_code": "DOC_DRESS_CODE_PATH",
		"id":         "DOC_ID_PATH",
		"policy":     "DOC_POLICY_PATH",
	} {
		if path := os.Getenv(env); path != "" {
			cfg.Documents = append(cfg.Documents, types.DocumentSource{Name: name, Path: path})
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"COHERE_API_KEY":       c.Cohere.APIKey,
		"GOVUK_ID_URL":         c.GovUK.IDURL,
		"GOVUK_DRESS_CODE_URL": c.GovUK.DressCodeURL,
	}
	if c.Store.Backend == "postgres" {
		required["PG_HOST"] = c.Store.Host
		required["PG_USER"] = c.Store.User
		required["PG_PASS"] = c.Store.Pass
		required["PG_DB_NAME"] = c.Store.DBName
	}

	var missing []string
	for name, value := range required {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if c.Store.Backend != "postgres" && c.Store.Backend != "memory" {
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Index.ScoreThreshold < 0 || c.Index.ScoreThreshold > 1 {
		return fmt.Errorf("SCORE_THRESHOLD must be within [0,1], got %v", c.Index.ScoreThreshold)
	}
	if len(c.Documents) == 0 {
		return fmt.Errorf("no source documents configured: set DOC_DRESS_CODE_PATH, DOC_ID_PATH and DOC_POLICY_PATH")
	}
	for _, doc := range c.Documents {
		if _, err := os.Stat(doc.Path); err != nil {
			return fmt.Errorf("source document not found: %s", doc.Path)
		}
	}
	return nil
}

// TopicURLs maps fallback topics to the configured gov.uk pages. Only id
// and dress_code have fallback targets; general questions have none.
func (c *Config) TopicURLs() map[types.Topic]string {
	return map[types.Topic]string{
		types.TopicID:        c.GovUK.IDURL,
		types.TopicDressCode: c.GovUK.DressCodeURL,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
