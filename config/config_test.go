package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"dress.pdf", "id.pdf", "policy.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
	}

	t.Setenv("COHERE_API_KEY", "test-key")
	t.Setenv("GOVUK_ID_URL", "https://www.gov.uk/id")
	t.Setenv("GOVUK_DRESS_CODE_URL", "https://www.gov.uk/dress")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("DOC_DRESS_CODE_PATH", filepath.Join(dir, "dress.pdf"))
	t.Setenv("DOC_ID_PATH", filepath.Join(dir, "id.pdf"))
	t.Setenv("DOC_POLICY_PATH", filepath.Join(dir, "policy.pdf"))
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, DefaultCollection, cfg.Index.Collection)
	assert.Equal(t, DefaultDimension, cfg.Index.Dimension)
	assert.Equal(t, DefaultScoreThreshold, cfg.Index.ScoreThreshold)
	assert.Equal(t, DefaultTopK, cfg.Index.TopK)
	assert.Equal(t, DefaultEmbedModel, cfg.Cohere.EmbedModel)
	assert.Equal(t, DefaultChatModel, cfg.Cohere.ChatModel)
	assert.Len(t, cfg.Documents, 3)
}

func TestLoad_MissingRequiredVarsAreAggregated(t *testing.T) {
	setValidEnv(t)
	t.Setenv("COHERE_API_KEY", "")
	t.Setenv("GOVUK_ID_URL", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "COHERE_API_KEY")
	assert.Contains(t, err.Error(), "GOVUK_ID_URL")
}

func TestLoad_PostgresBackendRequiresConnectionVars(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PG_HOST")
	assert.Contains(t, err.Error(), "PG_DB_NAME")
}

func TestLoad_MissingDocumentIsFatal(t *testing.T) {
	setValidEnv(t)
	t.Setenv("DOC_POLICY_PATH", "/nonexistent/policy.pdf")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "source document not found")
}

func TestLoad_ThresholdBounds(t *testing.T) {
	setValidEnv(t)
	t.Setenv("SCORE_THRESHOLD", "1.5")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCORE_THRESHOLD")
}

func TestLoad_InvalidNumber(t *testing.T) {
	setValidEnv(t)
	t.Setenv("TOP_K", "five")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_K")
}

func TestLoad_TopicURLs(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	urls := cfg.TopicURLs()
	assert.Equal(t, "https://www.gov.uk/id", urls["id"])
	assert.Equal(t, "https://www.gov.uk/dress", urls["dress_code"])
	assert.Len(t, urls, 2, "general has no fallback page")
}