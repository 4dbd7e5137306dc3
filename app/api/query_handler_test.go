package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitassist/engine"
	"visitassist/types"
)

type stubAssistant struct {
	result types.QueryResult
	err    error
}

func (s *stubAssistant) Initialize(context.Context) error          { return nil }
func (s *stubAssistant) LoadAll(context.Context) []types.LoadResult { return nil }
func (s *stubAssistant) AddDocument(context.Context, string) types.LoadResult {
	return types.LoadResult{}
}
func (s *stubAssistant) Clear(context.Context) error { return nil }

func (s *stubAssistant) Query(context.Context, string) (types.QueryResult, error) {
	return s.result, s.err
}

func newTestApp(assistant engine.Assistant) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	handler := NewQueryHandler(assistant)
	app.Post("/api/v1/query", handler.HandleQuery)
	app.Get("/api/v1/examples", handler.HandleExamples)
	return app
}

func postQuery(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/query", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandleQuery_ReturnsAnswerWithSources(t *testing.T) {
	assistant := &stubAssistant{
		result: types.QueryResult{
			Answer: "Bring a passport or driving licence.",
			Topic:  types.TopicID,
			Evidence: []types.Chunk{
				{DocTitle: "ID Policy", Page: 2, Content: "Accepted ID: passport, driving licence."},
			},
		},
	}
	app := newTestApp(assistant)

	status, body := postQuery(t, app, `{"question":"what ID do I need?"}`)

	require.Equal(t, fiber.StatusOK, status)
	var resp types.QueryResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Bring a passport or driving licence.", resp.Answer)
	assert.Equal(t, types.TopicID, resp.Topic)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "ID Policy", resp.Sources[0].Title)
	assert.Equal(t, 2, resp.Sources[0].Page)
}

func TestHandleQuery_MissingQuestionFailsValidation(t *testing.T) {
	app := newTestApp(&stubAssistant{})

	status, body := postQuery(t, app, `{}`)

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, string(body), "Question")
}

func TestHandleQuery_BadJSON(t *testing.T) {
	app := newTestApp(&stubAssistant{})

	status, _ := postQuery(t, app, `{not json`)

	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleQuery_GenerationFailureMapsToBadGateway(t *testing.T) {
	assistant := &stubAssistant{
		err: fmt.Errorf("%w: model timed out", engine.ErrGeneration),
	}
	app := newTestApp(assistant)

	status, body := postQuery(t, app, `{"question":"what ID do I need?"}`)

	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, string(body), "please try again")
}

func TestHandleExamples(t *testing.T) {
	app := newTestApp(&stubAssistant{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/examples", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dress code")
}
