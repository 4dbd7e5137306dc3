package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"visitassist/engine"
	"visitassist/types"
)

// ExampleQuestions are surfaced to the UI so first-time visitors see what
// the assistant can answer.
var ExampleQuestions = []string{
	"What ID do I need to visit a prison?",
	"What is the dress code for prison visitors?",
	"What items am I not allowed to bring to a visit?",
}

type QueryHandler struct {
	assistant engine.Assistant
}

func NewQueryHandler(assistant engine.Assistant) *QueryHandler {
	return &QueryHandler{
		assistant: assistant,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	result, err := h.assistant.Query(c.Context(), params.Question)
	if err != nil {
		if errors.Is(err, engine.ErrGeneration) {
			return ErrGenerationUnavailable()
		}
		return err
	}

	resp := &types.QueryResponse{
		Answer:    result.Answer,
		Sources:   formatSources(result.Evidence),
		Topic:     result.Topic,
		Timestamp: time.Now(),
	}
	return c.JSON(resp)
}

func (h *QueryHandler) HandleExamples(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"examples": ExampleQuestions})
}

func formatSources(evidence []types.Chunk) []types.Source {
	sources := make([]types.Source, len(evidence))
	for i, chunk := range evidence {
		sources[i] = types.Source{
			DocID:     chunk.DocID.String(),
			Title:     chunk.DocTitle,
			ChunkText: chunk.Content,
			Page:      chunk.Page,
			Index:     chunk.Index,
		}
	}
	return sources
}
