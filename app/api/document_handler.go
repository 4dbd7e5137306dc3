package api

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"visitassist/engine"
	"visitassist/types"
)

type DocumentHandler struct {
	assistant engine.Assistant
	uploadDir string
}

func NewDocumentHandler(assistant engine.Assistant, uploadDir string) *DocumentHandler {
	return &DocumentHandler{
		assistant: assistant,
		uploadDir: uploadDir,
	}
}

// HandleUpload saves an uploaded PDF and appends it to the index without
// resetting the existing collection.
func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(h.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		return err
	}
	fmt.Printf("[UPLOAD] file saved to: %s\n", path)

	res := h.assistant.AddDocument(c.Context(), path)
	if res.Err != nil {
		return NewError(fiber.StatusUnprocessableEntity, res.Err.Error())
	}

	return c.JSON(types.LoadedDocument{
		Title:  res.Title,
		Path:   res.Path,
		Chunks: res.Chunks,
	})
}

// HandleReload resets the collection and reingests every configured
// document. Per-document failures come back in the report, not as an
// error status.
func (h *DocumentHandler) HandleReload(c *fiber.Ctx) error {
	results := h.assistant.LoadAll(c.Context())

	report := types.LoadReport{
		Loaded: []types.LoadedDocument{},
		Failed: []types.FailedDocument{},
	}
	for _, res := range results {
		if res.Err != nil {
			report.Failed = append(report.Failed, types.FailedDocument{Path: res.Path, Error: res.Err.Error()})
			continue
		}
		report.Loaded = append(report.Loaded, types.LoadedDocument{Title: res.Title, Path: res.Path, Chunks: res.Chunks})
	}
	return c.JSON(report)
}

func (h *DocumentHandler) HandleClear(c *fiber.Ctx) error {
	if err := h.assistant.Clear(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"result": "cleared"})
}
