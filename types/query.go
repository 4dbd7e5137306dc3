package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

type QueryParams struct {
	Question string `json:"question" validate:"required"`
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

func (params *QueryParams) Validate() map[string]string {
	validate := validator.New()
	if err := validate.Struct(params); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

// QueryResponse is the wire shape of an answered question.
type QueryResponse struct {
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	Topic     Topic     `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

type Source struct {
	DocID     string `json:"doc_id"`
	Title     string `json:"title"`
	ChunkText string `json:"chunk_text"`
	Page      int    `json:"page"`
	Index     int    `json:"index"`
}

// LoadReport is the per-document ingestion log returned by the reload
// endpoint. Failed documents carry their error text; the batch itself
// never fails because of a single document.
type LoadReport struct {
	Loaded []LoadedDocument `json:"loaded"`
	Failed []FailedDocument `json:"failed"`
}

type LoadedDocument struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
}

type FailedDocument struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}
