package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// OpinionSubmission is a stored opinion. Submitted is assigned by the store.
type OpinionSubmission struct {
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Tags      string `json:"tags"` // comma-joined labels as typed by the user
	Details   string `json:"details"`
	Submitted string `json:"submitted,omitempty"`
}

// OpinionForm is the user input captured by the opinion form.
type OpinionForm struct {
	Title   string   `json:"title" validate:"required"`
	Tags    []string `json:"tags" validate:"min=1,dive,required"`
	Details string   `json:"details" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed and blank tags dropped.
func (f OpinionForm) Trimmed() OpinionForm {
	out := OpinionForm{
		Title:   strings.TrimSpace(f.Title),
		Details: strings.TrimSpace(f.Details),
	}
	for _, tag := range f.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out.Tags = append(out.Tags, tag)
		}
	}
	return out
}

// Validate validates the trimmed form using the validator.
func (f OpinionForm) Validate() error {
	validate := validator.New()
	trimmed := f.Trimmed()
	return validate.Struct(&trimmed)
}

// SubmitResult is the store's answer to an addOpinion call.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TagCount is one ranked tag of the aggregated tag cloud.
type TagCount struct {
	Tag   string  `json:"tag"`
	Count int     `json:"count"`
	Scale float64 `json:"scale"` // font size in rem
}
