package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpinionForm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		form    OpinionForm
		wantErr bool
	}{
		{"complete", OpinionForm{Title: "Queue", Tags: []string{"service"}, Details: "Too slow"}, false},
		{"blank title", OpinionForm{Title: "   ", Tags: []string{"service"}, Details: "x"}, true},
		{"no tags", OpinionForm{Title: "Queue", Details: "x"}, true},
		{"only blank tags", OpinionForm{Title: "Queue", Tags: []string{" ", ""}, Details: "x"}, true},
		{"blank details", OpinionForm{Title: "Queue", Tags: []string{"service"}, Details: "\n\t"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpinionForm_Trimmed(t *testing.T) {
	form := OpinionForm{Title: "  A ", Tags: []string{" x ", "", "y"}, Details: " d "}
	assert.Equal(t, OpinionForm{Title: "A", Tags: []string{"x", "y"}, Details: "d"}, form.Trimmed())
}
