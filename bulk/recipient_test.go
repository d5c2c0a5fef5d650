package bulk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KennethAtchon/Loctelli-sub005/bulk"
)

func TestPhoneValidator(t *testing.T) {
	v := bulk.NewPhoneValidator()
	tests := []struct {
		raw   string
		valid bool
		want  string
	}{
		{"+1-555-0100", true, "+15550100"},
		{"+15550100", true, "+15550100"},
		{"(555) 010-0200", true, "+15550100200"},
		{"555.010.0200", true, "+15550100200"},
		{"+44 20 7946 0958", true, "+442079460958"},
		{"  +15550100  ", true, "+15550100"},
		{"bad-number", false, ""},
		{"", false, ""},
		{"123", false, ""},
		{"+1234567890123456", false, ""},
		{"555-0100 ext 2", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := v.ValidateRecipient(tt.raw)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.want, got.Normalized)
			if !tt.valid {
				assert.NotEmpty(t, got.Reason)
			}
		})
	}
}
