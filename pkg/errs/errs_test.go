package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormatError(t *testing.T) {
	err := &FormatError{Input: "chr1:5", Reason: "expected 3 fields"}

	want := `malformed input "chr1:5": expected 3 fields`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrFormat) {
		t.Error("FormatError should match ErrFormat")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("FormatError should not match ErrValidation")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "with field",
			err:  &ValidationError{Field: "region", Reason: "start 10 > end 5"},
			want: "invalid region: start 10 > end 5",
		},
		{
			name: "without field",
			err:  &ValidationError{Reason: "send function is nil"},
			want: "invalid configuration: send function is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidation_Wrapped(t *testing.T) {
	err := fmt.Errorf("build shards: %w", Validation("maxBasesPerShard", "must be > 0, got %d", 0))

	if !errors.Is(err, ErrValidation) {
		t.Errorf("wrapped validation error should match ErrValidation: %v", err)
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As should find *ValidationError")
	}
	if ve.Field != "maxBasesPerShard" {
		t.Errorf("Field = %q, want maxBasesPerShard", ve.Field)
	}
}
