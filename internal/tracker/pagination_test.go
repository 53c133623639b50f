package tracker

import (
	"errors"
	"testing"
)

func TestValidatePage(t *testing.T) {
	limit, offset, err := ValidatePage(0, 0)
	if err != nil || limit != DefaultPageSize || offset != 0 {
		t.Errorf("defaults: got (%d, %d, %v)", limit, offset, err)
	}

	if _, _, err := ValidatePage(MaxPageSize+1, 0); err == nil {
		t.Error("limit above cap accepted")
	}
	if _, _, err := ValidatePage(-1, 0); err == nil {
		t.Error("negative limit accepted")
	}
	if _, _, err := ValidatePage(10, -1); err == nil {
		t.Error("negative offset accepted")
	}

	_, _, err = ValidatePage(500, 0)
	var pe *PaginationError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PaginationError, got %T", err)
	}
	if pe.Field != "limit" || pe.Value != 500 {
		t.Errorf("error detail = %+v", pe)
	}

	// Never clamped: exact bounds pass through unchanged.
	limit, offset, err = ValidatePage(MaxPageSize, 250)
	if err != nil || limit != MaxPageSize || offset != 250 {
		t.Errorf("bounds: got (%d, %d, %v)", limit, offset, err)
	}
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	if err != nil || mode != ModeSummary {
		t.Errorf("blank mode: got %q, %v; want summary default", mode, err)
	}
	if _, err := ParseMode("full"); !IsValidation(err) {
		t.Errorf("unknown mode: expected validation error, got %v", err)
	}
	mode, err = ParseMode("details")
	if err != nil || mode != ModeDetails {
		t.Errorf("details mode: got %q, %v", mode, err)
	}
}
