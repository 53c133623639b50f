package tracker

import (
	"encoding/json"
	"strings"
	"testing"
)

func validTask() *Task {
	return &Task{
		Title:    "Write parser",
		Status:   StatusTodo,
		Priority: PriorityMedium,
	}
}

func TestTaskValidate(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	missing := validTask()
	missing.Title = ""
	if err := missing.Validate(); !IsValidation(err) {
		t.Errorf("empty title: expected validation error, got %v", err)
	}

	long := validTask()
	long.Title = strings.Repeat("x", MaxTitleLen+1)
	if err := long.Validate(); !IsValidation(err) {
		t.Errorf("oversized title: expected validation error, got %v", err)
	}

	badStatus := validTask()
	badStatus.Status = "paused"
	if err := badStatus.Validate(); !IsValidation(err) {
		t.Errorf("unknown status: expected validation error, got %v", err)
	}
}

func TestBlockedRequiresReason(t *testing.T) {
	blocked := validTask()
	blocked.Status = StatusBlocked
	if err := blocked.Validate(); !IsValidation(err) {
		t.Fatalf("blocked without reason: expected validation error, got %v", err)
	}

	blocked.BlockerReason = "waiting on upstream fix"
	if err := blocked.Validate(); err != nil {
		t.Fatalf("blocked with reason rejected: %v", err)
	}
}

func TestReasonRequiresBlocked(t *testing.T) {
	task := validTask()
	task.BlockerReason = "stale reason"
	if err := task.Validate(); !IsValidation(err) {
		t.Fatalf("reason on non-blocked task: expected validation error, got %v", err)
	}
}

func TestEntityValidate(t *testing.T) {
	e := &Entity{EntityType: EntityFile, Name: "main.go", Identifier: "cmd/main.go"}
	if err := e.Validate(); err != nil {
		t.Fatalf("valid entity rejected: %v", err)
	}

	e.Metadata = json.RawMessage(`{"lang":"go"}`)
	if err := e.Validate(); err != nil {
		t.Fatalf("entity with metadata rejected: %v", err)
	}

	e.Metadata = json.RawMessage(`{not json`)
	if err := e.Validate(); !IsValidation(err) {
		t.Errorf("malformed metadata: expected validation error, got %v", err)
	}

	bad := &Entity{EntityType: "vendor2", Name: "x"}
	if err := bad.Validate(); !IsValidation(err) {
		t.Errorf("unknown entity type: expected validation error, got %v", err)
	}
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("")
	if err != nil || p != PriorityMedium {
		t.Errorf("blank priority: got %q, %v; want medium default", p, err)
	}
	if _, err := ParsePriority("urgent"); !IsValidation(err) {
		t.Errorf("unknown priority: expected validation error, got %v", err)
	}
	p, err = ParsePriority("  HIGH ")
	if err != nil || p != PriorityHigh {
		t.Errorf("case-insensitive parse: got %q, %v", p, err)
	}
}

func TestParseStatusRejectsBlank(t *testing.T) {
	if _, err := ParseStatus(""); !IsValidation(err) {
		t.Errorf("blank status: expected validation error, got %v", err)
	}
}
