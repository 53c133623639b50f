package tracker

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusTodo, StatusInProgress},
		{StatusTodo, StatusBlocked},
		{StatusTodo, StatusCancelled},
		{StatusInProgress, StatusBlocked},
		{StatusInProgress, StatusDone},
		{StatusInProgress, StatusCancelled},
		{StatusBlocked, StatusInProgress},
		{StatusBlocked, StatusCancelled},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusTodo, StatusDone},
		{StatusBlocked, StatusDone},
		{StatusBlocked, StatusTodo},
		{StatusDone, StatusTodo},
		{StatusDone, StatusInProgress},
		{StatusCancelled, StatusTodo},
		{StatusCancelled, StatusDone},
		{StatusInProgress, StatusTodo},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestSelfTransitionAlwaysLegal(t *testing.T) {
	for _, s := range []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusDone, StatusCancelled} {
		if !CanTransition(s, s) {
			t.Errorf("self transition %s -> %s should be legal", s, s)
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(StatusTodo, StatusDone)
	if err == nil {
		t.Fatal("expected transition error")
	}
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if te.From != StatusTodo || te.To != StatusDone {
		t.Errorf("error endpoints = %s -> %s", te.From, te.To)
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(StatusDone) || !IsTerminal(StatusCancelled) {
		t.Error("done and cancelled are terminal")
	}
	if IsTerminal(StatusTodo) || IsTerminal(StatusInProgress) || IsTerminal(StatusBlocked) {
		t.Error("todo, in_progress, blocked are not terminal")
	}
}
