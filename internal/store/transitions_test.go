package store

import (
	"testing"

	"antrean/queue-service/internal/models"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from  models.Status
		to    models.Status
		valid bool
	}{
		{models.StatusWaiting, models.StatusCalled, true},
		{models.StatusWaiting, models.StatusProcessing, true},
		{models.StatusWaiting, models.StatusReleased, true},
		{models.StatusWaiting, models.StatusReset, true},
		{models.StatusWaiting, models.StatusDone, false},
		{models.StatusWaiting, models.StatusSkipped, false},
		{models.StatusCalled, models.StatusDone, true},
		{models.StatusCalled, models.StatusSkipped, true},
		{models.StatusCalled, models.StatusReset, true},
		{models.StatusCalled, models.StatusProcessing, false},
		{models.StatusProcessing, models.StatusDone, true},
		{models.StatusProcessing, models.StatusReset, true},
		{models.StatusProcessing, models.StatusReleased, false},
		{models.StatusDone, models.StatusWaiting, false},
		{models.StatusSkipped, models.StatusWaiting, false},
		{models.StatusReleased, models.StatusWaiting, false},
		{models.StatusReset, models.StatusWaiting, false},
		{models.StatusCancelled, models.StatusWaiting, false},
		{models.Status("bogus"), models.StatusWaiting, false},
		{models.StatusWaiting, models.Status("bogus"), false},
	}

	for _, tt := range cases {
		if got := CanTransition(tt.from, tt.to); got != tt.valid {
			t.Fatalf("CanTransition(%q, %q)=%v, want %v", tt.from, tt.to, got, tt.valid)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := []models.Status{
		models.StatusDone,
		models.StatusSkipped,
		models.StatusReleased,
		models.StatusReset,
		models.StatusCancelled,
	}
	for _, status := range terminal {
		if !Terminal(status) {
			t.Fatalf("expected %q to be terminal", status)
		}
	}

	open := []models.Status{models.StatusWaiting, models.StatusCalled, models.StatusProcessing}
	for _, status := range open {
		if Terminal(status) {
			t.Fatalf("expected %q to be non-terminal", status)
		}
	}

	if Terminal(models.Status("bogus")) {
		t.Fatalf("unknown status must not be terminal")
	}
}

func TestResetExempt(t *testing.T) {
	exempt := map[models.Status]bool{}
	for _, status := range ResetExempt() {
		exempt[status] = true
	}
	for _, status := range []models.Status{models.StatusDone, models.StatusCancelled, models.StatusReleased, models.StatusSkipped} {
		if !exempt[status] {
			t.Fatalf("expected %q to be reset-exempt", status)
		}
	}
	for _, status := range []models.Status{models.StatusWaiting, models.StatusCalled, models.StatusProcessing} {
		if exempt[status] {
			t.Fatalf("expected %q to be reset-eligible", status)
		}
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(models.StatusWaiting) || !ValidStatus(models.StatusCancelled) {
		t.Fatalf("known statuses must validate")
	}
	if ValidStatus(models.Status("held")) {
		t.Fatalf("unknown status must not validate")
	}
}
