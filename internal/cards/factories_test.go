package cards

import (
	"errors"
	"testing"
	"time"
)

func actionIDs(c Card) []string {
	out := make([]string, 0, len(c.Actions))
	for _, a := range c.Actions {
		out = append(out, a.ID)
	}
	return out
}

func TestFactoryDefaults(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})

	tests := []struct {
		name        string
		build       func() (Card, error)
		wantVariant Variant
		wantIcon    string
		wantActions []string
	}{
		{
			name:        "suggestion",
			build:       func() (Card, error) { return e.NewSuggestion("t", "d", "saves 1 min") },
			wantVariant: VariantSuggestion,
			wantIcon:    "suggestion-icon",
			wantActions: []string{"accept", "dismiss"},
		},
		{
			name:        "preview",
			build:       func() (Card, error) { return e.NewPreview("t", "d", []string{"a", "b"}) },
			wantVariant: VariantPreview,
			wantIcon:    "preview-icon",
			wantActions: []string{"apply", "dismiss"},
		},
		{
			name:        "confirmation",
			build:       func() (Card, error) { return e.NewConfirmation("t", "d", WarnCaution) },
			wantVariant: VariantConfirmation,
			wantIcon:    "question-icon",
			wantActions: []string{"confirm", "cancel"},
		},
		{
			name:        "progress",
			build:       func() (Card, error) { return e.NewProgress("t", "d", 4) },
			wantVariant: VariantProgress,
			wantIcon:    "progress-icon",
			wantActions: []string{"cancel"},
		},
		{
			name:        "info",
			build:       func() (Card, error) { return e.NewInfo("t", "d") },
			wantVariant: VariantInfo,
			wantIcon:    "info-icon",
			wantActions: []string{"dismiss"},
		},
		{
			name:        "error",
			build:       func() (Card, error) { return e.NewError("t", "d") },
			wantVariant: VariantError,
			wantIcon:    "error-icon",
			wantActions: []string{"dismiss"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.build()
			if err != nil {
				t.Fatalf("factory: %v", err)
			}
			if c.Variant != tt.wantVariant {
				t.Fatalf("variant = %s, want %s", c.Variant, tt.wantVariant)
			}
			if c.Icon != tt.wantIcon {
				t.Fatalf("icon = %s, want %s", c.Icon, tt.wantIcon)
			}
			got := actionIDs(c)
			if len(got) != len(tt.wantActions) {
				t.Fatalf("actions = %v, want %v", got, tt.wantActions)
			}
			for i := range got {
				if got[i] != tt.wantActions[i] {
					t.Fatalf("actions = %v, want %v", got, tt.wantActions)
				}
			}
			if c.ID == "" || c.CreatedAt.IsZero() {
				t.Fatalf("factory left identity unset: %+v", c)
			}
		})
	}
}

func TestResultIconPerOutcome(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 20})

	tests := []struct {
		status   OutcomeStatus
		wantIcon string
	}{
		{OutcomeSuccess, "success-icon"},
		{OutcomePartial, "warning-icon"},
		{OutcomeFailed, "error-icon"},
		{OutcomeCancelled, "info-icon"},
	}
	for _, tt := range tests {
		c, err := e.NewResult("t", "s", tt.status, "")
		if err != nil {
			t.Fatalf("NewResult(%s): %v", tt.status, err)
		}
		if c.Icon != tt.wantIcon {
			t.Fatalf("icon for %s = %s, want %s", tt.status, c.Icon, tt.wantIcon)
		}
	}
}

func TestResultRollbackAction(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})

	plain, err := e.NewResult("t", "s", OutcomeSuccess, "")
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	if got := actionIDs(plain); len(got) != 1 || got[0] != "dismiss" {
		t.Fatalf("actions without rollback = %v, want [dismiss]", got)
	}

	undoable, err := e.NewResult("t", "s", OutcomePartial, "moved 12 files to ~/archive")
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}
	got := actionIDs(undoable)
	if len(got) != 2 || got[1] != "rollback" {
		t.Fatalf("actions with rollback = %v, want [dismiss rollback]", got)
	}
	if undoable.Actions[1].Kind != ActionDanger {
		t.Fatalf("rollback kind = %s, want danger", undoable.Actions[1].Kind)
	}
	if undoable.Result.RollbackInfo == "" {
		t.Fatal("rollback info not carried")
	}
}

func TestChoiceOptionsBecomeActions(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})

	c, err := e.NewChoice("pick", "", []ChoiceOption{
		{ID: "opt-a", Label: "Plan A"},
		{ID: "opt-b", Label: "Plan B"},
	})
	if err != nil {
		t.Fatalf("NewChoice: %v", err)
	}
	got := actionIDs(c)
	want := []string{"opt-a", "opt-b", "skip"}
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("actions = %v, want %v", got, want)
		}
	}
	if c.Actions[2].Kind != ActionDismiss {
		t.Fatalf("skip kind = %s, want dismiss", c.Actions[2].Kind)
	}
}

func TestChoiceDuplicateOptionIDs(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})

	_, err := e.NewChoice("pick", "", []ChoiceOption{
		{ID: "same", Label: "A"},
		{ID: "same", Label: "B"},
	})
	if !errors.Is(err, ErrDuplicateAction) {
		t.Fatalf("err = %v, want ErrDuplicateAction", err)
	}
}

func TestFactoryOptions(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})

	deadline := time.Now().Add(time.Hour)
	c, err := e.NewError("boom", "", WithExpiresAt(deadline), WithActions(
		Action{ID: "retry", Label: "Retry", Kind: ActionPrimary},
		Action{ID: "dismiss", Label: "Dismiss", Kind: ActionDismiss},
	))
	if err != nil {
		t.Fatalf("NewError: %v", err)
	}
	if !c.ExpiresAt.Equal(deadline) {
		t.Fatalf("ExpiresAt = %v, want %v", c.ExpiresAt, deadline)
	}
	got := actionIDs(c)
	if len(got) != 2 || got[0] != "retry" {
		t.Fatalf("actions = %v, want [retry dismiss]", got)
	}
}

func TestConfirmationDefaultLevel(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t, Config{MaxVisible: 10})
	c, err := e.NewConfirmation("t", "", "")
	if err != nil {
		t.Fatalf("NewConfirmation: %v", err)
	}
	if c.Confirmation.WarningLevel != WarnInfo {
		t.Fatalf("level = %s, want info", c.Confirmation.WarningLevel)
	}
}
