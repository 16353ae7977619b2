package journal

import (
	"testing"
	"time"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
	logx "soultray/pkg/logx"
)

func TestEntryForShown(t *testing.T) {
	t.Parallel()
	engine := cards.New(cards.Config{MaxVisible: 3}, eventbus.New(), logx.Nop())
	defer engine.Close()
	c, err := engine.NewError("Backup failed", "disk full")
	if err != nil {
		t.Fatalf("NewError: %v", err)
	}

	s := New(Config{Enabled: true}, nil, engine, nil, logx.Nop())
	at := time.Now()
	entry, ok := s.entryFor(eventbus.Event{
		Kind: cards.EventShown,
		Data: cards.ShownEvent{CardID: c.ID, At: at},
	})
	if !ok {
		t.Fatal("shown event not journaled")
	}
	if entry.Kind != "shown" || entry.CardID != c.ID {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Variant != "error" || entry.Title != "Backup failed" {
		t.Errorf("card details not filled in: %+v", entry)
	}
}

func TestEntryForDismissed(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, nil, nil, nil, logx.Nop())
	entry, ok := s.entryFor(eventbus.Event{
		Kind: cards.EventDismissed,
		Data: cards.DismissedEvent{CardID: "c1", Reason: cards.ReasonTimeout},
	})
	if !ok {
		t.Fatal("dismissed event not journaled")
	}
	if entry.Kind != "dismissed" || entry.Reason != "timeout" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestEntryForActionEncodesData(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, nil, nil, nil, logx.Nop())
	entry, ok := s.entryFor(eventbus.Event{
		Kind: cards.EventAction,
		Data: cards.ActionEvent{CardID: "c1", ActionID: "accept", Data: map[string]any{"choice": "b"}},
	})
	if !ok {
		t.Fatal("action event not journaled")
	}
	if entry.ActionID != "accept" {
		t.Errorf("action id = %q", entry.ActionID)
	}
	if entry.DataJSON != `{"choice":"b"}` {
		t.Errorf("data json = %q", entry.DataJSON)
	}
}

func TestEntryForSkipsSyncSignals(t *testing.T) {
	t.Parallel()
	s := New(Config{Enabled: true}, nil, nil, nil, logx.Nop())
	for _, kind := range []eventbus.Kind{cards.EventStateChanged, cards.EventConfigChanged} {
		if _, ok := s.entryFor(eventbus.Event{Kind: kind}); ok {
			t.Errorf("%s journaled, want skipped", kind)
		}
	}
}
