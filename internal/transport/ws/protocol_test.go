package ws

import (
	"errors"
	"testing"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
	logx "soultray/pkg/logx"
)

func newTestEngine(t *testing.T) *cards.Engine {
	t.Helper()
	e := cards.New(cards.Config{MaxVisible: 5}, eventbus.New(), logx.Nop())
	t.Cleanup(e.Close)
	return e
}

func TestDispatchDismiss(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	c, err := e.NewInfo("note", "")
	if err != nil {
		t.Fatalf("NewInfo: %v", err)
	}

	if err := dispatch(e, Request{Op: "dismiss", CardID: c.ID}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n := len(e.State().Cards); n != 0 {
		t.Errorf("held cards = %d, want 0", n)
	}
}

func TestDispatchActionRemovesOnDismissKind(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	c, err := e.NewSuggestion("tidy downloads", "", "frees 2 GB")
	if err != nil {
		t.Fatalf("NewSuggestion: %v", err)
	}

	// Primary action leaves the card up.
	if err := dispatch(e, Request{Op: "action", CardID: c.ID, ActionID: "accept"}); err != nil {
		t.Fatalf("dispatch accept: %v", err)
	}
	if n := len(e.State().Cards); n != 1 {
		t.Fatalf("held cards after accept = %d, want 1", n)
	}

	// Dismiss-kind action removes it.
	if err := dispatch(e, Request{Op: "action", CardID: c.ID, ActionID: "dismiss"}); err != nil {
		t.Fatalf("dispatch dismiss action: %v", err)
	}
	if n := len(e.State().Cards); n != 0 {
		t.Errorf("held cards after dismiss action = %d, want 0", n)
	}
}

func TestDispatchClear(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	for i := 0; i < 3; i++ {
		if _, err := e.NewInfo("note", ""); err != nil {
			t.Fatalf("NewInfo: %v", err)
		}
	}
	if err := dispatch(e, Request{Op: "clear"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if n := len(e.State().Cards); n != 0 {
		t.Errorf("held cards = %d, want 0", n)
	}
}

func TestDispatchUnknownCardIsSilent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	// Absence is the engine's silent no-op, not a protocol error.
	if err := dispatch(e, Request{Op: "dismiss", CardID: "ghost"}); err != nil {
		t.Errorf("dispatch unknown card = %v, want nil", err)
	}
	if err := dispatch(e, Request{Op: "action", CardID: "ghost", ActionID: "accept"}); err != nil {
		t.Errorf("dispatch unknown card action = %v, want nil", err)
	}
}

func TestDispatchMalformed(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	tests := []struct {
		name string
		req  Request
	}{
		{"unknown op", Request{Op: "restart"}},
		{"empty op", Request{}},
		{"action without card", Request{Op: "action", ActionID: "accept"}},
		{"action without action id", Request{Op: "action", CardID: "x"}},
		{"dismiss without card", Request{Op: "dismiss"}},
	}
	for _, tt := range tests {
		if err := dispatch(e, tt.req); err == nil {
			t.Errorf("%s: dispatch accepted malformed request", tt.name)
		}
	}
	if err := dispatch(e, Request{Op: "restart"}); !errors.Is(err, errUnknownOp) {
		t.Errorf("unknown op error = %v, want errUnknownOp", err)
	}
}

func TestFrameForKeepsKind(t *testing.T) {
	t.Parallel()
	ev := eventbus.Event{Kind: cards.EventShown, Data: cards.ShownEvent{CardID: "c1"}}
	f := frameFor(ev)
	if f.Type != "card.shown" {
		t.Errorf("frame type = %q, want card.shown", f.Type)
	}
}

func TestSnapshotFrame(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	if _, err := e.NewError("boom", "it broke"); err != nil {
		t.Fatalf("NewError: %v", err)
	}
	f := snapshotFrame(e.State())
	if f.Type != "snapshot" {
		t.Fatalf("frame type = %q", f.Type)
	}
	st, ok := f.Data.(cards.State)
	if !ok {
		t.Fatalf("frame data is %T, want cards.State", f.Data)
	}
	if len(st.Cards) != 1 {
		t.Errorf("snapshot cards = %d, want 1", len(st.Cards))
	}
}
