package ws

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
)

// Frame is one outbound message to the renderer: either the initial
// "snapshot" or a relayed engine event (type = the bus kind).
type Frame struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

func frameFor(ev eventbus.Event) Frame {
	return Frame{Type: string(ev.Kind), Time: ev.Time, Data: ev.Data}
}

func snapshotFrame(st cards.State) Frame {
	return Frame{Type: "snapshot", Time: time.Now(), Data: st}
}

// Request is one inbound message from the renderer.
type Request struct {
	Op       string `json:"op"` // action | dismiss | clear
	CardID   string `json:"cardId,omitempty"`
	ActionID string `json:"actionId,omitempty"`
	Data     any    `json:"data,omitempty"`
}

var errUnknownOp = errors.New("unknown op")

// dispatch applies a renderer request to the engine. Engine-side absence
// (unknown card/action) stays a silent no-op per the engine contract; only
// malformed requests are errors.
func dispatch(e *cards.Engine, r Request) error {
	switch strings.TrimSpace(r.Op) {
	case "action":
		if r.CardID == "" || r.ActionID == "" {
			return fmt.Errorf("action op requires cardId and actionId")
		}
		e.HandleAction(r.CardID, r.ActionID, r.Data)
		return nil
	case "dismiss":
		if r.CardID == "" {
			return fmt.Errorf("dismiss op requires cardId")
		}
		e.Remove(r.CardID, cards.ReasonUser)
		return nil
	case "clear":
		e.Clear()
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownOp, r.Op)
	}
}
