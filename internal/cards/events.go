package cards

import (
	"time"

	"soultray/internal/eventbus"
)

// Event kinds published by the engine. Per-operation emission order is part
// of the contract:
//
//	Add:          EventShown, then EventStateChanged
//	Remove:       EventDismissed, then EventStateChanged
//	Clear:        one EventDismissed per held card (held order), then one EventStateChanged
//	HandleAction: EventAction; for a dismiss-kind action, then EventDismissed + EventStateChanged
//	ApplyConfig:  EventConfigChanged only
//
// Internal bookkeeping (timer cancellation, collection mutation) always
// happens before the corresponding publish, so a misbehaving consumer can
// never observe or cause a half-applied mutation.
const (
	EventShown         eventbus.Kind = "card.shown"
	EventDismissed     eventbus.Kind = "card.dismissed"
	EventAction        eventbus.Kind = "card.action"
	EventStateChanged  eventbus.Kind = "state.changed"
	EventConfigChanged eventbus.Kind = "config.changed"
)

type ShownEvent struct {
	CardID string    `json:"cardId"`
	At     time.Time `json:"timestamp"`
}

type DismissedEvent struct {
	CardID string    `json:"cardId"`
	Reason Reason    `json:"reason"`
	At     time.Time `json:"timestamp"`
}

type ActionEvent struct {
	CardID   string    `json:"cardId"`
	ActionID string    `json:"actionId"`
	At       time.Time `json:"timestamp"`
	Data     any       `json:"data,omitempty"`
}

type StateChangedEvent struct {
	State State `json:"state"`
}

type ConfigChangedEvent struct {
	MaxVisible int                       `json:"maxVisible"`
	CardTTL    time.Duration             `json:"cardTtl"`
	AutoHide   map[Variant]time.Duration `json:"autoHide,omitempty"`
}
