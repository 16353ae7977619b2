package cards

import (
	"time"
)

// Variant is the closed tag distinguishing card shapes.
type Variant string

const (
	VariantSuggestion   Variant = "suggestion"
	VariantPreview      Variant = "preview"
	VariantResult       Variant = "result"
	VariantConfirmation Variant = "confirmation"
	VariantProgress     Variant = "progress"
	VariantInfo         Variant = "info"
	VariantError        Variant = "error"
	VariantChoice       Variant = "choice"
)

// Variants lists every known variant, in display-priority-neutral order.
// Keep in sync with the constants above; iconFor switches exhaustively.
var Variants = []Variant{
	VariantSuggestion, VariantPreview, VariantResult, VariantConfirmation,
	VariantProgress, VariantInfo, VariantError, VariantChoice,
}

// ActionKind governs default UI treatment and whether invoking the action
// implicitly dismisses the card (only ActionDismiss does).
type ActionKind string

const (
	ActionPrimary   ActionKind = "primary"
	ActionSecondary ActionKind = "secondary"
	ActionDanger    ActionKind = "danger"
	ActionDismiss   ActionKind = "dismiss"
)

// Action is a user-invokable operation attached to a card.
// Action IDs must be unique within one card; order is display order.
type Action struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Kind     ActionKind `json:"kind"`
	Icon     string     `json:"icon,omitempty"`
	Disabled bool       `json:"disabled,omitempty"`
}

// Reason classifies why a card was dismissed.
type Reason string

const (
	ReasonUser     Reason = "user"     // explicit removal (or dismiss-kind action)
	ReasonTimeout  Reason = "timeout"  // expiration timer fired
	ReasonReplaced Reason = "replaced" // capacity eviction
)

// OutcomeStatus describes how the operation behind a result card ended.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomePartial   OutcomeStatus = "partial"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// WarningLevel tunes how loud a confirmation card renders.
type WarningLevel string

const (
	WarnInfo    WarningLevel = "info"
	WarnCaution WarningLevel = "caution"
	WarnDanger  WarningLevel = "danger"
)

// ProgressInfo tracks a multi-step operation. Status is free-form
// ("running", "stalled", ...); the engine treats it as opaque text.
type ProgressInfo struct {
	CurrentStep     int    `json:"currentStep"`
	TotalSteps      int    `json:"totalSteps"`
	PercentComplete int    `json:"percentComplete"`
	Status          string `json:"status,omitempty"`
}

type ResultInfo struct {
	OutcomeStatus OutcomeStatus `json:"outcomeStatus"`
	Summary       string        `json:"summary,omitempty"`
	// RollbackInfo is non-empty when the operation can be undone; its
	// presence adds a rollback action to the card.
	RollbackInfo string `json:"rollbackInfo,omitempty"`
}

type ConfirmationInfo struct {
	WarningLevel WarningLevel `json:"warningLevel"`
}

type SuggestionInfo struct {
	// Impact is presentational text ("saves ~3 min"); the engine never
	// interprets it.
	Impact string `json:"impact,omitempty"`
}

type PreviewInfo struct {
	// Items are the planned changes the preview shows.
	Items []string `json:"items,omitempty"`
}

type ChoiceOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type ChoiceInfo struct {
	Options []ChoiceOption `json:"options"`
}

// Card is a single notification/interactive unit held by the engine.
//
// The variant tag selects which payload pointer is set; all others are nil.
// Cards move through the engine by value at the API boundary (State returns
// deep copies), so holding a returned Card never aliases engine state.
type Card struct {
	ID          string    `json:"id"`
	Variant     Variant   `json:"variant"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	// ExpiresAt zero means "no deadline". When absent at insertion and a
	// default TTL is configured, the engine fills it in; it is immutable
	// afterwards (updates never re-arm timers).
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Actions   []Action  `json:"actions"`

	Suggestion   *SuggestionInfo   `json:"suggestion,omitempty"`
	Preview      *PreviewInfo      `json:"preview,omitempty"`
	Result       *ResultInfo       `json:"result,omitempty"`
	Confirmation *ConfirmationInfo `json:"confirmation,omitempty"`
	Progress     *ProgressInfo     `json:"progress,omitempty"`
	Choice       *ChoiceInfo       `json:"choice,omitempty"`
}

// clone returns a deep copy (actions and payloads never alias).
func (c *Card) clone() Card {
	cp := *c
	cp.Actions = append([]Action(nil), c.Actions...)
	if c.Suggestion != nil {
		v := *c.Suggestion
		cp.Suggestion = &v
	}
	if c.Preview != nil {
		v := *c.Preview
		v.Items = append([]string(nil), c.Preview.Items...)
		cp.Preview = &v
	}
	if c.Result != nil {
		v := *c.Result
		cp.Result = &v
	}
	if c.Confirmation != nil {
		v := *c.Confirmation
		cp.Confirmation = &v
	}
	if c.Progress != nil {
		v := *c.Progress
		cp.Progress = &v
	}
	if c.Choice != nil {
		v := *c.Choice
		v.Options = append([]ChoiceOption(nil), c.Choice.Options...)
		cp.Choice = &v
	}
	return cp
}

func (c *Card) action(id string) *Action {
	for i := range c.Actions {
		if c.Actions[i].ID == id {
			return &c.Actions[i]
		}
	}
	return nil
}

// Patch is a partial card update applied by Engine.Update. Nil fields keep
// the current value. Setting ExpiresAt changes the stored deadline but never
// touches a running timer (only insertion arms timers).
type Patch struct {
	Title       *string
	Description *string
	Icon        *string
	ExpiresAt   *time.Time
	Actions     []Action // nil keeps; empty slice clears

	Suggestion   *SuggestionInfo
	Preview      *PreviewInfo
	Result       *ResultInfo
	Confirmation *ConfirmationInfo
	Progress     *ProgressInfo
	Choice       *ChoiceInfo
}

func (p Patch) apply(c *Card) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.ExpiresAt != nil {
		c.ExpiresAt = *p.ExpiresAt
	}
	if p.Actions != nil {
		c.Actions = append([]Action(nil), p.Actions...)
	}
	if p.Suggestion != nil {
		v := *p.Suggestion
		c.Suggestion = &v
	}
	if p.Preview != nil {
		v := *p.Preview
		c.Preview = &v
	}
	if p.Result != nil {
		v := *p.Result
		c.Result = &v
	}
	if p.Confirmation != nil {
		v := *p.Confirmation
		c.Confirmation = &v
	}
	if p.Progress != nil {
		v := *p.Progress
		c.Progress = &v
	}
	if p.Choice != nil {
		v := *p.Choice
		c.Choice = &v
	}
}

// PerceptionStatus mirrors the host's perception pipeline state. The engine
// stores it verbatim; only the renderer gives it meaning.
type PerceptionStatus string

const (
	PerceptionIdle      PerceptionStatus = "idle"
	PerceptionObserving PerceptionStatus = "observing"
	PerceptionAnalyzing PerceptionStatus = "analyzing"
	PerceptionActing    PerceptionStatus = "acting"
)

// State is an immutable snapshot of the engine. Mutating it (or the cards in
// it) never affects the live engine.
type State struct {
	Cards      []Card           `json:"cards"`
	MaxVisible int              `json:"maxVisible"`
	Loading    bool             `json:"loading"`
	Perception PerceptionStatus `json:"perception"`
	LastUpdate time.Time        `json:"lastUpdate"`
}

// Config controls capacity and default expiration.
type Config struct {
	// MaxVisible bounds the held-card count. Values <= 0 are legal but
	// degenerate: every insertion drains all held cards first.
	MaxVisible int
	// CardTTL is the default expiration applied to cards inserted without
	// an explicit deadline. Zero disables default expiration.
	CardTTL time.Duration
	// AutoHide maps a variant to a per-variant hide delay applied by the
	// factories as an explicit deadline. An explicit deadline always beats
	// CardTTL, so a variant listed here never uses the default TTL.
	AutoHide map[Variant]time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxVisible == 0 {
		c.MaxVisible = 3
	}
	return c
}

// ConfigPatch is a partial config update; nil fields keep current values.
type ConfigPatch struct {
	MaxVisible *int
	CardTTL    *time.Duration
	AutoHide   map[Variant]time.Duration
}
