package cards

import "time"

// Factories are the only supported way to construct cards: each fills the
// variant's icon and default action set, then performs one Add. Options
// tweak the assembled card before insertion.

// Option mutates a card during factory assembly.
type Option func(*Card)

// WithExpiresAt sets an explicit deadline. It takes precedence over both the
// engine default TTL and the variant auto-hide delay.
func WithExpiresAt(t time.Time) Option {
	return func(c *Card) { c.ExpiresAt = t }
}

// WithActions replaces the variant's default action set.
func WithActions(actions ...Action) Option {
	return func(c *Card) { c.Actions = actions }
}

// iconFor picks the presentational icon for a variant. Result cards override
// this per outcome status (see resultIcon).
func iconFor(v Variant) string {
	switch v {
	case VariantSuggestion:
		return "suggestion-icon"
	case VariantPreview:
		return "preview-icon"
	case VariantResult:
		return "info-icon"
	case VariantConfirmation:
		return "question-icon"
	case VariantProgress:
		return "progress-icon"
	case VariantInfo:
		return "info-icon"
	case VariantError:
		return "error-icon"
	case VariantChoice:
		return "choice-icon"
	}
	return "info-icon"
}

func resultIcon(st OutcomeStatus) string {
	switch st {
	case OutcomeSuccess:
		return "success-icon"
	case OutcomePartial:
		return "warning-icon"
	case OutcomeFailed:
		return "error-icon"
	case OutcomeCancelled:
		return "info-icon"
	}
	return "info-icon"
}

func (e *Engine) assemble(v Variant, title, description string, actions []Action, opts []Option) Card {
	c := Card{
		Variant:     v,
		Title:       title,
		Description: description,
		Icon:        iconFor(v),
		Actions:     actions,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// autoHideDeadline converts a variant-level auto-hide delay into an explicit
// deadline. Explicit deadlines beat the engine default TTL, so a variant
// listed in Config.AutoHide always hides on its own schedule even when a
// default TTL is also configured.
func (e *Engine) autoHideDeadline(v Variant) time.Time {
	e.mu.Lock()
	d := e.cfg.AutoHide[v]
	now := e.now()
	e.mu.Unlock()
	if d <= 0 {
		return time.Time{}
	}
	return now.Add(d)
}

// NewSuggestion surfaces a proposed automation with its impact text.
func (e *Engine) NewSuggestion(title, description, impact string, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "accept", Label: "Accept", Kind: ActionPrimary},
		{ID: "dismiss", Label: "Not now", Kind: ActionDismiss},
	}
	c := e.assemble(VariantSuggestion, title, description, actions, opts)
	c.Suggestion = &SuggestionInfo{Impact: impact}
	return e.Add(c)
}

// NewPreview shows the planned changes of an operation awaiting approval.
func (e *Engine) NewPreview(title, description string, items []string, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "apply", Label: "Apply", Kind: ActionPrimary},
		{ID: "dismiss", Label: "Cancel", Kind: ActionDismiss},
	}
	c := e.assemble(VariantPreview, title, description, actions, opts)
	c.Preview = &PreviewInfo{Items: append([]string(nil), items...)}
	return e.Add(c)
}

// NewResult reports a finished operation. A non-empty rollbackInfo adds a
// rollback action.
func (e *Engine) NewResult(title, summary string, status OutcomeStatus, rollbackInfo string, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "dismiss", Label: "Dismiss", Kind: ActionDismiss},
	}
	if rollbackInfo != "" {
		actions = append(actions, Action{ID: "rollback", Label: "Undo", Kind: ActionDanger})
	}
	c := e.assemble(VariantResult, title, summary, actions, opts)
	c.Icon = resultIcon(status)
	c.Result = &ResultInfo{OutcomeStatus: status, Summary: summary, RollbackInfo: rollbackInfo}
	return e.Add(c)
}

// NewConfirmation always carries confirm + cancel; cancel is the dismiss.
func (e *Engine) NewConfirmation(title, description string, level WarningLevel, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "confirm", Label: "Confirm", Kind: ActionPrimary},
		{ID: "cancel", Label: "Cancel", Kind: ActionDismiss},
	}
	if level == "" {
		level = WarnInfo
	}
	c := e.assemble(VariantConfirmation, title, description, actions, opts)
	c.Confirmation = &ConfirmationInfo{WarningLevel: level}
	return e.Add(c)
}

// NewProgress starts a step-counted progress card at step 0.
func (e *Engine) NewProgress(title, description string, totalSteps int, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "cancel", Label: "Cancel", Kind: ActionSecondary},
	}
	c := e.assemble(VariantProgress, title, description, actions, opts)
	c.Progress = &ProgressInfo{TotalSteps: totalSteps, Status: "running"}
	return e.Add(c)
}

// NewInfo is a transient notice. If the config maps an auto-hide delay for
// info cards, it becomes an explicit deadline here.
func (e *Engine) NewInfo(title, description string, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "dismiss", Label: "OK", Kind: ActionDismiss},
	}
	c := e.assemble(VariantInfo, title, description, actions, opts)
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = e.autoHideDeadline(VariantInfo)
	}
	return e.Add(c)
}

// NewError reports a failure; errors never auto-hide by variant policy.
func (e *Engine) NewError(title, description string, opts ...Option) (Card, error) {
	actions := []Action{
		{ID: "dismiss", Label: "Dismiss", Kind: ActionDismiss},
	}
	c := e.assemble(VariantError, title, description, actions, opts)
	return e.Add(c)
}

// NewChoice maps each option to a secondary action (option ids must be
// unique) and appends a skip dismiss.
func (e *Engine) NewChoice(title, description string, options []ChoiceOption, opts ...Option) (Card, error) {
	actions := make([]Action, 0, len(options)+1)
	for _, o := range options {
		actions = append(actions, Action{ID: o.ID, Label: o.Label, Kind: ActionSecondary})
	}
	actions = append(actions, Action{ID: "skip", Label: "Skip", Kind: ActionDismiss})
	c := e.assemble(VariantChoice, title, description, actions, opts)
	c.Choice = &ChoiceInfo{Options: append([]ChoiceOption(nil), options...)}
	return e.Add(c)
}
