package cards

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"soultray/internal/eventbus"
	"soultray/pkg/logx"
)

var (
	// ErrClosed is returned by Add after Close(); every other operation on a
	// closed engine is a silent no-op.
	ErrClosed = errors.New("card engine closed")
	// ErrDuplicateCard reports an Add with an id that is already held.
	ErrDuplicateCard = errors.New("card id already held")
	// ErrDuplicateAction reports a card whose action ids are not unique.
	ErrDuplicateAction = errors.New("duplicate action id on card")
)

// Engine owns a bounded, insertion-ordered card collection with per-card
// expiration timers and a fixed event contract (see events.go).
//
// All mutations are serialized behind one mutex; timer callbacks reenter
// through the same lock, so no two mutations ever interleave. Absence
// conditions (unknown card, unknown action, disabled action) are silent
// no-ops: the renderer may race the user dismissing a card just as an
// update arrives, and that must not be fatal.
type Engine struct {
	mu sync.Mutex

	cfg        Config
	cards      []*Card // insertion order; index 0 is oldest
	loading    bool
	perception PerceptionStatus
	lastUpdate time.Time
	closed     bool

	// One timer handle per held card id, cleared on every path that discards
	// the card. ver lets a fire that lost the Stop() race detect it and bail.
	timers map[string]*time.Timer
	ver    map[string]uint64
	verSeq uint64

	bus eventbus.Bus
	log logx.Logger

	now func() time.Time // test seam
}

func New(cfg Config, bus eventbus.Bus, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{
		cfg:        cfg.withDefaults(),
		perception: PerceptionIdle,
		timers:     map[string]*time.Timer{},
		ver:        map[string]uint64{},
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// Add inserts a card at the tail, evicting oldest-first if over capacity.
// A zero ID is filled with a fresh uuid; a zero CreatedAt with now.
// It returns a copy of the card as held (ExpiresAt may have been filled in
// from the default TTL).
func (e *Engine) Add(c Card) (Card, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Card{}, ErrClosed
	}
	if err := validateActions(c.Actions); err != nil {
		return Card{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if e.findLocked(c.ID) != nil {
		return Card{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c.ID)
	}
	now := e.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	// Capacity: evict the oldest held card (FIFO by insertion, not by
	// timestamp) until there is room. MaxVisible <= 0 drains everything;
	// degenerate but legal.
	for len(e.cards) >= e.cfg.MaxVisible && len(e.cards) > 0 {
		e.removeLocked(e.cards[0].ID, ReasonReplaced, now)
	}

	held := &c
	e.cards = append(e.cards, held)

	// Timer arming: an explicit deadline always beats the default TTL.
	// A deadline already in the past arms nothing; the card persists until
	// it is removed explicitly.
	switch {
	case !held.ExpiresAt.IsZero():
		if d := held.ExpiresAt.Sub(now); d > 0 {
			e.armLocked(held.ID, d)
		}
	case e.cfg.CardTTL > 0:
		held.ExpiresAt = now.Add(e.cfg.CardTTL)
		e.armLocked(held.ID, e.cfg.CardTTL)
	}

	e.lastUpdate = now
	e.log.Debug("card added",
		logx.String("card", held.ID),
		logx.String("variant", string(held.Variant)),
		logx.Int("held", len(e.cards)))
	e.publish(EventShown, ShownEvent{CardID: held.ID, At: now})
	e.publishStateLocked()
	return held.clone(), nil
}

// Remove dismisses a held card. An empty reason means ReasonUser.
// Unknown ids are a no-op (no event).
func (e *Engine) Remove(id string, reason Reason) {
	if reason == "" {
		reason = ReasonUser
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if e.removeLocked(id, reason, e.now()) {
		e.publishStateLocked()
	}
}

// Update shallow-merges a patch into a held card. It never touches timers,
// even when the patch carries ExpiresAt: only insertion arms timers.
// Unknown ids are a no-op. Emits state.changed only.
func (e *Engine) Update(id string, p Patch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	c := e.findLocked(id)
	if c == nil {
		return
	}
	p.apply(c)
	e.lastUpdate = e.now()
	e.publishStateLocked()
}

// UpdateProgress advances a progress card. No-op unless the card is held and
// is a progress variant. An empty status keeps the current one.
func (e *Engine) UpdateProgress(id string, currentStep int, description, status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	c := e.findLocked(id)
	if c == nil || c.Variant != VariantProgress || c.Progress == nil {
		return
	}
	p := *c.Progress
	p.CurrentStep = currentStep
	if status != "" {
		p.Status = status
	}
	// Guard the zero-step denominator; report 0% rather than NaN.
	if p.TotalSteps > 0 {
		p.PercentComplete = int(math.Round(float64(currentStep) / float64(p.TotalSteps) * 100))
	} else {
		p.PercentComplete = 0
	}
	c.Progress = &p
	c.Description = description
	e.lastUpdate = e.now()
	e.publishStateLocked()
}

// Clear dismisses every held card (reason user, held order), then emits one
// final state.changed.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.clearLocked()
}

// HandleAction dispatches a user-invoked action. Unknown card, unknown
// action, and disabled action are silent no-ops. A dismiss-kind action
// removes the card right after the action event.
func (e *Engine) HandleAction(cardID, actionID string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	c := e.findLocked(cardID)
	if c == nil {
		return
	}
	a := c.action(actionID)
	if a == nil || a.Disabled {
		return
	}
	now := e.now()
	e.publish(EventAction, ActionEvent{CardID: cardID, ActionID: actionID, At: now, Data: data})
	if a.Kind == ActionDismiss {
		if e.removeLocked(cardID, ReasonUser, now) {
			e.publishStateLocked()
		}
	}
}

// State returns a defensive deep copy; callers never need a lock to inspect it.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) SetLoading(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.loading = v
	e.lastUpdate = e.now()
	e.publishStateLocked()
}

func (e *Engine) SetPerception(st PerceptionStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.perception = st
	e.lastUpdate = e.now()
	e.publishStateLocked()
}

// ApplyConfig merges a partial config. Shrinking MaxVisible below the held
// count never retro-evicts: eviction is enforced only at insertion time, so
// a capacity change cannot silently destroy in-flight cards.
func (e *Engine) ApplyConfig(p ConfigPatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if p.MaxVisible != nil {
		e.cfg.MaxVisible = *p.MaxVisible
	}
	if p.CardTTL != nil {
		e.cfg.CardTTL = *p.CardTTL
	}
	if p.AutoHide != nil {
		m := make(map[Variant]time.Duration, len(p.AutoHide))
		for k, v := range p.AutoHide {
			m[k] = v
		}
		e.cfg.AutoHide = m
	}
	e.lastUpdate = e.now()
	e.log.Debug("config applied",
		logx.Int("max_visible", e.cfg.MaxVisible),
		logx.Duration("card_ttl", e.cfg.CardTTL))
	e.publish(EventConfigChanged, ConfigChangedEvent{
		MaxVisible: e.cfg.MaxVisible,
		CardTTL:    e.cfg.CardTTL,
		AutoHide:   e.cfg.AutoHide,
	})
}

// Config returns a copy of the current config.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.cfg
	if e.cfg.AutoHide != nil {
		m := make(map[Variant]time.Duration, len(e.cfg.AutoHide))
		for k, v := range e.cfg.AutoHide {
			m[k] = v
		}
		cfg.AutoHide = m
	}
	return cfg
}

// Close clears all cards (emitting the usual dismissals) and shuts the
// engine down. No event is ever emitted after Close returns; outstanding
// timers are canceled and a late fire that slipped past Stop() bails on the
// closed flag.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.clearLocked()
	e.closed = true
	e.log.Debug("engine closed")
}

// ---- internals (all require e.mu held) ----

func (e *Engine) findLocked(id string) *Card {
	for _, c := range e.cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// removeLocked cancels the card's timer, splices it out, and publishes the
// dismissed event. Bookkeeping strictly precedes the publish so a consumer
// can never observe a half-removed card. The caller is responsible for the
// trailing state.changed.
func (e *Engine) removeLocked(id string, reason Reason, now time.Time) bool {
	idx := -1
	for i, c := range e.cards {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	e.cancelTimerLocked(id)
	e.cards = append(e.cards[:idx], e.cards[idx+1:]...)
	e.lastUpdate = now
	e.log.Debug("card dismissed",
		logx.String("card", id),
		logx.String("reason", string(reason)),
		logx.Int("held", len(e.cards)))
	e.publish(EventDismissed, DismissedEvent{CardID: id, Reason: reason, At: now})
	return true
}

func (e *Engine) clearLocked() {
	now := e.now()
	e.cancelAllLocked()
	held := e.cards
	e.cards = nil
	e.lastUpdate = now
	for _, c := range held {
		e.publish(EventDismissed, DismissedEvent{CardID: c.ID, Reason: ReasonUser, At: now})
	}
	e.publishStateLocked()
}

func (e *Engine) armLocked(id string, d time.Duration) {
	e.verSeq++
	ver := e.verSeq
	e.ver[id] = ver
	e.timers[id] = time.AfterFunc(d, func() { e.expire(id, ver) })
}

// expire is the timer callback. The version check catches a fire that was
// already in flight when Stop() ran; such a fire must be a no-op.
func (e *Engine) expire(id string, ver uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.ver[id] != ver {
		return
	}
	delete(e.timers, id)
	delete(e.ver, id)
	if e.removeLocked(id, ReasonTimeout, e.now()) {
		e.publishStateLocked()
	}
}

func (e *Engine) cancelTimerLocked(id string) {
	if t, ok := e.timers[id]; ok {
		_ = t.Stop()
		delete(e.timers, id)
	}
	delete(e.ver, id)
}

// cancelAllLocked is the single teardown path shared by Clear and Close.
func (e *Engine) cancelAllLocked() {
	for _, t := range e.timers {
		_ = t.Stop()
	}
	e.timers = map[string]*time.Timer{}
	e.ver = map[string]uint64{}
}

func (e *Engine) stateLocked() State {
	out := State{
		Cards:      make([]Card, 0, len(e.cards)),
		MaxVisible: e.cfg.MaxVisible,
		Loading:    e.loading,
		Perception: e.perception,
		LastUpdate: e.lastUpdate,
	}
	for _, c := range e.cards {
		out.Cards = append(out.Cards, c.clone())
	}
	return out
}

func (e *Engine) publishStateLocked() {
	e.publish(EventStateChanged, StateChangedEvent{State: e.stateLocked()})
}

func (e *Engine) publish(k eventbus.Kind, data any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{Kind: k, Time: e.now(), Data: data})
}

func validateActions(actions []Action) error {
	seen := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAction, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}
