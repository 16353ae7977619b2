// Package journal subscribes to the card event stream and persists it.
//
// It is a pure consumer of the engine's public contract: events plus State()
// lookups. Losing a journal row is acceptable (best-effort), losing engine
// consistency is not, so the journal never blocks the bus.
package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
	"soultray/internal/storage"
	logx "soultray/pkg/logx"
)

type Config struct {
	Enabled   bool
	Retention time.Duration // rows older than this are pruned; 0 keeps forever
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	bus    eventbus.Bus
	store  storage.Store
	engine *cards.Engine

	sub    *eventbus.Sub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, store storage.Store, engine *cards.Engine, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, store: store, engine: engine, bus: bus, log: log}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || !s.cfg.Enabled || s.store == nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.sub = s.bus.Subscribe(128)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(runCtx, s.sub)
	}()
	s.log.Info("journal started", logx.Duration("retention", s.cfg.Retention))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sub := s.sub
	cancel := s.cancel
	s.sub = nil
	s.cancel = nil
	s.mu.Unlock()

	if sub == nil {
		return
	}
	cancel()
	sub.Cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Service) loop(ctx context.Context, sub *eventbus.Sub) {
	// Prune on a slow cadence; retention is measured in days, not seconds.
	var pruneC <-chan time.Time
	if s.cfg.Retention > 0 {
		t := time.NewTicker(time.Hour)
		defer t.Stop()
		pruneC = t.C
		s.prune(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			s.record(ctx, ev)
		case <-pruneC:
			s.prune(ctx)
		}
	}
}

func (s *Service) record(ctx context.Context, ev eventbus.Event) {
	entry, ok := s.entryFor(ev)
	if !ok {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := s.store.AppendActivity(wctx, entry)
	cancel()
	if err != nil && ctx.Err() == nil {
		s.log.Warn("journal append failed", logx.Err(err), logx.String("kind", entry.Kind))
	}
}

// entryFor maps bus events to journal rows. State-changed and config-changed
// are skipped: they are renderer sync signals, not user activity.
func (s *Service) entryFor(ev eventbus.Event) (storage.ActivityEntry, bool) {
	switch ev.Kind {
	case cards.EventShown:
		data, ok := ev.Data.(cards.ShownEvent)
		if !ok {
			return storage.ActivityEntry{}, false
		}
		e := storage.ActivityEntry{At: data.At, Kind: "shown", CardID: data.CardID}
		// Best effort: the card is still held right after shown unless the
		// renderer raced us; absent details are fine.
		if c, found := s.lookup(data.CardID); found {
			e.Variant = string(c.Variant)
			e.Title = c.Title
		}
		return e, true
	case cards.EventDismissed:
		data, ok := ev.Data.(cards.DismissedEvent)
		if !ok {
			return storage.ActivityEntry{}, false
		}
		return storage.ActivityEntry{
			At: data.At, Kind: "dismissed", CardID: data.CardID, Reason: string(data.Reason),
		}, true
	case cards.EventAction:
		data, ok := ev.Data.(cards.ActionEvent)
		if !ok {
			return storage.ActivityEntry{}, false
		}
		e := storage.ActivityEntry{
			At: data.At, Kind: "action", CardID: data.CardID, ActionID: data.ActionID,
		}
		if data.Data != nil {
			if b, err := json.Marshal(data.Data); err == nil {
				e.DataJSON = string(b)
			}
		}
		return e, true
	default:
		return storage.ActivityEntry{}, false
	}
}

func (s *Service) lookup(cardID string) (cards.Card, bool) {
	if s.engine == nil {
		return cards.Card{}, false
	}
	for _, c := range s.engine.State().Cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return cards.Card{}, false
}

func (s *Service) prune(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Retention)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	n, err := s.store.Prune(pctx, cutoff)
	cancel()
	if err != nil && ctx.Err() == nil {
		s.log.Warn("journal prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Debug("journal pruned", logx.Int64("rows", n))
	}
}
