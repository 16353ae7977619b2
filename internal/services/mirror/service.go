// Package mirror forwards selected cards to a Telegram chat so the user
// still sees urgent assistant output when away from the desktop.
//
// Strictly best-effort: quiet hours suppress it, the rate limiter drops
// excess, and send failures are logged and forgotten. It must never apply
// backpressure to the engine's event stream.
package mirror

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tb "gopkg.in/telebot.v4"

	"soultray/internal/cards"
	"soultray/internal/eventbus"
	logx "soultray/pkg/logx"
)

type Config struct {
	Enabled    bool
	Token      string
	ChatID     int64
	Variants   []string // empty means error only
	RatePerMin int
}

// Gate is the quiet-hours check; see the quiet package.
type Gate interface {
	Active() bool
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	bus    eventbus.Bus
	engine *cards.Engine
	gate   Gate

	bot     *tb.Bot
	limiter *rate.Limiter
	wants   map[cards.Variant]bool

	sub    *eventbus.Sub
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, engine *cards.Engine, bus eventbus.Bus, gate Gate, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cfg: cfg, engine: engine, bus: bus, gate: gate, log: log}
	s.applyLocked(cfg)
	return s
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 6
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMin)/60.0), cfg.RatePerMin)
	s.wants = map[cards.Variant]bool{}
	if len(cfg.Variants) == 0 {
		s.wants[cards.VariantError] = true
	}
	for _, v := range cfg.Variants {
		s.wants[cards.Variant(strings.TrimSpace(v))] = true
	}
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || !s.cfg.Enabled {
		return
	}
	if strings.TrimSpace(s.cfg.Token) == "" || s.cfg.ChatID == 0 {
		s.log.Warn("mirror enabled but token/chat_id missing; disabled")
		return
	}

	bot, err := tb.NewBot(tb.Settings{
		Token:  s.cfg.Token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		// Degrade, don't fail the daemon: the desktop surface still works.
		s.log.Warn("mirror bot init failed; disabled", logx.Err(err))
		return
	}
	s.bot = bot

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.sub = s.bus.Subscribe(64)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(runCtx, s.sub)
	}()
	s.log.Info("mirror started", logx.Int64("chat_id", s.cfg.ChatID))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sub := s.sub
	cancel := s.cancel
	s.sub = nil
	s.cancel = nil
	s.bot = nil
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
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Kind != cards.EventShown {
				continue
			}
			data, ok := ev.Data.(cards.ShownEvent)
			if !ok {
				continue
			}
			s.forward(data.CardID)
		}
	}
}

func (s *Service) forward(cardID string) {
	s.mu.Lock()
	bot := s.bot
	chatID := s.cfg.ChatID
	lim := s.limiter
	gate := s.gate
	s.mu.Unlock()

	if bot == nil {
		return
	}
	if gate != nil && gate.Active() {
		return
	}

	c, found := s.lookup(cardID)
	if !found || !s.wantsVariant(c.Variant) {
		return
	}
	if !lim.Allow() {
		s.log.Debug("mirror rate limited; dropped", logx.String("card", cardID))
		return
	}

	if _, err := bot.Send(tb.ChatID(chatID), FormatCard(c)); err != nil {
		s.log.Warn("mirror send failed", logx.Err(err), logx.String("card", cardID))
	}
}

func (s *Service) wantsVariant(v cards.Variant) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wants[v]
}

func (s *Service) lookup(cardID string) (cards.Card, bool) {
	for _, c := range s.engine.State().Cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return cards.Card{}, false
}

// FormatCard renders a card as plain text for the mirror chat.
func FormatCard(c cards.Card) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(string(c.Variant)))
	b.WriteString("] ")
	b.WriteString(c.Title)
	if strings.TrimSpace(c.Description) != "" {
		b.WriteString("\n")
		b.WriteString(c.Description)
	}
	if c.Result != nil && strings.TrimSpace(c.Result.Summary) != "" && c.Result.Summary != c.Description {
		b.WriteString("\n")
		b.WriteString(c.Result.Summary)
	}
	return b.String()
}
