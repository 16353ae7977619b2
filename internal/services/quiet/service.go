// Package quiet tracks do-not-disturb windows.
//
// Windows open on a cron schedule and stay open for a fixed duration.
// Consumers (the Telegram mirror) poll Active(); the card engine itself is
// deliberately unaware of quiet state.
package quiet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "soultray/pkg/logx"
)

type Window struct {
	Start    string // cron spec, 5 or 6 fields
	Duration time.Duration
}

type Config struct {
	Enabled bool
	Windows []Window
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	parser cron.Parser
	c      *cron.Cron

	activeUntil time.Time

	now func() time.Time // test seam
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		now:    time.Now,
	}
}

// Validate checks every window spec without starting anything.
func (s *Service) Validate(cfg Config) error {
	for i, w := range cfg.Windows {
		if _, err := s.parser.Parse(w.Start); err != nil {
			return fmt.Errorf("quiet window %d: invalid cron spec %q: %w", i, w.Start, err)
		}
		if w.Duration <= 0 {
			return fmt.Errorf("quiet window %d: duration must be > 0", i)
		}
	}
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if s.c != nil || !s.cfg.Enabled {
		return nil
	}
	c := cron.New(cron.WithParser(s.parser))
	for _, w := range s.cfg.Windows {
		w := w
		if _, err := c.AddFunc(w.Start, func() { s.open(w.Duration) }); err != nil {
			return fmt.Errorf("quiet window %q: %w", w.Start, err)
		}
	}
	c.Start()
	s.c = c
	s.log.Info("quiet hours armed", logx.Int("windows", len(s.cfg.Windows)))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Apply swaps the window set at runtime, restarting the cron if running.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	s.cfg = cfg
	return s.startLocked()
}

// Active reports whether a quiet window is currently open.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.activeUntil)
}

// open extends the quiet deadline; overlapping windows keep the latest end.
func (s *Service) open(d time.Duration) {
	s.mu.Lock()
	until := s.now().Add(d)
	extended := until.After(s.activeUntil)
	if extended {
		s.activeUntil = until
	}
	s.mu.Unlock()

	if extended {
		s.log.Debug("quiet window opened", logx.Time("until", until))
	}
}
