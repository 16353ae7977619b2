// Package app wires soultray together: config, logging, the card engine,
// and the host-side services around it.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"soultray/internal/cards"
	"soultray/internal/config"
	"soultray/internal/eventbus"
	"soultray/internal/services/journal"
	"soultray/internal/services/mirror"
	"soultray/internal/services/quiet"
	"soultray/internal/storage"
	"soultray/internal/transport/ws"
	logx "soultray/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	logs *logx.Service
	log  logx.Logger

	bus    eventbus.Bus
	engine *cards.Engine
	store  storage.Store

	journal *journal.Service
	quiet   *quiet.Service
	mirror  *mirror.Service
	bridge  *ws.Server

	prev *config.Config // last config applied, for change summaries

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logs.Logger().With(logx.String("comp", "config")))

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		return nil, err
	}
	quietCfg, err := quietConfig(cfg)
	if err != nil {
		return nil, err
	}
	journalCfg, err := journalConfig(cfg)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	engine := cards.New(engineCfg, bus, logs.Logger().With(logx.String("comp", "cards")))

	var store storage.Store
	if cfg.Journal.Enabled {
		store, err = storage.Open(storage.Config{Path: cfg.Journal.Path}, logs.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, fmt.Errorf("open journal store: %w", err)
		}
	}

	quietSvc := quiet.New(quietCfg, logs.Logger().With(logx.String("comp", "quiet")))
	journalSvc := journal.New(journalCfg, store, engine, bus, logs.Logger().With(logx.String("comp", "journal")))
	mirrorSvc := mirror.New(mirrorConfig(cfg), engine, bus, quietSvc, logs.Logger().With(logx.String("comp", "mirror")))
	bridge := ws.New(ws.Config{
		Enabled: cfg.Server.Enabled,
		Addr:    cfg.Server.Addr,
	}, engine, bus, store, logs.Logger().With(logx.String("comp", "bridge")))

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logs:    logs,
		log:     log,
		bus:     bus,
		engine:  engine,
		store:   store,
		journal: journalSvc,
		quiet:   quietSvc,
		mirror:  mirrorSvc,
		bridge:  bridge,
		prev:    cfg,
	}

	// Reject bad reloads before they are committed/published.
	cfgm.SetValidator(func(ctx context.Context, c *config.Config) error {
		if _, err := engineConfig(c); err != nil {
			return err
		}
		qc, err := quietConfig(c)
		if err != nil {
			return err
		}
		if err := quietSvc.Validate(qc); err != nil {
			return err
		}
		_, err = journalConfig(c)
		return err
	})

	return a, nil
}

// Engine exposes the card engine for embedding hosts (the perception
// pipeline calls the factories directly; this daemon only hosts it).
func (a *App) Engine() *cards.Engine { return a.engine }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.quiet.Start(runCtx); err != nil {
		cancel()
		return err
	}
	a.journal.Start(runCtx)
	a.mirror.Start(runCtx)
	if err := a.bridge.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start bridge: %w", err)
	}

	// Config hot reload.
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(runCtx)
	}()
	sub := a.cfgm.Subscribe(4)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	}()

	// Greeting card: gives a fresh install something on screen and the
	// renderer a first event to latch onto.
	if _, err := a.engine.NewInfo("Assistant ready", "soultray is watching for suggestions"); err != nil {
		a.log.Warn("greeting card failed", logx.Err(err))
	}

	a.log.Info("started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) Stop(ctx context.Context) {
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.bridge.Stop(ctx)
		a.mirror.Stop(ctx)
		a.journal.Stop(ctx)
		a.quiet.Stop(ctx)
		a.engine.Close()
		if a.store != nil {
			_ = a.store.Close()
		}
		a.wg.Wait()
		a.log.Info("stopped")
		_ = a.logs.Close()
	})
}

// applyReload fans a committed config out to the services. The validator
// already ran, so parse errors here are unreachable in practice.
func (a *App) applyReload(cfg *config.Config) {
	changed, attrs := config.SummarizeConfigChange(a.prev, cfg)
	a.prev = cfg
	if len(changed) == 0 {
		changed = []string{"(content)"}
	}
	a.log.Info("config reloaded", append([]logx.Field{logx.String("sections", strings.Join(changed, ","))}, attrs...)...)

	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if ec, err := engineConfig(cfg); err == nil {
		a.engine.ApplyConfig(cards.ConfigPatch{
			MaxVisible: &ec.MaxVisible,
			CardTTL:    &ec.CardTTL,
			AutoHide:   ec.AutoHide,
		})
	}
	if qc, err := quietConfig(cfg); err == nil {
		if err := a.quiet.Apply(qc); err != nil {
			a.log.Warn("quiet reload failed", logx.Err(err))
		}
	}
	a.mirror.Apply(mirrorConfig(cfg))
	// Server addr and journal path changes need a restart; cheap to accept.
}

// ---- config mapping ----

func engineConfig(cfg *config.Config) (cards.Config, error) {
	out := cards.Config{MaxVisible: cfg.Engine.MaxVisible}
	ttl, err := config.ParseDurationField("engine.card_ttl", cfg.Engine.CardTTL)
	if err != nil {
		return cards.Config{}, err
	}
	out.CardTTL = ttl
	if len(cfg.Engine.AutoHide) > 0 {
		out.AutoHide = make(map[cards.Variant]time.Duration, len(cfg.Engine.AutoHide))
		for name, raw := range cfg.Engine.AutoHide {
			d, err := config.ParseDurationField("engine.auto_hide."+name, raw)
			if err != nil {
				return cards.Config{}, err
			}
			out.AutoHide[cards.Variant(name)] = d
		}
	}
	return out, nil
}

func quietConfig(cfg *config.Config) (quiet.Config, error) {
	out := quiet.Config{Enabled: cfg.Quiet.Enabled}
	for i, w := range cfg.Quiet.Windows {
		d, err := config.ParseDurationField(fmt.Sprintf("quiet.windows[%d].duration", i), w.Duration)
		if err != nil {
			return quiet.Config{}, err
		}
		out.Windows = append(out.Windows, quiet.Window{Start: w.Start, Duration: d})
	}
	return out, nil
}

func journalConfig(cfg *config.Config) (journal.Config, error) {
	retention, err := config.ParseDurationField("journal.retention", cfg.Journal.Retention)
	if err != nil {
		return journal.Config{}, err
	}
	return journal.Config{Enabled: cfg.Journal.Enabled, Retention: retention}, nil
}

func mirrorConfig(cfg *config.Config) mirror.Config {
	return mirror.Config{
		Enabled:    cfg.Mirror.Enabled,
		Token:      cfg.Mirror.Token,
		ChatID:     cfg.Mirror.ChatID,
		Variants:   cfg.Mirror.Variants,
		RatePerMin: cfg.Mirror.RatePerMin,
	}
}
