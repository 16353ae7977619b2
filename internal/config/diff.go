package config

import (
	"reflect"
	"strings"

	logx "soultray/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like the
// mirror bot token).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Engine
	if oldCfg.Engine.MaxVisible != newCfg.Engine.MaxVisible ||
		strings.TrimSpace(oldCfg.Engine.CardTTL) != strings.TrimSpace(newCfg.Engine.CardTTL) ||
		!reflect.DeepEqual(oldCfg.Engine.AutoHide, newCfg.Engine.AutoHide) {
		changed = append(changed, "engine")
		attrs = append(attrs,
			logx.Int("engine.max_visible", newCfg.Engine.MaxVisible),
			logx.String("engine.card_ttl", strings.TrimSpace(newCfg.Engine.CardTTL)),
			logx.Int("engine.auto_hide_count", len(newCfg.Engine.AutoHide)),
		)
	}

	// Server
	if oldCfg.Server != newCfg.Server {
		changed = append(changed, "server")
		attrs = append(attrs,
			logx.Bool("server.enabled", newCfg.Server.Enabled),
			logx.String("server.addr", strings.TrimSpace(newCfg.Server.Addr)),
		)
	}

	// Journal
	if oldCfg.Journal != newCfg.Journal {
		changed = append(changed, "journal")
		attrs = append(attrs,
			logx.Bool("journal.enabled", newCfg.Journal.Enabled),
			logx.String("journal.retention", strings.TrimSpace(newCfg.Journal.Retention)),
		)
	}

	// Quiet
	if oldCfg.Quiet.Enabled != newCfg.Quiet.Enabled ||
		!reflect.DeepEqual(oldCfg.Quiet.Windows, newCfg.Quiet.Windows) {
		changed = append(changed, "quiet")
		attrs = append(attrs,
			logx.Bool("quiet.enabled", newCfg.Quiet.Enabled),
			logx.Int("quiet.window_count", len(newCfg.Quiet.Windows)),
		)
	}

	// Mirror (never log token)
	if oldCfg.Mirror.Enabled != newCfg.Mirror.Enabled ||
		oldCfg.Mirror.ChatID != newCfg.Mirror.ChatID ||
		oldCfg.Mirror.RatePerMin != newCfg.Mirror.RatePerMin ||
		strings.TrimSpace(oldCfg.Mirror.Token) != strings.TrimSpace(newCfg.Mirror.Token) ||
		!reflect.DeepEqual(oldCfg.Mirror.Variants, newCfg.Mirror.Variants) {
		changed = append(changed, "mirror")
		attrs = append(attrs,
			logx.Bool("mirror.enabled", newCfg.Mirror.Enabled),
			logx.Bool("mirror.token_set", strings.TrimSpace(newCfg.Mirror.Token) != ""),
			logx.Int("mirror.rate_per_min", newCfg.Mirror.RatePerMin),
		)
	}

	return changed, attrs
}
