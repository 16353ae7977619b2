package config

// Config is soultray's full configuration file. Durations are Go duration
// strings (e.g. "30s", "8h"); parse them with ParseDurationField so invalid
// values are rejected with the offending key path.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Engine  EngineConfig  `json:"engine"`
	Server  ServerConfig  `json:"server"`
	Journal JournalConfig `json:"journal"`
	Quiet   QuietConfig   `json:"quiet"`
	Mirror  MirrorConfig  `json:"mirror"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// EngineConfig feeds the card engine. Omitted fields fall back to engine
// defaults; on reload only present-and-changed fields are applied as a patch.
type EngineConfig struct {
	// MaxVisible bounds the held-card count (int > 0 in the file; the
	// drain-to-empty degenerate case is reachable only programmatically).
	MaxVisible int `json:"max_visible"`
	// CardTTL is the default expiration; "0s" disables default expiration.
	CardTTL string `json:"card_ttl"`
	// AutoHide maps variant name -> hide delay applied as an explicit
	// deadline by the factories (beats CardTTL).
	AutoHide map[string]string `json:"auto_hide,omitempty"`
}

type ServerConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
	// Retention bounds how long activity rows are kept ("168h" = one week).
	Retention string `json:"retention"`
}

type QuietConfig struct {
	Enabled bool          `json:"enabled"`
	Windows []QuietWindow `json:"windows,omitempty"`
}

// QuietWindow opens a do-not-disturb window: Start is a cron spec
// (5 or 6 fields), Duration a Go duration string.
type QuietWindow struct {
	Start    string `json:"start"`
	Duration string `json:"duration"`
}

type MirrorConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chat_id"`
	// Variants lists the card variants to forward; empty means error only.
	Variants   []string `json:"variants,omitempty"`
	RatePerMin int      `json:"rate_per_min"`
}
