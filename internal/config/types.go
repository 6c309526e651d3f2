package config

// Config is the single process configuration file (JSON or YAML).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Tokens may be omitted from the file: empty values fall back to the
// TELEGRAM_BOT_TOKEN / SMMBOX_API_TOKEN environment variables (a .env file
// next to the binary is honored).
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	SMMBox   SMMBoxConfig   `json:"smmbox"`
	Posting  PostingConfig  `json:"posting"`
	Storage  StorageConfig  `json:"storage"`
	Digest   DigestConfig   `json:"digest,omitempty"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
	// OwnerUserIDs restricts who may talk to the bot. Empty means anyone.
	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type SMMBoxConfig struct {
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	// RatePerSec caps outbound SMMBox API calls. 0 keeps the client default.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// PostingConfig controls slot allocation.
//
// DailyLimit and the logging level are hot-reloadable: editing the config
// file applies them without a restart.
type PostingConfig struct {
	DailyLimit int `json:"daily_limit,omitempty"`
	// Timezone names the calendar's local timezone (IANA name).
	// Empty means the process-local zone.
	Timezone string `json:"timezone,omitempty"`
}

type StorageConfig struct {
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// DigestConfig controls the morning queue digest.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Spec is a cron expression; empty means "0 9 * * *".
	Spec string `json:"spec,omitempty"`
	// ChatID receives the digest. 0 disables it even when Enabled.
	ChatID int64 `json:"chat_id,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}
