// Package config loads deskcore's configuration from a YAML file overlaid
// with environment variables, in the style of a single validated Config
// tree rather than scattered os.Getenv calls.
package config

import "time"

// Config is the fully resolved, validated configuration tree for a
// deskcore process.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	HTTP         HTTPConfig         `yaml:"http"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	ResponseBank ResponseBankConfig `yaml:"response_bank"`
	Thresholds   ThresholdsConfig   `yaml:"thresholds"`
	SLA          SLAConfig          `yaml:"sla"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// HTTPConfig configures the public JSON API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ClassifierConfig configures the C2 classifier gateway's upstream RPC.
type ClassifierConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResponseBankConfig configures C1's canned-response corpus and index
// cache.
type ResponseBankConfig struct {
	ContentFile string `yaml:"content_file"`
	CacheDir    string `yaml:"cache_dir"`
}

// ThresholdsConfig holds the confidence thresholds. SimilarityRU,
// SimilarityKK and VerbatimSimilarity are passed to the auto-reply step
// by cmd/deskcore. NeedsClarification and AutoResolve are validated but
// not read anywhere: routing and the orchestrator use their own fixed
// 0.70 and 0.75 constants.
type ThresholdsConfig struct {
	NeedsClarification float64 `yaml:"needs_clarification"`
	AutoResolve        float64 `yaml:"auto_resolve"`
	SimilarityRU       float64 `yaml:"similarity_ru"`
	SimilarityKK       float64 `yaml:"similarity_kk"`
	VerbatimSimilarity float64 `yaml:"verbatim_similarity"`
}

// SLAConfig configures the escalation sweep loop (C7).
type SLAConfig struct {
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	EscalationWindow  time.Duration `yaml:"escalation_window"`
	WarningWindow     time.Duration `yaml:"warning_window"`
	SnapshotSchedule  string        `yaml:"snapshot_schedule"`
}

// MetricsConfig configures the C9 aggregator's CSAT formula constant,
// preserved as configuration per the open question on the hard-coded
// response-time bonus.
type MetricsConfig struct {
	CSATResponseTimeBonusSeconds float64 `yaml:"csat_response_time_bonus_seconds"`
}
