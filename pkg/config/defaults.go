package config

import "time"

// Defaults returns the built-in configuration baseline. Loader merges a
// user-supplied YAML file on top of this with mergo.WithOverride, so any
// field the file omits keeps its default here.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "deskcore",
			Name:            "deskcore",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Classifier: ClassifierConfig{
			BaseURL: "http://localhost:9000",
			Timeout: 10 * time.Second,
		},
		ResponseBank: ResponseBankConfig{
			ContentFile: "responsebank/responses.json",
			CacheDir:    "responsebank/.cache",
		},
		Thresholds: ThresholdsConfig{
			NeedsClarification: 0.70,
			AutoResolve:        0.75,
			SimilarityRU:       0.65,
			SimilarityKK:       0.50,
			VerbatimSimilarity: 0.80,
		},
		SLA: SLAConfig{
			SweepInterval:    60 * time.Second,
			EscalationWindow: 12 * time.Hour,
			WarningWindow:    time.Hour,
			SnapshotSchedule: "0 0 * * *",
		},
		Metrics: MetricsConfig{
			CSATResponseTimeBonusSeconds: 0.8,
		},
	}
}
