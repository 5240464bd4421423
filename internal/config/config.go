package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Env                  string
	Port                 string
	LogLevel             string
	LogFormat            string
	AllowedOrigin        string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	SummaryTTLSeconds    int
	AuthSecret           string
	ImportBatchSize      int
	ImportConcurrency    int
	ImportDuplicateGuard bool
	ImportRatePerMinute  int
	OutlierStoreID       string
	CoachingBenchmark    float64
}

func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOWED_ORIGIN", "http://127.0.0.1:3000")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SUMMARY_TTL_SECONDS", 60)
	v.SetDefault("IMPORT_BATCH_SIZE", 100)
	v.SetDefault("IMPORT_CONCURRENCY", 4)
	v.SetDefault("IMPORT_DUPLICATE_GUARD", true)
	v.SetDefault("IMPORT_RATE_PER_MINUTE", 20)
	v.SetDefault("OUTLIER_STORE_ID", "AB-WH")
	v.SetDefault("COACHING_BENCHMARK", 70.0)

	cfg := Config{
		Env:                  strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		Port:                 v.GetString("PORT"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		AllowedOrigin:        v.GetString("ALLOWED_ORIGIN"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		SummaryTTLSeconds:    v.GetInt("SUMMARY_TTL_SECONDS"),
		AuthSecret:           strings.TrimSpace(v.GetString("AUTH_SECRET")),
		ImportBatchSize:      v.GetInt("IMPORT_BATCH_SIZE"),
		ImportConcurrency:    v.GetInt("IMPORT_CONCURRENCY"),
		ImportDuplicateGuard: v.GetBool("IMPORT_DUPLICATE_GUARD"),
		ImportRatePerMinute:  v.GetInt("IMPORT_RATE_PER_MINUTE"),
		OutlierStoreID:       strings.ToUpper(strings.TrimSpace(v.GetString("OUTLIER_STORE_ID"))),
		CoachingBenchmark:    v.GetFloat64("COACHING_BENCHMARK"),
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
		if cfg.Env == "production" {
			cfg.LogFormat = "json"
		}
	}
	if cfg.SummaryTTLSeconds < 1 {
		cfg.SummaryTTLSeconds = 60
	}
	if cfg.ImportBatchSize < 1 {
		cfg.ImportBatchSize = 100
	}
	if cfg.ImportConcurrency < 1 {
		cfg.ImportConcurrency = 4
	}
	if cfg.ImportRatePerMinute < 1 {
		cfg.ImportRatePerMinute = 20
	}
	if cfg.CoachingBenchmark <= 0 {
		cfg.CoachingBenchmark = 70
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}
