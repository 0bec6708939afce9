package shared

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `koanf:"app_env"`
	HTTPAddr    string `koanf:"http_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	MySQLDSN    string `koanf:"mysql_dsn"`

	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`
	RedisPass string `koanf:"redis_password"`

	AgentBaseURL string `koanf:"agent_base_url"`
	AgentKey     string `koanf:"agent_api_key"`
	AgentRPS     int    `koanf:"agent_rps"`

	Workers    int `koanf:"workers"`
	FetchLimit int `koanf:"fetch_limit"`
	BatchLimit int `koanf:"batch_limit"`

	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// Sentiment label cutoffs on the compound score.
	PositiveThreshold float64 `koanf:"positive_threshold"`
	NegativeThreshold float64 `koanf:"negative_threshold"`

	// CriterionKeywords backs criteria whose catalog keyword list is
	// empty, keyed by criterion code.
	CriterionKeywords map[string][]string `koanf:"criterion_keywords"`
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func defaults() Config {
	return Config{
		AppEnv:            "prod",
		HTTPAddr:          ":8080",
		MetricsAddr:       ":9100",
		MySQLDSN:          "root:root@tcp(localhost:3306)/stayscore?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		RedisAddr:         "localhost:6379",
		AgentBaseURL:      "http://localhost:8100",
		AgentRPS:          5,
		Workers:           8,
		FetchLimit:        100,
		BatchLimit:        200,
		CacheTTLSeconds:   900,
		PositiveThreshold: 0.2,
		NegativeThreshold: -0.2,
		CriterionKeywords: map[string][]string{
			"SUSTAINABILITY": {
				"sostenible", "sostenibilidad", "ecológico", "reciclaje",
				"energía solar", "medio ambiente", "productos locales",
			},
			"QUALITY": {
				"limpio", "limpieza", "cómodo", "servicio", "atención",
				"desayuno", "habitación", "instalaciones",
			},
		},
	}
}

// Load layers configuration: built-in defaults, then the YAML file named by
// STAYSCORE_CONFIG (if any), then STAYSCORE_-prefixed environment variables
// (STAYSCORE_HTTP_ADDR -> http_addr).
func Load() Config {
	k := koanf.New(".")

	if path := os.Getenv("STAYSCORE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("config file not loaded")
		}
	}

	if err := k.Load(env.Provider("STAYSCORE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "STAYSCORE_"))
	}), nil); err != nil {
		log.Warn().Err(err).Msg("env config not loaded")
	}

	c := defaults()
	if err := k.Unmarshal("", &c); err != nil {
		log.Warn().Err(err).Msg("config unmarshal failed, using defaults")
		return defaults()
	}
	if c.AgentKey == "" {
		log.Warn().Msg("STAYSCORE_AGENT_API_KEY is empty")
	}
	return c
}
