package store

import (
	"time"

	"echokit/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled    bool
	URL        string
	ClientName string
	ClientTag  string
}

// ConfigFromEnv reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* under root
// a backend whose ENABLED flag is true must also carry DBURL
func ConfigFromEnv(root config.Conf, appName string) Config {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	cfg := Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        pgCfg.MayBool("ENABLED", false),
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			ClientName: appName,
			ClientTag:  "api",
		},
	}
	if cfg.PG.Enabled {
		cfg.PG.URL = pgCfg.MustString("DBURL")
	}
	if cfg.CH.Enabled {
		cfg.CH.URL = chCfg.MustString("DBURL")
	}
	return cfg
}
