// Package modkit provides module wiring and core deps
package modkit

import (
	"echokit/internal/platform/config"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
	"echokit/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the backend is disabled
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      store.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Metrics
}
