package modkit

import (
	"github.com/prometheus/client_golang/prometheus"

	"timeline/internal/modkit/repokit"
	"timeline/internal/platform/config"
	"timeline/internal/platform/logger"
)

// Deps holds core dependencies passed to modules. PG and Metrics may be nil
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	Metrics prometheus.Registerer
}
