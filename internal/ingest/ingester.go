package ingest

import "github.com/yishak-cs/bundle-miner/pkg/logger"

// Ingester prepares engine inputs from decoded tables and logs per-table outcomes.
type Ingester struct {
	log *logger.Logger
}

func NewIngester(log *logger.Logger) *Ingester {
	return &Ingester{log: logger.OrNop(log).With("component", "Ingester")}
}
