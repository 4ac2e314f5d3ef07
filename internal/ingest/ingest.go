// Package ingest pulls daily bars from the Alpaca market-data API into the
// Parquet store and precomputes the indicator files the simulator reads.
package ingest

import (
	"context"
	"time"
)

// Gatherer is the interface for all data ingestion processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes one ingestion pass. It returns when done or when ctx is
	// cancelled.
	Run(ctx context.Context) error
}

// DateRange is the span a gatherer fetches.
type DateRange struct {
	Start time.Time
	End   time.Time
}
