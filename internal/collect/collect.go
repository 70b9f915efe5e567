// Package collect gathers external data into the store: KRX daily prices,
// US daily bars via Alpaca, and news with keyword sentiment tagging.
package collect

import "context"

// Collector is the interface for all data collection jobs.
type Collector interface {
	// Name returns the collector identifier.
	Name() string
	// Run performs one collection pass. It returns when the pass completes
	// or ctx is cancelled.
	Run(ctx context.Context) error
}
