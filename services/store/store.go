// Package store persists observations to the append-only tyres table.
package store

import (
	"jmorrell/tyrescraper/internal/scraper"
)

// Store is the observation sink plus lifecycle. Implementations append only:
// no deduplication, no updates. Each Record commits independently, so a crash
// mid-run leaves a prefix of the intended rows persisted and the crawl is
// safely re-run from scratch.
type Store interface {
	scraper.Sink
	Close() error
}
