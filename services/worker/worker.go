// Package worker drives the enabled site scrapers to completion.
package worker

import (
	"context"
	"errors"
	"time"

	"jmorrell/tyrescraper/internal/scraper"
	"jmorrell/tyrescraper/logger"
)

// Worker runs the scrapers strictly sequentially over the configured sizes.
// Sequential execution is per-site request etiquette, not a simplification.
type Worker struct {
	ctx      context.Context
	scrapers []scraper.Scraper
	sizes    []scraper.TyreSize
	log      *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, scrapers []scraper.Scraper, sizes []scraper.TyreSize) *Worker {
	return &Worker{
		ctx:      ctx,
		scrapers: scrapers,
		sizes:    sizes,
		log:      logger.ForWorker(),
	}
}

// Run executes each scraper once. A failed scraper is logged and the next one
// still runs; the joined errors are returned for the exit status.
func (w *Worker) Run() error {
	var errs []error
	for _, s := range w.scrapers {
		if err := w.ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		w.log.Info().Str("scraper", s.Name()).Msg("Starting scraper")

		if err := s.Scrape(w.ctx, w.sizes); err != nil {
			w.log.Error().Err(err).Str("scraper", s.Name()).Msg("Scraper failed")
			errs = append(errs, err)
			continue
		}

		w.log.Info().
			Str("scraper", s.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("Scraper finished")
	}
	return errors.Join(errs...)
}
