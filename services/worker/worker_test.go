package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"jmorrell/tyrescraper/internal/scraper"
)

// MockScraper implements the scraper.Scraper interface for testing
type MockScraper struct {
	name      string
	scrapeErr error
	runLog    *[]string
}

var _ scraper.Scraper = (*MockScraper)(nil)

func (m *MockScraper) Scrape(ctx context.Context, sizes []scraper.TyreSize) error {
	*m.runLog = append(*m.runLog, m.name)
	return m.scrapeErr
}

func (m *MockScraper) Name() string {
	return m.name
}

func TestWorkerRunsScrapersSequentially(t *testing.T) {
	var runLog []string
	sizes := []scraper.TyreSize{{Width: 205, AspectRatio: 55, RimDiameter: 16}}

	w := NewWorker(context.Background(), []scraper.Scraper{
		&MockScraper{name: "Dexel", runLog: &runLog},
		&MockScraper{name: "National", runLog: &runLog},
	}, sizes)

	assert.NoError(t, w.Run())
	assert.Equal(t, []string{"Dexel", "National"}, runLog)
}

func TestWorkerContinuesPastFailingScraper(t *testing.T) {
	var runLog []string
	boom := errors.New("engine aborted")

	w := NewWorker(context.Background(), []scraper.Scraper{
		&MockScraper{name: "Dexel", scrapeErr: boom, runLog: &runLog},
		&MockScraper{name: "National", runLog: &runLog},
	}, nil)

	err := w.Run()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Dexel", "National"}, runLog, "a failing scraper must not stop the next one")
}

func TestWorkerStopsOnCancelledContext(t *testing.T) {
	var runLog []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWorker(ctx, []scraper.Scraper{
		&MockScraper{name: "Dexel", runLog: &runLog},
	}, nil)

	assert.Error(t, w.Run())
	assert.Empty(t, runLog)
}
