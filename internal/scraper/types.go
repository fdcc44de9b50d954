package scraper

import (
	"context"
	"fmt"

	"jmorrell/tyrescraper/pkg/errors"
)

// Source identifies the retailer website an observation came from
type Source string

const (
	SourceDexel    Source = "Dexel"
	SourceNational Source = "National"
)

// TyreSize is a (width, aspect ratio, rim diameter) search triple.
// It is supplied by the caller and never mutated.
type TyreSize struct {
	Width       int // mm
	AspectRatio int // percent
	RimDiameter int // inches
}

// String renders the conventional notation, e.g. "205/55 R16"
func (t TyreSize) String() string {
	return fmt.Sprintf("%d/%d R%d", t.Width, t.AspectRatio, t.RimDiameter)
}

// Slug renders the dash-joined form used in search URLs, e.g. "205-55-16"
func (t TyreSize) Slug() string {
	return fmt.Sprintf("%d-%d-%d", t.Width, t.AspectRatio, t.RimDiameter)
}

// Observation is one recorded tyre listing. Pattern and Season default to
// "unknown" when the source does not expose them; Brand, Size and Price are
// required, a missing one is an extraction failure rather than a partial record.
type Observation struct {
	Source  Source
	Brand   string
	Pattern string
	Size    string // free-form, may include load/speed index
	Season  string
	Price   string // currency-formatted, source-native
}

// Validate checks the required-field invariant
func (o Observation) Validate() error {
	if o.Brand == "" {
		return errors.NewExtraction(string(o.Source), "observation has empty brand", nil)
	}
	if o.Size == "" {
		return errors.NewExtraction(string(o.Source), "observation has empty size", nil)
	}
	if o.Price == "" {
		return errors.NewExtraction(string(o.Source), "observation has empty price", nil)
	}
	return nil
}

// Sink receives each observation as it is extracted. Implementations append
// only; they never deduplicate or update.
type Sink interface {
	Record(obs Observation) error
}

// Scraper is the contract for a site engine. A run proceeds to natural
// completion or aborts on the first unhandled failure; failed
// (branch/postcode, size) pairs are simply absent from the output.
type Scraper interface {
	Scrape(ctx context.Context, sizes []TyreSize) error
	Name() string
}
