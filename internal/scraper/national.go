package scraper

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jmorrell/tyrescraper/logger"
	"jmorrell/tyrescraper/pkg/errors"
)

// National selectors. Search is URL-templated per (postcode, size); every
// result page is assumed to show all matches, so no pagination is modeled.
const (
	nationalBranchLinks  = `a[id*="hypBranchName"]`
	nationalPostcodeSpan = `span[itemprop="postalCode"]`
	nationalTyreCards    = `div[id*="TyreResults_rptTyres_divTyre_"]`
	nationalPatternLink  = `a[id*="hypPattern"]`
)

// NationalConfig holds the branch directory URL, the search URL template base
// and the postcode artifact location.
type NationalConfig struct {
	BranchesURL   string
	SearchURL     string
	PostcodesPath string
	// ReusePostcodes loads the artifact from PostcodesPath instead of
	// re-discovering it. An explicit escape hatch, not automatic caching.
	ReusePostcodes bool
}

// NationalScraper discovers branch postcodes from the branch directory, then
// fetches a templated search URL for every (postcode, size) pair.
type NationalScraper struct {
	fetcher *RateLimitedFetcher
	sink    Sink
	cfg     NationalConfig
	metrics *Metrics
	log     *logger.Logger
}

// NewNationalScraper creates the National geo-search engine.
func NewNationalScraper(fetcher *RateLimitedFetcher, sink Sink, cfg NationalConfig, metrics *Metrics) *NationalScraper {
	return &NationalScraper{
		fetcher: fetcher,
		sink:    sink,
		cfg:     cfg,
		metrics: metrics,
		log:     logger.ForScraper(string(SourceNational)),
	}
}

// Name returns the engine name for logging
func (n *NationalScraper) Name() string {
	return string(SourceNational)
}

// Scrape runs postcode discovery (or loads the artifact) and then the
// extraction phase. Fetch failures abort the run; extraction failures are
// fatal only to the current (postcode, size) pair.
func (n *NationalScraper) Scrape(ctx context.Context, sizes []TyreSize) error {
	var postcodes []string
	var err error

	if n.cfg.ReusePostcodes {
		postcodes, err = loadPostcodes(n.cfg.PostcodesPath)
		if err != nil {
			return err
		}
		n.log.Info().
			Int("count", len(postcodes)).
			Str("path", n.cfg.PostcodesPath).
			Msg("Loaded postcode artifact, skipping discovery")
	} else {
		postcodes, err = n.DiscoverPostcodes(ctx)
		if err != nil {
			return err
		}
		if err := savePostcodes(n.cfg.PostcodesPath, postcodes); err != nil {
			return err
		}
	}

	return n.extract(ctx, sizes, postcodes)
}

// DiscoverPostcodes fetches the branch directory, follows every branch detail
// link and extracts its postcode. Duplicates collapse; order is irrelevant
// but sorted for a deterministic artifact.
func (n *NationalScraper) DiscoverPostcodes(ctx context.Context) ([]string, error) {
	n.log.Info().Msg("Starting postcode discovery")

	dirDoc, err := n.fetcher.Fetch(SourceNational, n.cfg.BranchesURL)
	if err != nil {
		return nil, err
	}

	root, err := siteRoot(n.cfg.BranchesURL)
	if err != nil {
		return nil, err
	}

	var branchURLs []string
	dirDoc.Find(nationalBranchLinks).Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			branchURLs = append(branchURLs, root+"/"+strings.TrimPrefix(strings.TrimSpace(href), "/"))
		}
	})
	if len(branchURLs) == 0 {
		return nil, errors.NewExtraction(string(SourceNational), "branch directory has no branch links", nil)
	}

	seen := make(map[string]struct{})
	for _, branchURL := range branchURLs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		branchDoc, err := n.fetcher.Fetch(SourceNational, branchURL)
		if err != nil {
			return nil, err
		}
		postcode := strings.TrimSpace(branchDoc.Find(nationalPostcodeSpan).First().Text())
		postcode = strings.ReplaceAll(postcode, " ", "")
		if postcode == "" {
			e := errors.NewExtraction(string(SourceNational), "branch page has no postcode", nil)
			e.URL = branchURL
			return nil, e
		}
		seen[postcode] = struct{}{}
	}

	postcodes := make([]string, 0, len(seen))
	for pc := range seen {
		postcodes = append(postcodes, pc)
	}
	sort.Strings(postcodes)

	n.log.Info().
		Int("branches", len(branchURLs)).
		Int("postcodes", len(postcodes)).
		Msg("Postcode discovery complete")
	return postcodes, nil
}

// extract fetches the templated search URL for every (postcode, size) pair
// and records each result card.
func (n *NationalScraper) extract(ctx context.Context, sizes []TyreSize, postcodes []string) error {
	for _, postcode := range postcodes {
		n.log.Info().Str("postcode", postcode).Msg("Scraping postcode")
		for _, size := range sizes {
			if err := ctx.Err(); err != nil {
				return err
			}
			n.log.Info().
				Str("postcode", postcode).
				Str("size", size.String()).
				Msg("Scraping postcode/size pair")
			if err := n.scrapePair(size, postcode); err != nil {
				if errors.IsType(err, errors.ErrorTypeFetch) {
					return err
				}
				// Extraction failures abandon this pair only.
				n.metrics.IncFailure(errors.TypeLabel(err))
				n.log.Error().Err(err).
					Str("postcode", postcode).
					Str("size", size.String()).
					Msg("Abandoning postcode/size pair")
			}
		}
	}
	n.log.Info().Msg("Scraping complete")
	return nil
}

func (n *NationalScraper) scrapePair(size TyreSize, postcode string) error {
	searchURL := fmt.Sprintf("%s/%s?pc=%s", strings.TrimSuffix(n.cfg.SearchURL, "/"), size.Slug(), postcode)
	doc, err := n.fetcher.Fetch(SourceNational, searchURL)
	if err != nil {
		return err
	}

	var parseErr error
	doc.Find(nationalTyreCards).EachWithBreak(func(i int, s *goquery.Selection) bool {
		obs, err := parseNationalCard(s)
		if err != nil {
			parseErr = err
			return false
		}
		if err := n.sink.Record(obs); err != nil {
			parseErr = err
			return false
		}
		n.metrics.IncObservation(string(SourceNational))
		return true
	})
	return n.withPair(parseErr, postcode, size)
}

// parseNationalCard extracts one observation from a result card.
// Brand/season/price come from data attributes, the pattern from its link
// text, and the size from the text of the sibling immediately following the
// pattern link's paragraph; that order dependency in the markup is relied on
// deliberately.
func parseNationalCard(s *goquery.Selection) (Observation, error) {
	brand, ok := s.Attr("data-brand")
	brand = strings.TrimSpace(brand)
	if !ok || brand == "" {
		return Observation{}, errors.NewExtraction(string(SourceNational), "card has no data-brand", nil)
	}

	patternLink := s.Find(nationalPatternLink).First()
	if patternLink.Length() == 0 {
		return Observation{}, errors.NewExtraction(string(SourceNational), "card has no pattern link", nil)
	}

	sizeText := patternLink.ParentsFiltered("p").First().NextAllFiltered("p").First().Text()
	size := strings.TrimSpace(sizeText)
	if size == "" {
		return Observation{}, errors.NewExtraction(string(SourceNational), "card has no size paragraph", nil)
	}

	pattern := strings.TrimSpace(patternLink.Text())
	if pattern == "" {
		pattern = "unknown"
	}

	season := "unknown"
	if raw, ok := s.Attr("data-tyre-season"); ok && strings.TrimSpace(raw) != "" {
		season = NormalizeSeason(raw)
	}

	price, ok := s.Attr("data-price")
	price = strings.TrimSpace(price)
	if !ok || price == "" {
		return Observation{}, errors.NewExtraction(string(SourceNational), "card has no data-price", nil)
	}

	obs := Observation{
		Source:  SourceNational,
		Brand:   brand,
		Pattern: pattern,
		Size:    size, // load/speed index stays in, e.g. "205/55 R16 91V"
		Season:  season,
		Price:   price,
	}
	return obs, obs.Validate()
}

// loadPostcodes reads the flat postcode artifact.
func loadPostcodes(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("failed to read postcode artifact %s", path), err)
	}
	var postcodes []string
	if err := json.Unmarshal(data, &postcodes); err != nil {
		return nil, errors.NewConfiguration(fmt.Sprintf("malformed postcode artifact %s", path), err)
	}
	return postcodes, nil
}

// savePostcodes writes the flat postcode artifact for reuse by later runs.
func savePostcodes(path string, postcodes []string) error {
	data, err := json.Marshal(postcodes)
	if err != nil {
		return errors.NewStore("failed to encode postcode artifact", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewStore(fmt.Sprintf("failed to write postcode artifact %s", path), err)
	}
	return nil
}

// siteRoot reduces a URL to scheme://host for building branch detail URLs.
func siteRoot(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.NewConfiguration(fmt.Sprintf("invalid branches URL %q", raw), err)
	}
	return u.Scheme + "://" + u.Host, nil
}

// withPair stamps pair context onto engine errors.
func (n *NationalScraper) withPair(err error, postcode string, size TyreSize) error {
	if err == nil {
		return nil
	}
	var se *errors.ScrapeError
	if goerrors.As(err, &se) {
		if se.Source == "" {
			se.Source = string(SourceNational)
		}
		return se.WithPostcode(postcode).WithSize(size.String())
	}
	return errors.NewExtraction(string(SourceNational), fmt.Sprintf("pair failed: %v", err), err).
		WithPostcode(postcode).WithSize(size.String())
}
