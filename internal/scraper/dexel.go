package scraper

import (
	"context"
	goerrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jmorrell/tyrescraper/internal/browser"
	"jmorrell/tyrescraper/logger"
	"jmorrell/tyrescraper/pkg/errors"
)

// Dexel selectors. The size search is dropdown-driven; results are filtered
// per branch and paginated.
const (
	dexelSizeSearchLink  = "Search by Tyre Size."
	dexelSearchButton    = "Search"
	dexelBranchButton    = "Select This Branch"
	dexelWidthSelect     = "select.width_list"
	dexelProfileSelect   = "select.profile_list"
	dexelRimSelect       = "select.size_list"
	dexelPaginationDiv   = "div.custom-pagination"
	dexelProductCard     = "div.tkf-product"
	dexelCardInfoDiv     = "div.detailArea.tf-title-tooltip-box"
	dexelCardSizeText    = "p.para-text"
	dexelCardSeasonIcon  = "div.tyre-icons i"
	dexelCardPricesBox   = "div.box"
	dexelJumpToLastLabel = "Last"
)

// DexelConfig holds the site URL and the wait policy for its asynchronous
// dropdown refreshes and branch-filtered result loads.
type DexelConfig struct {
	URL            string
	DropdownSettle time.Duration
	BranchSettle   time.Duration
}

// DexelScraper drives the dropdown-based size search, enumerates branches via
// a probe session, then scrapes every (branch, size) pair in a fresh session.
type DexelScraper struct {
	browser browser.Browser
	sink    Sink
	cfg     DexelConfig
	metrics *Metrics
	log     *logger.Logger
}

// NewDexelScraper creates the Dexel branch-search engine.
func NewDexelScraper(b browser.Browser, sink Sink, cfg DexelConfig, metrics *Metrics) *DexelScraper {
	return &DexelScraper{
		browser: b,
		sink:    sink,
		cfg:     cfg,
		metrics: metrics,
		log:     logger.ForScraper(string(SourceDexel)),
	}
}

// Name returns the engine name for logging
func (d *DexelScraper) Name() string {
	return string(SourceDexel)
}

// Scrape probes the branch count once with the first size query, then runs
// every (branch, size) pair to completion. A failed pair is logged and
// skipped; it is simply absent from the output.
func (d *DexelScraper) Scrape(ctx context.Context, sizes []TyreSize) error {
	if len(sizes) == 0 {
		return nil
	}
	branchCount, err := d.probeBranchCount(ctx, sizes[0])
	if err != nil {
		return err
	}
	// The count from the first size query is assumed stable for the whole
	// run; the site gives no way to verify this per query.
	d.log.Info().Int("branches", branchCount).Msg("Branch probe complete")
	if branchCount == 0 {
		d.log.Warn().Msg("No branches found, nothing to scrape")
		return nil
	}

	for branch := 0; branch < branchCount; branch++ {
		for _, size := range sizes {
			if err := ctx.Err(); err != nil {
				return err
			}
			d.log.Info().
				Int("branch", branch).
				Str("size", size.String()).
				Msg("Scraping branch/size pair")
			if err := d.scrapePair(ctx, branch, size); err != nil {
				// Fatal to this pair only; the operator re-runs it
				// manually from the logged context.
				d.metrics.IncFailure(errors.TypeLabel(err))
				d.log.Error().Err(err).
					Int("branch", branch).
					Str("size", size.String()).
					Msg("Abandoning branch/size pair")
			}
		}
	}

	d.log.Info().Msg("Scraping complete")
	return nil
}

// probeBranchCount runs home -> size search in a disposable session and
// counts the branch-selector buttons. The branch list is renumbered per
// search context, so only the count survives the probe.
func (d *DexelScraper) probeBranchCount(ctx context.Context, size TyreSize) (int, error) {
	sess, err := d.browser.NewSession(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	if err := d.navToBranchPage(sess, size); err != nil {
		return 0, err
	}
	return sess.CountByText("button", dexelBranchButton)
}

// scrapePair opens a fresh session, re-resolves the branch by ordinal, and
// paginates through its results.
func (d *DexelScraper) scrapePair(ctx context.Context, branch int, size TyreSize) error {
	sess, err := d.browser.NewSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := d.navToBranchPage(sess, size); err != nil {
		return d.withPair(err, branch, size)
	}
	return d.withPair(d.scrapeBranch(sess, branch, size), branch, size)
}

// navToBranchPage walks NAV_HOME -> SIZE_SELECTED: opens the search entry
// point, sets the three dependent dropdowns with a settle delay after each
// (the next dropdown is populated asynchronously with no completion signal),
// and submits the search.
func (d *DexelScraper) navToBranchPage(sess browser.Session, size TyreSize) error {
	if err := sess.Navigate(d.cfg.URL); err != nil {
		return err
	}
	if err := sess.ClickByText("a", dexelSizeSearchLink, 0); err != nil {
		return err
	}
	sess.Sleep(d.cfg.DropdownSettle)

	dropdowns := []struct {
		selector string
		value    int
	}{
		{dexelWidthSelect, size.Width},
		{dexelProfileSelect, size.AspectRatio},
		{dexelRimSelect, size.RimDiameter},
	}
	for _, dd := range dropdowns {
		if err := sess.SelectOption(dd.selector, strconv.Itoa(dd.value)); err != nil {
			return err
		}
		sess.Sleep(d.cfg.DropdownSettle)
	}

	if err := sess.ClickByText("a", dexelSearchButton, 0); err != nil {
		return err
	}
	sess.Sleep(d.cfg.DropdownSettle)
	return nil
}

// scrapeBranch walks BRANCH_SELECTED -> PAGE_LOADED* -> DONE: selects the
// branch at the given ordinal and feeds every result page to the card parser,
// following the pagination footer until it signals the last page.
func (d *DexelScraper) scrapeBranch(sess browser.Session, branch int, size TyreSize) error {
	if err := sess.ClickByText("button", dexelBranchButton, branch); err != nil {
		return err
	}
	// The branch-filtered result set loads slowly and exposes no readiness
	// signal.
	sess.Sleep(d.cfg.BranchSettle)

	page := 1
	for {
		html, err := sess.HTML()
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return errors.NewExtraction(string(SourceDexel), "failed to parse result page", err)
		}

		if err := d.parseResultPage(doc); err != nil {
			return err
		}

		action := nextPageAction(doc.Find(dexelPaginationDiv))
		if action.Done {
			if action.Reason == paginationSinglePage {
				d.log.Info().
					Str("size", size.String()).
					Msg("Only one page for this search, possibly no matching tyres")
			}
			return nil
		}

		page++
		d.log.Info().
			Int("branch", branch).
			Int("page", page).
			Str("rule", action.Reason).
			Msg("Advancing to next result page")
		if err := sess.Click(dexelPaginationDiv+" a", action.ClickIndex); err != nil {
			return err
		}
		sess.Sleep(d.cfg.BranchSettle)
	}
}

// parseResultPage hands every product card on the page to the card parser.
// Any card failure is fatal to the current (branch, size) pair.
func (d *DexelScraper) parseResultPage(doc *goquery.Document) error {
	var parseErr error
	doc.Find(dexelProductCard).EachWithBreak(func(i int, s *goquery.Selection) bool {
		obs, err := parseDexelCard(s)
		if err != nil {
			parseErr = err
			return false
		}
		if err := d.sink.Record(obs); err != nil {
			parseErr = err
			return false
		}
		d.metrics.IncObservation(string(SourceDexel))
		return true
	})
	return parseErr
}

// parseDexelCard extracts one observation from a product card. Brand, size
// and price are card-fatal when missing; pattern and season default to
// "unknown".
func parseDexelCard(s *goquery.Selection) (Observation, error) {
	info := s.Find(dexelCardInfoDiv)

	brand, ok := info.Find(`input[name="brand"]`).Attr("value")
	brand = capitalize(brand)
	if !ok || brand == "" {
		return Observation{}, errors.NewExtraction(string(SourceDexel), "card has no brand input", nil)
	}

	pattern := "unknown"
	if raw, ok := info.Find(`input[name="pattern"]`).Attr("value"); ok && strings.TrimSpace(raw) != "" {
		pattern = capitalize(raw)
	}

	size, err := joinSizeTokens(s.Find(dexelCardSizeText).Text())
	if err != nil {
		return Observation{}, errors.NewExtraction(string(SourceDexel), "card has no usable size text", err)
	}

	season := "unknown"
	if raw, ok := s.Find(dexelCardSeasonIcon).Attr("title"); ok && strings.TrimSpace(raw) != "" {
		season = NormalizeSeason(capitalize(raw))
	}

	pricesRaw, ok := s.Find(dexelCardPricesBox).Attr("data-prices")
	if !ok {
		return Observation{}, errors.NewExtraction(string(SourceDexel), "card has no pricing payload", nil)
	}
	// The payload is keyed by pricing tiers; the minimum keeps results
	// comparable across runs.
	price, err := minimumPrice(pricesRaw)
	if err != nil {
		return Observation{}, errors.NewExtraction(string(SourceDexel), "card pricing payload unusable", err)
	}

	obs := Observation{
		Source:  SourceDexel,
		Brand:   brand,
		Pattern: pattern,
		Size:    size,
		Season:  season,
		Price:   price,
	}
	return obs, obs.Validate()
}

// Pagination rules, named so each is independently testable. The footer's
// link composition changes as the crawl approaches the last page; misreading
// it causes infinite looping or premature termination.
const (
	paginationSinglePage   = "single-page"
	paginationJumpPresent  = "jump-to-last-present"
	paginationActiveIsLast = "active-is-last"
	paginationNearEnd      = "near-end"
)

// pageAction is the decision for the current pagination footer: either DONE,
// or click the link at ClickIndex and stay in the page loop.
type pageAction struct {
	Done       bool
	ClickIndex int
	Reason     string
}

// nextPageAction reads the pagination footer and decides the next transition:
//  1. zero links: no further pages exist (also covers zero results).
//  2. the last link is a "jump to last page" affordance: the second-to-last
//     link is the real next-page link.
//  3. the active list item is the last item: this is the last page.
//  4. otherwise the jump affordance has disappeared because the crawl is near
//     the end, and the last link is the real next-page control.
func nextPageAction(footer *goquery.Selection) pageAction {
	links := footer.Find("a")
	n := links.Length()
	if n == 0 {
		return pageAction{Done: true, Reason: paginationSinglePage}
	}

	lastText := strings.TrimSpace(links.Eq(n - 1).Text())
	if strings.Contains(lastText, dexelJumpToLastLabel) {
		return pageAction{ClickIndex: n - 2, Reason: paginationJumpPresent}
	}

	items := footer.Find("li")
	if items.Length() > 0 && items.Eq(items.Length()-1).HasClass("active") {
		return pageAction{Done: true, Reason: paginationActiveIsLast}
	}

	return pageAction{ClickIndex: n - 1, Reason: paginationNearEnd}
}

// withPair stamps pair context onto engine errors.
func (d *DexelScraper) withPair(err error, branch int, size TyreSize) error {
	if err == nil {
		return nil
	}
	var se *errors.ScrapeError
	if goerrors.As(err, &se) {
		if se.Source == "" {
			se.Source = string(SourceDexel)
		}
		return se.WithBranch(branch).WithSize(size.String())
	}
	return errors.NewNavigation(string(SourceDexel), fmt.Sprintf("pair failed: %v", err), err).
		WithBranch(branch).WithSize(size.String())
}
