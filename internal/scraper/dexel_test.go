package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func footerFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("div.custom-pagination")
}

func TestNextPageActionSinglePage(t *testing.T) {
	footer := footerFrom(t, `<div class="custom-pagination"></div>`)
	action := nextPageAction(footer)
	assert.True(t, action.Done)
	assert.Equal(t, paginationSinglePage, action.Reason)
}

func TestNextPageActionJumpToLastPresent(t *testing.T) {
	footer := footerFrom(t, `<div class="custom-pagination">
		<ul>
			<li class="active"><a>1</a></li>
			<li><a>2</a></li>
			<li><a>3</a></li>
			<li><a>Next</a></li>
			<li><a>Last &gt;</a></li>
		</ul>
	</div>`)
	action := nextPageAction(footer)
	assert.False(t, action.Done)
	// Second-to-last link is the real next-page link
	assert.Equal(t, 3, action.ClickIndex)
	assert.Equal(t, paginationJumpPresent, action.Reason)
}

func TestNextPageActionActiveIsLast(t *testing.T) {
	footer := footerFrom(t, `<div class="custom-pagination">
		<ul>
			<li><a>4</a></li>
			<li><a>5</a></li>
			<li class="active"><a>6</a></li>
		</ul>
	</div>`)
	action := nextPageAction(footer)
	assert.True(t, action.Done)
	assert.Equal(t, paginationActiveIsLast, action.Reason)
}

func TestNextPageActionNearEnd(t *testing.T) {
	footer := footerFrom(t, `<div class="custom-pagination">
		<ul>
			<li><a>4</a></li>
			<li class="active"><a>5</a></li>
			<li><a>6</a></li>
		</ul>
	</div>`)
	action := nextPageAction(footer)
	assert.False(t, action.Done)
	// The jump affordance has disappeared, the last link is the next page
	assert.Equal(t, 2, action.ClickIndex)
	assert.Equal(t, paginationNearEnd, action.Reason)
}

const dexelCardMichelin = `
<div class="tkf-product">
	<div class="detailArea tf-title-tooltip-box">
		<input name="brand" value="MICHELIN"/>
		<input name="pattern" value="primacy 4"/>
	</div>
	<p class="para-text">205/55 R16 91V</p>
	<div class="tyre-icons"><i title="Summer"></i></div>
	<div class="box" data-prices='{"minimum_price": "84.99", "web_price": "95.00"}'></div>
</div>`

const dexelCardAvon = `
<div class="tkf-product">
	<div class="detailArea tf-title-tooltip-box">
		<input name="brand" value="avon"/>
		<input name="pattern" value="ZV7"/>
	</div>
	<p class="para-text">205/55 R16 94W XL</p>
	<div class="tyre-icons"><i title="Winter"></i></div>
	<div class="box" data-prices='{"minimum_price": "61.50"}'></div>
</div>`

func cardSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("div.tkf-product")
}

func TestParseDexelCard(t *testing.T) {
	obs, err := parseDexelCard(cardSelection(t, dexelCardMichelin))
	assert.NoError(t, err)
	assert.Equal(t, SourceDexel, obs.Source)
	assert.Equal(t, "Michelin", obs.Brand)
	assert.Equal(t, "Primacy 4", obs.Pattern)
	assert.Equal(t, "205/55 R16", obs.Size)
	assert.Equal(t, "Summer", obs.Season)
	assert.Equal(t, "84.99", obs.Price)
}

func TestParseDexelCardDefaultsPatternAndSeason(t *testing.T) {
	obs, err := parseDexelCard(cardSelection(t, `
	<div class="tkf-product">
		<div class="detailArea tf-title-tooltip-box">
			<input name="brand" value="pirelli"/>
		</div>
		<p class="para-text">225/50 R16 92Y</p>
		<div class="box" data-prices='{"minimum_price": "110.00"}'></div>
	</div>`))
	assert.NoError(t, err)
	assert.Equal(t, "unknown", obs.Pattern)
	assert.Equal(t, "unknown", obs.Season)
}

func TestParseDexelCardMissingRequiredFields(t *testing.T) {
	// No brand input
	_, err := parseDexelCard(cardSelection(t, `
	<div class="tkf-product">
		<div class="detailArea tf-title-tooltip-box"></div>
		<p class="para-text">205/55 R16 91V</p>
		<div class="box" data-prices='{"minimum_price": "84.99"}'></div>
	</div>`))
	assert.Error(t, err)

	// No pricing payload
	_, err = parseDexelCard(cardSelection(t, `
	<div class="tkf-product">
		<div class="detailArea tf-title-tooltip-box">
			<input name="brand" value="MICHELIN"/>
		</div>
		<p class="para-text">205/55 R16 91V</p>
	</div>`))
	assert.Error(t, err)
}

func resultPage(cards string, footer string) string {
	return "<html><body>" + cards + `<div class="custom-pagination">` + footer + "</div></body></html>"
}

func TestDexelScrapeSingleBranchSinglePage(t *testing.T) {
	b := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{
			branchCount: 1,
			pages:       []string{resultPage(dexelCardMichelin+dexelCardAvon, "")},
		}
	}}
	sink := &mockSink{}
	d := NewDexelScraper(b, sink, DexelConfig{URL: "http://dexel.test/"}, nil)

	err := d.Scrape(context.Background(), []TyreSize{{Width: 205, AspectRatio: 55, RimDiameter: 16}})
	assert.NoError(t, err)

	// One probe session plus one pair session
	require.Len(t, b.created, 2)
	assert.True(t, b.created[1].closed)

	require.Len(t, sink.observations, 2)
	for _, obs := range sink.observations {
		assert.Equal(t, SourceDexel, obs.Source)
	}
	assert.Equal(t, "205/55 R16", sink.observations[0].Size)
	assert.Equal(t, "Michelin", sink.observations[0].Brand)
	assert.Equal(t, "Avon", sink.observations[1].Brand)

	// The pair session walked the search flow before selecting the branch
	pair := b.created[1]
	assert.Equal(t, []string{"http://dexel.test/"}, pair.navigations)
	assert.Equal(t, []string{
		"select.width_list=205",
		"select.profile_list=55",
		"select.size_list=16",
	}, pair.selections)
}

func TestDexelScrapePaginatesToLastPage(t *testing.T) {
	firstPage := resultPage(dexelCardMichelin, `
		<ul>
			<li class="active"><a>1</a></li>
			<li><a>2</a></li>
			<li><a>Next</a></li>
			<li><a>Last &gt;</a></li>
		</ul>`)
	lastPage := resultPage(dexelCardAvon, `
		<ul>
			<li><a>1</a></li>
			<li class="active"><a>2</a></li>
		</ul>`)

	b := &fakeBrowser{newSession: func() *fakeSession {
		return &fakeSession{branchCount: 1, pages: []string{firstPage, lastPage}}
	}}
	sink := &mockSink{}
	d := NewDexelScraper(b, sink, DexelConfig{URL: "http://dexel.test/"}, nil)

	err := d.Scrape(context.Background(), []TyreSize{{Width: 205, AspectRatio: 55, RimDiameter: 16}})
	assert.NoError(t, err)

	// Both pages parsed, one pagination click at the second-to-last link
	require.Len(t, sink.observations, 2)
	assert.Equal(t, "Michelin", sink.observations[0].Brand)
	assert.Equal(t, "Avon", sink.observations[1].Brand)

	pair := b.created[1]
	assert.Equal(t, []string{"div.custom-pagination a#2"}, pair.clicks)
}

func TestDexelScrapeSkipsFailedPair(t *testing.T) {
	brokenCard := `
	<div class="tkf-product">
		<p class="para-text">205/55 R16 91V</p>
	</div>`

	calls := 0
	b := &fakeBrowser{newSession: func() *fakeSession {
		calls++
		// Probe session, then a broken pair, then a healthy pair
		page := resultPage(brokenCard, "")
		if calls == 3 {
			page = resultPage(dexelCardMichelin, "")
		}
		return &fakeSession{branchCount: 2, pages: []string{page}}
	}}
	sink := &mockSink{}
	d := NewDexelScraper(b, sink, DexelConfig{URL: "http://dexel.test/"}, nil)

	err := d.Scrape(context.Background(), []TyreSize{{Width: 205, AspectRatio: 55, RimDiameter: 16}})
	assert.NoError(t, err, "a failed pair must not abort the run")
	require.Len(t, sink.observations, 1)
	assert.Equal(t, "Michelin", sink.observations[0].Brand)
}
