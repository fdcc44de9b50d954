package scraper

import (
	"context"
	"fmt"
	"time"

	"jmorrell/tyrescraper/internal/browser"
)

// mockSink collects observations in memory for testing
type mockSink struct {
	observations []Observation
	recordErr    error
}

func (m *mockSink) Record(obs Observation) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.observations = append(m.observations, obs)
	return nil
}

// fakeSession is a scripted browser session. HTML() returns the page at the
// current index; Click on the pagination advances to the next page.
type fakeSession struct {
	pages       []string
	pageIdx     int
	branchCount int

	navigations []string
	selections  []string
	textClicks  []string
	clicks      []string
	closed      bool
}

var _ browser.Session = (*fakeSession)(nil)

func (s *fakeSession) Navigate(url string) error {
	s.navigations = append(s.navigations, url)
	return nil
}

func (s *fakeSession) ClickByText(selector, text string, nth int) error {
	s.textClicks = append(s.textClicks, fmt.Sprintf("%s:%s#%d", selector, text, nth))
	return nil
}

func (s *fakeSession) CountByText(selector, text string) (int, error) {
	return s.branchCount, nil
}

func (s *fakeSession) SelectOption(selector, value string) error {
	s.selections = append(s.selections, selector+"="+value)
	return nil
}

func (s *fakeSession) Click(selector string, nth int) error {
	s.clicks = append(s.clicks, fmt.Sprintf("%s#%d", selector, nth))
	if s.pageIdx < len(s.pages)-1 {
		s.pageIdx++
	}
	return nil
}

func (s *fakeSession) HTML() (string, error) {
	if len(s.pages) == 0 {
		return "<html><body></body></html>", nil
	}
	return s.pages[s.pageIdx], nil
}

func (s *fakeSession) Sleep(d time.Duration) {}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

// fakeBrowser hands out a fresh scripted session per call
type fakeBrowser struct {
	newSession func() *fakeSession
	created    []*fakeSession
}

var _ browser.Browser = (*fakeBrowser)(nil)

func (b *fakeBrowser) NewSession(ctx context.Context) (browser.Session, error) {
	s := b.newSession()
	b.created = append(b.created, s)
	return s, nil
}

func (b *fakeBrowser) Close() error {
	return nil
}
