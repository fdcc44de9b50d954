package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"jmorrell/tyrescraper/logger"
	"jmorrell/tyrescraper/pkg/errors"
)

// RodBrowser is a rod-backed Browser. Each session is an incognito browser
// context, so cookies and selection state never carry across sessions.
type RodBrowser struct {
	browser *rod.Browser
	timeout time.Duration
	log     *logger.Logger
}

// Launch starts a managed browser instance.
func Launch(headless bool, timeout time.Duration) (*RodBrowser, error) {
	u, err := launcher.New().Headless(headless).Launch()
	if err != nil {
		return nil, errors.NewNavigation("", "failed to launch browser", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, errors.NewNavigation("", "failed to connect to browser", err)
	}

	log := logger.ForBrowser()
	log.Info().Bool("headless", headless).Msg("Browser launched")

	return &RodBrowser{browser: b, timeout: timeout, log: log}, nil
}

// NewSession creates an isolated incognito session.
func (b *RodBrowser) NewSession(ctx context.Context) (Session, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, errors.NewNavigation("", "failed to create incognito context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.NewNavigation("", "failed to open page", err)
	}
	return &rodSession{page: page.Context(ctx), timeout: b.timeout}, nil
}

// Close shuts the browser down.
func (b *RodBrowser) Close() error {
	return b.browser.Close()
}

type rodSession struct {
	page    *rod.Page
	timeout time.Duration
}

func (s *rodSession) Navigate(url string) error {
	p := s.page.Timeout(s.timeout)
	if err := p.Navigate(url); err != nil {
		return errors.NewNavigation("", fmt.Sprintf("failed to navigate to %s", url), err)
	}
	if err := p.WaitLoad(); err != nil {
		return errors.NewNavigation("", fmt.Sprintf("load never completed for %s", url), err)
	}
	return nil
}

func (s *rodSession) ClickByText(selector, text string, nth int) error {
	el, err := s.findByText(selector, text, nth)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errors.NewNavigation("", fmt.Sprintf("failed to click %q #%d", text, nth), err)
	}
	return nil
}

func (s *rodSession) CountByText(selector, text string) (int, error) {
	els, err := s.page.Timeout(s.timeout).Elements(selector)
	if err != nil {
		return 0, errors.NewNavigation("", fmt.Sprintf("failed to query %q", selector), err)
	}
	count := 0
	for _, el := range els {
		t, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(strings.TrimSpace(t), strings.TrimSpace(text)) {
			count++
		}
	}
	return count, nil
}

func (s *rodSession) SelectOption(selector, value string) error {
	// The site's styled dropdowns swallow native clicks, so the value is set
	// directly and a bubbling change event fired to trigger the dependent
	// option refresh.
	js := `(selector, value) => {
		const el = document.querySelector(selector);
		if (!el) throw new Error('no element matches ' + selector);
		el.value = value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}`
	if _, err := s.page.Timeout(s.timeout).Eval(js, selector, value); err != nil {
		return errors.NewNavigation("", fmt.Sprintf("failed to select %q on %q", value, selector), err)
	}
	return nil
}

func (s *rodSession) Click(selector string, nth int) error {
	els, err := s.page.Timeout(s.timeout).Elements(selector)
	if err != nil {
		return errors.NewNavigation("", fmt.Sprintf("failed to query %q", selector), err)
	}
	if nth < 0 || nth >= len(els) {
		return errors.NewNavigation("", fmt.Sprintf("no element %q #%d (found %d)", selector, nth, len(els)), nil)
	}
	if err := els[nth].Click(proto.InputMouseButtonLeft, 1); err != nil {
		return errors.NewNavigation("", fmt.Sprintf("failed to click %q #%d", selector, nth), err)
	}
	return nil
}

func (s *rodSession) HTML() (string, error) {
	html, err := s.page.Timeout(s.timeout).HTML()
	if err != nil {
		return "", errors.NewNavigation("", "failed to read page markup", err)
	}
	return html, nil
}

func (s *rodSession) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (s *rodSession) Close() error {
	return s.page.Close()
}

func (s *rodSession) findByText(selector, text string, nth int) (*rod.Element, error) {
	els, err := s.page.Timeout(s.timeout).Elements(selector)
	if err != nil {
		return nil, errors.NewNavigation("", fmt.Sprintf("failed to query %q", selector), err)
	}
	idx := 0
	for _, el := range els {
		t, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(strings.TrimSpace(t), strings.TrimSpace(text)) {
			if idx == nth {
				return el, nil
			}
			idx++
		}
	}
	return nil, errors.NewNavigation("", fmt.Sprintf("no element %q with text %q #%d", selector, text, nth), nil)
}
