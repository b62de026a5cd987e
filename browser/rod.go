package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/manjikama/shoob.scraper/config"
)

// stealthScript hides the usual automation fingerprints before any page
// script runs.
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});
	delete window.cdc_adoQpoasnfa76pfcZLmcfl_Array;
	delete window.cdc_adoQpoasnfa76pfcZLmcfl_Promise;
	delete window.cdc_adoQpoasnfa76pfcZLmcfl_Symbol;
	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5]
	});
`

// RodSession implements Session on a rod-controlled headless Chromium. One
// browser tab is reused for every navigation in the run.
type RodSession struct {
	browser    *rod.Browser
	page       *rod.Page
	settleTime time.Duration
}

// NewRodSession launches the browser and prepares the shared tab.
func NewRodSession(cfg *config.Config) (*RodSession, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-web-security")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		b.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent: cfg.UserAgent,
	}).Call(page); err != nil {
		b.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if _, err := page.SetExtraHeaders([]string{
		"Accept-Language", "en-US,en;q=0.9",
		"Upgrade-Insecure-Requests", "1",
	}); err != nil {
		b.Close()
		return nil, fmt.Errorf("set headers: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		b.Close()
		return nil, fmt.Errorf("install stealth script: %w", err)
	}

	return &RodSession{
		browser:    b,
		page:       page,
		settleTime: cfg.SettleTime,
	}, nil
}

// Navigate implements Session.
func (s *RodSession) Navigate(ctx context.Context, url string, cond WaitCondition, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	if cond == WaitNetworkIdle {
		if err := page.WaitStable(s.settleTime); err != nil {
			return fmt.Errorf("wait stable %s: %w", url, err)
		}
	}
	return nil
}

// WaitForElement implements Session.
func (s *RodSession) WaitForElement(selector string, timeout time.Duration) bool {
	_, err := s.page.Timeout(timeout).Element(selector)
	return err == nil
}

// CountElements implements Session.
func (s *RodSession) CountElements(selector string) int {
	elements, err := s.page.Elements(selector)
	if err != nil {
		return 0
	}
	return len(elements)
}

// AttributeAll implements Session.
func (s *RodSession) AttributeAll(selector, attr string) []string {
	elements, err := s.page.Elements(selector)
	if err != nil {
		return nil
	}

	values := make([]string, 0, len(elements))
	for _, element := range elements {
		value, err := element.Attribute(attr)
		if err != nil || value == nil {
			continue
		}
		values = append(values, *value)
	}
	return values
}

// Evaluate implements Session.
func (s *RodSession) Evaluate(script string) (map[string]string, error) {
	result, err := s.page.Eval(script)
	if err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}

	out := make(map[string]string)
	for key, value := range result.Value.Map() {
		out[key] = value.Str()
	}
	return out, nil
}

// HTML implements Session.
func (s *RodSession) HTML() (string, error) {
	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("read page markup: %w", err)
	}
	return html, nil
}

// Close releases the tab and the browser process.
func (s *RodSession) Close() error {
	if s.page != nil {
		s.page.Close()
	}
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
