package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	navigationTimeoutMs = 30000
	textTimeoutMs       = 2000
)

// PlaywrightOptions configures the Chromium launch.
type PlaywrightOptions struct {
	Headless  bool
	UserAgent string
	Cookies   []playwright.OptionalCookie
}

// PlaywrightManager owns a playwright driver, one Chromium instance and one browser context.
type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

// NewPlaywright starts the driver and launches Chromium. Whatever was started is torn down again
// if a later step fails.
func NewPlaywright(ctx context.Context, opts PlaywrightOptions) (*PlaywrightManager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-gpu", "--no-sandbox"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	pm := &PlaywrightManager{pw: pw, browser: b}
	bctx, err := pm.NewContext(opts.UserAgent, opts.Cookies)
	if err != nil {
		_ = pm.Close()
		return nil, err
	}
	pm.context = bctx
	return pm, nil
}

// NewContext creates an isolated browser context, seeded with cookies when given.
func (pm *PlaywrightManager) NewContext(userAgent string, cookies []playwright.OptionalCookie) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{}
	if userAgent != "" {
		opts.UserAgent = playwright.String(userAgent)
	}
	bctx, err := pm.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	if len(cookies) > 0 {
		if err := bctx.AddCookies(cookies); err != nil {
			_ = bctx.Close()
			return nil, fmt.Errorf("could not add cookies: %w", err)
		}
	}
	return bctx, nil
}

// NewPage opens a tab in the manager's context.
func (pm *PlaywrightManager) NewPage() (Page, error) {
	page, err := pm.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

// Close releases the context, the browser and the driver, in that order.
func (pm *PlaywrightManager) Close() error {
	var errs []string
	if pm.context != nil {
		if err := pm.context.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing playwright: %s", strings.Join(errs, "; "))
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(navigationTimeoutMs),
	}); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) WaitForElement(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

func (p *playwrightPage) FindElement(selector string) (Element, bool, error) {
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	return &playwrightElement{loc: loc.First()}, true, nil
}

func (p *playwrightPage) FindElements(selector string) ([]Element, error) {
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(locs))
	for _, l := range locs {
		els = append(els, &playwrightElement{loc: l})
	}
	return els, nil
}

func (p *playwrightPage) ExecuteScript(script string) error {
	_, err := p.page.Evaluate(script)
	return err
}

func (p *playwrightPage) Title() (string, error) {
	title, err := p.page.Title()
	return strings.TrimSpace(title), err
}

func (p *playwrightPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e *playwrightElement) Text() (string, error) {
	text, err := e.loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(textTimeoutMs),
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *playwrightElement) Attribute(name string) (string, bool, error) {
	val, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(textTimeoutMs),
	})
	if err != nil {
		return "", false, err
	}
	return val, val != "", nil
}
