package browser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
)

const staticRequestTimeout = 15 * time.Second

// StaticSession renders pages without a browser: it fetches raw HTML and queries it directly.
// Scripts never run, so content loaded by JavaScript is invisible to it.
type StaticSession struct {
	userAgent string
	limiter   *rate.Limiter
}

// NewStaticSession allows at most one request per interval (burst 1).
func NewStaticSession(userAgent string, interval time.Duration) *StaticSession {
	if userAgent == "" {
		userAgent = "actuarylist-ingest/1.0"
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &StaticSession{
		userAgent: userAgent,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (s *StaticSession) NewPage() (Page, error) {
	return &StaticPage{session: s}, nil
}

func (s *StaticSession) Close() error {
	return nil
}

func (s *StaticSession) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	c := colly.NewCollector(colly.UserAgent(s.userAgent))
	c.SetRequestTimeout(staticRequestTimeout)

	var (
		body     []byte
		finalURL = rawURL
		reqErr   error
	)
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			reqErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		reqErr = err
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, "", err
	}
	if reqErr != nil {
		return nil, "", reqErr
	}
	return body, finalURL, nil
}

// StaticPage is a parsed HTML document. CSS selectors go through goquery, XPath through htmlquery.
type StaticPage struct {
	session *StaticSession
	url     string
	root    *html.Node
	doc     *goquery.Document
	closed  bool
}

// NewStaticPage parses markup as if it had been served from pageURL.
func NewStaticPage(pageURL, markup string) (*StaticPage, error) {
	p := &StaticPage{}
	if err := p.load(pageURL, []byte(markup)); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *StaticPage) load(pageURL string, body []byte) error {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	doc := goquery.NewDocumentFromNode(root)
	//scripts and styles are not visible text
	doc.Find("script, style, noscript, template").Remove()

	p.url = pageURL
	p.root = root
	p.doc = doc
	return nil
}

func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	if p.closed {
		return ErrClosed
	}
	if p.session == nil {
		return fmt.Errorf("navigating to %s: page has no session", url)
	}
	body, finalURL, err := p.session.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return p.load(finalURL, body)
}

func (p *StaticPage) URL() string {
	return p.url
}

// WaitForElement cannot wait for anything: the document is final once fetched.
func (p *StaticPage) WaitForElement(selector string, _ time.Duration) error {
	nodes, err := p.query(selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrTimeout, selector)
	}
	return nil
}

func (p *StaticPage) FindElement(selector string) (Element, bool, error) {
	nodes, err := p.query(selector)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return staticElement{node: nodes[0]}, true, nil
}

func (p *StaticPage) FindElements(selector string) ([]Element, error) {
	nodes, err := p.query(selector)
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, staticElement{node: n})
	}
	return els, nil
}

// ExecuteScript is a no-op; there is no JavaScript engine behind a static page.
func (p *StaticPage) ExecuteScript(string) error {
	if p.closed {
		return ErrClosed
	}
	return nil
}

func (p *StaticPage) Title() (string, error) {
	if p.doc == nil {
		return "", nil
	}
	return collapseSpace(p.doc.Find("title").First().Text()), nil
}

func (p *StaticPage) Close() error {
	p.closed = true
	return nil
}

func (p *StaticPage) query(selector string) ([]*html.Node, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.root == nil {
		return nil, nil
	}
	engine, q := splitSelector(selector)
	if engine == engineXPath {
		nodes, err := htmlquery.QueryAll(p.root, q)
		if err != nil {
			return nil, fmt.Errorf("xpath %q: %w", q, err)
		}
		return nodes, nil
	}
	return p.doc.Find(q).Nodes, nil
}

type staticElement struct {
	node *html.Node
}

func (e staticElement) Text() (string, error) {
	return collapseSpace(htmlquery.InnerText(e.node)), nil
}

func (e staticElement) Attribute(name string) (string, bool, error) {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}
