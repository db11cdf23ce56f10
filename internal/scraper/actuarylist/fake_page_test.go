package actuarylist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-actuarylist-ingest/internal/browser"
)

type fakeElement struct {
	text  string
	attrs map[string]string
}

func (e fakeElement) Text() (string, error) { return e.text, nil }

func (e fakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

// fakePage serves a listings page whose anchor count follows counts, one entry per lookup, and
// detail pages whose only content is an h1 with the title in titles.
type fakePage struct {
	url      string
	anchors  []fakeElement
	counts   []int
	lookups  int
	scrolls  int
	titles   map[string]string
	failures map[string]error
	panics   map[string]bool
	visited  []string
}

func newListingPage(hrefs ...string) *fakePage {
	p := &fakePage{titles: map[string]string{}, failures: map[string]error{}, panics: map[string]bool{}}
	for _, h := range hrefs {
		p.anchors = append(p.anchors, fakeElement{attrs: map[string]string{"href": h}})
	}
	return p
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.visited = append(p.visited, url)
	if p.panics[url] {
		panic(fmt.Sprintf("renderer crashed on %s", url))
	}
	if err := p.failures[url]; err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) WaitForElement(string, time.Duration) error { return nil }

func (p *fakePage) FindElement(selector string) (browser.Element, bool, error) {
	if selector != titleSelectors[0] {
		return nil, false, nil
	}
	title, ok := p.titles[p.url]
	if !ok {
		return nil, false, nil
	}
	return fakeElement{text: title}, true, nil
}

func (p *fakePage) FindElements(selector string) ([]browser.Element, error) {
	if selector != jobLinkSelector {
		return nil, nil
	}
	n := len(p.anchors)
	if len(p.counts) > 0 {
		n = p.counts[min(p.lookups, len(p.counts)-1)]
	}
	p.lookups++
	els := make([]browser.Element, 0, n)
	for _, a := range p.anchors[:min(n, len(p.anchors))] {
		els = append(els, a)
	}
	return els, nil
}

func (p *fakePage) ExecuteScript(string) error {
	p.scrolls++
	return nil
}

func (p *fakePage) Title() (string, error) { return "", errors.New("no title") }

func (p *fakePage) Close() error { return nil }
