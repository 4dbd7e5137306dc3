package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"visitassist/retry"
	"visitassist/types"
)

// ErrUnavailable means the reference page could not be fetched or carried
// no readable content after all retries. Callers fall through to the
// terminal no-answer reply; nothing else leaks past this boundary.
var ErrUnavailable = errors.New("reference page unavailable")

// Fetcher retrieves readable text for a fallback topic.
type Fetcher interface {
	Fetch(ctx context.Context, topic types.Topic) (string, error)
}

// GovUK fetches prison-visit reference pages from gov.uk and extracts the
// main article text. Transient failures are retried with exponential
// backoff before giving up.
type GovUK struct {
	urls   map[types.Topic]string
	client *http.Client
	policy retry.Policy
}

type Config struct {
	URLs    map[types.Topic]string
	Timeout int // seconds, defaults to 10
	Policy  retry.Policy
}

func NewGovUK(cfg Config) *GovUK {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10
	}
	policy := cfg.Policy
	if policy.Attempts == 0 {
		policy = retry.DefaultPolicy()
	}
	return &GovUK{
		urls:   cfg.URLs,
		client: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		policy: policy,
	}
}

func (g *GovUK) Fetch(ctx context.Context, topic types.Topic) (string, error) {
	url, ok := g.urls[topic]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: no reference page for topic %q", ErrUnavailable, topic)
	}

	var content string
	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		text, err := g.fetchPage(ctx, url)
		if err != nil {
			log.Printf("[FETCH] error fetching %s: %v", url, err)
			return err
		}
		content = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if content == "" {
		return "", fmt.Errorf("%w: no readable content at %s", ErrUnavailable, url)
	}
	return content, nil
}

func (g *GovUK) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", err
	}
	return ExtractMainText(doc), nil
}

// ExtractMainText pulls the readable text out of a parsed gov.uk page:
// the govspeak article container when present, otherwise the <main>
// element, otherwise the whole document. Script, style and navigation
// subtrees are skipped and whitespace is collapsed to single spaces.
func ExtractMainText(doc *html.Node) string {
	root := findByClass(doc, "div", "govspeak")
	if root == nil {
		root = findByTag(doc, "main")
	}
	if root == nil {
		root = doc
	}

	var words []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			words = append(words, strings.Fields(n.Data)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(words, " ")
}

func findByClass(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		for _, attr := range n.Attr {
			if attr.Key == "class" && hasClass(attr.Val, class) {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func findByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(attrVal, class string) bool {
	for _, c := range strings.Fields(attrVal) {
		if c == class {
			return true
		}
	}
	return false
}
