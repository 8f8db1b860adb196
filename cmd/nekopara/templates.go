package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Chocolatl/nekopara/internal/crawl"
)

const (
	fetchTimeout = 15 * time.Second
	maxBodyBytes = 1 << 20
	maxPageLinks = 32
)

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	hrefRe  = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
)

// PageResult is the data payload committed for every fetched page.
type PageResult struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title"`
}

func (r PageResult) String() string { return fmt.Sprintf("%s  %q", r.URL, r.Title) }

// registerTemplates installs the built-in templates. "page" records the page
// title and follows same-host links; "title" records the title only.
func registerTemplates(s *crawl.Scheduler) error {
	client := &http.Client{Timeout: fetchTimeout}
	if err := s.Register("page", pageTemplate(client, true)); err != nil {
		return err
	}
	return s.Register("title", pageTemplate(client, false))
}

func pageTemplate(client *http.Client, follow bool) crawl.TemplateFunc {
	return func(ctx context.Context, pageURL string, c *crawl.Collector) error {
		base, err := url.Parse(pageURL)
		if err != nil {
			return fmt.Errorf("parse url: %w", err)
		}
		body, err := fetchPage(ctx, client, pageURL)
		if err != nil {
			return err
		}
		c.Data(PageResult{URL: pageURL, Title: pageTitle(body)})
		if !follow {
			return nil
		}
		for _, link := range sameHostLinks(base, body) {
			c.Visit("page", link)
		}
		return nil
	}
}

func fetchPage(ctx context.Context, client *http.Client, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "nekopara/"+version)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", fmt.Errorf("fetch %s: unexpected content type %q", pageURL, ct)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(b), nil
}

func pageTitle(body string) string {
	m := titleRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// sameHostLinks extracts absolute http(s) links on the same host as base,
// deduplicated within the page and capped at maxPageLinks. Fragments are
// stripped so anchors on one page resolve to one URL.
func sameHostLinks(base *url.URL, body string) []string {
	var (
		links []string
		seen  = make(map[string]struct{})
	)
	for _, m := range hrefRe.FindAllStringSubmatch(body, -1) {
		ref, err := url.Parse(strings.TrimSpace(m[1]))
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		if abs.Host != base.Host {
			continue
		}
		abs.Fragment = ""
		link := abs.String()
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
		if len(links) >= maxPageLinks {
			break
		}
	}
	return links
}
