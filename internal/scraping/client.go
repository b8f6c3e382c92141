package scraping

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/httpclient"
	"github.com/ternarybob/engel/internal/models"
	"golang.org/x/time/rate"
)

// Client fetches pages from the site with the caller's session
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	pacer     *rate.Limiter
	logger    arbor.ILogger
}

// NewClient creates a scraping client. Every GET waits on the page pacer.
func NewClient(httpClient *http.Client, site common.SiteConfig, scraping common.ScrapingConfig, logger arbor.ILogger) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(site.BaseURL, "/"),
		userAgent: site.UserAgent,
		pacer:     common.NewPacer(scraping.PageInterval.Std()),
		logger:    logger,
	}
}

// get issues a GET for a site-relative path or an absolute URL.
// 404 is reported as models.ErrNotFound.
func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}

	req, err := httpclient.NewSiteRequest(ctx, http.MethodGet, target, nil, c.userAgent)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", path, models.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) getDocument(ctx context.Context, path string) (*goquery.Document, error) {
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", path, err)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
