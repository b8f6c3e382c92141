package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/ternarybob/engel/internal/common"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(cfg common.SiteConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.RequestTimeout.Std(),
	}
}

// NewSiteClient creates an HTTP client with a cookie jar seeded from the
// configured session cookie, so requests run as the logged-in caller.
func NewSiteClient(cfg common.SiteConfig) (*http.Client, error) {
	if cfg.Cookie == "" {
		return NewDefaultHTTPClient(cfg), nil
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	cookies, err := http.ParseCookie(cfg.Cookie)
	if err != nil {
		return nil, fmt.Errorf("invalid session cookie: %w", err)
	}
	jar.SetCookies(baseURL, cookies)

	return &http.Client{
		Jar:     jar,
		Timeout: cfg.RequestTimeout.Std(),
	}, nil
}

// NewSiteRequest builds a request carrying the headers the site's XHR endpoints expect
func NewSiteRequest(ctx context.Context, method, rawURL string, body io.Reader, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}
