package scraping

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/engel/internal/models"
)

// ResolveID reads an account's id from its profile page. Returns "0" when
// the lookup fails.
func (c *Client) ResolveID(ctx context.Context, name string) string {
	name = models.NormalizeName(name)
	if name == "" {
		return "0"
	}

	doc, err := c.getDocument(ctx, "/biri/"+url.PathEscape(name))
	if err != nil {
		c.logger.Warn().Str("name", name).Err(err).Msg("Failed to resolve account id")
		return "0"
	}

	id := strings.TrimSpace(doc.Find("#who").AttrOr("value", ""))
	if id == "" {
		c.logger.Warn().Str("name", name).Msg("Profile page has no account id")
		return "0"
	}
	return id
}

// Identify reads the logged-in caller's name from the home page and the
// caller's id from the profile page.
func (c *Client) Identify(ctx context.Context) (*models.Client, error) {
	doc, err := c.getDocument(ctx, "/")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSiteUnreachable, err)
	}

	title, _ := doc.Find(".mobile-notification-icons").Find(".mobile-only a").First().Attr("title")
	name := models.NormalizeName(title)
	if name == "" {
		return nil, models.ErrNotLoggedIn
	}

	id := c.ResolveID(ctx, name)
	if !models.IsResolvableID(id) {
		return nil, fmt.Errorf("%w: no id for %s", models.ErrNotLoggedIn, name)
	}

	c.logger.Debug().Str("client_name", name).Str("client_id", id).Msg("Identified caller")
	return &models.Client{Name: name, ID: id}, nil
}

// EntryMeta describes a post and its title, read from the post's page
type EntryMeta struct {
	EntryID    string `json:"entry_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	TitleID    string `json:"title_id"`
	TitleName  string `json:"title_name"`
}

var trailingDigits = regexp.MustCompile(`(\d+)\D*$`)

// EntryMeta scrapes the author and title of a post from its URL
func (c *Client) EntryMeta(ctx context.Context, entryURL string) (*EntryMeta, error) {
	match := trailingDigits.FindStringSubmatch(entryURL)
	if match == nil {
		return nil, fmt.Errorf("no entry id in %q", entryURL)
	}

	doc, err := c.getDocument(ctx, entryURL)
	if err != nil {
		return nil, err
	}

	entry := doc.Find("#entry-item-list li").First()
	title := doc.Find("#title").First()
	if entry.Length() == 0 || title.Length() == 0 {
		return nil, errors.New("entry page is missing author or title")
	}

	return &EntryMeta{
		EntryID:    match[1],
		AuthorID:   entry.AttrOr("data-author-id", ""),
		AuthorName: models.NormalizeName(entry.AttrOr("data-author", "")),
		TitleID:    title.AttrOr("data-id", ""),
		TitleName:  models.NormalizeName(title.AttrOr("data-title", "")),
	}, nil
}
