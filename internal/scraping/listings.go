package scraping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/engel/internal/models"
)

// noviceMarker identifies the trailing link to the novice favoriters list
const noviceMarker = "çaylak"

// FavoritersPage fetches the favoriters of a post. Page 1 is the regular
// list, page 2 the novice list when requested. Favoriters carry no ids.
func (c *Client) FavoritersPage(ctx context.Context, postID string, pageIndex int, includeNovice bool) (models.Page, error) {
	path := "/entry/favorileyenler?entryId=" + url.QueryEscape(postID)
	if pageIndex > 1 {
		path = "/entry/caylakfavorites?entryId=" + url.QueryEscape(postID)
	}

	doc, err := c.getDocument(ctx, path)
	if err != nil {
		return models.Page{}, err
	}

	anchors := doc.Find("a")
	last := anchors.Length() - 1
	var targets []models.Target
	anchors.Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if pageIndex == 1 && i == last && strings.Contains(text, noviceMarker) {
			return
		}
		name := models.NormalizeName(strings.TrimPrefix(text, "@"))
		if name != "" {
			targets = append(targets, models.Target{DisplayName: name})
		}
	})

	end := models.PageLast
	if pageIndex == 1 && includeNovice {
		end = models.PageMore
	}
	return models.Page{Targets: targets, End: end}, nil
}

// followEntry is one row of the follower and following endpoints
type followEntry struct {
	Nick struct {
		Value string `json:"Value"`
	} `json:"Nick"`
	ID                  json.Number `json:"Id"`
	IsBuddy             bool        `json:"IsBuddy"`
	IsFollowCurrentUser bool        `json:"IsFollowCurrentUser"`
}

// FollowersPage fetches one page of the accounts following name
func (c *Client) FollowersPage(ctx context.Context, name string, pageIndex int) (models.Page, error) {
	return c.followPage(ctx, "/follower", name, pageIndex)
}

// FollowingPage fetches one page of the accounts name follows
func (c *Client) FollowingPage(ctx context.Context, name string, pageIndex int) (models.Page, error) {
	return c.followPage(ctx, "/following", name, pageIndex)
}

func (c *Client) followPage(ctx context.Context, endpoint, name string, pageIndex int) (models.Page, error) {
	path := fmt.Sprintf("%s?nick=%s&pageIndex=%d", endpoint, url.QueryEscape(name), pageIndex)

	var rows []followEntry
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return models.Page{}, err
	}

	targets := make([]models.Target, 0, len(rows))
	for _, row := range rows {
		targets = append(targets, models.Target{
			ID:          row.ID.String(),
			DisplayName: models.NormalizeName(row.Nick.Value),
		})
	}

	if len(targets) == 0 {
		return models.Page{End: models.PageEmpty}, nil
	}
	return models.Page{Targets: targets, End: models.PageMore}, nil
}

// TitleAuthorsPage fetches the authors of one page of a title's entries.
// The site answers 404 past the last page.
func (c *Client) TitleAuthorsPage(ctx context.Context, titleName, titleID string, window models.TimeWindow, pageIndex int) (models.Page, error) {
	path := fmt.Sprintf("/%s--%s?p=%d", models.NormalizeName(titleName), url.PathEscape(titleID), pageIndex)
	if window == models.WindowLast24H {
		path = fmt.Sprintf("/%s--%s?a=dailynice&p=%d", models.NormalizeName(titleName), url.PathEscape(titleID), pageIndex)
	}

	doc, err := c.getDocument(ctx, path)
	if errors.Is(err, models.ErrNotFound) {
		return models.Page{End: models.PageNotFound}, nil
	}
	if err != nil {
		return models.Page{}, err
	}

	var targets []models.Target
	doc.Find(".content").Each(func(_ int, s *goquery.Selection) {
		parent := s.Parent()
		name := models.NormalizeName(parent.AttrOr("data-author", ""))
		if name == "" {
			return
		}
		targets = append(targets, models.Target{
			ID:          parent.AttrOr("data-author-id", ""),
			DisplayName: name,
		})
	})

	if len(targets) == 0 {
		return models.Page{End: models.PageEmpty}, nil
	}
	return models.Page{Targets: targets, End: models.PageMore}, nil
}

// rosterResponse is the relation-list payload
type rosterResponse struct {
	Relations struct {
		Items []struct {
			Nick struct {
				Value string `json:"Value"`
			} `json:"Nick"`
			ID json.Number `json:"Id"`
		} `json:"Items"`
		IsLast bool `json:"IsLast"`
	} `json:"Relations"`
}

// RosterPage fetches one page of the caller's roster for kind. Every target
// on the page has the kind's flag set.
func (c *Client) RosterPage(ctx context.Context, kind models.RelationKind, pageIndex int) (models.Page, error) {
	path := fmt.Sprintf("/relation-list?relationType=%s&pageIndex=%d", kind.QueryCode(), pageIndex)

	var resp rosterResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return models.Page{}, err
	}

	targets := make([]models.Target, 0, len(resp.Relations.Items))
	for _, item := range resp.Relations.Items {
		flags := &models.RelationFlags{}
		flags.Set(kind)
		targets = append(targets, models.Target{
			ID:          item.ID.String(),
			DisplayName: models.NormalizeName(item.Nick.Value),
			Flags:       flags,
		})
	}

	switch {
	case resp.Relations.IsLast:
		return models.Page{Targets: targets, End: models.PageLast}, nil
	case len(targets) == 0:
		return models.Page{End: models.PageEmpty}, nil
	}
	return models.Page{Targets: targets, End: models.PageMore}, nil
}
