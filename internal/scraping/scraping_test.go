package scraping

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/models"
)

type memoryList struct {
	names []string
	err   error
}

func (m *memoryList) GetList(ctx context.Context) ([]string, error) { return m.names, m.err }
func (m *memoryList) SetList(ctx context.Context, names []string) error {
	m.names = names
	return nil
}
func (m *memoryList) ClearList(ctx context.Context) error {
	m.names = nil
	return nil
}

func newTestSource(t *testing.T, mux *http.ServeMux, names ...string) *Source {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := common.NewDefaultConfig()
	cfg.Site.BaseURL = server.URL
	cfg.Scraping.MaxPages = 20

	logger := arbor.NewNoOpLogger()
	client := NewClient(server.Client(), cfg.Site, cfg.Scraping, logger)
	return NewSource(client, &memoryList{names: names}, cfg.Scraping, logger)
}

func names(seq func(func(models.Target) bool)) []string {
	var out []string
	for target := range seq {
		out = append(out, target.DisplayName)
	}
	return out
}

func TestCleanList(t *testing.T) {
	cleaned := CleanList([]string{" alice ", "", "bob", "alice", "   ", "big bird"})
	assert.Equal(t, []string{"alice", "bob", "big-bird"}, cleaned)
}

func TestResolve_Single(t *testing.T) {
	source := newTestSource(t, http.NewServeMux())
	job, err := models.NewJob(models.SourceSingle, models.ModeApply, models.TargetSpec{AuthorID: "12", AuthorName: "some one", Kind: models.KindMute})
	require.NoError(t, err)

	var targets []models.Target
	for target := range source.Resolve(context.Background(), job) {
		targets = append(targets, target)
	}

	require.Len(t, targets, 1)
	assert.Equal(t, "12", targets[0].ID)
	assert.Equal(t, "some-one", targets[0].DisplayName)
	assert.Nil(t, targets[0].Flags)
}

func TestResolve_ListEmptyAfterCleaning(t *testing.T) {
	source := newTestSource(t, http.NewServeMux(), " ", "")
	job, err := models.NewJob(models.SourceList, models.ModeApply, models.TargetSpec{})
	require.NoError(t, err)

	assert.Empty(t, names(source.Resolve(context.Background(), job)))
}

func TestResolve_FavoritersWithNovice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/entry/favorileyenler", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "99", r.URL.Query().Get("entryId"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		fmt.Fprint(w, `<ul><li><a href="/biri/alice">@alice</a></li><li><a href="/biri/big-bird">@big bird</a></li><li><a href="#">2 çaylak</a></li></ul>`)
	})
	mux.HandleFunc("/entry/caylakfavorites", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ul><li><a>@newbie</a></li><li><a>@alice</a></li></ul>`)
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceFavoriters, models.ModeApply, models.TargetSpec{PostID: "99"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "big-bird", "newbie"}, names(source.Resolve(context.Background(), job)))
}

func TestResolve_FollowersStopOnEmptyPage(t *testing.T) {
	var (
		mu    sync.Mutex
		pages []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/follower", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageIndex")
		mu.Lock()
		pages = append(pages, page)
		mu.Unlock()
		switch page {
		case "1":
			fmt.Fprint(w, `[{"Nick":{"Value":"alice"},"Id":1,"IsBuddy":false,"IsFollowCurrentUser":true},{"Nick":{"Value":"bob"},"Id":2}]`)
		case "2":
			fmt.Fprint(w, `[{"Nick":{"Value":"carol"},"Id":3}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceFollowers, models.ModeApply, models.TargetSpec{AuthorName: "zed"})
	require.NoError(t, err)

	var targets []models.Target
	for target := range source.Resolve(context.Background(), job) {
		targets = append(targets, target)
	}

	require.Len(t, targets, 3)
	assert.Equal(t, "3", targets[2].ID)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3"}, pages)
}

func TestResolve_TitleAuthorsNotFoundEndsSequence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/some-title--77", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("p") {
		case "1":
			fmt.Fprint(w, `<ul id="entry-item-list">
<li data-author="alice" data-author-id="1"><div class="content">x</div></li>
<li data-author="bob b" data-author-id="2"><div class="content">y</div></li>
<li data-author="alice" data-author-id="1"><div class="content">z</div></li>
</ul>`)
		default:
			http.NotFound(w, r)
		}
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceTitleAuthors, models.ModeApply, models.TargetSpec{TitleID: "77", TitleName: "some title"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob-b"}, names(source.Resolve(context.Background(), job)))
}

func TestResolve_TitleAuthorsLast24Hours(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/t--1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dailynice", r.URL.Query().Get("a"))
		if r.URL.Query().Get("p") == "1" {
			fmt.Fprint(w, `<li data-author="a" data-author-id="1"><div class="content">x</div></li>`)
			return
		}
		fmt.Fprint(w, `<html></html>`)
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceTitleAuthors, models.ModeApply, models.TargetSpec{TitleID: "1", TitleName: "t", Window: models.WindowLast24H})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, names(source.Resolve(context.Background(), job)))
}

func TestResolve_FailedPageKeepsYieldedTargets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/follower", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageIndex") == "1" {
			fmt.Fprint(w, `[{"Nick":{"Value":"alice"},"Id":1}]`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceFollowers, models.ModeApply, models.TargetSpec{AuthorName: "zed"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, names(source.Resolve(context.Background(), job)))
}

func TestResolve_CancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/follower", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("pageIndex")
		fmt.Fprintf(w, `[{"Nick":{"Value":"user%s"},"Id":%s}]`, page, page)
	})

	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceFollowers, models.ModeApply, models.TargetSpec{AuthorName: "zed"})
	require.NoError(t, err)

	var got []string
	for target := range source.Resolve(ctx, job) {
		got = append(got, target.DisplayName)
		if len(got) == 2 {
			cancel()
		}
	}
	assert.Equal(t, []string{"user1", "user2"}, got)
}

func rosterMux(t *testing.T) *http.ServeMux {
	t.Helper()

	rosters := map[string][]string{
		"m": {`{"Relations":{"Items":[{"Nick":{"Value":"alice"},"Id":1},{"Nick":{"Value":"bob"},"Id":2}],"IsLast":false}}`,
			`{"Relations":{"Items":[{"Nick":{"Value":"carol"},"Id":3}],"IsLast":true}}`},
		"i": {`{"Relations":{"Items":[{"Nick":{"Value":"bob"},"Id":2}],"IsLast":true}}`},
		"u": {`{"Relations":{"Items":[],"IsLast":false}}`},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/relation-list", func(w http.ResponseWriter, r *http.Request) {
		pages := rosters[r.URL.Query().Get("relationType")]
		var index int
		fmt.Sscanf(r.URL.Query().Get("pageIndex"), "%d", &index)
		if index < 1 || index > len(pages) {
			fmt.Fprint(w, `{"Relations":{"Items":[],"IsLast":true}}`)
			return
		}
		fmt.Fprint(w, pages[index-1])
	})
	return mux
}

func TestResolve_UndoAllMergesRosters(t *testing.T) {
	source := newTestSource(t, rosterMux(t))
	job, err := models.NewJob(models.SourceUndoAll, models.ModeApply, models.TargetSpec{})
	require.NoError(t, err)
	assert.Equal(t, models.ModeRevoke, job.Mode)

	var targets []models.Target
	for target := range source.Resolve(context.Background(), job) {
		targets = append(targets, target)
	}

	require.Len(t, targets, 3)
	assert.Equal(t, "alice", targets[0].DisplayName)

	bob := targets[slices.IndexFunc(targets, func(t models.Target) bool { return t.DisplayName == "bob" })]
	assert.True(t, bob.Flags.Has(models.KindUser))
	assert.True(t, bob.Flags.Has(models.KindTitle))
	assert.False(t, bob.Flags.Has(models.KindMute))
	require.NotNil(t, bob.Flags.Muted, "flags are known, not null")
}

func TestResolve_UndoAllKeepsRowsBeforeFailedRosterPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/relation-list", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case query.Get("relationType") == "m" && query.Get("pageIndex") == "1":
			fmt.Fprint(w, `{"Relations":{"Items":[{"Nick":{"Value":"alice"},"Id":1}],"IsLast":false}}`)
		case query.Get("relationType") == "m":
			w.WriteHeader(http.StatusBadGateway)
		case query.Get("relationType") == "u":
			fmt.Fprint(w, `{"Relations":{"Items":[{"Nick":{"Value":"bob"},"Id":2}],"IsLast":true}}`)
		default:
			fmt.Fprint(w, `{"Relations":{"Items":[],"IsLast":true}}`)
		}
	})
	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceUndoAll, models.ModeRevoke, models.TargetSpec{})
	require.NoError(t, err)

	var targets []models.Target
	for target := range source.Resolve(context.Background(), job) {
		targets = append(targets, target)
	}

	require.Len(t, targets, 2)
	assert.Equal(t, "alice", targets[0].DisplayName)
	assert.True(t, targets[0].Flags.Has(models.KindUser))
	assert.Equal(t, "bob", targets[1].DisplayName)
	assert.True(t, targets[1].Flags.Has(models.KindMute))

	// The analyzer snapshot stays strict
	_, err = source.Roster(context.Background())
	assert.Error(t, err)
}

func TestResolve_UndoAllCancelledBetweenRosters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var requested []string
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/relation-list", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Query().Get("relationType"))
		mu.Unlock()
		cancel()
		fmt.Fprint(w, `{"Relations":{"Items":[{"Nick":{"Value":"alice"},"Id":1}],"IsLast":true}}`)
	})
	source := newTestSource(t, mux)
	job, err := models.NewJob(models.SourceUndoAll, models.ModeRevoke, models.TargetSpec{})
	require.NoError(t, err)

	var targets []models.Target
	for target := range source.Resolve(ctx, job) {
		targets = append(targets, target)
	}

	assert.Empty(t, targets)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"m"}, requested, "later rosters are never read")
}

func TestDirectory_Roster(t *testing.T) {
	source := newTestSource(t, rosterMux(t))

	roster, err := source.Roster(context.Background())
	require.NoError(t, err)
	assert.Len(t, roster, 3)
	assert.True(t, roster["carol"].Flags.Has(models.KindUser))
	assert.Equal(t, "3", roster["carol"].ID)
}

func TestDirectory_RosterFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/relation-list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	source := newTestSource(t, mux)

	roster, err := source.Roster(context.Background())
	assert.Error(t, err)
	assert.Nil(t, roster)
}

func TestDirectory_Following(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/following", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "me", r.URL.Query().Get("nick"))
		if r.URL.Query().Get("pageIndex") == "1" {
			fmt.Fprint(w, `[{"Nick":{"Value":"friend one"},"Id":10,"IsBuddy":true}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	})
	source := newTestSource(t, mux)

	following, err := source.Following(context.Background(), "me")
	require.NoError(t, err)
	assert.Contains(t, following, "friend-one")
}

func TestClient_ResolveIDAndIdentify(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="mobile-notification-icons"><span class="mobile-only"><a title="the caller" href="/biri/the-caller">me</a></span></div>`)
	})
	mux.HandleFunc("/biri/the-caller", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<input id="who" value="321">`)
	})
	mux.HandleFunc("/biri/ghost", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	source := newTestSource(t, mux)

	assert.Equal(t, "0", source.client.ResolveID(context.Background(), "ghost"))
	assert.Equal(t, "0", source.client.ResolveID(context.Background(), ""))

	caller, err := source.client.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.Client{Name: "the-caller", ID: "321"}, caller)
}

func TestClient_IdentifyNotLoggedIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>welcome</body></html>`)
	})
	source := newTestSource(t, mux)

	_, err := source.client.Identify(context.Background())
	assert.ErrorIs(t, err, models.ErrNotLoggedIn)
}

func TestClient_EntryMeta(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/entry/4242", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1 id="title" data-id="55" data-title="a title"></h1>
<ul id="entry-item-list"><li data-author="the author" data-author-id="8"></li></ul>`)
	})
	source := newTestSource(t, mux)

	meta, err := source.client.EntryMeta(context.Background(), source.client.baseURL+"/entry/4242")
	require.NoError(t, err)
	assert.Equal(t, &EntryMeta{EntryID: "4242", AuthorID: "8", AuthorName: "the-author", TitleID: "55", TitleName: "a-title"}, meta)
}
