package relation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/httpclient"
	"github.com/ternarybob/engel/internal/models"
	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a relation response is read
const maxResponseBytes = 64 * 1024

var errPacingCancelled = errors.New("cancelled while waiting for the request pacer")

// Executor issues relation calls against the site's userrelation endpoint
type Executor struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	logger    arbor.ILogger
}

// NewExecutor creates an executor for the configured site
func NewExecutor(client *http.Client, site common.SiteConfig, relation common.RelationConfig, logger arbor.ILogger) *Executor {
	return &Executor{
		client:    client,
		baseURL:   strings.TrimRight(site.BaseURL, "/"),
		userAgent: site.UserAgent,
		limiter:   common.NewPacer(relation.RequestInterval.Std()),
		logger:    logger,
	}
}

// Perform applies or removes the requested relation kinds for one target.
// Unresolvable ids succeed without touching the network.
func (e *Executor) Perform(ctx context.Context, mode models.Mode, targetID string, kinds models.Kinds) models.ActionOutcome {
	if !models.IsResolvableID(targetID) {
		return models.Success()
	}

	requested := kinds.List()
	outcomes := make([]models.ActionOutcome, 0, len(requested))
	for _, kind := range requested {
		if ctx.Err() != nil {
			return models.Interrupted()
		}
		err := e.call(ctx, mode, targetID, kind)
		if errors.Is(err, errPacingCancelled) {
			return models.Interrupted()
		}
		if err != nil {
			e.logger.Warn().
				Str("target_id", targetID).
				Str("kind", string(kind)).
				Str("mode", string(mode)).
				Err(err).
				Msg("Relation call did not succeed")
		}
		outcomes = append(outcomes, models.OutcomeFromError(err))
	}

	return models.AggregateOutcomes(outcomes...)
}

// call performs one HTTP exchange. In-flight requests are not pre-empted by
// cancellation; the client timeout bounds them instead.
func (e *Executor) call(ctx context.Context, mode models.Mode, targetID string, kind models.RelationKind) error {
	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return errPacingCancelled
		}
		return &models.TerminalActionError{Kind: kind, Reason: err.Error()}
	}

	endpoint := fmt.Sprintf("%s/userrelation/%s/%s?r=%s", e.baseURL, actionPath(mode), url.PathEscape(targetID), kind.QueryCode())
	body := strings.NewReader(url.Values{"id": {targetID}}.Encode())

	req, err := httpclient.NewSiteRequest(context.WithoutCancel(ctx), http.MethodPost, endpoint, body, e.userAgent)
	if err != nil {
		return &models.TerminalActionError{Kind: kind, Reason: err.Error()}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &models.TerminalActionError{Kind: kind, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &models.ThrottledError{Kind: kind, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.TerminalActionError{Kind: kind, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &models.TerminalActionError{Kind: kind, Status: resp.StatusCode, Reason: err.Error()}
	}
	if !acceptedPayload(mode, payload) {
		return &models.TerminalActionError{Kind: kind, Status: resp.StatusCode, Reason: "unexpected response payload"}
	}
	return nil
}

func actionPath(mode models.Mode) string {
	if mode == models.ModeRevoke {
		return "removerelation"
	}
	return "addrelation"
}

// acceptedPayload checks the mode-dependent success marker: APPLY answers
// with a bare number 0 or 2, REVOKE with {"result": true}.
func acceptedPayload(mode models.Mode, payload []byte) bool {
	if mode == models.ModeRevoke {
		var body struct {
			Result *bool `json:"result"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return false
		}
		return body.Result != nil && *body.Result
	}

	var code json.Number
	decoder := json.NewDecoder(strings.NewReader(strings.TrimSpace(string(payload))))
	decoder.UseNumber()
	if err := decoder.Decode(&code); err != nil {
		return false
	}
	n, err := code.Int64()
	if err != nil {
		return false
	}
	return n == 0 || n == 2
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
// Returns 0 when absent or unparseable.
func parseRetryAfter(value string, now time.Time) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return seconds
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := when.Sub(now); d > 0 {
			return int((d + time.Second - 1) / time.Second)
		}
	}
	return 0
}
