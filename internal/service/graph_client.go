package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/carlmjohnson/requests"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/transfer"
	"github.com/samber/lo"
)

const (
	graphUserAgent     = "IGReelsPoster/1.0"
	defaultRetries     = 5
	defaultBackoff     = 2 * time.Second
	errorDetailMaxSize = 300
)

var retryableStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// GraphClient performs Graph API calls with the retry policy shared by every
// outbound request: network errors and 429/5xx gateway statuses are retried
// with exponential backoff, anything else that is not 200 is final.
type GraphClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    int
	Backoff    time.Duration
}

func NewGraphClient(cfg config.Config, httpClient *http.Client) *GraphClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &GraphClient{
		BaseURL:    cfg.GraphAPIBase,
		HTTPClient: httpClient,
		Retries:    defaultRetries,
		Backoff:    defaultBackoff,
	}
}

func (g *GraphClient) endpoint(p string) string {
	u, err := url.JoinPath(g.BaseURL, p)
	if err != nil {
		return g.BaseURL + "/" + p
	}
	return u
}

// Get issues a GET with query params and decodes the JSON answer into out.
func (g *GraphClient) Get(ctx context.Context, p string, params url.Values, out any) error {
	return g.do(ctx, http.MethodGet, g.endpoint(p), params, nil, out)
}

// PostForm issues a form encoded POST and decodes the JSON answer into out.
func (g *GraphClient) PostForm(ctx context.Context, p string, form url.Values, out any) error {
	return g.do(ctx, http.MethodPost, g.endpoint(p), nil, form, out)
}

func (g *GraphClient) do(ctx context.Context, method, endpoint string, params, form url.Values, out any) error {
	retries := g.Retries
	if retries < 1 {
		retries = 1
	}

	var lastStatus int
	for attempt := 0; attempt < retries; attempt++ {
		status, body, err := g.send(ctx, method, endpoint, params, form)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("request to %s: %w", endpoint, ctx.Err())
			}
			slog.Info("graph request failed", "url", endpoint, "attempt", attempt+1, "error", err)
			if attempt == retries-1 {
				return &internaltypes.TransportError{URL: endpoint, Attempts: attempt + 1, Err: err}
			}
			if err := g.wait(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		if status == http.StatusOK {
			if len(bytes.TrimSpace(body)) == 0 || out == nil {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("error parsing response from %s: %w", endpoint, err)
			}
			return nil
		}

		if lo.Contains(retryableStatuses, status) {
			lastStatus = status
			slog.Info("graph request retryable status", "url", endpoint, "attempt", attempt+1, "status", status)
			if attempt == retries-1 {
				break
			}
			if err := g.wait(ctx, attempt); err != nil {
				return err
			}
			continue
		}

		return &internaltypes.RemoteRejection{URL: endpoint, StatusCode: status, Detail: errorDetail(body)}
	}

	return &internaltypes.TransportError{URL: endpoint, Attempts: retries, StatusCode: lastStatus}
}

func (g *GraphClient) send(ctx context.Context, method, endpoint string, params, form url.Values) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	rb := requests.
		URL(endpoint).
		Client(g.HTTPClient).
		Method(method).
		UserAgent(graphUserAgent).
		AddValidator(func(*http.Response) error { return nil }).
		Handle(func(res *http.Response) error {
			status = res.StatusCode
			var err error
			body, err = io.ReadAll(res.Body)
			return err
		})
	for key, values := range params {
		rb.Param(key, values...)
	}
	if form != nil {
		rb.BodyForm(form)
	}
	err := rb.Fetch(ctx)
	return status, body, err
}

// wait sleeps backoff * 2^attempt or until ctx is done.
func (g *GraphClient) wait(ctx context.Context, attempt int) error {
	d := g.Backoff * time.Duration(1<<attempt)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func errorDetail(body []byte) string {
	var igErr transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &igErr); err == nil && igErr.Error.Message != "" {
		return fmt.Sprintf("%s (type=%s code=%d fbtrace_id=%s)", igErr.Error.Message, igErr.Error.Type, igErr.Error.Code, igErr.Error.FbtraceID)
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, body); err == nil {
		return compacted.String()
	}
	runes := []rune(string(body))
	if len(runes) > errorDetailMaxSize {
		runes = runes[:errorDetailMaxSize]
	}
	return string(runes)
}
