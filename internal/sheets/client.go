// Package sheets is the transport to the spreadsheet-backed store: a JSON GET
// with a single fallback to the callback-wrapped transport the store serves
// for cross-origin script loads.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/schemas"
	"github.com/peacoop/campaign-site/internal/types"
)

// DefaultCallbackTimeout is how long the callback transport waits for its callback.
const DefaultCallbackTimeout = 10 * time.Second

// DefaultFetchTimeout bounds a single HTTP round trip.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for store requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; CampaignSite/1.0)"

// Options configures a Client.
type Options struct {
	Endpoint        string
	HTTPClient      *http.Client
	FetchTimeout    time.Duration
	CallbackTimeout time.Duration
	Metrics         *Metrics
	Logger          *zap.Logger
}

// Client talks to the remote tabular store.
type Client struct {
	endpoint        *url.URL
	http            *http.Client
	callbackTimeout time.Duration
	registry        *Registry
	metrics         *Metrics
	logger          *zap.Logger
}

// New creates a store client.
func New(opts Options) (*Client, error) {
	endpoint, err := url.Parse(opts.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid store endpoint %q", opts.Endpoint)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.FetchTimeout
		if timeout <= 0 {
			timeout = DefaultFetchTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	callbackTimeout := opts.CallbackTimeout
	if callbackTimeout <= 0 {
		callbackTimeout = DefaultCallbackTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		endpoint:        endpoint,
		http:            httpClient,
		callbackTimeout: callbackTimeout,
		registry:        NewRegistry(),
		metrics:         opts.Metrics,
		logger:          logger.Named("sheets"),
	}, nil
}

// Registry exposes the pending callback table.
func (c *Client) Registry() *Registry {
	return c.registry
}

// FetchTable returns every non-empty row of a table.
func (c *Client) FetchTable(ctx context.Context, name string) ([]types.Row, error) {
	params := url.Values{}
	params.Set("sheet", name)
	params.Set("action", "getAll")

	payload, err := c.fetch(ctx, name, params)
	if err != nil {
		return nil, err
	}

	if err := schemas.Validate(schemas.Table, payload); err != nil {
		return nil, &StoreError{Table: name, Message: "response breaks the table contract", Cause: err}
	}
	if msg, ok := storeErrorMessage(payload); ok {
		return nil, &StoreError{Table: name, Message: msg}
	}

	var rows []types.Row
	if err := decode(payload, &rows); err != nil {
		return nil, &StoreError{Table: name, Message: "undecodable rows", Cause: err}
	}
	return rows, nil
}

// FetchRecord returns the row of a table whose id or candidateNumber equals id.
func (c *Client) FetchRecord(ctx context.Context, name, id string) (types.Row, error) {
	params := url.Values{}
	params.Set("sheet", name)
	params.Set("action", "getById")
	params.Set("id", id)

	payload, err := c.fetch(ctx, name, params)
	if err != nil {
		return nil, err
	}

	if err := schemas.Validate(schemas.Record, payload); err != nil {
		return nil, &StoreError{Table: name, Message: "response breaks the record contract", Cause: err}
	}
	if msg, ok := storeErrorMessage(payload); ok {
		return nil, &StoreError{Table: name, Message: msg}
	}

	var row types.Row
	if err := decode(payload, &row); err != nil {
		return nil, &StoreError{Table: name, Message: "undecodable record", Cause: err}
	}
	return row, nil
}

// opinionListing is the envelope of the opinion table.
type opinionListing struct {
	Opinions []types.Row `json:"opinions"`
	Error    string      `json:"error,omitempty"`
}

// FetchOpinions returns the raw opinion rows. It only uses the callback transport.
func (c *Client) FetchOpinions(ctx context.Context) ([]types.Row, error) {
	params := url.Values{}
	params.Set("sheet", types.TableOpinions)

	payload, err := c.callback(ctx, types.TableOpinions, params, NewToken())
	if err != nil {
		return nil, err
	}

	if err := schemas.Validate(schemas.Opinions, payload); err != nil {
		return nil, &StoreError{Table: types.TableOpinions, Message: "response breaks the opinion contract", Cause: err}
	}

	var listing opinionListing
	if err := decode(payload, &listing); err != nil {
		return nil, &StoreError{Table: types.TableOpinions, Message: "undecodable opinions", Cause: err}
	}
	if listing.Error != "" {
		return nil, &StoreError{Table: types.TableOpinions, Message: listing.Error}
	}
	return listing.Opinions, nil
}

// SubmitOpinion appends an opinion through the callback transport. token is the
// callback name to use; an empty token gets a generated one.
func (c *Client) SubmitOpinion(ctx context.Context, sub types.OpinionSubmission, token string) (*types.SubmitResult, error) {
	if token == "" {
		token = NewToken()
	}

	params := url.Values{}
	params.Set("action", "addOpinion")
	params.Set("title", sub.Title)
	params.Set("tags", sub.Tags)
	params.Set("details", sub.Details)
	params.Set("timestamp", sub.Timestamp)

	payload, err := c.callback(ctx, types.TableOpinions, params, token)
	if err != nil {
		return nil, err
	}

	if err := schemas.Validate(schemas.SubmitResult, payload); err != nil {
		return nil, &StoreError{Table: types.TableOpinions, Message: "response breaks the submission contract", Cause: err}
	}

	var result types.SubmitResult
	if err := decode(payload, &result); err != nil {
		return nil, &StoreError{Table: types.TableOpinions, Message: "undecodable submission result", Cause: err}
	}
	if !result.Success {
		return &result, &StoreError{Table: types.TableOpinions, Message: result.Error}
	}
	return &result, nil
}

// fetch tries the JSON transport and falls back to the callback transport once.
func (c *Client) fetch(ctx context.Context, table string, params url.Values) ([]byte, error) {
	payload, err := c.fetchJSON(ctx, table, params)
	if err == nil {
		return payload, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Warn("JSON fetch failed, falling back to callback transport",
		zap.String("table", table), zap.Error(err))

	return c.callback(ctx, table, params, NewToken())
}

// fetchJSON performs the primary GET and returns the body if it is JSON.
func (c *Client) fetchJSON(ctx context.Context, table string, params url.Values) (payload []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.observe(table, transportJSON, err, time.Since(start)) }()

	target := c.url(params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{URL: target, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: target, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: target, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	if !json.Valid(body) {
		return nil, &NetworkError{URL: target, StatusCode: resp.StatusCode, Message: "response is not JSON"}
	}

	return body, nil
}

// callback performs a callback-wrapped request and waits for the store to
// invoke token. The pending entry and the in-flight load are released on
// every exit path.
func (c *Client) callback(ctx context.Context, table string, params url.Values, token string) (payload []byte, err error) {
	start := time.Now()
	defer func() { c.metrics.observe(table, transportCallback, err, time.Since(start)) }()

	pending, release := c.registry.Register(token)
	defer release()

	c.metrics.pendingAdd(1)
	defer c.metrics.pendingAdd(-1)

	withCallback := url.Values{}
	for k, v := range params {
		withCallback[k] = v
	}
	withCallback.Set("callback", token)
	target := c.url(withCallback)

	loadCtx, cancel := context.WithCancel(ctx)
	c.registry.bind(pending, cancel)

	loaded := make(chan error, 1)
	go func() { loaded <- c.load(loadCtx, target) }()

	timer := time.NewTimer(c.callbackTimeout)
	defer timer.Stop()

	for {
		select {
		case got := <-pending.Done():
			return got, nil

		case loadErr := <-loaded:
			if loadErr != nil {
				c.logger.Warn("callback load failed", zap.String("table", table), zap.String("token", token), zap.Error(loadErr))
				return nil, &TransportError{Kind: LoadFailed, Token: token, Cause: loadErr}
			}
			// Loaded without reaching our callback: keep waiting for the deadline.
			loaded = nil

		case <-timer.C:
			c.registry.Timeout(token)
			c.logger.Warn("callback timed out", zap.String("table", table), zap.String("token", token),
				zap.Duration("after", c.callbackTimeout))
			return nil, &TransportError{Kind: Timeout, Token: token}

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// load fetches a callback-wrapped body and invokes the callback it names.
func (c *Client) load(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/javascript, */*")
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	name, arg, ok := unwrapCallback(body)
	if !ok {
		return fmt.Errorf("response is not a callback invocation")
	}
	if !json.Valid(arg) {
		return fmt.Errorf("callback %s received invalid JSON", name)
	}

	if !c.registry.Resolve(name, arg) {
		c.logger.Debug("callback without pending request", zap.String("token", name))
	}
	return nil
}

func (c *Client) url(params url.Values) string {
	u := *c.endpoint
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// storeErrorMessage reports whether payload is the store's {"error": "..."} object.
func storeErrorMessage(payload []byte) (string, bool) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil || len(obj) != 1 {
		return "", false
	}
	raw, ok := obj["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg, true
}

func decode(payload []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	return dec.Decode(v)
}
