package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/zero-buttons/internal/logic"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 2 * time.Second

// Config configures an HTTPClient.
type Config struct {
	Host      string
	Port      int
	Timeout   time.Duration
	NumGroups int
	UserAgent string
}

// HTTPClient talks to the controller server over HTTP.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	numGroups int
	userAgent string
}

// NewHTTPClient creates a client for http://host:port.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	numGroups := cfg.NumGroups
	if numGroups < 1 {
		numGroups = 1
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		baseURL:   "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		numGroups: numGroups,
		userAgent: cfg.UserAgent,
	}
}

// BaseURL returns the server root, e.g. http://localhost:3001.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// AdvanceGroup sends POST /api/switch/{next}.
func (c *HTTPClient) AdvanceGroup(ctx context.Context, current int) (int, error) {
	next := logic.NextGroup(current, c.numGroups)
	url := fmt.Sprintf("%s/api/switch/%d", c.baseURL, next)

	resp, err := c.do(ctx, CommandSwitch, http.MethodPost, url, nil)
	if err != nil {
		return current, err
	}
	drain(resp)
	return next, nil
}

// SetAutoSwitch sends POST /api/auto-switch with {"enabled", "interval"}.
func (c *HTTPClient) SetAutoSwitch(ctx context.Context, state logic.AutoSwitch, enabled bool) (logic.AutoSwitch, error) {
	body, err := json.Marshal(AutoSwitchRequest{Enabled: enabled, Interval: state.Interval})
	if err != nil {
		return state, &Error{Op: CommandAutoSwitch, Kind: KindTransport, Err: err}
	}

	resp, err := c.do(ctx, CommandAutoSwitch, http.MethodPost, c.baseURL+"/api/auto-switch", body)
	if err != nil {
		return state, err
	}
	drain(resp)
	return logic.AutoSwitch{Enabled: enabled, Interval: state.Interval}, nil
}

// Status sends GET /api/status.
func (c *HTTPClient) Status(ctx context.Context) (ServerStatus, error) {
	resp, err := c.do(ctx, CommandStatus, http.MethodGet, c.baseURL+"/api/status", nil)
	if err != nil {
		return ServerStatus{}, err
	}
	defer resp.Body.Close()

	var st ServerStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&st); err != nil {
		return ServerStatus{}, &Error{Op: CommandStatus, Kind: KindDecode, Err: err}
	}
	return st, nil
}

// do sends one request and returns the response only for status 200.
// The caller owns the body of a returned response.
func (c *HTTPClient) do(ctx context.Context, op, method, url string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: classify(ctx, err), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		return nil, &Error{Op: op, Kind: KindStatus, StatusCode: resp.StatusCode, Err: ErrStatus}
	}
	return resp, nil
}

func classify(ctx context.Context, err error) Kind {
	if errors.Is(ctx.Err(), context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindTransport
}

// drain discards a bounded amount of the body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}
