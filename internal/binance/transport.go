package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"binance-pattern-trader/internal/logging"
)

// DefaultRecvWindow is the signed-request validity window in milliseconds
const DefaultRecvWindow = 10000

// restClient is the HTTP transport shared by the spot and futures clients.
// Requests are never retried here.
type restClient struct {
	apiKey     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
	recvWindow int64

	// timeOffset is serverTime - localTime in milliseconds
	timeOffset atomic.Int64
}

func newRESTClient(apiKey, secretKey, baseURL string) *restClient {
	return &restClient{
		apiKey:     apiKey,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		recvWindow: DefaultRecvWindow,
	}
}

func (c *restClient) timestamp() int64 {
	return time.Now().UnixMilli() + c.timeOffset.Load()
}

// syncTime reads the exchange clock from path and stores the offset used for signed timestamps.
func (c *restClient) syncTime(ctx context.Context, path string) (time.Duration, error) {
	before := time.Now().UnixMilli()
	var out struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := c.get(ctx, path, nil, &out); err != nil {
		return 0, fmt.Errorf("error fetching server time: %w", err)
	}
	after := time.Now().UnixMilli()

	offset := out.ServerTime - (before+after)/2
	c.timeOffset.Store(offset)
	return time.Duration(offset) * time.Millisecond, nil
}

func (c *restClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// signed sends a request carrying timestamp, recvWindow and an HMAC-SHA256 signature.
func (c *restClient) signed(ctx context.Context, method, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(c.timestamp(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
	query := params.Encode()
	query += "&signature=" + sign(c.secretKey, query)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = query
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req, out)
}

func (c *restClient) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if e := logging.FromContext(req.Context()).Debug(); e.Enabled() {
		e.Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Interface("params", logging.RedactParams(flatten(req.URL.Query()))).
			Msg("Binance request")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Msg == "" {
			apiErr.Msg = string(body)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error parsing %s response: %w", req.URL.Path, err)
	}
	return nil
}

func flatten(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		out[k] = values.Get(k)
	}
	return out
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
