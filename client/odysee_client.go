package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/odysee-scraper/model/odysee"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Default public endpoints
const (
	DefaultProxyURL    = "https://api.na-backend.odysee.com/api/v1/proxy"
	DefaultCommentsURL = "https://comments.odysee.tv/api/v2"
	DefaultAPIURL      = "https://api.odysee.com"

	MethodClaimSearch = "claim_search"
	MethodCommentList = "comment.List"

	origin = "https://odysee.com"

	// maxErrorBody bounds how much of a failed response ends up in an error message.
	maxErrorBody = 512
)

// Endpoints holds the base URLs of the three Odysee services.
type Endpoints struct {
	Proxy    string `mapstructure:"proxy"`
	Comments string `mapstructure:"comments"`
	API      string `mapstructure:"api"`
}

// OdyseeConfig contains configuration for the Odysee client
type OdyseeConfig struct {
	Endpoints         Endpoints
	Timeout           time.Duration // Default: 30s
	RequestsPerSecond float64       // 0 disables pacing
	HTTPClient        *http.Client  // Optional, overrides Timeout
}

// OdyseeClient talks to the Odysee JSON-RPC proxy, the comments service and the web API.
// It is safe for concurrent use.
type OdyseeClient struct {
	httpClient *http.Client
	endpoints  Endpoints
	limiter    *rate.Limiter
}

// NewOdyseeClient creates a new Odysee client
func NewOdyseeClient(config *OdyseeConfig) (*OdyseeClient, error) {
	if config == nil {
		config = &OdyseeConfig{}
	}
	if config.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests per second cannot be negative")
	}

	endpoints := config.Endpoints
	if endpoints.Proxy == "" {
		endpoints.Proxy = DefaultProxyURL
	}
	if endpoints.Comments == "" {
		endpoints.Comments = DefaultCommentsURL
	}
	if endpoints.API == "" {
		endpoints.API = DefaultAPIURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	log.Debug().
		Str("proxy", endpoints.Proxy).
		Str("comments", endpoints.Comments).
		Str("api", endpoints.API).
		Float64("requests_per_second", config.RequestsPerSecond).
		Msg("Creating Odysee client")

	return &OdyseeClient{
		httpClient: httpClient,
		endpoints:  endpoints,
		limiter:    limiter,
	}, nil
}

// ClaimSearchRequest builds a paginated claim_search request with the given filters.
func (c *OdyseeClient) ClaimSearchRequest(pageSize int, filters map[string]any) odysee.PageRequest {
	params := map[string]any{"no_totals": false}
	for k, v := range filters {
		params[k] = v
	}
	return odysee.PageRequest{
		Endpoint: c.endpoints.Proxy + "?m=" + MethodClaimSearch,
		Method:   MethodClaimSearch,
		PageSize: pageSize,
		Params:   params,
	}
}

// CommentListRequest builds a paginated comment.List request for every comment of a claim,
// replies included.
func (c *OdyseeClient) CommentListRequest(pageSize int, claimID string) odysee.PageRequest {
	return odysee.PageRequest{
		Endpoint: c.endpoints.Comments + "?m=" + MethodCommentList,
		Method:   MethodCommentList,
		PageSize: pageSize,
		Params: map[string]any{
			"claim_id":  claimID,
			"top_level": false,
			"sort_by":   0,
		},
	}
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int            `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

type pageResult struct {
	Items      []json.RawMessage `json:"items"`
	TotalPages int               `json:"total_pages"`
	TotalItems int               `json:"total_items"`
}

// FetchPage fetches one page of a paginated JSON-RPC endpoint.
// A result without an "items" key is an empty page.
func (c *OdyseeClient) FetchPage(ctx context.Context, req odysee.PageRequest, page int) (*odysee.Page, error) {
	var result pageResult
	if err := c.call(ctx, req.Endpoint, req.Method, req.WithPage(page), &result); err != nil {
		return nil, err
	}
	return &odysee.Page{
		Index:      page,
		Items:      result.Items,
		TotalPages: result.TotalPages,
		TotalItems: result.TotalItems,
	}, nil
}

// call performs a JSON-RPC 2.0 request and decodes "result" into out.
func (c *OdyseeClient) call(ctx context.Context, endpoint, method string, params map[string]any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	payload := string(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: err}
	}
	req.Header.Set("Content-Type", "application/json-rpc")

	data, err := c.do(req, endpoint, payload)
	if err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return &APIError{Endpoint: endpoint, Payload: payload, Message: errorMessage(resp.Error)}
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: fmt.Errorf("malformed response: missing result")}
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: fmt.Errorf("malformed result: %w", err)}
	}
	return nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// postForm performs a form-encoded POST against the web API and decodes "data" into out.
func (c *OdyseeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	endpoint := c.endpoints.API + path
	payload := redact(form).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	data, err := c.do(req, endpoint, payload)
	if err != nil {
		return err
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !resp.Success {
		return &APIError{Endpoint: endpoint, Payload: payload, Message: errorMessage(resp.Error)}
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return &TransportError{Endpoint: endpoint, Payload: payload, Err: fmt.Errorf("malformed data: %w", err)}
	}
	return nil
}

// do sends the request and returns the body of a 2xx response.
func (c *OdyseeClient) do(req *http.Request, endpoint, payload string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, &TransportError{Endpoint: endpoint, Payload: payload, Err: err}
		}
	}
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin)

	log.Debug().Str("endpoint", endpoint).Str("payload", payload).Msg("Calling Odysee API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Payload: payload, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Payload: payload, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Endpoint:   endpoint,
			Payload:    payload,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBody),
		}
	}
	return data, nil
}

// ResolveChannel looks up a channel claim by its claim id.
func (c *OdyseeClient) ResolveChannel(ctx context.Context, pageSize int, channelID string) (*odysee.Claim, error) {
	req := c.ClaimSearchRequest(pageSize, map[string]any{"claim_ids": []string{channelID}})
	page, err := c.FetchPage(ctx, req, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, &NotFoundError{Kind: "channel", ID: channelID}
	}

	var channel odysee.Claim
	if err := json.Unmarshal(page.Items[0], &channel); err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Payload: channelID, Err: fmt.Errorf("malformed channel claim: %w", err)}
	}
	return &channel, nil
}

// AuthToken requests a new anonymous session token.
func (c *OdyseeClient) AuthToken(ctx context.Context) (string, error) {
	var data struct {
		AuthToken string `json:"auth_token"`
	}
	if err := c.postForm(ctx, "/user/new", url.Values{}, &data); err != nil {
		return "", err
	}
	if data.AuthToken == "" {
		return "", &APIError{Endpoint: c.endpoints.API + "/user/new", Message: "empty auth_token"}
	}
	return data.AuthToken, nil
}

// ViewCount returns the view counter of a claim. Requires an auth token.
func (c *OdyseeClient) ViewCount(ctx context.Context, authToken, claimID string) (int64, error) {
	var data []int64
	form := url.Values{"auth_token": {authToken}, "claim_id": {claimID}}
	if err := c.postForm(ctx, "/file/view_count", form, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &APIError{Endpoint: c.endpoints.API + "/file/view_count", Payload: claimID, Message: "empty view count"}
	}
	return data[0], nil
}

// Reactions returns the like/dislike counters other users left on a claim. Requires an auth token.
func (c *OdyseeClient) Reactions(ctx context.Context, authToken, claimID string) (odysee.Reactions, error) {
	var data struct {
		OthersReactions map[string]struct {
			Like    int64 `json:"like"`
			Dislike int64 `json:"dislike"`
		} `json:"others_reactions"`
	}
	form := url.Values{"auth_token": {authToken}, "claim_ids": {claimID}}
	if err := c.postForm(ctx, "/reaction/list", form, &data); err != nil {
		return odysee.Reactions{}, err
	}
	r, ok := data.OthersReactions[claimID]
	if !ok {
		return odysee.Reactions{}, &NotFoundError{Kind: "reactions for claim", ID: claimID}
	}
	return odysee.Reactions{Likes: r.Like, Dislikes: r.Dislike}, nil
}

// CommentCount returns the total number of comments (replies included) of a claim.
func (c *OdyseeClient) CommentCount(ctx context.Context, claimID string) (int64, error) {
	page, err := c.FetchPage(ctx, c.CommentListRequest(1, claimID), 1)
	if err != nil {
		return 0, err
	}
	return int64(page.TotalItems), nil
}

// Thumbnail downloads a thumbnail image.
func (c *OdyseeClient) Thumbnail(ctx context.Context, thumbnailURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, thumbnailURL, nil)
	if err != nil {
		return nil, &TransportError{Endpoint: thumbnailURL, Err: err}
	}
	return c.do(req, thumbnailURL, "")
}

// errorMessage extracts a readable message from an "error" field that can be an object
// with a message, a plain string, or anything else.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func redact(form url.Values) url.Values {
	out := make(url.Values, len(form))
	for k, v := range form {
		if k == "auth_token" {
			out[k] = []string{"REDACTED"}
			continue
		}
		out[k] = v
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
