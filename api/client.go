package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/philonet/rooms/pkg/config"
	"github.com/philonet/rooms/pkg/errors"
	"github.com/philonet/rooms/pkg/logger"
	"github.com/philonet/rooms/pkg/resilience"
	"github.com/philonet/rooms/session"
)

// Client is a typed HTTP client for the rooms backend. Every call reads
// the session token first and fails fast with an auth error when signed out.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   session.Store
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	log        *logger.Logger
}

// Options tunes a Client beyond the config defaults
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  rate.Limit
	RateBurst  int
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// NewClient creates a client bound to the given session store
func NewClient(sessions session.Store, opts Options) *Client {
	cfg := config.Get()

	if opts.BaseURL == "" {
		opts.BaseURL = cfg.Client.BaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = cfg.Client.Timeout
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = rate.Limit(cfg.Client.RateLimit)
	}
	if opts.RateBurst == 0 {
		opts.RateBurst = cfg.Client.RateLimitBurst
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetGlobal()
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("rooms-api")
	breakerCfg.FailureThreshold = uint(cfg.Client.BreakerThreshold)
	breakerCfg.RetryTimeout = cfg.Client.BreakerReset

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		sessions:   sessions,
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		breaker:    resilience.NewCircuitBreaker(breakerCfg, opts.Logger),
		log:        opts.Logger,
	}
}

// FetchComments lists top-level comments for an article
func (c *Client) FetchComments(ctx context.Context, params FetchCommentsParams) (*CommentsResponse, error) {
	if params.Limit == 0 {
		params.Limit = 10
	}
	var out CommentsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/room/commentsnew", params, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSubComments lists replies under one parent comment
func (c *Client) FetchSubComments(ctx context.Context, params FetchSubCommentsParams) (*SubCommentsResponse, error) {
	if params.Limit == 0 {
		params.Limit = 10
	}
	var out SubCommentsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/room/subcommentsnew", params, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment creates a comment or reply and returns its authoritative id
func (c *Client) AddComment(ctx context.Context, params AddCommentParams) (*AddCommentResponse, error) {
	var out AddCommentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/room/addcommentnew", params, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleReaction flips the caller's reaction on a target and returns the
// server-authoritative count and membership
func (c *Client) ToggleReaction(ctx context.Context, params ToggleReactionParams) (*ToggleReactionResponse, error) {
	if params.TargetType == "" {
		params.TargetType = "comment"
	}
	var out ToggleReactionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/interactions/togglereaction", params, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryAI asks the summarizer a question about the current article
func (c *Client) QueryAI(ctx context.Context, params AIQueryParams) (*AIQueryResponse, error) {
	var out AIQueryResponse
	if err := c.do(ctx, http.MethodPost, "/v1/client/summarymini", params, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchTaggableUsers searches users that can be @-mentioned
func (c *Client) SearchTaggableUsers(ctx context.Context, search string, limit int, excludeCurrent bool) (*TaggableUsersResponse, error) {
	if limit == 0 {
		limit = 10
	}
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("exclude_current", strconv.FormatBool(excludeCurrent))

	var out TaggableUsersResponse
	if err := c.do(ctx, http.MethodGet, "/v1/interactions/taggable-users?"+q.Encode(), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and stores the returned session
func (c *Client) Login(ctx context.Context, params LoginParams) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", params, &out, false); err != nil {
		return nil, err
	}
	if err := c.storeAuth(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account and stores the returned session
func (c *Client) Signup(ctx context.Context, params SignupParams) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", params, &out, false); err != nil {
		return nil, err
	}
	if err := c.storeAuth(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile behind the current session token
func (c *Client) Me(ctx context.Context) (*AuthUser, error) {
	var out AuthUser
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) storeAuth(ctx context.Context, auth *AuthResponse) error {
	return c.sessions.SetAuth(ctx, auth.Token, &session.User{
		ID:         auth.User.ID,
		Name:       auth.User.Name,
		Email:      auth.User.Email,
		DisplayPic: auth.User.DisplayPic,
	})
}

// do runs one request through the limiter and breaker, mapping failures
// onto the auth/network error kinds
func (c *Client) do(ctx context.Context, method, path string, body, out any, withAuth bool) error {
	endpoint := metricEndpoint(path)

	var token string
	if withAuth {
		var err error
		token, err = c.sessions.Token(ctx)
		if err != nil {
			requestsTotal.WithLabelValues(endpoint, outcomeAuth).Inc()
			return err
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewNetworkError(fmt.Sprintf("request cancelled while rate limited: %v", err))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	requestID := uuid.New().String()
	start := time.Now()

	var reqErr error
	err := c.breaker.Execute(func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			reqErr = errors.NewNetworkError(fmt.Sprintf("%s %s failed: %v", method, path, err))
			return reqErr
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			reqErr = errors.NewAuthError("authentication failed: token rejected by backend")
			return reqErr
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			reqErr = errors.NewNetworkError(fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet))))
			return reqErr
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				reqErr = errors.NewNetworkError(fmt.Sprintf("failed to decode %s response: %v", path, err))
				return reqErr
			}
		}
		return nil
	})

	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		// A tripped breaker never produced reqErr
		if reqErr == nil {
			err = errors.NewNetworkError("backend temporarily unavailable: circuit open")
		} else {
			err = reqErr
		}

		outcome := outcomeNetwork
		if errors.IsAuth(err) {
			outcome = outcomeAuth
		}
		requestsTotal.WithLabelValues(endpoint, outcome).Inc()

		c.log.Warn("API request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err.Error(),
		)
		return err
	}

	requestsTotal.WithLabelValues(endpoint, outcomeOK).Inc()
	return nil
}

// metricEndpoint strips the query string so label cardinality stays bounded
func metricEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
