package client

import (
	"bytes"
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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/terra-clan/build-directory/internal/models"
)

// ErrNotFound is returned (wrapped in *APIError) for 404 responses
var ErrNotFound = errors.New("resource not found")

// APIError is a non-success response from the marketplace API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client is a Go SDK for the Kamshet.Build marketplace API.
//
// Listing requests go through a plain HTTP client and are never retried by
// the transport: the listing controller decides when to fetch again. Other
// reads (profiles, reviews, projects, featured) use a retrying transport.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retryClient *retryablehttp.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for listing requests
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of both transports
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
		c.retryClient.HTTPClient.Timeout = timeout
	}
}

// WithAPIKey sets the bearer token sent with every request
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithRetryMax sets how often idempotent detail reads are retried
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = n
	}
}

// WithRetryWait bounds the backoff between retries
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryWaitMin = min
		c.retryClient.RetryWaitMax = max
	}
}

// WithLogger routes retry diagnostics to zap
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		c.retryClient.Logger = retryLogger{log.Sugar()}
	}
}

// NewClient creates a new marketplace API client
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient = &http.Client{Timeout: 30 * time.Second}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retryClient: retryClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListParams are the query parameters of GET /api/professionals
type ListParams struct {
	Profession     string
	Location       string
	Specialization string
	Search         string
	SortBy         string
	BudgetMin      *int64
	BudgetMax      *int64
	Page           int
}

// Values encodes the params; page is always present
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Profession != "" {
		v.Set("profession", p.Profession)
	}
	if p.Location != "" {
		v.Set("location", p.Location)
	}
	if p.Specialization != "" {
		v.Set("specialization", p.Specialization)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.BudgetMin != nil {
		v.Set("budgetMin", strconv.FormatInt(*p.BudgetMin, 10))
	}
	if p.BudgetMax != nil {
		v.Set("budgetMax", strconv.FormatInt(*p.BudgetMax, 10))
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	return v
}

// ListResponse is the listing payload. Older API versions name the item
// array "professionals"; both spellings are accepted.
type ListResponse struct {
	Items         []models.Professional `json:"items"`
	Professionals []models.Professional `json:"professionals"`
	TotalPages    int                   `json:"totalPages"`
	TotalCount    int                   `json:"totalCount"`
}

// ResultPage converts the payload into a normalized ResultPage
func (r *ListResponse) ResultPage() *models.ResultPage {
	items := r.Items
	if items == nil {
		items = r.Professionals
	}
	page := &models.ResultPage{
		Items:      items,
		TotalPages: r.TotalPages,
		TotalCount: r.TotalCount,
	}
	page.Normalize()
	return page
}

// ListProfessionals fetches one page of professionals matching params
func (c *Client) ListProfessionals(ctx context.Context, params ListParams) (*ListResponse, error) {
	resp, err := c.doRequest(ctx, c.httpClient, http.MethodGet, "/api/professionals?"+params.Values().Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result ListResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// FeaturedProfessionals returns highlighted professionals, optionally
// restricted to one profession
func (c *Client) FeaturedProfessionals(ctx context.Context, profession string, limit int) ([]models.Professional, error) {
	v := url.Values{}
	if profession != "" {
		v.Set("profession", profession)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/professionals/featured"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var result []models.Professional
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetProfessional retrieves a professional by ID
func (c *Client) GetProfessional(ctx context.Context, id int64) (*models.Professional, error) {
	var result models.Professional
	if err := c.getJSON(ctx, fmt.Sprintf("/api/professionals/%d", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListReviews retrieves reviews of a professional
func (c *Client) ListReviews(ctx context.Context, professionalID int64) ([]models.Review, error) {
	var result []models.Review
	if err := c.getJSON(ctx, fmt.Sprintf("/api/professionals/%d/reviews", professionalID), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListProjects retrieves the portfolio of a professional
func (c *Client) ListProjects(ctx context.Context, professionalID int64) ([]models.Project, error) {
	var result []models.Project
	if err := c.getJSON(ctx, fmt.Sprintf("/api/professionals/%d/projects", professionalID), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetProject retrieves one portfolio project with its images
func (c *Client) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var result models.Project
	if err := c.getJSON(ctx, fmt.Sprintf("/api/projects/%d", id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateReview posts a review of a professional. It is not retried.
func (c *Client) CreateReview(ctx context.Context, professionalID int64, review models.CreateReviewRequest) (*models.Review, error) {
	body, err := json.Marshal(review)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.doRequest(ctx, c.httpClient, http.MethodPost,
		fmt.Sprintf("/api/professionals/%d/reviews", professionalID), body)
	if err != nil {
		return nil, err
	}

	var result models.Review
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// Health checks if the marketplace API is reachable
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, c.httpClient, http.MethodGet, "/api/health", nil)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, c.retryClient.StandardClient(), http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request; body is sent as JSON when non-nil
func (c *Client) doRequest(ctx context.Context, httpClient *http.Client, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
