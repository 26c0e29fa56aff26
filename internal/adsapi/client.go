package adsapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Report statuses returned by the Ads reporting endpoint.
const (
	ReportStatusPending    = "PENDING"
	ReportStatusProcessing = "PROCESSING"
	ReportStatusCompleted  = "COMPLETED"
	ReportStatusFailed     = "FAILED"
)

// Client is the Amazon Ads reporting client for one region.
type Client struct {
	http     *resty.Client
	endpoint string

	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config holds construction parameters for a regional Ads client.
type Config struct {
	Endpoint     string // e.g. https://advertising-api.amazon.com
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// NewClient creates a new Ads reporting client.
// Parameters:
//   - cfg: regional endpoint and LWA credentials.
// Returns:
//   - *Client: initialized client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	http := resty.New()
	http.SetTimeout(timeout)
	http.SetHeader("Content-Type", "application/json")

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = "https://api.amazon.com/auth/o2/token"
	}

	return &Client{
		http:         http,
		endpoint:     cfg.Endpoint,
		tokenURL:     tokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		refreshToken: cfg.RefreshToken,
	}
}

type lwaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	var tok lwaTokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": c.refreshToken,
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		SetResult(&tok).
		Post(c.tokenURL)
	if err != nil {
		return "", fmt.Errorf("ads LWA token request failed: %w", err)
	}
	if resp.IsError() || tok.AccessToken == "" {
		return "", fmt.Errorf("ads LWA token request failed: status=%d", resp.StatusCode())
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

func (c *Client) authHeaders(ctx context.Context, profileID string) (map[string]string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":                 "Bearer " + token,
		"Amazon-Advertising-API-ClientId": c.clientID,
		"Amazon-Advertising-API-Scope":    profileID,
	}, nil
}

// CreateReportSpec describes one Ads report request.
type CreateReportSpec struct {
	AdProduct  string   `json:"adProduct"`
	ReportType string   `json:"reportTypeId"`
	StartDate  string   `json:"startDate"` // YYYY-MM-DD
	EndDate    string   `json:"endDate"`
	GroupBy    []string `json:"groupBy,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	TimeUnit   string   `json:"timeUnit,omitempty"`
	Format     string   `json:"format,omitempty"`
}

// ReportStatus is the status view of one Ads report request. HTTPStatus and
// RequestID are captured from transport for the retry telemetry fields on
// the request row.
type ReportStatus struct {
	ReportID      string `json:"reportId"`
	Status        string `json:"status"`
	URL           string `json:"url"`
	FailureReason string `json:"failureReason"`

	HTTPStatus int    `json:"-"`
	RequestID  string `json:"-"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

// CreateReport requests generation of an Ads report for one profile.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID: ads profile scope.
//   - spec: report configuration.
// Returns:
//   - string: upstream report id.
//   - error: non-nil if the request fails.
func (c *Client) CreateReport(ctx context.Context, profileID string, spec *CreateReportSpec) (string, error) {
	headers, err := c.authHeaders(ctx, profileID)
	if err != nil {
		return "", err
	}

	body := map[string]interface{}{
		"name": fmt.Sprintf("%s-%s-%s", spec.ReportType, spec.StartDate, spec.EndDate),
		"startDate": spec.StartDate,
		"endDate":   spec.EndDate,
		"configuration": map[string]interface{}{
			"adProduct":    spec.AdProduct,
			"reportTypeId": spec.ReportType,
			"groupBy":      spec.GroupBy,
			"columns":      spec.Columns,
			"timeUnit":     orDefault(spec.TimeUnit, "DAILY"),
			"format":       orDefault(spec.Format, "GZIP_JSON"),
		},
	}

	var result createReportResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		SetResult(&result).
		Post(c.endpoint + "/reporting/reports")
	if err != nil {
		return "", fmt.Errorf("ads create report failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ads create report rejected: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	if result.ReportID == "" {
		return "", fmt.Errorf("ads create report returned empty reportId")
	}
	return result.ReportID, nil
}

// GetReport fetches the current status of an Ads report.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - profileID: ads profile scope.
//   - reportID: upstream report id.
// Returns:
//   - *ReportStatus: current status with transport telemetry attached.
//   - error: non-nil if the request fails.
func (c *Client) GetReport(ctx context.Context, profileID, reportID string) (*ReportStatus, error) {
	headers, err := c.authHeaders(ctx, profileID)
	if err != nil {
		return nil, err
	}

	var result ReportStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(&result).
		Get(c.endpoint + "/reporting/reports/" + reportID)
	if err != nil {
		return nil, fmt.Errorf("ads get report failed: %w", err)
	}
	result.HTTPStatus = resp.StatusCode()
	result.RequestID = resp.Header().Get("x-amz-request-id")
	if resp.IsError() {
		return &result, fmt.Errorf("ads get report rejected: status=%d", resp.StatusCode())
	}
	return &result, nil
}

// DownloadReport fetches the completed report from its URL and gunzips it.
// Ads reports are always delivered GZIP_JSON.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - url: pre-signed report URL.
// Returns:
//   - []byte: decompressed JSON bytes.
//   - error: non-nil if the download or decompression fails.
func (c *Client) DownloadReport(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("ads report download failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("ads report download rejected: status=%d", resp.StatusCode())
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("ads report read failed: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		// Some sandbox endpoints return plain JSON
		return data, nil
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
