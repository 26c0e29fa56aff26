package spapi

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

// Report processing statuses returned by the SP-API reports endpoint.
const (
	ReportStatusInQueue    = "IN_QUEUE"
	ReportStatusInProgress = "IN_PROGRESS"
	ReportStatusDone       = "DONE"
	ReportStatusCancelled  = "CANCELLED"
	ReportStatusFatal      = "FATAL"
)

// Client is the SP-API reports client for one region. Credentials and the
// endpoint are fixed at construction; there is no global registry.
type Client struct {
	http     *resty.Client
	endpoint string

	// LWA token exchange
	tokenURL     string
	clientID     string
	clientSecret string
	refreshToken string

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Config holds construction parameters for a regional SP-API client.
type Config struct {
	Endpoint     string // e.g. https://sellingpartnerapi-na.amazon.com
	TokenURL     string // LWA token endpoint; defaults to the public one
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// NewClient creates a new SP-API reports client.
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
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// token returns a valid LWA access token, refreshing when within a minute
// of expiry.
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
		return "", fmt.Errorf("LWA token request failed: %w", err)
	}
	if resp.IsError() || tok.AccessToken == "" {
		return "", fmt.Errorf("LWA token request failed: status=%d error=%s %s", resp.StatusCode(), tok.Error, tok.ErrorDesc)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type createReportRequest struct {
	ReportType     string            `json:"reportType"`
	MarketplaceIDs []string          `json:"marketplaceIds"`
	ReportOptions  map[string]string `json:"reportOptions,omitempty"`
	DataStartTime  *time.Time        `json:"dataStartTime,omitempty"`
	DataEndTime    *time.Time        `json:"dataEndTime,omitempty"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

// ReportStatus is the status view of one upstream report request.
type ReportStatus struct {
	ReportID         string `json:"reportId"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
	// SP-API has no structured failure reason on reports; CANCELLED and
	// FATAL are reported through ProcessingStatus only.
}

// ReportDocument describes where to fetch a completed report document.
type ReportDocument struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm"`
}

type apiError struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (e *apiError) message() string {
	if len(e.Errors) == 0 {
		return "unknown error"
	}
	return e.Errors[0].Code + ": " + e.Errors[0].Message
}

// CreateReport requests generation of a new report upstream.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - reportType: upstream report type string.
//   - marketplaceIDs: marketplaces to cover; empty means account-wide.
//   - options: upstream report options.
//   - start, end: optional data window bounds.
// Returns:
//   - string: upstream report id.
//   - error: non-nil if the request fails.
func (c *Client) CreateReport(ctx context.Context, reportType string, marketplaceIDs []string, options map[string]string, start, end *time.Time) (string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	var result createReportResponse
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", token).
		SetBody(createReportRequest{
			ReportType:     reportType,
			MarketplaceIDs: marketplaceIDs,
			ReportOptions:  options,
			DataStartTime:  start,
			DataEndTime:    end,
		}).
		SetResult(&result).
		SetError(&errBody).
		Post(c.endpoint + "/reports/2021-06-30/reports")
	if err != nil {
		return "", fmt.Errorf("create report request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("create report rejected: status=%d %s", resp.StatusCode(), errBody.message())
	}
	if result.ReportID == "" {
		return "", fmt.Errorf("create report returned empty reportId")
	}
	return result.ReportID, nil
}

// GetReport fetches the current processing status of a report.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - reportID: upstream report id.
// Returns:
//   - *ReportStatus: current status including document id when done.
//   - error: non-nil if the request fails.
func (c *Client) GetReport(ctx context.Context, reportID string) (*ReportStatus, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var result ReportStatus
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", token).
		SetResult(&result).
		SetError(&errBody).
		Get(c.endpoint + "/reports/2021-06-30/reports/" + reportID)
	if err != nil {
		return nil, fmt.Errorf("get report status failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get report status rejected: status=%d %s", resp.StatusCode(), errBody.message())
	}
	return &result, nil
}

// GetReportDocument resolves a document id into its download location.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: upstream document id.
// Returns:
//   - *ReportDocument: download URL and compression flag.
//   - error: non-nil if the request fails.
func (c *Client) GetReportDocument(ctx context.Context, documentID string) (*ReportDocument, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var result ReportDocument
	var errBody apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", token).
		SetResult(&result).
		SetError(&errBody).
		Get(c.endpoint + "/reports/2021-06-30/documents/" + documentID)
	if err != nil {
		return nil, fmt.Errorf("get report document failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get report document rejected: status=%d %s", resp.StatusCode(), errBody.message())
	}
	if result.URL == "" {
		return nil, fmt.Errorf("report document %s has no download URL", documentID)
	}
	return &result, nil
}

// DownloadDocument fetches the raw document bytes from its pre-signed URL,
// gzip-decompressing when the document metadata says so. The download URL
// is unauthenticated; no LWA token is attached.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - doc: document location from GetReportDocument.
// Returns:
//   - []byte: decompressed document bytes.
//   - error: non-nil if the download or decompression fails.
func (c *Client) DownloadDocument(ctx context.Context, doc *ReportDocument) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("document download failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("document download rejected: status=%d", resp.StatusCode())
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("document read failed: %w", err)
	}

	if doc.CompressionAlgorithm == "GZIP" {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("document gzip open failed: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("document gzip read failed: %w", err)
		}
	}

	return data, nil
}
