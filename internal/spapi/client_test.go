package spapi

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer stands in for both the LWA token endpoint and the reports
// API so a single Client config covers the whole exchange.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/o2/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewClient(&Config{
		Endpoint:     srv.URL,
		TokenURL:     srv.URL + "/auth/o2/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
	})
	return srv, client
}

func TestCreateReport(t *testing.T) {
	var gotToken string
	var gotBody createReportRequest

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reports/2021-06-30/reports" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get("x-amz-access-token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"reportId": "report-123"})
	})

	reportID, err := client.CreateReport(context.Background(), "GET_MERCHANT_LISTINGS_ALL_DATA", []string{"ATVPDKIKX0DER"}, map[string]string{"custom": "true"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reportID != "report-123" {
		t.Errorf("reportID = %q, want report-123", reportID)
	}
	if gotToken != "test-token" {
		t.Errorf("access token header = %q, want test-token", gotToken)
	}
	if gotBody.ReportType != "GET_MERCHANT_LISTINGS_ALL_DATA" {
		t.Errorf("report type = %q", gotBody.ReportType)
	}
	if gotBody.ReportOptions["custom"] != "true" {
		t.Errorf("report options not forwarded: %v", gotBody.ReportOptions)
	}
}

func TestCreateReportRejection(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"code": "Unauthorized", "message": "Access denied"}},
		})
	})

	_, err := client.CreateReport(context.Background(), "GET_MERCHANT_LISTINGS_ALL_DATA", nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for rejected request")
	}
	if !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("error should carry the upstream code, got %v", err)
	}
}

func TestGetReport(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/2021-06-30/reports/report-123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"reportId":         "report-123",
			"processingStatus": "DONE",
			"reportDocumentId": "doc-456",
		})
	})

	status, err := client.GetReport(context.Background(), "report-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ProcessingStatus != ReportStatusDone {
		t.Errorf("status = %q, want DONE", status.ProcessingStatus)
	}
	if status.ReportDocumentID != "doc-456" {
		t.Errorf("document id = %q, want doc-456", status.ReportDocumentID)
	}
}

func TestDownloadDocumentGzip(t *testing.T) {
	content := "seller-sku\tasin1\nSKU1\tB000X\n"

	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-amz-access-token") != "" {
			t.Error("download URL must not carry the LWA token")
		}
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(content))
		_ = gz.Close()
	})

	data, err := client.DownloadDocument(context.Background(), &ReportDocument{
		URL:                  srv.URL + "/download/doc-456",
		CompressionAlgorithm: "GZIP",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != content {
		t.Errorf("decompressed data mismatch: %q", string(data))
	}
}

func TestDownloadDocumentPlain(t *testing.T) {
	content := "seller-sku\tasin1\nSKU1\tB000X\n"

	srv, client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(content))
	})

	data, err := client.DownloadDocument(context.Background(), &ReportDocument{URL: srv.URL + "/download/doc-456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != content {
		t.Errorf("data mismatch: %q", string(data))
	}
}

func TestTokenCached(t *testing.T) {
	tokenCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/o2/token", func(w http.ResponseWriter, _ *http.Request) {
		tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"reportId": "r", "processingStatus": "IN_QUEUE"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(&Config{
		Endpoint:     srv.URL,
		TokenURL:     srv.URL + "/auth/o2/token",
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.GetReport(ctx, "r"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Errorf("token endpoint hit %d times, want 1", tokenCalls)
	}
}
