package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ReportJobStatus represents the lifecycle status of a report job.
// Values include ReportJobQueued, ReportJobInProgress, ReportJobCompleted, and ReportJobFailed.
type ReportJobStatus string

const (
	ReportJobQueued     ReportJobStatus = "queued"
	ReportJobInProgress ReportJobStatus = "in_progress"
	ReportJobCompleted  ReportJobStatus = "completed"
	ReportJobFailed     ReportJobStatus = "failed"
)

// NonTerminalStatuses lists the statuses eligible for polling.
var NonTerminalStatuses = []ReportJobStatus{ReportJobQueued, ReportJobInProgress}

// IsTerminal reports whether the status is completed or failed.
// Parameters: none.
// Returns:
//   - bool: true when the status permits no further transitions.
func (s ReportJobStatus) IsTerminal() bool {
	return s == ReportJobCompleted || s == ReportJobFailed
}

// StringMap is a custom type for storing string maps as JSON in the database.
type StringMap map[string]string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = StringMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// ReportJob represents one tracked request for an asynchronously-generated
// upstream report, from creation through ingestion.
// Fields cover identity, requested scope, external correlation, lifecycle
// timestamps, and ingestion outcome.
type ReportJob struct {
	ID string `gorm:"type:text;primaryKey" json:"id"`

	// Identity
	Provider      string `gorm:"type:text;not null;index:idx_report_jobs_identity" json:"provider"`
	Processor     string `gorm:"type:text;not null;index:idx_report_jobs_identity" json:"processor"`
	Region        string `gorm:"type:text" json:"region"`
	MarketplaceID string `gorm:"type:text;index:idx_report_jobs_identity" json:"marketplace_id"`
	ReportType    string `gorm:"type:text;not null;index:idx_report_jobs_identity" json:"report_type"`

	// Scope
	ScopeFingerprint string     `gorm:"type:text;index:idx_report_jobs_scope" json:"scope_fingerprint"`
	Scope            StringMap  `gorm:"type:text" json:"scope"`
	ReportOptions    StringMap  `gorm:"type:text" json:"report_options"`
	DataStartTime    *time.Time `json:"data_start_time,omitempty"`
	DataEndTime      *time.Time `json:"data_end_time,omitempty"`

	// External correlation
	ExternalReportID   string `gorm:"type:text;index" json:"external_report_id"`
	ExternalDocumentID string `gorm:"type:text" json:"external_document_id"`
	DocumentURLSHA256  string `gorm:"type:text" json:"document_url_sha256"`

	// Lifecycle
	Status        ReportJobStatus `gorm:"type:text;index:idx_report_jobs_status;default:queued" json:"status"`
	RequestedAt   time.Time       `json:"requested_at"`
	LastPolledAt  *time.Time      `json:"last_polled_at,omitempty"`
	NextPollAt    time.Time       `gorm:"index:idx_report_jobs_next_poll" json:"next_poll_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	AttemptCount  int             `gorm:"default:0" json:"attempt_count"`
	StuckAlertedAt *time.Time     `json:"stuck_alerted_at,omitempty"`

	// Outcome
	RowsParsed   int    `gorm:"default:0" json:"rows_parsed"`
	RowsIngested int    `gorm:"default:0" json:"rows_ingested"`
	LastError    string `json:"last_error,omitempty"`
	DebugPayload string `json:"debug_payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for ReportJob.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ReportJob) TableName() string {
	return "report_jobs"
}
