package processor

import (
	"context"
	"strings"
	"time"

	"github.com/ambergate/sellerops/internal/domain"
	"github.com/ambergate/sellerops/internal/logger"
	"github.com/ambergate/sellerops/internal/report"
	"github.com/ambergate/sellerops/internal/repository"
	"github.com/google/uuid"
)

// sampleLimit bounds how many offending raw rows a processor captures for
// the job's debug payload.
const sampleLimit = 3

// FcInventoryReportType is the one report type in the us_fc_inventory job
// family that actually carries per-FC inventory rows. The family queues
// other report types too; those short-circuit with zero ingested.
const FcInventoryReportType = "GET_AFN_INVENTORY_DATA_BY_COUNTRY"

// FcDirectory keeps the fulfillment-center location directory in sync as
// reports surface FC codes.
type FcDirectory interface {
	Touch(ctx context.Context, code string, seenAt time.Time) error
}

// FcInventoryProcessor ingests FC inventory snapshot rows. Rows are a
// historical ledger; only the most recent snapshot date present in the
// document is kept.
type FcInventoryProcessor struct {
	inventory *repository.FcInventoryRepository
	directory FcDirectory
	log       *logger.Logger
}

// NewFcInventoryProcessor creates a new FcInventoryProcessor.
// Parameters:
//   - inventory: FC inventory repository.
//   - directory: FC location directory hook; nil disables directory sync.
//   - log: logger for row-level diagnostics.
// Returns:
//   - *FcInventoryProcessor: processor instance.
func NewFcInventoryProcessor(inventory *repository.FcInventoryRepository, directory FcDirectory, log *logger.Logger) *FcInventoryProcessor {
	return &FcInventoryProcessor{inventory: inventory, directory: directory, log: log}
}

var (
	fcCodeAliases    = []string{"fulfillment-center-id", "fulfillment_center_id", "fc", "warehouse-location", "location"}
	fcSKUAliases     = []string{"seller-sku", "seller_sku", "sku", "merchant-sku"}
	fcFNSKUAliases   = []string{"fnsku", "fulfillment-network-sku", "fulfillment_network_sku"}
	fcConditionAliases = []string{"item-condition", "item_condition", "condition", "detailed-disposition"}
	fcDateAliases    = []string{"snapshot-date", "snapshot_date", "report-date", "date"}
	fcQuantityAliases = []string{"quantity", "quantity-available", "afn-fulfillable-quantity"}
)

// Bare country/region tokens that show up in the FC column on subtotal and
// rollup lines. They pass a naive length check but are not warehouses.
var countryRegionTokens = map[string]struct{}{
	"US": {}, "USA": {}, "GB": {}, "UK": {}, "DE": {}, "FR": {}, "IT": {},
	"ES": {}, "CA": {}, "MX": {}, "JP": {}, "AU": {}, "IN": {}, "BR": {},
	"NL": {}, "SE": {}, "PL": {}, "TR": {}, "AE": {}, "SG": {},
	"EU": {}, "NA": {}, "FE": {},
}

// ValidFcCode reports whether a value looks like a real fulfillment-center
// code: 4-6 alphanumeric characters containing at least one letter and one
// digit, and not a bare country/region token.
// Parameters:
//   - code: uppercased candidate value.
// Returns:
//   - bool: true when the value is a plausible FC code.
func ValidFcCode(code string) bool {
	if len(code) < 4 || len(code) > 6 {
		return false
	}
	if _, ok := countryRegionTokens[code]; ok {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// Process ingests FC inventory rows for the one report type that carries
// them. It finds the latest snapshot date across all rows, silently drops
// older rows, validates FC codes, and upserts the rest.
func (p *FcInventoryProcessor) Process(ctx context.Context, job *domain.ReportJob, rows []report.Row) (*Result, error) {
	result := &Result{}

	// The job family is reused for several report types; only one carries
	// inventory rows. Short-circuiting the rest is a filter, not an error.
	if job.ReportType != FcInventoryReportType {
		return result, nil
	}

	views := make([]report.RowView, len(rows))
	latest := ""
	for i, row := range rows {
		views[i] = report.NewRowView(row)
		if date, ok := snapshotDate(views[i]); ok && date > latest {
			latest = date
		}
	}

	now := time.Now().UTC()
	seenFCs := make(map[string]struct{})

	for i, view := range views {
		if date, ok := snapshotDate(view); ok && latest != "" && date != latest {
			result.AddExtra("rows_stale", 1)
			continue
		}

		fcRaw, _ := view.Pick(fcCodeAliases...)
		fc := strings.ToUpper(strings.TrimSpace(fcRaw))
		if !ValidFcCode(fc) {
			result.AddExtra("rows_missing_fc", 1)
			if len(result.Samples) < sampleLimit {
				result.Samples = append(result.Samples, rows[i])
			}
			continue
		}

		sku, ok := view.Pick(fcSKUAliases...)
		if !ok {
			result.AddExtra("rows_missing_sku", 1)
			if len(result.Samples) < sampleLimit {
				result.Samples = append(result.Samples, rows[i])
			}
			continue
		}

		fnsku, _ := view.Pick(fcFNSKUAliases...)
		condition, _ := view.Pick(fcConditionAliases...)

		quantity, _ := report.PickQuantity(view, fcQuantityAliases...)

		inv := &domain.FcInventory{
			ID:                  uuid.New().String(),
			MarketplaceID:       job.MarketplaceID,
			FulfillmentCenterID: fc,
			SellerSKU:           sku,
			FNSKU:               fnsku,
			ItemCondition:       normalizeToken(condition),
			Quantity:            quantity,
			SnapshotDate:        latest,
			RawRow:              domain.StringMap(view.Raw()),
			LastSeenAt:          now,
		}

		if err := p.inventory.Upsert(ctx, inv); err != nil {
			return nil, err
		}
		result.RowsIngested++

		if p.directory != nil {
			if _, done := seenFCs[fc]; !done {
				seenFCs[fc] = struct{}{}
				if err := p.directory.Touch(ctx, fc, now); err != nil {
					result.AddExtra("directory_failures", 1)
					p.log.WithError(err).WithField("fc", fc).Warn("FC directory sync failed")
				}
			}
		}
	}

	return result, nil
}

// snapshotDate extracts a row's snapshot date normalized to YYYY-MM-DD so
// dates compare lexicographically.
func snapshotDate(view report.RowView) (string, bool) {
	raw, ok := view.Pick(fcDateAliases...)
	if !ok {
		return "", false
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05", "01/02/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	// Unrecognized format: fall back to the raw prefix so at least
	// identical strings still group together
	if len(raw) >= 10 {
		return raw[:10], true
	}
	return raw, true
}

// normalizeToken lowercases and underscore-folds a free-text cell value.
func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
