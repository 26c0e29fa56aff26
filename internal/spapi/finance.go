package spapi

import (
	"context"
	"fmt"
	"time"
)

// FeeEvent is one normalized fee line from the Finance API. The upstream
// event envelope is deeply nested; the client flattens it to the fields
// fee ingestion needs.
type FeeEvent struct {
	MarketplaceID string
	SellerSKU     string
	OrderID       string
	FeeType       string
	Amount        string
	Currency      string
	PostedAt      time.Time
}

// FinancialEventsPage is one page of finance events.
type FinancialEventsPage struct {
	Events    []FeeEvent
	NextToken string
}

type financialEventsResponse struct {
	Payload struct {
		NextToken           string `json:"NextToken"`
		FinancialEvents struct {
			ShipmentEventList []shipmentEvent `json:"ShipmentEventList"`
			ServiceFeeEventList []serviceFeeEvent `json:"ServiceFeeEventList"`
		} `json:"FinancialEvents"`
	} `json:"payload"`
}

type currencyAmount struct {
	CurrencyCode   string  `json:"CurrencyCode"`
	CurrencyAmount float64 `json:"CurrencyAmount"`
}

type feeComponent struct {
	FeeType   string         `json:"FeeType"`
	FeeAmount currencyAmount `json:"FeeAmount"`
}

type shipmentEvent struct {
	AmazonOrderID  string `json:"AmazonOrderId"`
	MarketplaceName string `json:"MarketplaceName"`
	PostedDate     string `json:"PostedDate"`
	ShipmentItemList []struct {
		SellerSKU    string         `json:"SellerSKU"`
		ItemFeeList  []feeComponent `json:"ItemFeeList"`
	} `json:"ShipmentItemList"`
}

type serviceFeeEvent struct {
	AmazonOrderID string         `json:"AmazonOrderId"`
	SellerSKU     string         `json:"SellerSKU"`
	FeeList       []feeComponent `json:"FeeList"`
	PostedDate    string         `json:"PostedDate"`
}

// ListFinancialEvents fetches one page of finance events for a posted-date
// window, flattened to fee lines.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - start, end: posted-date window.
//   - nextToken: pagination token from the previous page, empty for first.
// Returns:
//   - *FinancialEventsPage: flattened fee lines plus pagination token.
//   - error: non-nil if the request fails.
func (c *Client) ListFinancialEvents(ctx context.Context, start, end time.Time, nextToken string) (*FinancialEventsPage, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("x-amz-access-token", token)
	if nextToken != "" {
		req.SetQueryParam("NextToken", nextToken)
	} else {
		req.SetQueryParam("PostedAfter", start.UTC().Format(time.RFC3339))
		req.SetQueryParam("PostedBefore", end.UTC().Format(time.RFC3339))
	}

	var result financialEventsResponse
	var errBody apiError
	resp, err := req.
		SetResult(&result).
		SetError(&errBody).
		Get(c.endpoint + "/finances/v0/financialEvents")
	if err != nil {
		return nil, fmt.Errorf("list financial events failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list financial events rejected: status=%d %s", resp.StatusCode(), errBody.message())
	}

	page := &FinancialEventsPage{NextToken: result.Payload.NextToken}
	for _, ev := range result.Payload.FinancialEvents.ShipmentEventList {
		posted := parsePostedDate(ev.PostedDate)
		for _, item := range ev.ShipmentItemList {
			for _, fee := range item.ItemFeeList {
				page.Events = append(page.Events, FeeEvent{
					MarketplaceID: ev.MarketplaceName,
					SellerSKU:     item.SellerSKU,
					OrderID:       ev.AmazonOrderID,
					FeeType:       fee.FeeType,
					Amount:        fmt.Sprintf("%.2f", fee.FeeAmount.CurrencyAmount),
					Currency:      fee.FeeAmount.CurrencyCode,
					PostedAt:      posted,
				})
			}
		}
	}
	for _, ev := range result.Payload.FinancialEvents.ServiceFeeEventList {
		posted := parsePostedDate(ev.PostedDate)
		for _, fee := range ev.FeeList {
			page.Events = append(page.Events, FeeEvent{
				SellerSKU: ev.SellerSKU,
				OrderID:   ev.AmazonOrderID,
				FeeType:   fee.FeeType,
				Amount:    fmt.Sprintf("%.2f", fee.FeeAmount.CurrencyAmount),
				Currency:  fee.FeeAmount.CurrencyCode,
				PostedAt:  posted,
			})
		}
	}
	return page, nil
}

func parsePostedDate(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
