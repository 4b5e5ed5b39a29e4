// Package sheets fetches worksheet rows from the Google Sheets v4 values API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bandungair/udara/internal/domain/reading"
	"github.com/bandungair/udara/internal/port/rowsource"
)

// Client reads public or API-key-shared spreadsheets. It implements
// rowsource.Source.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Sheets API client. timeout bounds each fetch.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// valuesResponse is the Sheets API values.get payload.
type valuesResponse struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Fetch returns the worksheet's data rows. The first sheet row is treated as
// the header; shorter data rows are padded with empty strings. Rate-limit
// responses are returned as *rowsource.RateLimitError.
func (c *Client) Fetch(ctx context.Context, spreadsheetID, worksheet string) ([]reading.Record, error) {
	u := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?key=%s",
		c.baseURL,
		url.PathEscape(spreadsheetID),
		url.PathEscape(worksheet),
		url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := fmt.Errorf("sheets API error %d: %s", resp.StatusCode, errorMessage(data))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, &rowsource.RateLimitError{Err: apiErr}
		}
		return nil, apiErr
	}

	var payload valuesResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return toRecords(payload.Values), nil
}

func errorMessage(data []byte) string {
	var e apiError
	if err := json.Unmarshal(data, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return string(data)
}

// toRecords converts the raw value grid to records keyed by the header row.
func toRecords(values [][]any) []reading.Record {
	if len(values) < 2 {
		return nil
	}

	header := make([]string, 0, len(values[0]))
	for _, cell := range values[0] {
		header = append(header, strings.TrimSpace(cellString(cell)))
	}

	records := make([]reading.Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := reading.NewRecord()
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec.Set(name, row[i])
			} else {
				rec.Set(name, "")
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}
