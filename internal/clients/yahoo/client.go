// Package yahoo downloads daily closing prices from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/timeseries"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client for the Yahoo Finance v8 chart endpoint
type Client struct {
	http    *resty.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new chart API client with retry on 429 and 5xx.
func NewClient(log zerolog.Logger) *Client {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0").
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:    client,
		baseURL: defaultBaseURL,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// SetBaseURL points the client at another host (used by tests).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// SetRetry overrides the retry policy.
func (c *Client) SetRetry(count int, wait time.Duration) {
	c.http.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(wait)
}

// chartResponse is the response structure from the chart API.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency  string `json:"currency"`
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyCloses returns split/dividend-adjusted daily closes for symbol in
// [from, to], oldest first. Null bars (holidays, halted days) are skipped.
// Each point is dated by the exchange-local trading day.
func (c *Client) DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]timeseries.Point, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"period1":  strconv.FormatInt(from.Unix(), 10),
			"period2":  strconv.FormatInt(to.Unix(), 10),
			"events":   "div,split",
		}).
		Get(c.baseURL + "/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("yahoo %s: status %d", symbol, resp.StatusCode())
		}
		return nil, fmt.Errorf("yahoo decode %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error for %s: %s: %s", symbol, chart.Chart.Error.Code, chart.Chart.Error.Description)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: status %d", symbol, resp.StatusCode())
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned", symbol)
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 && len(result.Indicators.Quote[0].Close) == len(result.Timestamp) {
		closes = result.Indicators.Quote[0].Close
	} else if len(result.Timestamp) > 0 {
		return nil, fmt.Errorf("yahoo %s: close series does not match %d timestamps", symbol, len(result.Timestamp))
	}

	points := make([]timeseries.Point, 0, len(result.Timestamp))
	skipped := 0
	for i, ts := range result.Timestamp {
		if closes[i] == nil || *closes[i] <= 0 {
			skipped++
			continue
		}
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		points = append(points, timeseries.Point{Date: timeseries.Day(local), Value: *closes[i]})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("currency", result.Meta.Currency).
		Int("points", len(points)).
		Int("skipped", skipped).
		Msg("Fetched daily closes")

	return points, nil
}
