// Package yahoo fetches daily closing prices from the Yahoo Finance chart
// API and assembles them into a market.Table.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/marketsync/marketsync/market"
)

// DefaultBaseURL is the public Yahoo Finance query endpoint.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Periods enumerates the lookback ranges the chart API accepts and the
// dashboard exposes.
var Periods = []string{"1y", "2y", "5y", "10y"}

// ValidPeriod reports whether period is one of the recognized ranges.
func ValidPeriod(period string) bool {
	for _, p := range Periods {
		if p == period {
			return true
		}
	}
	return false
}

// Symbols maps the tickers to fetch onto table column names. Currency may
// be empty, in which case the table has two columns.
type Symbols struct {
	Foreign  string // e.g. "^GSPC"
	Domestic string // e.g. "1306.T"
	Currency string // e.g. "JPY=X", optional
}

// Client is a Yahoo Finance chart API client.
type Client struct {
	baseURL    string
	symbols    Symbols
	httpClient *http.Client
	log        *logrus.Logger
}

// NewClient creates a client against the given base URL (DefaultBaseURL
// for production, an httptest server for tests).
func NewClient(baseURL string, symbols Symbols, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.New()
	}
	return &Client{
		baseURL: baseURL,
		symbols: symbols,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// chartResponse mirrors the subset of the v8 chart payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// closesBy maps a calendar date (UTC midnight) to a closing price.
type closesBy map[time.Time]float64

// FetchTable downloads daily closes for all configured symbols over the
// requested period and aligns them by calendar date. The currency symbol
// is optional: if it fails or returns nothing, the table simply omits that
// column. A missing foreign or domestic series is an error for the caller
// to classify.
func (c *Client) FetchTable(ctx context.Context, period string) (*market.Table, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("unsupported period %q (want one of %v)", period, Periods)
	}

	type fetched struct {
		name   string
		closes closesBy
	}
	var cols []fetched

	required := []struct {
		symbol string
		name   string
	}{
		{c.symbols.Foreign, market.SP500},
		{c.symbols.Domestic, market.Topix},
	}
	for _, rq := range required {
		closes, err := c.fetchCloses(ctx, rq.symbol, period)
		if err != nil {
			return nil, fmt.Errorf("fetch %s (%s): %w", rq.name, rq.symbol, err)
		}
		cols = append(cols, fetched{name: rq.name, closes: closes})
	}

	if c.symbols.Currency != "" {
		closes, err := c.fetchCloses(ctx, c.symbols.Currency, period)
		if err != nil {
			c.log.WithError(err).WithField("symbol", c.symbols.Currency).
				Warn("currency fetch failed, continuing without it")
		} else {
			cols = append(cols, fetched{name: market.USDJPY, closes: closes})
		}
	}

	// Union of all dates, sorted; unseen dates become NaN and are handled
	// by the gap fill.
	dateSet := map[time.Time]bool{}
	for _, col := range cols {
		for d := range col.closes {
			dateSet[d] = true
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := &market.Table{Dates: dates}
	for _, col := range cols {
		values := make([]float64, len(dates))
		for i, d := range dates {
			if v, ok := col.closes[d]; ok {
				values[i] = v
			} else {
				values[i] = math.NaN()
			}
		}
		table.Series = append(table.Series, market.Series{Name: col.name, Values: values})
	}

	filled := table.FillGaps()
	if filled.Len() == 0 {
		return nil, fmt.Errorf("no usable rows after gap fill for period %s", period)
	}
	if err := filled.Validate(); err != nil {
		return nil, fmt.Errorf("assemble table: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"period":  period,
		"rows":    filled.Len(),
		"columns": len(filled.Series),
	}).Debug("price table fetched")

	return filled, nil
}

func (c *Client) fetchCloses(ctx context.Context, symbol, period string) (closesBy, error) {
	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")
	params.Set("events", "history")

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; marketsync/1.0)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("decode chart response: %w", err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("empty chart result")
	}

	result := cr.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data")
	}
	closes := result.Indicators.Quote[0].Close
	if len(result.Timestamp) != len(closes) {
		return nil, fmt.Errorf("timestamp/close length mismatch: %d vs %d", len(result.Timestamp), len(closes))
	}

	out := closesBy{}
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue // halted or unquoted day
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		out[day] = *closes[i]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no closes returned")
	}
	return out, nil
}
