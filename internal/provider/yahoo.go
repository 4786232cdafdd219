package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"

	pricePath    = "$.chart.result[0].meta.regularMarketPrice"
	currencyPath = "$.chart.result[0].meta.currency"
	errorPath    = "$.chart.error.description"
)

var yahooTicker = regexp.MustCompile(`^[A-Za-z0-9.\-^=]{1,20}$`)

// YahooProvider fetches prices from the Yahoo Finance chart API.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	now        func() time.Time
}

// NewYahooProvider creates a new Yahoo Finance price provider.
func NewYahooProvider(httpClient *http.Client) *YahooProvider {
	return &YahooProvider{
		httpClient: httpClient,
		baseURL:    yahooBaseURL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the provider's display name.
func (p *YahooProvider) Name() string { return "Yahoo Finance" }

// Supports returns true for ticker symbols Yahoo can resolve, including
// exchange suffixes such as "SHOP.TO" and index symbols such as "^GSPC".
func (p *YahooProvider) Supports(ticker string) bool {
	return yahooTicker.MatchString(ticker)
}

// FetchQuotes fetches one chart per distinct ticker. Positions sharing a
// ticker share the quote.
func (p *YahooProvider) FetchQuotes(ctx context.Context, targets []Target) ([]Quote, []FetchError) {
	if len(targets) == 0 {
		return nil, nil
	}

	byTicker := make(map[string][]Target)
	var order []string
	for _, t := range targets {
		key := strings.ToUpper(t.Ticker)
		if _, ok := byTicker[key]; !ok {
			order = append(order, key)
		}
		byTicker[key] = append(byTicker[key], t)
	}

	var quotes []Quote
	var fetchErrors []FetchError
	for _, ticker := range order {
		price, currency, err := p.fetchChart(ctx, ticker)
		for _, t := range byTicker[ticker] {
			if err != nil {
				fetchErrors = append(fetchErrors, FetchError{PositionID: t.PositionID, Ticker: t.Ticker, Err: err})
				continue
			}
			quotes = append(quotes, Quote{
				PositionID: t.PositionID,
				Ticker:     t.Ticker,
				Price:      price,
				Currency:   currency,
				RecordedAt: p.now(),
			})
		}
	}

	return quotes, fetchErrors
}

// fetchChart retrieves the latest regular market price for one ticker.
func (p *YahooProvider) fetchChart(ctx context.Context, ticker string) (decimal.Decimal, string, error) {
	u := p.baseURL + "/" + url.PathEscape(ticker) + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var doc any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		if resp.StatusCode != http.StatusOK {
			return decimal.Zero, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return decimal.Zero, "", fmt.Errorf("decoding response: %w", err)
	}

	if msg, ok := lookupString(doc, errorPath); ok && msg != "" {
		return decimal.Zero, "", fmt.Errorf("chart error: %s", msg)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	price, err := lookupDecimal(doc, pricePath)
	if err != nil {
		return decimal.Zero, "", err
	}
	if !price.IsPositive() {
		return decimal.Zero, "", fmt.Errorf("non-positive price %s for %s", price, ticker)
	}

	currency, _ := lookupString(doc, currencyPath)
	return price, currency, nil
}

// lookup evaluates path against doc. jsonpath returns either the value or a
// one-element list depending on the expression, so lists are unwrapped.
func lookup(doc any, path string) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, errors.New("no match")
		}
		v = list[0]
	}
	return v, nil
}

func lookupString(doc any, path string) (string, bool) {
	v, err := lookup(doc, path)
	if err != nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func lookupDecimal(doc any, path string) (decimal.Decimal, error) {
	v, err := lookup(doc, path)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price not found at %s: %w", path, err)
	}
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	default:
		return decimal.Zero, fmt.Errorf("price at %s is %T, not a number", path, v)
	}
}
