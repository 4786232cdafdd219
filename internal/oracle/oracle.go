// Package oracle fetches market prices for Live positions and pushes them
// back to the portal through the pipeline API.
package oracle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"investorportal/internal/client"
	"investorportal/internal/provider"
)

// PortalClient defines the pipeline API operations needed by the oracle.
type PortalClient interface {
	GetPricingTargets(ctx context.Context) ([]client.PricingTarget, error)
	RecordPrices(ctx context.Context, prices []client.PriceEntry) (*client.RecordResult, error)
}

// RunResult contains the outcome of an oracle run.
type RunResult struct {
	TargetsFetched int
	PricesRecorded int
	Errors         []provider.FetchError
	Rejected       []client.Rejection
	Duration       time.Duration
}

// Failed reports whether any target could not be priced or recorded.
func (r *RunResult) Failed() bool {
	return len(r.Errors) > 0 || len(r.Rejected) > 0
}

// Oracle prices positions through its providers and records the results.
type Oracle struct {
	client    PortalClient
	providers []provider.Provider
	logger    *zap.SugaredLogger
}

// NewOracle creates a new Oracle instance. Providers are tried in order; the
// first that supports a ticker prices it.
func NewOracle(client PortalClient, providers []provider.Provider, logger *zap.SugaredLogger) *Oracle {
	return &Oracle{
		client:    client,
		providers: providers,
		logger:    logger,
	}
}

// Run executes a single cycle: fetch targets, quote them, record prices.
func (o *Oracle) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	targets, err := o.client.GetPricingTargets(ctx)
	if err != nil {
		return nil, err
	}
	result.TargetsFetched = len(targets)

	if len(targets) == 0 {
		o.logger.Info("no live positions with tickers, nothing to do")
		result.Duration = time.Since(start)
		return result, nil
	}

	groups := make(map[int][]provider.Target)
	for _, t := range targets {
		matched := false
		for i, p := range o.providers {
			if p.Supports(t.Ticker) {
				groups[i] = append(groups[i], provider.Target{PositionID: t.PositionID, Ticker: t.Ticker})
				matched = true
				break
			}
		}
		if !matched {
			o.logger.Warnw("no provider supports ticker", "ticker", t.Ticker, "position_id", t.PositionID)
		}
	}

	var mu sync.Mutex
	var quotes []provider.Quote
	var fetchErrors []provider.FetchError

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(p provider.Provider, targets []provider.Target) {
			defer wg.Done()
			o.logger.Infow("fetching prices", "provider", p.Name(), "count", len(targets))
			q, errs := p.FetchQuotes(ctx, targets)
			mu.Lock()
			quotes = append(quotes, q...)
			fetchErrors = append(fetchErrors, errs...)
			mu.Unlock()
		}(o.providers[i], group)
	}
	wg.Wait()

	result.Errors = fetchErrors
	for _, fe := range fetchErrors {
		o.logger.Warnw("price fetch failed", "ticker", fe.Ticker, "position_id", fe.PositionID, "error", fe.Err)
	}

	if len(quotes) == 0 {
		o.logger.Info("no prices fetched")
		result.Duration = time.Since(start)
		return result, nil
	}

	entries := make([]client.PriceEntry, len(quotes))
	for i, q := range quotes {
		entries[i] = client.PriceEntry{PositionID: q.PositionID, Price: q.Price}
	}

	recorded, err := o.client.RecordPrices(ctx, entries)
	if err != nil {
		return nil, err
	}
	result.PricesRecorded = recorded.Updated
	result.Rejected = recorded.Failed
	for _, r := range recorded.Failed {
		o.logger.Warnw("price rejected by portal", "position_id", r.PositionID, "code", r.Code, "message", r.Message)
	}

	result.Duration = time.Since(start)
	return result, nil
}
