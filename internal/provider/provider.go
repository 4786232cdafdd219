// Package provider defines the interface for fetching market quotes for
// positions from external data sources.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Target is a position the oracle should price, identified by its ticker.
type Target struct {
	PositionID string
	Ticker     string
}

// Quote is a successfully fetched market price for one position.
type Quote struct {
	PositionID string
	Ticker     string
	Price      decimal.Decimal
	Currency   string
	RecordedAt time.Time
}

// FetchError is a failed quote for one position.
type FetchError struct {
	PositionID string
	Ticker     string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch price for %s (position %s): %v", e.Ticker, e.PositionID, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Provider fetches current market prices for a set of targets.
type Provider interface {
	// Name returns the provider's display name, e.g. "Yahoo Finance".
	Name() string

	// Supports reports whether the provider can quote the ticker.
	Supports(ticker string) bool

	// FetchQuotes returns as many quotes as it can, plus one error per
	// target it could not price.
	FetchQuotes(ctx context.Context, targets []Target) ([]Quote, []FetchError)
}
