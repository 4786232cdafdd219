package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPricingTargets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/pipeline/positions", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		_, _ = w.Write([]byte(`{"targets":[{"position_id":"p1","ticker":"NVDA"}]}`))
	}))
	defer srv.Close()

	c := NewPortalClient(srv.URL+"/", "secret", srv.Client())
	targets, err := c.GetPricingTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, PricingTarget{PositionID: "p1", Ticker: "NVDA"}, targets[0])
}

func TestRecordPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/pipeline/prices", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Prices []PriceEntry `json:"prices"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Prices, 2)
		assert.True(t, body.Prices[0].Price.Equal(decimal.RequireFromString("450.125")))

		_, _ = w.Write([]byte(`{"updated":1,"failed":[{"position_id":"p2","code":"POSITION_NOT_ACTIVE","message":"Position is closed or archived"}]}`))
	}))
	defer srv.Close()

	c := NewPortalClient(srv.URL, "secret", srv.Client())
	res, err := c.RecordPrices(context.Background(), []PriceEntry{
		{PositionID: "p1", Price: decimal.RequireFromString("450.125")},
		{PositionID: "p2", Price: decimal.RequireFromString("10")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "POSITION_NOT_ACTIVE", res.Failed[0].Code)
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewPortalClient(srv.URL, "wrong", srv.Client())
	_, err := c.GetPricingTargets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
}
