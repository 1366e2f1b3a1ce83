package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func TestGetMarketDecodes(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/markets/mkt-1", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "mkt-1",
			"conditionId": "0xcond",
			"question": "Will it rain tomorrow?",
			"yesPositionId": "0xaaaa",
			"noPositionId": "0xbbbb",
			"yesPrice": 0.62,
			"noPrice": 0.38,
			"resolved": false
		}`))
	}))
	defer srv.Close()

	market, err := client.GetMarket(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.Equal(t, "mkt-1", market.ID)
	require.Equal(t, "0xcond", market.ConditionID)
	require.Equal(t, "0xaaaa", market.YesPositionID)
	require.Equal(t, 0.62, market.YesPrice)
	require.False(t, market.Resolved)
	require.Nil(t, market.Outcome)
}

func TestListMarketsSendsPagination(t *testing.T) {
	var gotQuery url.Values
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	}))
	defer srv.Close()

	markets, err := client.ListMarkets(context.Background(), domain.ListOpts{Limit: 50, Offset: 100})
	require.NoError(t, err)
	require.Len(t, markets, 2)
	require.Equal(t, "50", gotQuery.Get("limit"))
	require.Equal(t, "100", gotQuery.Get("offset"))
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, "market not found", domain.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, "missing api key", domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, "nope", domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, "slow down", domain.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := client.GetMarket(context.Background(), "mkt-1")
			require.ErrorIs(t, err, tt.wantErr)
			require.Contains(t, err.Error(), tt.body)
		})
	}
}

func TestServerErrorEmptyBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := client.GetMarket(context.Background(), "mkt-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 500")
}

func TestServerErrorBodySurfaced(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("engine melted"))
	}))
	defer srv.Close()

	_, err := client.GetMarket(context.Background(), "mkt-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine melted")
}

func TestListQueryEncodesTimeWindow(t *testing.T) {
	since := time.UnixMilli(1_700_000_000_000)
	until := time.UnixMilli(1_700_000_600_000)

	q := listQuery(domain.ListOpts{Since: &since, Until: &until})
	require.Equal(t, "1700000000000", q.Get("since"))
	require.Equal(t, "1700000600000", q.Get("until"))
	require.Empty(t, q.Get("limit"))
}
