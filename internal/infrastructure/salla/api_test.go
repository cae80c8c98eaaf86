package salla

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/backend/internal/domain/credential"
)

// staticTokenSource returns a fixed token, or an error when token is empty
type staticTokenSource struct {
	token string
	err   error
	calls int
}

func (s *staticTokenSource) GetToken(ctx context.Context, merchantID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func TestMerchantAPI_GetOrder(t *testing.T) {
	t.Run("fetches order with bearer token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/orders/42", r.URL.Path)
			require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			w.Write([]byte(`{
				"status": 200,
				"success": true,
				"data": {
					"id": 42,
					"reference_id": 100042,
					"status": {"id": 1, "name": "Under Review", "slug": "under_review"},
					"total": {"amount": "149.50", "currency": "SAR"}
				}
			}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, server.URL)
		api := NewMerchantAPI(client, &staticTokenSource{token: "token-abc"}, zap.NewNop())

		order, err := api.GetOrder(context.Background(), "merchant-1", 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), order.ID)
		assert.Equal(t, "under_review", order.Status.Slug)
		assert.Equal(t, "149.5", order.Total.Amount.String())
		assert.Equal(t, "SAR", order.Total.Currency)
	})

	t.Run("missing token aborts without calling the platform", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, server.URL)
		source := &staticTokenSource{err: credential.ErrTokenNotFound}
		api := NewMerchantAPI(client, source, zap.NewNop())

		_, err := api.GetOrder(context.Background(), "merchant-1", 42)
		assert.ErrorIs(t, err, credential.ErrTokenNotFound)
		assert.Equal(t, int32(0), hits.Load())
	})
}

func TestMerchantAPI_UpdateOrderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders/42/status", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{
			"status": 200,
			"success": true,
			"data": {"id": 5, "name": "In Progress", "slug": "in_progress"}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, server.URL)
	api := NewMerchantAPI(client, &staticTokenSource{token: "token-abc"}, zap.NewNop())

	status, err := api.UpdateOrderStatus(context.Background(), "merchant-1", 42, "in_progress", "packed")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", status.Slug)
}

func TestMerchantAPI_CreateInvoice(t *testing.T) {
	t.Run("issues invoice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/orders/42/invoices", r.URL.Path)
			w.Write([]byte(`{
				"status": 200,
				"success": true,
				"data": {
					"id": 7,
					"order_id": 42,
					"type": "invoice",
					"invoice_number": "INV-0007",
					"total": {"amount": "149.50", "currency": "SAR"}
				}
			}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, server.URL)
		api := NewMerchantAPI(client, &staticTokenSource{token: "token-abc"}, zap.NewNop())

		invoice, err := api.CreateInvoice(context.Background(), "merchant-1", 42, InvoiceCreateRequest{Type: "invoice"})
		require.NoError(t, err)
		assert.Equal(t, "INV-0007", invoice.Number)
		assert.Equal(t, int64(42), invoice.OrderID)
	})

	t.Run("platform error surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"status": 422, "success": false}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL, server.URL)
		api := NewMerchantAPI(client, &staticTokenSource{token: "token-abc"}, zap.NewNop())

		_, err := api.CreateInvoice(context.Background(), "merchant-1", 42, InvoiceCreateRequest{Type: "invoice"})
		assert.Error(t, err)
	})
}
