package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venux-billing/internal/config"
	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/adapter"
)

type stripeStub struct {
	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string][]string
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newStripeStub(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*StripeGateway, *stripeStub) {
	t.Helper()
	stub := &stripeStub{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		stub.mu.Lock()
		stub.requests = append(stub.requests, r)
		stub.forms = append(stub.forms, r.Form)
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		stub.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	gw, err := NewStripeGateway(config.StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL}, testLogger())
	require.NoError(t, err)
	return gw, stub
}

func TestStripeGateway_CustomerExists(t *testing.T) {
	ctx := context.Background()

	t.Run("existing customer", func(t *testing.T) {
		gw, stub := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"cus_1","object":"customer"}`))
		})
		ok, err := gw.CustomerExists(ctx, "cus_1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/v1/customers/cus_1", stub.requests[0].URL.Path)
	})

	t.Run("deleted customer", func(t *testing.T) {
		gw, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"cus_1","object":"customer","deleted":true}`))
		})
		ok, err := gw.CustomerExists(ctx, "cus_1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing customer", func(t *testing.T) {
		gw, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer: 'cus_1'"}}`))
		})
		ok, err := gw.CustomerExists(ctx, "cus_1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	gw, stub := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.stripe.com/c/cs_1"}`))
	})

	url, err := gw.CreateCheckoutSession(context.Background(), adapter.CheckoutRequest{
		CustomerID: "cus_1",
		PriceID:    "price_pro",
		UserRef:    "user-1",
		SuccessURL: "https://app.venux.test/profile?status=success",
		CancelURL:  "https://app.venux.test/profile?status=cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", url)

	require.Len(t, stub.forms, 1)
	form := stub.forms[0]
	assert.Equal(t, "/v1/checkout/sessions", stub.requests[0].URL.Path)
	assert.Equal(t, []string{"cus_1"}, form["customer"])
	assert.Equal(t, []string{"subscription"}, form["mode"])
	assert.Equal(t, []string{"price_pro"}, form["line_items[0][price]"])
	assert.Equal(t, []string{"1"}, form["line_items[0][quantity]"])
	assert.Equal(t, []string{"user-1"}, form["client_reference_id"])
	assert.Equal(t, []string{"https://app.venux.test/profile?status=success"}, form["success_url"])
}

func TestStripeGateway_CreateCustomer(t *testing.T) {
	gw, stub := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cus_new","object":"customer"}`))
	})

	id, err := gw.CreateCustomer(context.Background(), adapter.CustomerRequest{Email: "ana@venux.test", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", id)
	assert.Equal(t, []string{"ana@venux.test"}, stub.forms[0]["email"])
	assert.Equal(t, []string{"user-1"}, stub.forms[0]["metadata[supabaseUUID]"])
}

func TestStripeGateway_LatestSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("maps the newest subscription", func(t *testing.T) {
		gw, stub := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"list","has_more":false,"data":[{"id":"sub_1","object":"subscription",
				"customer":"cus_1","status":"active","created":1740000000,
				"items":{"object":"list","data":[{"id":"si_1","current_period_end":1750000000,"price":{"id":"price_pro"}}]}}]}`))
		})

		sub, err := gw.LatestSubscription(ctx, "cus_1", true)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, "sub_1", sub.ID)
		assert.Equal(t, "cus_1", sub.CustomerID)
		assert.Equal(t, "price_pro", sub.PriceID)
		assert.True(t, sub.IsActive())
		assert.Equal(t, int64(1750000000), sub.CurrentPeriodEnd.Unix())
		assert.Equal(t, int64(1740000000), sub.CreatedAt.Unix())

		q := stub.requests[0].URL.Query()
		assert.Equal(t, "cus_1", q.Get("customer"))
		assert.Equal(t, "active", q.Get("status"))
		assert.Equal(t, "1", q.Get("limit"))
	})

	t.Run("any status lookup asks for all", func(t *testing.T) {
		gw, stub := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"object":"list","has_more":false,"data":[]}`))
		})
		sub, err := gw.LatestSubscription(ctx, "cus_1", false)
		require.NoError(t, err)
		assert.Nil(t, sub)
		assert.Equal(t, "all", stub.requests[0].URL.Query().Get("status"))
	})

	t.Run("unknown customer", func(t *testing.T) {
		gw, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such customer: 'cus_1'"}}`))
		})
		_, err := gw.LatestSubscription(ctx, "cus_1", true)
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})
}

func TestStripeGateway_ErrorsCarryProviderMessage(t *testing.T) {
	gw, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price: 'price_x'"}}`))
	})

	_, err := gw.CreatePortalSession(context.Background(), "cus_1", "https://app.venux.test/profile")
	require.Error(t, err)
	var pe *domain.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "No such price: 'price_x'", pe.Error())
	assert.Equal(t, "create portal session", pe.Op)
}

func TestStripeGateway_GetSubscriptionNotFound(t *testing.T) {
	gw, _ := newStripeStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such subscription"}}`))
	})
	_, err := gw.GetSubscription(context.Background(), "sub_x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
