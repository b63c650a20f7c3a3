package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/datalayer"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/ecommerce"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/analytics-service-go/internal/session"
)

const testDebounce = 20 * time.Millisecond

// writeOnlySink accepts pushes but cannot be read back.
type writeOnlySink struct{}

func (writeOnlySink) Name() string                                 { return "write-only" }
func (writeOnlySink) Reset(context.Context) error                  { return nil }
func (writeOnlySink) Append(context.Context, ecommerce.Event) error { return nil }

func newTestRouter(t *testing.T, sinks session.SinkFactory) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	registry := session.NewRegistry(session.Options{
		Sinks:        sinks,
		Observer:     metrics.New(reg),
		CartDebounce: testDebounce,
	})
	t.Cleanup(registry.CloseAll)

	return NewRouter(Deps{
		Handler:          NewHandler(registry, nil),
		Metrics:          promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowOrigins: []string{"https://shop.example.com"},
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func openSession(t *testing.T, h http.Handler, body any) openSessionResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp openSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	return resp
}

func postSignal(t *testing.T, h http.Handler, id, typ string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodPost, "/api/sessions/"+id+"/signals", map[string]any{
		"type":    typ,
		"payload": payload,
	})
}

func dataLayer(t *testing.T, h http.Handler, id string) []json.RawMessage {
	t.Helper()
	rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/datalayer", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		SessionID string            `json:"sessionId"`
		DataLayer []json.RawMessage `json:"dataLayer"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.SessionID)
	return resp.DataLayer
}

// events decodes the non-reset entries of a data layer.
func events(t *testing.T, raw []json.RawMessage) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, r := range raw {
		var m map[string]any
		require.NoError(t, json.Unmarshal(r, &m))
		if _, named := m["event"]; named {
			out = append(out, m)
		}
	}
	return out
}

func firstItem(t *testing.T, ev map[string]any) map[string]any {
	t.Helper()
	payload, ok := ev["ecommerce"].(map[string]any)
	require.True(t, ok)
	items, ok := payload["items"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, items)
	item, ok := items[0].(map[string]any)
	require.True(t, ok)
	return item
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
}

func TestOpenSession(t *testing.T) {
	h := newTestRouter(t, nil)

	t.Run("defaults", func(t *testing.T) {
		resp := openSession(t, h, nil)
		assert.Equal(t, "client", resp.RenderContext)
		assert.Equal(t, ecommerce.DefaultCurrency, resp.Currency)
	})

	t.Run("explicit", func(t *testing.T) {
		resp := openSession(t, h, map[string]string{"currency": "USD", "renderContext": "server"})
		assert.Equal(t, "server", resp.RenderContext)
		assert.Equal(t, "USD", resp.Currency)
	})

	t.Run("bad render context", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/sessions", map[string]string{"renderContext": "edge"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/sessions", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUnknownSession(t *testing.T) {
	h := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/nope/datalayer", nil)
	req.Header.Set(HeaderCorrelationID, "cid-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "cid-123", rec.Header().Get(HeaderCorrelationID))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "session not found", body.Error)
	assert.Equal(t, "cid-123", body.CorrelationID)

	for _, rec := range []*httptest.ResponseRecorder{
		do(t, h, http.MethodDelete, "/api/sessions/nope", nil),
		do(t, h, http.MethodPut, "/api/sessions/nope/currency", map[string]string{"isoCode": "USD"}),
		postSignal(t, h, "nope", "route", map[string]string{"routeName": "checkout"}),
	} {
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestPostSignal_AddToCart(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, map[string]string{"currency": "USD"})

	rec := postSignal(t, h, s.SessionID, "add_to_cart", map[string]any{
		"product": map[string]any{
			"id":              "p1",
			"name":            "Mug",
			"manufacturer":    map[string]any{"name": "Acme"},
			"categories":      []map[string]any{{"name": "Kitchen"}, {"name": "Cups"}},
			"calculatedPrice": map[string]any{"unitPrice": 9.5},
		},
		"quantity": 2,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	raw := dataLayer(t, h, s.SessionID)
	require.Len(t, raw, 2)
	assert.JSONEq(t, `{"ecommerce":null}`, string(raw[0]))

	evs := events(t, raw)
	require.Len(t, evs, 1)
	assert.Equal(t, "add_to_cart", evs[0]["event"])

	item := firstItem(t, evs[0])
	assert.Equal(t, "p1", item["item_id"])
	assert.Equal(t, "Acme", item["item_brand"])
	assert.Equal(t, "USD", item["currency"])
	assert.Equal(t, 2.0, item["quantity"])
	assert.Equal(t, "Kitchen", item["item_category"])
	assert.Equal(t, "Cups", item["item_category1"])
}

func TestPostSignal_Watches(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)
	id := s.SessionID

	cart := map[string]any{
		"lineItems": []map[string]any{{"id": "li1", "label": "Mug", "price": map[string]any{"unitPrice": 5}, "quantity": 1}},
		"price":     map[string]any{"totalPrice": 5},
	}

	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "page", map[string]any{
		"product": map[string]any{"id": "p1", "name": "Mug"},
	}).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "page", map[string]any{
		"category": map[string]any{"name": "Kitchen"},
	}).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "listing", map[string]any{
		"elements": []map[string]any{{"id": "p1", "name": "Mug"}, {"id": "p2", "name": "Cup"}},
	}).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "cart", cart).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "cart_sidebar", map[string]bool{"open": true}).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "route", map[string]string{"routeName": "checkout"}).Code)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, id, "order_placed", map[string]any{
		"id":          "o1",
		"orderNumber": "10001",
		"lineItems":   cart["lineItems"],
		"price":       map[string]any{"totalPrice": 5},
	}).Code)

	var names []any
	for _, ev := range events(t, dataLayer(t, h, id)) {
		names = append(names, ev["event"])
	}
	assert.Equal(t, []any{"view_item", "view_item_list", "view_cart", "begin_checkout", "purchase"}, names)
}

func TestPostSignal_CartDiff(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)

	cartWith := func(qty int) map[string]any {
		return map[string]any{"lineItems": []map[string]any{
			{"id": "li1", "label": "Mug", "price": map[string]any{"unitPrice": 5}, "quantity": qty},
		}}
	}

	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "cart", cartWith(1)).Code)
	time.Sleep(5 * testDebounce)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "cart", cartWith(3)).Code)

	require.Eventually(t, func() bool {
		return len(events(t, dataLayer(t, h, s.SessionID))) == 1
	}, time.Second, 10*time.Millisecond)

	ev := events(t, dataLayer(t, h, s.SessionID))[0]
	assert.Equal(t, "add_to_cart", ev["event"])
	item := firstItem(t, ev)
	assert.Equal(t, 2.0, item["quantity"])
	assert.Equal(t, "cart", item["item_list_id"])
}

func TestPostSignal_BadRequests(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)

	tests := []struct {
		name string
		body any
	}{
		{name: "unknown type", body: map[string]any{"type": "scroll"}},
		{name: "payload type mismatch", body: map[string]any{"type": "route", "payload": []int{1}}},
		{name: "malformed body", body: "{"},
		{name: "cart without payload", body: map[string]any{"type": "cart"}},
		{name: "add to cart with null payload", body: map[string]any{"type": "add_to_cart", "payload": nil}},
		{name: "add to cart without product id", body: map[string]any{"type": "add_to_cart", "payload": map[string]any{"quantity": 1}}},
		{name: "route without payload", body: map[string]any{"type": "route"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/sessions/"+s.SessionID+"/signals", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPostSignal_MissingPayloadKeepsCart(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)

	cart := map[string]any{"lineItems": []map[string]any{
		{"id": "li1", "label": "Mug", "quantity": 2, "price": map[string]any{"unitPrice": 5}},
	}}
	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "cart", cart).Code)
	time.Sleep(5 * testDebounce)
	before := len(dataLayer(t, h, s.SessionID))

	rec := do(t, h, http.MethodPost, "/api/sessions/"+s.SessionID+"/signals", map[string]any{"type": "cart"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/sessions/"+s.SessionID+"/signals", map[string]any{"type": "add_to_cart", "payload": nil})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	time.Sleep(5 * testDebounce)

	for _, ev := range events(t, dataLayer(t, h, s.SessionID)) {
		assert.NotEqual(t, "remove_from_cart", ev["event"])
		assert.NotEqual(t, "add_to_cart", ev["event"])
	}
	assert.Len(t, dataLayer(t, h, s.SessionID), before)
}

func TestSetCurrency(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, map[string]string{"currency": "USD"})

	rec := do(t, h, http.MethodPut, "/api/sessions/"+s.SessionID+"/currency", map[string]string{"isoCode": "gbp"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/sessions/"+s.SessionID+"/currency", map[string]string{"isoCode": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "add_to_cart", map[string]any{
		"product": map[string]any{"id": "p1", "name": "Mug"},
	}).Code)

	evs := events(t, dataLayer(t, h, s.SessionID))
	require.Len(t, evs, 1)
	assert.Equal(t, "GBP", firstItem(t, evs[0])["currency"])
}

func TestCloseSession(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/sessions/"+s.SessionID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/sessions/"+s.SessionID, nil).Code)
}

func TestServerRenderSession(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, map[string]string{"renderContext": "server"})

	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "add_to_cart", map[string]any{
		"product": map[string]any{"id": "p1"},
	}).Code)

	assert.Empty(t, dataLayer(t, h, s.SessionID))
}

func TestGetDataLayer_NotReadable(t *testing.T) {
	h := newTestRouter(t, func(string) (datalayer.Sink, error) { return writeOnlySink{}, nil })
	s := openSession(t, h, nil)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+s.SessionID+"/datalayer", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, nil)
	s := openSession(t, h, nil)
	require.Equal(t, http.StatusAccepted, postSignal(t, h, s.SessionID, "add_to_cart", map[string]any{
		"product": map[string]any{"id": "p1"},
	}).Code)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `analytics_datalayer_events_published_total{event="add_to_cart"} 1`)
	assert.Contains(t, rec.Body.String(), "analytics_sessions_active 1")
}

func TestCORS(t *testing.T) {
	h := newTestRouter(t, nil)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "allowed", origin: "https://shop.example.com", want: "https://shop.example.com"},
		{name: "other origin", origin: "https://evil.example.com", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRecover(t *testing.T) {
	h := CorrelationID(Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
	assert.NotEmpty(t, body.CorrelationID)
}
