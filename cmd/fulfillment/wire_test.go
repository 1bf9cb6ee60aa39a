package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/order-fulfillment/internal/config"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
)

const seed = `{
	"customers": [{"id": "c1", "name": "Asha Rao", "email": "asha@example.com"}],
	"products": [{"id": "p1", "name": "Thali", "price": "100"}, {"id": "p2", "name": "Lassi", "price": "50"}],
	"users": [{"id": "A1", "name": "Ravi", "role": "delivery"}, {"id": "U1", "name": "Office", "role": "Admin"}]
}`

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	return config.Config{
		ServiceName:     "test",
		Store:           config.StoreMemory,
		Catalog:         config.CatalogFile,
		CatalogSeedFile: path,
		UPIPayeeID:      "shop@upi",
		UPIPayeeName:    "Annapurna Foods",
		Currency:        "INR",
		SellerName:      "Annapurna Foods",
	}
}

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	d, err := build(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(d.Close)
	srv := httptest.NewServer(d.router())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, body string, headers ...string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestWorkflowEndToEnd(t *testing.T) {
	srv := newTestServer(t, memoryConfig(t))

	status, _ := call(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, status)

	var ids []string
	for _, body := range []string{
		`{"customerId":"c1","items":[{"productId":"p1","qty":3,"offer":10}]}`,
		`{"customerId":"c1","items":[{"productId":"p2","qty":3,"offer":0}]}`,
	} {
		status, b := call(t, srv, http.MethodPost, "/orders", body)
		require.Equal(t, http.StatusCreated, status, string(b))
		var o struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(b, &o))
		ids = append(ids, o.ID)
	}

	status, b := call(t, srv, http.MethodGet, "/admin-users?role=Delivery", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(b), `"A1"`)
	assert.NotContains(t, string(b), `"U1"`)

	for _, id := range ids {
		status, b := call(t, srv, http.MethodPut, "/orders/"+id+"/assign", `{"deliveryUserId":"A1"}`)
		require.Equal(t, http.StatusOK, status, string(b))
	}

	status, b = call(t, srv, http.MethodPost, "/orders/total", `{"orderIds":["`+ids[0]+`","`+ids[1]+`"]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(b), `"420"`)

	status, b = call(t, srv, http.MethodPut, "/orders/bulk-status",
		`{"orderIds":["`+ids[0]+`","`+ids[1]+`"],"status":"Paid","paymentMethod":"Cash"}`)
	require.Equal(t, http.StatusOK, status, string(b))

	status, _ = call(t, srv, http.MethodDelete, "/orders/"+ids[0], "")
	assert.Equal(t, http.StatusConflict, status)

	status, _ = call(t, srv, http.MethodPost, "/invoice/create", `{"orderId":"`+ids[0]+`"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, srv, http.MethodPost, "/invoice/create", `{"orderId":"`+ids[0]+`"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, b = call(t, srv, http.MethodGet, "/orders/"+ids[0], "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(b), `"invoiceAction":"download"`)
}

func TestIdempotencyGuardOnBulkStatus(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig(t)
	cfg.RedisAddr = mr.Addr()
	cfg.IdempotencyTTL = time.Minute
	srv := newTestServer(t, cfg)

	status, b := call(t, srv, http.MethodPost, "/orders", `{"customerId":"c1","items":[{"productId":"p1","qty":1}]}`)
	require.Equal(t, http.StatusCreated, status)
	var o struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &o))
	status, _ = call(t, srv, http.MethodPut, "/orders/"+o.ID+"/assign", `{"deliveryUserId":"A1"}`)
	require.Equal(t, http.StatusOK, status)

	body := `{"orderIds":["` + o.ID + `"],"paymentMethod":"UPI"}`
	status, _ = call(t, srv, http.MethodPut, "/orders/bulk-status", body, idempotency.Header, "k1")
	require.Equal(t, http.StatusOK, status)
	status, b = call(t, srv, http.MethodPut, "/orders/bulk-status", body, idempotency.Header, "k1")
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(b), "already processed")
}
