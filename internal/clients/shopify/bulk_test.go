package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wholesale-catalog-service/internal/clients"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		ShopDomain:   "example.myshopify.com",
		AccessToken:  "shpat_test",
		APIVersion:   "2024-07",
		PollInterval: 10 * time.Millisecond,
		PollMaxWait:  5 * time.Second,
		Endpoint:     endpoint,
	}, testLogger())
}

func graphQLServer(t *testing.T, handler func(query string, variables map[string]interface{}) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, body := handler(req.Query, req.Variables)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestStartBulkExport(t *testing.T) {
	t.Run("returns operation id", func(t *testing.T) {
		server := graphQLServer(t, func(query string, variables map[string]interface{}) (int, string) {
			assert.Contains(t, query, "bulkOperationRunQuery")
			assert.Contains(t, variables["query"], "productVariants")
			return http.StatusOK, `{"data":{"bulkOperationRunQuery":{"bulkOperation":{"id":"gid://shopify/BulkOperation/1","status":"CREATED"},"userErrors":[]}}}`
		})
		defer server.Close()

		id, err := newTestClient(server.URL).StartBulkExport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/BulkOperation/1", id)
	})

	t.Run("user errors mean the job never started", func(t *testing.T) {
		server := graphQLServer(t, func(string, map[string]interface{}) (int, string) {
			return http.StatusOK, `{"data":{"bulkOperationRunQuery":{"bulkOperation":null,"userErrors":[{"field":["query"],"message":"already running"}]}}}`
		})
		defer server.Close()

		_, err := newTestClient(server.URL).StartBulkExport(context.Background())
		require.Error(t, err)
		assert.True(t, clients.IsConfiguration(err))
		assert.Contains(t, err.Error(), "already running")
	})
}

func TestExecuteErrorClassification(t *testing.T) {
	t.Run("auth failure is a configuration error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Execute(context.Background(), "{}", nil)
		require.Error(t, err)
		assert.True(t, clients.IsConfiguration(err))
		assert.False(t, clients.IsTransient(err))
	})

	t.Run("throttling is transient with retry hint", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Execute(context.Background(), "{}", nil)
		require.Error(t, err)
		assert.True(t, clients.IsTransient(err))

		var te *clients.TransientError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 7*time.Second, te.RetryAfter)
	})

	t.Run("server error is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).Execute(context.Background(), "{}", nil)
		assert.True(t, clients.IsTransient(err))
	})

	t.Run("graphql top-level errors are configuration errors", func(t *testing.T) {
		server := graphQLServer(t, func(string, map[string]interface{}) (int, string) {
			return http.StatusOK, `{"errors":[{"message":"field does not exist"}]}`
		})
		defer server.Close()

		_, err := newTestClient(server.URL).Execute(context.Background(), "{}", nil)
		assert.True(t, clients.IsConfiguration(err))
	})
}

func TestWaitForBulkExport(t *testing.T) {
	t.Run("polls until completed", func(t *testing.T) {
		var polls int32
		server := graphQLServer(t, func(query string, variables map[string]interface{}) (int, string) {
			assert.Equal(t, "gid://shopify/BulkOperation/1", variables["id"])
			if atomic.AddInt32(&polls, 1) < 3 {
				return http.StatusOK, `{"data":{"node":{"id":"gid://shopify/BulkOperation/1","status":"RUNNING","objectCount":"10"}}}`
			}
			return http.StatusOK, `{"data":{"node":{"id":"gid://shopify/BulkOperation/1","status":"COMPLETED","objectCount":"42","url":"https://example.com/result.jsonl"}}}`
		})
		defer server.Close()

		url, err := newTestClient(server.URL).WaitForBulkExport(context.Background(), "gid://shopify/BulkOperation/1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/result.jsonl", url)
		assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
	})

	t.Run("failed operation surfaces error code", func(t *testing.T) {
		server := graphQLServer(t, func(string, map[string]interface{}) (int, string) {
			return http.StatusOK, `{"data":{"node":{"id":"gid://shopify/BulkOperation/1","status":"FAILED","errorCode":"ACCESS_DENIED"}}}`
		})
		defer server.Close()

		_, err := newTestClient(server.URL).WaitForBulkExport(context.Background(), "gid://shopify/BulkOperation/1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ACCESS_DENIED")
	})

	t.Run("max wait exceeded is a timeout error", func(t *testing.T) {
		server := graphQLServer(t, func(string, map[string]interface{}) (int, string) {
			return http.StatusOK, `{"data":{"node":{"id":"gid://shopify/BulkOperation/1","status":"RUNNING"}}}`
		})
		defer server.Close()

		client := NewClient(Config{
			ShopDomain:   "example.myshopify.com",
			AccessToken:  "shpat_test",
			APIVersion:   "2024-07",
			PollInterval: 10 * time.Millisecond,
			PollMaxWait:  50 * time.Millisecond,
			Endpoint:     server.URL,
		}, testLogger())

		_, err := client.WaitForBulkExport(context.Background(), "gid://shopify/BulkOperation/1")
		require.Error(t, err)
		assert.True(t, clients.IsTimeout(err))
	})
}

const sampleBulkResult = `
{"id":"gid://shopify/InventoryLevel/7","quantities":[{"name":"available","quantity":3},{"name":"incoming","quantity":1}],"__parentId":"gid://shopify/ProductVariant/11"}
{"id":"gid://shopify/ProductVariant/11","sku":"ABC-100-BLK-S","title":"S","price":"49.99","image":{"url":"https://cdn.example.com/s.jpg"},"selectedOptions":[{"name":"Size","value":"S"}],"product":{"id":"gid://shopify/Product/1","title":"Kids Bike","vendor":"Acme","productType":"Bikes"}}
{"id":"gid://shopify/Collection/5","title":"Spring25","__parentId":"gid://shopify/Product/1"}
{"id":"gid://shopify/ProductVariant/12","sku":"ABC-100-BLK-M","title":"M","price":"49.99","selectedOptions":[{"name":"Size","value":"M"}],"product":{"id":"gid://shopify/Product/1","title":"Kids Bike","vendor":"Acme","productType":"Bikes"}}
not json at all
{"id":"gid://shopify/InventoryLevel/8","quantities":[{"name":"available","quantity":2},{"name":"committed","quantity":4}],"__parentId":"gid://shopify/ProductVariant/11"}
`

func TestParseBulkResult(t *testing.T) {
	variants, skipped, err := ParseBulkResult(strings.NewReader(sampleBulkResult))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, variants, 2)

	// Inventory lines arrive before and after their variant and are summed
	// across locations; the collection line stitches in via the product.
	small := variants[0]
	assert.Equal(t, "gid://shopify/ProductVariant/11", small.VariantGID)
	assert.Equal(t, "ABC-100-BLK-S", small.SKU)
	assert.Equal(t, "Kids Bike", small.ProductTitle)
	assert.Equal(t, "Acme", small.Vendor)
	assert.Equal(t, "Spring25", small.Collection)
	assert.Equal(t, 49.99, small.Price)
	assert.Equal(t, "https://cdn.example.com/s.jpg", small.ImageURL)
	assert.Equal(t, 5, small.Available)
	assert.Equal(t, 1, small.Incoming)
	assert.Equal(t, 4, small.Committed)
	require.Len(t, small.SelectedOptions, 1)
	assert.Equal(t, "Size", small.SelectedOptions[0].Name)

	medium := variants[1]
	assert.Equal(t, "ABC-100-BLK-M", medium.SKU)
	assert.Equal(t, "Spring25", medium.Collection)
	assert.Zero(t, medium.Available)
}

func TestParseBulkResultRepeatedInventoryLine(t *testing.T) {
	// The export is at-least-once; the same inventory level can be emitted
	// more than once. The last occurrence replaces the first instead of
	// inflating the totals, while distinct levels still sum.
	const doc = `
{"id":"gid://shopify/ProductVariant/11","sku":"ABC-100-BLK-S","title":"S","price":"49.99","product":{"id":"gid://shopify/Product/1","title":"Kids Bike"}}
{"id":"gid://shopify/InventoryLevel/7","quantities":[{"name":"available","quantity":5}],"__parentId":"gid://shopify/ProductVariant/11"}
{"id":"gid://shopify/InventoryLevel/7","quantities":[{"name":"available","quantity":2},{"name":"incoming","quantity":1}],"__parentId":"gid://shopify/ProductVariant/11"}
{"id":"gid://shopify/InventoryLevel/8","quantities":[{"name":"available","quantity":3}],"__parentId":"gid://shopify/ProductVariant/11"}
`
	variants, skipped, err := ParseBulkResult(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, variants, 1)
	assert.Equal(t, 5, variants[0].Available)
	assert.Equal(t, 1, variants[0].Incoming)
	assert.Zero(t, variants[0].Committed)
}

func TestDownloadBulkResult(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Pre-signed result URLs carry no auth header.
		assert.Empty(t, r.Header.Get("X-Shopify-Access-Token"))
		w.Write([]byte(sampleBulkResult))
	}))
	defer fileServer.Close()

	variants, skipped, err := newTestClient("http://unused.invalid").DownloadBulkResult(context.Background(), fileServer.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Len(t, variants, 2)
}
