package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/book_orders/config"
	"github.com/Gunvolt24/book_orders/internal/domain"
	"github.com/Gunvolt24/book_orders/pkg/metrics"
)

const isbn = "1234567891"

func testConfig(baseURL string) config.Catalog {
	return config.Catalog{
		BaseURL:        baseURL,
		Timeout:        3 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		BackoffFactor:  2,
	}
}

func bookJSON() []byte {
	b, _ := json.Marshal(domain.Book{
		ISBN:   isbn,
		Title:  "Northern Lights",
		Author: "Lyra Silverstar",
		Price:  decimal.RequireFromString("9.90"),
	})
	return b
}

// catalogServer — фейковый каталог: handler получает номер попытки (с 1).
func catalogServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, attempt int32)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(w, r, hits.Add(1))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestClient(t *testing.T, cfg config.Catalog, hc *http.Client) *Client {
	t.Helper()
	c, err := NewClient(cfg, hc, nil)
	require.NoError(t, err)
	return c
}

func writeBook(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bookJSON())
}

// countingTransport считает попытки на уровне транспорта.
type countingTransport struct {
	next  http.RoundTripper
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return c.next.RoundTrip(r)
}

func TestLookup_Present(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/books/"+isbn, r.URL.Path)
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	out := c.Lookup(context.Background(), isbn)

	book, ok := out.Book()
	require.True(t, ok)
	require.Equal(t, isbn, book.ISBN)
	require.Equal(t, "Northern Lights", book.Title)
	require.True(t, decimal.RequireFromString("9.90").Equal(book.Price))
	require.Equal(t, int32(1), hits.Load())
}

func TestLookup_NotFound_NoRetry(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	require.False(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(1), hits.Load())
}

func TestLookup_ThreeFailuresThenSuccess(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, attempt int32) {
		if attempt <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	require.True(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(4), hits.Load())
}

func TestLookup_RetriesExhausted(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	require.False(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(4), hits.Load(), "1 attempt + 3 retries")
}

func TestLookup_MalformedBodyIsRetried(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, attempt int32) {
		switch attempt {
		case 1:
			_, _ = w.Write([]byte(`{"isbn":`))
		case 2:
			_, _ = w.Write([]byte(`{"title":"no isbn"}`))
		default:
			writeBook(w)
		}
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	require.True(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(3), hits.Load())
}

func TestLookup_ConnectionRefused_FourAttempts(t *testing.T) {
	// адрес закрытого сервера: соединение отклоняется сразу
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	tr := &countingTransport{next: http.DefaultTransport}
	c := newTestClient(t, testConfig(addr), &http.Client{Transport: tr})

	require.False(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(4), tr.calls.Load())
}

func TestLookup_Timeout_AbsentWithoutRetry(t *testing.T) {
	release := make(chan struct{})
	srv, hits := catalogServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	c := newTestClient(t, cfg, nil)

	start := time.Now()
	out := c.Lookup(context.Background(), isbn)
	elapsed := time.Since(start)

	require.False(t, out.IsPresent())
	require.Less(t, elapsed, time.Second, "hung call must be abandoned near the timeout")
	require.Equal(t, int32(1), hits.Load())
}

func TestLookup_SlowBodyCountsAsTimeout(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"isbn":"1234567891",`))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	cfg := testConfig(srv.URL)
	cfg.Timeout = 100 * time.Millisecond
	c := newTestClient(t, cfg, nil)

	require.False(t, c.Lookup(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(1), hits.Load())
}

func TestLookup_CallerCanceled(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.False(t, c.Lookup(ctx, isbn).IsPresent())
	require.Equal(t, int32(0), hits.Load())
}

func TestLookup_CallerCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		cancel()
		w.WriteHeader(http.StatusBadGateway)
	})
	cfg := testConfig(srv.URL)
	cfg.InitialBackoff = time.Second
	c := newTestClient(t, cfg, nil)

	start := time.Now()
	require.False(t, c.Lookup(ctx, isbn).IsPresent())
	require.Less(t, time.Since(start), 500*time.Millisecond)
	require.Equal(t, int32(1), hits.Load())
}

func TestRemove(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/books/"+isbn, r.URL.Path)
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	book, ok := c.Remove(context.Background(), isbn).Book()
	require.True(t, ok)
	require.Equal(t, isbn, book.ISBN)
	require.Equal(t, int32(1), hits.Load())
}

func TestRemove_NotFound(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	require.False(t, c.Remove(context.Background(), isbn).IsPresent())
	require.Equal(t, int32(1), hits.Load())
}

func TestLookup_BasePathAndEscaping(t *testing.T) {
	srv, _ := catalogServer(t, func(w http.ResponseWriter, r *http.Request, _ int32) {
		assert.Equal(t, "/catalog/books/a%2Fb", r.URL.EscapedPath())
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL+"/catalog/"), nil)

	require.True(t, c.Lookup(context.Background(), "a/b").IsPresent())
}

func TestLookup_ConcurrentCalls(t *testing.T) {
	srv, hits := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		writeBook(w)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	const n = 20
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() { results <- c.Lookup(context.Background(), isbn).IsPresent() }()
	}
	for i := 0; i < n; i++ {
		require.True(t, <-results)
	}
	require.Equal(t, int32(n), hits.Load())
}

func TestLookup_CountsResults(t *testing.T) {
	metrics.MustRegister()

	srv, _ := catalogServer(t, func(w http.ResponseWriter, _ *http.Request, _ int32) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newTestClient(t, testConfig(srv.URL), nil)

	counter := metrics.CatalogRequests.WithLabelValues(http.MethodGet, resultNotFound)
	before := testutil.ToFloat64(counter)
	c.Lookup(context.Background(), isbn)
	require.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(testConfig("localhost:9001"), nil, nil)
	require.True(t, errors.Is(err, config.ErrCatalogURL), "got %v", err)

	cfg := testConfig("http://localhost:9001")
	cfg.Timeout = 0
	_, err = NewClient(cfg, nil, nil)
	require.ErrorIs(t, err, config.ErrCatalogTimeout)
}

func TestClassify(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	require.Equal(t, resultPresent, classify(context.Background(), nil))
	require.Equal(t, resultNotFound, classify(context.Background(), errNotFound))
	require.Equal(t, resultTimeout, classify(context.Background(), errTimeout))
	require.Equal(t, resultCanceled, classify(canceled, context.Canceled))
	require.Equal(t, resultExhausted, classify(context.Background(), errUnexpectedStatus))
}
