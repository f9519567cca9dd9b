package customsearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/cloo-solutions/buscador/internal/config"
	"github.com/cloo-solutions/buscador/internal/domain"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = config.Credentials{
	APIKey:           "test-key-123",
	WebEngineID:      "cx-web",
	LinkedInEngineID: "cx-linkedin",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		BaseURL:     srv.URL + "/customsearch/v1",
		Credentials: testCreds,
		HTTPClient:  srv.Client(),
	})
	return client, &calls
}

func TestPerformSearch_SingleItem(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"title":"A","link":"http://a","snippet":"s"}]}`)
	})

	results, err := client.PerformSearch(context.Background(), "acme", "cx-web")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "A", *results[0].Title)
	assert.Equal(t, "http://a", *results[0].Link)
	assert.Equal(t, "s", *results[0].Snippet)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestPerformSearch_RequestParameters(t *testing.T) {
	var got url.Values
	var path string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		path = r.URL.Path
		fmt.Fprint(w, `{}`)
	})

	query := `"Maria Silva" "Agrolink" site:linkedin.com/in/`
	_, err := client.PerformSearch(context.Background(), query, "cx-linkedin")
	require.NoError(t, err)

	assert.Equal(t, "/customsearch/v1", path)
	assert.Equal(t, "test-key-123", got.Get("key"))
	assert.Equal(t, "cx-linkedin", got.Get("cx"))
	assert.Equal(t, query, got.Get("q"))
}

func TestPerformSearch_PreservesOrderAndAbsentFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[
			{"title":"first","link":"http://1"},
			{"link":"http://2","snippet":"only snippet"},
			{"title":"third","link":"http://3","snippet":"c"}
		]}`)
	})

	results, err := client.PerformSearch(context.Background(), "q", "cx-web")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "http://1", *results[0].Link)
	assert.Nil(t, results[0].Snippet)
	assert.Nil(t, results[1].Title)
	assert.Equal(t, "only snippet", *results[1].Snippet)
	assert.Equal(t, "third", *results[2].Title)
}

func TestPerformSearch_MissingItemsIsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind":"customsearch#search","searchInformation":{"totalResults":"0"}}`)
	})

	results, err := client.PerformSearch(context.Background(), "nothing", "cx-web")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestPerformSearch_Forbidden(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"Daily Limit Exceeded"}}`)
	})

	var results []domain.SearchResult
	var err error
	assert.NotPanics(t, func() {
		results, err = client.PerformSearch(context.Background(), "acme", "cx-web")
	})
	require.Error(t, err)
	assert.Nil(t, results)

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode)
	assert.Equal(t, "Daily Limit Exceeded", transportErr.Message)
	assert.Contains(t, err.Error(), "status 403")
}

func TestPerformSearch_ServerErrorWithPlainBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.PerformSearch(context.Background(), "acme", "cx-web")

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
	assert.Equal(t, "backend unavailable", transportErr.Message)
}

func TestPerformSearch_MalformedJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items": [`)
	})

	_, err := client.PerformSearch(context.Background(), "acme", "cx-web")

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestPerformSearch_NetworkFailureRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: baseURL, Credentials: testCreds})

	_, err := client.PerformSearch(context.Background(), "acme", "cx-web")
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.StatusCode)
	assert.NotContains(t, err.Error(), testCreds.APIKey)
}

func TestPerformSearch_EmptyQueryMakesNoCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := client.PerformSearch(context.Background(), q, "cx-web")
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestPerformSearch_UnknownEngineMakesNoCall(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	_, err := client.PerformSearch(context.Background(), "acme", "cx-somewhere-else")

	assert.ErrorIs(t, err, domain.ErrUnknownEngine)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestPerformSearch_ContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.PerformSearch(ctx, "acme", "cx-web")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPerformSearch_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"items":[{"title":"A"}]}`)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Credentials: testCreds, Metrics: m})

	_, err := client.PerformSearch(context.Background(), "ok", "cx-linkedin")
	require.NoError(t, err)
	_, err = client.PerformSearch(context.Background(), "fail", "cx-web")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("linkedin", "found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues("web", "failed")))
}

func TestTransportError_Messages(t *testing.T) {
	assert.Equal(t, "search api returned status 500", (&TransportError{StatusCode: 500}).Error())
	assert.Equal(t, "search api request failed: dial", (&TransportError{Err: errors.New("dial")}).Error())
	assert.Equal(t, "search api request failed", (&TransportError{}).Error())
}
