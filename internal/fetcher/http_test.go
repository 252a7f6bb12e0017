package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmetrics/churn-cli/internal/config"
)

func testConfig(baseURL string) config.SourceConfig {
	return config.SourceConfig{
		BaseURL:     baseURL,
		Path:        "/v2/ml/churns",
		APIKey:      "test-key",
		TimeoutSecs: 5,
		MaxPages:    10,
		RatePerSec:  1000,
		RateBurst:   1000,
	}
}

func TestFetchUsers_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ml/churns", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"id":"u1"},{"id":"u2"}],"meta":{"total":2}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	users, meta, err := c.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	u, _ := url.Parse(srv.URL)
	assert.Equal(t, u.Host, meta.Domain)
	assert.Equal(t, srv.URL, meta.BaseURL)
	assert.Equal(t, srv.URL+"/v2/ml/churns", meta.SourceURL)
}

func TestFetchUsers_FollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"data":[{"id":"u3"}],"meta":{}}`)
			return
		}
		fmt.Fprintf(w, `{"data":[{"id":"u1"},{"id":"u2"}],"meta":{"next_page_url":%q}}`,
			srv.URL+"/v2/ml/churns?page=2")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	users, _, err := c.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestFetchUsers_PageCap(t *testing.T) {
	var srv *httptest.Server
	var pages atomic.Int32
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := pages.Add(1)
		// Every page points at a fresh next page; only the cap stops the walk.
		fmt.Fprintf(w, `{"data":[{"id":"u%d"}],"meta":{"next_page_url":%q}}`,
			n, fmt.Sprintf("%s/v2/ml/churns?page=%d", srv.URL, n+1))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxPages = 3
	c := NewClient(cfg)

	users, _, err := c.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, int32(3), pages.Load())
}

func TestFetchUsers_WrappedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"data":[{"id":"u1"}],"meta":{}}]`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	users, _, err := c.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestFetchUsers_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"data":[{"id":"u1"}],"meta":{}}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	users, _, err := c.FetchUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchUsers_ClientErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, _, err := c.FetchUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
}

func TestDecodeEnvelope_Empty(t *testing.T) {
	env, err := decodeEnvelope([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, env.Data)

	env, err = decodeEnvelope([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.Empty(t, env.Data)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	_, err := decodeEnvelope([]byte(`not json`))
	require.Error(t, err)
}
