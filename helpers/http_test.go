package helpers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.Equal(t, "de-AT,de;q=0.9,en;q=0.8", r.Header.Get("Accept-Language"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hallo, Welt!</body></html>"))
	}))
	defer server.Close()

	reader, finalURL, err := FetchWithRandomHeaders(context.Background(), server.URL, "de-AT")
	require.NoError(t, err)
	assert.Equal(t, server.URL, finalURL)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Hallo, Welt!")
}

func TestFetchWithRandomHeadersFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sale", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/country-selector", http.StatusFound)
	})
	mux.HandleFunc("/country-selector", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>choose</body></html>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, finalURL, err := FetchWithRandomHeaders(context.Background(), server.URL+"/sale", "")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/country-selector", finalURL)
}

func TestFetchWithRandomHeadersNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Gr\xfc\xdfe</body></html>"))
	}))
	defer server.Close()

	reader, _, err := FetchWithRandomHeaders(context.Background(), server.URL, "de-AT")
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	assert.NoError(t, err)
	assert.Contains(t, string(body), "Grüße")
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := FetchWithRandomHeaders(context.Background(), server.URL, "de-AT")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.False(t, statusErr.ClientError())

	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, _, err = FetchWithRandomHeaders(context.Background(), serverRateLimited.URL, "de-AT")
	var rateLimited *ErrRateLimited
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, "60", rateLimited.RetryAfter)
}

func TestStatusErrorClientError(t *testing.T) {
	assert.True(t, (&StatusError{Code: http.StatusNotFound}).ClientError())
	assert.True(t, (&StatusError{Code: http.StatusGone}).ClientError())
	assert.False(t, (&StatusError{Code: http.StatusRequestTimeout}).ClientError())
	assert.False(t, (&StatusError{Code: http.StatusBadGateway}).ClientError())
}

func TestAcceptLanguage(t *testing.T) {
	assert.Equal(t, "de-AT,de;q=0.9,en;q=0.8", AcceptLanguage("de-AT"))
	assert.Equal(t, "fr,en;q=0.8", AcceptLanguage("fr"))
	assert.Equal(t, "en-US,en;q=0.9", AcceptLanguage(""))
}

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Contains(t, userAgents, RandomUserAgent())
	}
}
