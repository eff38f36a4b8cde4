package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/FrankDu1/psychologist-chatbot/internal/provider"
)

func newRequest(url string) *provider.Request {
	return &provider.Request{
		URL: url,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer test-key",
		},
		Body: []byte(`{"model":"m"}`),
	}
}

func TestClient_SuccessReturnsRawJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	body, err := NewClient(5*time.Second).Do(context.Background(), newRequest(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "hello", gjson.GetBytes(body, "choices.0.message.content").String())
}

func TestClient_NonJSONSuccessWrappedAsRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text answer"))
	}))
	defer srv.Close()

	body, err := NewClient(5*time.Second).Do(context.Background(), newRequest(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "plain text answer", gjson.GetBytes(body, "raw_text").String())
}

func TestClient_HTTPErrorExtractsErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(5*time.Second).Do(context.Background(), newRequest(srv.URL))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", httpErr.Message)
}

func TestClient_HTTPErrorFallsBackToRawTextTruncated(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	_, err := NewClient(5*time.Second).Do(context.Background(), newRequest(srv.URL))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Len(t, httpErr.Message, 200, "caller-facing message truncated to 200 chars")
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, err := NewClient(time.Second).Do(context.Background(), newRequest(srv.URL))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can detect the
		// client disconnect and cancel the request context; otherwise the
		// handler never returns and srv.Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(5*time.Second).Do(ctx, newRequest(srv.URL))
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}
