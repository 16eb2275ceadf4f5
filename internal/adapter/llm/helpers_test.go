package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"parley/internal/domain"
)

func TestMapHTTPError(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrAuthInvalid},
		{http.StatusInternalServerError, domain.ErrTransport},
		{http.StatusBadGateway, domain.ErrTransport},
		{http.StatusBadRequest, domain.ErrTransport},
	}
	for _, tc := range cases {
		err := mapHTTPError(tc.status, []byte("detail"))
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}
}

func TestDoJSONRequestSetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Custom") != "yes" {
			t.Errorf("custom header missing")
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	body, err := doJSONRequest(context.Background(), server.Client(), server.URL, []byte(`{}`), map[string]string{"X-Custom": "yes"})
	if err != nil {
		t.Fatalf("doJSONRequest: %v", err)
	}
	if string(body) != `{"ok": true}` {
		t.Errorf("body = %q", body)
	}
}

func TestDoJSONRequestConnectionFailure(t *testing.T) {
	// Nothing listens on this address.
	_, err := doJSONRequest(context.Background(), http.DefaultClient, "http://127.0.0.1:1", nil, nil)
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}
