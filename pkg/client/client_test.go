package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAPIErrorFromDetailBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"You are not a member of this meetup"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.SendMessage(context.Background(), SendMessageRequest{MeetupID: "m1", UserID: "u1", Message: "x", MessageType: "chat"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 403 || apiErr.Message != "You are not a member of this meetup" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if IsNetworkError(err) {
		t.Fatal("application error misclassified as network error")
	}
}

func TestNetworkErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, time.Second)
	_, err := c.Health(context.Background())
	if err == nil {
		t.Fatal("expected error against a closed server")
	}
	if !IsNetworkError(err) {
		t.Fatalf("transport failure should be a network error: %v", err)
	}
}

func TestIsNetworkErrorNil(t *testing.T) {
	if IsNetworkError(nil) {
		t.Fatal("nil is not a network error")
	}
}

func TestReadErrorMessageShapes(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"detail":"token expired"}`, "token expired"},
		{`{"error":"bad request"}`, "bad request"},
		{"plain text failure\n", "plain text failure"},
	}
	for _, tc := range cases {
		if got := readErrorMessage(strings.NewReader(tc.body)); got != tc.want {
			t.Fatalf("body %q: got %q want %q", tc.body, got, tc.want)
		}
	}
}

func TestBaseURLTrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8000/", time.Second)
	if c.BaseURL() != "http://localhost:8000" {
		t.Fatalf("base url: %s", c.BaseURL())
	}
}
