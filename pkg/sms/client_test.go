package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
)

func testConfig() config.SMSConfig {
	return config.SMSConfig{
		BaseURL:  "http://sms.test/v2",
		APIKey:   "sms-key",
		SenderID: "FLOCKTRACK",
		Timeout:  5 * time.Second,
	}
}

func TestClientSendRequest(t *testing.T) {
	const expectedURL = "http://sms.test/v2/messages"

	var capturedURL string
	var capturedHeaders http.Header

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["sender"] != "FLOCKTRACK" {
			t.Fatalf("expected default sender, got %q", payload["sender"])
		}
		recipients, ok := payload["recipients"].([]any)
		if !ok || len(recipients) != 2 {
			t.Fatalf("unexpected recipients %+v", payload["recipients"])
		}

		return &http.Response{
			StatusCode: http.StatusAccepted,
			Body:       io.NopCloser(strings.NewReader(`{"accepted":2}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Send(context.Background(), SendParams{
		Recipients: []string{"+233200000001", "+233200000002"},
		Message:    "Midweek service starts at 6pm",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer sms-key" {
		t.Fatalf("authorization header missing")
	}
	if result.Accepted != 2 {
		t.Fatalf("unexpected accepted count %d", result.Accepted)
	}
}

func TestClientSendValidatesInput(t *testing.T) {
	client, err := NewClient(testConfig())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Send(context.Background(), SendParams{Message: "hi"}); err == nil {
		t.Fatalf("expected error for missing recipients")
	}
	if _, err := client.Send(context.Background(), SendParams{Recipients: []string{"+233200000001"}}); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

func TestClientSendMapsRateLimit(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader("slow down")),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Send(context.Background(), SendParams{
		Recipients: []string{"+233200000001"},
		Message:    "hello",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeRateLimit {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
