package aiwish

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

func testConfig() config.WishesConfig {
	return config.WishesConfig{
		BaseURL: "http://wishes.test/v1",
		APIKey:  "wish-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}
}

func TestClientGenerateRequest(t *testing.T) {
	const expectedURL = "http://wishes.test/v1/chat/completions"
	respBody := `{"choices":[{"message":{"content":"Happy birthday, Ama! May this year overflow with joy."}}]}`

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
		if payload["model"] != "gpt-4o-mini" {
			t.Fatalf("unexpected model %q", payload["model"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	wish, err := client.Generate(context.Background(), "Ama")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("Authorization") != "Bearer wish-key" {
		t.Fatalf("authorization header missing")
	}
	if !strings.Contains(wish, "Ama") {
		t.Fatalf("unexpected wish %q", wish)
	}
}

func TestClientGenerateEmptyChoices(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"choices":[]}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Generate(context.Background(), "Ama")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestStaticWish(t *testing.T) {
	wish := StaticWish("Kofi")
	if !strings.Contains(wish, "Kofi") {
		t.Fatalf("wish should mention the name: %q", wish)
	}
	if StaticWish("") == "" {
		t.Fatalf("fallback wish should never be empty")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
