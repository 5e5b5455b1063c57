package completion

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func textResponse(status int, contentType, body string) *http.Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestOllamaTransport_PassesThroughJSON(t *testing.T) {
	transport := &ollamaTransport{
		provider: "ollama",
		inner: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return textResponse(200, "application/json", `{"ok":true}`), nil
		}),
	}

	req, _ := http.NewRequest("POST", "http://localhost:11434/api/chat", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestOllamaTransport_PassesThroughNDJSON(t *testing.T) {
	transport := &ollamaTransport{
		provider: "ollama",
		inner: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return textResponse(200, "application/x-ndjson", `{"done":false}`), nil
		}),
	}

	req, _ := http.NewRequest("POST", "http://localhost:11434/api/chat", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	resp.Body.Close()
}

func TestOllamaTransport_TransportError(t *testing.T) {
	transport := &ollamaTransport{
		provider: "ollama",
		inner: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}),
	}

	req, _ := http.NewRequest("POST", "http://localhost:11434/api/chat", nil)
	_, err := transport.RoundTrip(req)
	if err == nil {
		t.Fatal("expected error")
	}
	var unavailable *ErrModelUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %T", err)
	}
	if unavailable.Cause == nil {
		t.Error("expected Cause to be set")
	}
}

func TestOllamaTransport_ErrorStatus(t *testing.T) {
	transport := &ollamaTransport{
		provider: "ollama",
		inner: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return textResponse(503, "text/plain", "no available server"), nil
		}),
	}

	req, _ := http.NewRequest("POST", "http://localhost:11434/api/chat", nil)
	_, err := transport.RoundTrip(req)
	var unavailable *ErrModelUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if unavailable.Body != "no available server" {
		t.Errorf("expected body captured, got %q", unavailable.Body)
	}
}

func TestOllamaTransport_NonJSONContentType(t *testing.T) {
	transport := &ollamaTransport{
		provider: "ollama",
		inner: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return textResponse(200, "text/html", "<html>proxy error</html>"), nil
		}),
	}

	req, _ := http.NewRequest("POST", "http://localhost:11434/api/chat", nil)
	_, err := transport.RoundTrip(req)
	var unavailable *ErrModelUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if !strings.Contains(unavailable.Body, "proxy error") {
		t.Errorf("expected body captured, got %q", unavailable.Body)
	}
}
