package stdops_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nodegraph/engine/model"
	"github.com/nodegraph/engine/stdops"
)

func TestHTTPRequest_GETSurfacesStatusHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	ctx := newFakeContext("http1")
	ctx.inputs["URL"] = model.String(srv.URL)

	if err := (stdops.HTTPRequest{}).Execute(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status, _ := ctx.outputs["StatusCode"].AsInt()
	if status != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, status)
	}
	if ctx.outputs["Body"].AsString() != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", ctx.outputs["Body"].AsString())
	}
	if len(ctx.triggered) != 1 || ctx.triggered[0] != "Exit" {
		t.Fatalf("expected Exit triggered, got %v", ctx.triggered)
	}
}

func TestHTTPRequest_RejectsMissingURL(t *testing.T) {
	ctx := newFakeContext("http2")
	if err := (stdops.HTTPRequest{}).Execute(ctx, nil); err == nil {
		t.Fatal("expected error for missing URL")
	}
}

func TestHTTPRequest_RejectsUnsupportedMethod(t *testing.T) {
	ctx := newFakeContext("http3")
	ctx.inputs["URL"] = model.String("http://example.invalid")
	ctx.inputs["Method"] = model.String("DELETE")
	if err := (stdops.HTTPRequest{}).Execute(ctx, nil); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}

func TestHTTPRequest_RateLimiterIsHonored(t *testing.T) {
	var callCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)
	op := stdops.HTTPRequest{Limiter: limiter}

	start := time.Now()
	for i := 0; i < 3; i++ {
		ctx := newFakeContext("http4")
		ctx.inputs["URL"] = model.String(srv.URL)
		if err := op.Execute(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)
	if callCount != 3 {
		t.Fatalf("expected 3 calls, got %d", callCount)
	}
	if elapsed < 15*time.Millisecond {
		t.Fatalf("expected rate limiting to introduce delay, elapsed=%s", elapsed)
	}
}
