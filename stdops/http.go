package stdops

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nodegraph/engine/binder"
	"github.com/nodegraph/engine/model"
)

// HTTPRequest is a supplemented callable operator adapted from
// the teacher's graph/tool/http.go HTTPTool: it issues a GET or POST
// and surfaces status code, headers, and body as outputs. Unlike the
// teacher's tool (an LLM-agent callable returning a map), this is a
// callable node wired with Enter/Exit so it can sit in an ordinary
// execution chain.
//
// Limiter, if set, throttles outgoing requests — a node graph's
// Parallel ForEach can fan this operator out across many concurrent
// iterations, and a single HTTP tool instance shared across a run (or
// across runs, if the caller reuses one HTTPRequest value) otherwise
// has no way to cap request rate against a downstream API's quota.
type HTTPRequest struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

func (h HTTPRequest) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

func (h HTTPRequest) Execute(ctx binder.Context, cancel <-chan struct{}) error {
	urlVal, err := ctx.GetInput("URL")
	if err != nil {
		return err
	}
	url := urlVal.AsString()
	if url == "" {
		return fmt.Errorf("http request: URL is required")
	}

	method := "GET"
	if m, err := ctx.GetInput("Method"); err == nil && !m.IsNil() && m.AsString() != "" {
		method = strings.ToUpper(m.AsString())
	}
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("http request: unsupported method %q", method)
	}

	var body io.Reader
	if b, err := ctx.GetInput("Body"); err == nil && !b.IsNil() && b.AsString() != "" {
		body = bytes.NewBufferString(b.AsString())
	}

	httpCtx, cancelReq := newCancelableContext(cancel)
	defer cancelReq()

	if h.Limiter != nil {
		if err := h.Limiter.Wait(httpCtx); err != nil {
			return fmt.Errorf("http request: rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(httpCtx, method, url, body)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if headers, err := ctx.GetInput("Headers"); err == nil && headers.Kind == model.KindMap {
		for k, v := range headers.Map {
			req.Header.Set(k, v.AsString())
		}
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("http request: reading response: %w", err)
	}

	respHeaders := make(map[string]model.Value, len(resp.Header))
	for k, vs := range resp.Header {
		respHeaders[k] = model.String(strings.Join(vs, ", "))
	}

	ctx.SetOutput("StatusCode", model.Int(int64(resp.StatusCode)))
	ctx.SetOutput("Headers", model.MapVal(respHeaders))
	ctx.SetOutput("Body", model.String(string(respBody)))
	return ctx.Trigger("Exit")
}
