// Live search parameters.
//
// Information Hiding:
// - Parameters ride on the request context from StreamChat to the transport
// - Only chat completion bodies that name a model are patched
// - Everything else passes through untouched

package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SearchMode selects provider-side web search behaviour.
type SearchMode string

const (
	SearchOn   SearchMode = "on"
	SearchOff  SearchMode = "off"
	SearchAuto SearchMode = "auto"
)

// SearchParameters is the search_parameters object of an xAI chat request.
type SearchParameters struct {
	Mode             SearchMode `json:"mode"`
	MaxSearchResults *int       `json:"max_search_results,omitempty"`
}

type searchParamsKey struct{}

// WithSearchParameters returns a context whose chat requests carry params.
func WithSearchParameters(ctx context.Context, params *SearchParameters) context.Context {
	if params == nil {
		return ctx
	}
	return context.WithValue(ctx, searchParamsKey{}, params)
}

// SearchParametersFrom returns the parameters stored by WithSearchParameters.
func SearchParametersFrom(ctx context.Context) *SearchParameters {
	params, _ := ctx.Value(searchParamsKey{}).(*SearchParameters)
	return params
}

// searchTransport injects search_parameters into chat completion bodies.
type searchTransport struct {
	base http.RoundTripper
}

// NewSearchTransport wraps base so that requests whose context carries
// SearchParameters get them written into the JSON body.
func NewSearchTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &searchTransport{base: base}
}

func (t *searchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	params := SearchParametersFrom(req.Context())
	if params == nil || req.Body == nil || req.Method != http.MethodPost ||
		!strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	if gjson.GetBytes(body, "model").Exists() {
		body, err = sjson.SetBytes(body, "search_parameters", params)
		if err != nil {
			return nil, fmt.Errorf("set search_parameters: %w", err)
		}
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.ContentLength = int64(len(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(out)
}
