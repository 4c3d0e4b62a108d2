package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorExternalFailure {
		t.Fatalf("expected %q text code, got %q", core.ErrorExternalFailure, rich.TextCode)
	}
}

func TestRESTAdapter_SendsHeadersQueryAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("apiKey") != "k1" {
			t.Errorf("expected apiKey query, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("X-Shopify-Access-Token") != "tok" {
			t.Errorf("expected access token header")
		}
		if r.Header.Get(HeaderContentType) != ContentTypeJSON {
			t.Errorf("expected json content type, got %q", r.Header.Get(HeaderContentType))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"phone":"+911234567890"}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("X-Request-Id", "req-1")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	req, err := NewJSONRequest(http.MethodPost, server.URL, map[string]string{"phone": "+911234567890"}, map[string]string{
		"X-Shopify-Access-Token": "tok",
	})
	if err != nil {
		t.Fatalf("new json request: %v", err)
	}
	req.Query = map[string]string{"apiKey": "k1"}

	res, err := NewRESTAdapter(server.Client()).Do(context.Background(), req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated || !IsSuccess(res.StatusCode) {
		t.Fatalf("unexpected status %d", res.StatusCode)
	}
	if res.Headers["X-Request-Id"] != "req-1" {
		t.Fatalf("expected flattened headers, got %#v", res.Headers)
	}
}

func TestRESTAdapter_RequiresURL(t *testing.T) {
	_, err := NewRESTAdapter(nil).Do(context.Background(), core.TransportRequest{})
	if core.KindOf(err) != core.KindValidation {
		t.Fatalf("expected validation kind, got %q (%v)", core.KindOf(err), err)
	}
}

func TestStatusError_Categories(t *testing.T) {
	cases := map[int]goerrors.Category{
		429: goerrors.CategoryRateLimit,
		401: goerrors.CategoryAuth,
		403: goerrors.CategoryAuthz,
		500: goerrors.CategoryExternal,
	}
	for status, want := range cases {
		err := StatusError("test", core.TransportResponse{StatusCode: status, Body: []byte("nope")})
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) || rich.Category != want {
			t.Fatalf("status %d: expected %q, got %v", status, want, err)
		}
	}
}

func graphQLServer(t *testing.T, status int, response string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		w.Header().Set(HeaderContentType, ContentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
}

func TestGraphQLAdapter_ExecuteDecodesData(t *testing.T) {
	var payload map[string]any
	server := graphQLServer(t, http.StatusOK, `{"data":{"shop":{"name":"acme"}}}`, &payload)
	defer server.Close()

	adapter := NewGraphQLAdapter("", server.Client())
	res, err := adapter.Execute(context.Background(), server.URL, "query { shop { name } }", map[string]any{"q": "name:1001"}, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if payload["query"] != "query { shop { name } }" {
		t.Fatalf("unexpected query payload %#v", payload)
	}
	if vars, ok := payload["variables"].(map[string]any); !ok || vars["q"] != "name:1001" {
		t.Fatalf("unexpected variables %#v", payload["variables"])
	}
	var data struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}
	if err := res.Decode(&data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Shop.Name != "acme" || res.Partial() {
		t.Fatalf("unexpected response %#v partial=%v", data, res.Partial())
	}
}

func TestGraphQLAdapter_PartialResponseIsSoftSuccess(t *testing.T) {
	server := graphQLServer(t, http.StatusOK, `{"data":{"order":{"id":"1"}},"errors":[{"message":"field deprecated"}]}`, nil)
	defer server.Close()

	res, err := NewGraphQLAdapter(server.URL, server.Client()).Execute(context.Background(), "", "query { order { id } }", nil, nil)
	if err != nil {
		t.Fatalf("expected partial response to succeed, got %v", err)
	}
	if !res.Partial() {
		t.Fatalf("expected partial flag")
	}
	if msgs := res.ErrorMessages(); len(msgs) != 1 || msgs[0] != "field deprecated" {
		t.Fatalf("unexpected messages %#v", msgs)
	}
}

func TestGraphQLAdapter_ErrorsWithoutDataFail(t *testing.T) {
	server := graphQLServer(t, http.StatusOK, `{"data":null,"errors":[{"message":"access denied"}]}`, nil)
	defer server.Close()

	_, err := NewGraphQLAdapter(server.URL, server.Client()).Execute(context.Background(), "", "query { x }", nil, nil)
	if core.KindOf(err) != core.KindExternalAPI {
		t.Fatalf("expected external api failure, got %v", err)
	}
}

func TestGraphQLAdapter_NonSuccessStatusFails(t *testing.T) {
	server := graphQLServer(t, http.StatusTooManyRequests, `{"errors":[{"message":"Throttled"}]}`, nil)
	defer server.Close()

	_, err := NewGraphQLAdapter(server.URL, server.Client()).Execute(context.Background(), "", "query { x }", nil, nil)
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit envelope, got %v", err)
	}
}
