package botspace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-shipnotify/core"
)

type capturedRequest struct {
	path    string
	query   string
	auth    string
	apiKey  string
	rawBody string
	body    map[string]any
}

func newNotifierServer(t *testing.T, status int, reply string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	captured := &[]capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		req := capturedRequest{
			path:    r.URL.Path,
			query:   r.URL.Query().Get("apiKey"),
			auth:    r.Header.Get("Authorization"),
			apiKey:  r.Header.Get("apiKey"),
			rawBody: string(raw),
		}
		_ = json.Unmarshal(raw, &req.body)
		*captured = append(*captured, req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestClient_SendAccepted(t *testing.T) {
	server, captured := newNotifierServer(t, http.StatusOK, `{"data":{"id":"m1","conversationId":"c1","status":"ACCEPTED"}}`)
	client := NewClient(core.NewAccountDirectory(map[string]core.AccountConfig{
		"acme": {Notifier: core.NotifierAccountConfig{Key: "acct-key"}},
	}), Config{Notifier: core.NotifierConfig{URL: server.URL + "/", Key: "global-key", Endpoint: "/v1/messages"}})

	receipt, err := client.Send(context.Background(), core.NotifierMessage{
		AccountCode:   "ACME",
		Phone:         "+919876543210",
		TemplateID:    "tpl-transit",
		Variables:     []string{"Asha", "2", "1001", "https://t/AWB1"},
		MediaVariable: "https://t/AWB1",
		Cards:         []core.NotifierCard{{MediaVariable: "https://t/AWB1"}},
	})
	if err != nil || !receipt.Accepted || receipt.MessageID != "m1" {
		t.Fatalf("expected accepted receipt, got %#v err=%v", receipt, err)
	}
	req := (*captured)[0]
	if req.path != "/v1/messages" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.query != "acct-key" || req.apiKey != "acct-key" || req.auth != "Bearer acct-key" {
		t.Fatalf("expected account key precedence, got %#v", req)
	}
	if req.body["templateId"] != "tpl-transit" || req.body["phone"] != "+919876543210" {
		t.Fatalf("unexpected body %#v", req.body)
	}
	if !strings.Contains(req.rawBody, `"cards":[{"variables":[],"mediaVariable":"https://t/AWB1"}]`) {
		t.Fatalf("expected card variables to serialize as empty list, got %s", req.rawBody)
	}
}

func TestClient_SendNotAccepted(t *testing.T) {
	server, _ := newNotifierServer(t, http.StatusOK, `{"data":{"id":"m2","status":"queued"}}`)
	client := NewClient(core.NewAccountDirectory(nil), Config{Notifier: core.NotifierConfig{URL: server.URL, Key: "k"}})

	receipt, err := client.Send(context.Background(), core.NotifierMessage{AccountCode: "ACME", Phone: "+91", TemplateID: "t"})
	if err == nil || receipt.Accepted {
		t.Fatalf("expected rejection, got %#v err=%v", receipt, err)
	}
	if receipt.Status != "queued" {
		t.Fatalf("expected status in receipt, got %q", receipt.Status)
	}
}

func TestClient_SendHTTPFailure(t *testing.T) {
	server, _ := newNotifierServer(t, http.StatusInternalServerError, `oops`)
	client := NewClient(core.NewAccountDirectory(nil), Config{Notifier: core.NotifierConfig{URL: server.URL, Key: "k"}})

	if _, err := client.Send(context.Background(), core.NotifierMessage{AccountCode: "ACME"}); core.KindOf(err) != core.KindExternalAPI {
		t.Fatalf("expected external failure, got %v", err)
	}
}

func TestClient_SendNotConfigured(t *testing.T) {
	client := NewClient(core.NewAccountDirectory(nil), Config{})
	if _, err := client.Send(context.Background(), core.NotifierMessage{AccountCode: "ACME"}); core.KindOf(err) != core.KindNotConfigured {
		t.Fatalf("expected not configured, got %v", err)
	}
}
