// Package botspace sends templated customer messages through the Botspace
// messaging API.
package botspace

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/transport"
)

const (
	StatusAccepted = "accepted"

	headerAPIKey = "apiKey"
)

type Config struct {
	Notifier       core.NotifierConfig
	HTTPClient     transport.HTTPDoer
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

// Client resolves the notifier endpoint per account, falling back to the
// global notifier settings for any empty field.
type Client struct {
	accounts *core.AccountDirectory
	global   core.NotifierConfig
	rest     *transport.RESTAdapter
	observer core.Observer
}

func NewClient(accounts *core.AccountDirectory, cfg Config) *Client {
	return &Client{
		accounts: accounts,
		global:   cfg.Notifier,
		rest:     transport.NewRESTAdapter(cfg.HTTPClient),
		observer: core.NewObserver("botspace", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

type card struct {
	Variables     []string `json:"variables"`
	MediaVariable string   `json:"mediaVariable,omitempty"`
}

type payload struct {
	Phone         string   `json:"phone"`
	TemplateID    string   `json:"templateId"`
	Variables     []string `json:"variables"`
	Cards         []card   `json:"cards,omitempty"`
	MediaVariable string   `json:"mediaVariable,omitempty"`
}

type response struct {
	Data struct {
		ID             string `json:"id"`
		ConversationID string `json:"conversationId"`
		Status         string `json:"status"`
	} `json:"data"`
}

type endpoint struct {
	url string
	key string
}

func (c *Client) resolve(accountCode string) (endpoint, error) {
	var account core.NotifierAccountConfig
	if found, ok := c.accounts.Lookup(accountCode); ok {
		account = found.Notifier
	}
	base := firstNonEmpty(account.URL, c.global.URL)
	key := firstNonEmpty(account.Key, c.global.Key)
	path := firstNonEmpty(account.Endpoint, c.global.Endpoint)
	if base == "" || key == "" {
		return endpoint{}, core.NewError("providers/botspace: notifier is not configured", goerrors.CategoryBadInput, core.ErrorAccountNotConfigured, map[string]any{
			"account_code": accountCode,
		})
	}
	url := strings.TrimSuffix(base, "/")
	if path = strings.Trim(path, "/"); path != "" {
		url += "/" + path
	}
	return endpoint{url: url, key: key}, nil
}

// Send posts msg and reports whether the notifier accepted it. A response
// that decodes but is not accepted returns a receipt with Accepted false and
// an external error.
func (c *Client) Send(ctx context.Context, msg core.NotifierMessage) (core.NotifierReceipt, error) {
	startedAt := time.Now()
	fields := map[string]any{"account_code": msg.AccountCode, "template_id": msg.TemplateID}
	target, err := c.resolve(msg.AccountCode)
	if err != nil {
		c.observer.Observe(ctx, startedAt, "botspace_send", err, fields)
		return core.NotifierReceipt{}, err
	}

	body := payload{
		Phone:         msg.Phone,
		TemplateID:    msg.TemplateID,
		Variables:     nonNil(msg.Variables),
		MediaVariable: msg.MediaVariable,
	}
	for _, item := range msg.Cards {
		body.Cards = append(body.Cards, card{Variables: nonNil(item.Variables), MediaVariable: item.MediaVariable})
	}
	req, err := transport.NewJSONRequest(http.MethodPost, target.url, body, map[string]string{
		"Authorization": "Bearer " + target.key,
		headerAPIKey:    target.key,
	})
	if err != nil {
		c.observer.Observe(ctx, startedAt, "botspace_send", err, fields)
		return core.NotifierReceipt{}, err
	}
	req.Query = map[string]string{headerAPIKey: target.key}

	res, err := c.rest.Do(ctx, req)
	if err != nil {
		c.observer.Observe(ctx, startedAt, "botspace_send", err, fields)
		return core.NotifierReceipt{}, err
	}
	fields["status_code"] = res.StatusCode
	if !transport.IsSuccess(res.StatusCode) {
		err = transport.StatusError("botspace send", res)
		c.observer.Observe(ctx, startedAt, "botspace_send", err, fields)
		return core.NotifierReceipt{}, err
	}

	var decoded response
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		wrapped := core.WrapError(err, goerrors.CategoryExternal, core.ErrorExternalFailure, "providers/botspace: decode response", fields)
		c.observer.Observe(ctx, startedAt, "botspace_send", wrapped, fields)
		return core.NotifierReceipt{}, wrapped
	}
	receipt := core.NotifierReceipt{
		Accepted:       strings.EqualFold(strings.TrimSpace(decoded.Data.Status), StatusAccepted),
		MessageID:      decoded.Data.ID,
		ConversationID: decoded.Data.ConversationID,
		Status:         decoded.Data.Status,
	}
	fields["message_id"] = receipt.MessageID
	fields["message_status"] = receipt.Status
	if !receipt.Accepted {
		err = core.NewError("providers/botspace: message was not accepted", goerrors.CategoryExternal, core.ErrorExternalFailure, fields)
	}
	c.observer.Observe(ctx, startedAt, "botspace_send", err, fields)
	return receipt, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

var _ core.Notifier = (*Client)(nil)
