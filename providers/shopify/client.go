package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/transport"
)

const headerAccessToken = "X-Shopify-Access-Token"

type Config struct {
	APIVersion      string
	TrackingCompany string
	HTTPClient      transport.HTTPDoer
	Logger          core.Logger
	LoggerProvider  core.LoggerProvider
	Metrics         core.MetricsRecorder
}

// Client talks to every configured shop. Account credentials come from the
// directory on each call.
type Client struct {
	accounts        *core.AccountDirectory
	apiVersion      string
	trackingCompany string
	rest            *transport.RESTAdapter
	graphql         *transport.GraphQLAdapter
	observer        core.Observer
}

func NewClient(accounts *core.AccountDirectory, cfg Config) *Client {
	apiVersion := strings.TrimSpace(cfg.APIVersion)
	if apiVersion == "" {
		apiVersion = core.DefaultCommerceAPIVersion
	}
	company := strings.TrimSpace(cfg.TrackingCompany)
	if company == "" {
		company = core.DefaultFulfillmentTrackCompany
	}
	rest := transport.NewRESTAdapter(cfg.HTTPClient)
	return &Client{
		accounts:        accounts,
		apiVersion:      apiVersion,
		trackingCompany: company,
		rest:            rest,
		graphql:         &transport.GraphQLAdapter{REST: rest},
		observer:        core.NewObserver("shopify", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

func (c *Client) account(accountCode string) (core.AccountConfig, error) {
	account, ok := c.accounts.Lookup(accountCode)
	if !ok {
		return core.AccountConfig{}, core.ErrAccountNotConfigured(accountCode)
	}
	if account.APIBaseURL(c.apiVersion) == "" {
		return core.AccountConfig{}, core.ErrAccountNotConfigured(accountCode)
	}
	return account, nil
}

func (c *Client) headers(account core.AccountConfig) map[string]string {
	headers := map[string]string{"Accept": transport.ContentTypeJSON}
	if token := strings.TrimSpace(account.AccessToken); token != "" {
		headers[headerAccessToken] = token
	}
	return headers
}

// query runs one GraphQL document. Partial responses are logged and returned
// as successes.
func (c *Client) query(
	ctx context.Context,
	account core.AccountConfig,
	operation string,
	document string,
	variables map[string]any,
	target any,
) error {
	startedAt := time.Now()
	res, err := c.graphql.Execute(ctx, account.GraphQLURL(c.apiVersion), document, variables, c.headers(account))
	fields := map[string]any{"account_code": account.Code, "graphql_operation": operation}
	if err != nil {
		c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
		return err
	}
	for key, value := range NormalizeAdminAPIResponse(res.StatusCode, res.Headers, nil).Fields() {
		fields[key] = value
	}
	if res.Partial() {
		fields["graphql_errors"] = res.ErrorMessages()
		fields["error_kind"] = string(core.KindPartialResponse)
		c.observer.Warn(ctx, "shopify graphql partial response", fields)
	}
	err = res.Decode(target)
	c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
	return err
}

// call issues one REST request under the account's admin API root.
func (c *Client) call(
	ctx context.Context,
	account core.AccountConfig,
	operation string,
	method string,
	path string,
	payload any,
	target any,
) error {
	startedAt := time.Now()
	url := account.APIBaseURL(c.apiVersion) + path
	fields := map[string]any{"account_code": account.Code, "method": method, "path": path}

	req := core.TransportRequest{Method: method, URL: url, Headers: c.headers(account)}
	if payload != nil {
		built, err := transport.NewJSONRequest(method, url, payload, c.headers(account))
		if err != nil {
			c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
			return err
		}
		req = built
	}

	res, err := c.rest.Do(ctx, req)
	if err != nil {
		c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
		return err
	}
	meta := NormalizeAdminAPIResponse(res.StatusCode, res.Headers, res.Body)
	for key, value := range meta.Fields() {
		fields[key] = value
	}
	if !transport.IsSuccess(res.StatusCode) {
		err = transport.StatusError("shopify "+operation, res)
		c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
		return err
	}
	if target != nil && len(res.Body) > 0 {
		if decodeErr := json.Unmarshal(res.Body, target); decodeErr != nil {
			err = core.WrapError(decodeErr, goerrors.CategoryExternal, core.ErrorExternalFailure,
				fmt.Sprintf("providers/shopify: decode %s response", operation), fields)
		}
	}
	c.observer.Observe(ctx, startedAt, "shopify_"+operation, err, fields)
	return err
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func userErrorsToError(operation string, accountCode string, errs []userError) error {
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, item := range errs {
		messages = append(messages, strings.TrimSpace(item.Message))
	}
	return core.NewError(
		"providers/shopify: "+operation+" returned user errors",
		goerrors.CategoryExternal,
		core.ErrorExternalFailure,
		map[string]any{"account_code": accountCode, "user_errors": messages},
	)
}

func requireNumericOrderID(accountCode string, order core.OrderHandle) (int64, error) {
	if order.NumericID > 0 {
		return order.NumericID, nil
	}
	if id, ok := ParseNumericID(order.GID, GIDPrefixOrder); ok {
		return id, nil
	}
	return 0, core.NewError("providers/shopify: order id is not parseable", goerrors.CategoryBadInput, core.ErrorBadInput, map[string]any{
		"account_code": accountCode,
		"order_gid":    order.GID,
		"status_code":  http.StatusBadRequest,
	})
}

var _ core.CommerceClient = (*Client)(nil)
