package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

const (
	HeaderShopifyHMAC      = "X-Shopify-Hmac-Sha256"
	HeaderShopifyShop      = "X-Shopify-Shop-Domain"
	HeaderShopifyWebhookID = "X-Shopify-Webhook-Id"
	HeaderWebhookToken     = "X-Webhook-Token"
)

type Request struct {
	Headers map[string]string
	Body    []byte
}

// FromHTTP flattens r's headers. The body must already be read.
func FromHTTP(r *http.Request, body []byte) Request {
	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		headers[key] = strings.Join(values, ",")
	}
	return Request{Headers: headers, Body: body}
}

func (r Request) Header(key string) string {
	return headerValue(r.Headers, key)
}

type Verifier interface {
	Verify(ctx context.Context, req Request) error
}

type VerifierFunc func(ctx context.Context, req Request) error

func (f VerifierFunc) Verify(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Skip accepts every request. It is used when no secret is configured.
var Skip Verifier = VerifierFunc(func(context.Context, Request) error { return nil })

type HeaderHMACVerifier struct {
	Header   string
	Prefix   string
	Secret   string
	Encoding string // hex | base64
}

func (v HeaderHMACVerifier) Verify(_ context.Context, req Request) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return unauthorized("webhooks: signature header is required", v.Header)
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return unauthorized("webhooks: signature secret is required", v.Header)
	}
	signature := strings.TrimSpace(strings.TrimPrefix(header, strings.TrimSpace(v.Prefix)))
	if signature == "" {
		return unauthorized("webhooks: signature value is required", v.Header)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	var decoded []byte
	var err error
	switch strings.ToLower(strings.TrimSpace(v.Encoding)) {
	case "base64":
		decoded, err = base64.StdEncoding.DecodeString(signature)
	default:
		decoded, err = hex.DecodeString(signature)
	}
	if err != nil {
		return unauthorized("webhooks: signature is not decodable", v.Header)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return unauthorized("webhooks: signature verification failed", v.Header)
	}
	return nil
}

type HeaderTokenVerifier struct {
	Header string
	Token  string
}

func (v HeaderTokenVerifier) Verify(_ context.Context, req Request) error {
	expected := strings.TrimSpace(v.Token)
	if expected == "" {
		return unauthorized("webhooks: verification token is required", v.Header)
	}
	actual := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if actual == "" {
		return unauthorized("webhooks: verification header is required", v.Header)
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return unauthorized("webhooks: verification token mismatch", v.Header)
	}
	return nil
}

// ShopifyVerifier checks the base64 HMAC Shopify sends with every webhook.
// An empty secret disables verification.
func ShopifyVerifier(secret string) Verifier {
	if strings.TrimSpace(secret) == "" {
		return Skip
	}
	return HeaderHMACVerifier{Header: HeaderShopifyHMAC, Secret: secret, Encoding: "base64"}
}

// TokenVerifier checks a shared token header. An empty token disables it.
func TokenVerifier(token string) Verifier {
	if strings.TrimSpace(token) == "" {
		return Skip
	}
	return HeaderTokenVerifier{Header: HeaderWebhookToken, Token: token}
}

func unauthorized(message string, header string) error {
	return core.NewError(message, goerrors.CategoryAuth, core.ErrorUnauthorized, map[string]any{
		"header": strings.TrimSpace(header),
	})
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[key]; ok {
		return strings.TrimSpace(value)
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
