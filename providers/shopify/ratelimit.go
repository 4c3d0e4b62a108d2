package shopify

import (
	"strconv"
	"strings"
	"time"
)

const defaultRetryAfter429 = 2 * time.Second

// ResponseMeta is the call-budget and tracing metadata Shopify attaches to
// Admin API responses. It is reported, never acted on: calls are not retried.
type ResponseMeta struct {
	StatusCode    int
	RequestID     string
	APIVersion    string
	CallsUsed     int
	CallLimit     int
	CallRemaining int
	RetryAfter    time.Duration
	Throttled     bool
}

func NormalizeAdminAPIResponse(statusCode int, headers map[string]string, body []byte) ResponseMeta {
	meta := ResponseMeta{
		StatusCode: statusCode,
		RequestID:  headerValue(headers, "x-request-id"),
		APIVersion: headerValue(headers, "x-shopify-api-version"),
	}
	if used, limit, ok := parseShopifyCallLimit(headerValue(headers, "x-shopify-shop-api-call-limit")); ok {
		meta.CallsUsed = used
		meta.CallLimit = limit
		meta.CallRemaining = max(limit-used, 0)
	}
	if retryAfter, ok := parseRetryAfter(headers); ok {
		meta.RetryAfter = retryAfter
	}
	if statusCode == 429 {
		meta.Throttled = true
		if meta.RetryAfter == 0 {
			meta.RetryAfter = defaultRetryAfter429
		}
	}
	if strings.Contains(strings.ToLower(string(body)), "throttled") {
		meta.Throttled = true
	}
	return meta
}

// Fields renders the metadata for structured logs and error envelopes.
func (m ResponseMeta) Fields() map[string]any {
	fields := map[string]any{"status_code": m.StatusCode}
	if m.RequestID != "" {
		fields["shopify_request_id"] = m.RequestID
	}
	if m.APIVersion != "" {
		fields["shopify_api_version"] = m.APIVersion
	}
	if m.CallLimit > 0 {
		fields["shopify_api_call_used"] = m.CallsUsed
		fields["shopify_api_call_limit"] = m.CallLimit
		fields["shopify_api_call_remaining"] = m.CallRemaining
	}
	if m.RetryAfter > 0 {
		fields["shopify_retry_after_seconds"] = int64(m.RetryAfter.Seconds())
	}
	if m.Throttled {
		fields["shopify_throttled"] = true
	}
	return fields
}

func parseShopifyCallLimit(value string) (used int, limit int, ok bool) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || used < 0 {
		return 0, 0, false
	}
	limit, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || limit <= 0 {
		return 0, 0, false
	}
	return used, limit, true
}

func parseRetryAfter(headers map[string]string) (time.Duration, bool) {
	raw := strings.TrimSpace(headerValue(headers, "retry-after"))
	if raw == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

func headerValue(headers map[string]string, key string) string {
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
