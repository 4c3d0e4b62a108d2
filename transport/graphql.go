package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

const KindGraphQL = "graphql"

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLResponse is a decoded GraphQL envelope. Data and Errors may both be
// present.
type GraphQLResponse struct {
	StatusCode int
	Headers    map[string]string
	Data       json.RawMessage
	Errors     []GraphQLError
}

// Partial reports a response carrying data alongside error annotations.
func (r GraphQLResponse) Partial() bool {
	return len(r.Errors) > 0 && hasGraphQLData(r.Data)
}

func (r GraphQLResponse) ErrorMessages() []string {
	messages := make([]string, 0, len(r.Errors))
	for _, item := range r.Errors {
		if msg := strings.TrimSpace(item.Message); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}

// Decode unmarshals Data into target.
func (r GraphQLResponse) Decode(target any) error {
	if !hasGraphQLData(r.Data) {
		return transportError(
			"transport: graphql response has no data",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL},
		)
	}
	if err := json.Unmarshal(r.Data, target); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode graphql data",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL},
		)
	}
	return nil
}

type GraphQLAdapter struct {
	Endpoint string
	REST     *RESTAdapter
}

func NewGraphQLAdapter(endpoint string, client HTTPDoer) *GraphQLAdapter {
	return &GraphQLAdapter{
		Endpoint: strings.TrimSpace(endpoint),
		REST:     NewRESTAdapter(client),
	}
}

func (*GraphQLAdapter) Kind() string {
	return KindGraphQL
}

func (a *GraphQLAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.REST == nil {
		return core.TransportResponse{}, transportError(
			"transport: graphql adapter requires a rest adapter",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	endpoint := strings.TrimSpace(req.URL)
	if endpoint == "" {
		endpoint = a.Endpoint
	}
	if endpoint == "" {
		return core.TransportResponse{}, transportError(
			"transport: graphql endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL},
		)
	}

	query, ok := readGraphQLQuery(req)
	if !ok {
		return core.TransportResponse{}, transportError(
			"transport: graphql query is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	payload := map[string]any{"query": query}
	if operationName := readGraphQLOperationName(req.Metadata); operationName != "" {
		payload["operationName"] = operationName
	}
	if variables, ok := readGraphQLVariables(req.Metadata); ok {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: marshal graphql payload",
			http.StatusBadRequest,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	for key, value := range req.Headers {
		headers[key] = value
	}

	response, err := a.REST.Do(ctx, core.TransportRequest{
		Method:               "POST",
		URL:                  endpoint,
		Headers:              headers,
		Body:                 body,
		Metadata:             req.Metadata,
		Timeout:              req.Timeout,
		MaxResponseBodyBytes: req.MaxResponseBodyBytes,
	})
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: graphql request failed",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "endpoint": endpoint},
		)
	}
	response.Metadata = ensureMetadata(response.Metadata)
	response.Metadata["kind"] = KindGraphQL
	return response, nil
}

// Execute posts query and decodes the envelope. Non-2xx responses and error
// annotations without data fail; errors with data come back as a partial
// response for the caller to log and use.
func (a *GraphQLAdapter) Execute(
	ctx context.Context,
	endpoint string,
	query string,
	variables map[string]any,
	headers map[string]string,
) (GraphQLResponse, error) {
	metadata := map[string]any{"query": query}
	if variables != nil {
		metadata["variables"] = variables
	}
	res, err := a.Do(ctx, core.TransportRequest{
		URL:      endpoint,
		Headers:  headers,
		Metadata: metadata,
	})
	if err != nil {
		return GraphQLResponse{}, err
	}
	if !IsSuccess(res.StatusCode) {
		return GraphQLResponse{}, StatusError("graphql", res)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []GraphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(res.Body, &envelope); err != nil {
		return GraphQLResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode graphql envelope",
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "status_code": res.StatusCode},
		)
	}
	out := GraphQLResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Data:       envelope.Data,
		Errors:     envelope.Errors,
	}
	if len(out.Errors) > 0 && !hasGraphQLData(out.Data) {
		return out, transportError(
			"transport: graphql request returned errors",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"adapter": KindGraphQL, "errors": out.ErrorMessages()},
		)
	}
	return out, nil
}

func hasGraphQLData(data json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(data))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

func readGraphQLQuery(req core.TransportRequest) (string, bool) {
	if req.Metadata != nil {
		if query := strings.TrimSpace(fmt.Sprint(req.Metadata["query"])); query != "" && query != "<nil>" {
			return query, true
		}
	}
	if len(req.Body) == 0 {
		return "", false
	}
	query := strings.TrimSpace(string(req.Body))
	if query == "" {
		return "", false
	}
	return query, true
}

func readGraphQLOperationName(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	value := strings.TrimSpace(fmt.Sprint(metadata["operation_name"]))
	if value == "" || value == "<nil>" {
		return ""
	}
	return value
}

func readGraphQLVariables(metadata map[string]any) (map[string]any, bool) {
	if len(metadata) == 0 {
		return nil, false
	}
	value, ok := metadata["variables"]
	if !ok || value == nil {
		return nil, false
	}
	if typed, ok := value.(map[string]any); ok {
		if len(typed) == 0 {
			return map[string]any{}, true
		}
		cloned := make(map[string]any, len(typed))
		for key, item := range typed {
			cloned[key] = item
		}
		return cloned, true
	}
	return nil, false
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

var _ core.TransportAdapter = (*GraphQLAdapter)(nil)
