package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

const fulfillmentCreateMutation = `mutation FulfillmentCreate($fulfillment: FulfillmentInput!) {
  fulfillmentCreate(fulfillment: $fulfillment) {
    fulfillment {
      id
      status
      createdAt
      trackingInfo { company number url }
    }
    userErrors { field message }
  }
}`

const fulfillmentEventCreateMutation = `mutation FulfillmentEventCreate($fulfillmentEvent: FulfillmentEventInput!) {
  fulfillmentEventCreate(fulfillmentEvent: $fulfillmentEvent) {
    fulfillmentEvent { id status }
    userErrors { field message }
  }
}`

// CreateFulfillment fulfills fulfillmentOrderID with the tracking details
// and returns the numeric fulfillment id. When creation fails or returns no
// id the order's existing fulfillments are re-queried and the first one is
// used; if that also yields nothing the creation error is returned.
func (c *Client) CreateFulfillment(
	ctx context.Context,
	accountCode string,
	order core.OrderHandle,
	fulfillmentOrderID string,
	trackingNumber string,
	trackingURL string,
) (int64, error) {
	account, err := c.account(accountCode)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(fulfillmentOrderID) == "" {
		return 0, core.NewError("providers/shopify: fulfillment order id is required", goerrors.CategoryBadInput, core.ErrorBadInput, map[string]any{
			"account_code": account.Code,
			"order_name":   order.Name,
		})
	}

	input := map[string]any{
		"lineItemsByFulfillmentOrder": []map[string]any{{
			"fulfillmentOrderId":        fulfillmentOrderGID(fulfillmentOrderID),
			"fulfillmentOrderLineItems": []any{},
		}},
		"notifyCustomer": false,
		"trackingInfo": map[string]any{
			"company": c.trackingCompany,
			"number":  strings.TrimSpace(trackingNumber),
			"url":     strings.TrimSpace(trackingURL),
		},
	}
	var data struct {
		FulfillmentCreate struct {
			Fulfillment *struct {
				ID string `json:"id"`
			} `json:"fulfillment"`
			UserErrors []userError `json:"userErrors"`
		} `json:"fulfillmentCreate"`
	}
	createErr := c.query(ctx, account, "fulfillment_create", fulfillmentCreateMutation, map[string]any{"fulfillment": input}, &data)
	if createErr == nil {
		createErr = userErrorsToError("fulfillmentCreate", account.Code, data.FulfillmentCreate.UserErrors)
	}
	if createErr == nil && data.FulfillmentCreate.Fulfillment != nil {
		if id, ok := ParseNumericID(data.FulfillmentCreate.Fulfillment.ID, GIDPrefixFulfillment); ok {
			return id, nil
		}
	}

	id, lookupErr := c.firstExistingFulfillment(ctx, account, order)
	if lookupErr == nil && id > 0 {
		c.observer.Info(ctx, "shopify fulfillment resolved from existing fulfillments", map[string]any{
			"account_code":   account.Code,
			"order_name":     order.Name,
			"fulfillment_id": id,
		})
		return id, nil
	}
	if createErr != nil {
		return 0, createErr
	}
	if lookupErr != nil {
		return 0, lookupErr
	}
	return 0, core.NewError("providers/shopify: fulfillment id was not returned", goerrors.CategoryExternal, core.ErrorExternalFailure, map[string]any{
		"account_code": account.Code,
		"order_name":   order.Name,
	})
}

func (c *Client) firstExistingFulfillment(ctx context.Context, account core.AccountConfig, order core.OrderHandle) (int64, error) {
	orderID, err := requireNumericOrderID(account.Code, order)
	if err != nil {
		return 0, err
	}
	var body struct {
		Fulfillments []struct {
			ID int64 `json:"id"`
		} `json:"fulfillments"`
	}
	path := fmt.Sprintf("/orders/%d/fulfillments.json", orderID)
	if err := c.call(ctx, account, "list_fulfillments", http.MethodGet, path, nil, &body); err != nil {
		return 0, err
	}
	if len(body.Fulfillments) == 0 {
		return 0, nil
	}
	return body.Fulfillments[0].ID, nil
}

// UpdateFulfillmentTracking posts a fulfillment event for class and then, when
// a tracking number is supplied, updates the tracking info over REST. The
// event is best-effort once a tracking number is present: the REST outcome
// decides. Without a tracking number the event outcome decides.
func (c *Client) UpdateFulfillmentTracking(
	ctx context.Context,
	accountCode string,
	fulfillmentID int64,
	trackingNumber string,
	class core.StatusClass,
) error {
	account, err := c.account(accountCode)
	if err != nil {
		return err
	}
	if fulfillmentID <= 0 {
		return core.NewError("providers/shopify: fulfillment id is required", goerrors.CategoryBadInput, core.ErrorBadInput, map[string]any{
			"account_code": account.Code,
		})
	}

	eventErr := c.createFulfillmentEvent(ctx, account, fulfillmentID, EventStatus(class))
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return eventErr
	}
	if eventErr != nil {
		c.observer.Warn(ctx, "shopify fulfillment event failed", map[string]any{
			"account_code":   account.Code,
			"fulfillment_id": fulfillmentID,
			"error":          eventErr.Error(),
		})
	}

	payload := map[string]any{
		"fulfillment": map[string]any{
			"tracking_info": map[string]any{
				"number": trackingNumber,
				"status": TrackingStatus(class),
			},
		},
	}
	path := fmt.Sprintf("/fulfillments/%d/update_tracking.json", fulfillmentID)
	return c.call(ctx, account, "update_tracking", http.MethodPost, path, payload, nil)
}

func (c *Client) createFulfillmentEvent(ctx context.Context, account core.AccountConfig, fulfillmentID int64, status string) error {
	input := map[string]any{
		"fulfillmentId": fmt.Sprintf("%s%d", GIDPrefixFulfillment, fulfillmentID),
		"status":        status,
	}
	var data struct {
		FulfillmentEventCreate struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"fulfillmentEventCreate"`
	}
	if err := c.query(ctx, account, "fulfillment_event", fulfillmentEventCreateMutation, map[string]any{"fulfillmentEvent": input}, &data); err != nil {
		return err
	}
	return userErrorsToError("fulfillmentEventCreate", account.Code, data.FulfillmentEventCreate.UserErrors)
}
