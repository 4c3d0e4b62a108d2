package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

// UpdateTags appends tag to the order's tag string unless it is already
// present (case-insensitive). The current tags are always re-read first; a
// failed read fails the update rather than overwriting the tags.
func (c *Client) UpdateTags(ctx context.Context, accountCode string, order core.OrderHandle, tag string) error {
	account, err := c.account(accountCode)
	if err != nil {
		return err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return core.NewError("providers/shopify: tag is required", goerrors.CategoryBadInput, core.ErrorBadInput, map[string]any{
			"account_code": account.Code,
		})
	}
	orderID, err := requireNumericOrderID(account.Code, order)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/orders/%d.json", orderID)
	var current struct {
		Order struct {
			Tags string `json:"tags"`
		} `json:"order"`
	}
	if err := c.call(ctx, account, "read_tags", http.MethodGet, path, nil, &current); err != nil {
		return err
	}
	existing := strings.TrimSpace(current.Order.Tags)
	if core.ContainsTag(core.SplitTags(existing), tag) {
		return nil
	}
	updated := tag
	if existing != "" {
		updated = existing + ", " + tag
	}
	payload := map[string]any{"order": map[string]any{"id": orderID, "tags": updated}}
	return c.call(ctx, account, "update_tags", http.MethodPut, path, payload, nil)
}
