package shopify

import (
	"context"
	"strings"

	"github.com/goliatone/go-shipnotify/core"
)

const orderLookupQuery = `query OrderByName($q: String!) {
  orders(first: 1, query: $q) {
    edges {
      node {
        id
        name
        displayFulfillmentStatus
        tags
        fulfillments {
          id
          status
          trackingInfo { number url company }
        }
        fulfillmentOrders(first: 10) {
          nodes { id status }
        }
      }
    }
  }
}`

const fulfillmentOrdersQuery = `query FulfillmentOrders($orderId: ID!) {
  order(id: $orderId) {
    id
    name
    tags
    fulfillmentOrders(first: 10) {
      edges { node { id status } }
    }
  }
}`

const productHandlesQuery = `query OrderProducts($q: String!) {
  orders(first: 1, query: $q) {
    edges {
      node {
        lineItems(first: 20) {
          edges { node { product { handle featuredImage { url } } } }
        }
      }
    }
  }
}`

type trackingInfoNode struct {
	Number  string `json:"number"`
	URL     string `json:"url"`
	Company string `json:"company"`
}

type fulfillmentNode struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	TrackingInfo []trackingInfoNode `json:"trackingInfo"`
}

type fulfillmentOrderNode struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type orderNode struct {
	ID                       string            `json:"id"`
	Name                     string            `json:"name"`
	DisplayFulfillmentStatus string            `json:"displayFulfillmentStatus"`
	Tags                     []string          `json:"tags"`
	Fulfillments             []fulfillmentNode `json:"fulfillments"`
	FulfillmentOrders        struct {
		Nodes []fulfillmentOrderNode `json:"nodes"`
	} `json:"fulfillmentOrders"`
}

func (n orderNode) handle() core.OrderHandle {
	order := core.OrderHandle{
		GID:           strings.TrimSpace(n.ID),
		Name:          strings.TrimSpace(n.Name),
		DisplayStatus: strings.TrimSpace(n.DisplayFulfillmentStatus),
		Tags:          append([]string(nil), n.Tags...),
	}
	order.NumericID, _ = ParseNumericID(order.GID, GIDPrefixOrder)
	for _, item := range n.Fulfillments {
		record := core.FulfillmentRecord{GID: strings.TrimSpace(item.ID), Status: item.Status}
		if len(item.TrackingInfo) > 0 {
			record.TrackingNumber = strings.TrimSpace(item.TrackingInfo[0].Number)
			record.TrackingURL = strings.TrimSpace(item.TrackingInfo[0].URL)
			record.TrackingCompany = strings.TrimSpace(item.TrackingInfo[0].Company)
		}
		order.Fulfillments = append(order.Fulfillments, record)
	}
	for _, item := range n.FulfillmentOrders.Nodes {
		order.FulfillmentOrders = append(order.FulfillmentOrders, core.FulfillmentOrder{ID: item.ID, Status: item.Status})
	}
	return order
}

// ResolveOrder looks the order up by display name, trying the name as given
// and then with the leading hash toggled. A lookup error does not stop the
// next candidate; if every candidate errored the last error is returned.
func (c *Client) ResolveOrder(ctx context.Context, accountCode string, displayName string) (core.OrderHandle, error) {
	account, err := c.account(accountCode)
	if err != nil {
		return core.OrderHandle{}, err
	}
	candidates := nameCandidates(displayName)
	var lastErr error
	failures := 0
	for _, candidate := range candidates {
		var data struct {
			Orders struct {
				Edges []struct {
					Node orderNode `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		}
		err := c.query(ctx, account, "resolve_order", orderLookupQuery, map[string]any{"q": "name:" + candidate}, &data)
		if err != nil {
			lastErr = err
			failures++
			continue
		}
		if len(data.Orders.Edges) == 0 || strings.TrimSpace(data.Orders.Edges[0].Node.ID) == "" {
			continue
		}
		return data.Orders.Edges[0].Node.handle(), nil
	}
	if lastErr != nil && failures == len(candidates) {
		return core.OrderHandle{}, lastErr
	}
	return core.OrderHandle{}, core.ErrOrderNotFound(account.Code, displayName)
}

func (c *Client) FulfillmentOrders(ctx context.Context, accountCode string, order core.OrderHandle) ([]core.FulfillmentOrder, error) {
	account, err := c.account(accountCode)
	if err != nil {
		return nil, err
	}
	var data struct {
		Order *struct {
			ID                string `json:"id"`
			FulfillmentOrders struct {
				Edges []struct {
					Node fulfillmentOrderNode `json:"node"`
				} `json:"edges"`
			} `json:"fulfillmentOrders"`
		} `json:"order"`
	}
	if err := c.query(ctx, account, "fulfillment_orders", fulfillmentOrdersQuery, map[string]any{"orderId": order.GID}, &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, core.ErrOrderNotFound(account.Code, order.Name)
	}
	out := make([]core.FulfillmentOrder, 0, len(data.Order.FulfillmentOrders.Edges))
	for _, edge := range data.Order.FulfillmentOrders.Edges {
		out = append(out, core.FulfillmentOrder{ID: edge.Node.ID, Status: edge.Node.Status})
	}
	return out, nil
}

// OrderProductHandles lists the product handles of the order's line items in
// order. Line items without a product are skipped.
func (c *Client) OrderProductHandles(ctx context.Context, accountCode string, displayName string) ([]string, error) {
	account, err := c.account(accountCode)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, candidate := range nameCandidates(displayName) {
		var data struct {
			Orders struct {
				Edges []struct {
					Node struct {
						LineItems struct {
							Edges []struct {
								Node struct {
									Product *struct {
										Handle string `json:"handle"`
									} `json:"product"`
								} `json:"node"`
							} `json:"edges"`
						} `json:"lineItems"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"orders"`
		}
		if err := c.query(ctx, account, "order_products", productHandlesQuery, map[string]any{"q": "name:" + candidate}, &data); err != nil {
			lastErr = err
			continue
		}
		if len(data.Orders.Edges) == 0 {
			continue
		}
		handles := []string{}
		for _, edge := range data.Orders.Edges[0].Node.LineItems.Edges {
			if edge.Node.Product == nil {
				continue
			}
			if handle := strings.TrimSpace(edge.Node.Product.Handle); handle != "" {
				handles = append(handles, handle)
			}
		}
		return handles, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, core.ErrOrderNotFound(account.Code, displayName)
}
