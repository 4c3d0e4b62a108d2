package reconcile

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goliatone/go-shipnotify/core"
)

type trackingCall struct {
	fulfillmentID  int64
	trackingNumber string
	class          core.StatusClass
}

type stubCommerce struct {
	order          core.OrderHandle
	resolveErr     error
	fulfillmentOrd []core.FulfillmentOrder
	createID       int64
	createErr      error
	trackingErr    error
	tagErr         error

	calls         []string
	createdFor    string
	trackingCalls []trackingCall
	tagged        []string
}

func (s *stubCommerce) ResolveOrder(context.Context, string, string) (core.OrderHandle, error) {
	s.calls = append(s.calls, "resolve")
	return s.order, s.resolveErr
}

func (s *stubCommerce) FulfillmentOrders(context.Context, string, core.OrderHandle) ([]core.FulfillmentOrder, error) {
	s.calls = append(s.calls, "fulfillment_orders")
	return s.fulfillmentOrd, nil
}

func (s *stubCommerce) CreateFulfillment(_ context.Context, _ string, _ core.OrderHandle, fulfillmentOrderID string, _ string, _ string) (int64, error) {
	s.calls = append(s.calls, "create_fulfillment")
	s.createdFor = fulfillmentOrderID
	return s.createID, s.createErr
}

func (s *stubCommerce) UpdateFulfillmentTracking(_ context.Context, _ string, fulfillmentID int64, trackingNumber string, class core.StatusClass) error {
	s.calls = append(s.calls, "update_tracking")
	s.trackingCalls = append(s.trackingCalls, trackingCall{fulfillmentID: fulfillmentID, trackingNumber: trackingNumber, class: class})
	return s.trackingErr
}

func (s *stubCommerce) UpdateTags(_ context.Context, _ string, _ core.OrderHandle, tag string) error {
	s.calls = append(s.calls, "update_tags")
	s.tagged = append(s.tagged, tag)
	return s.tagErr
}

func (s *stubCommerce) OrderProductHandles(context.Context, string, string) ([]string, error) {
	s.calls = append(s.calls, "product_handles")
	return nil, nil
}

type stubNotifier struct {
	ok      bool
	classes []core.StatusClass
}

func (n *stubNotifier) NotifyEvent(_ context.Context, _ core.StatusEvent, class core.StatusClass) bool {
	n.classes = append(n.classes, class)
	return n.ok
}

func newReconciler(commerce core.CommerceClient, notifier EventNotifier) *Reconciler {
	return New(Config{
		Commerce: commerce,
		Accounts: core.NewAccountDirectory(map[string]core.AccountConfig{"acme": {Shop: "acme-store"}}),
		Notifier: notifier,
		Plans:    DefaultPlans("AAA_OUT_FOR_DELIVERY"),
	})
}

func event(orderID string) core.StatusEvent {
	return core.StatusEvent{OrderID: orderID, AccountCode: "ACME", AWB: "AWB2", ShippingContact: core.ShippingContact{Phone: "9876543210"}}
}

func TestReconcile_InTransitUnfulfilledCreatesFulfillment(t *testing.T) {
	commerce := &stubCommerce{
		order: core.OrderHandle{GID: "gid://shopify/Order/1001", Name: "#1001", DisplayStatus: "UNFULFILLED"},
		fulfillmentOrd: []core.FulfillmentOrder{
			{ID: "FO1", Status: "CLOSED"},
			{ID: "FO2", Status: "OPEN"},
		},
		createID: 555,
	}
	notifier := &stubNotifier{ok: true}

	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassInTransit)
	if !result.OK {
		t.Fatalf("expected success, got %v", result)
	}
	if commerce.createdFor != "FO2" {
		t.Fatalf("expected FO2 to be fulfilled, got %q", commerce.createdFor)
	}
	want := []string{"resolve", "fulfillment_orders", "create_fulfillment", "update_tracking"}
	if !reflect.DeepEqual(commerce.calls, want) {
		t.Fatalf("unexpected call order %#v", commerce.calls)
	}
	if commerce.trackingCalls[0] != (trackingCall{fulfillmentID: 555, trackingNumber: "AWB2", class: core.StatusClassInTransit}) {
		t.Fatalf("unexpected tracking update %#v", commerce.trackingCalls[0])
	}
	if !reflect.DeepEqual(notifier.classes, []core.StatusClass{core.StatusClassInTransit}) {
		t.Fatalf("expected one in-transit notification, got %#v", notifier.classes)
	}
}

func TestReconcile_NoOpenFulfillmentOrderAborts(t *testing.T) {
	commerce := &stubCommerce{
		order:          core.OrderHandle{Name: "#1001"},
		fulfillmentOrd: []core.FulfillmentOrder{{ID: "FO1", Status: "CLOSED"}},
	}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassDelivered)
	if result.OK || result.Kind != core.KindLookupNotFound {
		t.Fatalf("expected lookup failure, got %#v", result)
	}
	if len(notifier.classes) != 0 {
		t.Fatalf("expected no notification")
	}
}

func TestReconcile_CloneBypassesCommerce(t *testing.T) {
	for _, class := range []core.StatusClass{
		core.StatusClassInTransit,
		core.StatusClassOutForDelivery,
		core.StatusClassDelivered,
	} {
		t.Run(class.String(), func(t *testing.T) {
			commerce := &stubCommerce{}
			notifier := &stubNotifier{ok: true}
			result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001_2"), class)
			if !result.OK {
				t.Fatalf("expected clone success, got %v", result)
			}
			if len(commerce.calls) != 0 {
				t.Fatalf("expected no commerce calls, got %#v", commerce.calls)
			}
			if !reflect.DeepEqual(notifier.classes, []core.StatusClass{class}) {
				t.Fatalf("expected direct %s notification, got %#v", class, notifier.classes)
			}
		})
	}
}

func TestReconcile_FulfilledPlanAbortsClones(t *testing.T) {
	commerce := &stubCommerce{}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001_2"), core.StatusClassFulfilled)
	if result.OK || result.Kind != core.KindUnsupported {
		t.Fatalf("expected clone abort, got %#v", result)
	}
	if len(commerce.calls) != 0 || len(notifier.classes) != 0 {
		t.Fatalf("expected no side effects")
	}
}

func TestReconcile_FulfilledSameAWBSendsEventOnly(t *testing.T) {
	commerce := &stubCommerce{order: core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/42", TrackingNumber: "AWB2"}},
	}}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassDelivered)
	if !result.OK {
		t.Fatalf("expected success, got %v", result)
	}
	if got := commerce.trackingCalls; len(got) != 1 || got[0].fulfillmentID != 42 || got[0].trackingNumber != "" {
		t.Fatalf("expected event-only update, got %#v", got)
	}
}

func TestReconcile_FulfilledNewAWBPushesTracking(t *testing.T) {
	commerce := &stubCommerce{order: core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/42", TrackingNumber: "OLD"}},
	}}
	result := newReconciler(commerce, &stubNotifier{ok: true}).Reconcile(context.Background(), event("1001"), core.StatusClassInTransit)
	if !result.OK || commerce.trackingCalls[0].trackingNumber != "AWB2" {
		t.Fatalf("expected tracking push, got %#v %#v", result, commerce.trackingCalls)
	}
}

func TestReconcile_FulfilledWithoutRecord(t *testing.T) {
	order := core.OrderHandle{DisplayStatus: "FULFILLED"}

	result := newReconciler(&stubCommerce{order: order}, &stubNotifier{ok: true}).Reconcile(context.Background(), event("1001"), core.StatusClassInTransit)
	if result.OK || result.Kind != core.KindLookupNotFound {
		t.Fatalf("expected in-transit abort, got %#v", result)
	}

	commerce := &stubCommerce{order: order}
	notifier := &stubNotifier{ok: true}
	result = newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassFulfilled)
	if result.OK || result.Kind != core.KindLookupNotFound {
		t.Fatalf("expected fulfilled abort, got %#v", result)
	}
	if len(commerce.trackingCalls) != 0 || len(notifier.classes) != 0 {
		t.Fatalf("expected no tracking update or notification, got %#v notified=%d", commerce.trackingCalls, len(notifier.classes))
	}

	unnumbered := core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/"}},
	}
	result = newReconciler(&stubCommerce{order: unnumbered}, nil).Reconcile(context.Background(), event("1001"), core.StatusClassFulfilled)
	if result.OK || result.Kind != core.KindLookupNotFound {
		t.Fatalf("expected fulfillment without id to abort, got %#v", result)
	}
}

func TestReconcile_FulfilledPlanDoesNotNotify(t *testing.T) {
	commerce := &stubCommerce{order: core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/42"}},
	}}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassFulfilled)
	if !result.OK || len(notifier.classes) != 0 {
		t.Fatalf("expected silent success, got %#v notified=%d", result, len(notifier.classes))
	}
	if commerce.trackingCalls[0].class != core.StatusClassFulfilled {
		t.Fatalf("expected fulfilled class on tracking update")
	}
}

func TestReconcile_OutForDeliveryTagGuard(t *testing.T) {
	commerce := &stubCommerce{order: core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Tags:          []string{"aaa_out_for_delivery"},
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/42"}},
	}}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassOutForDelivery)
	if !result.OK || result.Reason == "" {
		t.Fatalf("expected tag guard no-op, got %#v", result)
	}
	if len(commerce.trackingCalls) != 0 || len(notifier.classes) != 0 {
		t.Fatalf("expected no update and no notification")
	}
}

func TestReconcile_OutForDeliveryTagsBeforeNotify(t *testing.T) {
	commerce := &stubCommerce{order: core.OrderHandle{
		DisplayStatus: "FULFILLED",
		Fulfillments:  []core.FulfillmentRecord{{GID: "gid://shopify/Fulfillment/42"}},
	}}
	notifier := &stubNotifier{ok: true}
	result := newReconciler(commerce, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassOutForDelivery)
	if !result.OK {
		t.Fatalf("expected success, got %v", result)
	}
	if !reflect.DeepEqual(commerce.tagged, []string{"AAA_OUT_FOR_DELIVERY"}) {
		t.Fatalf("expected guard tag applied, got %#v", commerce.tagged)
	}

	failing := &stubCommerce{order: commerce.order, tagErr: errors.New("tag write failed")}
	notifier = &stubNotifier{ok: true}
	result = newReconciler(failing, notifier).Reconcile(context.Background(), event("1001"), core.StatusClassOutForDelivery)
	if result.OK || len(notifier.classes) != 0 {
		t.Fatalf("expected tag failure to abort before notify, got %#v", result)
	}
}

func TestReconcile_CommerceFailuresAbort(t *testing.T) {
	notFound := &stubCommerce{resolveErr: core.ErrOrderNotFound("ACME", "1001")}
	result := newReconciler(notFound, &stubNotifier{ok: true}).Reconcile(context.Background(), event("1001"), core.StatusClassInTransit)
	if result.OK || result.Kind != core.KindLookupNotFound {
		t.Fatalf("expected not found, got %#v", result)
	}

	create := &stubCommerce{
		order:          core.OrderHandle{Name: "#1001"},
		fulfillmentOrd: []core.FulfillmentOrder{{ID: "FO1", Status: "OPEN"}},
		createErr:      errors.New("502 bad gateway"),
	}
	result = newReconciler(create, &stubNotifier{ok: true}).Reconcile(context.Background(), event("1001"), core.StatusClassInTransit)
	if result.OK || result.Kind != core.KindExternalAPI {
		t.Fatalf("expected external failure, got %#v", result)
	}
	if len(create.trackingCalls) != 0 {
		t.Fatalf("expected no tracking update after failed create")
	}
}

func TestReconcile_NotificationFailureFailsResult(t *testing.T) {
	result := newReconciler(&stubCommerce{}, &stubNotifier{ok: false}).Reconcile(context.Background(), event("1001_1"), core.StatusClassDelivered)
	if result.OK || result.Kind != core.KindExternalAPI {
		t.Fatalf("expected notification failure, got %#v", result)
	}
}

func TestReconcile_UnknownClassUnsupported(t *testing.T) {
	result := newReconciler(&stubCommerce{}, &stubNotifier{ok: true}).Reconcile(context.Background(), event("1001"), core.StatusClassReturnToOrigin)
	if result.OK || result.Kind != core.KindUnsupported {
		t.Fatalf("expected unsupported, got %#v", result)
	}
}
