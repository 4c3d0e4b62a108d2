package core

import (
	"reflect"
	"testing"
)

func TestStatusClass_MessageKindAndTags(t *testing.T) {
	kind, ok := StatusClassInTransit.MessageKind()
	if !ok || kind != MessageKindInTransit {
		t.Fatalf("expected inTransit kind, got %q ok=%v", kind, ok)
	}
	if got := kind.SentTag(); got != "sent_inTransit" {
		t.Fatalf("unexpected sent tag %q", got)
	}
	if got := MessageKindDelivered.FailedTag(); got != "failed_delivered" {
		t.Fatalf("unexpected failed tag %q", got)
	}
	if got := MessageKindOutForDelivery.TerminalTags(); !reflect.DeepEqual(got, []string{"sent_outForDelivery", "failed_outForDelivery"}) {
		t.Fatalf("unexpected terminal tags %#v", got)
	}
	for _, class := range []StatusClass{StatusClassFulfilled, StatusClassReturnToOrigin, StatusClassUnknown} {
		if _, ok := class.MessageKind(); ok {
			t.Fatalf("expected %q to have no message kind", class)
		}
	}
}

func TestStatusEvent_CloneOrderDetection(t *testing.T) {
	if !(StatusEvent{OrderID: "1001_2"}).IsCloneOrder() {
		t.Fatalf("expected underscore order to be a clone")
	}
	if (StatusEvent{OrderID: "1001"}).IsCloneOrder() {
		t.Fatalf("expected plain order not to be a clone")
	}
}

func TestStatusEvent_ProductCountText(t *testing.T) {
	if got := (StatusEvent{}).ProductCountText(); got != "0" {
		t.Fatalf("expected zero count text, got %q", got)
	}
	if got := (StatusEvent{ProductCount: 3}).ProductCountText(); got != "3" {
		t.Fatalf("expected 3, got %q", got)
	}
}

func TestOrderHandle_TagsAndFulfilledStatus(t *testing.T) {
	order := OrderHandle{
		DisplayStatus: "fulfilled",
		Tags:          SplitTags("vip, AAA_Out_For_Delivery ,,"),
	}
	if !order.IsFulfilled() {
		t.Fatalf("expected display status comparison to ignore case")
	}
	if len(order.Tags) != 2 {
		t.Fatalf("expected empty segments dropped, got %#v", order.Tags)
	}
	if !order.HasTag("aaa_out_for_delivery") {
		t.Fatalf("expected case-insensitive tag match")
	}
	if order.HasTag("") {
		t.Fatalf("expected empty tag never to match")
	}
}

func TestAccountConfig_URLs(t *testing.T) {
	account := AccountConfig{Shop: "https://acme-store.myshopify.com/"}
	if got := account.ShopName(); got != "acme-store" {
		t.Fatalf("unexpected shop name %q", got)
	}
	if got := account.GraphQLURL(""); got != "https://acme-store.myshopify.com/admin/api/2025-07/graphql.json" {
		t.Fatalf("unexpected graphql url %q", got)
	}
	account.BaseURL = "http://127.0.0.1:9000/"
	if got := account.APIBaseURL("2024-01"); got != "http://127.0.0.1:9000" {
		t.Fatalf("expected base url override, got %q", got)
	}
	if got := (AccountConfig{}).APIBaseURL(""); got != "" {
		t.Fatalf("expected empty base url without shop, got %q", got)
	}
}

func TestAccountConfig_TrackingURL(t *testing.T) {
	account := AccountConfig{TrackingURLTemplate: "https://track.acme.test/{awb}?src=wa"}
	if got := account.TrackingURL("AWB1"); got != "https://track.acme.test/AWB1?src=wa" {
		t.Fatalf("unexpected tracking url %q", got)
	}
	if got := (AccountConfig{}).TrackingURL("AWB1"); got != DefaultTrackingURLFallback+"AWB1" {
		t.Fatalf("unexpected fallback url %q", got)
	}
	if got := account.TrackingURL(" "); got != "" {
		t.Fatalf("expected no link without awb, got %q", got)
	}
}

func TestAccountDirectory_LookupAndShopMapping(t *testing.T) {
	dir := NewAccountDirectory(map[string]AccountConfig{
		"acme":  {Shop: "acme-prod"},
		" beta": {Shop: "beta-shop.myshopify.com"},
		"":      {Shop: "ignored"},
	})
	if got := dir.Codes(); !reflect.DeepEqual(got, []string{"ACME", "BETA"}) {
		t.Fatalf("unexpected codes %#v", got)
	}
	account, ok := dir.Lookup("Acme")
	if !ok || account.Code != "ACME" {
		t.Fatalf("expected normalized lookup, got %#v ok=%v", account, ok)
	}
	if _, ok := dir.Lookup("missing"); ok {
		t.Fatalf("expected unknown account to be absent")
	}
	if got := dir.AccountCodeForShop("beta-shop.myshopify.com"); got != "BETA" {
		t.Fatalf("expected configured shop match, got %q", got)
	}
	if got := dir.AccountCodeForShop("striker-store-xyz.myshopify.com"); got != "XYZ" {
		t.Fatalf("expected last hyphen segment, got %q", got)
	}
	if got := dir.AccountCodeForShop("solo.myshopify.com"); got != "SOLO" {
		t.Fatalf("expected shop name fallback, got %q", got)
	}
	var nilDir *AccountDirectory
	if _, ok := nilDir.Lookup("ACME"); ok {
		t.Fatalf("expected nil directory lookup to miss")
	}
}

func TestBatchReport_Aggregates(t *testing.T) {
	var report BatchReport
	report.Add(Succeeded("sent"))
	report.Add(Skipped("status unchanged"))
	report.Add(Failed(KindExternalAPI, "notifier rejected", nil))
	if report.Total != 3 || report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report %#v", report)
	}
	if got := report.Results[2].Error(); got != "notifier rejected" {
		t.Fatalf("unexpected failure text %q", got)
	}
	if got := Failed(KindNone, "x", nil).Kind; got != KindInternal {
		t.Fatalf("expected empty kind to default to internal, got %q", got)
	}
}

func TestFulfillmentRecord_NumericID(t *testing.T) {
	if id, ok := (FulfillmentRecord{GID: "gid://shopify/Fulfillment/555"}).NumericID(); !ok || id != 555 {
		t.Fatalf("expected 555, got %d ok=%v", id, ok)
	}
	for _, gid := range []string{"", "gid://shopify/Fulfillment/", "gid://shopify/Fulfillment/abc"} {
		if _, ok := (FulfillmentRecord{GID: gid}).NumericID(); ok {
			t.Fatalf("expected %q to be rejected", gid)
		}
	}
}

func TestPickOpenFulfillmentOrder_PrefersLastOpen(t *testing.T) {
	if _, ok := PickOpenFulfillmentOrder([]FulfillmentOrder{{ID: "1", Status: "CLOSED"}}); ok {
		t.Fatalf("expected no open fulfillment order")
	}
	list := []FulfillmentOrder{{ID: "FO1", Status: "OPEN"}, {ID: "FO2", Status: "open"}, {ID: "FO3", Status: "CLOSED"}}
	if id, ok := PickOpenFulfillmentOrder(list); !ok || id != "FO2" {
		t.Fatalf("expected last open entry FO2, got %q", id)
	}
	if _, ok := PickOpenFulfillmentOrder(nil); ok {
		t.Fatalf("expected empty list to have no pick")
	}
}
