package sqlstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-shipnotify/core"
	sqlstore "github.com/goliatone/go-shipnotify/store/sql"
)

func newSQLiteLedger(t *testing.T) *sqlstore.LedgerStore {
	t.Helper()
	dsn := fmt.Sprintf("file:shipnotify-test-%d?mode=memory&cache=shared", time.Now().UnixNano())
	client, err := sqlstore.OpenClient(context.Background(), core.DatabaseConfig{
		Driver: core.DatabaseDriverSQLite,
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store, err := sqlstore.NewLedgerStoreFromPersistence(client)
	if err != nil {
		t.Fatalf("new ledger store: %v", err)
	}
	return store
}

func TestLedgerStore_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteLedger(t)

	terminal := core.MessageKindInTransit.TerminalTags()
	if store.HasAnyStatus(ctx, "1001", "ACME", terminal) {
		t.Fatalf("expected empty ledger")
	}
	if !store.AddStatus(ctx, "1001", "acme", "sent_inTransit") {
		t.Fatalf("expected insert to succeed")
	}
	if !store.HasAnyStatus(ctx, "1001", "ACME", terminal) {
		t.Fatalf("expected sent tag to satisfy terminal lookup")
	}
	if store.HasAnyStatus(ctx, "1001", "ACME", core.MessageKindDelivered.TerminalTags()) {
		t.Fatalf("expected other kinds to stay unsatisfied")
	}
	if store.HasAnyStatus(ctx, "1001", "BETA", terminal) {
		t.Fatalf("expected account scoping")
	}
}

func TestLedgerStore_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteLedger(t)

	for i := 0; i < 3; i++ {
		if !store.AddStatus(ctx, "1001", "ACME", "failed_delivered") {
			t.Fatalf("add #%d: expected true for existing row", i)
		}
	}
	entries, err := store.Entries(ctx, "1001", "ACME")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].MessageStatus != "failed_delivered" {
		t.Fatalf("expected one row for repeated triple, got %#v", entries)
	}
}

func TestLedgerStore_ConcurrentAddsCollapse(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddStatus(ctx, "2002", "ACME", "sent_outForDelivery")
		}()
	}
	wg.Wait()
	entries, err := store.Entries(ctx, "2002", "ACME")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected unique constraint to collapse rows, got %d", len(entries))
	}
}

func TestLedgerStore_RejectsEmptyInput(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteLedger(t)

	if store.AddStatus(ctx, "", "ACME", "sent_inTransit") {
		t.Fatalf("expected empty order id to be rejected")
	}
	if store.AddStatus(ctx, "1001", "ACME", " ") {
		t.Fatalf("expected empty tag to be rejected")
	}
	if store.HasAnyStatus(ctx, "1001", "ACME", nil) {
		t.Fatalf("expected empty tag set to miss")
	}
}

func TestOpenClient_RejectsUnknownDriver(t *testing.T) {
	if _, err := sqlstore.OpenClient(context.Background(), core.DatabaseConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := sqlstore.OpenClient(context.Background(), core.DatabaseConfig{}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
