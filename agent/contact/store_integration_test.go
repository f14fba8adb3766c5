package contact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	postgresx "github.com/tanpawarit/fluxy-lead-intake/pkg/postgres"
)

// Set INTAKE_TEST_POSTGRES_DSN to run against a real database.
func integrationDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("INTAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTAKE_TEST_POSTGRES_DSN is not set")
	}
	db, err := postgresx.Open(postgresx.Config{DSN: dsn})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func uniquePhone(t *testing.T) string {
	t.Helper()

	return fmt.Sprintf("+55%d", time.Now().UnixNano())
}

func TestIntegrationConcurrentCreateKeepsOneRow(t *testing.T) {
	db := integrationDB(t)
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	phone := uniquePhone(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		duplicate int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Create(ctx, NewContact{Phone: phone, Name: "Joao", ChannelIdentity: 1, LeadGoal: "entregador"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, contractx.ErrDuplicateKey):
				duplicate++
			default:
				t.Errorf("Create() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || duplicate != workers-1 {
		t.Fatalf("created=%d duplicate=%d, want 1/%d", created, duplicate, workers-1)
	}

	count, err := db.NewSelect().Model((*Contact)(nil)).Where("phone = ?", phone).Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("rows for phone = %d, want 1", count)
	}
}

func TestIntegrationTouchKeepsStartDate(t *testing.T) {
	db := integrationDB(t)
	first := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	clock := first
	store, err := NewStore(db, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	phone := uniquePhone(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, NewContact{Phone: phone, ChannelIdentity: 1, LeadGoal: "C1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	clock = second
	if _, err := store.Touch(ctx, phone, "C2"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}

	got, err := store.FindByPhone(ctx, phone)
	if err != nil {
		t.Fatalf("FindByPhone() error = %v", err)
	}
	if got.LeadGoal != "C2" {
		t.Fatalf("lead goal = %q, want C2", got.LeadGoal)
	}
	if !got.StartDateConversation.Equal(first) {
		t.Fatalf("start date = %v, want %v", got.StartDateConversation, first)
	}
	if got.LastDateConversation == nil || !got.LastDateConversation.Equal(second) {
		t.Fatalf("last date = %v, want %v", got.LastDateConversation, second)
	}

	if _, err := store.Touch(ctx, phone+"0", "C3"); !errors.Is(err, contractx.ErrContactNotFound) {
		t.Fatalf("Touch() on missing phone error = %v, want ErrContactNotFound", err)
	}
}
