package lead

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	contactx "github.com/tanpawarit/fluxy-lead-intake/agent/contact"
	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
)

// fakeContactStore mimics the unique phone constraint of the real table.
type fakeContactStore struct {
	mu     sync.Mutex
	rows   map[string]*contactx.Contact
	nextID int64
	now    func() time.Time

	findErr   error
	createErr error
	touchErr  error

	// staleReads makes the first N lookups miss, as a concurrent reader would.
	staleReads int32
	// barrier holds the first barrierN lookups until all of them arrived.
	barrier  *sync.WaitGroup
	barrierN int32
	lookups  int32

	creates int
	touches int
	renames int
}

func newFakeContactStore(now func() time.Time) *fakeContactStore {
	return &fakeContactStore{rows: map[string]*contactx.Contact{}, now: now}
}

func (f *fakeContactStore) FindByPhone(ctx context.Context, phone string) (*contactx.Contact, error) {
	n := atomic.AddInt32(&f.lookups, 1)
	if f.barrier != nil && n <= f.barrierN {
		f.barrier.Done()
		f.barrier.Wait()
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	if atomic.AddInt32(&f.staleReads, -1) >= 0 {
		return nil, contractx.ErrContactNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[phone]
	if !ok {
		return nil, fmt.Errorf("%w: phone=%s", contractx.ErrContactNotFound, phone)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactStore) Create(ctx context.Context, in contactx.NewContact) (*contactx.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.rows[in.Phone]; ok {
		return nil, fmt.Errorf("%w: phone=%s", contractx.ErrDuplicateKey, in.Phone)
	}
	f.nextID++
	f.creates++
	c := &contactx.Contact{
		ID:                    f.nextID,
		Phone:                 in.Phone,
		ChannelIdentity:       in.ChannelIdentity,
		StartDateConversation: f.now().UTC(),
		LeadGoal:              in.LeadGoal,
	}
	if in.Name != "" {
		name := in.Name
		c.Name = &name
	}
	f.rows[in.Phone] = c
	cp := *c
	return &cp, nil
}

func (f *fakeContactStore) Touch(ctx context.Context, phone, leadGoal string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return time.Time{}, f.touchErr
	}
	c, ok := f.rows[phone]
	if !ok {
		return time.Time{}, contractx.ErrContactNotFound
	}
	now := f.now().UTC()
	f.touches++
	c.LastDateConversation = &now
	c.LeadGoal = leadGoal
	return now, nil
}

func (f *fakeContactStore) UpdateName(ctx context.Context, phone, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[phone]
	if !ok {
		return contractx.ErrContactNotFound
	}
	f.renames++
	c.Name = &name
	return nil
}

func (f *fakeContactStore) row(phone string) *contactx.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[phone]
}

type fakeResolver struct {
	identity contractx.ChannelIdentity
	calls    int32
}

func (f *fakeResolver) Resolve(ctx context.Context, meta contractx.ChannelMetadata) contractx.ChannelIdentity {
	atomic.AddInt32(&f.calls, 1)
	return f.identity
}

type steppingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var testMeta = contractx.ChannelMetadata{
	DisplayPhoneNumber: "553491713923",
	PhoneNumberID:      "872884792582393",
}

func newTestOrchestrator(t *testing.T, store ContactStore, resolver contractx.ChannelResolver) *Orchestrator {
	t.Helper()
	o, err := New(store, resolver)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestUpsertContactCreatesThenTouches(t *testing.T) {
	t.Parallel()

	clock := &steppingClock{now: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)}
	store := newFakeContactStore(clock.Now)
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 42}})

	out := o.UpsertContact(context.Background(), "+55119999", "Joao", testMeta, "entregador")
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s, result = %s", out.Status, out.Result)
	}
	if out.Result.Kind != contractx.KindNone {
		t.Fatalf("kind = %q, want none", out.Result.Kind)
	}
	if out.Contact == nil || out.Contact.ChannelIdentity != 42 {
		t.Fatalf("unexpected contact: %+v", out.Contact)
	}
	if out.Contact.LastDateConversation == nil {
		t.Fatal("fresh contact must be touched")
	}
	if store.creates != 1 || store.touches != 1 {
		t.Fatalf("creates=%d touches=%d, want 1/1", store.creates, store.touches)
	}
	if got := store.row("+55119999").LeadGoal; got != "entregador" {
		t.Fatalf("lead goal = %q, want entregador", got)
	}
}

func TestUpsertContactTwiceKeepsStartDate(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)
	clock := &steppingClock{now: first}
	store := newFakeContactStore(clock.Now)
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})
	ctx := context.Background()

	if out := o.UpsertContact(ctx, "+55119999", "Joao", testMeta, "C1"); out.Status != StatusSuccess {
		t.Fatalf("first upsert failed: %s", out.Result)
	}
	clock.Set(second)
	out := o.UpsertContact(ctx, "+55119999", "Joao", testMeta, "C2")
	if out.Status != StatusSuccess {
		t.Fatalf("second upsert failed: %s", out.Result)
	}

	row := store.row("+55119999")
	if row.LeadGoal != "C2" {
		t.Fatalf("lead goal = %q, want C2", row.LeadGoal)
	}
	if !row.StartDateConversation.Equal(first) {
		t.Fatalf("start date = %v, want %v", row.StartDateConversation, first)
	}
	if row.LastDateConversation == nil || !row.LastDateConversation.Equal(second) {
		t.Fatalf("last date = %v, want %v", row.LastDateConversation, second)
	}
	if store.creates != 1 {
		t.Fatalf("creates = %d, want 1", store.creates)
	}
	if out.Contact.LeadGoal != "C2" || !out.Contact.LastDateConversation.Equal(second) {
		t.Fatalf("returned contact not refreshed: %+v", out.Contact)
	}
}

func TestUpsertContactNameOnlyLeavesGoal(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: first}
	store := newFakeContactStore(clock.Now)
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})
	ctx := context.Background()

	if out := o.UpsertContact(ctx, "+55119999", "Joao", testMeta, "wants financing info"); out.Status != StatusSuccess {
		t.Fatalf("upsert failed: %s", out.Result)
	}
	clock.Set(first.Add(time.Hour))

	out := o.UpsertContactNameOnly(ctx, "+55119999", "Joao Silva", testMeta)
	if out.Status != StatusSuccess {
		t.Fatalf("name upsert failed: %s", out.Result)
	}

	row := store.row("+55119999")
	if row.LeadGoal != "wants financing info" {
		t.Fatalf("lead goal = %q, want unchanged", row.LeadGoal)
	}
	if !row.LastDateConversation.Equal(first) {
		t.Fatalf("last date = %v, want %v", row.LastDateConversation, first)
	}
	if row.Name == nil || *row.Name != "Joao Silva" {
		t.Fatalf("name = %v, want Joao Silva", row.Name)
	}
	if store.touches != 1 {
		t.Fatalf("touches = %d, want 1", store.touches)
	}
}

func TestUpsertContactNameOnlyCreatesWithSentinelGoal(t *testing.T) {
	t.Parallel()

	store := newFakeContactStore(time.Now)
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})

	out := o.UpsertContactNameOnly(context.Background(), "+55117777", "Maria", testMeta)
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	row := store.row("+55117777")
	if row.LeadGoal != GoalNotInformed {
		t.Fatalf("lead goal = %q, want %q", row.LeadGoal, GoalNotInformed)
	}
	if row.LastDateConversation != nil {
		t.Fatal("name-only path must not touch")
	}
	if store.renames != 0 {
		t.Fatalf("renames = %d, want 0", store.renames)
	}
}

func TestUpsertContactDegradedLookupStillSucceeds(t *testing.T) {
	t.Parallel()

	store := newFakeContactStore(time.Now)
	resolver := &fakeResolver{identity: contractx.ChannelIdentity{
		ID:       1,
		Degraded: true,
		Err:      contractx.ErrLookupDegraded,
	}}
	o := newTestOrchestrator(t, store, resolver)

	out := o.UpsertContact(context.Background(), "+55119999", "Joao", testMeta, "entregador")
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s, want success", out.Status)
	}
	if out.Result.Kind != contractx.KindLookupDegraded || !out.Result.Degraded() {
		t.Fatalf("kind = %q, want lookup_degraded", out.Result.Kind)
	}
	if store.row("+55119999").ChannelIdentity != 1 {
		t.Fatal("fallback identity must be stamped")
	}
}

func TestUpsertContactDuplicateKeyFallsBackToUpdate(t *testing.T) {
	t.Parallel()

	store := newFakeContactStore(time.Now)
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})
	ctx := context.Background()

	if out := o.UpsertContact(ctx, "+55119999", "Joao", testMeta, "C1"); out.Status != StatusSuccess {
		t.Fatalf("first upsert failed: %s", out.Result)
	}

	store.staleReads = 1
	out := o.UpsertContact(ctx, "+55119999", "Joao", testMeta, "C2")
	if out.Status != StatusSuccess {
		t.Fatalf("status = %s, result = %s", out.Status, out.Result)
	}
	if out.Result.Kind != contractx.KindDuplicateKey {
		t.Fatalf("kind = %q, want duplicate_key", out.Result.Kind)
	}
	if store.creates != 1 {
		t.Fatalf("creates = %d, want 1", store.creates)
	}
	if store.row("+55119999").LeadGoal != "C2" {
		t.Fatal("update path must apply the new goal")
	}
}

func TestUpsertContactConcurrentSamePhone(t *testing.T) {
	t.Parallel()

	const workers = 16
	store := newFakeContactStore(time.Now)
	store.barrier = &sync.WaitGroup{}
	store.barrier.Add(workers)
	store.barrierN = workers
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})

	var wg sync.WaitGroup
	outcomes := make([]Outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = o.UpsertContact(context.Background(), "+55119999", "Joao", testMeta, fmt.Sprintf("C%d", i))
		}(i)
	}
	wg.Wait()

	for i, out := range outcomes {
		if out.Status != StatusSuccess {
			t.Fatalf("worker %d failed: %s", i, out.Result)
		}
	}
	if store.creates != 1 {
		t.Fatalf("creates = %d, want exactly 1", store.creates)
	}
	if len(store.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(store.rows))
	}
	if store.touches != workers {
		t.Fatalf("touches = %d, want %d", store.touches, workers)
	}
}

func TestUpsertContactStorageFailure(t *testing.T) {
	t.Parallel()

	store := newFakeContactStore(time.Now)
	store.findErr = errors.New("connection reset")
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})

	out := o.UpsertContact(context.Background(), "+55119999", "Joao", testMeta, "C1")
	if out.Status != StatusFailure || out.Contact != nil {
		t.Fatalf("outcome = %+v, want failure without contact", out)
	}
	if out.Result.Kind != contractx.KindStorageFailure || !errors.Is(out.Result.Err, contractx.ErrStorage) {
		t.Fatalf("result = %s, want storage failure", out.Result)
	}
}

func TestUpsertContactTouchFailure(t *testing.T) {
	t.Parallel()

	store := newFakeContactStore(time.Now)
	store.touchErr = errors.New("statement timeout")
	o := newTestOrchestrator(t, store, &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}})

	out := o.UpsertContact(context.Background(), "+55119999", "Joao", testMeta, "C1")
	if out.Status != StatusFailure || out.Result.Kind != contractx.KindStorageFailure {
		t.Fatalf("outcome = %+v, want storage failure", out)
	}
}

func TestUpsertContactEmptyPhone(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{identity: contractx.ChannelIdentity{ID: 3}}
	o := newTestOrchestrator(t, newFakeContactStore(time.Now), resolver)

	out := o.UpsertContact(context.Background(), "  ", "Joao", testMeta, "C1")
	if out.Status != StatusFailure || out.Result.Kind != contractx.KindValidation {
		t.Fatalf("outcome = %+v, want validation failure", out)
	}
	if resolver.calls != 0 {
		t.Fatal("resolver must not be called for an empty phone")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeResolver{}); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := New(newFakeContactStore(time.Now), nil); err == nil {
		t.Fatal("expected error for nil resolver")
	}
}
