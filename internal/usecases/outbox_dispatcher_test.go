package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lightfriend/lightfriend/internal/entities"
)

type fakeOutboxStore struct {
	jobs   []entities.OutboxJob
	done   []int64
	failed []int64
	refs   map[int64]string
}

func (f *fakeOutboxStore) Due(context.Context, int, time.Duration) ([]entities.OutboxJob, error) {
	return f.jobs, nil
}

func (f *fakeOutboxStore) MarkDone(_ context.Context, id int64) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, id int64, _ int, _ string, _ time.Time, _ bool) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutboxStore) SetProviderRef(_ context.Context, id int64, ref string) error {
	if f.refs == nil {
		f.refs = make(map[int64]string)
	}
	f.refs[id] = ref
	return nil
}

type fakeSubSource struct {
	sub *entities.Subscription
}

func (f *fakeSubSource) GetByUser(context.Context, int) (*entities.Subscription, error) {
	return f.sub, nil
}

type fakeCharger struct {
	txn   string
	err   error
	calls int
}

func (f *fakeCharger) ChargeSubscription(context.Context, string, int) (string, error) {
	f.calls++
	return f.txn, f.err
}

func rechargeJob(t *testing.T, id int64, providerRef string, amount float64) entities.OutboxJob {
	t.Helper()
	payload, err := json.Marshal(AutoRechargePayload{UserID: 7, Amount: amount})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return entities.OutboxJob{ID: id, Kind: entities.JobAutoRecharge, Payload: payload, ProviderRef: providerRef}
}

func newRechargeDispatcher(store *fakeOutboxStore, charger *fakeCharger, credits *fakeCreditStore) *OutboxDispatcher {
	billing := NewBillingUsecase(credits, &fakeUsageLog{}, &fakeJobQueue{}, testRates, zerolog.Nop())
	subs := &fakeSubSource{sub: &entities.Subscription{PaddleSubscriptionID: "sub_1", Status: "active"}}
	return NewOutboxDispatcher(store, nil, subs, billing, charger, nil, nil, zerolog.Nop())
}

func TestOutboxRecharge_ChargesOnceThenCredits(t *testing.T) {
	store := &fakeOutboxStore{jobs: []entities.OutboxJob{rechargeJob(t, 1, "", 12.5)}}
	charger := &fakeCharger{txn: "txn-1"}
	credits := &fakeCreditStore{}

	d := newRechargeDispatcher(store, charger, credits)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if charger.calls != 1 {
		t.Errorf("charger called %d times, want 1", charger.calls)
	}
	if store.refs[1] != "txn-1" {
		t.Errorf("provider ref = %q, want txn-1", store.refs[1])
	}
	// 12.5 IQ rounds up to 13 whole units.
	if len(credits.added) != 1 || credits.added[0] != 13 {
		t.Errorf("credits added = %v, want [13]", credits.added)
	}
	if len(store.done) != 1 || store.done[0] != 1 {
		t.Errorf("done = %v, want [1]", store.done)
	}
}

func TestOutboxRecharge_RetryAfterChargeDoesNotChargeAgain(t *testing.T) {
	// A provider ref on the job means an earlier attempt already billed the
	// card; the retry must only finish the crediting side.
	store := &fakeOutboxStore{jobs: []entities.OutboxJob{rechargeJob(t, 1, "txn-9", 13)}}
	charger := &fakeCharger{txn: "txn-should-not-happen"}
	credits := &fakeCreditStore{}

	d := newRechargeDispatcher(store, charger, credits)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if charger.calls != 0 {
		t.Errorf("charger called %d times, want 0", charger.calls)
	}
	if len(credits.added) != 1 || credits.added[0] != 13 {
		t.Errorf("credits added = %v, want [13]", credits.added)
	}
	if len(store.done) != 1 {
		t.Errorf("done = %v, want the job settled", store.done)
	}
}

func TestOutboxRecharge_ChargeFailureLeavesJobForRetry(t *testing.T) {
	store := &fakeOutboxStore{jobs: []entities.OutboxJob{rechargeJob(t, 1, "", 10)}}
	charger := &fakeCharger{err: errors.New("card declined")}
	credits := &fakeCreditStore{}

	d := newRechargeDispatcher(store, charger, credits)
	if err := d.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}

	if len(credits.added) != 0 {
		t.Errorf("no credits should be added on a failed charge, got %v", credits.added)
	}
	if len(store.refs) != 0 {
		t.Errorf("no provider ref should be recorded, got %v", store.refs)
	}
	if len(store.failed) != 1 || store.failed[0] != 1 {
		t.Errorf("failed = %v, want [1]", store.failed)
	}
	if len(store.done) != 0 {
		t.Errorf("job must not be marked done, got %v", store.done)
	}
}
