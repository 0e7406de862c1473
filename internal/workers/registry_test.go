package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"plexconverter/internal/logging"
	"plexconverter/internal/services"
	"plexconverter/internal/testsupport"
	"plexconverter/internal/workers"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newRegistry(t *testing.T, opts ...workers.Option) *workers.Registry {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	return workers.New(db, logging.NewNop(), opts...)
}

func TestRegisterReusesIDForSameHost(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	reg := newRegistry(t, workers.WithClock(clk.Now))
	ctx := context.Background()

	first := testsupport.MustRegisterWorker(t, reg, "encoder-1", "192.168.1.10")
	if first.ID == "" || first.State != workers.StateConnected {
		t.Fatalf("first registration = %+v", first)
	}
	if err := reg.SetStatus(ctx, first.ID, workers.StateProcessing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	clk.now = clk.now.Add(time.Minute)
	second, err := reg.Register(ctx, workers.Info{Hostname: "encoder-1", IPAddress: "192.168.1.10", CPU: "new cpu", RAMBytes: 16 << 30})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("id changed: %s -> %s", first.ID, second.ID)
	}
	if !second.LastCheckin.After(first.LastCheckin) {
		t.Fatalf("last checkin not refreshed: %v -> %v", first.LastCheckin, second.LastCheckin)
	}
	if second.State != workers.StateConnected || second.CPU != "new cpu" || second.RAMBytes != 16<<30 {
		t.Fatalf("re-registration not applied: %+v", second)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	other := testsupport.MustRegisterWorker(t, reg, "encoder-1", "192.168.1.11")
	if other.ID == first.ID {
		t.Fatal("different address reused the same id")
	}
}

func TestRegisterIgnoresExcludedAddresses(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	for _, addr := range []string{"0.0.0.0", "255.255.255.255", "224.0.0.251", "239.255.255.250"} {
		worker, err := reg.Register(ctx, workers.Info{Hostname: "box", IPAddress: addr})
		if err != nil || worker != nil {
			t.Fatalf("Register(%s) = %+v, %v; want nil, nil", addr, worker, err)
		}
	}
	list, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("excluded registrations stored: %+v", list)
	}
}

func TestRegisterCustomExclusions(t *testing.T) {
	reg := newRegistry(t, workers.WithExcludedAddresses([]string{"10.0.0.1"}))
	ctx := context.Background()

	worker, err := reg.Register(ctx, workers.Info{Hostname: "box", IPAddress: "10.0.0.1"})
	if err != nil || worker != nil {
		t.Fatalf("Register(10.0.0.1) = %+v, %v", worker, err)
	}
	testsupport.MustRegisterWorker(t, reg, "box", "0.0.0.0")
}

func TestRegisterValidatesInput(t *testing.T) {
	reg := newRegistry(t)
	for _, info := range []workers.Info{
		{Hostname: "", IPAddress: "192.168.1.2"},
		{Hostname: "box", IPAddress: " "},
	} {
		if _, err := reg.Register(context.Background(), info); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Register(%+v) error = %v, want validation", info, err)
		}
	}
}

func TestSetStatusUnknownWorker(t *testing.T) {
	reg := newRegistry(t)
	err := reg.SetStatus(context.Background(), "missing", workers.StateConnected)
	if !errors.Is(err, workers.ErrWorkerNotFound) {
		t.Fatalf("SetStatus error = %v, want ErrWorkerNotFound", err)
	}
	if err := reg.SetStatus(context.Background(), "missing", workers.State("Sleeping")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("SetStatus(bad state) error = %v, want validation", err)
	}
}

func TestStatusAndGet(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	state, ok, err := reg.Status(ctx, "missing")
	if err != nil || ok || state != "" {
		t.Fatalf("Status(missing) = %q, %v, %v", state, ok, err)
	}
	worker, err := reg.Get(ctx, "missing")
	if err != nil || worker != nil {
		t.Fatalf("Get(missing) = %+v, %v", worker, err)
	}

	registered := testsupport.MustRegisterWorker(t, reg, "encoder-1", "192.168.1.10")
	if err := reg.SetStatus(ctx, registered.ID, workers.StateProcessing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	state, ok, err = reg.Status(ctx, registered.ID)
	if err != nil || !ok || !state.IsProcessing() {
		t.Fatalf("Status = %q, %v, %v", state, ok, err)
	}
}

func TestListOrdersByMostRecentCheckin(t *testing.T) {
	clk := &clock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	reg := newRegistry(t, workers.WithClock(clk.Now))

	old := testsupport.MustRegisterWorker(t, reg, "old", "192.168.1.2")
	clk.now = clk.now.Add(time.Hour)
	recent := testsupport.MustRegisterWorker(t, reg, "recent", "192.168.1.3")

	list, err := reg.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != recent.ID || list[1].ID != old.ID {
		t.Fatalf("order = %+v", list)
	}
	if !list[1].Stale(clk.now.Add(-time.Minute)) || list[0].Stale(clk.now.Add(-time.Minute)) {
		t.Fatal("unexpected staleness")
	}
}

func TestClearAllRefusedWhileProcessing(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	busy := testsupport.MustRegisterWorker(t, reg, "encoder-1", "192.168.1.10")
	testsupport.MustRegisterWorker(t, reg, "encoder-2", "192.168.1.11")
	if err := reg.SetStatus(ctx, busy.ID, workers.StateProcessing); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	result, err := reg.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if result.Blocked != 1 || result.Removed != 0 {
		t.Fatalf("ClearAll = %+v, want blocked 1", result)
	}
	if list, _ := reg.List(ctx); len(list) != 2 {
		t.Fatalf("workers after refused clear = %d, want 2", len(list))
	}

	if err := reg.SetStatus(ctx, busy.ID, workers.StateConnected); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	result, err = reg.ClearAll(ctx)
	if err != nil || result.Removed != 2 || result.Blocked != 0 {
		t.Fatalf("ClearAll = %+v, %v; want 2 removed", result, err)
	}
}

func TestParseState(t *testing.T) {
	if state, ok := workers.ParseState(" processing "); !ok || state != workers.StateProcessing {
		t.Fatalf("ParseState(processing) = %q, %v", state, ok)
	}
	if _, ok := workers.ParseState("idle"); ok {
		t.Fatal("ParseState(idle) accepted")
	}
}
