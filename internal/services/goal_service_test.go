package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"metas/internal/amqp"
	"metas/internal/clock"
	"metas/internal/core"
	"metas/internal/storage"
)

// fakeGoalStore is an in-memory GoalStore mirroring the SQLite semantics the
// service relies on: owner scoping, active-only mutations, atomic contribute.
type fakeGoalStore struct {
	mu     sync.Mutex
	nextID int64
	goals  map[int64]core.Goal
}

func newFakeGoalStore() *fakeGoalStore {
	return &fakeGoalStore{goals: make(map[int64]core.Goal)}
}

func (f *fakeGoalStore) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeGoalStore) GetGoal(_ context.Context, ownerID string, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, nil
}

func (f *fakeGoalStore) ListGoals(_ context.Context, ownerID string) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Goal
	for id := int64(1); id <= f.nextID; id++ {
		if g, ok := f.goals[id]; ok && g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGoalStore) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.goals[g.ID]
	if !ok || stored.OwnerID != g.OwnerID {
		return core.Goal{}, storage.ErrNotFound
	}
	stored.Title = g.Title
	stored.Description = g.Description
	stored.Category = g.Category
	stored.Color = g.Color
	stored.Target = g.Target
	stored.Deadline = g.Deadline
	f.goals[g.ID] = stored
	return stored, nil
}

func (f *fakeGoalStore) Contribute(_ context.Context, ownerID string, id, amountCents int64, now time.Time) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.OwnerID != ownerID || g.Status != core.StatusActive {
		return core.Goal{}, storage.ErrNotFound
	}
	g.Current.Cents += amountCents
	if g.Current.Cents >= g.Target.Cents {
		g.Status = core.StatusCompleted
		g.CompletedAt = now
	}
	f.goals[id] = g
	return g, nil
}

func (f *fakeGoalStore) CompleteGoal(_ context.Context, ownerID string, id int64, now time.Time) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.Goal{}, storage.ErrNotFound
	}
	switch g.Status {
	case core.StatusCompleted:
		return g, nil
	case core.StatusCancelled:
		return core.Goal{}, storage.ErrNotFound
	}
	g.Status = core.StatusCompleted
	g.CompletedAt = now
	f.goals[id] = g
	return g, nil
}

func (f *fakeGoalStore) CancelGoal(_ context.Context, ownerID string, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.OwnerID != ownerID || g.Status != core.StatusActive {
		return core.Goal{}, storage.ErrNotFound
	}
	g.Status = core.StatusCancelled
	f.goals[id] = g
	return g, nil
}

func (f *fakeGoalStore) DeleteGoal(_ context.Context, ownerID string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.goals, id)
	return nil
}

type publishedEvent struct {
	goalID int64
	event  string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishGoalEvent(_ context.Context, goalID int64, _, event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{goalID: goalID, event: event})
	return nil
}

func (f *fakePublisher) published() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedEvent(nil), f.events...)
}

var testInstant = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func newTestGoalService(store *fakeGoalStore, pub *fakePublisher) *GoalService {
	return NewGoalService(store, pub, clock.FixedAt(testInstant))
}

func validGoal(owner string) core.Goal {
	return core.Goal{
		OwnerID:   owner,
		Title:     "Emergency fund",
		Target:    core.Money{Cents: 600000},
		StartDate: core.NewDate(2026, 8, 1),
		Deadline:  core.NewDate(2026, 12, 31),
	}
}

func TestGoalService_Create(t *testing.T) {
	t.Run("valid goal gets defaults and a created event", func(t *testing.T) {
		store := newFakeGoalStore()
		pub := &fakePublisher{}
		svc := newTestGoalService(store, pub)

		created, warning, err := svc.Create(context.Background(), validGoal("user-1"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if warning != "" {
			t.Errorf("warning = %q, want empty", warning)
		}
		if created.Status != core.StatusActive || created.Current.Cents != 0 {
			t.Errorf("created = %+v", created)
		}
		if created.Category != core.DefaultCategory || created.Color != core.DefaultColor {
			t.Errorf("defaults not applied: category=%q color=%q", created.Category, created.Color)
		}

		events := pub.published()
		if len(events) != 1 || events[0].event != amqp.EventGoalCreated {
			t.Errorf("published = %+v, want one created event", events)
		}
	})

	t.Run("future start date is adjusted to today with a warning", func(t *testing.T) {
		svc := newTestGoalService(newFakeGoalStore(), &fakePublisher{})

		g := validGoal("user-1")
		g.StartDate = core.NewDate(2026, 9, 15)

		created, warning, err := svc.Create(context.Background(), g)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if warning != WarnStartDateAdjusted {
			t.Errorf("warning = %q, want %q", warning, WarnStartDateAdjusted)
		}
		if created.StartDate.String() != "2026-08-30" {
			t.Errorf("StartDate = %q, want today", created.StartDate.String())
		}
	})

	t.Run("missing start date defaults to today without a warning", func(t *testing.T) {
		svc := newTestGoalService(newFakeGoalStore(), &fakePublisher{})

		g := validGoal("user-1")
		g.StartDate = core.Date{}

		created, warning, err := svc.Create(context.Background(), g)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if warning != "" {
			t.Errorf("warning = %q, want empty", warning)
		}
		if created.StartDate.String() != "2026-08-30" {
			t.Errorf("StartDate = %q, want today", created.StartDate.String())
		}
	})

	t.Run("validation failures reach the caller", func(t *testing.T) {
		svc := newTestGoalService(newFakeGoalStore(), &fakePublisher{})

		tests := []struct {
			name    string
			mutate  func(*core.Goal)
			wantErr error
		}{
			{"short title", func(g *core.Goal) { g.Title = "ab" }, core.ErrTitleTooShort},
			{"zero target", func(g *core.Goal) { g.Target = core.Money{} }, core.ErrInvalidAmount},
			{"deadline before start", func(g *core.Goal) { g.Deadline = core.NewDate(2026, 7, 1) }, core.ErrDeadlineBeforeStart},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				g := validGoal("user-1")
				tt.mutate(&g)
				if _, _, err := svc.Create(context.Background(), g); !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("publish failure does not fail the create", func(t *testing.T) {
		svc := newTestGoalService(newFakeGoalStore(), &fakePublisher{err: errors.New("broker down")})

		if _, _, err := svc.Create(context.Background(), validGoal("user-1")); err != nil {
			t.Fatalf("Create() error = %v, want nil despite publish failure", err)
		}
	})
}

func TestGoalService_Contribute(t *testing.T) {
	t.Run("partial contribution publishes nothing", func(t *testing.T) {
		store := newFakeGoalStore()
		pub := &fakePublisher{}
		svc := newTestGoalService(store, pub)
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		g, err := svc.Contribute(context.Background(), "user-1", created.ID, core.Money{Cents: 100000})
		if err != nil {
			t.Fatalf("Contribute() error = %v", err)
		}
		if g.Status != core.StatusActive || g.Current.Cents != 100000 {
			t.Errorf("goal = %+v", g)
		}
		for _, e := range pub.published() {
			if e.event == amqp.EventGoalCompleted {
				t.Error("partial contribution published a completed event")
			}
		}
	})

	t.Run("reaching target completes and publishes", func(t *testing.T) {
		store := newFakeGoalStore()
		pub := &fakePublisher{}
		svc := newTestGoalService(store, pub)
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		g, err := svc.Contribute(context.Background(), "user-1", created.ID, core.Money{Cents: 600000})
		if err != nil {
			t.Fatalf("Contribute() error = %v", err)
		}
		if g.Status != core.StatusCompleted || g.CompletedAt.IsZero() {
			t.Errorf("goal = %+v, want completed", g)
		}

		var completedEvents int
		for _, e := range pub.published() {
			if e.event == amqp.EventGoalCompleted && e.goalID == created.ID {
				completedEvents++
			}
		}
		if completedEvents != 1 {
			t.Errorf("completed events = %d, want 1", completedEvents)
		}
	})

	t.Run("non-positive amounts are rejected before storage", func(t *testing.T) {
		svc := newTestGoalService(newFakeGoalStore(), &fakePublisher{})

		for _, cents := range []int64{0, -100} {
			if _, err := svc.Contribute(context.Background(), "user-1", 1, core.Money{Cents: cents}); !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("Contribute(%d) error = %v, want ErrInvalidAmount", cents, err)
			}
		}
	})

	t.Run("unknown or foreign goal yields not found", func(t *testing.T) {
		store := newFakeGoalStore()
		svc := newTestGoalService(store, &fakePublisher{})
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		if _, err := svc.Contribute(context.Background(), "user-2", created.ID, core.Money{Cents: 100}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Contribute(other owner) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGoalService_CompleteManually(t *testing.T) {
	t.Run("active goal completes and publishes", func(t *testing.T) {
		store := newFakeGoalStore()
		pub := &fakePublisher{}
		svc := newTestGoalService(store, pub)
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		g, err := svc.CompleteManually(context.Background(), "user-1", created.ID)
		if err != nil {
			t.Fatalf("CompleteManually() error = %v", err)
		}
		if g.Status != core.StatusCompleted || g.CompletedAt.IsZero() {
			t.Errorf("goal = %+v, want completed", g)
		}
	})

	t.Run("recompletion is a no-op without a second event", func(t *testing.T) {
		store := newFakeGoalStore()
		pub := &fakePublisher{}
		svc := newTestGoalService(store, pub)
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		if _, err := svc.CompleteManually(context.Background(), "user-1", created.ID); err != nil {
			t.Fatalf("CompleteManually() error = %v", err)
		}
		if _, err := svc.CompleteManually(context.Background(), "user-1", created.ID); err != nil {
			t.Fatalf("second CompleteManually() error = %v", err)
		}

		var completedEvents int
		for _, e := range pub.published() {
			if e.event == amqp.EventGoalCompleted {
				completedEvents++
			}
		}
		if completedEvents != 1 {
			t.Errorf("completed events = %d, want 1", completedEvents)
		}
	})

	t.Run("cancelled goal cannot be completed", func(t *testing.T) {
		store := newFakeGoalStore()
		svc := newTestGoalService(store, &fakePublisher{})
		created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

		if _, err := svc.Cancel(context.Background(), "user-1", created.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if _, err := svc.CompleteManually(context.Background(), "user-1", created.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("CompleteManually(cancelled) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGoalService_Edit(t *testing.T) {
	store := newFakeGoalStore()
	svc := newTestGoalService(store, &fakePublisher{})
	created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

	t.Run("editable fields change, progress survives", func(t *testing.T) {
		if _, err := svc.Contribute(context.Background(), "user-1", created.ID, core.Money{Cents: 50000}); err != nil {
			t.Fatalf("Contribute() error = %v", err)
		}

		got, err := svc.Edit(context.Background(), "user-1", created.ID, EditGoalInput{
			Title:    "House deposit",
			Target:   core.Money{Cents: 900000},
			Deadline: core.NewDate(2027, 6, 30),
		})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if got.Title != "House deposit" || got.Target.Cents != 900000 {
			t.Errorf("Edit() = %+v", got)
		}
		if got.Current.Cents != 50000 || got.Status != core.StatusActive {
			t.Errorf("edit touched progress: %+v", got)
		}
	})

	t.Run("deadline is validated against the stored start date", func(t *testing.T) {
		_, err := svc.Edit(context.Background(), "user-1", created.ID, EditGoalInput{
			Title:    "House deposit",
			Target:   core.Money{Cents: 900000},
			Deadline: core.NewDate(2026, 1, 1), // before the stored start date
		})
		if !errors.Is(err, core.ErrDeadlineBeforeStart) {
			t.Errorf("Edit() error = %v, want ErrDeadlineBeforeStart", err)
		}
	})

	t.Run("removing the deadline is allowed", func(t *testing.T) {
		got, err := svc.Edit(context.Background(), "user-1", created.ID, EditGoalInput{
			Title:  "House deposit",
			Target: core.Money{Cents: 900000},
		})
		if err != nil {
			t.Fatalf("Edit() error = %v", err)
		}
		if !got.Deadline.IsEmpty() {
			t.Errorf("Deadline = %v, want empty", got.Deadline)
		}
	})

	t.Run("foreign goal yields not found", func(t *testing.T) {
		_, err := svc.Edit(context.Background(), "user-2", created.ID, EditGoalInput{
			Title:  "Hijack",
			Target: core.Money{Cents: 1},
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Edit(other owner) error = %v, want ErrNotFound", err)
		}
	})
}

func TestGoalService_DashboardReads(t *testing.T) {
	store := newFakeGoalStore()
	svc := newTestGoalService(store, &fakePublisher{})
	ctx := context.Background()

	mk := func(title string, deadline core.Date) core.Goal {
		g := validGoal("user-1")
		g.Title = title
		g.Deadline = deadline
		return g
	}

	noDeadline, _, _ := svc.Create(ctx, mk("No deadline", core.Date{}))
	far, _, _ := svc.Create(ctx, mk("Far deadline", core.NewDate(2026, 12, 31)))
	near, _, _ := svc.Create(ctx, mk("Near deadline", core.NewDate(2026, 9, 2)))
	done, _, _ := svc.Create(ctx, mk("Completed", core.NewDate(2026, 9, 1)))
	if _, err := svc.CompleteManually(ctx, "user-1", done.ID); err != nil {
		t.Fatalf("CompleteManually() error = %v", err)
	}

	t.Run("goals come back ranked with derived fields", func(t *testing.T) {
		views, err := svc.Goals(ctx, "user-1")
		if err != nil {
			t.Fatalf("Goals() error = %v", err)
		}
		wantOrder := []int64{near.ID, far.ID, noDeadline.ID, done.ID}
		if len(views) != len(wantOrder) {
			t.Fatalf("Goals() returned %d views, want %d", len(views), len(wantOrder))
		}
		for i, want := range wantOrder {
			if views[i].ID != want {
				t.Errorf("position %d = goal %d, want %d", i, views[i].ID, want)
			}
		}
		if views[0].DaysRemaining == nil || *views[0].DaysRemaining != 3 {
			t.Errorf("DaysRemaining = %v, want 3", views[0].DaysRemaining)
		}
	})

	t.Run("stats aggregate the full set", func(t *testing.T) {
		stats, err := svc.Stats(ctx, "user-1")
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.TotalGoals != 4 || stats.ActiveGoals != 3 || stats.CompletedGoals != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("upcoming keeps only active goals inside the window", func(t *testing.T) {
		alerts, err := svc.Upcoming(ctx, "user-1")
		if err != nil {
			t.Fatalf("Upcoming() error = %v", err)
		}
		// Near deadline (+3d) is in; far (+123d) is out; the completed goal's
		// deadline (+2d) must not alert.
		if len(alerts) != 1 || alerts[0].GoalID != near.ID {
			t.Errorf("alerts = %+v, want only the near-deadline goal", alerts)
		}
	})
}

func TestGoalService_Delete(t *testing.T) {
	store := newFakeGoalStore()
	svc := newTestGoalService(store, &fakePublisher{})
	created, _, _ := svc.Create(context.Background(), validGoal("user-1"))

	if err := svc.Delete(context.Background(), "user-2", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(other owner) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-1", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}
