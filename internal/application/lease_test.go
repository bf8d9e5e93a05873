package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ctfbot/internal/domain"
	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

// memoryEventStore mirrors the database semantics the services rely on:
// conditional lease claim by identifying filter, owner-token release,
// lease-gated writes and keyset paging. It lets the contract run under real
// concurrency and a fake clock without Postgres.
type memoryEventStore struct {
	mu     sync.Mutex
	events map[int64]*entities.Event
	now    func() time.Time
}

func newMemoryEventStore(now func() time.Time, events ...*entities.Event) *memoryEventStore {
	m := &memoryEventStore{events: make(map[int64]*entities.Event), now: now}
	for _, ev := range events {
		m.events[ev.ID] = ev
	}
	return m
}

func matchesQuery(ev *entities.Event, q output.EventQuery) bool {
	if q.ID != 0 && ev.ID != q.ID {
		return false
	}
	if q.ExternalID != 0 && ev.ExternalID != q.ExternalID {
		return false
	}
	if q.ChannelID != "" && ev.ChannelID != q.ChannelID {
		return false
	}
	if q.Kind == entities.KindCTFTime && ev.ExternalID == 0 {
		return false
	}
	if q.Kind == entities.KindCustom && ev.ExternalID != 0 {
		return false
	}
	if q.Archived != nil && ev.Archived != *q.Archived {
		return false
	}
	return true
}

func (m *memoryEventStore) Acquire(ctx context.Context, q output.EventQuery, ttl time.Duration) (int64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *entities.Event
	for _, ev := range m.events {
		if matchesQuery(ev, q) {
			target = ev
			break
		}
	}
	if target == nil {
		return 0, "", domain.ErrEventNotFound
	}
	now := m.now()
	if target.LockedBy != "" && target.LockedUntil.After(now) {
		return 0, "", domain.ErrEventLocked
	}
	target.LockedBy = uuid.NewString()
	target.LockedUntil = now.Add(ttl)
	return target.ID, target.LockedBy, nil
}

func (m *memoryEventStore) Release(ctx context.Context, eventID int64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[eventID]
	if !ok || ev.LockedBy != token || !ev.LockedUntil.After(m.now()) {
		return false, nil
	}
	ev.LockedBy = ""
	ev.LockedUntil = time.Time{}
	return true, nil
}

func (m *memoryEventStore) Update(ctx context.Context, id int64, token string, patch output.EventPatch) (*entities.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok || ev.LockedBy != token || !ev.LockedUntil.After(m.now()) {
		return nil, domain.ErrEventNotFound
	}
	if patch.Archived != nil {
		ev.Archived = *patch.Archived
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.StartAt != nil {
		ev.StartAt = *patch.StartAt
	}
	if patch.FinishAt != nil {
		ev.FinishAt = *patch.FinishAt
	}
	if patch.ChannelID != nil {
		ev.ChannelID = *patch.ChannelID
	}
	if patch.ScheduledEventID != nil {
		ev.ScheduledEventID = *patch.ScheduledEventID
	}
	updated := *ev
	return &updated, nil
}

func (m *memoryEventStore) FindMany(ctx context.Context, q output.EventQuery, page output.Keyset) ([]entities.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []entities.Event{}
	for _, ev := range m.events {
		if !matchesQuery(ev, q) {
			continue
		}
		if q.Kind == entities.KindCTFTime {
			if !page.FinishAfter.IsZero() && !ev.FinishAt.After(page.FinishAfter) {
				continue
			}
			if !page.LastFinish.IsZero() {
				// Rows at or after the (finish, id) boundary belong to
				// earlier pages.
				if ev.FinishAt.After(page.LastFinish) {
					continue
				}
				if ev.FinishAt.Equal(page.LastFinish) && ev.ID >= page.LastID {
					continue
				}
			}
		} else if page.LastID != 0 && ev.ID >= page.LastID {
			continue
		}
		out = append(out, *ev)
	}

	if q.Kind == entities.KindCTFTime {
		sort.Slice(out, func(i, j int) bool {
			if !out[i].FinishAt.Equal(out[j].FinishAt) {
				return out[i].FinishAt.After(out[j].FinishAt)
			}
			return out[i].ID > out[j].ID
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func TestLeaseConcurrentAcquireHasOneWinner(t *testing.T) {
	store := newMemoryEventStore(time.Now, &entities.Event{ID: 1})

	const attempts = 32
	var wg sync.WaitGroup
	tokens := make(chan string, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, token, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, time.Minute)
			if err == nil {
				tokens <- token
			} else {
				require.ErrorIs(t, err, domain.ErrEventLocked)
			}
		}()
	}
	wg.Wait()
	close(tokens)

	var winners []string
	for token := range tokens {
		winners = append(winners, token)
	}
	require.Len(t, winners, 1)
}

func TestLeaseReleaseAllowsReacquire(t *testing.T) {
	store := newMemoryEventStore(time.Now, &entities.Event{ID: 1})

	_, token, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, time.Minute)
	require.NoError(t, err)

	released, err := store.Release(context.Background(), 1, token)
	require.NoError(t, err)
	require.True(t, released)

	_, _, err = store.Acquire(context.Background(), output.EventQuery{ID: 1}, time.Minute)
	require.NoError(t, err)
}

func TestLeaseExpirySelfHeals(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemoryEventStore(clock, &entities.Event{ID: 1})

	_, stale, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, 2*time.Minute)
	require.NoError(t, err)

	// Holder crashes; nothing is released. Before the TTL the event stays
	// held, after it the next acquire simply wins.
	_, _, err = store.Acquire(context.Background(), output.EventQuery{ID: 1}, 2*time.Minute)
	require.ErrorIs(t, err, domain.ErrEventLocked)

	now = now.Add(2*time.Minute + time.Second)
	_, fresh, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, 2*time.Minute)
	require.NoError(t, err)
	require.NotEqual(t, stale, fresh)

	// The stale token can no longer release the new holder's lease.
	released, err := store.Release(context.Background(), 1, stale)
	require.NoError(t, err)
	require.False(t, released)
}

func TestLeaseAcquireHonorsIdentifyingFilter(t *testing.T) {
	store := newMemoryEventStore(time.Now, &entities.Event{ID: 1, Archived: true})

	_, _, err := store.Acquire(context.Background(), output.EventQuery{ID: 1, Archived: ptr(false)}, time.Minute)
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestLeaseAcquireByExternalIDReturnsRowID(t *testing.T) {
	store := newMemoryEventStore(time.Now, &entities.Event{ID: 7, ExternalID: 900})

	id, token, err := store.Acquire(context.Background(), output.EventQuery{ExternalID: 900}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	// The returned id is enough to release; the query never carried one.
	released, err := store.Release(context.Background(), id, token)
	require.NoError(t, err)
	require.True(t, released)
}

func TestUpdateRequiresValidLease(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newMemoryEventStore(clock, &entities.Event{ID: 1, Title: "before"})

	// No lease at all.
	_, err := store.Update(context.Background(), 1, uuid.NewString(), output.EventPatch{Title: ptr("after")})
	require.ErrorIs(t, err, domain.ErrEventNotFound)

	id, token, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, 2*time.Minute)
	require.NoError(t, err)

	// Expired lease: the token is real but no longer protects the row.
	now = now.Add(2*time.Minute + time.Second)
	_, err = store.Update(context.Background(), id, token, output.EventPatch{Title: ptr("after")})
	require.ErrorIs(t, err, domain.ErrEventNotFound)

	_, fresh, err := store.Acquire(context.Background(), output.EventQuery{ID: 1}, 2*time.Minute)
	require.NoError(t, err)
	updated, err := store.Update(context.Background(), id, fresh, output.EventPatch{Title: ptr("after")})
	require.NoError(t, err)
	require.Equal(t, "after", updated.Title)
}

func TestKeysetPageStaysStableUnderArchival(t *testing.T) {
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	events := make([]*entities.Event, 0, 5)
	for i := int64(1); i <= 5; i++ {
		events = append(events, &entities.Event{
			ID:         i,
			ExternalID: 100 + i,
			FinishAt:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	store := newMemoryEventStore(time.Now, events...)
	q := output.EventQuery{Kind: entities.KindCTFTime, Archived: ptr(false)}

	page1, err := store.FindMany(context.Background(), q, output.Keyset{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []int64{5, 4}, eventIDs(page1))

	// An event from the already-served page is archived between fetches.
	id, token, err := store.Acquire(context.Background(), output.EventQuery{ID: 4}, time.Minute)
	require.NoError(t, err)
	_, err = store.Update(context.Background(), id, token, output.EventPatch{Archived: ptr(true)})
	require.NoError(t, err)

	// The (finish, id) boundary keeps later pages stable: nothing repeats,
	// nothing is skipped.
	last := page1[len(page1)-1]
	page2, err := store.FindMany(context.Background(), q, output.Keyset{
		Limit: 2, LastFinish: last.FinishAt, LastID: last.ID,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{3, 2}, eventIDs(page2))

	last = page2[len(page2)-1]
	page3, err := store.FindMany(context.Background(), q, output.Keyset{
		Limit: 2, LastFinish: last.FinishAt, LastID: last.ID,
	})
	require.NoError(t, err)
	require.Equal(t, []int64{1}, eventIDs(page3))
}

func eventIDs(events []entities.Event) []int64 {
	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	return ids
}
