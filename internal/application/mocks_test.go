package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"ctfbot/internal/domain/entities"
	"ctfbot/internal/ports/output"
)

// Mock output ports for testing.

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) Create(ctx context.Context, event *entities.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockEventRepo) FindOne(ctx context.Context, q output.EventQuery) (*entities.Event, error) {
	args := m.Called(ctx, q)
	ev, _ := args.Get(0).(*entities.Event)
	return ev, args.Error(1)
}

func (m *mockEventRepo) FindOneLocked(ctx context.Context, q output.EventQuery, ttl time.Duration) (*entities.Event, string, error) {
	args := m.Called(ctx, q, ttl)
	ev, _ := args.Get(0).(*entities.Event)
	return ev, args.String(1), args.Error(2)
}

func (m *mockEventRepo) FindMany(ctx context.Context, q output.EventQuery, page output.Keyset) ([]entities.Event, error) {
	args := m.Called(ctx, q, page)
	evs, _ := args.Get(0).([]entities.Event)
	return evs, args.Error(1)
}

func (m *mockEventRepo) FindExpired(ctx context.Context, horizon time.Time) ([]entities.Event, error) {
	args := m.Called(ctx, horizon)
	evs, _ := args.Get(0).([]entities.Event)
	return evs, args.Error(1)
}

func (m *mockEventRepo) Update(ctx context.Context, id int64, token string, patch output.EventPatch) (*entities.Event, error) {
	args := m.Called(ctx, id, token, patch)
	ev, _ := args.Get(0).(*entities.Event)
	return ev, args.Error(1)
}

func (m *mockEventRepo) AddParticipant(ctx context.Context, id int64, token string, userID string) error {
	args := m.Called(ctx, id, token, userID)
	return args.Error(0)
}

func (m *mockEventRepo) RemoveAllParticipants(ctx context.Context, id int64, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

type mockLeaseStore struct {
	mock.Mock
}

func (m *mockLeaseStore) Acquire(ctx context.Context, q output.EventQuery, ttl time.Duration) (int64, string, error) {
	args := m.Called(ctx, q, ttl)
	return int64(args.Int(0)), args.String(1), args.Error(2)
}

func (m *mockLeaseStore) Release(ctx context.Context, eventID int64, token string) (bool, error) {
	args := m.Called(ctx, eventID, token)
	return args.Bool(0), args.Error(1)
}

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) CreateEventChannel(ctx context.Context, name string, memberID string) (string, error) {
	args := m.Called(ctx, name, memberID)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) DeleteChannel(ctx context.Context, channelID, reason string) error {
	args := m.Called(ctx, channelID, reason)
	return args.Error(0)
}

func (m *mockDirectory) ChannelExists(ctx context.Context, channelID string) bool {
	args := m.Called(ctx, channelID)
	return args.Bool(0)
}

func (m *mockDirectory) GrantView(ctx context.Context, channelID, userID string) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *mockDirectory) RevokeView(ctx context.Context, channelID, userID string) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *mockDirectory) MoveToArchive(ctx context.Context, channelID, reason string) error {
	args := m.Called(ctx, channelID, reason)
	return args.Error(0)
}

func (m *mockDirectory) ScheduledEntry(ctx context.Context, id string) (*output.ScheduledEntry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*output.ScheduledEntry)
	return entry, args.Error(1)
}

func (m *mockDirectory) CreateScheduledEntry(ctx context.Context, entry output.ScheduledEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *mockDirectory) EditScheduledEntry(ctx context.Context, id string, entry output.ScheduledEntry) error {
	args := m.Called(ctx, id, entry)
	return args.Error(0)
}

func (m *mockDirectory) DeleteScheduledEntry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Announce(ctx context.Context, n output.Notice) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNotifier) NotifyChannel(ctx context.Context, channelID string, n output.Notice) error {
	args := m.Called(ctx, channelID, n)
	return args.Error(0)
}

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) Upcoming(ctx context.Context) ([]output.FeedEvent, error) {
	args := m.Called(ctx)
	evs, _ := args.Get(0).([]output.FeedEvent)
	return evs, args.Error(1)
}

func (m *mockFeed) ByID(ctx context.Context, externalID int64) (*output.FeedEvent, error) {
	args := m.Called(ctx, externalID)
	fe, _ := args.Get(0).(*output.FeedEvent)
	return fe, args.Error(1)
}

// keyTranslator renders every message as its key, which keeps assertions
// independent of the catalogue.
type keyTranslator struct{}

func (keyTranslator) T(locale, key string, data map[string]any) string { return key }

const testLockTTL = 2 * time.Minute

type testPorts struct {
	events    *mockEventRepo
	leases    *mockLeaseStore
	directory *mockDirectory
	notifier  *mockNotifier
	feed      *mockFeed
}

func newTestService() (*EventService, *testPorts) {
	p := &testPorts{
		events:    new(mockEventRepo),
		leases:    new(mockLeaseStore),
		directory: new(mockDirectory),
		notifier:  new(mockNotifier),
		feed:      new(mockFeed),
	}
	svc := NewEventService(p.events, p.leases, p.directory, p.notifier, p.feed, keyTranslator{}, testLockTTL, zerolog.Nop())
	return svc, p
}
