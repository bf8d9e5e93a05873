package ctftime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const listingPayload = `[
	{"id": 2345, "title": "Alpha CTF 2026", "start": "2026-09-12T10:00:00+00:00", "finish": "2026-09-14T10:00:00+00:00"},
	{"id": 2346, "title": "Beta CTF", "start": "2026-09-20T12:00:00+09:00", "finish": "2026-09-21T12:00:00+09:00"}
]`

func TestUpcomingSendsWindowAndParsesListing(t *testing.T) {
	var capturedQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(listingPayload))
	}))
	defer server.Close()

	client := NewClient(server.URL, 30, server.Client())
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	events, err := client.Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, []string{"20"}, capturedQuery["limit"])
	require.Equal(t, []string{"1788177600"}, capturedQuery["start"])
	require.Equal(t, []string{"1790769600"}, capturedQuery["finish"])

	require.Equal(t, int64(2345), events[0].ID)
	require.Equal(t, "Alpha CTF 2026", events[0].Title)
	require.Equal(t, time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC), events[0].StartAt)
	// Offsets normalize to UTC.
	require.Equal(t, time.Date(2026, 9, 20, 3, 0, 0, 0, time.UTC), events[1].StartAt)
}

func TestUpcomingRejectsUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, 30, server.Client())
	_, err := client.Upcoming(context.Background())
	require.ErrorContains(t, err, "unexpected status 500")
}

func TestByIDAppendsEventPath(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 2345, "title": "Alpha CTF 2026", "start": "2026-09-12T10:00:00+00:00", "finish": "2026-09-14T10:00:00+00:00"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/v1/events/", 30, server.Client())
	fe, err := client.ByID(context.Background(), 2345)
	require.NoError(t, err)
	require.Equal(t, "/api/v1/events/2345/", capturedPath)
	require.Equal(t, int64(2345), fe.ID)
	require.Equal(t, "Alpha CTF 2026", fe.Title)
}

func TestByIDTreatsNotFoundAsGone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 30, server.Client())
	fe, err := client.ByID(context.Background(), 9999)
	require.NoError(t, err)
	require.Nil(t, fe)
}

func TestByIDRejectsMalformedTimestamps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "title": "Broken", "start": "not-a-time", "finish": "2026-09-14T10:00:00+00:00"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 30, server.Client())
	_, err := client.ByID(context.Background(), 1)
	require.ErrorContains(t, err, "parse start time")
}
