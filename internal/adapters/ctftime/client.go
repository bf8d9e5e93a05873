// Package ctftime implements the event feed port against the CTFTime REST
// API (https://ctftime.org/api/v1/events/).
package ctftime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ctfbot/internal/ports/output"
)

var _ output.EventFeed = (*Client)(nil)

const defaultPageLimit = 20

type Client struct {
	baseURL    string
	searchDays int
	httpClient *http.Client

	now func() time.Time
}

// NewClient builds a feed client. searchDays bounds the Upcoming window to
// now .. now+searchDays. httpClient may be nil.
func NewClient(baseURL string, searchDays int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/",
		searchDays: searchDays,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// apiEvent is the subset of the CTFTime event payload the bot cares about.
// Timestamps come as ISO 8601 with a zone offset.
type apiEvent struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	Finish string `json:"finish"`
}

func (e apiEvent) toFeedEvent() (output.FeedEvent, error) {
	start, err := time.Parse(time.RFC3339, e.Start)
	if err != nil {
		return output.FeedEvent{}, fmt.Errorf("parse start time %q: %w", e.Start, err)
	}
	finish, err := time.Parse(time.RFC3339, e.Finish)
	if err != nil {
		return output.FeedEvent{}, fmt.Errorf("parse finish time %q: %w", e.Finish, err)
	}
	return output.FeedEvent{
		ID:       e.ID,
		Title:    e.Title,
		StartAt:  start.UTC(),
		FinishAt: finish.UTC(),
	}, nil
}

// windowParams is the query string CTFTime expects: a unix-time window plus
// a page limit.
func (c *Client) windowParams() url.Values {
	now := c.now()
	return url.Values{
		"limit":  {strconv.Itoa(defaultPageLimit)},
		"start":  {strconv.FormatInt(now.Unix(), 10)},
		"finish": {strconv.FormatInt(now.AddDate(0, 0, c.searchDays).Unix(), 10)},
	}
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

// Upcoming returns the events starting within the configured search window.
func (c *Client) Upcoming(ctx context.Context) ([]output.FeedEvent, error) {
	resp, err := c.get(ctx, c.baseURL+"?"+c.windowParams().Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch upcoming events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch upcoming events: unexpected status %d", resp.StatusCode)
	}

	var payload []apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode events payload: %w", err)
	}

	events := make([]output.FeedEvent, 0, len(payload))
	for _, e := range payload {
		fe, err := e.toFeedEvent()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", e.ID, err)
		}
		events = append(events, fe)
	}
	return events, nil
}

// ByID fetches a single event, e.g. https://ctftime.org/api/v1/events/2345/.
// A 404 means the event was removed upstream and yields (nil, nil).
func (c *Client) ByID(ctx context.Context, externalID int64) (*output.FeedEvent, error) {
	resp, err := c.get(ctx, fmt.Sprintf("%s%d/", c.baseURL, externalID))
	if err != nil {
		return nil, fmt.Errorf("fetch event %d: %w", externalID, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("fetch event %d: unexpected status %d", externalID, resp.StatusCode)
	}

	var payload apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	fe, err := payload.toFeedEvent()
	if err != nil {
		return nil, fmt.Errorf("event %d: %w", externalID, err)
	}
	return &fe, nil
}
