package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantage6/console/pkg/events"
	"github.com/vantage6/console/pkg/observability"
	"github.com/vantage6/console/pkg/platform"
	"github.com/vantage6/console/pkg/session"
)

func newStreamingServer(t *testing.T) (*Server, *events.Hub) {
	t.Helper()
	srv := fakePlatform(t)

	base, err := platform.NewClient(srv.URL, platform.WithRetryMax(0))
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sessions := session.NewManager(base, time.Hour, 0, logger, nil, nil)
	hub := events.NewHub(nil)

	return NewServer(Config{
		Sessions: sessions,
		Logger:   logger,
		Hub:      hub,
	}), hub
}

func TestStreamDeliversVisibleEvents(t *testing.T) {
	s, hub := newStreamingServer(t)
	token := loginAlice(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Handler().ServeHTTP(rec, req)
	}()

	// wait for the handler to subscribe
	deadline := time.After(time.Second)
	for hub.Clients() == 0 {
		select {
		case <-deadline:
			t.Fatal("handler never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// visible: alice's own organization
	hub.Publish(events.Event{Type: events.TypeNodeOnline, NodeID: 1, OrganizationID: 7})
	// invisible: another organization, alice has no global event rule
	hub.Publish(events.Event{Type: events.TypeNodeOffline, NodeID: 2, OrganizationID: 9})
	// visible: platform-wide notice
	hub.Publish(events.Event{Type: events.TypeTaskStatus, TaskID: 41, Status: "completed"})

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Contains(t, body, "event: node-online")
	assert.Contains(t, body, "event: task-status")
	assert.NotContains(t, body, "node-offline")
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Zero(t, hub.Clients(), "handler must unsubscribe on disconnect")
}

func TestStreamWithoutHubConfigured(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/events", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventVisibility(t *testing.T) {
	s := newTestServer(t)
	token := loginAlice(t, s)

	sess, ok := s.sessions.Get(token)
	require.True(t, ok)
	snap, ok := sess.Evaluator.Snapshot()
	require.True(t, ok)

	assert.True(t, eventVisible(snap, events.Event{Type: events.TypeNodeOnline, OrganizationID: 7}))
	assert.True(t, eventVisible(snap, events.Event{Type: events.TypeNodeOnline}))
	assert.False(t, eventVisible(snap, events.Event{Type: events.TypeNodeOnline, OrganizationID: 9}))
}
