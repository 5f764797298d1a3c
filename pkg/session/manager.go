package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vantage6/console/pkg/audit"
	"github.com/vantage6/console/pkg/observability"
	"github.com/vantage6/console/pkg/permission"
	"github.com/vantage6/console/pkg/platform"
)

// ErrTooManySessions is returned by Login when the session table is full.
var ErrTooManySessions = errors.New("session limit reached")

// Session is one authenticated console user.
type Session struct {
	Token          string
	UserID         int64
	Username       string
	OrganizationID int64

	// Evaluator answers permission queries for this user.
	Evaluator *permission.Evaluator

	CreatedAt time.Time

	mu       sync.Mutex
	client   *platform.Client
	lastSeen time.Time
	refresh  string
}

// Client returns the platform client bound to the session's current JWT.
// Refresh replaces the client, so handlers must read it through here rather
// than hold one across requests.
func (s *Session) Client() *platform.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// LastSeen returns the time of the session's most recent use.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Manager owns the session table.
type Manager struct {
	base    *platform.Client
	ttl     time.Duration
	max     int
	logger  *observability.Logger
	metrics *observability.Metrics
	auditor audit.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

// NewManager creates a session manager. The base client must be
// unauthenticated; per-session clients are derived from it. metrics may be
// nil; auditor may be nil to disable audit writes.
func NewManager(base *platform.Client, ttl time.Duration, max int, logger *observability.Logger, metrics *observability.Metrics, auditor audit.Logger) *Manager {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Manager{
		base:     base,
		ttl:      ttl,
		max:      max,
		logger:   logger,
		metrics:  metrics,
		auditor:  auditor,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Login authenticates against the platform, initializes the user's
// permission evaluator and returns a new session. A failure anywhere leaves
// no session behind: a console user either gets a fully working permission
// set or an error.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	m.mu.RLock()
	full := m.max > 0 && len(m.sessions) >= m.max
	m.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	grant, err := m.base.Login(ctx, username, password)
	if err != nil {
		m.auditor.LogAuthentication(ctx, audit.EventTypeAuthLoginFailed, nil, username, audit.EventStatusFailure, err.Error())
		if m.metrics != nil {
			m.metrics.SessionLoginsTotal.WithLabelValues("failure").Inc()
		}
		return nil, errors.Wrap(err, "platform login")
	}

	client := m.base.WithToken(grant.AccessToken)
	eval := permission.NewEvaluator()

	start := m.now()
	if err := eval.Initialize(ctx, client, grant.UserID); err != nil {
		if m.metrics != nil {
			m.metrics.EvaluatorInitTotal.WithLabelValues("failure").Inc()
			m.metrics.SessionLoginsTotal.WithLabelValues("failure").Inc()
		}
		m.auditor.LogAuthentication(ctx, audit.EventTypeAuthLoginFailed, &grant.UserID, username, audit.EventStatusFailure, "permission initialization failed")
		return nil, errors.Wrap(err, "initializing permissions")
	}
	if m.metrics != nil {
		m.metrics.EvaluatorInitTotal.WithLabelValues("success").Inc()
		m.metrics.EvaluatorInitDuration.Observe(m.now().Sub(start).Seconds())
	}

	snap, _ := eval.Snapshot()
	now := m.now()
	sess := &Session{
		Token:          uuid.NewString(),
		UserID:         grant.UserID,
		Username:       username,
		OrganizationID: snap.OrganizationID(),
		client:         client,
		Evaluator:      eval,
		CreatedAt:      now,
		lastSeen:       now,
		refresh:        grant.RefreshToken,
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionLoginsTotal.WithLabelValues("success").Inc()
		m.metrics.SessionsActive.Set(float64(count))
	}
	m.auditor.LogAuthentication(ctx, audit.EventTypeAuthLogin, &grant.UserID, username, audit.EventStatusSuccess, "console login")
	m.logger.WithFields(map[string]interface{}{
		"user_id":  grant.UserID,
		"username": username,
	}).Info("session created")

	return sess, nil
}

// Get returns the live session for token, touching its idle timer. Expired
// sessions are removed on access.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	now := m.now()
	if now.Sub(sess.LastSeen()) > m.ttl {
		m.remove(token)
		return nil, false
	}

	sess.touch(now)
	return sess, true
}

// Logout removes a session.
func (m *Manager) Logout(ctx context.Context, token string) {
	m.mu.RLock()
	sess, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return
	}

	sess.Evaluator.Reset()
	m.remove(token)
	m.auditor.LogAuthentication(ctx, audit.EventTypeAuthLogout, &sess.UserID, sess.Username, audit.EventStatusSuccess, "console logout")
}

// Refresh renews the session's platform JWT and re-initializes its
// permission evaluator, picking up any rule or role changes made since
// login.
func (m *Manager) Refresh(ctx context.Context, token string) (*Session, error) {
	sess, ok := m.Get(token)
	if !ok {
		return nil, errors.New("no such session")
	}

	sess.mu.Lock()
	refresh := sess.refresh
	sess.mu.Unlock()

	grant, err := m.base.RefreshToken(ctx, refresh)
	if err != nil {
		return nil, errors.Wrap(err, "refreshing platform token")
	}

	client := m.base.WithToken(grant.AccessToken)
	if err := sess.Evaluator.Initialize(ctx, client, sess.UserID); err != nil {
		return nil, errors.Wrap(err, "re-initializing permissions")
	}

	sess.mu.Lock()
	sess.refresh = grant.RefreshToken
	sess.client = client
	sess.mu.Unlock()

	return sess, nil
}

// Sweep removes idle sessions. Returns the number removed. Wired to the
// cron scheduler in the daemon.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for token, sess := range m.sessions {
		if now.Sub(sess.LastSeen()) > m.ttl {
			expired = append(expired, token)
		}
	}
	for _, token := range expired {
		delete(m.sessions, token)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if len(expired) > 0 {
		m.logger.Infof("Swept %d expired sessions", len(expired))
		if m.metrics != nil {
			m.metrics.SessionsExpiredTotal.Add(float64(len(expired)))
		}
	}
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(count))
	}

	return len(expired)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) remove(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(count))
	}
}
