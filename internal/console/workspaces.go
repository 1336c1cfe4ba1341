package console

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/session"
)

// BackendFactory builds a backend client whose calls authenticate with the
// token held in store.
type BackendFactory func(store *session.Store) Backend

// Workspaces keeps one Workspace per browser session id. The token of each
// workspace lives in the shared KV under the session id's namespace, so a
// persistent KV lets a session survive a console restart.
type Workspaces struct {
	kv      session.KV
	factory BackendFactory
	demo    bool
	ttl     time.Duration
	log     logrus.FieldLogger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	ws       *Workspace
	lastSeen time.Time
}

// NewWorkspaces builds a manager. A zero ttl keeps idle workspaces forever.
func NewWorkspaces(kv session.KV, factory BackendFactory, demo bool, ttl time.Duration, log logrus.FieldLogger) *Workspaces {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Workspaces{
		kv:      kv,
		factory: factory,
		demo:    demo,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// NewID returns a fresh session id.
func (m *Workspaces) NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID would produce.
func (m *Workspaces) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the workspace for id, creating it on first use.
func (m *Workspaces) Get(id string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok {
		e.lastSeen = m.now()
		return e.ws
	}

	log := m.log.WithField("workspace", id)
	store := session.NewStore(
		session.Namespace(m.kv, m.namespace(id)),
		session.WithDemoMode(m.demo),
		session.WithLogger(log),
	)
	ws := NewWorkspace(store, m.factory(store), log)
	m.entries[id] = &entry{ws: ws, lastSeen: m.now()}
	workspacesActive.Set(float64(len(m.entries)))
	return ws
}

// Lookup returns the workspace for id if one is held or a token is stored
// for it. Unknown ids allocate nothing.
func (m *Workspaces) Lookup(ctx context.Context, id string) (*Workspace, bool) {
	m.mu.Lock()
	if e, ok := m.entries[id]; ok {
		e.lastSeen = m.now()
		m.mu.Unlock()
		return e.ws, true
	}
	m.mu.Unlock()

	_, ok, err := m.kv.Get(ctx, m.namespace(id)+":"+session.TokenKey)
	if err != nil {
		m.log.WithError(err).WithField("workspace", id).Warn("session lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return m.Get(id), true
}

// Drop forgets the workspace for id and clears its stored token.
func (m *Workspaces) Drop(ctx context.Context, id string) {
	m.mu.Lock()
	delete(m.entries, id)
	workspacesActive.Set(float64(len(m.entries)))
	m.mu.Unlock()

	if err := m.kv.Delete(ctx, m.namespace(id)+":"+session.TokenKey); err != nil {
		m.log.WithError(err).WithField("workspace", id).Warn("drop session token failed")
	}
}

func (m *Workspaces) namespace(id string) string {
	return "console:" + id
}

// Len returns the number of workspaces held.
func (m *Workspaces) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep drops workspaces idle for longer than the ttl and returns how many
// were dropped. Stored tokens are left in the KV.
func (m *Workspaces) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	dropped := 0
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			dropped++
		}
	}
	workspacesActive.Set(float64(len(m.entries)))
	return dropped
}

// Run sweeps idle workspaces every interval until ctx is done.
func (m *Workspaces) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.WithField("dropped", n).Debug("swept idle workspaces")
			}
		}
	}
}
