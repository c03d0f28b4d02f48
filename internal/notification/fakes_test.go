package notification

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errDatabase = errors.New("database error")

// memNotificationStore is an in-memory NotificationStore for tests.
type memNotificationStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*Notification

	insertCalls int
	shouldFail  bool
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{notifications: make(map[uuid.UUID]*Notification)}
}

func (m *memNotificationStore) add(n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.notifications[n.ID] = &cp
}

func (m *memNotificationStore) Insert(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.shouldFail {
		return errDatabase
	}
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *memNotificationStore) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, errDatabase
	}
	n, ok := m.notifications[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memNotificationStore) List(ctx context.Context, q ListQuery) ([]*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, errDatabase
	}
	var out []*Notification
	for _, n := range m.notifications {
		if n.UserID != q.UserID || (!q.IncludeRead && n.IsRead()) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memNotificationStore) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errDatabase
	}
	if n, ok := m.notifications[id]; ok && !n.IsRead() {
		n.Status = StatusRead
		n.ReadAt = &readAt
	}
	return nil
}

func (m *memNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return 0, errDatabase
	}
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead() {
			at := readAt
			n.Status = StatusRead
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (m *memNotificationStore) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return false, errDatabase
	}
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(m.notifications, id)
	return true, nil
}

func (m *memNotificationStore) DeleteReadBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return 0, errDatabase
	}
	var count int64
	for id, n := range m.notifications {
		if n.UserID == userID && n.IsRead() && n.ReadAt != nil && n.ReadAt.Before(cutoff) {
			delete(m.notifications, id)
			count++
		}
	}
	return count, nil
}

func (m *memNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return 0, errDatabase
	}
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

// memPreferencesStore is an in-memory PreferencesStore for tests.
type memPreferencesStore struct {
	mu    sync.Mutex
	prefs map[uuid.UUID]*Preferences

	insertCalls int
	updateCalls int
	shouldFail  bool
	// conflictOnce simulates a concurrent provisioning winner.
	conflictOnce *Preferences
}

func newMemPreferencesStore() *memPreferencesStore {
	return &memPreferencesStore{prefs: make(map[uuid.UUID]*Preferences)}
}

func (m *memPreferencesStore) put(p *Preferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.prefs[p.UserID] = &cp
}

func (m *memPreferencesStore) FindByUserID(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, errDatabase
	}
	p, ok := m.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPreferencesStore) Insert(ctx context.Context, p *Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.shouldFail {
		return errDatabase
	}
	if m.conflictOnce != nil {
		winner := *m.conflictOnce
		m.prefs[winner.UserID] = &winner
		m.conflictOnce = nil
		return ErrConflict
	}
	if _, exists := m.prefs[p.UserID]; exists {
		return ErrConflict
	}
	cp := *p
	m.prefs[p.UserID] = &cp
	return nil
}

func (m *memPreferencesStore) Update(ctx context.Context, p *Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.shouldFail {
		return errDatabase
	}
	cp := *p
	m.prefs[p.UserID] = &cp
	return nil
}

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	published []*Notification
	err       error
}

func (p *recordingPublisher) Publish(ctx context.Context, n *Notification) error {
	p.published = append(p.published, n)
	return p.err
}
