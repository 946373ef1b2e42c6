package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager owns the current Snapshot. Local subscribers are called
// synchronously after every change, outside the Manager's lock.
type Manager struct {
	id    string
	store Store
	bus   Broadcaster
	log   zerolog.Logger

	mu      sync.Mutex
	current Snapshot
	subs    map[int]func(Snapshot)
	next    int
}

// NewManager returns a Manager. bus may be nil when nothing else shares
// the store.
func NewManager(store Store, bus Broadcaster, log zerolog.Logger) *Manager {
	return &Manager{
		id:    uuid.NewString(),
		store: store,
		bus:   bus,
		log:   log,
		subs:  make(map[int]func(Snapshot)),
	}
}

// ID identifies this Manager on the broadcaster.
func (m *Manager) ID() string { return m.id }

// Load reads the persisted snapshot into memory.
func (m *Manager) Load(ctx context.Context) (Snapshot, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	return s, nil
}

// Snapshot returns the in-memory snapshot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Save persists s, notifies local subscribers and broadcasts.
func (m *Manager) Save(ctx context.Context, s Snapshot) error {
	if err := m.store.Save(ctx, s); err != nil {
		return err
	}
	m.apply(s)
	m.publish(ctx)
	return nil
}

// Clear removes the persisted snapshot, notifies and broadcasts.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return err
	}
	m.apply(Snapshot{})
	m.publish(ctx)
	return nil
}

// Subscribe registers fn for every change and returns a function that
// removes it.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.next
	m.next++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Watch re-reads the store whenever another Manager broadcasts a change.
// It blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context) error {
	if m.bus == nil {
		<-ctx.Done()
		return nil
	}
	return m.bus.Listen(ctx, func(origin string) {
		if origin == m.id {
			return
		}
		s, err := m.store.Load(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("reload session after broadcast")
			return
		}
		m.apply(s)
	})
}

func (m *Manager) apply(s Snapshot) {
	m.mu.Lock()
	m.current = s
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func (m *Manager) publish(ctx context.Context) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(ctx, m.id); err != nil {
		m.log.Warn().Err(err).Msg("broadcast session change")
	}
}
