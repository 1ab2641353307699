package wizard

import (
	"context"
	"sync"
	"time"

	"govdoc/internal/billing"
	"govdoc/internal/verification"
	govdocerrors "govdoc/pkg/errors"
	"govdoc/pkg/logger"

	"github.com/google/uuid"
)

// DescriptorSource resolves a service id into its verification descriptor
// when a draft is rebuilt from persistence.
type DescriptorSource interface {
	Resolve(ctx context.Context, serviceID string) (*verification.ServiceDescriptor, error)
}

// Manager tracks the live stores for in-progress drafts, one per draft id.
// A store evicted from memory (restart, other instance) is rebuilt from the
// persisted draft on first access.
type Manager struct {
	mu     sync.RWMutex
	stores map[uuid.UUID]*Store

	repo       DraftRepository
	descs      DescriptorSource
	capturer   Capturer
	reconciler Reconciler
	billing    *billing.Resolver
	logger     logger.Logger
	debounce   time.Duration
}

func NewManager(repo DraftRepository, descs DescriptorSource, capturer Capturer, reconciler Reconciler, billingResolver *billing.Resolver, log logger.Logger, debounce time.Duration) *Manager {
	return &Manager{
		stores:     make(map[uuid.UUID]*Store),
		repo:       repo,
		descs:      descs,
		capturer:   capturer,
		reconciler: reconciler,
		billing:    billingResolver,
		logger:     log,
		debounce:   debounce,
	}
}

func (m *Manager) newStore() *Store {
	return NewStore(m.repo, m.capturer, m.reconciler, m.billing, m.logger, m.debounce)
}

// Create initializes a fresh draft for a user and service and registers its
// store.
func (m *Manager) Create(userID uuid.UUID, desc *verification.ServiceDescriptor) *Store {
	store := m.newStore()
	store.InitService(userID, desc)
	id := store.Session().ID

	m.mu.Lock()
	m.stores[id] = store
	m.mu.Unlock()

	return store
}

// Get returns the live store for a draft, rebuilding it from persistence when
// this instance has not seen the draft yet.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*Store, error) {
	m.mu.RLock()
	store, ok := m.stores[id]
	m.mu.RUnlock()
	if ok {
		return store, nil
	}

	sess, err := m.repo.FindDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	desc, err := m.descs.Resolve(ctx, sess.ServiceID)
	if err != nil {
		return nil, err
	}

	store = m.newStore()
	store.Load(sess, desc)

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.stores[id]; ok {
		return existing, nil
	}
	m.stores[id] = store
	return store, nil
}

// Release flushes and drops a store, e.g. after submission.
func (m *Manager) Release(id uuid.UUID) {
	m.mu.Lock()
	store, ok := m.stores[id]
	delete(m.stores, id)
	m.mu.Unlock()

	if ok {
		store.SaveNow()
	}
}

// Owns reports whether a draft belongs to a user; used by handlers before
// exposing a resumed store.
func (m *Manager) Owns(store *Store, userID uuid.UUID) error {
	if store.Session().UserID != userID {
		return govdocerrors.ErrSessionNotFound
	}
	return nil
}
