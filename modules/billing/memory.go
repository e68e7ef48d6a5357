package billing

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemorySubscriptionStore is an in-memory SubscriptionStore for tests and
// local development.
type MemorySubscriptionStore struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewMemorySubscriptionStore creates an empty in-memory subscription store.
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[uuid.UUID]*Subscription)}
}

func (s *MemorySubscriptionStore) Get(_ context.Context, id uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemorySubscriptionStore) GetByProviderSubID(_ context.Context, provider, providerSubID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.Provider == provider && sub.ProviderSubID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemorySubscriptionStore) GetByCustomer(_ context.Context, customerID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *Subscription
	for _, sub := range s.subs {
		if sub.CustomerID != customerID {
			continue
		}
		if newest == nil || sub.CreatedAt.After(newest.CreatedAt) {
			newest = sub
		}
	}
	if newest == nil {
		return nil, ErrSubscriptionNotFound
	}
	cp := *newest
	return &cp, nil
}

func (s *MemorySubscriptionStore) Save(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

// MemoryCustomerStore is an in-memory CustomerStore for tests and local
// development.
type MemoryCustomerStore struct {
	mu    sync.RWMutex
	byKey map[string]*Customer // keyed by lowercased email
}

// NewMemoryCustomerStore creates an empty in-memory customer store.
func NewMemoryCustomerStore() *MemoryCustomerStore {
	return &MemoryCustomerStore{byKey: make(map[string]*Customer)}
}

func (s *MemoryCustomerStore) GetByEmail(_ context.Context, email string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cust, ok := s.byKey[strings.ToLower(email)]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	cp := *cust
	return &cp, nil
}

func (s *MemoryCustomerStore) UpsertByEmail(_ context.Context, cust *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(cust.Email)
	if existing, ok := s.byKey[key]; ok {
		if cust.Phone != "" {
			existing.Phone = cust.Phone
		}
		if cust.FullName != "" {
			existing.FullName = cust.FullName
		}
		if cust.TaxID != "" {
			existing.TaxID = cust.TaxID
		}
		existing.UpdatedAt = cust.UpdatedAt
		cust.ID = existing.ID
		cust.Phone = existing.Phone
		cust.FullName = existing.FullName
		cust.TaxID = existing.TaxID
		cust.PasswordHash = existing.PasswordHash
		cust.CreatedAt = existing.CreatedAt
		return nil
	}
	cp := *cust
	s.byKey[key] = &cp
	return nil
}

// MemoryEventStore is an in-memory EventStore for tests.
type MemoryEventStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryEventStore creates an empty in-memory event store.
func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{seen: make(map[string]struct{})}
}

func (s *MemoryEventStore) Processed(_ context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.seen[provider+":"+eventID]
	return ok, nil
}

func (s *MemoryEventStore) MarkProcessed(_ context.Context, provider, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen[provider+":"+eventID] = struct{}{}
	return nil
}
