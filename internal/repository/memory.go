package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/atinyakov/ContactKeeper/internal/models"
)

// MemoryStore keeps users and contacts in process memory. It implements both
// the user and the contact repository contracts with the same semantics as
// the Postgres implementations, and is used when no database is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]models.User
	byEmail     map[string]int64
	contacts    map[int64]models.Contact
	nextUser    int64
	nextContact int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]models.User),
		byEmail:  make(map[string]int64),
		contacts: make(map[int64]models.Contact),
	}
}

// FindUserByEmail returns the user registered under email.
func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, models.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

// FindUserByID returns the user with the given id.
func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

// CreateUser inserts an active user.
func (s *MemoryStore) CreateUser(_ context.Context, email, hashedPassword string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, models.ErrEmailTaken
	}
	s.nextUser++
	u := models.User{ID: s.nextUser, Email: email, HashedPassword: hashedPassword, IsActive: true}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return &u, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *MemoryStore) UpdateUser(_ context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := s.byEmail[*upd.Email]; taken {
			return nil, models.ErrEmailTaken
		}
		delete(s.byEmail, u.Email)
		u.Email = *upd.Email
		s.byEmail[u.Email] = u.ID
	}
	if upd.HashedPassword != nil {
		u.HashedPassword = *upd.HashedPassword
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	s.users[id] = u
	return &u, nil
}

// DeleteUser removes the user and all of their contacts.
func (s *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	delete(s.users, id)
	delete(s.byEmail, u.Email)
	for cid, c := range s.contacts {
		if c.OwnerID == id {
			delete(s.contacts, cid)
		}
	}
	return nil
}

// ListContacts returns a page of ownerID's contacts ordered by id.
func (s *MemoryStore) ListContacts(_ context.Context, ownerID int64, skip, limit int) ([]models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]models.Contact, 0)
	for _, c := range s.contacts {
		if c.OwnerID == ownerID {
			owned = append(owned, c)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })

	if skip >= len(owned) {
		return []models.Contact{}, nil
	}
	owned = owned[skip:]
	if limit < len(owned) {
		owned = owned[:limit]
	}
	return owned, nil
}

// CreateContact inserts a contact owned by ownerID.
func (s *MemoryStore) CreateContact(_ context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ownerID]; !ok {
		return nil, models.ErrNotFound
	}
	s.nextContact++
	c := models.Contact{ID: s.nextContact, Name: in.Name, Email: in.Email, Phone: in.Phone, OwnerID: ownerID}
	s.contacts[c.ID] = c
	return &c, nil
}

// GetContact fetches one of ownerID's contacts.
func (s *MemoryStore) GetContact(_ context.Context, ownerID, id int64) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

// UpdateContact replaces the attributes of one of ownerID's contacts.
func (s *MemoryStore) UpdateContact(_ context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	c.Name, c.Email, c.Phone = in.Name, in.Email, in.Phone
	s.contacts[id] = c
	return &c, nil
}

// DeleteContact removes one of ownerID's contacts.
func (s *MemoryStore) DeleteContact(_ context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return models.ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}
