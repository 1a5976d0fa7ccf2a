package service

import (
	"context"

	"github.com/atinyakov/ContactKeeper/internal/models"
)

const (
	// DefaultContactLimit is the page size used when the caller sets none.
	DefaultContactLimit = 100
	// MaxContactLimit caps the page size of a single listing.
	MaxContactLimit = 100
)

// ContactRepository defines the persistence operations needed by the ContactService.
// Every operation is scoped to the owning user; contacts of other owners behave
// as if they did not exist (models.ErrNotFound).
type ContactRepository interface {
	ListContacts(ctx context.Context, ownerID int64, skip, limit int) ([]models.Contact, error)
	CreateContact(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error)
	GetContact(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	UpdateContact(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error)
	DeleteContact(ctx context.Context, ownerID, id int64) error
}

// ContactService implements the contact book of a single authenticated user.
type ContactService struct {
	// repo is the underlying persistence repository.
	repo ContactRepository
}

// NewContactService constructs a ContactService with the provided ContactRepository.
func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// List returns a page of the owner's contacts. A negative skip is treated
// as zero; a non-positive limit means DefaultContactLimit and larger limits
// are capped at MaxContactLimit.
func (s *ContactService) List(ctx context.Context, ownerID int64, skip, limit int) ([]models.Contact, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultContactLimit
	}
	if limit > MaxContactLimit {
		limit = MaxContactLimit
	}
	return s.repo.ListContacts(ctx, ownerID, skip, limit)
}

// Create adds a contact to the owner's book.
func (s *ContactService) Create(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error) {
	return s.repo.CreateContact(ctx, ownerID, in)
}

// Get fetches one of the owner's contacts.
func (s *ContactService) Get(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	return s.repo.GetContact(ctx, ownerID, id)
}

// Update replaces the attributes of one of the owner's contacts.
func (s *ContactService) Update(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error) {
	return s.repo.UpdateContact(ctx, ownerID, id, in)
}

// Delete removes one of the owner's contacts.
func (s *ContactService) Delete(ctx context.Context, ownerID, id int64) error {
	return s.repo.DeleteContact(ctx, ownerID, id)
}
