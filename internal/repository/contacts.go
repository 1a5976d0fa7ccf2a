package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/ContactKeeper/internal/models"
)

// PostgresContactRepository implements owner-scoped contact persistence against a PostgreSQL database.
// Deleted contacts are only marked with deleted_at; db.StartSoftDeleteCleaner purges them later.
type PostgresContactRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresContactRepository creates a new PostgresContactRepository using the provided *sql.DB.
func NewPostgresContactRepository(db *sql.DB) *PostgresContactRepository {
	return &PostgresContactRepository{DB: db}
}

// ListContacts returns up to limit live contacts of ownerID, ordered by id,
// skipping the first skip rows.
//
//	ctx:     context for cancellation and deadlines
//	ownerID: identifier of the owning user
//	skip:    number of rows to skip
//	limit:   maximum number of rows to return
func (r *PostgresContactRepository) ListContacts(ctx context.Context, ownerID int64, skip, limit int) ([]models.Contact, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, email, phone, user_id FROM contacts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY id
		OFFSET $2 LIMIT $3
	`, ownerID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("ListContacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]models.Contact, 0)
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListContacts: %w", err)
	}
	return contacts, nil
}

// CreateContact inserts a contact owned by ownerID.
func (r *PostgresContactRepository) CreateContact(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO contacts (user_id, name, email, phone) VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, phone, user_id
	`, ownerID, in.Name, in.Email, in.Phone)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// GetContact fetches a single live contact by id for the given owner.
// Contacts of other owners are reported as models.ErrNotFound.
func (r *PostgresContactRepository) GetContact(ctx context.Context, ownerID, id int64) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, name, email, phone, user_id FROM contacts
		WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
	`, ownerID, id)
	return scanContact(row)
}

// UpdateContact replaces the attributes of a live contact of ownerID.
func (r *PostgresContactRepository) UpdateContact(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE contacts SET name = $3, email = $4, phone = $5
		WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING id, name, email, phone, user_id
	`, ownerID, id, in.Name, in.Email, in.Phone)
	c, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// DeleteContact soft-deletes a live contact of ownerID.
func (r *PostgresContactRepository) DeleteContact(ctx context.Context, ownerID, id int64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE contacts SET deleted_at = now()
		WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
	`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return expectAffected(res)
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.OwnerID); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}
