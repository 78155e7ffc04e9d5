// Package users stores user records and their lookup indexes in the
// key-value store.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository persists users together with the id, email and url-token indexes.
type Repository interface {
	// Create writes the record and its three index entries in one batch.
	// It returns common.ErrConflict when the email is already indexed.
	Create(ctx context.Context, user *models.User) error

	// Update rewrites the record of prev as next, moving it to a new role key
	// and re-indexing the email when those change. It returns
	// common.ErrConflict when next.Email belongs to another user and
	// common.ErrorNotFound when prev was archived meanwhile.
	Update(ctx context.Context, prev, next *models.User) error

	// Archive copies the record under the archive keys and removes the live
	// record and its index entries.
	Archive(ctx context.Context, user *models.User, at time.Time) error

	FindByID(ctx context.Context, id string) (*models.User, error)
	IDByEmail(ctx context.Context, email string) (string, error)
	IDByToken(ctx context.Context, token string) (string, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)

	FindArchived(ctx context.Context, email string) (*models.User, error)
	ArchivedAt(ctx context.Context, email string) (time.Time, error)
}
