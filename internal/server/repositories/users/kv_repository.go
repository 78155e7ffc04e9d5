package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
)

// KVRepository implements Repository over a store.Backend.
type KVRepository struct {
	db store.Backend
}

func NewKVRepository(db store.Backend) *KVRepository {
	return &KVRepository{db: db}
}

func (r *KVRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.Exec(ctx,
		[]store.Condition{store.FieldFreeOr(keyIDByEmail, user.Email, "")},
		store.HSet(recordKey(user.Role, user.ID), toFields(user)),
		store.HSet(keyIDByEmail, map[string]string{user.Email: user.ID}),
		store.HSet(keyRoleByID, map[string]string{user.ID: string(user.Role)}),
		store.HSet(keyIDByToken, map[string]string{user.URLToken: user.ID}),
	)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return err
		}
		return fmt.Errorf("error writing user: %w", err)
	}
	return nil
}

// Update only writes while prev is still indexed under its role.
func (r *KVRepository) Update(ctx context.Context, prev, next *models.User) error {
	cmds := []store.Command{store.HSet(recordKey(next.Role, next.ID), toFields(next))}
	conds := []store.Condition{store.FieldEquals(keyRoleByID, prev.ID, string(prev.Role))}

	if next.Role != prev.Role {
		cmds = append(cmds,
			store.Del(recordKey(prev.Role, prev.ID)),
			store.HSet(keyRoleByID, map[string]string{next.ID: string(next.Role)}),
		)
	}

	if next.Email != prev.Email {
		conds = append(conds, store.FieldFreeOr(keyIDByEmail, next.Email, next.ID))
		cmds = append(cmds,
			store.HSet(keyIDByEmail, map[string]string{next.Email: next.ID}),
			store.HDel(keyIDByEmail, prev.Email),
		)
	}

	if err := r.db.Exec(ctx, conds, cmds...); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return r.updateConflict(ctx, prev)
		}
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// updateConflict tells a vanished user apart from other conflicts.
func (r *KVRepository) updateConflict(ctx context.Context, prev *models.User) error {
	_, err := r.db.HGet(ctx, keyRoleByID, prev.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	case err != nil:
		return fmt.Errorf("error updating user: %w", err)
	}
	return common.ErrConflict
}

func (r *KVRepository) Archive(ctx context.Context, user *models.User, at time.Time) error {
	archived := toFields(user)
	archived[fieldArchivedOn] = strconv.FormatInt(at.UnixMilli(), 10)

	err := r.db.Exec(ctx, nil,
		store.Del(archivedKey(user.Email)),
		store.HSet(archivedKey(user.Email), archived),
		store.ZAdd(keyArchivedSet, float64(at.UnixMilli()), user.Email),
		store.Del(recordKey(user.Role, user.ID)),
		store.HDel(keyIDByEmail, user.Email),
		store.HDel(keyRoleByID, user.ID),
		store.HDel(keyIDByToken, user.URLToken),
	)
	if err != nil {
		return fmt.Errorf("error archiving user: %w", err)
	}
	return nil
}

// FindByID resolves the role index first, then loads the role-scoped record.
func (r *KVRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	role, err := r.db.HGet(ctx, keyRoleByID, id)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, recordKey(models.Role(role), id))
}

func (r *KVRepository) IDByEmail(ctx context.Context, email string) (string, error) {
	return r.db.HGet(ctx, keyIDByEmail, email)
}

func (r *KVRepository) IDByToken(ctx context.Context, token string) (string, error) {
	return r.db.HGet(ctx, keyIDByToken, token)
}

func (r *KVRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	keys, err := r.db.Keys(ctx, roleScanPattern(role))
	if err != nil {
		return nil, fmt.Errorf("error scanning users: %w", err)
	}

	list := make([]*models.User, 0, len(keys))
	for _, k := range keys {
		u, err := r.load(ctx, k)
		if err != nil {
			// removed between scan and read
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			return nil, err
		}
		list = append(list, u)
	}
	return list, nil
}

func (r *KVRepository) FindArchived(ctx context.Context, email string) (*models.User, error) {
	return r.load(ctx, archivedKey(email))
}

func (r *KVRepository) ArchivedAt(ctx context.Context, email string) (time.Time, error) {
	score, err := r.db.ZScore(ctx, keyArchivedSet, email)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(score)), nil
}

func (r *KVRepository) load(ctx context.Context, key string) (*models.User, error) {
	fields, err := r.db.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	u, err := fromFields(fields)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", key, err)
	}
	return u, nil
}
