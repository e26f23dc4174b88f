package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// UserRepo reads the user directory. Accounts are managed by the
// identity service; this repo never writes.
type UserRepo struct{ db querier }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) get(ctx context.Context, id uint64, lock bool) (model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, full_name, role, COALESCE(gender, '') FROM users WHERE id = ? LIMIT 1"+lockClause(lock),
		id).Scan(&u.ID, &u.FullName, &u.Role, &u.Gender)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate fetches a user by id and locks the row. Registration
// creation takes this lock to serialise requests from one student.
func (r *UserRepo) GetForUpdate(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, id, true)
}
