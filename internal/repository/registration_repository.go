package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// RegistrationRepo provides access to the registrations table.
type RegistrationRepo struct {
	db querier
}

func NewRegistrationRepo(db *sql.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, student_id, room_id, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(s rowScanner) (model.Registration, error) {
	var r model.Registration
	err := s.Scan(&r.ID, &r.StudentID, &r.RoomID, &r.Status, &r.CreatedAt)
	return r, err
}

// Create inserts a registration and fills in its generated ID.
func (r *RegistrationRepo) Create(ctx context.Context, reg *model.Registration) error {
	const q = `INSERT INTO registrations (student_id, room_id, status, created_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, reg.StudentID, reg.RoomID, reg.Status, reg.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	reg.ID = uint64(id)
	return nil
}

func (r *RegistrationRepo) get(ctx context.Context, id uint64, lock bool) (model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`+lockClause(lock), id)
	reg, err := scanRegistration(row)
	if err != nil {
		return model.Registration{}, notFound(err)
	}
	return reg, nil
}

func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (model.Registration, error) {
	return r.get(ctx, id, false)
}

func (r *RegistrationRepo) GetForUpdate(ctx context.Context, id uint64) (model.Registration, error) {
	return r.get(ctx, id, true)
}

// FindActiveByStudent returns the student's pending or approved
// registration.
func (r *RegistrationRepo) FindActiveByStudent(ctx context.Context, studentID uint64) (model.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations
WHERE student_id = ? AND status IN ('pending', 'approved')
ORDER BY id DESC LIMIT 1`, studentID)
	reg, err := scanRegistration(row)
	if err != nil {
		return model.Registration{}, notFound(err)
	}
	return reg, nil
}

// UpdateStatus moves a registration from one status to another. It
// returns ErrConflict when the stored status is no longer from.
func (r *RegistrationRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.RegistrationStatus) error {
	return expectRow(r.db.ExecContext(ctx,
		`UPDATE registrations SET status = ? WHERE id = ? AND status = ?`, to, id, from))
}

// Delete removes a registration that still has the given status.
func (r *RegistrationRepo) Delete(ctx context.Context, id uint64, status model.RegistrationStatus) error {
	return expectRow(r.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE id = ? AND status = ?`, id, status))
}

// List returns registrations newest first.
func (r *RegistrationRepo) List(ctx context.Context, f ListFilter) ([]model.Registration, error) {
	var where []string
	var args []any
	if f.StudentID != 0 {
		where = append(where, "student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + registrationColumns + ` FROM registrations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := f.Page()
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of registrations per status.
func (r *RegistrationRepo) CountByStatus(ctx context.Context) (map[model.RegistrationStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM registrations GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.RegistrationStatus]int)
	for rows.Next() {
		var s model.RegistrationStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}
