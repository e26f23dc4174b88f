package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// ContractRepo provides access to the contracts table. Reads join the
// owning registration to expose the student and room.
type ContractRepo struct {
	db querier
}

func NewContractRepo(db *sql.DB) *ContractRepo { return &ContractRepo{db: db} }

const contractSelect = `SELECT c.id, c.registration_id, COALESCE(c.contract_code, ''), c.start_date, c.end_date,
       c.created_at, c.terminated_at, g.student_id, g.room_id
FROM contracts c
JOIN registrations g ON g.id = c.registration_id`

func scanContract(s rowScanner) (model.Contract, error) {
	var c model.Contract
	var terminated sql.NullTime
	err := s.Scan(&c.ID, &c.RegistrationID, &c.Code, &c.StartDate, &c.EndDate,
		&c.CreatedAt, &terminated, &c.StudentID, &c.RoomID)
	if err != nil {
		return model.Contract{}, err
	}
	if terminated.Valid {
		t := terminated.Time
		c.TerminatedAt = &t
	}
	return c, nil
}

func (r *ContractRepo) query(ctx context.Context, q string, args ...any) ([]model.Contract, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Create inserts a contract and assigns its code from the generated id.
// The code column is left NULL until the id is known.
func (r *ContractRepo) Create(ctx context.Context, c *model.Contract) error {
	const q = `INSERT INTO contracts (registration_id, start_date, end_date, created_at) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.RegistrationID, c.StartDate, c.EndDate, c.CreatedAt)
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
	c.ID = uint64(id)
	c.Code = model.ContractCode(c.ID)
	if _, err := r.db.ExecContext(ctx, `UPDATE contracts SET contract_code = ? WHERE id = ?`, c.Code, c.ID); err != nil {
		return err
	}
	return nil
}

func (r *ContractRepo) get(ctx context.Context, id uint64, lock bool) (model.Contract, error) {
	c, err := scanContract(r.db.QueryRowContext(ctx, contractSelect+` WHERE c.id = ?`+lockClause(lock), id))
	if err != nil {
		return model.Contract{}, notFound(err)
	}
	return c, nil
}

func (r *ContractRepo) GetByID(ctx context.Context, id uint64) (model.Contract, error) {
	return r.get(ctx, id, false)
}

func (r *ContractRepo) GetForUpdate(ctx context.Context, id uint64) (model.Contract, error) {
	return r.get(ctx, id, true)
}

// UpdateEndDate moves the end date of a live contract from oldEnd to newEnd.
func (r *ContractRepo) UpdateEndDate(ctx context.Context, id uint64, oldEnd, newEnd time.Time) error {
	return expectRow(r.db.ExecContext(ctx,
		`UPDATE contracts SET end_date = ? WHERE id = ? AND end_date = ? AND terminated_at IS NULL`,
		newEnd, id, oldEnd))
}

// MarkTerminated ends a contract early. A contract can only be
// terminated once.
func (r *ContractRepo) MarkTerminated(ctx context.Context, id uint64, end, at time.Time) error {
	return expectRow(r.db.ExecContext(ctx,
		`UPDATE contracts SET end_date = ?, terminated_at = ? WHERE id = ? AND terminated_at IS NULL`,
		end, at, id))
}

// List returns contracts newest first, optionally for one student.
func (r *ContractRepo) List(ctx context.Context, f ListFilter) ([]model.Contract, error) {
	q := contractSelect
	var args []any
	if f.StudentID != 0 {
		q += ` WHERE g.student_id = ?`
		args = append(args, f.StudentID)
	}
	limit, offset := f.Page()
	q += ` ORDER BY c.created_at DESC, c.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.query(ctx, q, args...)
}

// ListEndingBetween returns live contracts whose end date falls in
// [from, to], soonest first.
func (r *ContractRepo) ListEndingBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	return r.query(ctx, contractSelect+`
WHERE c.end_date BETWEEN ? AND ? AND c.terminated_at IS NULL
ORDER BY c.end_date ASC, c.id ASC`, from, to)
}

// Counts returns the contract rollup as of today.
func (r *ContractRepo) Counts(ctx context.Context, today time.Time) (ContractCounts, error) {
	const q = `SELECT COUNT(*),
       COALESCE(SUM(terminated_at IS NULL AND start_date <= ? AND end_date >= ?), 0),
       COALESCE(SUM(end_date < ?), 0),
       COALESCE(SUM(terminated_at IS NOT NULL), 0)
FROM contracts`
	var c ContractCounts
	err := r.db.QueryRowContext(ctx, q, today, today, today).Scan(&c.Total, &c.Active, &c.Expired, &c.Terminated)
	return c, err
}
