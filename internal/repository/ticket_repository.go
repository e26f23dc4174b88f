package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// TicketRepo provides access to the maintenance_requests table.
type TicketRepo struct {
	db querier
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, student_id, room_id, title, description, status, assigned_to, request_date, completed_date`

func scanTicket(s rowScanner) (model.MaintenanceTicket, error) {
	var t model.MaintenanceTicket
	var assignee sql.NullInt64
	var completed sql.NullTime
	err := s.Scan(&t.ID, &t.StudentID, &t.RoomID, &t.Title, &t.Description, &t.Status,
		&assignee, &t.RequestDate, &completed)
	if err != nil {
		return model.MaintenanceTicket{}, err
	}
	if assignee.Valid {
		v := uint64(assignee.Int64)
		t.AssigneeID = &v
	}
	if completed.Valid {
		v := completed.Time
		t.CompletedDate = &v
	}
	return t, nil
}

// Create inserts a ticket and fills in its generated ID.
func (r *TicketRepo) Create(ctx context.Context, t *model.MaintenanceTicket) error {
	const q = `INSERT INTO maintenance_requests (student_id, room_id, title, description, status, request_date)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.StudentID, t.RoomID, t.Title, t.Description, t.Status, t.RequestDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TicketRepo) get(ctx context.Context, id uint64, lock bool) (model.MaintenanceTicket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM maintenance_requests WHERE id = ?`+lockClause(lock), id))
	if err != nil {
		return model.MaintenanceTicket{}, notFound(err)
	}
	return t, nil
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (model.MaintenanceTicket, error) {
	return r.get(ctx, id, false)
}

func (r *TicketRepo) GetForUpdate(ctx context.Context, id uint64) (model.MaintenanceTicket, error) {
	return r.get(ctx, id, true)
}

// Update writes the mutable ticket fields when the stored status still
// equals from.
func (r *TicketRepo) Update(ctx context.Context, t model.MaintenanceTicket, from model.TicketStatus) error {
	return expectRow(r.db.ExecContext(ctx,
		`UPDATE maintenance_requests SET status = ?, assigned_to = ?, completed_date = ? WHERE id = ? AND status = ?`,
		t.Status, t.AssigneeID, t.CompletedDate, t.ID, from))
}

// List returns tickets newest first.
func (r *TicketRepo) List(ctx context.Context, f ListFilter) ([]model.MaintenanceTicket, error) {
	var where []string
	var args []any
	if f.StudentID != 0 {
		where = append(where, "student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.AssigneeID != 0 {
		if f.IncludeUnassigned {
			where = append(where, "(assigned_to = ? OR (assigned_to IS NULL AND status = 'pending'))")
		} else {
			where = append(where, "assigned_to = ?")
		}
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + ticketColumns + ` FROM maintenance_requests`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := f.Page()
	q += " ORDER BY request_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MaintenanceTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of tickets per status.
func (r *TicketRepo) CountByStatus(ctx context.Context) (map[model.TicketStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM maintenance_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.TicketStatus]int)
	for rows.Next() {
		var s model.TicketStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}

// CountPendingBefore counts pending tickets requested before t.
func (r *TicketRepo) CountPendingBefore(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_requests WHERE status = 'pending' AND request_date < ?`, t).Scan(&n)
	return n, err
}
