package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// PaymentRepo provides access to the payments table.
type PaymentRepo struct {
	db querier
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentSelect = `SELECT p.id, p.contract_id, p.amount, p.payment_date, p.method, p.status,
       p.proof_ref, p.confirmed_by, g.student_id
FROM payments p
JOIN contracts c ON c.id = p.contract_id
JOIN registrations g ON g.id = c.registration_id`

func scanPayment(s rowScanner) (model.Payment, error) {
	var p model.Payment
	var proof sql.NullString
	var confirmer sql.NullInt64
	err := s.Scan(&p.ID, &p.ContractID, &p.Amount, &p.PaymentDate, &p.Method, &p.Status,
		&proof, &confirmer, &p.StudentID)
	if err != nil {
		return model.Payment{}, err
	}
	if proof.Valid {
		v := proof.String
		p.ProofRef = &v
	}
	if confirmer.Valid {
		v := uint64(confirmer.Int64)
		p.ConfirmedBy = &v
	}
	return p, nil
}

func (r *PaymentRepo) query(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a payment and fills in its generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (contract_id, amount, payment_date, method, status, proof_ref) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.ContractID, p.Amount, p.PaymentDate, p.Method, p.Status, p.ProofRef)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PaymentRepo) get(ctx context.Context, id uint64, lock bool) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, paymentSelect+` WHERE p.id = ?`+lockClause(lock), id))
	if err != nil {
		return model.Payment{}, notFound(err)
	}
	return p, nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	return r.get(ctx, id, false)
}

func (r *PaymentRepo) GetForUpdate(ctx context.Context, id uint64) (model.Payment, error) {
	return r.get(ctx, id, true)
}

// UpdateStatus performs a guarded status transition.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.PaymentStatus, confirmer *uint64) error {
	return expectRow(r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, confirmed_by = ? WHERE id = ? AND status = ?`,
		to, confirmer, id, from))
}

// Update applies the non-nil fields of ch to a pending payment.
func (r *PaymentRepo) Update(ctx context.Context, id uint64, ch model.PaymentChanges) error {
	var set []string
	var args []any
	if ch.Amount != nil {
		set = append(set, "amount = ?")
		args = append(args, *ch.Amount)
	}
	if ch.Method != nil {
		set = append(set, "method = ?")
		args = append(args, *ch.Method)
	}
	if ch.ProofRef != nil {
		set = append(set, "proof_ref = ?")
		args = append(args, *ch.ProofRef)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	q := `UPDATE payments SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND status = 'pending'`
	return expectRow(r.db.ExecContext(ctx, q, args...))
}

// ListByContract returns every payment of a contract, oldest first.
func (r *PaymentRepo) ListByContract(ctx context.Context, contractID uint64) ([]model.Payment, error) {
	return r.query(ctx, paymentSelect+` WHERE p.contract_id = ? ORDER BY p.payment_date ASC, p.id ASC`, contractID)
}

// List returns payments newest first.
func (r *PaymentRepo) List(ctx context.Context, f ListFilter) ([]model.Payment, error) {
	var where []string
	var args []any
	if f.StudentID != 0 {
		where = append(where, "g.student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	q := paymentSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := f.Page()
	q += " ORDER BY p.payment_date DESC, p.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	return r.query(ctx, q, args...)
}

// SumConfirmedBetween sums confirmed payments dated in [from, to).
func (r *PaymentRepo) SumConfirmedBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payments WHERE status = 'confirmed' AND payment_date >= ? AND payment_date < ?`,
		from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// Totals returns counts and sums over all payments.
func (r *PaymentRepo) Totals(ctx context.Context) (PaymentTotals, error) {
	const q = `SELECT COUNT(*),
       COALESCE(SUM(status = 'pending'), 0),
       COALESCE(SUM(status = 'confirmed'), 0),
       COALESCE(SUM(status = 'failed'), 0),
       SUM(CASE WHEN status = 'confirmed' THEN amount END),
       SUM(CASE WHEN status = 'pending' THEN amount END)
FROM payments`
	var t PaymentTotals
	var confirmed, pending decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx, q).Scan(&t.Count, &t.Pending, &t.Confirmed, &t.Failed, &confirmed, &pending); err != nil {
		return PaymentTotals{}, err
	}
	t.ConfirmedTotal, t.PendingTotal = decimal.Zero, decimal.Zero
	if confirmed.Valid {
		t.ConfirmedTotal = confirmed.Decimal
	}
	if pending.Valid {
		t.PendingTotal = pending.Decimal
	}
	return t, nil
}

// CountPendingBefore counts pending payments dated before t.
func (r *PaymentRepo) CountPendingBefore(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE status = 'pending' AND payment_date < ?`, t).Scan(&n)
	return n, err
}
