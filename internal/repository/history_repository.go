package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// HistoryRepo appends and reads contract audit rows.
type HistoryRepo struct {
	db querier
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo { return &HistoryRepo{db: db} }

// Append inserts a history row. Callers run it in the same transaction
// as the change it records.
func (r *HistoryRepo) Append(ctx context.Context, h *model.ContractHistory) error {
	const q = `INSERT INTO contract_history (contract_id, actor_id, action, old_value, new_value, notes, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, h.ContractID, h.ActorID, h.Action, h.OldValue, h.NewValue, h.Notes, h.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// ListByContract returns the audit trail of a contract, oldest first.
func (r *HistoryRepo) ListByContract(ctx context.Context, contractID uint64) ([]model.ContractHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, contract_id, actor_id, action, old_value, new_value, notes, created_at
FROM contract_history WHERE contract_id = ? ORDER BY created_at ASC, id ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ContractHistory
	for rows.Next() {
		var h model.ContractHistory
		if err := rows.Scan(&h.ID, &h.ContractID, &h.ActorID, &h.Action, &h.OldValue, &h.NewValue, &h.Notes, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
