package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// RoomRepo reads rooms joined with their building and room type and
// performs guarded occupancy writes.
type RoomRepo struct {
	db querier
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

const roomSelect = `SELECT r.id, r.room_number, r.building_id, r.room_type_id, r.status,
       r.current_occupancy, r.version, b.name, b.gender, t.name, t.capacity, t.price
FROM rooms r
JOIN buildings b ON b.id = r.building_id
JOIN room_types t ON t.id = r.room_type_id
WHERE r.id = ?`

func (r *RoomRepo) get(ctx context.Context, id uint64, lock bool) (model.RoomDetail, error) {
	var d model.RoomDetail
	err := r.db.QueryRowContext(ctx, roomSelect+lockClause(lock), id).Scan(
		&d.ID, &d.Number, &d.BuildingID, &d.RoomTypeID, &d.Status,
		&d.CurrentOccupancy, &d.Version, &d.BuildingName, &d.BuildingGender,
		&d.RoomTypeName, &d.Capacity, &d.Price,
	)
	if err != nil {
		return model.RoomDetail{}, notFound(err)
	}
	return d, nil
}

// GetByID returns the room with building and room type details.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.RoomDetail, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate is GetByID holding a row lock until the transaction ends.
func (r *RoomRepo) GetForUpdate(ctx context.Context, id uint64) (model.RoomDetail, error) {
	return r.get(ctx, id, true)
}

// UpdateOccupancy writes the new occupancy and status when version still
// matches. The bound check against the room type capacity is repeated
// in SQL so a stale caller can never push the counter out of range.
func (r *RoomRepo) UpdateOccupancy(ctx context.Context, id, version uint64, occupancy int, status model.RoomStatus) error {
	const q = `UPDATE rooms r
JOIN room_types t ON t.id = r.room_type_id
SET r.current_occupancy = ?, r.status = ?, r.version = r.version + 1
WHERE r.id = ? AND r.version = ? AND ? >= 0 AND ? <= t.capacity`
	return expectRow(r.db.ExecContext(ctx, q, occupancy, status, id, version, occupancy, occupancy))
}

// Summary returns room counts for the dashboard.
func (r *RoomRepo) Summary(ctx context.Context) (RoomSummary, error) {
	const q = `SELECT COUNT(*),
       COALESCE(SUM(r.status = 'available'), 0),
       COALESCE(SUM(r.status = 'occupied'), 0),
       COALESCE(SUM(r.status = 'maintenance'), 0),
       COALESCE(SUM(r.current_occupancy >= t.capacity), 0),
       COALESCE(SUM(t.capacity), 0),
       COALESCE(SUM(r.current_occupancy), 0)
FROM rooms r
JOIN room_types t ON t.id = r.room_type_id`
	var s RoomSummary
	err := r.db.QueryRowContext(ctx, q).Scan(
		&s.Total, &s.Available, &s.Occupied, &s.Maintenance, &s.Full, &s.Beds, &s.Residents,
	)
	return s, err
}
