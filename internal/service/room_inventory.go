package service

import (
	"context"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// RoomInventory owns the per-room occupancy counter. The counter
// compared with the room type capacity is the single source of truth
// for fullness; the occupied status is a cache written only here.
type RoomInventory struct {
	*deps
}

// IsAvailable reports whether room can take one more resident.
func (r *RoomInventory) IsAvailable(room model.RoomDetail) bool { return room.IsAvailable() }

// CheckGenderEligibility fails with a Conflict unless the building
// admits the student's gender.
func (r *RoomInventory) CheckGenderEligibility(room model.RoomDetail, student model.User) error {
	if !room.AcceptsGender(student.Gender) {
		return conflict("building %q only accepts %s residents", room.BuildingName, room.BuildingGender)
	}
	return nil
}

// Get returns a room with its building and room type.
func (r *RoomInventory) Get(ctx context.Context, id uint64) (model.RoomDetail, error) {
	var room model.RoomDetail
	err := r.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		room, err = tx.Rooms().GetByID(ctx, id)
		return err
	})
	return room, storeErr(err, "room")
}

// SyncResidents sets the residents gauge from the stored room counters.
func (r *RoomInventory) SyncResidents(ctx context.Context) error {
	var sum repository.RoomSummary
	err := r.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		sum, err = tx.Rooms().Summary(ctx)
		return err
	})
	if err != nil {
		return storeErr(err, "rooms")
	}
	r.metrics.SetResidents(sum.Residents)
	return nil
}

// IncrementOccupancy adds one resident inside tx. It refuses a full
// room and flips the cached status to occupied when the room fills.
func (r *RoomInventory) IncrementOccupancy(ctx context.Context, tx repository.Tx, roomID uint64) (model.RoomDetail, error) {
	room, err := tx.Rooms().GetForUpdate(ctx, roomID)
	if err != nil {
		return model.RoomDetail{}, storeErr(err, "room")
	}
	if room.IsFull() {
		return model.RoomDetail{}, conflict("room %s is full", room.Number)
	}
	return r.write(ctx, tx, room, room.CurrentOccupancy+1)
}

// DecrementOccupancy removes one resident inside tx, never going below
// zero, and reverts an occupied room to available.
func (r *RoomInventory) DecrementOccupancy(ctx context.Context, tx repository.Tx, roomID uint64) (model.RoomDetail, error) {
	room, err := tx.Rooms().GetForUpdate(ctx, roomID)
	if err != nil {
		return model.RoomDetail{}, storeErr(err, "room")
	}
	if room.CurrentOccupancy == 0 {
		r.logger.WarnContext(ctx, "occupancy already zero on release", "room_id", roomID)
		return room, nil
	}
	return r.write(ctx, tx, room, room.CurrentOccupancy-1)
}

func (r *RoomInventory) write(ctx context.Context, tx repository.Tx, room model.RoomDetail, occ int) (model.RoomDetail, error) {
	status := room.NextStatus(occ)
	if err := tx.Rooms().UpdateOccupancy(ctx, room.ID, room.Version, occ, status); err != nil {
		return model.RoomDetail{}, storeErr(err, "room")
	}
	room.CurrentOccupancy = occ
	room.Status = status
	room.Version++
	return room, nil
}
