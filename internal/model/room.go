package model

import "github.com/shopspring/decimal"

// RoomStatus is the lifecycle state stored in rooms.status.
type RoomStatus string

const (
	RoomAvailable       RoomStatus = "available"
	RoomOccupied        RoomStatus = "occupied"
	RoomMaintenance     RoomStatus = "maintenance"
	RoomPendingApproval RoomStatus = "pending_approval"
)

// Gender values used both by buildings (eligibility) and by users.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderAll    Gender = "all"
)

// Building represents a row in the `buildings` table.
type Building struct {
	ID     uint64 `json:"id"`     // buildings.id
	Name   string `json:"name"`   // buildings.name
	Gender Gender `json:"gender"` // buildings.gender
}

// RoomType represents a row in the `room_types` table. Price is the
// monthly rate charged for one bed.
type RoomType struct {
	ID       uint64          `json:"id"`       // room_types.id
	Name     string          `json:"name"`     // room_types.name
	Capacity int             `json:"capacity"` // room_types.capacity
	Price    decimal.Decimal `json:"price"`    // room_types.price
}

// Room mirrors the `rooms` table. Version is bumped on every occupancy
// write and is used as the compare-and-swap token.
type Room struct {
	ID               uint64     `json:"id"`                // rooms.id
	Number           string     `json:"room_number"`       // rooms.room_number
	BuildingID       uint64     `json:"building_id"`       // rooms.building_id
	RoomTypeID       uint64     `json:"room_type_id"`      // rooms.room_type_id
	Status           RoomStatus `json:"status"`            // rooms.status
	CurrentOccupancy int        `json:"current_occupancy"` // rooms.current_occupancy
	Version          uint64     `json:"-"`                 // rooms.version
}

// RoomDetail is a room joined with its building and room type. All
// eligibility and capacity checks operate on this shape.
type RoomDetail struct {
	Room
	BuildingName   string          `json:"building_name"`
	BuildingGender Gender          `json:"building_gender"`
	RoomTypeName   string          `json:"room_type_name"`
	Capacity       int             `json:"capacity"`
	Price          decimal.Decimal `json:"price"`
}

// IsFull reports whether the room has no free bed left.
func (r RoomDetail) IsFull() bool { return r.CurrentOccupancy >= r.Capacity }

// IsAvailable reports whether a new resident can be placed in the room.
func (r RoomDetail) IsAvailable() bool {
	return r.Status == RoomAvailable && r.CurrentOccupancy < r.Capacity
}

// AcceptsGender reports whether a resident of gender g may live in the
// room's building.
func (r RoomDetail) AcceptsGender(g Gender) bool {
	return r.BuildingGender == GenderAll || r.BuildingGender == g
}

// NextStatus returns the cached status that matches occupancy occ.
// Only the available/occupied pair is derived from occupancy; rooms
// under maintenance or awaiting approval keep their status.
func (r RoomDetail) NextStatus(occ int) RoomStatus {
	switch r.Status {
	case RoomAvailable, RoomOccupied:
		if occ >= r.Capacity {
			return RoomOccupied
		}
		return RoomAvailable
	default:
		return r.Status
	}
}
