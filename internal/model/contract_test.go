package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestContractDerivedFields(t *testing.T) {
	c := Contract{StartDate: date(2024, time.January, 15), EndDate: date(2025, time.January, 15)}

	before := date(2024, time.January, 1)
	assert.False(t, c.IsActive(before))
	assert.False(t, c.IsExpired(before))

	mid := time.Date(2024, time.December, 16, 18, 30, 0, 0, time.UTC)
	assert.True(t, c.IsActive(mid))
	assert.Equal(t, 30, c.DaysRemaining(mid))

	last := date(2025, time.January, 15)
	assert.True(t, c.IsActive(last))
	assert.False(t, c.IsExpired(last))
	assert.Equal(t, 0, c.DaysRemaining(last))

	after := date(2025, time.January, 16)
	assert.False(t, c.IsActive(after))
	assert.True(t, c.IsExpired(after))
	assert.Equal(t, 0, c.DaysRemaining(after))

	assert.Equal(t, 12, c.DurationMonths())
}

func TestContractViewTerminated(t *testing.T) {
	now := date(2024, time.June, 1)
	c := Contract{StartDate: date(2024, time.January, 1), EndDate: now, TerminatedAt: &now}
	v := c.View(now)
	assert.False(t, v.IsActive)
	assert.False(t, v.IsExpired)
}

func TestContractCode(t *testing.T) {
	assert.Equal(t, "HD0007", ContractCode(7))
	assert.Equal(t, "HD12345", ContractCode(12345))
}

func TestTicketUrgency(t *testing.T) {
	req := date(2024, time.March, 1)
	tk := MaintenanceTicket{Status: TicketPending, RequestDate: req}
	assert.False(t, tk.IsUrgent(date(2024, time.March, 4)))
	assert.True(t, tk.IsUrgent(date(2024, time.March, 5)))

	tk.Status = TicketAssigned
	assert.False(t, tk.IsUrgent(date(2024, time.March, 30)))
}

func TestRoomStatusFollowsOccupancy(t *testing.T) {
	r := RoomDetail{Room: Room{Status: RoomAvailable, CurrentOccupancy: 3}, Capacity: 4, BuildingGender: GenderFemale}
	assert.True(t, r.IsAvailable())
	assert.Equal(t, RoomOccupied, r.NextStatus(4))
	assert.Equal(t, RoomAvailable, r.NextStatus(3))
	assert.True(t, r.AcceptsGender(GenderFemale))
	assert.False(t, r.AcceptsGender(GenderMale))

	r.Status = RoomMaintenance
	assert.False(t, r.IsAvailable())
	assert.Equal(t, RoomMaintenance, r.NextStatus(4))
}
