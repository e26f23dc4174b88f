package memory

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

// Demo user ids, stable so development tokens can be minted for them.
const (
	DemoAdminID      uint64 = 1
	DemoManagerID    uint64 = 2
	DemoStaffID      uint64 = 3
	DemoStaffTwoID   uint64 = 4
	DemoStudentID    uint64 = 5
	DemoStudentTwoID uint64 = 6
)

// SeedDemo fills s with a small campus: five buildings, four room
// types and a directory with one account per role.
func SeedDemo(s *Store) {
	users := []model.User{
		{ID: DemoAdminID, FullName: "Nguyen Van Admin", Role: model.RoleAdmin},
		{ID: DemoManagerID, FullName: "Tran Thi Quan Ly", Role: model.RoleManagement},
		{ID: DemoStaffID, FullName: "Pham Van Sua Chua", Role: model.RoleStaff},
		{ID: DemoStaffTwoID, FullName: "Hoang Thi Bao Tri", Role: model.RoleStaff},
		{ID: DemoStudentID, FullName: "Nguyen Van Sinh Vien", Role: model.RoleStudent, Gender: model.GenderMale},
		{ID: DemoStudentTwoID, FullName: "Tran Thi Hoc Sinh", Role: model.RoleStudent, Gender: model.GenderFemale},
		{FullName: "Le Minh Duc", Role: model.RoleStudent, Gender: model.GenderMale},
		{FullName: "Pham Thi Mai", Role: model.RoleStudent, Gender: model.GenderFemale},
		{FullName: "Vu Van Nam", Role: model.RoleStudent, Gender: model.GenderMale},
	}
	for _, u := range users {
		s.AddUser(u)
	}

	quad := s.AddRoomType(model.RoomType{Name: "Quad", Capacity: 4, Price: decimal.NewFromInt(1500000)})
	six := s.AddRoomType(model.RoomType{Name: "Six-bed", Capacity: 6, Price: decimal.NewFromInt(1200000)})
	eight := s.AddRoomType(model.RoomType{Name: "Eight-bed", Capacity: 8, Price: decimal.NewFromInt(1000000)})
	suite := s.AddRoomType(model.RoomType{Name: "Service suite", Capacity: 2, Price: decimal.NewFromInt(2500000)})

	buildings := []model.Building{
		{Name: "Block A", Gender: model.GenderMale},
		{Name: "Block B", Gender: model.GenderMale},
		{Name: "Block C", Gender: model.GenderFemale},
		{Name: "Block D", Gender: model.GenderFemale},
		{Name: "Block E", Gender: model.GenderAll},
	}
	for _, b := range buildings {
		bid := s.AddBuilding(b)
		for floor := 1; floor <= 2; floor++ {
			for n := 1; n <= 10; n++ {
				rt := six
				switch {
				case n > 9:
					rt = suite
				case n > 8:
					rt = eight
				case n > 6:
					rt = quad
				}
				s.AddRoom(model.Room{
					Number:     fmt.Sprintf("%d%02d", floor, n),
					BuildingID: bid,
					RoomTypeID: rt,
					Status:     model.RoomAvailable,
				})
			}
		}
	}
}
