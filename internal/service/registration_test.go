package service

import (
	"sync"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

func (s *LifecycleSuite) TestApproveCreatesContractAndPayment() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	st, out := s.admit(roomID)

	s.Equal(model.RegistrationApproved, out.Registration.Status)
	s.Equal(st.UserID, out.Contract.StudentID)
	s.Equal(model.ContractCode(out.Contract.ID), out.Contract.Code)
	s.Equal(model.DateOf(s.now), out.Contract.StartDate)
	s.Equal(model.AddMonthsClamped(model.DateOf(s.now), 12), out.Contract.EndDate)
	s.True(out.Contract.IsActive)
	s.Equal(12, out.Contract.DurationMonths)

	s.Equal(model.PaymentPending, out.Payment.Status)
	s.Equal(model.MethodBankTransfer, out.Payment.Method)
	s.True(out.Payment.Amount.Equal(out.Room.Price))
	s.Equal(1, out.Room.CurrentOccupancy)

	history, err := s.svc.Contracts.History(s.ctx, s.admin, out.Contract.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(model.HistoryCreated, history[0].Action)

	s.Equal([]string{queue.TypeRegistrationApproved}, s.pub.types())
}

func (s *LifecycleSuite) TestFourthApprovalFillsRoom() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	for i := 0; i < 3; i++ {
		s.admit(roomID)
	}
	s.Equal(3, s.roomState(roomID).CurrentOccupancy)

	_, out := s.admit(roomID)
	s.Equal(4, out.Room.CurrentOccupancy)
	s.Equal(model.RoomOccupied, out.Room.Status)

	room := s.roomState(roomID)
	s.Equal(4, room.CurrentOccupancy)
	s.Equal(model.RoomOccupied, room.Status)

	_, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderMale), roomID)
	s.assertKind(err, ErrConflict)
}

func (s *LifecycleSuite) TestSecondActiveRegistrationRejected() {
	roomA := s.room(s.mixedBuilding, s.quadType)
	roomB := s.room(s.mixedBuilding, s.quadType)
	st := s.student(model.GenderMale)

	_, err := s.svc.Registrations.Create(s.ctx, st, roomA)
	s.Require().NoError(err)

	_, err = s.svc.Registrations.Create(s.ctx, st, roomB)
	s.assertKind(err, ErrConflict)
	s.Contains(err.Error(), "already has a pending or approved registration")

	list, err := s.svc.Registrations.List(s.ctx, st, repository.ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *LifecycleSuite) TestCreatePreconditions() {
	mixed := s.room(s.mixedBuilding, s.quadType)
	female := s.room(s.femaleBuilding, s.twinType)
	underRepair := s.store.AddRoom(model.Room{BuildingID: s.mixedBuilding, RoomTypeID: s.quadType, Status: model.RoomMaintenance})

	s.Run("wrong gender", func() {
		_, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderMale), female)
		s.assertKind(err, ErrConflict)
	})
	s.Run("room under maintenance", func() {
		_, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderMale), underRepair)
		s.assertKind(err, ErrConflict)
	})
	s.Run("unknown room", func() {
		_, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderMale), 9999)
		s.assertKind(err, ErrNotFound)
	})
	s.Run("missing room", func() {
		_, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderMale), 0)
		s.assertKind(err, ErrValidation)
	})
	s.Run("staff cannot register", func() {
		_, err := s.svc.Registrations.Create(s.ctx, s.staffA, mixed)
		s.assertKind(err, ErrPermissionDenied)
	})
}

func (s *LifecycleSuite) TestTerminalRegistrationTransitions() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	st := s.student(model.GenderMale)
	reg, err := s.svc.Registrations.Create(s.ctx, st, roomID)
	s.Require().NoError(err)

	_, err = s.svc.Registrations.Approve(s.ctx, st, reg.ID)
	s.assertKind(err, ErrPermissionDenied)

	rejected, err := s.svc.Registrations.Reject(s.ctx, s.admin, reg.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationRejected, rejected.Status)

	_, err = s.svc.Registrations.Reject(s.ctx, s.admin, reg.ID)
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Registrations.Approve(s.ctx, s.admin, reg.ID)
	s.assertKind(err, ErrConflict)
	s.assertKind(s.svc.Registrations.Cancel(s.ctx, st, reg.ID), ErrConflict)

	got, err := s.svc.Registrations.Get(s.ctx, s.admin, reg.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationRejected, got.Status)
	s.Equal(0, s.roomState(roomID).CurrentOccupancy)

	// A rejected registration no longer blocks a new request.
	_, err = s.svc.Registrations.Create(s.ctx, st, roomID)
	s.NoError(err)
}

func (s *LifecycleSuite) TestApproveRechecksRoom() {
	roomID := s.room(s.mixedBuilding, s.twinType)
	first := s.student(model.GenderMale)
	second := s.student(model.GenderMale)
	third := s.student(model.GenderMale)

	var ids []uint64
	for _, st := range []model.Actor{first, second, third} {
		reg, err := s.svc.Registrations.Create(s.ctx, st, roomID)
		s.Require().NoError(err)
		ids = append(ids, reg.ID)
	}
	_, err := s.svc.Registrations.Approve(s.ctx, s.admin, ids[0])
	s.Require().NoError(err)
	_, err = s.svc.Registrations.Approve(s.ctx, s.admin, ids[1])
	s.Require().NoError(err)

	_, err = s.svc.Registrations.Approve(s.ctx, s.admin, ids[2])
	s.assertKind(err, ErrConflict)

	reg, err := s.svc.Registrations.Get(s.ctx, third, ids[2])
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, reg.Status)
	s.Equal(2, s.roomState(roomID).CurrentOccupancy)
}

func (s *LifecycleSuite) TestApproveIsAllOrNothing() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	st := s.student(model.GenderMale)
	reg, err := s.svc.Registrations.Create(s.ctx, st, roomID)
	s.Require().NoError(err)

	broken := s.newServices(failingUoW{s.store})
	_, err = broken.Registrations.Approve(s.ctx, s.admin, reg.ID)
	s.assertKind(err, ErrInternal)

	got, err := s.svc.Registrations.Get(s.ctx, st, reg.ID)
	s.Require().NoError(err)
	s.Equal(model.RegistrationPending, got.Status)
	room := s.roomState(roomID)
	s.Equal(0, room.CurrentOccupancy)
	s.Equal(model.RoomAvailable, room.Status)
	contracts, err := s.svc.Contracts.List(s.ctx, s.admin, repository.ListFilter{})
	s.Require().NoError(err)
	s.Empty(contracts)
	s.Empty(s.pub.types())

	// The same registration approves cleanly once storage recovers.
	_, err = s.svc.Registrations.Approve(s.ctx, s.admin, reg.ID)
	s.NoError(err)
}

func (s *LifecycleSuite) TestConcurrentApprovalsNeverOverrunCapacity() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	var ids []uint64
	for i := 0; i < 7; i++ {
		reg, err := s.svc.Registrations.Create(s.ctx, s.student(model.GenderFemale), roomID)
		s.Require().NoError(err)
		ids = append(ids, reg.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	approved, conflicts := 0, 0
	for _, id := range ids {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			_, err := s.svc.Registrations.Approve(s.ctx, s.admin, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case KindOf(err) == KindConflict:
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	s.Equal(4, approved)
	s.Equal(3, conflicts)
	room := s.roomState(roomID)
	s.Equal(4, room.CurrentOccupancy)
	s.Equal(model.RoomOccupied, room.Status)
}

func (s *LifecycleSuite) TestCancel() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	owner := s.student(model.GenderMale)
	other := s.student(model.GenderMale)
	reg, err := s.svc.Registrations.Create(s.ctx, owner, roomID)
	s.Require().NoError(err)

	s.assertKind(s.svc.Registrations.Cancel(s.ctx, other, reg.ID), ErrPermissionDenied)
	s.assertKind(s.svc.Registrations.Cancel(s.ctx, s.staffA, reg.ID), ErrPermissionDenied)
	s.Require().NoError(s.svc.Registrations.Cancel(s.ctx, owner, reg.ID))

	_, err = s.svc.Registrations.Get(s.ctx, owner, reg.ID)
	s.assertKind(err, ErrNotFound)
	s.assertKind(s.svc.Registrations.Cancel(s.ctx, owner, reg.ID), ErrNotFound)
}
