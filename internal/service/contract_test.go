package service

import (
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *LifecycleSuite) TestRenewClampsToLeapFebruary() {
	s.now = time.Date(2023, time.January, 31, 8, 0, 0, 0, time.UTC)
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	s.Require().Equal(day(2024, time.January, 31), out.Contract.EndDate)

	s.now = time.Date(2024, time.January, 20, 8, 0, 0, 0, time.UTC)
	r, err := s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, 1)
	s.Require().NoError(err)
	s.Equal(day(2024, time.January, 31), r.OldEndDate)
	s.Equal(day(2024, time.February, 29), r.NewEndDate)
	s.Equal(day(2024, time.February, 29), r.Contract.EndDate)

	history, err := s.svc.Contracts.History(s.ctx, s.admin, out.Contract.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(model.HistoryRenewed, history[1].Action)
	s.Equal("2024-01-31", history[1].OldValue)
	s.Equal("2024-02-29", history[1].NewValue)
}

func (s *LifecycleSuite) TestRenewExpiredStartsFromToday() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	end := out.Contract.EndDate

	s.now = end.AddDate(0, 2, 5).Add(10 * time.Hour)
	r, err := s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, 3)
	s.Require().NoError(err)
	s.Equal(model.AddMonthsClamped(model.DateOf(s.now), 3), r.NewEndDate)
	s.True(r.NewEndDate.After(r.OldEndDate))
	s.True(r.Contract.IsActive)
}

func (s *LifecycleSuite) TestRenewNeverShortens() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	prev := out.Contract.EndDate
	for _, months := range []int{1, 5, 12, 1} {
		r, err := s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, months)
		s.Require().NoError(err)
		s.Equal(prev, r.OldEndDate)
		s.Equal(model.AddMonthsClamped(prev, months), r.NewEndDate)
		s.Equal(months, model.MonthsBetween(prev, r.NewEndDate))
		prev = r.NewEndDate
	}
}

func (s *LifecycleSuite) TestRenewValidation() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))

	_, err := s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, 0)
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, -2)
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Contracts.Renew(s.ctx, s.staffA, out.Contract.ID, 1)
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Contracts.Renew(s.ctx, s.admin, 4242, 1)
	s.assertKind(err, ErrNotFound)
}

func (s *LifecycleSuite) TestTerminateReleasesBed() {
	roomID := s.room(s.mixedBuilding, s.twinType)
	s.admit(roomID)
	_, out := s.admit(roomID)
	s.Require().Equal(model.RoomOccupied, s.roomState(roomID).Status)

	s.now = s.now.AddDate(0, 1, 0)
	c, err := s.svc.Contracts.Terminate(s.ctx, s.admin, out.Contract.ID, "  moved out  ")
	s.Require().NoError(err)
	s.Equal(model.DateOf(s.now), c.EndDate)
	s.NotNil(c.TerminatedAt)
	s.False(c.IsActive)

	room := s.roomState(roomID)
	s.Equal(1, room.CurrentOccupancy)
	s.Equal(model.RoomAvailable, room.Status)

	history, err := s.svc.Contracts.History(s.ctx, s.admin, out.Contract.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(model.HistoryTerminated, history[1].Action)
	s.Equal("moved out", history[1].Notes)

	s.Contains(s.pub.types(), queue.TypeContractTerminated)
	last := s.pub.events[len(s.pub.events)-1].(queue.ContractTerminatedEvent)
	s.Equal("moved out", last.Reason)

	_, err = s.svc.Contracts.Terminate(s.ctx, s.admin, out.Contract.ID, "again")
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Contracts.Renew(s.ctx, s.admin, out.Contract.ID, 1)
	s.assertKind(err, ErrConflict)
	s.Equal(1, s.roomState(roomID).CurrentOccupancy)
}

func (s *LifecycleSuite) TestTerminateExpiredContract() {
	roomID := s.room(s.mixedBuilding, s.quadType)
	_, out := s.admit(roomID)

	s.now = out.Contract.EndDate.AddDate(0, 0, 1)
	_, err := s.svc.Contracts.Terminate(s.ctx, s.admin, out.Contract.ID, "left")
	s.assertKind(err, ErrConflict)
	s.Contains(err.Error(), "already expired")
	s.Equal(1, s.roomState(roomID).CurrentOccupancy)
}

func (s *LifecycleSuite) TestTerminateValidation() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	_, err := s.svc.Contracts.Terminate(s.ctx, s.admin, out.Contract.ID, "   ")
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Contracts.Terminate(s.ctx, s.student(model.GenderMale), out.Contract.ID, "x")
	s.assertKind(err, ErrPermissionDenied)
}

func (s *LifecycleSuite) TestExpiringSoonAndStatistics() {
	s.now = time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, soon := s.admit(s.room(s.mixedBuilding, s.quadType))
	s.now = time.Date(2023, time.March, 20, 0, 0, 0, 0, time.UTC)
	_, later := s.admit(s.room(s.mixedBuilding, s.quadType))
	s.now = time.Date(2023, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, cut := s.admit(s.room(s.mixedBuilding, s.quadType))
	_, err := s.svc.Contracts.Terminate(s.ctx, s.admin, cut.Contract.ID, "early leave")
	s.Require().NoError(err)

	_, err = s.svc.Payments.Confirm(s.ctx, s.admin, soon.Payment.ID)
	s.Require().NoError(err)

	s.now = time.Date(2024, time.February, 25, 12, 0, 0, 0, time.UTC)
	list, err := s.svc.Contracts.ExpiringSoon(s.ctx, 30)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(soon.Contract.ID, list[0].ID)
	s.Equal(later.Contract.ID, list[1].ID)
	s.Equal(5, list[0].DaysRemaining)

	list, err = s.svc.Contracts.ExpiringSoon(s.ctx, 7)
	s.Require().NoError(err)
	s.Len(list, 1)

	_, err = s.svc.Contracts.ExpiringSoon(s.ctx, -1)
	s.assertKind(err, ErrValidation)

	stats, err := s.svc.Contracts.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.Equal(2, stats.Active)
	s.Equal(1, stats.Expired)
	s.Equal(1, stats.Terminated)
	s.Equal(2, stats.ExpiringSoon)
	s.True(stats.TotalRevenue.Equal(soon.Payment.Amount))
}

func (s *LifecycleSuite) TestContractVisibility() {
	owner, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	other := s.student(model.GenderMale)

	detail, err := s.svc.Contracts.Get(s.ctx, owner, out.Contract.ID)
	s.Require().NoError(err)
	s.Len(detail.Payments, 1)
	s.Equal(1, detail.PendingPayments)
	s.True(detail.TotalPaid.IsZero())

	_, err = s.svc.Contracts.Get(s.ctx, other, out.Contract.ID)
	s.assertKind(err, ErrPermissionDenied)

	mine, err := s.svc.Contracts.List(s.ctx, other, repository.ListFilter{})
	s.Require().NoError(err)
	s.Empty(mine)
}
