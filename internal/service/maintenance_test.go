package service

import (
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

func (s *LifecycleSuite) newTicket(st model.Actor) model.TicketView {
	t, err := s.svc.Maintenance.Create(s.ctx, st, TicketRequest{
		RoomID:      s.room(s.mixedBuilding, s.quadType),
		Title:       "Leaking tap",
		Description: "Bathroom tap drips all night",
	})
	s.Require().NoError(err)
	return t
}

func (s *LifecycleSuite) TestTicketHappyPath() {
	t := s.newTicket(s.student(model.GenderMale))
	s.Equal(model.TicketPending, t.Status)
	s.Nil(t.AssigneeID)

	t, err := s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffA.UserID)
	s.Require().NoError(err)
	s.Equal(model.TicketAssigned, t.Status)
	s.True(t.IsAssignedTo(s.staffA.UserID))

	_, err = s.svc.Maintenance.Start(s.ctx, s.staffB, t.ID)
	s.assertKind(err, ErrPermissionDenied)

	t, err = s.svc.Maintenance.Start(s.ctx, s.staffA, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TicketInProgress, t.Status)

	s.now = s.now.Add(2 * time.Hour)
	t, err = s.svc.Maintenance.Complete(s.ctx, s.staffA, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TicketCompleted, t.Status)
	s.Require().NotNil(t.CompletedDate)
	s.Equal(s.now, *t.CompletedDate)

	_, err = s.svc.Maintenance.Complete(s.ctx, s.staffA, t.ID)
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Maintenance.Cancel(s.ctx, s.admin, t.ID)
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffB.UserID)
	s.assertKind(err, ErrConflict)
}

func (s *LifecycleSuite) TestTicketWrongOrder() {
	t := s.newTicket(s.student(model.GenderMale))
	t, err := s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffA.UserID)
	s.Require().NoError(err)

	_, err = s.svc.Maintenance.Complete(s.ctx, s.staffA, t.ID)
	s.assertKind(err, ErrConflict)

	t, err = s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffB.UserID)
	s.Require().NoError(err)
	s.True(t.IsAssignedTo(s.staffB.UserID))
	_, err = s.svc.Maintenance.Start(s.ctx, s.staffA, t.ID)
	s.assertKind(err, ErrPermissionDenied)
}

func (s *LifecycleSuite) TestAssignRequiresStaff() {
	st := s.student(model.GenderMale)
	t := s.newTicket(st)

	_, err := s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, st.UserID)
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, 99999)
	s.assertKind(err, ErrNotFound)
	_, err = s.svc.Maintenance.Assign(s.ctx, s.staffA, t.ID, s.staffA.UserID)
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Maintenance.Assign(s.ctx, s.admin, 4040, s.staffA.UserID)
	s.assertKind(err, ErrNotFound)
}

func (s *LifecycleSuite) TestTicketCancelRules() {
	owner := s.student(model.GenderMale)
	other := s.student(model.GenderMale)

	s.Run("owner cancels while pending", func() {
		t := s.newTicket(owner)
		_, err := s.svc.Maintenance.Cancel(s.ctx, other, t.ID)
		s.assertKind(err, ErrPermissionDenied)
		_, err = s.svc.Maintenance.Cancel(s.ctx, s.staffA, t.ID)
		s.assertKind(err, ErrPermissionDenied)
		got, err := s.svc.Maintenance.Cancel(s.ctx, owner, t.ID)
		s.Require().NoError(err)
		s.Equal(model.TicketCancelled, got.Status)
		_, err = s.svc.Maintenance.Cancel(s.ctx, owner, t.ID)
		s.assertKind(err, ErrConflict)
	})
	s.Run("owner cannot cancel once assigned", func() {
		t := s.newTicket(owner)
		_, err := s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffA.UserID)
		s.Require().NoError(err)
		_, err = s.svc.Maintenance.Cancel(s.ctx, owner, t.ID)
		s.assertKind(err, ErrConflict)
	})
	s.Run("admin cancels in progress", func() {
		t := s.newTicket(owner)
		_, err := s.svc.Maintenance.Assign(s.ctx, s.admin, t.ID, s.staffA.UserID)
		s.Require().NoError(err)
		_, err = s.svc.Maintenance.Start(s.ctx, s.staffA, t.ID)
		s.Require().NoError(err)
		got, err := s.svc.Maintenance.Cancel(s.ctx, s.admin, t.ID)
		s.Require().NoError(err)
		s.Equal(model.TicketCancelled, got.Status)
		_, err = s.svc.Maintenance.Cancel(s.ctx, s.admin, t.ID)
		s.assertKind(err, ErrConflict)
	})
}

func (s *LifecycleSuite) TestTicketCreateValidation() {
	st := s.student(model.GenderMale)
	roomID := s.room(s.mixedBuilding, s.quadType)

	_, err := s.svc.Maintenance.Create(s.ctx, st, TicketRequest{RoomID: roomID, Title: "  "})
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Maintenance.Create(s.ctx, st, TicketRequest{Title: "Broken lamp"})
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Maintenance.Create(s.ctx, st, TicketRequest{RoomID: 5555, Title: "Broken lamp"})
	s.assertKind(err, ErrNotFound)
	_, err = s.svc.Maintenance.Create(s.ctx, s.staffA, TicketRequest{RoomID: roomID, Title: "Broken lamp"})
	s.assertKind(err, ErrPermissionDenied)
}

func (s *LifecycleSuite) TestTicketListingAndUrgency() {
	alice := s.student(model.GenderFemale)
	bob := s.student(model.GenderMale)
	old := s.newTicket(alice)
	s.now = s.now.AddDate(0, 0, 2)
	assigned := s.newTicket(bob)
	_, err := s.svc.Maintenance.Assign(s.ctx, s.admin, assigned.ID, s.staffA.UserID)
	s.Require().NoError(err)
	s.newTicket(bob)

	s.now = s.now.AddDate(0, 0, 2)

	mine, err := s.svc.Maintenance.List(s.ctx, alice, repository.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(old.ID, mine[0].ID)
	s.True(mine[0].IsUrgent)
	s.Equal(4, mine[0].DaysSinceRequest)

	forA, err := s.svc.Maintenance.List(s.ctx, s.staffA, repository.ListFilter{})
	s.Require().NoError(err)
	s.Len(forA, 3)
	forB, err := s.svc.Maintenance.List(s.ctx, s.staffB, repository.ListFilter{})
	s.Require().NoError(err)
	s.Len(forB, 2)

	_, err = s.svc.Maintenance.Get(s.ctx, s.staffB, assigned.ID)
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Maintenance.Get(s.ctx, alice, assigned.ID)
	s.assertKind(err, ErrPermissionDenied)

	all, err := s.svc.Maintenance.List(s.ctx, s.admin, repository.ListFilter{Status: string(model.TicketPending)})
	s.Require().NoError(err)
	s.Len(all, 2)

	stats, err := s.svc.Maintenance.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(TicketStatistics{Total: 3, Pending: 2, Assigned: 1, Urgent: 1}, stats)
}
