package service

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

func (s *LifecycleSuite) TestConfirmIsTerminal() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))

	p, err := s.svc.Payments.Confirm(s.ctx, s.admin, out.Payment.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentConfirmed, p.Status)
	s.Require().NotNil(p.ConfirmedBy)
	s.Equal(s.admin.UserID, *p.ConfirmedBy)

	_, err = s.svc.Payments.Confirm(s.ctx, s.admin, out.Payment.ID)
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Payments.Reject(s.ctx, s.admin, out.Payment.ID)
	s.assertKind(err, ErrConflict)

	got, err := s.svc.Payments.Get(s.ctx, s.admin, out.Payment.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentConfirmed, got.Status)
	s.Contains(s.pub.types(), queue.TypePaymentConfirmed)
}

func (s *LifecycleSuite) TestRejectIsTerminal() {
	owner, out := s.admit(s.room(s.mixedBuilding, s.quadType))

	_, err := s.svc.Payments.Reject(s.ctx, owner, out.Payment.ID)
	s.assertKind(err, ErrPermissionDenied)

	p, err := s.svc.Payments.Reject(s.ctx, s.admin, out.Payment.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentFailed, p.Status)

	_, err = s.svc.Payments.Reject(s.ctx, s.admin, out.Payment.ID)
	s.assertKind(err, ErrConflict)
	_, err = s.svc.Payments.Confirm(s.ctx, s.admin, out.Payment.ID)
	s.assertKind(err, ErrConflict)

	proof := "receipt.png"
	_, err = s.svc.Payments.Update(s.ctx, owner, out.Payment.ID, model.PaymentChanges{ProofRef: &proof})
	s.assertKind(err, ErrConflict)
}

func (s *LifecycleSuite) TestSubmit() {
	owner, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	other := s.student(model.GenderMale)

	p, err := s.svc.Payments.Submit(s.ctx, owner, Submission{
		ContractID: out.Contract.ID,
		Amount:     decimal.RequireFromString("1500000.004"),
		Method:     model.MethodCash,
		ProofRef:   " slip-1 ",
	})
	s.Require().NoError(err)
	s.Equal(model.PaymentPending, p.Status)
	s.True(p.Amount.Equal(decimal.NewFromInt(1500000)))
	s.Require().NotNil(p.ProofRef)
	s.Equal("slip-1", *p.ProofRef)

	_, err = s.svc.Payments.Submit(s.ctx, other, Submission{ContractID: out.Contract.ID, Amount: decimal.NewFromInt(10)})
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Payments.Submit(s.ctx, s.admin, Submission{ContractID: out.Contract.ID, Amount: decimal.NewFromInt(10)})
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Payments.Submit(s.ctx, owner, Submission{ContractID: out.Contract.ID, Amount: decimal.Zero})
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Payments.Submit(s.ctx, owner, Submission{ContractID: out.Contract.ID, Amount: decimal.NewFromInt(1), Method: "cheque"})
	s.assertKind(err, ErrValidation)
	_, err = s.svc.Payments.Submit(s.ctx, owner, Submission{ContractID: 777, Amount: decimal.NewFromInt(1)})
	s.assertKind(err, ErrNotFound)

	mine, err := s.svc.Payments.List(s.ctx, owner, repository.ListFilter{})
	s.Require().NoError(err)
	s.Len(mine, 2)
	theirs, err := s.svc.Payments.List(s.ctx, other, repository.ListFilter{})
	s.Require().NoError(err)
	s.Empty(theirs)
}

func (s *LifecycleSuite) TestUpdatePermissions() {
	owner, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	other := s.student(model.GenderMale)
	proof := "transfer-8841"
	amount := decimal.NewFromInt(1400000)
	cash := model.MethodCash

	p, err := s.svc.Payments.Update(s.ctx, owner, out.Payment.ID, model.PaymentChanges{ProofRef: &proof})
	s.Require().NoError(err)
	s.Require().NotNil(p.ProofRef)
	s.Equal(proof, *p.ProofRef)

	_, err = s.svc.Payments.Update(s.ctx, owner, out.Payment.ID, model.PaymentChanges{Amount: &amount})
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Payments.Update(s.ctx, other, out.Payment.ID, model.PaymentChanges{ProofRef: &proof})
	s.assertKind(err, ErrPermissionDenied)
	_, err = s.svc.Payments.Update(s.ctx, owner, out.Payment.ID, model.PaymentChanges{})
	s.assertKind(err, ErrValidation)

	p, err = s.svc.Payments.Update(s.ctx, s.admin, out.Payment.ID, model.PaymentChanges{Amount: &amount, Method: &cash})
	s.Require().NoError(err)
	s.True(p.Amount.Equal(amount))
	s.Equal(model.MethodCash, p.Method)
	s.Equal(proof, *p.ProofRef)
}

func (s *LifecycleSuite) TestPublishFailureDoesNotFailConfirm() {
	_, out := s.admit(s.room(s.mixedBuilding, s.quadType))
	s.pub.err = errors.New("broker down")

	p, err := s.svc.Payments.Confirm(s.ctx, s.admin, out.Payment.ID)
	s.Require().NoError(err)
	s.Equal(model.PaymentConfirmed, p.Status)
}

func (s *LifecycleSuite) TestPaymentStatistics() {
	_, a := s.admit(s.room(s.mixedBuilding, s.quadType))
	_, b := s.admit(s.room(s.mixedBuilding, s.twinType))
	s.admit(s.room(s.mixedBuilding, s.twinType))
	_, err := s.svc.Payments.Confirm(s.ctx, s.admin, a.Payment.ID)
	s.Require().NoError(err)
	_, err = s.svc.Payments.Reject(s.ctx, s.admin, b.Payment.ID)
	s.Require().NoError(err)

	stats, err := s.svc.Payments.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.Count)
	s.Equal(1, stats.Confirmed)
	s.Equal(1, stats.Failed)
	s.Equal(1, stats.Pending)
	s.True(stats.ConfirmedTotal.Equal(decimal.NewFromInt(1500000)))
	s.True(stats.PendingTotal.Equal(decimal.NewFromInt(2500000)))
}
