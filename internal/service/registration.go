package service

import (
	"context"
	"errors"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// RegistrationWorkflow moves registrations through
// pending -> approved | rejected, or deletes them while pending.
type RegistrationWorkflow struct {
	*deps
	rooms    *RoomInventory
	payments *PaymentLedger
}

// Approval is everything produced by approving a registration.
type Approval struct {
	Registration model.Registration `json:"registration"`
	Contract     model.ContractView `json:"contract"`
	Payment      model.Payment      `json:"payment"`
	Room         model.RoomDetail   `json:"room"`
}

// Create opens a pending registration for the calling student.
func (w *RegistrationWorkflow) Create(ctx context.Context, actor model.Actor, roomID uint64) (model.Registration, error) {
	const op = "registration.create"
	if !actor.IsStudent() {
		return model.Registration{}, w.reject(ctx, op, forbidden("only students can request a room"))
	}
	if roomID == 0 {
		return model.Registration{}, w.reject(ctx, op, invalid("room_id is required"))
	}

	var reg model.Registration
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		// Locking the student row serialises concurrent requests from the
		// same student so the single-active check below holds.
		student, err := tx.Users().GetForUpdate(ctx, actor.UserID)
		if err != nil {
			return storeErr(err, "student")
		}
		room, err := tx.Rooms().GetByID(ctx, roomID)
		if err != nil {
			return storeErr(err, "room")
		}
		if !w.rooms.IsAvailable(room) {
			return conflict("room %s is not available", room.Number)
		}
		if err := w.rooms.CheckGenderEligibility(room, student); err != nil {
			return err
		}
		if err := ensureNoActiveRegistration(ctx, tx, student.ID); err != nil {
			return err
		}
		reg = model.Registration{
			StudentID: student.ID,
			RoomID:    room.ID,
			Status:    model.RegistrationPending,
			CreatedAt: w.clock(),
		}
		return storeErr(tx.Registrations().Create(ctx, &reg), "registration")
	})
	if err != nil {
		return model.Registration{}, w.reject(ctx, op, storeErr(err, "registration"))
	}
	w.metrics.IncrementRegistration(string(model.RegistrationPending))
	w.logger.InfoContext(ctx, "registration created", "registration_id", reg.ID, "student_id", reg.StudentID, "room_id", reg.RoomID)
	return reg, nil
}

func ensureNoActiveRegistration(ctx context.Context, tx repository.Tx, studentID uint64) error {
	_, err := tx.Registrations().FindActiveByStudent(ctx, studentID)
	switch {
	case err == nil:
		return conflict("student already has a pending or approved registration")
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return storeErr(err, "registration")
	}
}

// Approve accepts a pending registration. Inside one unit of work it
// re-checks the room, marks the registration approved, takes a bed,
// creates the contract with its first payment and records the contract
// history. Nothing is applied if any step fails.
func (w *RegistrationWorkflow) Approve(ctx context.Context, actor model.Actor, id uint64) (Approval, error) {
	const op = "registration.approve"
	if err := requirePrivileged(actor, "approve registrations"); err != nil {
		return Approval{}, w.reject(ctx, op, err)
	}

	var out Approval
	today := w.today()
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "registration")
		}
		if reg.Status != model.RegistrationPending {
			return conflict("registration is %s, not pending", reg.Status)
		}
		student, err := tx.Users().GetByID(ctx, reg.StudentID)
		if err != nil {
			return storeErr(err, "student")
		}
		room, err := tx.Rooms().GetForUpdate(ctx, reg.RoomID)
		if err != nil {
			return storeErr(err, "room")
		}
		if !w.rooms.IsAvailable(room) {
			return conflict("room %s is no longer available", room.Number)
		}
		if err := w.rooms.CheckGenderEligibility(room, student); err != nil {
			return err
		}

		if err := tx.Registrations().UpdateStatus(ctx, reg.ID, model.RegistrationPending, model.RegistrationApproved); err != nil {
			return storeErr(err, "registration")
		}
		reg.Status = model.RegistrationApproved

		room, err = w.rooms.IncrementOccupancy(ctx, tx, room.ID)
		if err != nil {
			return err
		}

		contract := model.Contract{
			RegistrationID: reg.ID,
			StartDate:      today,
			EndDate:        model.AddMonthsClamped(today, 12),
			CreatedAt:      w.clock(),
		}
		if err := tx.Contracts().Create(ctx, &contract); err != nil {
			return storeErr(err, "contract")
		}
		contract.StudentID, contract.RoomID = reg.StudentID, reg.RoomID

		payment, err := w.payments.CreateInitialPayment(ctx, tx, contract, room.Price)
		if err != nil {
			return err
		}

		if err := tx.History().Append(ctx, &model.ContractHistory{
			ContractID: contract.ID,
			ActorID:    actor.UserID,
			Action:     model.HistoryCreated,
			NewValue:   contract.EndDate.Format(dateLayout),
			Notes:      "created from registration approval",
			CreatedAt:  w.clock(),
		}); err != nil {
			return storeErr(err, "contract history")
		}

		out = Approval{Registration: reg, Contract: contract.View(today), Payment: payment, Room: room}
		return nil
	})
	if err != nil {
		return Approval{}, w.reject(ctx, op, storeErr(err, "registration"))
	}

	w.metrics.IncrementRegistration(string(model.RegistrationApproved))
	w.metrics.IncrementContract(string(model.HistoryCreated))
	w.metrics.IncrementOccupancy(1)
	w.logger.InfoContext(ctx, "registration approved",
		"registration_id", out.Registration.ID, "contract", out.Contract.Code, "room_id", out.Room.ID,
		"occupancy", out.Room.CurrentOccupancy, "by", actor.UserID)
	w.publish(ctx, queue.RegistrationApprovedEvent{
		RegistrationID: out.Registration.ID,
		StudentID:      out.Registration.StudentID,
		RoomID:         out.Registration.RoomID,
		ContractID:     out.Contract.ID,
		ContractCode:   out.Contract.Code,
		PaymentID:      out.Payment.ID,
		Amount:         out.Payment.Amount,
		ApprovedBy:     actor.UserID,
	})
	return out, nil
}

// Reject closes a pending registration. Rejection is terminal.
func (w *RegistrationWorkflow) Reject(ctx context.Context, actor model.Actor, id uint64) (model.Registration, error) {
	const op = "registration.reject"
	if err := requirePrivileged(actor, "reject registrations"); err != nil {
		return model.Registration{}, w.reject(ctx, op, err)
	}
	var reg model.Registration
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		var err error
		reg, err = tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "registration")
		}
		if reg.Status != model.RegistrationPending {
			return conflict("registration is %s, not pending", reg.Status)
		}
		if err := tx.Registrations().UpdateStatus(ctx, id, model.RegistrationPending, model.RegistrationRejected); err != nil {
			return storeErr(err, "registration")
		}
		reg.Status = model.RegistrationRejected
		return nil
	})
	if err != nil {
		return model.Registration{}, w.reject(ctx, op, storeErr(err, "registration"))
	}
	w.metrics.IncrementRegistration(string(model.RegistrationRejected))
	w.logger.InfoContext(ctx, "registration rejected", "registration_id", id, "by", actor.UserID)
	return reg, nil
}

// Cancel deletes a pending registration. Only its student or an
// administrator may cancel it.
func (w *RegistrationWorkflow) Cancel(ctx context.Context, actor model.Actor, id uint64) error {
	const op = "registration.cancel"
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		reg, err := tx.Registrations().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "registration")
		}
		if !actor.IsPrivileged() && !(actor.IsStudent() && reg.StudentID == actor.UserID) {
			return forbidden("registration belongs to another student")
		}
		if reg.Status != model.RegistrationPending {
			return conflict("only pending registrations can be cancelled")
		}
		return storeErr(tx.Registrations().Delete(ctx, id, model.RegistrationPending), "registration")
	})
	if err != nil {
		return w.reject(ctx, op, storeErr(err, "registration"))
	}
	w.logger.InfoContext(ctx, "registration cancelled", "registration_id", id, "by", actor.UserID)
	return nil
}

// Get returns one registration visible to actor.
func (w *RegistrationWorkflow) Get(ctx context.Context, actor model.Actor, id uint64) (model.Registration, error) {
	var reg model.Registration
	err := w.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		reg, err = tx.Registrations().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return model.Registration{}, storeErr(err, "registration")
	}
	if !actor.IsPrivileged() && reg.StudentID != actor.UserID {
		return model.Registration{}, forbidden("registration belongs to another student")
	}
	return reg, nil
}

// List returns registrations visible to actor. Students only ever see
// their own.
func (w *RegistrationWorkflow) List(ctx context.Context, actor model.Actor, f repository.ListFilter) ([]model.Registration, error) {
	switch {
	case actor.IsStudent():
		f.StudentID = actor.UserID
	case !actor.IsPrivileged():
		return nil, forbidden("not allowed to list registrations")
	}
	var out []model.Registration
	err := w.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = tx.Registrations().List(ctx, f)
		return err
	})
	return out, storeErr(err, "registrations")
}
