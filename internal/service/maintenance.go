package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// MaintenanceWorkflow moves tickets through
// pending -> assigned -> in_progress -> completed, with cancellation
// allowed from any state before completion.
type MaintenanceWorkflow struct {
	*deps
}

// TicketRequest is the student input for a new ticket.
type TicketRequest struct {
	RoomID      uint64
	Title       string
	Description string
}

// TicketStatistics is the maintenance rollup.
type TicketStatistics struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Assigned   int `json:"assigned"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
	Urgent     int `json:"urgent"`
}

// Create opens a pending ticket for the calling student.
func (w *MaintenanceWorkflow) Create(ctx context.Context, actor model.Actor, in TicketRequest) (model.TicketView, error) {
	const op = "maintenance.create"
	if !actor.IsStudent() {
		return model.TicketView{}, w.reject(ctx, op, forbidden("only students can open maintenance requests"))
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.RoomID == 0:
		return model.TicketView{}, w.reject(ctx, op, invalid("room_id is required"))
	case in.Title == "":
		return model.TicketView{}, w.reject(ctx, op, invalid("title is required"))
	case len(in.Title) > 200:
		return model.TicketView{}, w.reject(ctx, op, invalid("title must be at most 200 characters"))
	}

	var t model.MaintenanceTicket
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		if _, err := tx.Rooms().GetByID(ctx, in.RoomID); err != nil {
			return storeErr(err, "room")
		}
		t = model.MaintenanceTicket{
			StudentID:   actor.UserID,
			RoomID:      in.RoomID,
			Title:       in.Title,
			Description: in.Description,
			Status:      model.TicketPending,
			RequestDate: w.clock(),
		}
		return storeErr(tx.Tickets().Create(ctx, &t), "maintenance request")
	})
	if err != nil {
		return model.TicketView{}, w.reject(ctx, op, storeErr(err, "maintenance request"))
	}
	w.metrics.IncrementTicket(string(model.TicketPending))
	w.logger.InfoContext(ctx, "maintenance request created", "ticket_id", t.ID, "room_id", t.RoomID)
	return t.View(w.clock()), nil
}

// Assign hands a pending or assigned ticket to a maintenance staff
// member.
func (w *MaintenanceWorkflow) Assign(ctx context.Context, actor model.Actor, id, staffID uint64) (model.TicketView, error) {
	const op = "maintenance.assign"
	if err := requirePrivileged(actor, "assign maintenance requests"); err != nil {
		return model.TicketView{}, w.reject(ctx, op, err)
	}
	if staffID == 0 {
		return model.TicketView{}, w.reject(ctx, op, invalid("assigned_to is required"))
	}
	return w.transition(ctx, op, id, func(tx repository.Tx, t *model.MaintenanceTicket) error {
		if t.Status != model.TicketPending && t.Status != model.TicketAssigned {
			return conflict("cannot assign a ticket that is %s", t.Status)
		}
		staff, err := tx.Users().GetByID(ctx, staffID)
		if err != nil {
			return storeErr(err, "staff member")
		}
		if staff.Role != model.RoleStaff {
			return invalid("user %d is not maintenance staff", staffID)
		}
		t.AssigneeID = &staff.ID
		t.Status = model.TicketAssigned
		return nil
	})
}

// Start moves an assigned ticket to in_progress. Only the assignee may
// start it.
func (w *MaintenanceWorkflow) Start(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error) {
	return w.transition(ctx, "maintenance.start", id, func(_ repository.Tx, t *model.MaintenanceTicket) error {
		if !t.IsAssignedTo(actor.UserID) {
			return forbidden("ticket is not assigned to you")
		}
		if t.Status != model.TicketAssigned {
			return conflict("cannot start a ticket that is %s", t.Status)
		}
		t.Status = model.TicketInProgress
		return nil
	})
}

// Complete closes an in-progress ticket. Only the assignee may complete
// it.
func (w *MaintenanceWorkflow) Complete(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error) {
	return w.transition(ctx, "maintenance.complete", id, func(_ repository.Tx, t *model.MaintenanceTicket) error {
		if !t.IsAssignedTo(actor.UserID) {
			return forbidden("ticket is not assigned to you")
		}
		if t.Status != model.TicketInProgress {
			return conflict("cannot complete a ticket that is %s", t.Status)
		}
		now := w.clock()
		t.Status = model.TicketCompleted
		t.CompletedDate = &now
		return nil
	})
}

// Cancel withdraws a ticket. Its student may cancel it while pending;
// administrators may cancel any ticket that is not yet completed.
func (w *MaintenanceWorkflow) Cancel(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error) {
	return w.transition(ctx, "maintenance.cancel", id, func(_ repository.Tx, t *model.MaintenanceTicket) error {
		switch {
		case actor.IsPrivileged():
			if t.Status == model.TicketCompleted || t.Status == model.TicketCancelled {
				return conflict("cannot cancel a ticket that is %s", t.Status)
			}
		case actor.IsStudent() && t.StudentID == actor.UserID:
			if t.Status != model.TicketPending {
				return conflict("only pending requests can be cancelled")
			}
		default:
			return forbidden("not allowed to cancel this request")
		}
		t.Status = model.TicketCancelled
		return nil
	})
}

// transition loads the ticket under lock, lets apply mutate it and
// writes it back guarded on the status it was loaded with.
func (w *MaintenanceWorkflow) transition(ctx context.Context, op string, id uint64, apply func(tx repository.Tx, t *model.MaintenanceTicket) error) (model.TicketView, error) {
	var t model.MaintenanceTicket
	err := w.uow.Within(ctx, func(tx repository.Tx) error {
		var err error
		t, err = tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "maintenance request")
		}
		from := t.Status
		if err := apply(tx, &t); err != nil {
			return err
		}
		return storeErr(tx.Tickets().Update(ctx, t, from), "maintenance request")
	})
	if err != nil {
		return model.TicketView{}, w.reject(ctx, op, storeErr(err, "maintenance request"))
	}
	w.metrics.IncrementTicket(string(t.Status))
	w.logger.InfoContext(ctx, "maintenance request updated", "ticket_id", t.ID, "status", t.Status)
	return t.View(w.clock()), nil
}

// canSee reports whether actor may read t.
func canSee(actor model.Actor, t model.MaintenanceTicket) bool {
	switch {
	case actor.IsPrivileged():
		return true
	case actor.IsStaff():
		return t.IsAssignedTo(actor.UserID) || (t.AssigneeID == nil && t.Status == model.TicketPending)
	default:
		return t.StudentID == actor.UserID
	}
}

// Get returns one ticket visible to actor.
func (w *MaintenanceWorkflow) Get(ctx context.Context, actor model.Actor, id uint64) (model.TicketView, error) {
	var t model.MaintenanceTicket
	err := w.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		t, err = tx.Tickets().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return model.TicketView{}, storeErr(err, "maintenance request")
	}
	if !canSee(actor, t) {
		return model.TicketView{}, forbidden("not allowed to view this request")
	}
	return t.View(w.clock()), nil
}

// List returns tickets visible to actor: students see their own, staff
// see tickets assigned to them plus unassigned pending ones.
func (w *MaintenanceWorkflow) List(ctx context.Context, actor model.Actor, f repository.ListFilter) ([]model.TicketView, error) {
	switch {
	case actor.IsPrivileged():
	case actor.IsStaff():
		f.StudentID = 0
		f.AssigneeID = actor.UserID
		f.IncludeUnassigned = true
	case actor.IsStudent():
		f.StudentID = actor.UserID
		f.AssigneeID = 0
	default:
		return nil, forbidden("not allowed to list maintenance requests")
	}
	now := w.clock()
	var out []model.TicketView
	err := w.uow.View(ctx, func(tx repository.Tx) error {
		list, err := tx.Tickets().List(ctx, f)
		if err != nil {
			return err
		}
		out = make([]model.TicketView, 0, len(list))
		for _, t := range list {
			out = append(out, t.View(now))
		}
		return nil
	})
	return out, storeErr(err, "maintenance requests")
}

// Statistics returns ticket counts by status plus the urgent count.
func (w *MaintenanceWorkflow) Statistics(ctx context.Context) (TicketStatistics, error) {
	var out TicketStatistics
	err := w.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		out, err = ticketStatistics(ctx, tx, w.clock())
		return err
	})
	return out, storeErr(err, "maintenance statistics")
}

func ticketStatistics(ctx context.Context, tx repository.Tx, now time.Time) (TicketStatistics, error) {
	counts, err := tx.Tickets().CountByStatus(ctx)
	if err != nil {
		return TicketStatistics{}, err
	}
	urgent, err := tx.Tickets().CountPendingBefore(ctx, urgentCutoff(now))
	if err != nil {
		return TicketStatistics{}, err
	}
	out := TicketStatistics{
		Pending:    counts[model.TicketPending],
		Assigned:   counts[model.TicketAssigned],
		InProgress: counts[model.TicketInProgress],
		Completed:  counts[model.TicketCompleted],
		Cancelled:  counts[model.TicketCancelled],
		Urgent:     urgent,
	}
	for _, n := range counts {
		out.Total += n
	}
	return out, nil
}

// urgentCutoff is the request time before which a pending ticket is
// urgent: its request day lies more than UrgentAfterDays days back.
func urgentCutoff(now time.Time) time.Time {
	return model.DateOf(now).AddDate(0, 0, -model.UrgentAfterDays)
}
