package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

type roomStore struct{ t *tx }

func (s roomStore) detail(r model.Room) model.RoomDetail {
	b := s.t.st.buildings[r.BuildingID]
	rt := s.t.st.roomTypes[r.RoomTypeID]
	return model.RoomDetail{
		Room:           r,
		BuildingName:   b.Name,
		BuildingGender: b.Gender,
		RoomTypeName:   rt.Name,
		Capacity:       rt.Capacity,
		Price:          rt.Price,
	}
}

func (s roomStore) GetByID(_ context.Context, id uint64) (model.RoomDetail, error) {
	r, ok := s.t.st.rooms[id]
	if !ok {
		return model.RoomDetail{}, repository.ErrNotFound
	}
	return s.detail(r), nil
}

func (s roomStore) GetForUpdate(ctx context.Context, id uint64) (model.RoomDetail, error) {
	return s.GetByID(ctx, id)
}

func (s roomStore) UpdateOccupancy(_ context.Context, id, version uint64, occupancy int, status model.RoomStatus) error {
	if err := s.t.write(); err != nil {
		return err
	}
	r, ok := s.t.st.rooms[id]
	if !ok || r.Version != version {
		return repository.ErrConflict
	}
	if occupancy < 0 || occupancy > s.t.st.roomTypes[r.RoomTypeID].Capacity {
		return repository.ErrConflict
	}
	r.CurrentOccupancy = occupancy
	r.Status = status
	r.Version++
	s.t.st.rooms[id] = r
	return nil
}

func (s roomStore) Summary(context.Context) (repository.RoomSummary, error) {
	var out repository.RoomSummary
	for _, r := range s.t.st.rooms {
		capacity := s.t.st.roomTypes[r.RoomTypeID].Capacity
		out.Total++
		switch r.Status {
		case model.RoomAvailable:
			out.Available++
		case model.RoomOccupied:
			out.Occupied++
		case model.RoomMaintenance:
			out.Maintenance++
		}
		if r.CurrentOccupancy >= capacity {
			out.Full++
		}
		out.Beds += capacity
		out.Residents += r.CurrentOccupancy
	}
	return out, nil
}

type userStore struct{ t *tx }

func (s userStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := s.t.st.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s userStore) GetForUpdate(ctx context.Context, id uint64) (model.User, error) {
	return s.GetByID(ctx, id)
}

type registrationStore struct{ t *tx }

func (s registrationStore) Create(_ context.Context, r *model.Registration) error {
	if err := s.t.write(); err != nil {
		return err
	}
	r.ID = s.t.st.nextID(tableRegistrations)
	s.t.st.registrations[r.ID] = *r
	return nil
}

func (s registrationStore) GetByID(_ context.Context, id uint64) (model.Registration, error) {
	r, ok := s.t.st.registrations[id]
	if !ok {
		return model.Registration{}, repository.ErrNotFound
	}
	return r, nil
}

func (s registrationStore) GetForUpdate(ctx context.Context, id uint64) (model.Registration, error) {
	return s.GetByID(ctx, id)
}

func (s registrationStore) FindActiveByStudent(_ context.Context, studentID uint64) (model.Registration, error) {
	var found *model.Registration
	for _, r := range s.t.st.registrations {
		if r.StudentID == studentID && r.IsActive() && (found == nil || r.ID > found.ID) {
			found = &r
		}
	}
	if found == nil {
		return model.Registration{}, repository.ErrNotFound
	}
	return *found, nil
}

func (s registrationStore) UpdateStatus(_ context.Context, id uint64, from, to model.RegistrationStatus) error {
	if err := s.t.write(); err != nil {
		return err
	}
	r, ok := s.t.st.registrations[id]
	if !ok || r.Status != from {
		return repository.ErrConflict
	}
	r.Status = to
	s.t.st.registrations[id] = r
	return nil
}

func (s registrationStore) Delete(_ context.Context, id uint64, status model.RegistrationStatus) error {
	if err := s.t.write(); err != nil {
		return err
	}
	r, ok := s.t.st.registrations[id]
	if !ok || r.Status != status {
		return repository.ErrConflict
	}
	delete(s.t.st.registrations, id)
	return nil
}

func (s registrationStore) List(_ context.Context, f repository.ListFilter) ([]model.Registration, error) {
	var out []model.Registration
	for _, r := range s.t.st.registrations {
		if f.StudentID != 0 && r.StudentID != f.StudentID {
			continue
		}
		if f.Status != "" && string(r.Status) != f.Status {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Registration) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return page(out, f), nil
}

func (s registrationStore) CountByStatus(context.Context) (map[model.RegistrationStatus]int, error) {
	out := make(map[model.RegistrationStatus]int)
	for _, r := range s.t.st.registrations {
		out[r.Status]++
	}
	return out, nil
}

type contractStore struct{ t *tx }

func (s contractStore) joined(c model.Contract) model.Contract {
	reg := s.t.st.registrations[c.RegistrationID]
	c.StudentID, c.RoomID = reg.StudentID, reg.RoomID
	return c
}

func (s contractStore) Create(_ context.Context, c *model.Contract) error {
	if err := s.t.write(); err != nil {
		return err
	}
	for _, existing := range s.t.st.contracts {
		if existing.RegistrationID == c.RegistrationID {
			return repository.ErrConflict
		}
	}
	c.ID = s.t.st.nextID(tableContracts)
	c.Code = model.ContractCode(c.ID)
	s.t.st.contracts[c.ID] = *c
	*c = s.joined(*c)
	return nil
}

func (s contractStore) GetByID(_ context.Context, id uint64) (model.Contract, error) {
	c, ok := s.t.st.contracts[id]
	if !ok {
		return model.Contract{}, repository.ErrNotFound
	}
	return s.joined(c), nil
}

func (s contractStore) GetForUpdate(ctx context.Context, id uint64) (model.Contract, error) {
	return s.GetByID(ctx, id)
}

func (s contractStore) UpdateEndDate(_ context.Context, id uint64, oldEnd, newEnd time.Time) error {
	if err := s.t.write(); err != nil {
		return err
	}
	c, ok := s.t.st.contracts[id]
	if !ok || !c.EndDate.Equal(oldEnd) || c.IsTerminated() {
		return repository.ErrConflict
	}
	c.EndDate = newEnd
	s.t.st.contracts[id] = c
	return nil
}

func (s contractStore) MarkTerminated(_ context.Context, id uint64, end, at time.Time) error {
	if err := s.t.write(); err != nil {
		return err
	}
	c, ok := s.t.st.contracts[id]
	if !ok || c.IsTerminated() {
		return repository.ErrConflict
	}
	c.EndDate = end
	c.TerminatedAt = &at
	s.t.st.contracts[id] = c
	return nil
}

func (s contractStore) all() []model.Contract {
	out := make([]model.Contract, 0, len(s.t.st.contracts))
	for _, c := range s.t.st.contracts {
		out = append(out, s.joined(c))
	}
	return out
}

func (s contractStore) List(_ context.Context, f repository.ListFilter) ([]model.Contract, error) {
	var out []model.Contract
	for _, c := range s.all() {
		if f.StudentID != 0 && c.StudentID != f.StudentID {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b model.Contract) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return page(out, f), nil
}

func (s contractStore) ListEndingBetween(_ context.Context, from, to time.Time) ([]model.Contract, error) {
	var out []model.Contract
	for _, c := range s.all() {
		if c.IsTerminated() || c.EndDate.Before(from) || c.EndDate.After(to) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b model.Contract) int {
		return cmp.Or(a.EndDate.Compare(b.EndDate), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s contractStore) Counts(_ context.Context, today time.Time) (repository.ContractCounts, error) {
	var out repository.ContractCounts
	for _, c := range s.t.st.contracts {
		out.Total++
		if !c.IsTerminated() && c.IsActive(today) {
			out.Active++
		}
		if c.IsExpired(today) {
			out.Expired++
		}
		if c.IsTerminated() {
			out.Terminated++
		}
	}
	return out, nil
}

type paymentStore struct{ t *tx }

func (s paymentStore) joined(p model.Payment) model.Payment {
	c := s.t.st.contracts[p.ContractID]
	p.StudentID = s.t.st.registrations[c.RegistrationID].StudentID
	return p
}

func (s paymentStore) Create(_ context.Context, p *model.Payment) error {
	if err := s.t.write(); err != nil {
		return err
	}
	if _, ok := s.t.st.contracts[p.ContractID]; !ok {
		return repository.ErrNotFound
	}
	p.ID = s.t.st.nextID(tablePayments)
	s.t.st.payments[p.ID] = *p
	*p = s.joined(*p)
	return nil
}

func (s paymentStore) GetByID(_ context.Context, id uint64) (model.Payment, error) {
	p, ok := s.t.st.payments[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	return s.joined(p), nil
}

func (s paymentStore) GetForUpdate(ctx context.Context, id uint64) (model.Payment, error) {
	return s.GetByID(ctx, id)
}

func (s paymentStore) UpdateStatus(_ context.Context, id uint64, from, to model.PaymentStatus, confirmer *uint64) error {
	if err := s.t.write(); err != nil {
		return err
	}
	p, ok := s.t.st.payments[id]
	if !ok || p.Status != from {
		return repository.ErrConflict
	}
	p.Status = to
	p.ConfirmedBy = confirmer
	s.t.st.payments[id] = p
	return nil
}

func (s paymentStore) Update(_ context.Context, id uint64, ch model.PaymentChanges) error {
	if err := s.t.write(); err != nil {
		return err
	}
	p, ok := s.t.st.payments[id]
	if !ok || p.Status != model.PaymentPending {
		return repository.ErrConflict
	}
	if ch.Amount != nil {
		p.Amount = *ch.Amount
	}
	if ch.Method != nil {
		p.Method = *ch.Method
	}
	if ch.ProofRef != nil {
		v := *ch.ProofRef
		p.ProofRef = &v
	}
	s.t.st.payments[id] = p
	return nil
}

func (s paymentStore) sorted(keep func(model.Payment) bool, asc bool) []model.Payment {
	var out []model.Payment
	for _, p := range s.t.st.payments {
		p = s.joined(p)
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Payment) int {
		c := cmp.Or(a.PaymentDate.Compare(b.PaymentDate), cmp.Compare(a.ID, b.ID))
		if asc {
			return c
		}
		return -c
	})
	return out
}

func (s paymentStore) ListByContract(_ context.Context, contractID uint64) ([]model.Payment, error) {
	return s.sorted(func(p model.Payment) bool { return p.ContractID == contractID }, true), nil
}

func (s paymentStore) List(_ context.Context, f repository.ListFilter) ([]model.Payment, error) {
	out := s.sorted(func(p model.Payment) bool {
		if f.StudentID != 0 && p.StudentID != f.StudentID {
			return false
		}
		return f.Status == "" || string(p.Status) == f.Status
	}, false)
	return page(out, f), nil
}

func (s paymentStore) SumConfirmedBetween(_ context.Context, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range s.t.st.payments {
		if p.Status == model.PaymentConfirmed && !p.PaymentDate.Before(from) && p.PaymentDate.Before(to) {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (s paymentStore) Totals(context.Context) (repository.PaymentTotals, error) {
	out := repository.PaymentTotals{ConfirmedTotal: decimal.Zero, PendingTotal: decimal.Zero}
	for _, p := range s.t.st.payments {
		out.Count++
		switch p.Status {
		case model.PaymentPending:
			out.Pending++
			out.PendingTotal = out.PendingTotal.Add(p.Amount)
		case model.PaymentConfirmed:
			out.Confirmed++
			out.ConfirmedTotal = out.ConfirmedTotal.Add(p.Amount)
		case model.PaymentFailed:
			out.Failed++
		}
	}
	return out, nil
}

func (s paymentStore) CountPendingBefore(_ context.Context, t time.Time) (int, error) {
	n := 0
	for _, p := range s.t.st.payments {
		if p.Status == model.PaymentPending && p.PaymentDate.Before(t) {
			n++
		}
	}
	return n, nil
}

type ticketStore struct{ t *tx }

func (s ticketStore) Create(_ context.Context, t *model.MaintenanceTicket) error {
	if err := s.t.write(); err != nil {
		return err
	}
	t.ID = s.t.st.nextID(tableTickets)
	s.t.st.tickets[t.ID] = *t
	return nil
}

func (s ticketStore) GetByID(_ context.Context, id uint64) (model.MaintenanceTicket, error) {
	t, ok := s.t.st.tickets[id]
	if !ok {
		return model.MaintenanceTicket{}, repository.ErrNotFound
	}
	return t, nil
}

func (s ticketStore) GetForUpdate(ctx context.Context, id uint64) (model.MaintenanceTicket, error) {
	return s.GetByID(ctx, id)
}

func (s ticketStore) Update(_ context.Context, t model.MaintenanceTicket, from model.TicketStatus) error {
	if err := s.t.write(); err != nil {
		return err
	}
	cur, ok := s.t.st.tickets[t.ID]
	if !ok || cur.Status != from {
		return repository.ErrConflict
	}
	cur.Status = t.Status
	cur.AssigneeID = t.AssigneeID
	cur.CompletedDate = t.CompletedDate
	s.t.st.tickets[t.ID] = cur
	return nil
}

func (s ticketStore) List(_ context.Context, f repository.ListFilter) ([]model.MaintenanceTicket, error) {
	var out []model.MaintenanceTicket
	for _, t := range s.t.st.tickets {
		if f.StudentID != 0 && t.StudentID != f.StudentID {
			continue
		}
		if f.AssigneeID != 0 && !t.IsAssignedTo(f.AssigneeID) &&
			!(f.IncludeUnassigned && t.AssigneeID == nil && t.Status == model.TicketPending) {
			continue
		}
		if f.Status != "" && string(t.Status) != f.Status {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b model.MaintenanceTicket) int {
		return cmp.Or(b.RequestDate.Compare(a.RequestDate), cmp.Compare(b.ID, a.ID))
	})
	return page(out, f), nil
}

func (s ticketStore) CountByStatus(context.Context) (map[model.TicketStatus]int, error) {
	out := make(map[model.TicketStatus]int)
	for _, t := range s.t.st.tickets {
		out[t.Status]++
	}
	return out, nil
}

func (s ticketStore) CountPendingBefore(_ context.Context, before time.Time) (int, error) {
	n := 0
	for _, t := range s.t.st.tickets {
		if t.Status == model.TicketPending && t.RequestDate.Before(before) {
			n++
		}
	}
	return n, nil
}

type historyStore struct{ t *tx }

func (s historyStore) Append(_ context.Context, h *model.ContractHistory) error {
	if err := s.t.write(); err != nil {
		return err
	}
	h.ID = s.t.st.nextID(tableHistory)
	s.t.st.history = append(s.t.st.history, *h)
	return nil
}

func (s historyStore) ListByContract(_ context.Context, contractID uint64) ([]model.ContractHistory, error) {
	var out []model.ContractHistory
	for _, h := range s.t.st.history {
		if h.ContractID == contractID {
			out = append(out, h)
		}
	}
	return out, nil
}
