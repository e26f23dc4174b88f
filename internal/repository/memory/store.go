// Package memory is an in-process implementation of the repository
// contracts. A single writer lock serialises transactions and each
// transaction works on a copy of the state that replaces the committed
// state only when the transaction function succeeds.
package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

var errReadOnly = errors.New("memory: write in read-only transaction")

// table names an id sequence. Each table counts from 1 on its own, as
// AUTO_INCREMENT does.
type table int

const (
	tableBuildings table = iota
	tableRoomTypes
	tableRooms
	tableUsers
	tableRegistrations
	tableContracts
	tablePayments
	tableTickets
	tableHistory
)

type state struct {
	buildings     map[uint64]model.Building
	roomTypes     map[uint64]model.RoomType
	rooms         map[uint64]model.Room
	users         map[uint64]model.User
	registrations map[uint64]model.Registration
	contracts     map[uint64]model.Contract
	payments      map[uint64]model.Payment
	tickets       map[uint64]model.MaintenanceTicket
	history       []model.ContractHistory
	seq           map[table]uint64
}

func newState() *state {
	return &state{
		buildings:     map[uint64]model.Building{},
		roomTypes:     map[uint64]model.RoomType{},
		rooms:         map[uint64]model.Room{},
		users:         map[uint64]model.User{},
		registrations: map[uint64]model.Registration{},
		contracts:     map[uint64]model.Contract{},
		payments:      map[uint64]model.Payment{},
		tickets:       map[uint64]model.MaintenanceTicket{},
		seq:           map[table]uint64{},
	}
}

func (s *state) clone() *state {
	return &state{
		buildings:     maps.Clone(s.buildings),
		roomTypes:     maps.Clone(s.roomTypes),
		rooms:         maps.Clone(s.rooms),
		users:         maps.Clone(s.users),
		registrations: maps.Clone(s.registrations),
		contracts:     maps.Clone(s.contracts),
		payments:      maps.Clone(s.payments),
		tickets:       maps.Clone(s.tickets),
		history:       append([]model.ContractHistory(nil), s.history...),
		seq:           maps.Clone(s.seq),
	}
}

func (s *state) nextID(t table) uint64 {
	s.seq[t]++
	return s.seq[t]
}

// assign returns id, or a fresh one from t's sequence when id is zero,
// keeping the sequence ahead of every explicitly chosen id.
func (s *state) assign(t table, id uint64) uint64 {
	if id == 0 {
		return s.nextID(t)
	}
	if id > s.seq[t] {
		s.seq[t] = id
	}
	return id
}

// Store implements repository.UnitOfWork in memory.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore returns an empty Store.
func NewStore() *Store { return &Store{state: newState()} }

// Within runs fn on a private copy of the state and publishes the copy
// when fn returns nil.
func (s *Store) Within(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// View runs fn against the last committed state.
func (s *Store) View(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()
	return fn(&tx{st: st, readOnly: true})
}

// seed applies fn to a copy of the committed state and publishes it,
// so readers holding the previous state never see a partial write.
func (s *Store) seed(fn func(st *state) uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	id := fn(work)
	s.state = work
	return id
}

// AddBuilding seeds a building and returns its id.
func (s *Store) AddBuilding(b model.Building) uint64 {
	return s.seed(func(st *state) uint64 {
		b.ID = st.assign(tableBuildings, b.ID)
		st.buildings[b.ID] = b
		return b.ID
	})
}

// AddRoomType seeds a room type and returns its id.
func (s *Store) AddRoomType(t model.RoomType) uint64 {
	return s.seed(func(st *state) uint64 {
		t.ID = st.assign(tableRoomTypes, t.ID)
		st.roomTypes[t.ID] = t
		return t.ID
	})
}

// AddRoom seeds a room and returns its id.
func (s *Store) AddRoom(r model.Room) uint64 {
	return s.seed(func(st *state) uint64 {
		r.ID = st.assign(tableRooms, r.ID)
		st.rooms[r.ID] = r
		return r.ID
	})
}

// AddUser seeds a directory entry and returns its id.
func (s *Store) AddUser(u model.User) uint64 {
	return s.seed(func(st *state) uint64 {
		u.ID = st.assign(tableUsers, u.ID)
		st.users[u.ID] = u
		return u.ID
	})
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) write() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *tx) Rooms() repository.RoomStore                 { return roomStore{t} }
func (t *tx) Users() repository.UserStore                 { return userStore{t} }
func (t *tx) Registrations() repository.RegistrationStore { return registrationStore{t} }
func (t *tx) Contracts() repository.ContractStore         { return contractStore{t} }
func (t *tx) Payments() repository.PaymentStore           { return paymentStore{t} }
func (t *tx) Tickets() repository.TicketStore             { return ticketStore{t} }
func (t *tx) History() repository.HistoryStore            { return historyStore{t} }

// page applies the filter's limit and offset to an already sorted slice.
func page[T any](items []T, f repository.ListFilter) []T {
	limit, offset := f.Page()
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
