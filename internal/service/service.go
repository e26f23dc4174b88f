// Package service implements the occupancy lifecycle: room inventory,
// registrations, contracts, payments, maintenance tickets and the
// read-side statistics built over them. Every multi-entity transition
// runs inside one repository unit of work; domain events are published
// only after it commits.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/dormitory-occupancy/internal/metrics"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/queue"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// EventPublisher hands committed domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type deps struct {
	uow       repository.UnitOfWork
	logger    *slog.Logger
	publisher EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(d *deps)

func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) {
		d.logger = logger
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(d *deps) {
		d.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) {
		d.metrics = m
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		d.now = now
	}
}

// Services groups the lifecycle components. It is built once at startup
// and shared by reference.
type Services struct {
	Rooms         *RoomInventory
	Registrations *RegistrationWorkflow
	Contracts     *ContractLifecycle
	Payments      *PaymentLedger
	Maintenance   *MaintenanceWorkflow
	Statistics    *StatisticsAggregator
}

// New wires every component over the given unit of work.
func New(uow repository.UnitOfWork, opts ...Option) *Services {
	d := &deps{uow: uow, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	rooms := &RoomInventory{deps: d}
	payments := &PaymentLedger{deps: d}
	return &Services{
		Rooms:         rooms,
		Registrations: &RegistrationWorkflow{deps: d, rooms: rooms, payments: payments},
		Contracts:     &ContractLifecycle{deps: d, rooms: rooms},
		Payments:      payments,
		Maintenance:   &MaintenanceWorkflow{deps: d},
		Statistics:    &StatisticsAggregator{deps: d},
	}
}

func (d *deps) clock() time.Time { return d.now().UTC() }

func (d *deps) today() time.Time { return model.DateOf(d.now()) }

// publish sends ev after commit. The transition already happened, so a
// broker failure is logged and counted but never returned.
func (d *deps) publish(ctx context.Context, ev queue.Event) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		d.metrics.IncrementPublishFailures()
		d.logger.WarnContext(ctx, "event publish failed", "event", ev.EventType(), "error", err)
	}
}

// reject records a refused operation and returns err unchanged.
func (d *deps) reject(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	d.metrics.IncrementRejected(op, string(kind))
	if kind == KindInternal {
		d.logger.ErrorContext(ctx, op+" failed", "error", err)
	} else {
		d.logger.DebugContext(ctx, op+" rejected", "kind", kind, "error", err)
	}
	return err
}

func requirePrivileged(actor model.Actor, action string) error {
	if !actor.IsPrivileged() {
		return forbidden("only administrators can %s", action)
	}
	return nil
}
