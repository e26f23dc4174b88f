package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
)

// Alert thresholds.
const (
	RevenueMonths         = 6
	StalePaymentDays      = 7
	ContractWarningDays   = 30
	ContractCriticalDays  = 7
	AlertSeverityInfo     = "info"
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// StatisticsAggregator builds read-side rollups. Nothing is cached;
// every call reads the current state.
type StatisticsAggregator struct {
	*deps
}

// MonthlyRevenue is the confirmed revenue of one calendar month.
type MonthlyRevenue struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// Dashboard is the combined rollup shown to administrators.
type Dashboard struct {
	Rooms            repository.RoomSummary           `json:"rooms"`
	OccupancyRate    float64                          `json:"occupancy_rate"`
	BedOccupancyRate float64                          `json:"bed_occupancy_rate"`
	Registrations    map[model.RegistrationStatus]int `json:"registrations"`
	Contracts        ContractStatistics               `json:"contracts"`
	Payments         repository.PaymentTotals         `json:"payments"`
	Maintenance      TicketStatistics                 `json:"maintenance"`
	MonthlyRevenue   []MonthlyRevenue                 `json:"monthly_revenue"`
	GeneratedAt      time.Time                        `json:"generated_at"`
}

// Alert is one threshold that currently has matching records.
type Alert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// Dashboard computes every rollup from one read snapshot.
func (a *StatisticsAggregator) Dashboard(ctx context.Context) (Dashboard, error) {
	now := a.clock()
	today := model.DateOf(now)
	out := Dashboard{GeneratedAt: now}
	err := a.uow.View(ctx, func(tx repository.Tx) error {
		var err error
		if out.Rooms, err = tx.Rooms().Summary(ctx); err != nil {
			return err
		}
		out.OccupancyRate = percent(out.Rooms.Full, out.Rooms.Total)
		out.BedOccupancyRate = percent(out.Rooms.Residents, out.Rooms.Beds)

		if out.Registrations, err = tx.Registrations().CountByStatus(ctx); err != nil {
			return err
		}
		if out.Contracts, err = contractStatistics(ctx, tx, today); err != nil {
			return err
		}
		if out.Payments, err = tx.Payments().Totals(ctx); err != nil {
			return err
		}
		if out.Maintenance, err = ticketStatistics(ctx, tx, now); err != nil {
			return err
		}
		out.MonthlyRevenue, err = monthlyRevenue(ctx, tx, today, RevenueMonths)
		return err
	})
	if err != nil {
		return Dashboard{}, a.reject(ctx, "statistics.dashboard", storeErr(err, "statistics"))
	}
	a.metrics.SetResidents(out.Rooms.Residents)
	return out, nil
}

// monthlyRevenue sums confirmed payments for each of the last n
// calendar months including the current one, oldest first.
func monthlyRevenue(ctx context.Context, tx repository.Tx, today time.Time, n int) ([]MonthlyRevenue, error) {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthlyRevenue, 0, n)
	for i := n - 1; i >= 0; i-- {
		from := model.AddMonthsClamped(first, -i)
		to := model.AddMonthsClamped(from, 1)
		sum, err := tx.Payments().SumConfirmedBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, MonthlyRevenue{Month: from.Format("2006-01"), Amount: sum})
	}
	return out, nil
}

// Alerts evaluates each threshold independently and returns those with
// at least one matching record.
func (a *StatisticsAggregator) Alerts(ctx context.Context) ([]Alert, error) {
	now := a.clock()
	today := model.DateOf(now)
	var out []Alert
	add := func(typ, severity string, count int, format string) {
		if count > 0 {
			out = append(out, Alert{Type: typ, Severity: severity, Count: count, Message: fmt.Sprintf(format, count)})
		}
	}
	err := a.uow.View(ctx, func(tx repository.Tx) error {
		tickets, err := tx.Tickets().CountByStatus(ctx)
		if err != nil {
			return err
		}
		add("pending_maintenance", AlertSeverityWarning, tickets[model.TicketPending],
			"%d maintenance requests are waiting for assignment")

		critical, err := tx.Contracts().ListEndingBetween(ctx, today, today.AddDate(0, 0, ContractCriticalDays))
		if err != nil {
			return err
		}
		add("contracts_expiring_7d", AlertSeverityCritical, len(critical),
			"%d contracts expire within 7 days")

		warning, err := tx.Contracts().ListEndingBetween(ctx, today, today.AddDate(0, 0, ContractWarningDays))
		if err != nil {
			return err
		}
		add("contracts_expiring_30d", AlertSeverityWarning, len(warning),
			"%d contracts expire within 30 days")

		stale, err := tx.Payments().CountPendingBefore(ctx, now.AddDate(0, 0, -StalePaymentDays))
		if err != nil {
			return err
		}
		add("stale_pending_payments", AlertSeverityWarning, stale,
			"%d payments have been pending for more than 7 days")

		rooms, err := tx.Rooms().Summary(ctx)
		if err != nil {
			return err
		}
		add("rooms_at_capacity", AlertSeverityInfo, rooms.Full, "%d rooms are at full capacity")

		regs, err := tx.Registrations().CountByStatus(ctx)
		if err != nil {
			return err
		}
		add("pending_registrations", AlertSeverityInfo, regs[model.RegistrationPending],
			"%d registrations are waiting for approval")
		return nil
	})
	if err != nil {
		return nil, a.reject(ctx, "statistics.alerts", storeErr(err, "statistics"))
	}
	return out, nil
}

// percent returns part/whole as a percentage rounded to two decimals.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}
