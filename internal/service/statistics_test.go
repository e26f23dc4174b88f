package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
)

func (s *LifecycleSuite) TestDashboard() {
	quad := s.room(s.mixedBuilding, s.quadType)
	var first Approval
	for i := range 4 {
		_, out := s.admit(quad)
		if i == 0 {
			first = out
		}
	}
	s.admit(s.room(s.mixedBuilding, s.twinType))
	waiting := s.student(model.GenderMale)
	_, err := s.svc.Registrations.Create(s.ctx, waiting, s.room(s.mixedBuilding, s.twinType))
	s.Require().NoError(err)
	_, err = s.svc.Payments.Confirm(s.ctx, s.admin, first.Payment.ID)
	s.Require().NoError(err)
	s.newTicket(waiting)

	d, err := s.svc.Statistics.Dashboard(s.ctx)
	s.Require().NoError(err)

	// The ticket helper adds a fourth room.
	s.Equal(4, d.Rooms.Total)
	s.Equal(1, d.Rooms.Full)
	s.Equal(25.0, d.OccupancyRate)
	s.Equal(12, d.Rooms.Beds)
	s.Equal(5, d.Rooms.Residents)
	s.Equal(41.67, d.BedOccupancyRate)

	s.Equal(5, d.Registrations[model.RegistrationApproved])
	s.Equal(1, d.Registrations[model.RegistrationPending])
	s.Equal(5, d.Contracts.Total)
	s.Equal(5, d.Contracts.Active)
	s.Equal(1, d.Payments.Confirmed)
	s.Equal(4, d.Payments.Pending)
	s.Equal(1, d.Maintenance.Pending)
	s.Equal(s.now, d.GeneratedAt)

	s.Require().Len(d.MonthlyRevenue, RevenueMonths)
	s.Equal("2023-10", d.MonthlyRevenue[0].Month)
	last := d.MonthlyRevenue[RevenueMonths-1]
	s.Equal("2024-03", last.Month)
	s.True(last.Amount.Equal(decimal.NewFromInt(1500000)), last.Amount.String())
	for _, m := range d.MonthlyRevenue[:RevenueMonths-1] {
		s.True(m.Amount.IsZero(), m.Month)
	}
}

func (s *LifecycleSuite) TestDashboardEmpty() {
	d, err := s.svc.Statistics.Dashboard(s.ctx)
	s.Require().NoError(err)
	s.Zero(d.OccupancyRate)
	s.Zero(d.BedOccupancyRate)
	s.Len(d.MonthlyRevenue, RevenueMonths)

	alerts, err := s.svc.Statistics.Alerts(s.ctx)
	s.Require().NoError(err)
	s.Empty(alerts)
}

func alertCounts(alerts []Alert) map[string]int {
	out := make(map[string]int, len(alerts))
	for _, a := range alerts {
		out[a.Type] = a.Count
	}
	return out
}

func (s *LifecycleSuite) TestAlerts() {
	twin := s.room(s.mixedBuilding, s.twinType)
	s.admit(twin)
	s.admit(twin)
	waiting := s.student(model.GenderMale)
	_, err := s.svc.Registrations.Create(s.ctx, waiting, s.room(s.mixedBuilding, s.quadType))
	s.Require().NoError(err)
	s.newTicket(waiting)

	alerts, err := s.svc.Statistics.Alerts(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[string]int{
		"pending_maintenance":   1,
		"rooms_at_capacity":     1,
		"pending_registrations": 1,
	}, alertCounts(alerts))

	s.now = s.now.AddDate(0, 0, StalePaymentDays+1)
	alerts, err = s.svc.Statistics.Alerts(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, alertCounts(alerts)["stale_pending_payments"])

	// Both contracts end on 2025-03-10.
	s.now = time.Date(2025, time.February, 20, 8, 0, 0, 0, time.UTC)
	counts := s.currentAlerts()
	s.Equal(2, counts["contracts_expiring_30d"])
	s.NotContains(counts, "contracts_expiring_7d")

	s.now = time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)
	counts = s.currentAlerts()
	s.Equal(2, counts["contracts_expiring_30d"])
	s.Equal(2, counts["contracts_expiring_7d"])

	s.now = time.Date(2025, time.March, 11, 8, 0, 0, 0, time.UTC)
	counts = s.currentAlerts()
	s.NotContains(counts, "contracts_expiring_30d")
	s.NotContains(counts, "contracts_expiring_7d")
}

func (s *LifecycleSuite) currentAlerts() map[string]int {
	alerts, err := s.svc.Statistics.Alerts(s.ctx)
	s.Require().NoError(err)
	for _, a := range alerts {
		s.NotEmpty(a.Message)
		s.Contains([]string{AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical}, a.Severity)
	}
	return alertCounts(alerts)
}

func (s *LifecycleSuite) TestResidentsGaugeFollowsOccupancy() {
	twin := s.room(s.mixedBuilding, s.twinType)
	s.admit(twin)
	_, out := s.admit(twin)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Residents))

	_, err := s.svc.Contracts.Terminate(s.ctx, s.admin, out.Contract.ID, "moved out")
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Residents))

	s.metrics.SetResidents(40)
	s.Require().NoError(s.svc.Rooms.SyncResidents(s.ctx))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Residents))

	s.metrics.SetResidents(40)
	_, err = s.svc.Statistics.Dashboard(s.ctx)
	s.Require().NoError(err)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Residents))
}
