// Package handler adapts the lifecycle services to HTTP. Handlers parse
// input, call exactly one service operation and map its result to JSON.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/middleware"
	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/repository"
	"github.com/iliyamo/dormitory-occupancy/internal/service"
)

// Handlers bundles one handler per lifecycle component.
type Handlers struct {
	Registrations *RegistrationHandler
	Contracts     *ContractHandler
	Payments      *PaymentHandler
	Maintenance   *MaintenanceHandler
	Statistics    *StatisticsHandler
}

// New builds every handler over svc and panics if svc is nil.
func New(svc *service.Services, logger *slog.Logger) *Handlers {
	if svc == nil {
		panic("nil services passed to handler.New")
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := base{svc: svc, logger: logger}
	return &Handlers{
		Registrations: &RegistrationHandler{b},
		Contracts:     &ContractHandler{b},
		Payments:      &PaymentHandler{b},
		Maintenance:   &MaintenanceHandler{b},
		Statistics:    &StatisticsHandler{b},
	}
}

type base struct {
	svc    *service.Services
	logger *slog.Logger
}

// fail writes err as a JSON error with the status matching its kind.
// Internal failures are logged and their detail is not exposed.
func (b base) fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) || se.Kind == service.KindInternal {
		b.logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(statusOf(se.Kind), echo.Map{"error": se.Message, "kind": se.Kind})
}

func statusOf(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindPermissionDenied:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// getActor returns the caller authenticated by middleware.JWTAuth.
func getActor(c echo.Context) (model.Actor, bool) {
	return middleware.ActorFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// listFilter reads the status, limit and offset query parameters.
func listFilter(c echo.Context) (repository.ListFilter, bool) {
	f := repository.ListFilter{Status: c.QueryParam("status")}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, false
		}
		*dst = n
	}
	return f, true
}

func items[T any](c echo.Context, list []T) error {
	if list == nil {
		list = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list, "count": len(list)})
}

func item(c echo.Context, status int, v any) error {
	return c.JSON(status, echo.Map{"item": v})
}
