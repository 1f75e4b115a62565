// Package handler provides the HTTP handlers of the admin API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"provider-sync-service/internal/app/service"
	"provider-sync-service/internal/domain"
	"provider-sync-service/internal/transport/httpserver/dto"
	"provider-sync-service/internal/validator"
)

// SyncManager runs providers.
// Implementations: service.ProviderManager
type SyncManager interface {
	Synchronize(ctx context.Context, req service.Request) (*domain.RunReport, error)
	SynchronizeVenueProvider(ctx context.Context, venueProviderID int64, limit int) (*domain.RunReport, error)
	SynchronizeAll(ctx context.Context) []*domain.RunReport
	Providers() []domain.ProviderName
}

// ProviderLister lists provider records.
type ProviderLister interface {
	ListProviders(ctx context.Context) ([]*domain.Provider, error)
}

// EventReader reads the sync event log.
type EventReader interface {
	List(ctx context.Context, provider domain.ProviderName, limit int) ([]domain.SyncEvent, error)
}

// ThumbnailReader reads the thumbnails stored during syncs.
// Implementations: internal/infra/redis ThumbnailStore
type ThumbnailReader interface {
	Get(ctx context.Context, kind domain.EntityKind, id int64, index int) ([]byte, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	manager   SyncManager
	providers ProviderLister
	events    EventReader
	thumbs    ThumbnailReader
	validator *validator.Validator
	logger    *zap.Logger

	// background is the parent context of async runs.
	background context.Context
}

// NewAdminHandler creates a new AdminHandler. Async runs are cancelled with
// background. thumbs is nil when thumbnails are disabled.
func NewAdminHandler(
	background context.Context,
	manager SyncManager,
	providers ProviderLister,
	events EventReader,
	thumbs ThumbnailReader,
	v *validator.Validator,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		manager:    manager,
		providers:  providers,
		events:     events,
		thumbs:     thumbs,
		validator:  v,
		logger:     logger,
		background: background,
	}
}

// Sync handles POST /api/v1/admin/sync
//
// With ?async=true the run is started in the background and 202 is returned;
// a rejected run is then only logged.
func (h *AdminHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: "invalid request body",
				Code:  "INVALID_BODY",
			})
		}
	}
	if err := h.validator.Validate(&req); err != nil {
		return writeError(c, err)
	}

	run := func(ctx context.Context) (any, error) {
		if req.IsSyncAll() {
			return dto.FromRunReports(h.manager.SynchronizeAll(ctx)), nil
		}
		if req.Provider == "" {
			report, err := h.manager.SynchronizeVenueProvider(ctx, *req.VenueProviderID, req.Limit)
			if err != nil {
				return nil, err
			}
			return dto.FromRunReport(report), nil
		}

		report, err := h.manager.Synchronize(ctx, service.Request{
			Provider: domain.ProviderName(req.Provider),
			Scope:    req.Scope(),
			Limit:    req.Limit,
		})
		if err != nil {
			return nil, err
		}
		return dto.FromRunReport(report), nil
	}

	h.logger.Info("manual sync triggered",
		zap.String("provider", req.Provider),
		zap.Bool("all", req.IsSyncAll()),
		zap.Bool("async", c.QueryBool("async")),
	)

	if c.QueryBool("async") {
		go func() {
			if _, err := run(h.background); err != nil {
				h.logger.Warn("async sync rejected", zap.String("provider", req.Provider), zap.Error(err))
			}
		}()

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "started"})
	}

	resp, err := run(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(resp)
}

// SyncVenueProvider handles POST /api/v1/admin/venue-providers/:id/sync
func (h *AdminHandler) SyncVenueProvider(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "venue provider id must be a positive integer",
			Code:  "INVALID_ID",
		})
	}

	var req dto.VenueProviderSyncRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  "INVALID_QUERY",
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		return writeError(c, err)
	}

	h.logger.Info("manual venue provider sync triggered", zap.Int("venue_provider_id", id))

	report, err := h.manager.SynchronizeVenueProvider(c.UserContext(), int64(id), req.Limit)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.FromRunReport(report))
}

// GetProviders handles GET /api/v1/admin/providers
func (h *AdminHandler) GetProviders(c *fiber.Ctx) error {
	providers, err := h.providers.ListProviders(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.FromProviders(providers, h.manager.Providers()))
}

// GetSyncEvents handles GET /api/v1/admin/sync-events
func (h *AdminHandler) GetSyncEvents(c *fiber.Ctx) error {
	var req dto.SyncEventsRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  "INVALID_QUERY",
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		return writeError(c, err)
	}

	events, err := h.events.List(c.UserContext(), domain.ProviderName(req.Provider), req.Limit)
	if err != nil {
		return writeError(c, err)
	}
	if events == nil {
		events = []domain.SyncEvent{}
	}

	return c.JSON(dto.SyncEventsResponse{Events: events})
}

// GetThumbnail handles GET /api/v1/admin/thumbnails/:kind/:id/:index
func (h *AdminHandler) GetThumbnail(c *fiber.Ctx) error {
	var req dto.ThumbnailRequest
	if err := c.ParamsParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid path parameters",
			Code:  "INVALID_PATH",
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		return writeError(c, err)
	}
	if h.thumbs == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "thumbnails are disabled",
			Code:  "THUMBNAILS_DISABLED",
		})
	}

	data, err := h.thumbs.Get(c.UserContext(), domain.EntityKind(req.Kind), req.ID, req.Index)
	if err != nil {
		return writeError(c, err)
	}
	if data == nil {
		return writeError(c, &domain.NotFoundError{Entity: "thumbnail", Key: req.String()})
	}

	c.Set(fiber.HeaderContentType, http.DetectContentType(data))
	return c.Send(data)
}

// writeError maps service errors to HTTP statuses.
func writeError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	var businessErr *domain.BusinessRuleError
	var syncingErr *domain.ScopeSyncingError

	status, code := fiber.StatusInternalServerError, "INTERNAL_ERROR"
	var details interface{}

	switch {
	case errors.As(err, &validationErrs):
		status, code, details = fiber.StatusBadRequest, "VALIDATION_FAILED", validationErrs
	case errors.Is(err, domain.ErrUnknownProvider):
		status, code = fiber.StatusNotFound, "UNKNOWN_PROVIDER"
	case domain.IsNotFound(err):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.As(err, &syncingErr):
		status, code = fiber.StatusConflict, "ALREADY_SYNCING"
		details = dto.SyncingDetails{Scope: syncingErr.Scope, Holder: syncingErr.Holder}
	case errors.Is(err, domain.ErrScopeAlreadySyncing):
		status, code = fiber.StatusConflict, "ALREADY_SYNCING"
	case errors.Is(err, domain.ErrProviderInactive):
		status, code = fiber.StatusConflict, "PROVIDER_INACTIVE"
	case errors.As(err, &businessErr):
		status, code = fiber.StatusUnprocessableEntity, "INVALID_SCOPE"
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   err.Error(),
		Code:    code,
		Details: details,
	})
}
