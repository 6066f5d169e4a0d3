package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/db"
	"github.com/civicdesk/backend/internal/models"
	"github.com/civicdesk/backend/internal/registry"
	"github.com/civicdesk/backend/internal/service"
)

type Handler struct {
	Store       *db.Store
	Coordinator *service.Coordinator
	Registry    *registry.Registry
	Logger      zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unreachable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ItemDetails(c *gin.Context) {
	item, err := h.Store.FindItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrItemNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Work item not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load work item", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *Handler) UnitsList(c *gin.Context) {
	snap := h.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"units":     snap.Units,
		"loaded_at": snap.LoadedAt,
	})
}

func (h *Handler) UnitWorkload(c *gin.Context) {
	wl, err := h.Coordinator.GetWorkload(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrUnitNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Handling unit not found", nil)
			return
		}
		var werr *service.WorkloadError
		if errors.As(err, &werr) {
			writeError(c, http.StatusBadGateway, "WORKLOAD_UNAVAILABLE", "Workload query failed", werr.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "INTERNAL", "Workload lookup failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, wl)
}

func (h *Handler) AssignItem(c *gin.Context) {
	h.runAssignment(c, h.Coordinator.AssignItem)
}

func (h *Handler) ForceReassign(c *gin.Context) {
	h.runAssignment(c, h.Coordinator.ForceReassign)
}

func (h *Handler) runAssignment(c *gin.Context, run func(context.Context, string) (*models.Assignment, error)) {
	itemID := c.Param("id")
	assignment, err := run(c.Request.Context(), itemID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemNotFound):
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Work item not found", nil)
		case errors.Is(err, service.ErrAlreadyAssigned):
			writeError(c, http.StatusConflict, "ALREADY_ASSIGNED", "Work item already has an assignment", nil)
		default:
			var werr *service.WorkloadError
			if errors.As(err, &werr) {
				writeError(c, http.StatusBadGateway, "WORKLOAD_UNAVAILABLE", "Could not evaluate unit workload", werr.Error())
				return
			}
			h.Logger.Error().Err(err).Str("item_id", itemID).Msg("assignment failed")
			writeError(c, http.StatusInternalServerError, "ASSIGNMENT_FAILED", "Assignment failed", err.Error())
		}
		return
	}

	if assignment == nil {
		c.JSON(http.StatusOK, gin.H{
			"assigned": false,
			"reason":   "NO_MATCHING_UNIT",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"assigned":   true,
		"assignment": assignment,
	})
}

func (h *Handler) RefreshRegistry(c *gin.Context) {
	if err := h.Registry.Refresh(c.Request.Context()); err != nil {
		writeError(c, http.StatusBadGateway, "REGISTRY_REFRESH_FAILED", "Unit load failed, previous snapshot retained", err.Error())
		return
	}
	snap := h.Registry.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"units":     len(snap.Units),
		"loaded_at": snap.LoadedAt,
	})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
