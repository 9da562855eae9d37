package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velachio/habitsync/internal/cloud/http/middleware"
	"github.com/velachio/habitsync/internal/cloud/services"
	core "github.com/velachio/habitsync/internal/core/domain"
)

type SyncHandler struct {
	svc *services.SyncService
}

func NewSyncHandler(svc *services.SyncService) *SyncHandler {
	return &SyncHandler{
		svc: svc,
	}
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/habits/sync", h.SyncHabits)
	router.POST("/logs/sync", h.SyncLogs)
}

func (h *SyncHandler) SyncHabits(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing user identity"})
		return
	}

	var habits []core.Habit
	if err := c.ShouldBindJSON(&habits); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	tempIDs, canonical, err := h.svc.SyncHabits(c.Request.Context(), userID, habits)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "habit sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "habits synced",
		"payload": gin.H{
			"tempIds":   tempIDs,
			"allHabits": canonical,
		},
	})
}

func (h *SyncHandler) SyncLogs(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing user identity"})
		return
	}

	var logs []core.HabitLog
	if err := c.ShouldBindJSON(&logs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	canonical, err := h.svc.SyncLogs(c.Request.Context(), userID, logs)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "log sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "logs synced",
		"payload": gin.H{
			"allLogs": canonical,
		},
	})
}
