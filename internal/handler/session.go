package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickpick/api/internal/coordinator"
	"github.com/quickpick/api/internal/middleware"
	"github.com/quickpick/api/internal/selection"
	"github.com/quickpick/api/internal/session"
)

type SessionHandler struct {
	coord *coordinator.Coordinator
}

func NewSessionHandler(coord *coordinator.Coordinator) *SessionHandler {
	return &SessionHandler{coord: coord}
}

type createSessionRequest struct {
	HostName string             `json:"hostName" binding:"required"`
	Geo      *session.GeoParams `json:"geo"`
}

type setOptionsRequest struct {
	Options []selection.Option `json:"options" binding:"required"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_name", "error": "hostName is required"})
		return
	}

	sess, err := h.coord.CreateSession(c.Request.Context(), req.HostName, req.Geo)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.RecordSessionCreated()
	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) Get(c *gin.Context) {
	snapshot, err := h.coord.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *SessionHandler) SetOptions(c *gin.Context) {
	var req setOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "empty_options", "error": "options are required"})
		return
	}

	if err := h.coord.SetOptions(c.Request.Context(), c.Param("code"), req.Options); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(req.Options)})
}

func (h *SessionHandler) Results(c *gin.Context) {
	results, err := h.coord.GetResults(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.coord.DeleteSession(c.Request.Context(), c.Param("code")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
