package artifacts

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/shared/server/middleware"
	"jobapplier-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches artifact routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/artifacts", h.generate)
	rg.GET("/artifacts", h.list)
	rg.GET("/artifacts/:id", h.get)
	rg.PUT("/artifacts/:id/content", h.updateContent)
	rg.PUT("/artifacts/:id/notes", h.updateNotes)
	rg.DELETE("/artifacts/:id", h.delete)
	rg.GET("/documents/:id/artifacts", h.listByDocument)
}

func (h *Handler) generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	if req.DocumentID == "" || req.TargetID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "documentId and targetId are required", nil)
		return
	}
	c.Set("documentId", req.DocumentID)
	c.Set("targetId", req.TargetID)

	res, err := h.Svc.Generate(c.Request.Context(), middleware.UserIDFromContext(c), req.DocumentID, req.TargetID, req.Hint)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("artifactId", res.Artifact.ID)

	status := http.StatusCreated
	if res.AlreadyExists {
		status = http.StatusOK
	}
	respond.JSON(c, status, GenerateResponse{ArtifactResponse: toResponse(res.Artifact), AlreadyExists: res.AlreadyExists})
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.ListByOwner(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponses(items))
}

func (h *Handler) listByDocument(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	items, err := h.Svc.ListByDocument(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponses(items))
}

func (h *Handler) get(c *gin.Context) {
	c.Set("artifactId", c.Param("id"))
	artifact, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(artifact))
}

func (h *Handler) updateContent(c *gin.Context) {
	c.Set("artifactId", c.Param("id"))
	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	artifact, err := h.Svc.UpdateContent(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Content)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(artifact))
}

func (h *Handler) updateNotes(c *gin.Context) {
	c.Set("artifactId", c.Param("id"))
	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	artifact, err := h.Svc.AddNotes(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Notes)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(artifact))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("artifactId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
