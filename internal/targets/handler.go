package targets

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/shared/server/middleware"
	"jobapplier-backend/internal/shared/server/respond"
)

const maxImageBody = MaxImageBytes + 1<<20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches target routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/targets", h.submit)
	rg.GET("/targets", h.list)
	rg.GET("/targets/:id", h.get)
	rg.PUT("/targets/:id/text", h.updateText)
	rg.PUT("/targets/:id/labels", h.updateLabels)
	rg.DELETE("/targets/:id", h.delete)
}

func (h *Handler) submit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var in SubmitInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBody)
		fileHeader, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(c, http.StatusBadRequest, "validation_error", "image exceeds maximum size", nil)
				return
			}
			respond.Error(c, http.StatusBadRequest, "validation_error", "image is required", nil)
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read image", nil)
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read image", nil)
			return
		}
		in = SubmitInput{
			Image:    data,
			FileName: fileHeader.Filename,
			Title:    c.PostForm("title"),
			Company:  c.PostForm("company"),
		}
	} else {
		var req SubmitTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
			return
		}
		in = SubmitInput{Text: req.Text, Title: req.Title, Company: req.Company}
	}

	target, err := h.Svc.Submit(c.Request.Context(), userID, in)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.Set("targetId", target.ID)
	respond.JSON(c, http.StatusCreated, toResponse(target))
}

func (h *Handler) get(c *gin.Context) {
	c.Set("targetId", c.Param("id"))
	target, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(target))
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	resp := make([]TargetResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}
	respond.OK(c, resp)
}

func (h *Handler) updateText(c *gin.Context) {
	c.Set("targetId", c.Param("id"))
	var req UpdateTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	target, err := h.Svc.UpdateText(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Text)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(target))
}

func (h *Handler) updateLabels(c *gin.Context) {
	c.Set("targetId", c.Param("id"))
	var req UpdateLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	target, err := h.Svc.UpdateLabels(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Title, req.Company)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	respond.OK(c, toResponse(target))
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("targetId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
