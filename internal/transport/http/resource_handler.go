package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/service"
)

type ResourceHandler struct {
	svc *service.ResourceSvc
}

func NewResourceHandler(s *service.ResourceSvc) *ResourceHandler {
	return &ResourceHandler{svc: s}
}

type resourceJSON struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Category         string `json:"category"`
	Location         string `json:"location,omitempty"`
	Capacity         int32  `json:"capacity"`
	RequiresApproval bool   `json:"requires_approval"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

func toResourceJSON(r *domain.Resource) resourceJSON {
	return resourceJSON{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		Location:         r.Location,
		Capacity:         r.Capacity,
		RequiresApproval: r.RequiresApproval,
		Status:           string(r.Status),
		CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// POST /v1/resources (staff/admin)
func (h *ResourceHandler) Create(c *gin.Context) {
	var in struct {
		Title            string `json:"title" binding:"required"`
		Description      string `json:"description"`
		Category         string `json:"category" binding:"required"`
		Location         string `json:"location"`
		Capacity         int32  `json:"capacity"`
		RequiresApproval bool   `json:"requires_approval"`
		Status           string `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Create(c.Request.Context(), actorFrom(c), domain.Resource{
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		Location:         in.Location,
		Capacity:         in.Capacity,
		RequiresApproval: in.RequiresApproval,
		Status:           domain.ResourceStatus(in.Status),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResourceJSON(res))
}

// GET /v1/resources?category=
func (h *ResourceHandler) List(c *gin.Context) {
	list, err := h.svc.ListPublished(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]resourceJSON, 0, len(list))
	for i := range list {
		out = append(out, toResourceJSON(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

// GET /v1/resources/:id
func (h *ResourceHandler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toResourceJSON(res))
}

// POST /v1/resources/:id/status {status}
func (h *ResourceHandler) SetStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required,oneof=draft published archived"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.SetStatus(c.Request.Context(), actorFrom(c), c.Param("id"), domain.ResourceStatus(in.Status)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
