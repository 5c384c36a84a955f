package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/service"
)

type BookingHandler struct {
	svc *service.BookingSvc
}

func NewBookingHandler(s *service.BookingSvc) *BookingHandler {
	return &BookingHandler{svc: s}
}

type bookingJSON struct {
	ID            string `json:"id"`
	ResourceID    string `json:"resource_id"`
	RequesterID   string `json:"requester_id"`
	StartISO      string `json:"start_iso"`
	EndISO        string `json:"end_iso"`
	Status        string `json:"status"`
	ApprovalNotes string `json:"approval_notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func toBookingJSON(b *domain.Booking) bookingJSON {
	return bookingJSON{
		ID:            b.ID,
		ResourceID:    b.ResourceID,
		RequesterID:   b.RequesterID,
		StartISO:      b.StartTime.UTC().Format(time.RFC3339),
		EndISO:        b.EndTime.UTC().Format(time.RFC3339),
		Status:        string(b.Status),
		ApprovalNotes: b.ApprovalNotes,
		CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBookingList(list []domain.Booking) []bookingJSON {
	out := make([]bookingJSON, 0, len(list))
	for i := range list {
		out = append(out, toBookingJSON(&list[i]))
	}
	return out
}

// POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var in struct {
		ResourceID string `json:"resource_id" binding:"required"`
		StartISO   string `json:"start_iso" binding:"required"` // RFC3339
		EndISO     string `json:"end_iso"   binding:"required"` // RFC3339
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.svc.Request(c.Request.Context(), actorFrom(c), in.ResourceID, in.StartISO, in.EndISO)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingJSON(b))
}

// GET /v1/bookings/:id
func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b))
}

// GET /v1/bookings/my
func (h *BookingHandler) Mine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingList(list))
}

// GET /v1/resources/:id/bookings (owner/admin)
func (h *BookingHandler) ForResource(c *gin.Context) {
	list, err := h.svc.ListForResource(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingList(list))
}

// GET /v1/bookings/approvals (staff/admin)
func (h *BookingHandler) Approvals(c *gin.Context) {
	list, err := h.svc.PendingApprovals(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingList(list))
}

type notesIn struct {
	Notes string `json:"notes"`
}

// POST /v1/bookings/:id/approve
func (h *BookingHandler) Approve(c *gin.Context) {
	var in notesIn
	_ = c.ShouldBindJSON(&in)
	b, err := h.svc.Approve(c.Request.Context(), actorFrom(c), c.Param("id"), in.Notes)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b))
}

// POST /v1/bookings/:id/reject
func (h *BookingHandler) Reject(c *gin.Context) {
	var in notesIn
	_ = c.ShouldBindJSON(&in)
	b, err := h.svc.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), in.Notes)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b))
}

// POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	b, err := h.svc.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b))
}

// POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	b, err := h.svc.Complete(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingJSON(b))
}

// GET /v1/bookings/:id/audit (admin)
func (h *BookingHandler) Audit(c *gin.Context) {
	entries, err := h.svc.AuditTrail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"actor_id":    e.ActorID,
			"from_status": e.FromStatus,
			"to_status":   e.ToStatus,
			"notes":       e.Notes,
			"at":          e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}
