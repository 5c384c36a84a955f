package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/service"
)

type MessagingHandler struct {
	svc *service.MessagingSvc
}

func NewMessagingHandler(s *service.MessagingSvc) *MessagingHandler {
	return &MessagingHandler{svc: s}
}

type messageJSON struct {
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"` // RFC3339Nano, the poll cutoff currency
}

func toMessageJSON(m *domain.Message) messageJSON {
	return messageJSON{
		MessageID:  m.ID,
		ThreadID:   m.ThreadID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

func toMessageList(list []domain.Message) []messageJSON {
	out := make([]messageJSON, 0, len(list))
	for i := range list {
		out = append(out, toMessageJSON(&list[i]))
	}
	return out
}

// POST /v1/threads
func (h *MessagingHandler) Start(c *gin.Context) {
	var in struct {
		ContextType string  `json:"context_type" binding:"required"`
		ContextID   *string `json:"context_id"`
		ReceiverID  string  `json:"receiver_id" binding:"required"`
		Content     string  `json:"content" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, m, err := h.svc.Start(c.Request.Context(), actorFrom(c),
		domain.ThreadContext(in.ContextType), in.ContextID, in.ReceiverID, in.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"thread_id":     t.ID,
		"context_type":  t.ContextType,
		"context_id":    t.ContextID,
		"created_by":    t.CreatedBy,
		"created_at":    t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"first_message": toMessageJSON(m),
	})
}

// GET /v1/threads
func (h *MessagingHandler) Inbox(c *gin.Context) {
	summaries, err := h.svc.Inbox(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		row := gin.H{
			"thread_id":     s.Thread.ID,
			"context_type":  s.Thread.ContextType,
			"context_id":    s.Thread.ContextID,
			"created_by":    s.Thread.CreatedBy,
			"created_at":    s.Thread.CreatedAt.UTC().Format(time.RFC3339Nano),
			"message_count": s.MessageCount,
		}
		if s.LastActivity != nil {
			row["last_activity"] = s.LastActivity.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

// GET /v1/threads/:id/messages
func (h *MessagingHandler) Messages(c *gin.Context) {
	list, err := h.svc.Messages(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toMessageList(list))
}

// POST /v1/threads/:id/messages
func (h *MessagingHandler) Post(c *gin.Context) {
	var in struct {
		ReceiverID string `json:"receiver_id"`
		Content    string `json:"content" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.Post(c.Request.Context(), actorFrom(c), c.Param("id"), in.ReceiverID, in.Content)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageJSON(m))
}

// GET /v1/threads/:id/messages/since?ts=RFC3339Nano
//
// Returns messages strictly after ts, ascending by (timestamp, id). An
// empty array is a valid response; a missing ts is the caller's bug.
func (h *MessagingHandler) Since(c *gin.Context) {
	raw := c.Query("ts")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ts query parameter required"})
		return
	}
	cutoff, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		cutoff, err = time.Parse(time.RFC3339, raw)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ts must be RFC3339"})
		return
	}
	list, err := h.svc.MessagesSince(c.Request.Context(), actorFrom(c), c.Param("id"), cutoff)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toMessageList(list))
}
