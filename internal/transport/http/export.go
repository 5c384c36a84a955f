package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// Export writes every booking to an xlsx workbook for offline reporting.
// GET /v1/bookings/export (admin)
func (h *BookingHandler) Export(c *gin.Context) {
	list, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}

	f := excelize.NewFile()
	const sheet = "Bookings"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"ID", "Resource", "Requester", "Start", "End", "Status", "Notes", "Created", "Updated"}
	for col, name := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for row, b := range list {
		values := []any{
			b.ID,
			b.ResourceID,
			b.RequesterID,
			b.StartTime.UTC().Format(time.RFC3339),
			b.EndTime.UTC().Format(time.RFC3339),
			string(b.Status),
			b.ApprovalNotes,
			b.CreatedAt.UTC().Format(time.RFC3339),
			b.UpdatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="bookings.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
