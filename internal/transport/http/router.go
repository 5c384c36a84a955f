package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/you/campus-resource-hub/internal/domain"
	"github.com/you/campus-resource-hub/internal/service"
	"github.com/you/campus-resource-hub/pkg/auth"
)

type Services struct {
	Bookings  *service.BookingSvc
	Messaging *service.MessagingSvc
	Resources *service.ResourceSvc
}

func NewRouter(tm *auth.TokenManager, svcs Services) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rh := NewResourceHandler(svcs.Resources)
	bh := NewBookingHandler(svcs.Bookings)
	mh := NewMessagingHandler(svcs.Messaging)

	v1 := r.Group("/v1")
	{
		v1.GET("/resources", rh.List)

		secured := v1.Group("")
		secured.Use(JWTAuth(tm))
		{
			secured.GET("/resources/:id", rh.Get)
			secured.POST("/resources",
				RequireRole(domain.RoleStaff, domain.RoleAdmin), rh.Create)
			secured.POST("/resources/:id/status",
				RequireRole(domain.RoleStaff, domain.RoleAdmin), rh.SetStatus)
			secured.GET("/resources/:id/bookings", bh.ForResource)

			secured.POST("/bookings", bh.Create)
			secured.GET("/bookings/my", bh.Mine)
			secured.GET("/bookings/approvals",
				RequireRole(domain.RoleStaff, domain.RoleAdmin), bh.Approvals)
			secured.GET("/bookings/export",
				RequireRole(domain.RoleAdmin), bh.Export)
			secured.GET("/bookings/:id", bh.Get)
			secured.GET("/bookings/:id/audit",
				RequireRole(domain.RoleAdmin), bh.Audit)
			secured.POST("/bookings/:id/approve", bh.Approve)
			secured.POST("/bookings/:id/reject", bh.Reject)
			secured.POST("/bookings/:id/cancel", bh.Cancel)
			secured.POST("/bookings/:id/complete", bh.Complete)

			secured.POST("/threads", mh.Start)
			secured.GET("/threads", mh.Inbox)
			secured.GET("/threads/:id/messages", mh.Messages)
			secured.POST("/threads/:id/messages", mh.Post)
			secured.GET("/threads/:id/messages/since", mh.Since)
		}
	}
	return r
}
