package api

import (
	"parking_reservation/internal/api/handler"
	"parking_reservation/internal/api/middleware"
	"parking_reservation/internal/domain"
	"parking_reservation/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	as *service.AuthService,
	ps *service.ParkingService,
	rs *service.ReservationService,
	es *service.ExportService,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/api/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/profile", authMw.Authenticate(), authHandler.Profile)
	}

	lotHandler := handler.NewParkingLotHandler(ps)
	reservationHandler := handler.NewReservationHandler(rs, ps)
	exportHandler := handler.NewExportHandler(es)

	admin := r.Group("/api/admin")
	admin.Use(authMw.Authenticate(), authMw.AuthorizeRole(domain.RoleAdmin))
	{
		admin.GET("/dashboard", lotHandler.Dashboard)
		admin.GET("/users", authHandler.ListUsers)

		admin.POST("/lots", lotHandler.CreateLot)
		admin.GET("/lots", lotHandler.ListLots)
		admin.GET("/lots/:id", lotHandler.GetLot)
		admin.PATCH("/lots/:id", lotHandler.UpdateLot)
		admin.DELETE("/lots/:id", lotHandler.DeleteLot)
		admin.GET("/lots/:id/spots", lotHandler.ListSpots)

		admin.GET("/reservations", reservationHandler.ListAll)
	}

	user := r.Group("/api/user")
	user.Use(authMw.Authenticate(), authMw.AuthorizeRole(domain.RoleUser))
	{
		user.GET("/lots", reservationHandler.ListLots)
		user.POST("/reserve", reservationHandler.Reserve)
		user.POST("/release/:id", reservationHandler.Release)
		user.GET("/reservations", reservationHandler.ListOwn)

		user.POST("/exports", exportHandler.RequestExport)
		user.GET("/exports", exportHandler.ListExports)
		user.GET("/exports/:id/download", exportHandler.Download)
	}

	return r
}
