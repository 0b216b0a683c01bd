package router

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/dock-scheduler/board"
	"github.com/yeremiapane/dock-scheduler/controllers"
	"github.com/yeremiapane/dock-scheduler/middlewares"
	"github.com/yeremiapane/dock-scheduler/services"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	DB          *gorm.DB
	Docks       *services.DockService
	Bookings    *services.BookingService
	Metrics     *services.MetricsService
	Drivers     *services.DriverDirectory
	Auth        *services.AuthService
	Hub         *board.Hub
	POGateway   controllers.Pinger
	RateLimiter *middlewares.RateLimiter
	AllowOrigin string
	Release     bool
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.RequestID())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders(d.Release))
	r.Use(middlewares.CORSMiddlewares(d.AllowOrigin))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	healthCtrl := controllers.NewHealthController(d.DB, d.POGateway)
	dockCtrl := controllers.NewDockController(d.Docks, d.Metrics)
	bookingCtrl := controllers.NewBookingController(d.Bookings, d.Bookings.Policy.Location)
	driverCtrl := controllers.NewDriverController(d.Drivers)
	authCtrl := controllers.NewAuthController(d.Auth, d.Bookings)
	boardCtrl := controllers.NewBoardController(d.Hub, d.AllowOrigin)

	r.GET("/", healthCtrl.Welcome)
	r.GET("/ping", healthCtrl.Ping)

	docks := r.Group("/docks")
	{
		handleBoth(docks, "POST", dockCtrl.CreateDock)
		handleBoth(docks, "GET", dockCtrl.ListDocks)
		docks.GET("/:dock_id", dockCtrl.GetDock)
		docks.PUT("/:dock_id", dockCtrl.UpdateDock)
		docks.DELETE("/:dock_id", dockCtrl.DeleteDock)
	}

	bookings := r.Group("/bookings")
	{
		handleBoth(bookings, "POST", bookingCtrl.CreateBooking)
		handleBoth(bookings, "GET", bookingCtrl.ListBookings)
		bookings.GET("/validate-po", bookingCtrl.ValidatePO)
		bookings.GET("/:booking_id", bookingCtrl.GetBooking)
		bookings.PUT("/:booking_id", bookingCtrl.UpdateBooking)
	}

	drivers := r.Group("/drivers")
	{
		handleBoth(drivers, "GET", driverCtrl.ListDrivers)
	}

	auth := r.Group("/auth/driver")
	{
		auth.POST("/signup", authCtrl.Signup)
		auth.POST("/login", authCtrl.Login)

		protected := auth.Group("")
		protected.Use(middlewares.DriverAuth(d.Auth))
		protected.GET("/me", authCtrl.Me)
		protected.GET("/bookings", authCtrl.MyBookings)
		protected.POST("/logout", authCtrl.Logout)
	}

	r.GET("/board/ws", boardCtrl.Subscribe)

	return r
}

// handleBoth registers the collection route with and without the trailing
// slash so neither form needs a redirect.
func handleBoth(g *gin.RouterGroup, method string, h gin.HandlerFunc) {
	g.Handle(method, "", h)
	g.Handle(method, "/", h)
}
