package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/tutoring-backend/internal/config"
	"github.com/ignatzorin/tutoring-backend/internal/http/handlers"
	"github.com/ignatzorin/tutoring-backend/internal/http/middleware"
	"github.com/ignatzorin/tutoring-backend/internal/service"
)

// Handlers - все обработчики API.
type Handlers struct {
	Health         *handlers.HealthHandler
	Availability   *handlers.AvailabilityHandler
	Bookings       *handlers.BookingHandler
	Schedules      *handlers.ScheduleHandler
	ChangeRequests *handlers.ChangeRequestHandler
	ClassRequests  *handlers.ClassRequestHandler
	Payments       *handlers.PaymentHandler
	Withdrawals    *handlers.WithdrawalHandler
	Notifications  *handlers.NotificationHandler
	Reports        *handlers.ReportHandler
	Admin          *handlers.AdminHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokenManager *service.TokenManager) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokenManager))
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	tutorOnly := middleware.RequireRole(service.RoleTutor)
	learnerOnly := middleware.RequireRole(service.RoleLearner)

	// Доступность преподавателя
	api.POST("/availabilities", tutorOnly, h.Availability.CreateAvailability)
	api.GET("/availabilities/:id", middleware.UUIDValidator("id"), h.Availability.GetAvailability)
	api.PATCH("/availabilities/:id/status", tutorOnly, middleware.UUIDValidator("id"), h.Availability.UpdateAvailabilityStatus)
	api.DELETE("/availabilities/:id", tutorOnly, middleware.UUIDValidator("id"), h.Availability.DeleteAvailability)
	api.GET("/tutors/:id/availabilities", middleware.UUIDValidator("id"), h.Availability.ListTutorAvailability)

	// Бронирования
	api.POST("/bookings", learnerOnly, h.Bookings.CreateBooking)
	api.GET("/bookings", h.Bookings.ListBookings)
	api.GET("/bookings/:id", middleware.UUIDValidator("id"), h.Bookings.GetBooking)
	api.POST("/bookings/:id/pay", learnerOnly, middleware.UUIDValidator("id"), h.Bookings.PayBooking)
	api.POST("/bookings/:id/cancel", middleware.UUIDValidator("id"), h.Bookings.CancelBooking)
	api.POST("/bookings/:id/schedules", middleware.UUIDValidator("id"), h.Bookings.CreateSchedule)
	api.POST("/bookings/:id/refunds", learnerOnly, middleware.UUIDValidator("id"), h.Bookings.RequestRefund)
	api.GET("/bookings/:id/refunds", middleware.UUIDValidator("id"), h.Bookings.ListRefunds)

	// Занятия
	api.GET("/schedules/:id", middleware.UUIDValidator("id"), h.Schedules.GetSchedule)
	api.PATCH("/schedules/:id/status", middleware.UUIDValidator("id"), h.Schedules.UpdateScheduleStatus)
	api.POST("/schedules/:id/cancel", middleware.UUIDValidator("id"), h.Schedules.CancelSchedule)
	api.GET("/schedules/:id/confirmation", middleware.UUIDValidator("id"), h.Schedules.GetConfirmation)
	api.POST("/schedules/:id/confirm", learnerOnly, middleware.UUIDValidator("id"), h.Schedules.ConfirmCompletion)
	api.POST("/schedules/:id/reports", middleware.UUIDValidator("id"), h.Schedules.FileReport)
	api.POST("/schedules/:id/change-requests", middleware.UUIDValidator("id"), h.ChangeRequests.CreateChangeRequest)

	// Переносы
	api.GET("/change-requests/:id", middleware.UUIDValidator("id"), h.ChangeRequests.GetChangeRequest)
	api.POST("/change-requests/:id/approve", middleware.UUIDValidator("id"), h.ChangeRequests.ApproveChangeRequest)
	api.POST("/change-requests/:id/reject", middleware.UUIDValidator("id"), h.ChangeRequests.RejectChangeRequest)

	// Заявки на занятия
	api.POST("/class-requests", learnerOnly, h.ClassRequests.CreateClassRequest)
	api.GET("/class-requests", learnerOnly, h.ClassRequests.ListClassRequests)
	api.POST("/class-requests/:id/close", learnerOnly, middleware.UUIDValidator("id"), h.ClassRequests.CloseClassRequest)

	// Кошелёк и вывод средств
	api.GET("/wallet", h.Payments.GetBalance)
	api.POST("/wallet/deposit", h.Payments.Deposit)
	api.GET("/wallet/transactions", h.Payments.ListTransactions)
	api.POST("/withdrawals", h.Withdrawals.CreateWithdrawal)
	api.GET("/withdrawals", h.Withdrawals.ListWithdrawals)
	api.GET("/withdrawals/:id", middleware.UUIDValidator("id"), h.Withdrawals.GetWithdrawal)

	// Уведомления
	api.GET("/notifications", h.Notifications.ListNotifications)
	api.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notifications.MarkAsRead)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(service.RoleAdmin))
	{
		admin.PATCH("/availabilities/:id/status", middleware.UUIDValidator("id"), h.Admin.OverrideAvailability)
		admin.GET("/payouts/:id", middleware.UUIDValidator("id"), h.Admin.GetPayout)
		admin.POST("/payouts/:id/cancel", middleware.UUIDValidator("id"), h.Admin.CancelPayout)
		admin.POST("/refunds/:id/approve", middleware.UUIDValidator("id"), h.Admin.ApproveRefund)
		admin.POST("/refunds/:id/reject", middleware.UUIDValidator("id"), h.Admin.RejectRefund)
		admin.POST("/withdrawals/:id/complete", middleware.UUIDValidator("id"), h.Admin.CompleteWithdrawal)
		admin.POST("/withdrawals/:id/reject", middleware.UUIDValidator("id"), h.Admin.RejectWithdrawal)
		admin.GET("/reports/:id", middleware.UUIDValidator("id"), h.Reports.GetReport)
		admin.POST("/reports/:id/resolve", middleware.UUIDValidator("id"), h.Reports.ResolveReport)
		admin.GET("/wallets", h.Admin.PlatformWallets)
	}

	return r
}
