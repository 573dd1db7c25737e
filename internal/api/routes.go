package api

import (
	"alcyxob/bmi-tracker/internal/auth"
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/metrics"
	"alcyxob/bmi-tracker/internal/service"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Services bundles what the handlers call.
type Services struct {
	Auth       service.AuthService
	BMI        service.BMIService
	Export     service.ExportService
	DietPlan   service.DietPlanService
	Stats      service.StatsService
	Instructor service.InstructorService
}

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	Sessions     *auth.Sessions
	Cookie       CookieOptions
	LoginLimiter *RateLimiter // nil disables login rate limiting
	Logger       *slog.Logger
}

// NewRouter builds the engine with the global middleware chain and all routes.
func NewRouter(cfg RouterConfig, services Services) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		RequestID(),
		Recovery(logger),
		RequestLogger(logger),
		metrics.Middleware(),
		SessionMiddleware(cfg.Sessions, cfg.Cookie.Name),
	)

	SetupRoutes(router, cfg, services)
	return router
}

func SetupRoutes(router *gin.Engine, cfg RouterConfig, services Services) {
	authHandler := NewAuthHandler(services.Auth, cfg.Cookie)
	bmiHandler := NewBMIHandler(services.BMI, services.Export)
	dietPlanHandler := NewDietPlanHandler(services.DietPlan)
	instructorHandler := NewInstructorHandler(services.Instructor, services.Stats)

	requireUser := RequireCapability(domain.CapabilityUser)
	requireInstructor := RequireCapability(domain.CapabilityInstructor)

	loginLimit := func(c *gin.Context) { c.Next() }
	if cfg.LoginLimiter != nil {
		loginLimit = cfg.LoginLimiter.Middleware()
	}

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", loginLimit, authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authHandler.Me)
		authGroup.POST("/instructor-login", loginLimit, authHandler.InstructorLogin)
	}

	bmiGroup := api.Group("/bmi")
	bmiGroup.Use(requireUser)
	{
		bmiGroup.POST("", bmiHandler.Submit)
		bmiGroup.GET("/history", bmiHandler.History)
		bmiGroup.GET("/history/export", bmiHandler.ExportHistory)
	}

	// user and instructor routes share the prefix, so capability is per route
	dietPlanGroup := api.Group("/diet-plan")
	{
		dietPlanGroup.POST("/create", requireInstructor, dietPlanHandler.Create)
		dietPlanGroup.GET("/user/:userId", requireInstructor, dietPlanHandler.ListByUser)
		dietPlanGroup.GET("/all", requireInstructor, dietPlanHandler.ListAll)
		dietPlanGroup.PUT("/:planId", requireInstructor, dietPlanHandler.Update)
		dietPlanGroup.PUT("/:planId/deactivate", requireInstructor, dietPlanHandler.Deactivate)

		dietPlanGroup.GET("/my-plan", requireUser, dietPlanHandler.MyPlan)
		dietPlanGroup.GET("/my-plans", requireUser, dietPlanHandler.MyPlans)
	}

	instructorGroup := api.Group("/instructor")
	instructorGroup.Use(requireInstructor)
	{
		instructorGroup.GET("/stats", instructorHandler.Stats)
		instructorGroup.GET("/all-users", instructorHandler.AllUsers)
		instructorGroup.GET("/user/:userId/bmi-history", instructorHandler.UserHistory)
	}
}
