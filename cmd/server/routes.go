package main

import (
	"diet-management-backend/auth"
	"diet-management-backend/internal/anamnesis"
	"diet-management-backend/internal/energy"
	"diet-management-backend/internal/mealplan"
	"diet-management-backend/internal/middleware"
	"diet-management-backend/internal/patient"
	"diet-management-backend/internal/user"
	"diet-management-backend/internal/validation"
	"diet-management-backend/redis"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newRouter(a *app, revocations *redis.RevocationStore) *gin.Engine {
	if !a.cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.Register()

	tokens := auth.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.AccessTokenTTL, a.cfg.RefreshTokenTTL)
	authMiddleware := (&middleware.Auth{
		UserService: a.userService,
		Tokens:      tokens,
		Revocations: revocations,
	}).AuthMiddleWare()

	// Initialize handler
	userHandler := user.NewHandler(a.userService, tokens, revocations, a.cfg.IsProduction(), a.log)
	patientHandler := patient.NewHandler(a.patientService)
	mealPlanHandler := mealplan.NewHandler(a.mealPlanService())
	anamnesisHandler := anamnesis.NewHandler(a.anamnesisService())
	energyHandler := energy.NewHandler(a.energyService())

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(a.log),
		middleware.Recovery(a.log),
		middleware.ErrorHandler(a.log),
	)

	// cors setting
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}
	if a.cfg.IsDev() {
		// credentials forbid a literal "*", so every origin is echoed back
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = []string{a.cfg.FrontendAddress}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// User routes
	router.POST("/register", userHandler.Register)
	router.POST("/login", userHandler.Login)
	router.POST("/refresh", userHandler.RefreshToken)
	router.DELETE("/logout", authMiddleware, userHandler.Logout)
	router.GET("/profile", authMiddleware, userHandler.GetProfile)

	router.GET("/energy-calculations/formulas", energyHandler.Formulas)

	patients := router.Group("/patients", authMiddleware)
	patients.POST("", patientHandler.Create)
	patients.GET("", patientHandler.List)
	patients.GET("/:patientId", patientHandler.Show)
	patients.PUT("/:patientId", patientHandler.Update)
	patients.DELETE("/:patientId", patientHandler.Delete)

	patients.POST("/:patientId/meal-plans", mealPlanHandler.Create)
	patients.GET("/:patientId/meal-plans", mealPlanHandler.List)
	patients.PATCH("/:patientId/meal-plans/:itemId", mealPlanHandler.Patch)
	patients.DELETE("/:patientId/meal-plans/:itemId", mealPlanHandler.Delete)

	patients.POST("/:patientId/anamnesis", anamnesisHandler.Create)
	patients.GET("/:patientId/anamnesis", anamnesisHandler.List)
	patients.PATCH("/:patientId/anamnesis/:itemId", anamnesisHandler.Patch)

	patients.POST("/:patientId/energy-calculations", energyHandler.Create)
	patients.GET("/:patientId/energy-calculations", energyHandler.List)
	patients.PATCH("/:patientId/energy-calculations/:itemId", energyHandler.Patch)
	patients.DELETE("/:patientId/energy-calculations/:itemId", energyHandler.Delete)

	return router
}
