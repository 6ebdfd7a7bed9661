package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phFolio/internal/api/middleware"
	"phFolio/internal/auth"
	"phFolio/internal/config"
	"phFolio/internal/resume"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient ObjectStorage,
) {
	store := resume.NewStore(db)

	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL(), cfg.API.CookieDomain)
	profileHandler := NewProfileHandler(db, logger)
	portfolioHandler := NewPortfolioHandler(db, logger)
	projectHandler := NewProjectHandler(db, store, logger)
	resumeHandler := NewResumeHandler(db, store, logger)
	friendHandler := NewFriendHandler(db, asynqClient, logger)
	assetHandler := NewAssetHandler(db, storageClient, redisClient, logger, cfg.Upload)
	publicHandler := NewPublicHandler(db, store, storageClient, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.Origins())

	authMiddleware := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		v1.GET("/profile", authMiddleware, profileHandler.GetProfile)
		v1.PUT("/profile", authMiddleware, profileHandler.UpdateProfile)

		v1.GET("/portfolio", authMiddleware, portfolioHandler.GetPortfolio)
		v1.PUT("/portfolio", authMiddleware, portfolioHandler.UpdatePortfolio)

		projectGroup := v1.Group("/projects")
		projectGroup.Use(authMiddleware)
		{
			projectGroup.GET("", projectHandler.ListProjects)
			projectGroup.POST("", projectHandler.CreateProject)
			projectGroup.PUT("/reorder", projectHandler.ReorderProjects)
			projectGroup.PUT("/:id", projectHandler.UpdateProject)
			projectGroup.DELETE("/:id", projectHandler.DeleteProject)
		}

		resumeGroup := v1.Group("/resume")
		resumeGroup.Use(authMiddleware)
		{
			resumeGroup.GET("", resumeHandler.GetResume)
			resumeGroup.PUT("/work", resumeHandler.UpdateWork)
			resumeGroup.PUT("/education", resumeHandler.UpdateEducation)
			resumeGroup.PUT("/awards", resumeHandler.UpdateAwards)
			resumeGroup.PUT("/certifications", resumeHandler.UpdateCertifications)
			resumeGroup.PUT("/languages", resumeHandler.UpdateLanguages)
		}

		friendGroup := v1.Group("/friends")
		friendGroup.Use(authMiddleware)
		{
			friendGroup.GET("", friendHandler.List)
			friendGroup.POST("/requests", friendHandler.SendRequest)
			friendGroup.POST("/requests/:id/accept", friendHandler.Accept)
			friendGroup.POST("/requests/:id/reject", friendHandler.Reject)
		}
		v1.GET("/users/search", authMiddleware, friendHandler.SearchUsers)

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}

		publicGroup := v1.Group("/p")
		publicGroup.Use(optionalAuth)
		{
			publicGroup.GET("/:username", publicHandler.GetPortfolioPage)
			publicGroup.GET("/:username/resume", publicHandler.GetResumePage)
			publicGroup.GET("/:username/projects/:id", publicHandler.GetProjectPage)
		}
	}
}
