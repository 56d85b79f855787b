package app

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/revisia/revisia-backend/internal/handlers"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/register", handlerset.Auth.Register)
	router.POST("/api/login", handlerset.Auth.Login)
	// Refresh authenticates by the refresh token itself, not the access
	// token, so it stays outside RequireAuth.
	router.POST("/api/refresh", handlerset.Auth.Refresh)

	// Protected
	protected := router.Group("/api")
	protected.Use(mw.Auth.RequireAuth())

	protected.POST("/logout", handlerset.Auth.Logout)
	protected.GET("/user", handlerset.User.GetMe)

	protected.POST("/folders", handlerset.Folder.Create)
	protected.GET("/folders", handlerset.Folder.List)
	protected.PATCH("/folders/:folderId", handlerset.Folder.Rename)
	protected.DELETE("/folders/:folderId", handlerset.Folder.Delete)

	protected.POST("/syntheses", handlerset.Synthese.Create)
	protected.GET("/syntheses", handlerset.Synthese.List)
	protected.GET("/syntheses/:syntheseId", handlerset.Synthese.Get)
	protected.PATCH("/syntheses/:syntheseId", handlerset.Synthese.Update)
	protected.DELETE("/syntheses/:syntheseId", handlerset.Synthese.Delete)

	revision := protected.Group("/syntheses/:syntheseId/revision")
	revision.GET("", handlerset.Revision.GetSession)
	revision.POST("", handlerset.Revision.StartSession)
	revision.DELETE("", handlerset.Revision.StopSession)
	revision.POST("/sync", handlerset.Revision.SyncSession)
	revision.POST("/recall", handlerset.Revision.SubmitRecall)
	revision.POST("/compare", handlerset.Revision.RunComparison)
	revision.POST("/advance", handlerset.Revision.AdvanceIteration)
	revision.POST("/complete", handlerset.Revision.CompleteSession)
	revision.GET("/completions/count", handlerset.Revision.GetCompletionCount)

	return router
}
