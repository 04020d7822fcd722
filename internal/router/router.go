package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pochaneco/ai-Knowledge-api/internal/handler"
	"github.com/pochaneco/ai-Knowledge-api/internal/middleware"
)

type Deps struct {
	DB               *gorm.DB
	JWTSecret        string
	AuthHandler      *handler.AuthHandler
	ProjectHandler   *handler.ProjectHandler
	KnowledgeHandler *handler.KnowledgeHandler
}

func Setup(r *gin.Engine, deps Deps) {
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api/v1")

	// Public routes (no auth)
	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.POST("/login", deps.AuthHandler.Login)
		auth.GET("/verify-email", deps.AuthHandler.VerifyEmail)
		auth.POST("/resend-verification", deps.AuthHandler.ResendVerification)
		auth.POST("/password-reset/request", deps.AuthHandler.RequestPasswordReset)
		auth.POST("/password-reset", deps.AuthHandler.ResetPassword)
		auth.POST("/google", deps.AuthHandler.GoogleLogin)
	}

	// The mailed invitation token is the credential here; the invitee may
	// not have a session yet (or any account at all).
	api.POST("/invitations/accept", deps.ProjectHandler.AcceptInvitation)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.DB))
	{
		authed.GET("/auth/me", deps.AuthHandler.GetMe)

		projects := authed.Group("/projects")
		{
			projects.GET("", deps.ProjectHandler.List)
			projects.POST("", deps.ProjectHandler.Create)
			projects.GET("/:id", deps.ProjectHandler.GetDetail)
			projects.PUT("/:id", deps.ProjectHandler.Update)
			projects.DELETE("/:id", deps.ProjectHandler.Delete)
			projects.GET("/:id/members", deps.ProjectHandler.ListMembers)
			projects.POST("/:id/members", deps.ProjectHandler.AddMember)
			projects.DELETE("/:id/members/:user_id", deps.ProjectHandler.RemoveMember)
			projects.POST("/:id/invitations", deps.ProjectHandler.Invite)
			projects.GET("/:id/invitations", deps.ProjectHandler.ListInvitations)

			projects.POST("/:id/knowledge", deps.KnowledgeHandler.Create)
			projects.GET("/:id/knowledge", deps.KnowledgeHandler.List)
			projects.GET("/:id/knowledge/:kb_id", deps.KnowledgeHandler.Get)
			projects.PUT("/:id/knowledge/:kb_id", deps.KnowledgeHandler.Update)
			projects.DELETE("/:id/knowledge/:kb_id", deps.KnowledgeHandler.Delete)
			projects.GET("/:id/search", deps.KnowledgeHandler.Search)
		}
	}
}
