package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/material-submission-api/internal/handler"
	"github.com/noah-isme/material-submission-api/internal/middleware"
	"github.com/noah-isme/material-submission-api/internal/models"
	"github.com/noah-isme/material-submission-api/pkg/config"
)

type routeHandlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	profiles    *handler.ReferenceHandler[models.Profile]
	stages      *handler.ReferenceHandler[models.SchoolStage]
	subjects    *handler.ReferenceHandler[models.Subject]
	statuses    *handler.ReferenceHandler[models.SubmissionStatus]
	submissions *handler.SubmissionHandler
	mail        *handler.MailHandler
	tokens      middleware.TokenValidator
}

func registerRoutes(api *gin.RouterGroup, cfg *config.Config, h routeHandlers) {
	managers := middleware.RequireProfiles(cfg.Admin.ManagerProfiles...)
	managersOrSelf := middleware.RequireProfiles(append([]string{middleware.Self}, cfg.Admin.ManagerProfiles...)...)

	auth := api.Group("/auth")
	auth.POST("/login", h.auth.Login)
	auth.POST("/refresh", h.auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(h.tokens))

	secured.POST("/auth/logout", h.auth.Logout)
	secured.POST("/auth/change-password", h.auth.ChangePassword)

	h.profiles.Register(secured.Group("/profiles"), managers)
	h.stages.Register(secured.Group("/school-stages"), managers)
	h.subjects.Register(secured.Group("/subjects"), managers)
	h.statuses.Register(secured.Group("/submission-statuses"), managers)

	users := secured.Group("/users")
	users.GET("/me", h.users.Me)
	users.GET("", managers, h.users.List)
	users.POST("", managers, h.users.Create)
	users.POST("/create-teacher", managers, h.users.CreateTeacher)
	users.GET("/:id", managersOrSelf, h.users.Get)
	users.PUT("/:id", managers, h.users.Update)
	users.PATCH("/:id", managersOrSelf, h.users.Patch)
	users.DELETE("/:id", managers, h.users.Delete)
	users.POST("/:id/verify-password", managersOrSelf, h.users.VerifyPassword)

	submissions := secured.Group("/submissions")
	submissions.GET("", h.submissions.List)
	submissions.GET("/by-user", h.submissions.ByUser)
	submissions.GET("/by-period", h.submissions.ByPeriod)
	submissions.GET("/pending", h.submissions.Pending)
	submissions.GET("/overdue", h.submissions.Overdue)
	submissions.GET("/stats", h.submissions.Stats)
	submissions.GET("/export", h.submissions.Export)
	submissions.POST("", h.submissions.Create)
	submissions.GET("/:id", h.submissions.Get)
	submissions.PUT("/:id", h.submissions.Update)
	submissions.PATCH("/:id", h.submissions.Patch)
	submissions.DELETE("/:id", managers, h.submissions.Delete)
	submissions.POST("/:id/restore", managers, h.submissions.Restore)
	submissions.POST("/:id/validate", managers, h.submissions.Validate)
	submissions.POST("/:id/change-status", managers, h.submissions.ChangeStatus)

	secured.POST("/mail/attachments", h.mail.SendAttachment)
}
