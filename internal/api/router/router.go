package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"laborgrow/internal/api/handler"
	"laborgrow/internal/api/middleware"
	"laborgrow/internal/authsvc"
	"laborgrow/internal/config"
)

// RegisterRoutes wires every endpoint onto the server. Handlers are
// constructed by the caller and injected here.
func RegisterRoutes(
	h *server.Hertz,
	cfg *config.Config,
	authProvider authsvc.Provider,
	authHandler *handler.AuthHandler,
	jobHandler *handler.JobHandler,
	applicationHandler *handler.ApplicationHandler,
	adminHandler *handler.AdminHandler,
) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.POST("/employers/register", authHandler.HandleEmployerRegister)
	auth.POST("/employees/register", authHandler.HandleEmployeeRegister)
	auth.POST("/login", authHandler.HandleLogin)

	api.GET("/jobs", jobHandler.HandleListJobs)
	api.GET("/jobs/nearby", jobHandler.HandleNearbyJobs)
	api.GET("/jobs/:job_id", jobHandler.HandleGetJob)
	api.GET("/geo/autocomplete", jobHandler.HandleGeoAutocomplete)

	authed := api.Group("", middleware.BearerAuth(authProvider))
	authed.POST("/jobs", jobHandler.HandleCreateJob)
	authed.POST("/jobs/:job_id/apply", applicationHandler.HandleApplyToJob)
	authed.GET("/jobs/:job_id/applicants", jobHandler.HandleListApplicants)

	admin := api.Group("/admin", middleware.AdminKeyAuth(cfg.Admin.SecretKey))
	admin.GET("/dashboard", adminHandler.HandleDashboard)
	admin.GET("/search", adminHandler.HandleGlobalSearch)

	admin.GET("/users/employers", adminHandler.HandleListEmployers)
	admin.GET("/users/employers/:id", adminHandler.HandleGetEmployer)
	admin.PATCH("/users/employers/:id", adminHandler.HandlePatchEmployer)
	admin.GET("/users/employees", adminHandler.HandleListEmployees)
	admin.GET("/users/employees/:id", adminHandler.HandleGetEmployee)
	admin.PATCH("/users/employees/:id", adminHandler.HandlePatchEmployee)
	admin.DELETE("/users/:id", adminHandler.HandleDeleteUser)

	admin.GET("/jobs", adminHandler.HandleListJobs)
	admin.PATCH("/jobs/:id", adminHandler.HandlePatchJob)
	admin.DELETE("/jobs/:id", adminHandler.HandleDeleteJob)

	admin.GET("/applications", adminHandler.HandleListApplications)
	admin.DELETE("/applications/:id", adminHandler.HandleDeleteApplication)
}
