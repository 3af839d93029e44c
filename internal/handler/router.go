package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/qongirat/appeals-api/api/swagger"
	"github.com/qongirat/appeals-api/internal/middleware"
	"github.com/qongirat/appeals-api/internal/service"
	"github.com/qongirat/appeals-api/pkg/config"
	"github.com/qongirat/appeals-api/pkg/logger"
	corsmw "github.com/qongirat/appeals-api/pkg/middleware/cors"
	"github.com/qongirat/appeals-api/pkg/middleware/requestid"
)

// Router wires handlers and middleware into a gin engine.
type Router struct {
	Config  *config.Config
	Logger  *zap.Logger
	Auth    *service.AuthService
	Metrics *service.MetricsService
	Pinger  interface{ Ping() error }

	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	OrgHandler     *OrgHandler
	RegionHandler  *RegionHandler
	AppealHandler  *AppealHandler
	IntakeHandler  *IntakeHandler
	StatsHandler   *StatsHandler
	FileHandler    *FileHandler
	MetricsHandler *MetricsHandler
}

// Setup builds the engine with the full route table.
func (rt *Router) Setup() *gin.Engine {
	if rt.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(rt.Logger))
	r.Use(corsmw.New(rt.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(rt.Metrics))

	r.GET("/health", rt.MetricsHandler.Health)
	r.GET("/ready", rt.MetricsHandler.Ready(rt.Pinger))
	r.GET("/metrics", rt.MetricsHandler.Prometheus)
	if rt.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(rt.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", rt.AuthHandler.Login)
		auth.POST("/refresh", rt.AuthHandler.Refresh)
	}

	// Bot-facing intake endpoints carry no staff session.
	intake := api.Group("/intake")
	{
		intake.POST("/users", rt.IntakeHandler.RegisterUser)
		intake.GET("/users/:chatId", rt.IntakeHandler.GetUser)
		intake.GET("/users/:chatId/appeals", rt.IntakeHandler.CitizenAppeals)
		intake.POST("/appeals", rt.IntakeHandler.CreateAppeal)
	}

	api.GET("/files/download", rt.FileHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(rt.Auth))
	{
		authed.POST("/auth/logout", rt.AuthHandler.Logout)
		authed.GET("/auth/me", rt.AuthHandler.Me)

		appeals := authed.Group("/appeals")
		{
			appeals.GET("", rt.AppealHandler.List)
			appeals.GET("/export", rt.AppealHandler.Export)
			appeals.GET("/:id", rt.AppealHandler.Get)
			appeals.GET("/:id/history", rt.AppealHandler.History)
			appeals.POST("/:id/answer", middleware.Audit(rt.Logger), rt.AppealHandler.Answer)
		}

		files := authed.Group("/files")
		{
			files.POST("", rt.FileHandler.Upload)
			files.GET("/:name/url", rt.FileHandler.SignedURL)
		}

		stats := authed.Group("/statistics")
		{
			stats.GET("", rt.StatsHandler.Summary)
			stats.GET("/organizations", rt.StatsHandler.TopOrganizations)
		}

		authed.GET("/organizations/options", rt.OrgHandler.Options)
		authed.GET("/mahallas/options", rt.RegionHandler.MahallaOptions)
		authed.GET("/sectors/options", rt.RegionHandler.SectorOptions)

		authority := authed.Group("")
		authority.Use(middleware.RequireAuthority(), middleware.Audit(rt.Logger))
		{
			authority.POST("/appeals", rt.AppealHandler.Create)
			authority.PATCH("/appeals/:id", rt.AppealHandler.Update)
			authority.POST("/appeals/:id/review", rt.AppealHandler.Review)
			authority.GET("/appeals/:id/pdf", rt.AppealHandler.PDF)

			authority.GET("/users", rt.UserHandler.List)
			authority.GET("/users/options", rt.UserHandler.Options)
			authority.GET("/users/:id", rt.UserHandler.Get)
			authority.POST("/users", rt.UserHandler.Create)
			authority.PATCH("/users/:id", rt.UserHandler.Update)
			authority.DELETE("/users/:id", rt.UserHandler.Delete)

			authority.GET("/organizations", rt.OrgHandler.List)
			authority.GET("/organizations/:id", rt.OrgHandler.Get)
			authority.POST("/organizations", rt.OrgHandler.Create)
			authority.PATCH("/organizations/:id", rt.OrgHandler.Update)
			authority.DELETE("/organizations/:id", rt.OrgHandler.Delete)

			authority.GET("/mahallas", rt.RegionHandler.ListMahallas)
			authority.GET("/mahallas/:id", rt.RegionHandler.GetMahalla)
			authority.POST("/mahallas", rt.RegionHandler.CreateMahalla)
			authority.PATCH("/mahallas/:id", rt.RegionHandler.UpdateMahalla)
			authority.DELETE("/mahallas/:id", rt.RegionHandler.DeleteMahalla)

			authority.GET("/sectors", rt.RegionHandler.ListSectors)
			authority.POST("/sectors", rt.RegionHandler.CreateSector)

			authority.GET("/intake/appeals", rt.IntakeHandler.List)
			authority.GET("/intake/appeals/:id", rt.IntakeHandler.Get)
			authority.PATCH("/intake/appeals/:id/sort", rt.IntakeHandler.Sort)
			authority.GET("/intake/appeals/:id/history", rt.IntakeHandler.History)
		}
	}

	return r
}
