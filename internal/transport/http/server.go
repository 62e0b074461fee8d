package http

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"lawgpt/internal/bootstrap"
	"lawgpt/internal/transport/http/handler"
	"lawgpt/internal/transport/http/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health      *handler.HealthHandler
	Ask         *handler.AskHandler
	Preferences *handler.PreferenceHandler
	Auth        *handler.AuthHandler
	Admin       *handler.AdminHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	h := Handlers{
		Health:      handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, dependencies(app)...),
		Ask:         handler.NewAskHandler(app.Legal),
		Preferences: handler.NewPreferenceHandler(app.Legal),
		Auth:        handler.NewAuthHandler(app.Auth),
		Admin:       handler.NewAdminHandler(app.Records, app.Ingest, app.Files, app.Reloader, app.QueryLogs),
	}
	return Routes(h, middleware.OperatorAuth(app.Config.Auth.JWTSecret, app.Operators))
}

// Routes builds the engine from ready handlers; adminAuth guards every
// admin route except login.
func Routes(h Handlers, adminAuth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	router.GET("/healthz", h.Health.Check)

	v1 := router.Group("/api/v1")
	v1.POST("/ask", h.Ask.Ask)
	v1.GET("/preferences/:channel_id", h.Preferences.Get)
	v1.PUT("/preferences/:channel_id", h.Preferences.Put)

	admin := v1.Group("/admin")
	admin.POST("/login", h.Auth.Login)

	guarded := admin.Group("")
	guarded.Use(adminAuth)
	guarded.POST("/stats", h.Admin.AddStat)
	guarded.PUT("/cases", h.Admin.PutCase)
	guarded.POST("/documents", h.Admin.UploadDocument)
	guarded.POST("/index/reload", h.Admin.ReloadIndex)
	guarded.GET("/query-logs", h.Admin.ListQueryLogs)

	return router
}

func dependencies(app *bootstrap.App) []handler.Dependency {
	deps := []handler.Dependency{{
		Name: "mysql",
		Check: func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if app.Postgres != nil {
		deps = append(deps, handler.Dependency{Name: "postgres", Check: app.Postgres.Ping})
	}
	if app.Redis != nil {
		deps = append(deps, handler.Dependency{
			Name:  "redis",
			Check: func(ctx context.Context) error { return app.Redis.Ping(ctx).Err() },
		})
	}
	if app.MQConn != nil {
		deps = append(deps, handler.Dependency{
			Name: "rabbitmq",
			Check: func(context.Context) error {
				if app.MQConn.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			},
		})
	}
	return deps
}
