package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/croissant/croissant-api/internal/handler"
	appmw "github.com/croissant/croissant-api/internal/middleware"
	"github.com/croissant/croissant-api/internal/repository"
	"github.com/croissant/croissant-api/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Options struct {
	Verifier         appmw.TokenVerifier
	Users            handler.UserDirectory // nil disables the public profile route
	CORSHostSuffixes []string
	GitSHA           string
	BuildTime        string
}

type Server struct {
	e *echo.Echo
}

// allowOrigin accepts localhost on any port and https/http hosts ending in one of suffixes.
func allowOrigin(suffixes []string) func(string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := u.Hostname()
		for _, s := range suffixes {
			if s != "" && strings.HasSuffix(host, s) {
				return true, nil
			}
		}
		return false, nil
	}
}

func New(db *gorm.DB, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.CORSHostSuffixes),
	}))

	tradeRepo := repository.NewTradeRepository(db)
	itemRepo := repository.NewItemRepository(db)
	invRepo := repository.NewInventoryRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	notifSvc := service.NewNotificationService(notifRepo)
	catalogSvc := service.NewCatalogService(itemRepo)
	ledger := service.NewInventoryLedger(db, invRepo, tradeRepo, itemRepo)
	tradeSvc := service.NewTradeService(repository.NewTransactor(db), tradeRepo, itemRepo, ledger, notifSvc)

	tradeHandler := handler.NewTradeHandler(tradeSvc, catalogSvc, notifSvc)
	invHandler := handler.NewInventoryHandler(ledger)
	notifHandler := handler.NewNotificationHandler(notifSvc)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    opts.GitSHA,
			"build_time": opts.BuildTime,
		})
	})

	authMw := appmw.NewAuthMiddleware(opts.Verifier)
	api := e.Group("/api")
	api.GET("/trades/:id", tradeHandler.Get, authMw.RequireAuth)
	api.GET("/trades/user/:userId", tradeHandler.ListByUser, authMw.RequireAuth)
	api.POST("/trades/start-or-latest/:userId", tradeHandler.StartOrLatest, authMw.RequireAuth)
	api.PUT("/trades/:id/approve", tradeHandler.Approve, authMw.RequireAuth)
	api.PUT("/trades/:id/cancel", tradeHandler.Cancel, authMw.RequireAuth)
	api.POST("/trades/:id/add-item", tradeHandler.AddItem, authMw.RequireAuth)
	api.POST("/trades/:id/remove-item", tradeHandler.RemoveItem, authMw.RequireAuth)
	api.GET("/inventory/@me", invHandler.Me, authMw.RequireAuth)
	api.GET("/inventory/:userId", invHandler.ByUser, authMw.RequireAuth)
	api.GET("/inventory/:userId/items/:itemId/available", invHandler.Available, authMw.RequireAuth)
	api.GET("/notifications", notifHandler.List, authMw.RequireAuth)
	api.POST("/notifications/read", notifHandler.MarkRead, authMw.RequireAuth)
	if opts.Users != nil {
		api.GET("/users/:uid/public", handler.NewUserHandler(opts.Users).GetPublic, authMw.RequireAuth)
	}

	return &Server{e: e}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
