// Package routes assembles the gin engine: middleware, templates and the
// marketplace endpoints.
package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"e_store/internal/cache"
	"e_store/internal/handlers"
	"e_store/internal/middleware"
	"e_store/internal/session"
	"e_store/web"
)

type Options struct {
	Handler  *handlers.Handler
	Sessions *session.Store
	Limiter  cache.Limiter
	Log      *zap.Logger

	CORSOrigins []string
	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

func NewRouter(opts Options) (*gin.Engine, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if opts.Limiter == nil {
		opts.Limiter = cache.NopLimiter{}
	}
	log := opts.Log
	h := opts.Handler

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Sessions(opts.Sessions))
	r.Use(middleware.Recovery(log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.StaticFS("/static", http.FS(web.Static()))
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}
	r.GET("/healthz", h.Healthz)

	site := r.Group("/")
	site.Use(middleware.LoadUser(h.Auth, log))
	{
		site.GET("/", h.Index)
		site.GET("/search", h.Search)
		site.GET("/product/:id", h.ProductPage)

		site.GET("/register", h.RegisterPage)
		site.POST("/register", middleware.RegisterRateLimit(opts.Limiter, log), h.Register)
		site.GET("/login", h.LoginPage)
		site.POST("/login", middleware.LoginRateLimit(opts.Limiter, log), h.Login)
		site.POST("/logout", h.Logout)

		site.GET("/cart", h.ViewCart)
		site.POST("/cart/add/:id", h.AddToCart)
		site.POST("/cart/remove/:id", h.RemoveFromCart)

		site.POST("/product/update_quantity/:id", middleware.Audit(log, "product.update_quantity"), h.UpdateQuantity)
	}

	page := site.Group("/", middleware.RequireUserPage())
	{
		page.GET("/info", h.Info)
		page.GET("/add_item", h.AddItemPage)
	}

	action := site.Group("/", middleware.RequireUserAction(log))
	{
		action.POST("/add_item", middleware.Audit(log, "product.create"), h.AddItem)
		action.POST("/product/remove/:id", middleware.Audit(log, "product.remove"), h.RemoveProduct)
		action.POST("/delete_account", middleware.Audit(log, "account.delete"), h.DeleteAccount)
	}

	r.NoRoute(middleware.LoadUser(h.Auth, log), func(c *gin.Context) {
		middleware.RenderError(c, log, http.StatusNotFound, "Page not found.")
	})
	return r, nil
}
