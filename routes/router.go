package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/devnovate/blog/config"
	"github.com/devnovate/blog/controllers"
	"github.com/devnovate/blog/middleware"
	"github.com/devnovate/blog/services"
	"github.com/devnovate/blog/storage"
	"github.com/devnovate/blog/store"
	"github.com/devnovate/blog/utils"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Store   store.Store
	Blogs   *services.BlogService
	Uploads storage.Storage
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	accessLog := utils.Logger
	if gin.Mode() != gin.TestMode && cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg, cfg.GinPath); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog))
	r.Use(utils.RecoveryWithZap(accessLog))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Static("/static", "./static")

	health := controllers.NewHealthController(deps.Store, deps.Uploads)
	r.GET("/health", health.Health)

	authController := controllers.NewAuthController(deps.Store)
	blogController := controllers.NewBlogController(deps.Blogs)
	adminController := controllers.NewAdminController(deps.Blogs)

	api := r.Group("/api")
	api.GET("/health", health.Health)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(deps.Store), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(deps.Store), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(deps.Store), authController.UpdateProfile)

	blogs := api.Group("/blogs")
	blogs.GET("", blogController.ListBlogs)
	blogs.GET("/trending", blogController.Trending)
	// Static segments are registered before :id so they are not shadowed
	blogs.GET("/user/my-blogs", middleware.AuthRequired(deps.Store), blogController.MyBlogs)
	blogs.GET("/:id", middleware.OptionalAuth(deps.Store), blogController.GetBlog)

	protected := blogs.Group("")
	protected.Use(middleware.AuthRequired(deps.Store), middleware.RateLimitMiddleware())
	protected.POST("", blogController.CreateBlog)
	protected.PUT("/:id", blogController.UpdateBlog)
	protected.DELETE("/:id", blogController.DeleteBlog)
	protected.POST("/:id/like", blogController.ToggleLike)
	protected.POST("/:id/comment", blogController.AddComment)
	protected.DELETE("/:id/comment/:commentId", blogController.DeleteComment)

	if deps.Uploads != nil {
		uploads := controllers.NewUploadController(deps.Uploads, cfg.UploadMaxMB)
		api.POST("/upload", middleware.AuthRequired(deps.Store), middleware.RateLimitMiddleware(), uploads.UploadImage)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(deps.Store), middleware.AdminRequired())
	admin.GET("/dashboard", adminController.Dashboard)
	admin.GET("/blogs", adminController.ListBlogs)
	admin.PUT("/blogs/:id/approve", adminController.Approve)
	admin.PUT("/blogs/:id/reject", adminController.Reject)
	admin.PUT("/blogs/:id/hide", adminController.Hide)
	admin.DELETE("/blogs/:id", adminController.Delete)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		if strings.HasPrefix(path, "/static/") {
			ctx.JSON(http.StatusNotFound, gin.H{"message": "static asset not found"})
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
