package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"quillmark/analytics"
	"quillmark/auth"
	"quillmark/cache"
	"quillmark/common"
	"quillmark/database"
	"quillmark/manage"
	"quillmark/site"
	"quillmark/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment as-is")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("quillmark-session", store))
	router.Use(cache.CacheMiddleware(10 * time.Minute))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	images := storage.NewImageStore(os.Getenv("uploads_dir"))
	router.Static("/uploads", images.Dir())

	analyticsModule := analytics.NewAnalyticsModule(db)

	authModule := auth.NewAuthModule(db, auth.NewCredentialsStrategy(db))
	authModule.RegisterRoutes(router)

	manageModule := manage.NewManageModule(db, images, analyticsModule)
	manageModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(db, analyticsModule)
	siteModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
