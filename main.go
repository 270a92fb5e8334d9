package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/rmitchellscott/marquee/internal/auth"
	"github.com/rmitchellscott/marquee/internal/config"
	"github.com/rmitchellscott/marquee/internal/database"
	"github.com/rmitchellscott/marquee/internal/handlers"
	"github.com/rmitchellscott/marquee/internal/logging"
	"github.com/rmitchellscott/marquee/internal/middleware"
	"github.com/rmitchellscott/marquee/internal/pollers"
	"github.com/rmitchellscott/marquee/internal/sse"
	"github.com/rmitchellscott/marquee/internal/version"
)

func main() {
	_ = godotenv.Load()
	logging.Initialize()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logging.InfoWithComponent(logging.ComponentStartup, "Starting Marquee", "version", version.String())

	if err := database.Initialize(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to run migrations", "error", err)
		os.Exit(1)
	}

	db := database.GetDB()

	hub := sse.NewService()
	defer hub.Shutdown()

	handlers.Initialize(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.KeepAlive(ctx)

	pollerManager := pollers.NewManager()
	pollerManager.Register(pollers.NewStatusSweepPoller(db, hub))

	if err := pollerManager.Start(ctx); err != nil {
		logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start pollers", "error", err)
		os.Exit(1)
	}

	ginMode := config.Get("GIN_MODE", gin.ReleaseMode)
	gin.SetMode(ginMode)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Account-ID", "X-API-Key")
	router.Use(cors.New(corsConfig))

	router.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, version.Get())
	})

	reportLimiter := middleware.NewDeviceRateLimiter()

	api := router.Group("/api")
	api.Use(auth.AccountMiddleware())
	{
		api.GET("/events", handlers.EventsHandler)

		devices := api.Group("/devices")
		{
			devices.POST("", handlers.RegisterDeviceHandler)
			devices.GET("", handlers.ListDevicesHandler)
			devices.GET("/:id", handlers.GetDeviceHandler)
			devices.PUT("/:id", handlers.UpdateDeviceHandler)
			devices.DELETE("/:id", handlers.DeleteDeviceHandler)
			devices.GET("/stats", handlers.DeviceStatsHandler)
			devices.GET("/:id/config", handlers.DeviceConfigHandler)
			devices.POST("/:id/heartbeat", handlers.HeartbeatHandler)
			devices.POST("/:id/cache", reportLimiter.RateLimit(), handlers.ReportCacheHandler)
			devices.GET("/:id/cache/status", handlers.CacheStatusHandler)

			devices.GET("/:id/plan", handlers.BuildPlanHandler)
			devices.POST("/:id/sync", handlers.PersistPlanHandler)
			devices.GET("/:id/sync/chunk", handlers.DownloadChunkHandler)
			devices.POST("/:id/sync/report", reportLimiter.RateLimit(), handlers.ReportProgressHandler)
			devices.POST("/:id/sync/ack", handlers.AckHandler)
			devices.GET("/:id/sync/status", handlers.SyncStatusHandler)

			devices.GET("/:id/flash-sale", handlers.GetFlashSaleHandler)
			devices.GET("/:id/flash-sale/runtime", handlers.FlashSaleRuntimeHandler)
			devices.PUT("/:id/flash-sale", handlers.UpsertFlashSaleHandler)
			devices.DELETE("/:id/flash-sale", handlers.DisableFlashSaleHandler)

			devices.POST("/:id/screens", handlers.CreateScreenHandler)
		}

		screens := api.Group("/screens")
		{
			screens.PUT("/:id", handlers.UpdateScreenHandler)
			screens.DELETE("/:id", handlers.DeleteScreenHandler)
			screens.GET("/:id/schedules", handlers.ListSchedulesHandler)
		}

		playlists := api.Group("/playlists")
		{
			playlists.POST("", handlers.CreatePlaylistHandler)
			playlists.GET("/:id", handlers.GetPlaylistHandler)
			playlists.PUT("/:id/items", handlers.ReplacePlaylistItemsHandler)
			playlists.DELETE("/:id", handlers.DeletePlaylistHandler)
		}

		api.POST("/schedules", handlers.CreateScheduleHandler)
		api.DELETE("/schedules/:id", handlers.DeleteScheduleHandler)

		media := api.Group("/media")
		{
			media.POST("", handlers.UploadMediaHandler)
			media.GET("", handlers.ListMediaHandler)
			media.GET("/:id", handlers.GetMediaHandler)
			media.DELETE("/:id", handlers.DeleteMediaHandler)
		}
	}

	// Device download endpoint, outside the authenticated group so cache
	// warmers can fetch without credentials.
	router.GET("/media/*filepath", handlers.ServeMediaFileHandler)

	port := config.Get("PORT", "8080")
	addr := ":" + port

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logging.InfoWithComponent(logging.ComponentStartup, "Listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorWithComponent(logging.ComponentStartup, "Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server and pollers")

	if err := pollerManager.Stop(); err != nil {
		logging.Error("Error stopping pollers", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logging.Info("Server and pollers stopped")
}
