package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"signage-cms/internal/cache"
	"signage-cms/internal/config"
	database "signage-cms/internal/db"
	"signage-cms/internal/metrics"
	"signage-cms/internal/playback"
	"signage-cms/internal/scheduler"

	"signage-cms/internal/api/handlers"
	"signage-cms/internal/api/middleware"
)

const tagColorTTL = time.Minute

type Server struct {
	cfg       *config.Config
	db        *database.Client
	publisher handlers.Publisher
	log       *zap.Logger
	clock     scheduler.Clock
	loc       *time.Location
	colors    *cache.TagColors
	router    *gin.Engine
	srv       *http.Server
}

// New builds the router. publisher may be nil, in which case the publish
// endpoint answers 503.
func New(cfg *config.Config, db *database.Client, publisher handlers.Publisher, log *zap.Logger) (*Server, error) {
	return newServer(cfg, db, publisher, log, scheduler.RealClock{})
}

func newServer(cfg *config.Config, db *database.Client, publisher handlers.Publisher, log *zap.Logger, clock scheduler.Clock) (*Server, error) {
	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server.timezone %q: %w", cfg.Server.Timezone, err)
	}
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		publisher: publisher,
		log:       log,
		clock:     clock,
		loc:       loc,
		colors:    cache.NewTagColors(handlers.TagColorLoader(db.DB), tagColorTTL),
		router:    gin.New(),
	}
	s.srv = &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestLogger(s.log))
	s.router.Use(metrics.Middleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	// "Authorization" must be allowed so the dashboard can send the JWT.
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	gdb := s.db.DB
	statsHandler := handlers.NewStatsHandler(gdb, s.clock, s.loc, s.log)
	tagHandler := handlers.NewTimeTagHandler(gdb, s.colors, s.log)
	playlistHandler := handlers.NewPlaylistHandler(gdb, s.colors, s.publisher, s.log)
	calendarHandler := handlers.NewCalendarHandler(gdb, s.colors, s.clock, s.loc)
	evaluateHandler := handlers.NewEvaluateHandler(gdb, s.loc)
	orgHandler := handlers.NewOrganisationHandler(gdb)
	deviceHandler := handlers.NewDeviceHandler(gdb, playback.NewManager(gdb, s.clock, s.loc), s.log)
	mediaHandler := handlers.NewMediaHandler(gdb, s.log)

	limiter := middleware.NewRateLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "signage-cms"})
	})

	v1 := s.router.Group("/api/v1")
	{
		// PUBLIC
		v1.GET("/stats", statsHandler.GetStats)

		// PROTECTED (JWT required)
		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth([]byte(s.cfg.Server.JWTSecret), s.log))
		{
			viewer := middleware.RequireRole(middleware.RoleViewer)
			editor := middleware.RequireRole(middleware.RoleEditor)

			// --- TIME TAG LIBRARY
			protected.GET("/timetags", viewer, tagHandler.ListTimeTags)
			protected.POST("/timetags", editor, tagHandler.CreateTimeTag)
			protected.PUT("/timetags/:id", editor, tagHandler.UpdateTimeTag)
			protected.DELETE("/timetags/:id", editor, tagHandler.DeleteTimeTag)

			// --- PLAYLISTS
			protected.GET("/playlists", viewer, playlistHandler.GetPlaylists)
			protected.GET("/playlists/:id", viewer, playlistHandler.GetPlaylist)
			protected.POST("/playlists", editor, playlistHandler.CreatePlaylist)
			protected.PUT("/playlists/:id", editor, playlistHandler.UpdatePlaylist)
			protected.DELETE("/playlists/:id", editor, playlistHandler.DeletePlaylist)
			protected.PUT("/playlists/:id/items", editor, playlistHandler.UpdatePlaylistItems)
			protected.PUT("/playlists/:id/schedule", editor, playlistHandler.UpdateSchedule)
			protected.POST("/playlists/:id/publish", editor, playlistHandler.PublishPlaylist)

			// --- SCHEDULE VIEWS
			protected.GET("/playlists/:id/calendar", viewer, calendarHandler.GetCalendar)
			protected.GET("/playlists/:id/status", viewer, calendarHandler.GetStatus)
			protected.POST("/evaluate", viewer, limiter.Middleware(), evaluateHandler.Evaluate)

			// --- ORGANISATIONS, DEVICES, MEDIA
			protected.GET("/organisations", viewer, orgHandler.GetOrganisations)
			protected.GET("/devices", viewer, deviceHandler.GetDevices)
			protected.GET("/devices/:id/now", viewer, deviceHandler.GetNowPlaying)
			protected.PUT("/devices/:id/playlist", editor, deviceHandler.AssignPlaylist)
			protected.GET("/media", viewer, mediaHandler.GetMedia)
		}
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on server.port until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("api listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
