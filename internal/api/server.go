package api

import (
	"context"
	"time"

	"github.com/denzelpenzel/battery-marketplace/internal/config"
	"github.com/denzelpenzel/battery-marketplace/internal/services"
	"github.com/denzelpenzel/battery-marketplace/internal/session"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const serviceName = "battery-marketplace"

// Server represents the API server
type Server struct {
	config         *config.Config
	logger         *zap.Logger
	sessions       session.Store
	authService    *services.AuthService
	userService    *services.UserService
	batteryService *services.BatteryService
	inquiryService *services.InquiryService
	router         *router.Router
	server         *fasthttp.Server
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessions session.Store,
	authService *services.AuthService,
	userService *services.UserService,
	batteryService *services.BatteryService,
	inquiryService *services.InquiryService,
) *Server {
	s := &Server{
		config:         cfg,
		logger:         logger,
		sessions:       sessions,
		authService:    authService,
		userService:    userService,
		batteryService: batteryService,
		inquiryService: inquiryService,
		router:         router.New(),
	}

	s.setupRoutes()
	s.setupServer()

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GlobalOPTIONS = s.withMiddleware(s.corsHandler)
	s.router.NotFound = s.withMiddleware(s.notFoundHandler)
	s.router.MethodNotAllowed = s.withMiddleware(s.methodNotAllowedHandler)

	// Accounts
	s.router.POST("/api/register", s.withMiddleware(s.registerHandler))
	s.router.POST("/api/login", s.withMiddleware(s.loginHandler))
	s.router.POST("/api/logout", s.withMiddleware(s.logoutHandler))
	s.router.GET("/api/me", s.withMiddleware(s.authMiddleware(s.meHandler)))
	s.router.POST("/api/users", s.withMiddleware(s.createUserHandler))
	s.router.GET("/api/users/{id}", s.withMiddleware(s.getUserHandler))
	s.router.GET("/api/users/{id}/batteries", s.withMiddleware(s.userBatteriesHandler))

	// Listings
	s.router.POST("/api/batteries", s.withMiddleware(s.createBatteryHandler))
	s.router.GET("/api/batteries", s.withMiddleware(s.listBatteriesHandler))
	s.router.GET("/api/batteries/{id}", s.withMiddleware(s.getBatteryHandler))
	s.router.PUT("/api/batteries/{id}", s.withMiddleware(s.authMiddleware(s.updateBatteryHandler)))
	s.router.DELETE("/api/batteries/{id}", s.withMiddleware(s.authMiddleware(s.deleteBatteryHandler)))
	s.router.GET("/api/search", s.withMiddleware(s.searchHandler))
	s.router.GET("/api/categories/{category}", s.withMiddleware(s.categoryHandler))
	s.router.GET("/api/featured", s.withMiddleware(s.featuredHandler))

	// Inquiries
	s.router.POST("/api/inquiries", s.withMiddleware(s.authMiddleware(s.createInquiryHandler)))

	// Administration
	s.router.GET("/api/admin/logins", s.withMiddleware(s.authMiddleware(s.adminMiddleware(s.adminLoginsHandler))))
	s.router.GET("/api/admin/inquiries", s.withMiddleware(s.authMiddleware(s.adminMiddleware(s.adminInquiriesHandler))))

	s.router.GET("/api/health", s.withMiddleware(s.healthHandler))
}

// setupServer configures the FastHTTP server
func (s *Server) setupServer() {
	s.server = &fasthttp.Server{
		Handler:               s.router.Handler,
		Name:                  "Battery-Marketplace",
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
		MaxRequestBodySize:    1024 * 1024, // 1MB
		NoDefaultServerHeader: true,
		NoDefaultDate:         true,
		NoDefaultContentType:  true,
	}
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting API server",
		zap.String("address", s.config.Server.Address),
		zap.String("environment", s.config.Server.Environment))

	return s.server.ListenAndServe(s.config.Server.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.server.ShutdownWithContext(ctx)
}

// withMiddleware wraps handlers with common middleware
func (s *Server) withMiddleware(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return s.loggingMiddleware(
		s.recoverMiddleware(
			s.securityMiddleware(handler),
		),
	)
}

// corsHandler handles CORS preflight requests
func (s *Server) corsHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// setCORSHeaders sets CORS headers
func (s *Server) setCORSHeaders(ctx *fasthttp.RequestCtx) {
	origin := "*"
	if s.config != nil && s.config.Server.AllowedOrigin != "" {
		origin = s.config.Server.AllowedOrigin
	}

	ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Request-ID")
	ctx.Response.Header.Set("Access-Control-Max-Age", "86400")
}

// healthHandler handles health check requests
func (s *Server) healthHandler(ctx *fasthttp.RequestCtx) {
	s.sendJSON(ctx, fasthttp.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) notFoundHandler(ctx *fasthttp.RequestCtx) {
	s.sendErrorResponse(ctx, fasthttp.StatusNotFound, "Route not found", nil)
}

func (s *Server) methodNotAllowedHandler(ctx *fasthttp.RequestCtx) {
	s.sendErrorResponse(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed", nil)
}
