package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukerupert/smartgrocery/internal/auth"
	"github.com/dukerupert/smartgrocery/internal/config"
	"github.com/dukerupert/smartgrocery/internal/grocery"
	"github.com/dukerupert/smartgrocery/internal/handler"
	"github.com/dukerupert/smartgrocery/internal/middleware"
	"github.com/dukerupert/smartgrocery/internal/scanner"
	"github.com/dukerupert/smartgrocery/internal/store"
	ws "github.com/dukerupert/smartgrocery/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	groceryService *grocery.Service
	authService    *auth.Service
	groceryH       *handler.GroceryHandler
	productH       *handler.ProductHandler
	authH          *handler.AuthHandler
	rateLimiter    *middleware.RateLimiter
	authRateLimit  int
	wsOrigins      []string
	logger         *slog.Logger
}

// Deps are the outbound collaborators of the server.
type Deps struct {
	Products grocery.ProductLookup
	Mailer   auth.Mailer
	Decoder  scanner.Decoder
}

func New(db *sql.DB, cfg config.Config, deps Deps, logger *slog.Logger, authOpts ...auth.Option) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	groceryStore := store.NewGroceryStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db, cfg.Auth.SessionTTL)
	codeStore := store.NewCodeStore(db)

	grocerySvc := grocery.NewService(groceryStore, deps.Products, logger.With("component", "grocery"),
		grocery.WithChangeFunc(hub.GroceryChanged))

	authOpts = append([]auth.Option{auth.WithCodeLogging(cfg.Dev)}, authOpts...)
	authSvc := auth.NewService(userStore, sessionStore, codeStore, deps.Mailer,
		auth.NewTokens(cfg.Auth.JWTSecret), logger.With("component", "auth"), authOpts...)

	return &Server{
		db:             db,
		hub:            hub,
		groceryService: grocerySvc,
		authService:    authSvc,
		groceryH:       handler.NewGroceryHandler(grocerySvc, logger.With("component", "grocery_handler")),
		productH:       handler.NewProductHandler(grocerySvc, deps.Decoder, logger.With("component", "product")),
		authH:          handler.NewAuthHandler(authSvc, strings.HasPrefix(cfg.BaseURL, "https://"), logger.With("component", "auth_handler")),
		rateLimiter:    middleware.NewRateLimiter(),
		authRateLimit:  cfg.Auth.RateLimit,
		wsOrigins:      cfg.WebSocket.OriginPatterns,
		logger:         logger,
	}
}

// AuthService returns the auth service for cleanup tasks.
func (s *Server) AuthService() *auth.Service {
	return s.authService
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("POST /api/auth/signup", s.rateLimited("signup", s.authH.SignUp))
	outerMux.Handle("POST /api/auth/verify", s.rateLimited("verify", s.authH.Verify))
	outerMux.Handle("POST /api/auth/verify/resend", s.rateLimited("verify/resend", s.authH.ResendVerification))
	outerMux.Handle("POST /api/auth/signin", s.rateLimited("signin", s.authH.SignIn))
	outerMux.Handle("POST /api/auth/password-reset", s.rateLimited("password-reset", s.authH.RequestPasswordReset))
	outerMux.Handle("POST /api/auth/password-reset/confirm", s.rateLimited("password-reset/confirm", s.authH.ResetPassword))

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authService)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return otelhttp.NewHandler(logged, "smartgrocery")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// rateLimited limits h per client IP, counting each route on its own.
func (s *Server) rateLimited(scope string, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, scope, middleware.RealIP, s.authRateLimit, time.Minute)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/signout", s.authH.SignOut)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Grocery items
	mux.HandleFunc("GET /api/items", s.groceryH.ListItems)
	mux.HandleFunc("POST /api/items", s.groceryH.CreateItem)
	mux.HandleFunc("GET /api/items/{id}", s.groceryH.GetItem)
	mux.HandleFunc("PUT /api/items/{id}", s.groceryH.UpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.groceryH.DeleteItem)
	mux.HandleFunc("GET /api/categories", s.groceryH.Categories)

	// Product lookups
	mux.HandleFunc("GET /api/products/{barcode}", s.productH.GetByBarcode)
	mux.HandleFunc("GET /api/products", s.productH.SearchByName)
	mux.HandleFunc("GET /api/lookup", s.productH.Lookup)
	mux.HandleFunc("POST /api/scan", s.productH.Scan)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.groceryService.Subscribe, s.wsOrigins, s.logger.With("component", "websocket")))
}
