package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/pokediabot/internal/config"
	"github.com/susu3304/pokediabot/internal/models"
	"github.com/susu3304/pokediabot/internal/trade"
	"golang.org/x/oauth2"
)

// Ledger is the read side of the player database.
type Ledger interface {
	Ping(ctx context.Context) error
	Balances(ctx context.Context, userID string) (models.Balances, error)
	ListPokemon(ctx context.Context, ownerID string) ([]models.Pokemon, error)
	ListTrades(ctx context.Context, userID string, limit int) ([]models.TradeRecord, error)
}

// Negotiations exposes the open trades held in memory by the bot.
type Negotiations interface {
	Current(userID string) (trade.View, bool)
	ActiveCount() int
}

type API struct {
	router      *mux.Router
	ledger      Ledger
	trades      Negotiations
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	log         *slog.Logger
	server      *http.Server
}

func New(cfg *config.Config, ledger Ledger, trades Negotiations, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	api := &API{
		router:    mux.NewRouter(),
		ledger:    ledger,
		trades:    trades,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		log:       logger.With("component", "api"),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/public/trades/active", a.handleActiveTrades).Methods("GET")

	// Protected endpoints
	me := a.router.PathPrefix("/api/me").Subrouter()
	me.Use(a.authMiddleware)

	me.HandleFunc("/balance", a.handleBalance).Methods("GET")
	me.HandleFunc("/pokemon", a.handlePokemon).Methods("GET")
	me.HandleFunc("/trades", a.handleTradeHistory).Methods("GET")
	me.HandleFunc("/trade", a.handleCurrentTrade).Methods("GET")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	if a.config.WebUIBaseURL != "" {
		corsOptions.AllowedOrigins = []string{a.config.WebUIBaseURL}
		corsOptions.AllowCredentials = true
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves until Shutdown is called.
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.log.Info("API server listening", "addr", "http://"+a.config.WebBind)
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}
