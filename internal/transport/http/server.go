package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamebridge-server/internal/auth"
	"github.com/vovakirdan/gamebridge-server/internal/config"
	"github.com/vovakirdan/gamebridge-server/internal/core"
	"github.com/vovakirdan/gamebridge-server/internal/lobby"
)

// NewServer builds the HTTP server: REST endpoints under /api and the
// WebSocket endpoint at /ws.
func NewServer(hub *core.Hub, authService *auth.Service, lobbies *lobby.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLog := logger.With().Str("component", "http").Logger()

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(&httpLog))

	router.GET("/health", healthHandler(lobbies))
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg.WS, logger)))

	apiHandlers := NewAPIHandlers(authService, &httpLog)
	lobbyHandlers := NewLobbyHandlers(hub, lobbies, &httpLog)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)
	api.POST("/guest", apiHandlers.GuestLogin)

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, &httpLog))
	authed.GET("/me", apiHandlers.Me)
	authed.GET("/me/lobby", lobbyHandlers.CurrentLobby)
	authed.GET("/webrtc-config", lobbyHandlers.WebRTCConfig)
	authed.GET("/lobbies", lobbyHandlers.ListLobbies)
	authed.GET("/lobbies/code/:code", lobbyHandlers.GetLobbyByCode)
	authed.GET("/lobbies/:id", lobbyHandlers.GetLobby)
	authed.GET("/lobbies/:id/messages", lobbyHandlers.ListMessages)
	authed.POST("/lobbies/:id/kick", lobbyHandlers.Kick)
	authed.PUT("/lobbies/:id/settings", lobbyHandlers.UpdateSettings)
	authed.DELETE("/messages/:id", lobbyHandlers.DeleteMessage)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(lobbies *lobby.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok", "lobbies": lobbies.Count()})
	}
}
