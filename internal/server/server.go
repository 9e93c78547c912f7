package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/popdict/internal/config"
)

// NewHTTPHandler wraps the API routes with CORS for the configured origins and h2c.
func NewHTTPHandler(h *Handler, cfg config.CORSConfig) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	})
	return c.Handler(h2c.NewHandler(h.Routes(), &http2.Server{}))
}

// NewServer returns an HTTP server listening on the configured port.
func NewServer(h *Handler, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewHTTPHandler(h, cfg.CORS),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
