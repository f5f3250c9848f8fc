// Package api serves the deployer HTTP API.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/cors"

	v0 "github.com/anshumantekriwal/kadena-agents/internal/deployer/api/handlers/v0"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/api/router"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/auth"
	"github.com/anshumantekriwal/kadena-agents/internal/deployer/telemetry"
)

// Deployments block for minutes while the image builds and uploads.
const writeTimeout = 30 * time.Minute

// TrailingSlashMiddleware redirects requests with trailing slashes to their canonical form.
func TrailingSlashMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(r.URL.Path, "/")

			// 308 preserves the request method
			http.Redirect(w, r, newURL.String(), http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server represents the HTTP server
type Server struct {
	address string
	humaAPI huma.API
	mux     *http.ServeMux
	server  *http.Server
	logger  *log.Logger
}

// HumaAPI returns the Huma API instance, allowing registration of new routes
func (s *Server) HumaAPI() huma.API {
	return s.humaAPI
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// NewServer creates a new HTTP server listening on address.
func NewServer(address string, services router.Services, metrics *telemetry.Metrics, versionInfo *v0.VersionBody, authnProvider auth.AuthnProvider, logger *log.Logger) *Server {
	mux := http.NewServeMux()
	logger = logger.WithPrefix("api")

	api := router.NewHumaAPI(mux, services, metrics, versionInfo, authnProvider, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Type", "Content-Length"},
		AllowCredentials: false, // Must be false when AllowedOrigins is "*"
		MaxAge:           86400,
	})

	// Order: TrailingSlash -> CORS -> Mux
	handler := TrailingSlashMiddleware(corsHandler.Handler(mux))

	return &Server{
		address: address,
		humaAPI: api,
		mux:     mux,
		logger:  logger,
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
	}
}

// Start begins listening for incoming HTTP requests
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "address", s.address)
	s.logger.Info("API documentation available", "url", "http://localhost"+s.address+"/docs")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
