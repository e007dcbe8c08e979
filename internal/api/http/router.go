// Package http provides the HTTP delivery layer for the URL shortener.
// It contains the chi router, the request handlers and the payload types
// used to validate input and shape responses.
package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
	"github.com/Rohit-Yadav-47/url-shorter/internal/events"
)

// URLService defines the core URL shortening operations the handlers depend on.
type URLService interface {
	// ShortenURL registers originalURL under a short code. A non-nil
	// customCode is used verbatim, nil means a code is generated. A non-nil
	// expiryDays sets the lifetime of the mapping in days.
	ShortenURL(ctx context.Context, originalURL string, customCode *string, expiryDays *int) (*entity.URL, error)

	// ResolveShortCode returns the original URL registered under shortCode.
	ResolveShortCode(ctx context.Context, shortCode string) (string, error)

	// GetURLStats retrieves the URL record with its visit count.
	GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error)

	// DeactivateURL removes the URL, making the short code no longer functional.
	DeactivateURL(ctx context.Context, shortCode string) error
}

// VisitPublisher emits a visit event each time a short code is resolved.
type VisitPublisher interface {
	PublishVisit(ctx context.Context, visit events.Visit) error
}

// newValidate builds the request validator. Field names in validation
// details are reported as their json tags so they match the payload.
func newValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes a new chi router with all middleware and routes configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService, visitPub VisitPublisher) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"https://*", "http://*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}),
		middleware.AllowContentType("application/json"),
		middleware.RequestID,
		middleware.RealIP,
		httplog.RequestLogger(logger),
		middleware.Recoverer,
	)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Route("/api/v1", func(r chi.Router) {
		validate := newValidate()

		r.Get("/ping", handlePing)
		r.Post("/shorten", handleShortenURL(urlSvc, validate))
		r.Get("/shorten/{shortCode}", handleResolveShortCode(logger.Logger, urlSvc, visitPub))
		r.Delete("/shorten/{shortCode}", handleDeactivateURL(urlSvc))
		r.Get("/shorten/{shortCode}/stats", handleGetURLStats(urlSvc))
	})

	r.Get("/{shortCode}", handleRedirect(logger.Logger, urlSvc, visitPub))

	return r
}
