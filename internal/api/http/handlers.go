package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
	"github.com/Rohit-Yadav-47/url-shorter/internal/events"
	"github.com/Rohit-Yadav-47/url-shorter/pkg/response"
)

// publishTimeout bounds how long a background visit publish may take once
// the response has already been written.
const publishTimeout = 5 * time.Second

// handlePing handles health check requests and reports that the server is up.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest is the payload for creating a short URL. CustomCode and
// ExpiryDays are optional; an explicitly empty custom_code is still passed
// through so the service can reject it.
type shortenRequest struct {
	URL        string  `json:"url" validate:"required,url"`
	CustomCode *string `json:"custom_code,omitempty"`
	ExpiryDays *int    `json:"expiry_days,omitempty" validate:"omitempty,min=0"`
}

type urlResponse struct {
	ShortCode string     `json:"short_code"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func toURLResponse(url *entity.URL) urlResponse {
	return urlResponse{
		ShortCode: url.ShortCode,
		URL:       url.OriginalURL,
		CreatedAt: url.CreatedAt,
		ExpiresAt: url.ExpiresAt,
	}
}

type resolveResponse struct {
	ShortCode string `json:"short_code"`
	URL       string `json:"url"`
}

type statsResponse struct {
	ShortCode  string     `json:"short_code"`
	URL        string     `json:"url"`
	VisitCount int64      `json:"visit_count"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func toStatsResponse(url *entity.URL) statsResponse {
	return statsResponse{
		ShortCode:  url.ShortCode,
		URL:        url.OriginalURL,
		VisitCount: url.VisitCount,
		CreatedAt:  url.CreatedAt,
		ExpiresAt:  url.ExpiresAt,
	}
}

// respondError maps the service errors shared by the short-code endpoints to
// their HTTP responses. Anything unrecognized is logged and reported as a
// plain server error.
func respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, entity.ErrURLNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.ResourceNotFoundResponse)
	case errors.Is(err, entity.ErrURLExpired):
		render.Status(r, http.StatusGone)
		render.JSON(w, r, response.URLExpiredResponse)
	default:
		httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.ServerErrorResponse)
	}
}

// handleShortenURL handles POST requests to create a short URL.
//
// The payload must carry a valid URL and may pin a custom short code or an
// expiry in days. The handler validates the input, calls the shortening
// service and returns the created record with its metadata.
func handleShortenURL(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShortenURL"
	const successMsg = "Short URL created."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			resp := response.BadRequestResponse
			if errors.Is(err, io.EOF) {
				resp = response.EmptyRequestBodyResponse
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.ShortenURL(r.Context(), req.URL, req.CustomCode, req.ExpiryDays)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidURLResponse)
			case errors.Is(err, entity.ErrInvalidShortCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.InvalidShortCodeResponse)
			case errors.Is(err, entity.ErrShortCodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.ShortCodeExistsResponse)
			default:
				respondError(w, r, op, err)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}

// handleResolveShortCode handles GET requests to resolve a short code into
// the original URL.
//
// Each successful resolve counts as a visit and is published to the visit
// stream in the background.
func handleResolveShortCode(logger *slog.Logger, svc URLService, visitPub VisitPublisher) http.HandlerFunc {
	const op = "api.http.handleResolveShortCode"
	const successMsg = "Short code resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		originalURL, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			respondError(w, r, op, err)
			return
		}

		publishVisit(logger, visitPub, shortCode, r.UserAgent())

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, resolveResponse{
			ShortCode: shortCode,
			URL:       originalURL,
		}))
	}
}

// handleRedirect is the short link itself: it resolves the code and sends
// the client to the original URL.
func handleRedirect(logger *slog.Logger, svc URLService, visitPub VisitPublisher) http.HandlerFunc {
	const op = "api.http.handleRedirect"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		originalURL, err := svc.ResolveShortCode(r.Context(), shortCode)
		if err != nil {
			respondError(w, r, op, err)
			return
		}

		publishVisit(logger, visitPub, shortCode, r.UserAgent())

		http.Redirect(w, r, originalURL, http.StatusFound)
	}
}

// handleDeactivateURL handles DELETE requests to deactivate a short URL.
//
// Once deactivated the short code stops resolving; unknown codes yield a
// 404 error.
func handleDeactivateURL(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeactivateURL"

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		if err := svc.DeactivateURL(r.Context(), shortCode); err != nil {
			respondError(w, r, op, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetURLStats handles GET requests to retrieve usage statistics for a
// short URL.
//
// The response carries the visit count together with the creation and expiry
// metadata, or a 404 error if the short code doesn't exist.
func handleGetURLStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleGetURLStats"
	const successMsg = "URL statistics retrieved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.GetURLStats(r.Context(), shortCode)
		if err != nil {
			respondError(w, r, op, err)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toStatsResponse(url)))
	}
}

// publishVisit hands a visit to the publisher without blocking the response.
// A lost visit only costs analytics, so failures are logged and dropped.
func publishVisit(logger *slog.Logger, visitPub VisitPublisher, shortCode, userAgent string) {
	if userAgent == "" {
		userAgent = "Unknown"
	}

	visit := events.Visit{
		ShortCode: shortCode,
		Timestamp: time.Now().UTC(),
		UserAgent: userAgent,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := visitPub.PublishVisit(ctx, visit); err != nil {
			logger.Error("failed to publish visit event",
				slog.String("short_code", shortCode),
				slog.Any("err", err))
		}
	}()
}
