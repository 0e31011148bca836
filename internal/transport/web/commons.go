package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/richblaalid/chuckbox/internal/app"
	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/repository"
	"github.com/richblaalid/chuckbox/internal/service"
)

// Request body limits / Limites de taille des corps de requête
const (
	maxBodyBytes   = 1 << 20 // 1 MiB
	maxImportBytes = 5 << 20 // roster files and extension snapshots
)

// errBadRequest marks malformed requests (bad JSON, bad path values) / Requête mal formée
var errBadRequest = errors.New("bad request")

// Handler is a container for application dependencies that are required by HTTP handlers.
// By embedding the application's dependency injection container, it provides handlers
// with access to services, repositories, and configuration.
type Handler struct {
	container *app.Container
}

// NewHandler creates and returns a new Handler instance.
func NewHandler(container *app.Container) *Handler {
	return &Handler{container: container}
}

// ErrorResponse is a helper function for sending standardized JSON error responses.
// It sets the "Content-Type" header to "application/json", writes the specified HTTP status code,
// and sends a JSON body with an "error" key containing the provided message.
func ErrorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": message,
	})
}

// jsonResponse is a helper function for sending standardized JSON responses.
func jsonResponse(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusOK, data)
}

// jsonStatus sends data with an explicit status / Envoie les données avec un statut explicite
func jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// message sends {"message": msg} / Envoie {"message": msg}
func message(w http.ResponseWriter, code int, msg string) {
	jsonStatus(w, code, map[string]string{"message": msg})
}

// limitRequestBody wraps a request body with MaxBytesReader to limit its size.
// Reads past the limit fail with *http.MaxBytesError, turned into 413 by errorStatus.
func limitRequestBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// decodeJSON reads a JSON body under the default limit, writing the error itself
// Lit un corps JSON sous la limite par défaut et écrit l'erreur elle-même
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	limitRequestBody(w, r, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		ErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a numeric path value / Analyse un identifiant numérique du chemin
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// errorStatus maps sentinel errors to HTTP status codes / Associe les erreurs aux codes HTTP
func errorStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailNotVerified), errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, repository.ErrNoRecord):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrLastAdmin),
		errors.Is(err, domain.ErrAlreadyVoided), errors.Is(err, domain.ErrSyncExpired),
		errors.Is(err, domain.ErrPaymentsDisabled), errors.Is(err, repository.ErrDup):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnbalancedEntry),
		errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrGateway):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError responds with the mapped status; internal errors are logged and hidden
// Répond avec le statut associé; les erreurs internes sont journalisées et masquées
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", GetRequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		ErrorResponse(w, "internal server error", code)
		return
	}
	ErrorResponse(w, err.Error(), code)
}
