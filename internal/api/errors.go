package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/erazemk/najdeno/internal/logger"
	"github.com/erazemk/najdeno/internal/model"
)

// errBadRequest marks malformed requests that never reached the services.
var errBadRequest = errors.New("bad request")

const forbiddenMessage = "You do not have permission to modify this item."

// Where clients are sent after an auth failure.
const (
	loginPath = "/api/auth/login"
	boardPath = "/api/items"
)

// statusOf maps an error to its HTTP status and public message. Unknown
// errors become a generic 500 so internals never leak.
func statusOf(err error) (int, string) {
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, "please log in to access this page"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, forbiddenMessage
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, model.ErrUnsupportedAssetType):
		return http.StatusUnsupportedMediaType, "unsupported image type"
	case errors.Is(err, model.ErrPayloadTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "payload too large"
	case errors.Is(err, model.ErrDuplicateIdentity):
		return http.StatusConflict, model.ErrDuplicateIdentity.Error()
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, model.ErrInvalidCredentials.Error()
	case errors.Is(err, model.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrVersionConflict):
		return http.StatusConflict, model.ErrVersionConflict.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError reports err to the client. Unauthenticated requests are
// pointed at the sign-in flow and forbidden ones back at the board.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)

	switch status {
	case http.StatusUnauthorized:
		if errors.Is(err, model.ErrUnauthenticated) {
			w.Header().Set("Location", loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()))
		}
	case http.StatusForbidden:
		w.Header().Set("Location", boardPath)
	case http.StatusInternalServerError:
		logger.FromRequest(r).Error().Err(err).Msg("request failed")
	}

	jsonError(w, status, message)
}
