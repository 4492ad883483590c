package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// API error codes
const (
	errorCodeInvalidGrant     = "invalid_grant"
	errorCodeUserExists       = "user_already_exists"
	errorCodeWeakPassword     = "weak_password"
	errorCodeValidation       = "validation_failed"
	errorCodeBadJWT           = "bad_jwt"
	errorCodeNoAuthorization  = "no_authorization"
	errorCodeInvalidRequest   = "invalid_request"
	errorCodeForbidden        = "forbidden"
	errorCodeUnsupportedGrant = "unsupported_grant_type"
	errorCodeServerError      = "server_error"
)

const maxRequestBodyBytes = 1 << 20

// apiErrors maps sentinel errors to their HTTP status and error code. First match wins.
var apiErrors = []struct {
	err    error
	status int
	code   string
}{
	{errors.ErrInvalidCredentials, http.StatusBadRequest, errorCodeInvalidGrant},
	{errors.ErrInvalidRefreshToken, http.StatusBadRequest, errorCodeInvalidGrant},
	{errors.ErrSessionExpired, http.StatusBadRequest, errorCodeInvalidGrant},
	{errors.ErrUserExists, http.StatusUnprocessableEntity, errorCodeUserExists},
	{errors.ErrWeakPassword, http.StatusUnprocessableEntity, errorCodeWeakPassword},
	{errors.ErrInvalidEmail, http.StatusBadRequest, errorCodeValidation},
	{errors.ErrNotAuthenticated, http.StatusUnauthorized, errorCodeNoAuthorization},
	{errors.ErrInvalidToken, http.StatusUnauthorized, errorCodeBadJWT},
	{errors.ErrTokenExpired, http.StatusUnauthorized, errorCodeBadJWT},
	{errors.ErrSessionNotFound, http.StatusUnauthorized, errorCodeBadJWT},
	{errors.ErrInvalidPost, http.StatusBadRequest, errorCodeInvalidRequest},
	{errors.ErrMissingFilter, http.StatusBadRequest, errorCodeInvalidRequest},
	{errors.ErrInvalidFilter, http.StatusBadRequest, errorCodeInvalidRequest},
	{errors.ErrForbidden, http.StatusForbidden, errorCodeForbidden},
	{errors.ErrUnsupported, http.StatusBadRequest, errorCodeUnsupportedGrant},
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeAPIError renders err in the JSON error form. Unknown errors are logged
// and reported as a generic server error.
func writeAPIError(w http.ResponseWriter, err error) {
	for _, e := range apiErrors {
		if errors.Is(err, e.err) {
			description := auth.Message(err)
			if description == auth.GenericMessage {
				description = e.err.Error()
			}
			writeJSONError(w, e.code, description, e.status)
			return
		}
	}

	log.Err(err).Msg("Unhandled API error")
	writeJSONError(w, errorCodeServerError, auth.GenericMessage, http.StatusInternalServerError)
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}
