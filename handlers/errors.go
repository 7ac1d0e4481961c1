package handlers

import (
	"net/http"

	"github.com/ammiranda/forest_service/models"
)

// StatusFor maps an error to the HTTP status and message returned to clients.
// Infrastructure failures are reported without detail.
func StatusFor(err error) (int, string) {
	switch models.KindOf(err) {
	case models.KindNone:
		return http.StatusOK, ""
	case models.KindValidation:
		return http.StatusBadRequest, err.Error()
	case models.KindNotFound:
		return http.StatusNotFound, err.Error()
	case models.KindUnauthorized:
		return http.StatusUnauthorized, "invalid credentials"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
