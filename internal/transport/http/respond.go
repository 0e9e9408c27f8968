// Package http реализует HTTP/JSON-интерфейс платформы заказов.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// envelope — единый формат ответа API.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	LineIndex *int        `json:"line_index,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, logger *log.Entry, err error) {
	status := statusFromError(err)

	body := envelope{Success: false, Error: err.Error()}
	if lineErr, ok := domain.AsLineError(err); ok {
		index := lineErr.Index
		body.LineIndex = &index
	}

	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.WithError(err).Error("Internal error while handling request")
		}
		// Детали внутренней ошибки наружу не отдаются.
		body.Error = "internal server error"
	}

	writeJSON(w, status, body)
}

// statusFromError переводит доменные ошибки в HTTP-статусы.
// Доменный слой ничего не знает об HTTP; всё сопоставление живёт здесь.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrFinancialEntryNotFound),
		errors.Is(err, domain.ErrCompanyNotFound),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOrderVersionConflict),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrVariantMismatch),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrQuantityInvalid),
		errors.Is(err, domain.ErrPriceNegative),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrCompanyIDRequired),
		errors.Is(err, domain.ErrCustomerNameRequired),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrIdempotencyKeyRequired):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStatusTransition):
		return http.StatusConflict
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var (
	errUnauthorized  = errors.New("authorization required")
	errMalformedBody = errors.New("malformed request body")
)
