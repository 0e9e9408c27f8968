package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

const idempotencyKeyHeader = "Idempotency-Key"

// responseRecorder перехватывает ответ обработчика для сохранения
// в idempotency-записи.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// withIdempotency обеспечивает безопасный повтор запроса по заголовку
// Idempotency-Key: завершённый запрос с тем же ключом и телом получает
// сохранённый ответ, переиспользование ключа с другим телом — 409.
// Запросы без заголовка проходят без изменений.
func withIdempotency(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" || repo == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				respondError(w, logger, errMalformedBody)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequest(r.Method, r.URL.Path, body)

			_, err = repo.CreateProcessing(r.Context(), key, requestHash, time.Now().UTC().Add(ttl))
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrIdempotencyHashMismatch):
					respondError(w, logger, err)
					return
				case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
					replayStoredResponse(w, r, repo, key, logger)
					return
				default:
					respondError(w, logger, err)
					return
				}
			}

			recorder := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)

			markErr := error(nil)
			if recorder.status >= http.StatusOK && recorder.status < http.StatusBadRequest {
				markErr = repo.MarkDone(r.Context(), key, recorder.body.Bytes(), recorder.status)
			} else {
				markErr = repo.MarkFailed(r.Context(), key, recorder.body.Bytes(), recorder.status)
			}
			if markErr != nil && logger != nil {
				logger.WithError(markErr).WithField("idempotency_key", key).Warn("Failed to finalize idempotency record")
			}
		})
	}
}

func replayStoredResponse(w http.ResponseWriter, r *http.Request, repo domain.IdempotencyRepository, key string, logger *log.Entry) {
	record, err := repo.Get(r.Context(), key)
	if err != nil {
		respondError(w, logger, err)
		return
	}

	if record.Status == domain.IdempotencyStatusProcessing {
		// Первый запрос с этим ключом ещё выполняется.
		writeJSON(w, http.StatusConflict, envelope{
			Success: false,
			Error:   "request with this idempotency key is still processing",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(record.HTTPStatus)
	_, _ = w.Write(record.ResponseBody)
}

func hashRequest(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
