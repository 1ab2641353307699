package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyMiddleware enforces Idempotency-Key usage for unsafe methods.
// The first request with a key runs and its response is cached; duplicates
// replay the cached response instead of re-executing.
type IdempotencyMiddleware struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewIdempotencyMiddleware constructs an IdempotencyMiddleware with a TTL.
func NewIdempotencyMiddleware(cache *redis.Client, ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		cache: cache,
		ttl:   ttl,
	}
}

type cachedResponse struct {
	Status int               `json:"status"`
	Header map[string]string `json:"header"`
	Body   []byte            `json:"body"`
}

// Require blocks duplicate unsafe requests carrying the same Idempotency-Key.
func (m *IdempotencyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}

		dataKey := fmt.Sprintf("idempotency:data:%s:%s:%s", r.Method, r.URL.Path, key)
		lockKey := fmt.Sprintf("idempotency:lock:%s:%s:%s", r.Method, r.URL.Path, key)

		if m.replayCached(w, r, dataKey) {
			return
		}

		locked, err := m.cache.SetNX(r.Context(), lockKey, "1", m.ttl).Result()
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !locked {
			// First request still running; tell the client to retry rather
			// than risk running the operation twice.
			jsonError(w, http.StatusConflict, "Request with this Idempotency-Key is already in progress")
			return
		}

		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		cached := cachedResponse{
			Status: recorder.status,
			Header: map[string]string{"Content-Type": recorder.Header().Get("Content-Type")},
			Body:   recorder.body.Bytes(),
		}
		if data, err := json.Marshal(cached); err == nil {
			_ = m.cache.Set(r.Context(), dataKey, data, m.ttl).Err()
		}
	})
}

func (m *IdempotencyMiddleware) replayCached(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	data, err := m.cache.Get(r.Context(), dataKey).Bytes()
	if err != nil {
		return false
	}

	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return false
	}

	for k, v := range cached.Header {
		if v != "" {
			w.Header().Set(k, v)
		}
	}
	w.Header().Set("X-Idempotency-Replay", "true")
	w.WriteHeader(cached.Status)
	_, _ = w.Write(cached.Body)
	return true
}

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
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
