package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/tradelog/internal/api/response"
)

func TestRateLimiter_AllowsBurstThenRejects(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	// A near-zero refill rate keeps the test independent of wall time.
	wrapped := NewRateLimiter(0.0001, 2, nil).Handler(handler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("POST", "/api/analytics/montecarlo", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if i == 2 {
			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != "RATE_LIMITED" {
				t.Errorf("expected RATE_LIMITED, got %s", resp.Error.Code)
			}
			if w.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After header")
			}
		}
	}

	want := []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
}
