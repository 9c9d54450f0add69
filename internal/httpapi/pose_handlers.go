package httpapi

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"posturewatch.org/internal/audit"
	"posturewatch.org/internal/auth"
	"posturewatch.org/internal/posture"
)

type baselineRequest struct {
	Landmarks []posture.Landmark `json:"landmarks"`
}

type sampleRequest struct {
	Landmarks  []posture.Landmark `json:"landmarks"`
	CapturedAt time.Time          `json:"captured_at,omitempty"`
}

type statsResponse struct {
	AccountID      string  `json:"account_id"`
	Period         string  `json:"period"`
	ViolationCount int64   `json:"violation_count"`
	MeanScore      float64 `json:"mean_deviation_score"`
}

var periodPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func (a *API) handleBaseline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req baselineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	baseline, err := a.posture.CaptureBaseline(r.Context(), account.ID, req.Landmarks)
	if err != nil {
		handlePostureError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "posture.baseline.captured", map[string]any{
		"baseline_id": baseline.ID,
		"landmarks":   len(baseline.Landmarks),
	})

	writeJSON(w, http.StatusCreated, baseline)
}

func (a *API) handleSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID, _ := auth.TokenIDFromContext(r.Context())

	var req sampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.posture.EvaluateSample(r.Context(), account.ID, sessionID, req.Landmarks, req.CapturedAt)
	if err != nil {
		handlePostureError(w, r, err)
		return
	}

	if result.IsViolation {
		_ = audit.LogEvent(r.Context(), "posture.violation.recorded", map[string]any{
			"score": result.Score,
		})
	}

	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	period := strings.TrimSpace(r.URL.Query().Get("period"))
	if period != "" && !periodPattern.MatchString(period) {
		writeError(w, r, http.StatusBadRequest, "period must be formatted as YYYY-MM-DD")
		return
	}

	stats, err := a.posture.Stats(r.Context(), account.ID, period)
	if err != nil {
		handlePostureError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		AccountID:      stats.AccountID,
		Period:         stats.Period,
		ViolationCount: stats.ViolationCount,
		MeanScore:      stats.MeanScore(),
	})
}

func handlePostureError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, posture.ErrMissingBaseline):
		writeError(w, r, http.StatusConflict, "no baseline captured for account")
	case errors.Is(err, posture.ErrShapeMismatch):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, posture.ErrEmptyLandmarks):
		writeError(w, r, http.StatusBadRequest, "landmarks are required")
	case errors.Is(err, posture.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
