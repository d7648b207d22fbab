package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fashionvista/fashionvista/internal/analyzer"
	mw "github.com/fashionvista/fashionvista/internal/api/middleware"
	"github.com/fashionvista/fashionvista/internal/api/response"
)

// MaxWait bounds the long-poll duration accepted by GET /analyze.
const MaxWait = 60 * time.Second

var errWaitOutOfRange = errors.New("wait out of range")

// ControllerRegistry resolves the per-session analysis controller.
type ControllerRegistry interface {
	Controller(sessionID string) *analyzer.Controller
	Lookup(sessionID string) (*analyzer.Controller, bool)
}

type viewResponse struct {
	analyzer.View
	SubmissionID string `json:"submission_id,omitempty"`
}

func newViewResponse(st analyzer.State) viewResponse {
	resp := viewResponse{View: analyzer.Render(st)}
	if st.Phase != analyzer.PhaseIdle {
		resp.SubmissionID = st.SubmissionID.String()
	}
	return resp
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// The image URL is forwarded as given, empty included.
func NewSubmitHandler(reg ControllerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := mw.GetSessionID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing session", nil)
			return
		}

		var req struct {
			ImageURL string `json:"image_url"`
		}
		if err := response.Decode(r.Body, &req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		ctrl := reg.Controller(sid)
		ctrl.Submit(r.Context(), req.ImageURL)

		response.Accepted(w, newViewResponse(ctrl.CurrentState()))
	}
}

// NewCurrentHandler returns an http.HandlerFunc for GET /api/v1/analyze.
// With ?wait=<duration> it blocks until the current submission settles or
// the wait elapses, and always answers with the latest view.
func NewCurrentHandler(reg ControllerRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, ok := mw.GetSessionID(r)
		if !ok {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Missing session", nil)
			return
		}

		wait, err := parseWait(r.URL.Query().Get("wait"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"wait must be a duration between 0s and 60s", nil)
			return
		}

		ctrl, found := reg.Lookup(sid)
		if !found {
			response.JSON(w, newViewResponse(analyzer.State{Phase: analyzer.PhaseIdle}))
			return
		}

		st := ctrl.CurrentState()
		if wait > 0 && st.Phase == analyzer.PhasePending {
			ctx, cancel := context.WithTimeout(r.Context(), wait)
			defer cancel()
			// Superseded and deadline both leave st holding the latest state.
			st, _ = ctrl.Wait(ctx, st.Seq)
		}

		response.JSON(w, newViewResponse(st))
	}
}

func parseWait(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 || d > MaxWait {
		return 0, errWaitOutOfRange
	}
	return d, nil
}
