package httpapi

import (
	"net/http"
	"time"

	"github.com/cwbudde/prostsolve/internal/ui"
)

// handleIndex renders GET / — the solve list dashboard.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	solves := s.jobManager.ListSolves()
	items := make([]ui.SolveListItem, len(solves))
	for i, sv := range solves {
		resultString := ""
		if sv.Result != nil {
			resultString = sv.Result.ResultString
		}
		items[i] = ui.SolveListItem{
			ID:           sv.ID,
			State:        string(sv.State),
			NRows:        sv.ProblemDesc.NRows,
			NCols:        sv.ProblemDesc.NCols,
			Iterations:   sv.Iterations,
			ResultString: resultString,
			StartTime:    sv.StartTime,
			EndTime:      sv.EndTime,
			Error:        sv.Error,
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.SolveList(items).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// handleSolveDetailPage renders GET /solves/:id.
func (s *Server) handleSolveDetailPage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Path[len("/solves/"):]

	solve, exists := s.jobManager.GetSolve(id)
	if !exists {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := ui.SolveNotFound(id).Render(r.Context(), w); err != nil {
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
		return
	}

	var elapsed float64
	if solve.EndTime != nil {
		elapsed = solve.EndTime.Sub(solve.StartTime).Seconds()
	} else {
		elapsed = time.Since(solve.StartTime).Seconds()
	}

	resultString := ""
	if solve.Result != nil {
		resultString = solve.Result.ResultString
	}

	detail := ui.SolveDetail{
		ID:           solve.ID,
		State:        string(solve.State),
		NRows:        solve.ProblemDesc.NRows,
		NCols:        solve.ProblemDesc.NCols,
		Iterations:   solve.Iterations,
		MaxIters:     solve.Options.MaxIters,
		ResultString: resultString,
		StartTime:    solve.StartTime,
		EndTime:      solve.EndTime,
		ElapsedSec:   elapsed,
		Error:        solve.Error,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.SolveDetailPage(detail).Render(r.Context(), w); err != nil {
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
