package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/cwbudde/prostsolve/internal/resultio"
)

// Server is the HTTP surface over a process-local solver: solve_problem
// as a background job, SSE progress, and a small HTML dashboard.
type Server struct {
	jobManager *JobManager
	baseDir    string
	addr       string
	server     *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewServer creates a Server that persists results/traces under baseDir.
func NewServer(addr, baseDir string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager: NewJobManager(),
		baseDir:    baseDir,
		addr:       addr,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start registers routes and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/solves/", s.handleSolveDetailPage)

	mux.HandleFunc("/api/v1/solves", s.handleSolves)
	mux.HandleFunc("/api/v1/solves/", s.handleSolvesWithID)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{Addr: s.addr, Handler: handler}
	slog.Info("starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown cancels in-flight background solves and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleSolves(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSolve(w, r)
	case http.MethodGet:
		s.handleListSolves(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSolvesWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/solves/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Solve ID required", http.StatusBadRequest)
		return
	}
	solveID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleGetSolve(w, r, solveID)
	case parts[1] == "stream":
		s.handleSolveStream(w, r, solveID)
	case parts[1] == "solution.json":
		s.handleGetSolution(w, r, solveID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) handleCreateSolve(w http.ResponseWriter, r *http.Request) {
	var req CreateSolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if req.ProblemDesc.NRows <= 0 || req.ProblemDesc.NCols <= 0 {
		http.Error(w, "problem_desc.nrows/ncols must be > 0", http.StatusBadRequest)
		return
	}
	if req.Options.MaxIters <= 0 {
		req.Options.MaxIters = 10000
	}

	solve := s.jobManager.CreateSolve(req)
	go runSolve(s.ctx, s.jobManager, s.baseDir, solve.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(solve)
}

func (s *Server) handleListSolves(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.jobManager.ListSolves())
}

func (s *Server) handleGetSolve(w http.ResponseWriter, r *http.Request, solveID string) {
	solve, exists := s.jobManager.GetSolve(solveID)
	if !exists {
		http.Error(w, "Solve not found", http.StatusNotFound)
		return
	}

	var elapsed time.Duration
	if solve.EndTime != nil {
		elapsed = solve.EndTime.Sub(solve.StartTime)
	} else {
		elapsed = time.Since(solve.StartTime)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":         solve.ID,
		"state":      solve.State,
		"iterations": solve.Iterations,
		"elapsed":    elapsed.Seconds(),
		"startTime":  solve.StartTime,
		"endTime":    solve.EndTime,
		"error":      solve.Error,
		"result":     solve.Result,
	})
}

func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request, solveID string) {
	if _, exists := s.jobManager.GetSolve(solveID); !exists {
		http.Error(w, "Solve not found", http.StatusNotFound)
		return
	}

	result, err := resultio.LoadResult(s.baseDir, solveID)
	if err != nil {
		if _, ok := err.(*resultio.NotFoundError); ok {
			http.Error(w, "No result yet", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to load result: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
