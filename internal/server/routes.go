package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - scheduled task management
	mux.HandleFunc("/api/v1/scheduled-tasks", s.handleTasksRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/v1/scheduled-tasks/", s.handleTaskRoutes) // GET/PUT/DELETE /{id}, POST /{id}/run

	// API routes - one-shot fetches
	mux.HandleFunc("/api/v1/fetch-html", s.app.FetchHandler.FetchHTMLHandler)
	mux.HandleFunc("/api/v1/fetch-text", s.app.FetchHandler.FetchTextHandler)

	// API routes - stored captures
	mux.HandleFunc("/api/v1/captures", s.app.CaptureHandler.ListHandler)

	// API routes - system
	mux.HandleFunc("/api/v1/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/v1/health", s.app.StatusHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// handleTasksRoute routes the task collection endpoint by method.
func (s *Server) handleTasksRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.TaskHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.TaskHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskRoutes routes /api/v1/scheduled-tasks/{id} and subpaths.
func (s *Server) handleTaskRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/scheduled-tasks/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	if path == "status" {
		s.app.TaskHandler.StatusListHandler(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/run"); ok {
		s.app.TaskHandler.RunNowHandler(w, r, id)
		return
	}

	if id, ok := strings.CutSuffix(path, "/status"); ok {
		s.app.TaskHandler.StatusHandler(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.TaskHandler.GetHandler(w, r, path)
	case http.MethodPut:
		s.app.TaskHandler.UpdateHandler(w, r, path)
	case http.MethodDelete:
		s.app.TaskHandler.DeleteHandler(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
