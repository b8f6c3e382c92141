package server

import "net/http"

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - progress feed
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Job queue
	mux.HandleFunc("/api/jobs", s.app.JobHandler.CreateJobHandler) // POST - enqueue
	mux.HandleFunc("/api/queue", s.app.JobHandler.QueueHandler)    // GET - state and pending jobs
	mux.HandleFunc("/api/cancel", s.app.JobHandler.CancelHandler)  // POST - cancel active operation

	// API routes - Migrations
	mux.HandleFunc("/api/migrations", s.app.MigrationHandler.ListPlansHandler)       // GET - plan names
	mux.HandleFunc("/api/migrations/", s.app.MigrationHandler.StartMigrationHandler) // POST /{plan}

	// API routes - LIST origin names
	mux.HandleFunc("/api/list", s.handleListRoute) // GET, PUT, DELETE

	// API routes - Summaries
	mux.HandleFunc("/api/summaries", s.app.SummaryHandler.ListSummariesHandler) // GET ?limit=N
	mux.HandleFunc("/api/summaries/", s.app.SummaryHandler.GetSummaryHandler)   // GET /{id}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleListRoute routes /api/list requests by method
func (s *Server) handleListRoute(w http.ResponseWriter, r *http.Request) {
	RouteCRUD(w, r,
		s.app.ListHandler.GetListHandler,
		nil,
		s.app.ListHandler.SetListHandler,
		s.app.ListHandler.ClearListHandler,
	)
}
