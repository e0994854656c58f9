package server

import "net/http"

// SetupRoutes registers all routes on the given ServeMux.
func SetupRoutes(mux *http.ServeMux, s *Server) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// API routes
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/chart", s.handleChart)
	mux.HandleFunc("/api/render", s.handleRender)

	// Archive
	mux.HandleFunc("/list_archive", s.handleListArchive)
	mux.HandleFunc("/get_image", s.handleGetImage)
}
