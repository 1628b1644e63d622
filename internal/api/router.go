package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /sessions", h.CreateSession)
	mux.HandleFunc("GET /sessions", h.ListSessions)
	mux.HandleFunc("GET /sessions/{sessionId}", h.GetSession)
	mux.HandleFunc("DELETE /sessions/{sessionId}", h.DeleteSession)
	mux.HandleFunc("POST /sessions/{sessionId}/send-text", h.SendText)
	mux.HandleFunc("POST /sessions/{sessionId}/send-personalized-bulk-text", h.SendPersonalizedBulkText)

	mux.HandleFunc("GET /bulk-jobs", h.ListBulkJobs)
	mux.HandleFunc("GET /bulk-jobs/{jobId}", h.GetBulkJob)

	mux.HandleFunc("GET /monitor/status", h.MonitorStatus)
	mux.HandleFunc("POST /monitor/start", h.MonitorStart)
	mux.HandleFunc("POST /monitor/stop", h.MonitorStop)

	mux.HandleFunc("GET /messages/sent", h.ListSentDeliveries)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("whats-app-front"))
	})

	return mux
}
