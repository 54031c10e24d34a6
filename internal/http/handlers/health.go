package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Health always answers 200; store problems are reported in the body.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	report := a.Donations.Health(r.Context())
	a.json(w, http.StatusOK, healthResponse{
		Status:    report.Status,
		Database:  report.Database,
		Timestamp: report.Timestamp.UTC(),
		Error:     report.Error,
	})
}
