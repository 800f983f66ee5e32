package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/controllers"
	"github.com/ygrab/ygrab/internal/models"
	"github.com/ygrab/ygrab/internal/resolver"
)

// StatusHandler handles status requests
type StatusHandler struct {
	db           *models.Database
	downloadCtrl *controllers.DownloadController
	resolver     *resolver.Resolver
	logger       *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, downloadCtrl *controllers.DownloadController, res *resolver.Resolver, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:           db,
		downloadCtrl: downloadCtrl,
		resolver:     res,
		logger:       logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	Connectivity    string                    `json:"connectivity"`
	Backend         string                    `json:"backend,omitempty"`
	ActiveDownloads []models.ProgressSnapshot `json:"active_downloads"`
	TotalDownloads  int                       `json:"total_downloads"`
	Completed       int                       `json:"completed"`
	Failed          int                       `json:"failed"`
	Canceled        int                       `json:"canceled"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := h.db.GetAllHistory()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get download history")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	base, _ := h.resolver.Base()
	response := StatusResponse{
		Connectivity:    string(h.resolver.State()),
		Backend:         base,
		ActiveDownloads: h.downloadCtrl.Active(),
		TotalDownloads:  len(entries),
	}

	for _, entry := range entries {
		switch entry.Outcome {
		case models.OutcomeCompleted:
			response.Completed++
		case models.OutcomeFailed:
			response.Failed++
		case models.OutcomeCanceled:
			response.Canceled++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
