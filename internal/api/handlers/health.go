package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ygrab/ygrab/internal/resolver"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	resolver *resolver.Resolver
	logger   *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(res *resolver.Resolver, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{resolver: res, logger: logger}
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	base, _ := h.resolver.Base()
	response := map[string]string{
		"status":       "healthy",
		"connectivity": string(h.resolver.State()),
		"backend":      base,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
