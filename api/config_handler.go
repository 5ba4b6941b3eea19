package api

import (
	"net/http"

	"github.com/lukeacampbell/Stock-News-Sentiment/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/config.
type ConfigResponse struct {
	Config     *config.Config     `json:"config"`
	ConfigFile string             `json:"config_file"` // path to the active config file
	Keys       []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration. API keys are excluded
// from the config itself and reported masked under keys.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.cfg.File,
			Keys:       config.CheckAPIKeys(s.cfg),
		},
	})
}
