package handlers

import (
	"net/http"

	"gif-maker-live/internal/logging"
)

// ClearArtifacts removes every produced GIF from the output directory.
func (h *Handlers) ClearArtifacts(w http.ResponseWriter, _ *http.Request) {
	freed, err := h.store.Clear()
	if err != nil {
		logging.Error("failed to clear artifacts: %v", err)
		writeJSONError(w, "Failed to clear artifacts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"freedBytes": freed,
	})
}
