package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/mediatypes"
)

// Download streams a produced GIF. Range requests are served by http.ServeContent.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["filename"]

	f, info, err := h.store.Open(id)
	switch {
	case errors.Is(err, artifacts.ErrInvalidIdentifier):
		writeJSONError(w, "Invalid filename", http.StatusBadRequest)
		return
	case errors.Is(err, artifacts.ErrNotFound):
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	case err != nil:
		logging.Error("failed to open artifact %q: %v", id, err)
		writeJSONError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mediatypes.GetMimeType(filepath.Ext(id)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id))
	http.ServeContent(w, r, id, info.ModTime(), f)
}
