package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/intake"
	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/mediatypes"
	"gif-maker-live/internal/metrics"
	"gif-maker-live/internal/transcoder"
)

const (
	// formOverhead is allowed on top of the upload limit for multipart
	// boundaries and the fps/width fields.
	formOverhead = 1 << 20

	// maxFieldBytes bounds a non-file form field.
	maxFieldBytes = 1024
)

// ConvertResponse is returned by a successful conversion.
type ConvertResponse struct {
	Filename string `json:"filename"`
	FileSize string `json:"file_size"`
	FPS      int    `json:"fps"`
	Width    int    `json:"width"`
}

// Convert accepts a multipart video upload and replies with the GIF it produced.
//
// The body is streamed part by part. The file part goes straight into the
// intake, so its extension is checked before any byte is read and the
// intake's limited copy is the only write to disk.
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.intake.MaxBytes()+formOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeJSONError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	fps, width := conversion.DefaultFPS, conversion.DefaultWidth
	var upload *intake.Upload
	defer func() {
		upload.Cleanup()
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.writeFormError(w, err)
			return
		}

		switch {
		case part.FormName() == "file" && part.FileName() != "":
			if upload != nil {
				// Only the first file is converted; NextPart skips the rest.
				continue
			}
			upload, err = h.intake.Accept(part, part.FileName(), -1, fps, width)
			if err != nil {
				h.writeAcceptError(w, part.FileName(), err)
				return
			}
		case part.FormName() == "fps":
			if fps, err = fieldInt(part, "fps", conversion.DefaultFPS); err != nil {
				h.writeFieldError(w, err)
				return
			}
		case part.FormName() == "width":
			if width, err = fieldInt(part, "width", conversion.DefaultWidth); err != nil {
				h.writeFieldError(w, err)
				return
			}
		}
	}

	if upload == nil {
		writeJSONError(w, "No file uploaded", http.StatusBadRequest)
		return
	}

	fps = conversion.ClampFPS(fps)
	width = conversion.ClampWidth(width)
	upload.FPS, upload.Width = fps, width

	_, output := h.store.Allocate()
	req, err := conversion.NewFileRequest(upload.Path, fps, width, output)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logging.Info("Converting %s (%d bytes) at %d fps, width %d", upload.Name, upload.Size, fps, width)

	art, err := h.converter.Convert(r.Context(), req, nil)
	if err != nil {
		writeJSONError(w, conversionDetail(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ConvertResponse{
		Filename: art.ID,
		FileSize: artifacts.HumanSize(art.Size),
		FPS:      fps,
		Width:    width,
	})
}

func (h *Handlers) writeFormError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		metrics.UploadsRejected.WithLabelValues(metrics.RejectSize).Inc()
		writeJSONError(w, h.tooLargeDetail(), http.StatusBadRequest)
		return
	}
	writeJSONError(w, "Invalid multipart form", http.StatusBadRequest)
}

func (h *Handlers) writeFieldError(w http.ResponseWriter, err error) {
	if errors.Is(err, errNotInteger) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeFormError(w, err)
}

func (h *Handlers) writeAcceptError(w http.ResponseWriter, name string, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, intake.ErrInvalidExtension):
		writeJSONError(w, "Invalid file type. Allowed types: "+mediatypes.AllowedUploadList(), http.StatusBadRequest)
	case errors.Is(err, intake.ErrTooLarge):
		writeJSONError(w, h.tooLargeDetail(), http.StatusBadRequest)
	case errors.As(err, &tooBig):
		metrics.UploadsRejected.WithLabelValues(metrics.RejectSize).Inc()
		writeJSONError(w, h.tooLargeDetail(), http.StatusBadRequest)
	default:
		logging.Error("failed to accept upload %q: %v", name, err)
		writeJSONError(w, "Failed to store upload", http.StatusInternalServerError)
	}
}

func (h *Handlers) tooLargeDetail() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", h.intake.MaxBytes()/(1024*1024))
}

// conversionDetail turns a conversion failure into the client-facing message.
func conversionDetail(err error) string {
	if errors.Is(err, transcoder.ErrConversionTimeout) {
		return "Video conversion timed out"
	}
	var exitErr *transcoder.ExitError
	if errors.As(err, &exitErr) && strings.TrimSpace(exitErr.Stderr) != "" {
		return "FFmpeg error: " + strings.TrimSpace(exitErr.Stderr)
	}
	return "FFmpeg error: " + err.Error()
}

// errNotInteger marks a form field that does not hold an integer.
var errNotInteger = errors.New("must be an integer")

// fieldInt reads an optional integer form field.
func fieldInt(part io.Reader, key string, defaultValue int) (int, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return 0, err
	}
	if len(data) > maxFieldBytes {
		return 0, fmt.Errorf("%s %w", key, errNotInteger)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %w", key, errNotInteger)
	}
	return v, nil
}
