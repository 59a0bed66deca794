package mediatypes

import (
	"sort"
	"strings"
)

// UploadExtensions lists the video containers accepted for conversion.
var UploadExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
	".m4v":  true,
}

// StillExtensions lists the still image formats an image sequence may contain.
var StillExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",

	".mp4":  "video/mp4",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4v":  "video/x-m4v",
}

// NormalizeExt lowercases ext and adds the leading dot if missing.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// IsAllowedUpload reports whether ext is an accepted upload container.
// The comparison is case-insensitive.
func IsAllowedUpload(ext string) bool {
	return UploadExtensions[NormalizeExt(ext)]
}

// IsStill reports whether ext is a supported still image format.
func IsStill(ext string) bool {
	return StillExtensions[NormalizeExt(ext)]
}

// AllowedUploadList returns the accepted upload extensions in sorted order,
// joined for use in error messages.
func AllowedUploadList() string {
	exts := make([]string, 0, len(UploadExtensions))
	for ext := range UploadExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[NormalizeExt(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
