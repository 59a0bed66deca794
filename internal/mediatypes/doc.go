// Package mediatypes holds the file extension tables shared by upload
// intake, the image-sequence frame source and the download handler.
//
// It has no dependencies beyond the standard library so any package can
// import it without creating cycles.
//
//	ext := strings.ToLower(filepath.Ext(name))
//	if !mediatypes.IsAllowedUpload(ext) {
//	    // reject
//	}
package mediatypes
