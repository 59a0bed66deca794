// Package artifacts manages the output directory that holds produced GIFs.
//
// Artifacts are addressed by generated identifiers of the form
// "output_<uuid>.gif". Identifiers supplied by clients are validated before
// any filesystem access so a download request can never escape the output
// directory.
package artifacts
