// Package conversion turns either a recorded frame sequence or an uploaded
// video file into an animated GIF.
//
// Frame sequences are resampled to the target width with Lanczos
// filtering, piped as raw RGBA into ffmpeg to build a lossless intermediate
// container, and that container is then transcoded to GIF. Uploaded files
// go straight to the GIF transcode. Intermediate files are removed on every
// exit path, and the number of jobs running at once is bounded.
package conversion
