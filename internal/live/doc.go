// Package live drives a recording session from a camera to a GIF.
//
// A [Controller] owns the frame pump of the active camera, the capture
// buffer and the last finished recording. Callers send it commands
// (switch camera, toggle recording, create GIF) and read progress from
// [Controller.Events]. Recording and GIF creation are refused while a
// GIF is being produced.
package live
