// Command gifmaker-live records frames from a camera and turns a recording
// into an animated GIF with ffmpeg.
//
// Usage:
//
//	gifmaker-live [flags]
//
// Flags:
//
//	--camera N          camera index to open first (default 0)
//	--frames-dir DIR    replay still images from DIR instead of a camera
//	--list-cameras      print the camera indices that can be opened and exit
//	--fps N             frame rate of the GIF (default 8)
//	--width N           width of the GIF in pixels (default 320)
//	--max-frames N      stop recording after N frames (default 150)
//	--name NAME         base name of created GIFs (default live_recording)
//	--output-dir DIR    where GIFs are written (default ~/Downloads)
//	--ffmpeg PATH       ffmpeg executable ($FFMPEG_PATH)
//	--timeout D         limit for one ffmpeg run ($CONVERSION_TIMEOUT)
//
// Keys:
//
//	r   start or stop recording
//	c   create a GIF from the last recording
//	n   switch to the next camera
//	q   quit (press twice while a GIF is being created)
//
// Created files are named <name>_<YYYYMMDD_HHMMSS>.gif.
package main
