// Package capture collects live frames for a recording.
//
// A Source yields decoded frames. A Pump owns one Source, pulls from it on
// its own goroutine and pushes every frame into a Buffer. The Buffer only
// keeps frames while it is armed and disarms itself when the configured
// frame cap is reached, so a recording can never grow without bound.
//
//	buf := capture.NewBuffer()
//	pump := capture.StartPump(ctx, src, buf, capture.PumpOptions{})
//	defer pump.Stop()
//
//	_ = buf.Arm(capture.Settings{MaxFrames: 150, FPS: 8, Width: 320})
//	// ...
//	frames := buf.Disarm()
package capture
