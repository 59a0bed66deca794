/*
Package workers sizes and bounds concurrent conversion jobs.

Each conversion runs one or two ffmpeg processes that use a full CPU core,
so the number of jobs allowed at once follows runtime.GOMAXPROCS, which Go
1.25+ sets from the container CPU limit. runtime.NumCPU would report the
host's cores instead.

	n := workers.ForCPU(8) // 1 per available CPU, at most 8
	lim := workers.NewLimiter(n)

	if err := lim.Acquire(ctx); err != nil {
	    return err // ctx ended while waiting
	}
	defer lim.Release()

# Environment Variable Override

CONVERSION_WORKERS replaces the automatic calculation. The limit passed to
Count still applies.

	env:
	- name: CONVERSION_WORKERS
	  value: "2"
*/
package workers
