// Package profilers implements the debugging and monitoring endpoints of the programs.
//
// If linked, it installs the flags:
//
//   - -prof=<port>: serves net/http/pprof, plus any handler registered with Handle (e.g. Prometheus metrics),
//     on localhost at the given port.
//   - -cpu_profile=<file>: writes a CPU profile of the whole run.
//   - -mem_profile=<file>: writes a heap profile at the end of the run.
package profilers

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"runtime"
	rpprof "runtime/pprof"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagProfiler   = flag.Int("prof", -1, "If set, serves pprof (/debug/pprof) and metrics (/metrics) at the given port.")
	flagCPUProfile = flag.String("cpu_profile", "", "write cpu profile to `file`")
	flagMemProfile = flag.String("mem_profile", "", "write heap profile to `file` at the end of the run")

	mux        = http.NewServeMux()
	server     *http.Server
	cpuProfile *os.File
)

func init() {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// Handle registers an extra handler served with the profiler. It must be called before Setup.
func Handle(pattern string, handler http.Handler) {
	mux.Handle(pattern, handler)
}

// Setup starts the HTTP server (flag -prof) and the CPU profiler (flag -cpu_profile), if they were configured.
// It should be followed by a deferred call to OnQuit.
func Setup(ctx context.Context) error {
	if *flagCPUProfile != "" {
		f, err := os.Create(*flagCPUProfile)
		if err != nil {
			return errors.Wrap(err, "could not create CPU profile")
		}
		if err := rpprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return errors.Wrap(err, "could not start CPU profile")
		}
		cpuProfile = f
	}
	if *flagProfiler >= 0 {
		return serve(ctx, fmt.Sprintf("localhost:%d", *flagProfiler))
	}
	return nil
}

// serve starts the HTTP server on addr, it is shutdown when ctx is done.
func serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	server = &http.Server{Handler: mux}
	klog.Infof("Serving profiler on http://%s/debug/pprof and metrics on http://%s/metrics", listener.Addr(), listener.Addr())
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("profiler server failed: %+v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	return nil
}

// OnQuit stops the CPU profile, writes the heap profile and stops the HTTP server, as configured.
// It should be called before the exit of the main() function, typically with a deferred call just after Setup.
func OnQuit() {
	if cpuProfile != nil {
		rpprof.StopCPUProfile()
		if err := cpuProfile.Close(); err != nil {
			klog.Errorf("failed to close CPU profile: %+v", err)
		}
		cpuProfile = nil
	}
	if *flagMemProfile != "" {
		if err := writeHeapProfile(*flagMemProfile); err != nil {
			klog.Errorf("%+v", err)
		}
	}
	if server != nil {
		_ = server.Close()
		server = nil
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create heap profile")
	}
	defer func() { _ = f.Close() }()
	runtime.GC()
	return errors.Wrap(rpprof.WriteHeapProfile(f), "could not write heap profile")
}
