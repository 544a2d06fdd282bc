//go:build statsview

// Package statsview serves runtime statistics over HTTP while the emulator
// runs. It is only functional when built with the statsview tag.
//
// After launch, charts are served at localhost:12600/debug/statsview and the
// standard pprof handlers at localhost:12600/debug/pprof/.
package statsview

import (
	"log/slog"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const (
	Address = "localhost:12600"
	path    = "/debug/statsview"
)

// Launch starts the stats server on its own goroutine.
func Launch() {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(Address))
		mgr := statsview.New()
		if err := mgr.Start(); err != nil {
			slog.Error("stats server stopped", "error", err)
		}
	}()
	slog.Info("stats server available", "url", "http://"+Address+path)
}

// Available reports whether Launch does anything in this build.
func Available() bool {
	return true
}
