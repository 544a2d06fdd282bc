//go:build !statsview

package statsview

import "log/slog"

// Launch logs that the binary was built without the statsview tag.
func Launch() {
	slog.Warn("stats server not available, rebuild with -tags statsview")
}

// Available reports whether Launch does anything in this build.
func Available() bool {
	return false
}
