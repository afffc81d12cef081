//go:build !linux && !windows

package platform

// Open returns the inert backend; no native window backend exists here.
func Open(opts Options) (Backend, error) {
	opts.logger().Warn("no native window backend on this platform, follow engine will stay idle")
	return NewInert(), nil
}
