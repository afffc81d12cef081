package platform

// handleCollector gathers handles reported by a native enumeration callback.
// The callback is shared process-wide, so passes are serialized by the
// caller and add only records while collect is running.
type handleCollector struct {
	active  bool
	handles []WindowHandle
}

// collect runs enum and returns the handles added during it.
func (c *handleCollector) collect(enum func() error) ([]WindowHandle, error) {
	c.active = true
	c.handles = nil
	err := enum()
	out := c.handles
	c.active = false
	c.handles = nil
	return out, err
}

func (c *handleCollector) add(h WindowHandle) {
	if c.active {
		c.handles = append(c.handles, h)
	}
}
