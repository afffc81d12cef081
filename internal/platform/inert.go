package platform

// Inert is a backend that sees no windows and ignores attachment requests.
// With it the follow engine stays idle without failing.
type Inert struct{}

var _ Backend = Inert{}

func NewInert() Inert { return Inert{} }

func (Inert) Name() string                                  { return "inert" }
func (Inert) ListWindows(bool) ([]WindowSnapshot, error)    { return nil, nil }
func (Inert) QueryWindow(WindowHandle) WindowSnapshot       { return WindowSnapshot{} }
func (Inert) IsValid(WindowHandle) bool                     { return false }
func (Inert) Attach(WindowHandle, WindowHandle) error       { return nil }
func (Inert) Detach(WindowHandle) error                     { return nil }
func (Inert) EnsureZOrder(WindowHandle, WindowHandle) error { return nil }
func (Inert) Owner(WindowHandle) WindowHandle               { return 0 }
func (Inert) ActiveWindow() (WindowHandle, error)           { return 0, nil }
func (Inert) Close()                                        {}
