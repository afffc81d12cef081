package follow

import (
	"image"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// InstanceInfo is what the widget runtime knows about a live overlay.
type InstanceInfo struct {
	// Handle is the overlay's native window, or 0 if it has none yet.
	Handle   platform.WindowHandle
	Position image.Point
	Size     anchor.Size
}

// Hideable is a template's own widget. The controller hides it while
// follow instances stand in for it.
type Hideable interface {
	SetRuntimeHidden(hidden bool)
}

// Runtime creates and destroys overlay instances. Implementations are
// called from the engine goroutine only.
type Runtime interface {
	// CreateOrUpdateInstance creates the instance if needed, then applies
	// tpl's position, size and visibility to it. When syncToTemplate is
	// set, user drags of the instance are reported back to the template.
	CreateOrUpdateInstance(tpl Template, instanceID, templateID string, syncToTemplate bool) (InstanceInfo, error)
	DestroyInstance(instanceID string)
	// Instance looks up a follow instance or, given a template id, the
	// template's own widget.
	Instance(id string) (InstanceInfo, bool)
	// Widget returns nil when the template has no widget.
	Widget(templateID string) Hideable
}

// ChangeSink receives templates whose follow config was changed by the
// controller. Delivery is at-least-once.
type ChangeSink interface {
	TemplateChanged(tpl Template)
}

// ChangeFunc adapts a function to ChangeSink.
type ChangeFunc func(tpl Template)

func (f ChangeFunc) TemplateChanged(tpl Template) { f(tpl) }
