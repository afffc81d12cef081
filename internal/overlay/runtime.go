package overlay

import (
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// MoveFunc receives the new top-left of a surface the user dragged.
type MoveFunc func(id string, topLeft image.Point)

// RuntimeConfig configures a Runtime.
type RuntimeConfig struct {
	Factory Factory
	Logger  *slog.Logger
	// OnInstanceMoved is called when a follow instance is dragged. It runs
	// on the surface's event goroutine; the receiver checks SyncsToTemplate
	// after marshalling back to the engine.
	OnInstanceMoved MoveFunc
	// OnTemplateMoved is called when a template's own widget is dragged.
	OnTemplateMoved MoveFunc
}

type widget struct {
	surface Surface
	tpl     follow.Template
	img     image.Image
	hidden  bool
}

func (w *widget) SetRuntimeHidden(hidden bool) {
	w.hidden = hidden
	w.surface.SetVisible(w.tpl.Visible && !hidden)
}

type instance struct {
	surface    Surface
	templateID string
	sync       bool
}

// Runtime keeps one surface per sticker template plus one per follow
// instance. It implements follow.Runtime and must only be used from the
// engine goroutine; drag callbacks are forwarded through the Move funcs.
type Runtime struct {
	factory         Factory
	logger          *slog.Logger
	onInstanceMoved MoveFunc
	onTemplateMoved MoveFunc
	widgets         map[string]*widget
	instances       map[string]*instance
}

var _ follow.Runtime = (*Runtime)(nil)

func NewRuntime(cfg RuntimeConfig) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = NewHeadless()
	}
	return &Runtime{
		factory:         factory,
		logger:          logger,
		onInstanceMoved: cfg.OnInstanceMoved,
		onTemplateMoved: cfg.OnTemplateMoved,
		widgets:         make(map[string]*widget),
		instances:       make(map[string]*instance),
	}
}

// Factory returns the surface factory, for callers that create bubbles.
func (r *Runtime) Factory() Factory {
	return r.factory
}

// ShowTemplate creates or updates the template's own widget. A nil img
// keeps the current image, or draws a placeholder for a new widget.
func (r *Runtime) ShowTemplate(tpl follow.Template, img image.Image) error {
	w, ok := r.widgets[tpl.ID]
	if !ok {
		s, err := r.factory.NewSurface(tpl.ID)
		if err != nil {
			return fmt.Errorf("create widget for %s: %w", tpl.ID, err)
		}
		w = &widget{surface: s}
		id := tpl.ID
		s.OnDragEnd(func(p image.Point) {
			if r.onTemplateMoved != nil {
				r.onTemplateMoved(id, p)
			}
		})
		r.widgets[tpl.ID] = w
	}
	if img != nil {
		w.img = img
	}
	if w.img == nil {
		w.img = Placeholder(tpl.Size)
	}
	w.tpl = tpl
	w.surface.SetImage(w.img)
	w.surface.MoveResize(tpl.Position, sizeOrNatural(tpl.Size, w.img))
	w.surface.SetVisible(tpl.Visible && !w.hidden)

	for _, inst := range r.instances {
		if inst.templateID == tpl.ID {
			inst.surface.SetImage(w.img)
		}
	}
	return nil
}

// RemoveTemplate destroys the template's widget. Follow instances are
// owned by the follow controller and are not touched.
func (r *Runtime) RemoveTemplate(id string) {
	w, ok := r.widgets[id]
	if !ok {
		return
	}
	w.surface.Destroy()
	delete(r.widgets, id)
}

// TemplateIDs lists templates with a widget.
func (r *Runtime) TemplateIDs() []string {
	return slices.Sorted(maps.Keys(r.widgets))
}

func (r *Runtime) CreateOrUpdateInstance(tpl follow.Template, instanceID, templateID string, syncToTemplate bool) (follow.InstanceInfo, error) {
	inst, ok := r.instances[instanceID]
	if !ok {
		s, err := r.factory.NewSurface(instanceID)
		if err != nil {
			return follow.InstanceInfo{}, fmt.Errorf("create instance %s: %w", instanceID, err)
		}
		inst = &instance{surface: s, templateID: templateID}
		id := instanceID
		s.OnDragEnd(func(p image.Point) {
			if r.onInstanceMoved != nil {
				r.onInstanceMoved(id, p)
			}
		})
		r.instances[instanceID] = inst

		img := Placeholder(tpl.Size)
		if w, ok := r.widgets[templateID]; ok && w.img != nil {
			img = w.img
		}
		s.SetImage(img)
		r.logger.Debug("instance created", "instance", instanceID, "handle", s.Handle())
	}
	inst.sync = syncToTemplate

	var img image.Image
	if w, ok := r.widgets[templateID]; ok {
		img = w.img
	}
	size := sizeOrNatural(tpl.Size, img)
	if inst.surface.Position() != tpl.Position || inst.surface.Size() != size {
		inst.surface.MoveResize(tpl.Position, size)
	}
	if inst.surface.Visible() != tpl.Visible {
		inst.surface.SetVisible(tpl.Visible)
	}
	return follow.InstanceInfo{
		Handle:   inst.surface.Handle(),
		Position: tpl.Position,
		Size:     size,
	}, nil
}

func (r *Runtime) DestroyInstance(instanceID string) {
	inst, ok := r.instances[instanceID]
	if !ok {
		return
	}
	inst.surface.Destroy()
	delete(r.instances, instanceID)
	r.logger.Debug("instance destroyed", "instance", instanceID)
}

func (r *Runtime) Instance(id string) (follow.InstanceInfo, bool) {
	if inst, ok := r.instances[id]; ok {
		return info(inst.surface), true
	}
	if w, ok := r.widgets[id]; ok {
		return info(w.surface), true
	}
	return follow.InstanceInfo{}, false
}

// OwnsHandle reports whether h is the native window of a template widget or
// a follow instance.
func (r *Runtime) OwnsHandle(h platform.WindowHandle) bool {
	if h == 0 {
		return false
	}
	for _, w := range r.widgets {
		if w.surface.Handle() == h {
			return true
		}
	}
	for _, inst := range r.instances {
		if inst.surface.Handle() == h {
			return true
		}
	}
	return false
}

func (r *Runtime) Widget(templateID string) follow.Hideable {
	w, ok := r.widgets[templateID]
	if !ok {
		return nil
	}
	return w
}

// SyncsToTemplate reports whether drags of the instance should update its
// template.
func (r *Runtime) SyncsToTemplate(instanceID string) bool {
	inst, ok := r.instances[instanceID]
	return ok && inst.sync
}

// InstanceCount returns the number of live follow instances.
func (r *Runtime) InstanceCount() int {
	return len(r.instances)
}

// Close destroys every surface.
func (r *Runtime) Close() {
	for id := range r.instances {
		r.DestroyInstance(id)
	}
	for id := range r.widgets {
		r.RemoveTemplate(id)
	}
}

func info(s Surface) follow.InstanceInfo {
	return follow.InstanceInfo{
		Handle:   s.Handle(),
		Position: s.Position(),
		Size:     s.Size(),
	}
}

// sizeOrNatural returns size, or the natural size of img when size is empty.
func sizeOrNatural(size anchor.Size, img image.Image) anchor.Size {
	if size.Empty() {
		return NaturalSize(img)
	}
	return size
}
