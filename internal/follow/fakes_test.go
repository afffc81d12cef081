package follow

import (
	"image"
	"maps"
	"slices"
	"time"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

type fakeProvider struct {
	windows    map[platform.WindowHandle]platform.WindowSnapshot
	listCalls  int
	queryCalls int
	listErr    error
	onList     func()
}

func newFakeProvider(ws ...platform.WindowSnapshot) *fakeProvider {
	p := &fakeProvider{windows: make(map[platform.WindowHandle]platform.WindowSnapshot)}
	for _, w := range ws {
		p.put(w)
	}
	return p
}

func (p *fakeProvider) put(w platform.WindowSnapshot) {
	p.windows[w.Handle] = w
}

func (p *fakeProvider) ListWindows(visibleOnly bool) ([]platform.WindowSnapshot, error) {
	p.listCalls++
	if p.onList != nil {
		p.onList()
	}
	if p.listErr != nil {
		return nil, p.listErr
	}
	var out []platform.WindowSnapshot
	for _, h := range slices.Sorted(maps.Keys(p.windows)) {
		w := p.windows[h]
		if visibleOnly && !w.Visible {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (p *fakeProvider) QueryWindow(h platform.WindowHandle) platform.WindowSnapshot {
	p.queryCalls++
	return p.windows[h]
}

func (p *fakeProvider) IsValid(h platform.WindowHandle) bool {
	_, ok := p.windows[h]
	return ok
}

type fakeAttacher struct {
	owners map[platform.WindowHandle]platform.WindowHandle
	calls  int
}

func newFakeAttacher() *fakeAttacher {
	return &fakeAttacher{owners: make(map[platform.WindowHandle]platform.WindowHandle)}
}

func (a *fakeAttacher) Attach(overlay, target platform.WindowHandle) error {
	a.calls++
	a.owners[overlay] = target
	return nil
}

func (a *fakeAttacher) Detach(overlay platform.WindowHandle) error {
	delete(a.owners, overlay)
	return nil
}

func (a *fakeAttacher) EnsureZOrder(overlay, target platform.WindowHandle) error { return nil }

func (a *fakeAttacher) Owner(overlay platform.WindowHandle) platform.WindowHandle {
	return a.owners[overlay]
}

type fakeWidget struct {
	hidden bool
	pos    image.Point
	size   anchor.Size
}

func (w *fakeWidget) SetRuntimeHidden(hidden bool) { w.hidden = hidden }

type fakeInstance struct {
	tpl        Template
	templateID string
	sync       bool
	handle     platform.WindowHandle
}

type fakeRuntime struct {
	instances  map[string]*fakeInstance
	widgets    map[string]*fakeWidget
	created    []string
	destroyed  []string
	updates    map[string]int
	nextHandle platform.WindowHandle
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		instances:  make(map[string]*fakeInstance),
		widgets:    make(map[string]*fakeWidget),
		updates:    make(map[string]int),
		nextHandle: 0x1000,
	}
}

func (r *fakeRuntime) CreateOrUpdateInstance(tpl Template, instanceID, templateID string, sync bool) (InstanceInfo, error) {
	inst, ok := r.instances[instanceID]
	if !ok {
		r.nextHandle++
		inst = &fakeInstance{handle: r.nextHandle}
		r.instances[instanceID] = inst
		r.created = append(r.created, instanceID)
	}
	inst.tpl = tpl
	inst.templateID = templateID
	inst.sync = sync
	r.updates[instanceID]++
	return InstanceInfo{Handle: inst.handle, Position: tpl.Position, Size: tpl.Size}, nil
}

func (r *fakeRuntime) DestroyInstance(instanceID string) {
	if _, ok := r.instances[instanceID]; ok {
		delete(r.instances, instanceID)
		r.destroyed = append(r.destroyed, instanceID)
	}
}

func (r *fakeRuntime) Instance(id string) (InstanceInfo, bool) {
	if inst, ok := r.instances[id]; ok {
		return InstanceInfo{Handle: inst.handle, Position: inst.tpl.Position, Size: inst.tpl.Size}, true
	}
	if w, ok := r.widgets[id]; ok {
		return InstanceInfo{Position: w.pos, Size: w.size}, true
	}
	return InstanceInfo{}, false
}

func (r *fakeRuntime) Widget(templateID string) Hideable {
	w, ok := r.widgets[templateID]
	if !ok {
		return nil
	}
	return w
}

func (r *fakeRuntime) instanceIDs() []string {
	return slices.Sorted(maps.Keys(r.instances))
}

type fakeTicker struct {
	active bool
	period time.Duration
	resets int
}

func (t *fakeTicker) Reset(d time.Duration) {
	t.active = true
	t.period = d
	t.resets++
}

func (t *fakeTicker) Stop() {
	t.active = false
}

func (t *fakeTicker) Active() bool { return t.active }

func (t *fakeTicker) Period() time.Duration {
	if !t.active {
		return 0
	}
	return t.period
}

func (t *fakeTicker) C() <-chan time.Time { return nil }

type recordingSink struct {
	changes []Template
}

func (s *recordingSink) TemplateChanged(tpl Template) {
	s.changes = append(s.changes, tpl)
}

type harness struct {
	ctrl     *Controller
	provider *fakeProvider
	attacher *fakeAttacher
	runtime  *fakeRuntime
	ticker   *fakeTicker
	sink     *recordingSink
}

func newHarness(ws ...platform.WindowSnapshot) *harness {
	h := &harness{
		provider: newFakeProvider(ws...),
		attacher: newFakeAttacher(),
		runtime:  newFakeRuntime(),
		ticker:   &fakeTicker{},
		sink:     &recordingSink{},
	}
	h.ctrl = NewController(ControllerConfig{
		Provider: h.provider,
		Attacher: h.attacher,
		Runtime:  h.runtime,
		Ticker:   h.ticker,
		Sink:     h.sink,
	})
	return h
}

func win(h platform.WindowHandle, class, process, title string) platform.WindowSnapshot {
	return platform.WindowSnapshot{
		Handle:  h,
		Class:   class,
		Process: process,
		Title:   title,
		Bounds:  anchor.Rect{X: float64(h) * 10, Y: 20, Width: 400, Height: 300},
		Visible: true,
	}
}

func batchTemplate(id, class string, pollMs int) Template {
	return Template{
		ID:      id,
		Visible: true,
		Size:    anchor.Size{Width: 32, Height: 32},
		Follow: Config{
			Enabled:        true,
			Batch:          true,
			FilterKind:     WindowClass,
			FilterPattern:  class,
			PollIntervalMs: pollMs,
		},
	}
}

func singleTemplate(id string) Template {
	return Template{
		ID:       id,
		Visible:  true,
		Position: image.Pt(300, 150),
		Size:     anchor.Size{Width: 120, Height: 80},
		Follow: Config{
			Enabled:           true,
			HideWhenMinimized: true,
		},
	}
}
