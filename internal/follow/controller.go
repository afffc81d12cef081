// Package follow keeps sticker overlay instances glued to the windows their
// templates follow.
//
// A Controller is not safe for concurrent use. All methods must be called
// from the goroutine that drains its Ticker.
package follow

import (
	"errors"
	"image"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrNoRuntime       = errors.New("no widget runtime")
	ErrInvalidHandle   = errors.New("window handle does not resolve")
)

// ControllerConfig holds the collaborators of a Controller.
type ControllerConfig struct {
	Provider platform.Provider
	Attacher platform.Attacher
	Runtime  Runtime
	// Ticker defaults to a TimeTicker.
	Ticker Ticker
	Sink   ChangeSink
	Logger *slog.Logger
}

type templateState struct {
	tpl       Template
	primary   platform.WindowHandle
	instances map[platform.WindowHandle]string
}

// Controller reconciles follow instances for a set of templates on every
// tick of its Ticker.
type Controller struct {
	provider   platform.Provider
	attacher   platform.Attacher
	runtime    Runtime
	ticker     Ticker
	sink       ChangeSink
	logger     *slog.Logger
	templates  map[string]*templateState
	regexps    regexCache
	refreshing bool

	lastTick    time.Time
	lastTickDur time.Duration
}

// NewController creates a controller with no templates and a stopped
// ticker.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ticker := cfg.Ticker
	if ticker == nil {
		ticker = NewTimeTicker()
	}
	provider := cfg.Provider
	if provider == nil {
		provider = platform.Inert{}
	}
	attacher := cfg.Attacher
	if attacher == nil {
		attacher = platform.Inert{}
	}
	return &Controller{
		provider:  provider,
		attacher:  attacher,
		runtime:   cfg.Runtime,
		ticker:    ticker,
		sink:      cfg.Sink,
		logger:    logger,
		templates: make(map[string]*templateState),
		regexps:   make(regexCache),
	}
}

// Ticks delivers refresh ticks. It is nil while no follow is active.
func (c *Controller) Ticks() <-chan time.Time {
	return c.ticker.C()
}

// SetTemplates replaces the whole template set. Templates missing from tpls
// lose their state and instances.
func (c *Controller) SetTemplates(tpls []Template) {
	seen := make(map[string]bool, len(tpls))
	for _, tpl := range tpls {
		if tpl.ID == "" {
			continue
		}
		c.upsert(tpl)
		seen[tpl.ID] = true
	}
	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		if !seen[id] {
			c.RemoveTemplate(id)
		}
	}
	c.syncTicker()
	c.Refresh()
}

// UpdateTemplate inserts or replaces one template. Disabling follow tears
// down the template's instances and forgets its primary target.
func (c *Controller) UpdateTemplate(tpl Template) {
	if tpl.ID == "" {
		return
	}
	c.upsert(tpl)
	c.syncTicker()
	c.Refresh()
}

func (c *Controller) upsert(tpl Template) {
	st, ok := c.templates[tpl.ID]
	if !ok {
		st = &templateState{instances: make(map[platform.WindowHandle]string)}
		c.templates[tpl.ID] = st
	}
	st.tpl = tpl
	if !tpl.Follow.Enabled {
		c.removeAllInstances(st)
		st.primary = 0
	}
	c.updateVisibility(st)
}

// RemoveTemplate drops a template and destroys its instances.
func (c *Controller) RemoveTemplate(id string) {
	st, ok := c.templates[id]
	if !ok {
		return
	}
	c.removeAllInstances(st)
	delete(c.templates, id)
	c.syncTicker()
}

// Clear removes every template and stops the ticker.
func (c *Controller) Clear() {
	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		c.RemoveTemplate(id)
	}
	c.ticker.Stop()
}

// IsActive reports whether any follow is active and the ticker is running.
func (c *Controller) IsActive() bool {
	return c.ticker.Active()
}

// Interval returns the current tick period, or 0 when stopped.
func (c *Controller) Interval() time.Duration {
	return c.ticker.Period()
}

// Template returns the controller's current copy of a template.
func (c *Controller) Template(id string) (Template, bool) {
	st, ok := c.templates[id]
	if !ok {
		return Template{}, false
	}
	return st.tpl, true
}

// LockToTargetWindow makes h the single follow target of a template. The
// offset is recomputed from the template widget's current position so the
// sticker does not move, and h's process name is remembered for later
// re-acquisition. The updated template is returned and sent to the sink.
func (c *Controller) LockToTargetWindow(templateID string, h platform.WindowHandle) (Template, error) {
	if c.runtime == nil {
		return Template{}, ErrNoRuntime
	}
	st, ok := c.templates[templateID]
	if !ok {
		return Template{}, ErrUnknownTemplate
	}
	if h == 0 {
		return Template{}, ErrInvalidHandle
	}
	info := c.provider.QueryWindow(h)
	if !info.Found() || (info.Bounds.Width == 0 && info.Bounds.Height == 0) {
		return Template{}, ErrInvalidHandle
	}

	existing, haveWidget := c.runtime.Instance(templateID)
	size := resolveSize(st.tpl, existing, haveWidget)
	topLeft := st.tpl.Position
	if haveWidget {
		if !existing.Size.Empty() {
			size = existing.Size
		}
		topLeft = existing.Position
	}

	f := &st.tpl.Follow
	if !size.Empty() {
		f.Offset = anchor.OffsetForPosition(info.Bounds, size, topLeft, f.Anchor, f.OffsetMode)
	}
	if info.Process != "" {
		f.TargetProcess = info.Process
	}
	st.primary = h

	c.logger.Info("template locked to window",
		"template", templateID,
		"window", h,
		"process", info.Process,
		"offset_x", f.Offset.X,
		"offset_y", f.Offset.Y)

	c.updateVisibility(st)
	c.syncTicker()
	c.Refresh()
	c.notify(st.tpl)
	return st.tpl, nil
}

// ClearTarget forgets the remembered process and primary target of a
// template and destroys its instances.
func (c *Controller) ClearTarget(templateID string) (Template, error) {
	st, ok := c.templates[templateID]
	if !ok {
		return Template{}, ErrUnknownTemplate
	}
	st.tpl.Follow.TargetProcess = ""
	st.primary = 0
	c.removeAllInstances(st)
	c.updateVisibility(st)
	c.syncTicker()
	c.notify(st.tpl)
	return st.tpl, nil
}

// InstanceMoved records a user drag of a follow instance by storing the
// offset that reproduces topLeft relative to the instance's target.
func (c *Controller) InstanceMoved(instanceID string, topLeft image.Point) error {
	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		st := c.templates[id]
		for h, iid := range st.instances {
			if iid != instanceID {
				continue
			}
			info := c.provider.QueryWindow(h)
			if !info.Found() {
				return ErrInvalidHandle
			}
			var existing InstanceInfo
			var ok bool
			if c.runtime != nil {
				existing, ok = c.runtime.Instance(instanceID)
			}
			size := resolveSize(st.tpl, existing, ok)
			f := &st.tpl.Follow
			f.Offset = anchor.OffsetForPosition(info.Bounds, size, topLeft, f.Anchor, f.OffsetMode)
			c.logger.Debug("instance moved", "instance", instanceID, "x", topLeft.X, "y", topLeft.Y)
			c.notify(st.tpl)
			return nil
		}
	}
	return ErrUnknownTemplate
}

// Refresh runs one reconciliation pass. A call made while a pass is in
// progress returns immediately.
func (c *Controller) Refresh() {
	if c.refreshing || c.runtime == nil {
		return
	}
	c.refreshing = true
	start := time.Now()
	defer func() {
		c.refreshing = false
		c.lastTick = start
		c.lastTickDur = time.Since(start)
	}()

	needEnumeration := false
	for _, st := range c.templates {
		f := st.tpl.Follow
		if !f.Enabled {
			continue
		}
		if f.Batch || (st.primary == 0 && strings.TrimSpace(f.TargetProcess) != "") {
			needEnumeration = true
			break
		}
	}

	var windows []platform.WindowSnapshot
	if needEnumeration {
		var err error
		windows, err = c.provider.ListWindows(true)
		if err != nil {
			c.logger.Debug("window enumeration failed", "error", err)
			windows = nil
		}
	}

	for _, id := range slices.Sorted(maps.Keys(c.templates)) {
		st := c.templates[id]
		if !st.tpl.Follow.Enabled {
			continue
		}
		if !st.tpl.Follow.Batch && st.primary != 0 && !needEnumeration {
			var subset []platform.WindowSnapshot
			if info := c.provider.QueryWindow(st.primary); info.Found() && info.Visible {
				subset = append(subset, info)
			}
			c.reconcile(st, subset)
		} else {
			c.reconcile(st, windows)
		}
		c.updateVisibility(st)
	}

	c.syncTicker()
}

func (c *Controller) reconcile(st *templateState, windows []platform.WindowSnapshot) {
	f := st.tpl.Follow

	var matched []platform.WindowSnapshot
	if f.Batch {
		for _, w := range windows {
			if matches(f, w, c.regexps.compile) {
				matched = append(matched, w)
			}
		}
	} else {
		if st.primary != 0 {
			if w, ok := findHandle(windows, st.primary); ok {
				matched = append(matched, w)
			} else if c.provider.IsValid(st.primary) {
				// Hidden but alive, e.g. on another virtual desktop.
				c.removeStale(st, nil)
				return
			}
		}
		if len(matched) == 0 && strings.TrimSpace(f.TargetProcess) != "" {
			for _, w := range windows {
				if strings.EqualFold(w.Process, f.TargetProcess) {
					if st.primary != w.Handle {
						c.logger.Debug("follow target re-acquired",
							"template", st.tpl.ID,
							"window", w.Handle,
							"process", w.Process)
					}
					matched = append(matched, w)
					break
				}
			}
		}
	}

	alive := make(map[platform.WindowHandle]bool, len(matched))
	if len(matched) == 0 {
		c.removeStale(st, alive)
		st.primary = 0
		return
	}

	if !f.Batch {
		target := matched[0]
		st.primary = target.Handle
		alive[target.Handle] = true
		c.place(st, target, true)
		c.removeStale(st, alive)
		return
	}

	for _, w := range matched {
		alive[w.Handle] = true
		c.place(st, w, false)
	}
	c.removeStale(st, alive)
}

func (c *Controller) place(st *templateState, target platform.WindowSnapshot, syncToTemplate bool) {
	f := st.tpl.Follow
	id := InstanceID(st.tpl.ID, target.Handle)
	existing, ok := c.runtime.Instance(id)

	inst := st.tpl
	if size := resolveSize(st.tpl, existing, ok); !size.Empty() {
		inst.Size = size
	}
	inst.Position = anchor.AnchoredPosition(target.Bounds, inst.Size, f.Anchor, f.OffsetMode, f.Offset)
	inst.Visible = st.tpl.Visible && !(target.Minimized && f.HideWhenMinimized)

	info, err := c.runtime.CreateOrUpdateInstance(inst, id, st.tpl.ID, syncToTemplate)
	if err != nil {
		c.logger.Warn("failed to update follow instance", "instance", id, "error", err)
		return
	}
	st.instances[target.Handle] = id
	if info.Handle == 0 {
		return
	}
	if err := c.attacher.Attach(info.Handle, target.Handle); err != nil {
		c.logger.Debug("attach failed", "instance", id, "target", target.Handle, "error", err)
	}
}

// removeStale destroys instances whose target is not in alive.
func (c *Controller) removeStale(st *templateState, alive map[platform.WindowHandle]bool) {
	var stale []platform.WindowHandle
	for h := range st.instances {
		if !alive[h] {
			stale = append(stale, h)
		}
	}
	for _, h := range stale {
		id := st.instances[h]
		if c.runtime != nil {
			c.runtime.DestroyInstance(id)
		}
		delete(st.instances, h)
		c.logger.Debug("follow instance removed", "instance", id)
	}
}

func (c *Controller) removeAllInstances(st *templateState) {
	c.removeStale(st, nil)
}

// updateVisibility hides a template's own widget while follow instances
// stand in for it.
func (c *Controller) updateVisibility(st *templateState) {
	if c.runtime == nil {
		return
	}
	w := c.runtime.Widget(st.tpl.ID)
	if w == nil {
		return
	}
	f := st.tpl.Follow
	hide := false
	if f.Enabled {
		if f.Batch {
			hide = len(st.instances) > 0
		} else {
			hide = st.primary != 0
		}
	}
	w.SetRuntimeHidden(hide)
}

func (c *Controller) syncTicker() {
	d := c.effectiveInterval()
	if d <= 0 {
		if c.ticker.Active() {
			c.logger.Debug("follow ticker stopped")
			c.ticker.Stop()
		}
		return
	}
	if !c.ticker.Active() || c.ticker.Period() != d {
		c.logger.Debug("follow ticker reset", "interval", d)
		c.ticker.Reset(d)
	}
}

// effectiveInterval is the smallest poll interval over active follows, or 0
// when none is active.
func (c *Controller) effectiveInterval() time.Duration {
	var d time.Duration
	for _, st := range c.templates {
		if !st.active() {
			continue
		}
		if p := st.tpl.Follow.PollInterval(); d == 0 || p < d {
			d = p
		}
	}
	return d
}

func (st *templateState) active() bool {
	f := st.tpl.Follow
	if !f.Enabled {
		return false
	}
	if f.Batch {
		return true
	}
	return st.primary != 0 || strings.TrimSpace(f.TargetProcess) != ""
}

func (c *Controller) notify(tpl Template) {
	if c.sink != nil {
		c.sink.TemplateChanged(tpl)
	}
}

func resolveSize(tpl Template, existing InstanceInfo, ok bool) anchor.Size {
	if !tpl.Size.Empty() {
		return tpl.Size
	}
	if ok && !existing.Size.Empty() {
		return existing.Size
	}
	return anchor.Size{}
}

func findHandle(windows []platform.WindowSnapshot, h platform.WindowHandle) (platform.WindowSnapshot, bool) {
	for _, w := range windows {
		if w.Handle == h {
			return w, true
		}
	}
	return platform.WindowSnapshot{}, false
}
