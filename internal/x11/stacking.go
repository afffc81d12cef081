package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

const (
	netWMStateRemove = 0
	netWMStateAdd    = 1

	// Source indication for pager-like clients; WMs honour these over
	// application requests.
	sourcePager = 2
)

// StackingOrder returns managed windows bottom-to-top.
func (c *Connection) StackingOrder() ([]xproto.Window, error) {
	return ewmh.ClientListStackingGet(c.XUtil)
}

// SetAbove adds or removes _NET_WM_STATE_ABOVE.
func (c *Connection) SetAbove(windowID xproto.Window, above bool) error {
	action := uint32(netWMStateRemove)
	if above {
		action = netWMStateAdd
	}
	atom, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_WM_STATE_ABOVE")), "_NET_WM_STATE_ABOVE").Reply()
	if err != nil {
		return err
	}
	return c.sendRootMessage(windowID, "_NET_WM_STATE", action, uint32(atom.Atom), 0, sourcePager)
}

// RestackBelow places windowID directly below sibling.
func (c *Connection) RestackBelow(windowID, sibling xproto.Window) error {
	return c.sendRootMessage(windowID, "_NET_RESTACK_WINDOW", sourcePager, uint32(sibling), xproto.StackModeBelow)
}

// RestackAbove places windowID directly above sibling.
func (c *Connection) RestackAbove(windowID, sibling xproto.Window) error {
	return c.sendRootMessage(windowID, "_NET_RESTACK_WINDOW", sourcePager, uint32(sibling), xproto.StackModeAbove)
}

// SetTransientFor makes owner the WM_TRANSIENT_FOR of windowID.
func (c *Connection) SetTransientFor(windowID, owner xproto.Window) error {
	return icccm.WmTransientForSet(c.XUtil, windowID, owner)
}

// ClearTransientFor removes WM_TRANSIENT_FOR from windowID.
func (c *Connection) ClearTransientFor(windowID xproto.Window) error {
	atom, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("WM_TRANSIENT_FOR")), "WM_TRANSIENT_FOR").Reply()
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(c.XUtil.Conn(), windowID, atom.Atom).Check()
}

// TransientFor returns the WM_TRANSIENT_FOR owner, or 0.
func (c *Connection) TransientFor(windowID xproto.Window) xproto.Window {
	owner, err := icccm.WmTransientForGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return owner
}

// NearestAbove scans a bottom-to-top stacking list and returns the first
// window above target for which sameGroup is true. ok is false when target
// is not in the list; 0 with ok means target is the top of its group.
func NearestAbove(stack []xproto.Window, target xproto.Window, sameGroup func(xproto.Window) bool) (xproto.Window, bool) {
	idx := -1
	for i, w := range stack {
		if w == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	for _, w := range stack[idx+1:] {
		if sameGroup(w) {
			return w, true
		}
	}
	return 0, true
}
