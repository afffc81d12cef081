package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// sendRootMessage delivers an EWMH client message to the root window. The
// event is built by hand; the ewmh request helpers type-assert their
// arguments and panic on some inputs with this library version.
func (c *Connection) sendRootMessage(windowID xproto.Window, messageType string, data ...uint32) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len(messageType)), messageType).Reply()
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", messageType, err)
	}

	payload := make([]uint32, 5)
	copy(payload, data)
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
