package x11

import (
	"strconv"
	"strings"

	"github.com/BurntSushi/xgbutil/xprop"
)

// XftDPI reads Xft.dpi from the root RESOURCE_MANAGER property. It returns
// 0 when the resource is not set.
func (c *Connection) XftDPI() float64 {
	resources, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, c.Root, "RESOURCE_MANAGER"))
	if err != nil {
		return 0
	}
	return parseXftDPI(resources)
}

func parseXftDPI(resources string) float64 {
	for _, line := range strings.Split(resources, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || dpi <= 0 {
			return 0
		}
		return dpi
	}
	return 0
}
