package x11

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestNearestAbove(t *testing.T) {
	stack := []xproto.Window{10, 20, 30, 40, 50}
	above := map[xproto.Window]bool{40: true}
	normal := func(w xproto.Window) bool { return !above[w] }

	if got, ok := NearestAbove(stack, 20, normal); !ok || got != 30 {
		t.Fatalf("NearestAbove(20) = %v, %v; want 30, true", got, ok)
	}
	if got, ok := NearestAbove(stack, 30, normal); !ok || got != 50 {
		t.Fatalf("NearestAbove(30) skips other group: got %v, %v", got, ok)
	}
	if got, ok := NearestAbove(stack, 50, normal); !ok || got != 0 {
		t.Fatalf("NearestAbove(top) = %v, %v; want 0, true", got, ok)
	}
	if _, ok := NearestAbove(stack, 99, normal); ok {
		t.Fatal("NearestAbove(missing) reported ok")
	}
}
