package platform

import (
	"errors"
	"reflect"
	"testing"
)

func TestHandleCollectorReusedAcrossPasses(t *testing.T) {
	var c handleCollector
	add := c.add

	for pass := 0; pass < 3000; pass++ {
		got, err := c.collect(func() error {
			add(0xa)
			add(WindowHandle(pass))
			return nil
		})
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		want := []WindowHandle{0xa, WindowHandle(pass)}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("pass %d: got %v, want %v", pass, got, want)
		}
	}
}

func TestHandleCollectorIgnoresAddOutsidePass(t *testing.T) {
	var c handleCollector
	c.add(0x1)

	got, err := c.collect(func() error {
		c.add(0x2)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []WindowHandle{0x2}) {
		t.Fatalf("got %v, want [0x2]", got)
	}

	c.add(0x3)
	got, _ = c.collect(func() error { return nil })
	if len(got) != 0 {
		t.Fatalf("stale handles leaked into next pass: %v", got)
	}
}

func TestHandleCollectorReturnsEnumError(t *testing.T) {
	var c handleCollector
	boom := errors.New("enum failed")
	got, err := c.collect(func() error {
		c.add(0x5)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if !reflect.DeepEqual(got, []WindowHandle{0x5}) {
		t.Fatalf("got %v", got)
	}
}
