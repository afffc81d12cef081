package x11

import "testing"

func TestParseXftDPI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"missing", "Xcursor.size:\t24\n", 0},
		{"set", "Xcursor.size:\t24\nXft.dpi:\t144\nXft.hinting:\t1\n", 144},
		{"spaces", "Xft.dpi :  120 ", 120},
		{"garbage", "Xft.dpi:\thigh\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseXftDPI(tt.in); got != tt.want {
				t.Fatalf("parseXftDPI() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonitorAtAndPrimary(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "DP-1", X: 0, Y: 0, Width: 1920, Height: 1080},
		{ID: 1, Name: "HDMI-1", X: 1920, Y: 0, Width: 2560, Height: 1440, Primary: true},
	}

	if mon, ok := MonitorAt(monitors, 2000, 10); !ok || mon.Name != "HDMI-1" {
		t.Fatalf("MonitorAt = %+v, %v", mon, ok)
	}
	if _, ok := MonitorAt(monitors, -5, 10); ok {
		t.Fatal("expected no monitor for off-screen point")
	}
	if mon, ok := PrimaryMonitor(monitors); !ok || mon.Name != "HDMI-1" {
		t.Fatalf("PrimaryMonitor = %+v, %v", mon, ok)
	}
	if mon, ok := PrimaryMonitor(monitors[:1]); !ok || mon.Name != "DP-1" {
		t.Fatalf("PrimaryMonitor fallback = %+v, %v", mon, ok)
	}
}
