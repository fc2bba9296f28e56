package logger

import "testing"

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "PRODUCTION", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		l.With("mode", mode).Debug("logger ready")
	}
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Info("ignored", "k", "v")
	l.Sync()
}
