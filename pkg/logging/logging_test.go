package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		l, err := New(level)
		if err != nil {
			t.Fatalf("New(%q) error = %v", level, err)
		}
		_ = l.Sync()
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("chatty"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("서버 상태 확인", 2); got != "서버" {
		t.Errorf("Truncate() = %q, want %q", got, "서버")
	}
	if got := Truncate("short", 50); got != "short" {
		t.Errorf("Truncate() = %q, want %q", got, "short")
	}
}
