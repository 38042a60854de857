package testkit

import (
	"context"
	"testing"
	"time"
)

var double = func(n int) int { return n * 2 }

func TestSwapRestores(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Swap(t, &double, func(int) int { return -1 })
		if double(4) != -1 {
			t.Fatalf("swap not applied")
		}
	})
	if double(4) != 8 {
		t.Fatalf("swap not restored")
	}
}

func TestSleepsRecords(t *testing.T) {
	var s Sleeps
	_ = s.Sleep(context.Background(), time.Second)
	_ = s.Sleep(context.Background(), 2*time.Second)
	got := s.Waits()
	if len(got) != 2 || got[1] != 2*time.Second {
		t.Fatalf("Waits = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("expected ctx error")
	}
	if len(s.Waits()) != 2 {
		t.Fatalf("canceled sleep must not record")
	}
}

func TestSerial(t *testing.T) {
	Serial(t)
}
