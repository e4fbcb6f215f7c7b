package supervisor

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	b := NewBackoff(5*time.Second, 60*time.Second, 20)

	if d := b.Delay(); d != 0 {
		t.Fatalf("initial Delay() = %v, want 0", d)
	}

	for _i := 0; _i < 19; _i++ {
		b.Fail()
	}
	if d := b.Delay(); d != 5*time.Second {
		t.Errorf("Delay() after 19 failures = %v, want 5s", d)
	}

	b.Fail()
	if d := b.Delay(); d != 60*time.Second {
		t.Errorf("Delay() after 20 failures = %v, want 60s", d)
	}

	b.Fail()
	if d := b.Delay(); d != 60*time.Second {
		t.Errorf("Delay() after 21 failures = %v, want 60s", d)
	}

	b.Connected()
	if d := b.Delay(); d != 0 {
		t.Errorf("Delay() after Connected = %v, want 0", d)
	}
	if n := b.Failures(); n != 0 {
		t.Errorf("Failures() after Connected = %d, want 0", n)
	}

	b.Fail()
	if d := b.Delay(); d != 5*time.Second {
		t.Errorf("Delay() after reset and one failure = %v, want 5s", d)
	}
}
