package ps

import (
	"testing"
)

func TestHostStatus(t *testing.T) {
	s, err := HostStatus()
	if err != nil {
		t.Skipf("host stats unavailable: %s", err)
	}
	if s.Memory.Total == 0 {
		t.Fatal("expected non-zero total memory")
	}
	if s.Memory.Used > s.Memory.Total {
		t.Fatalf("used %d exceeds total %d", s.Memory.Used, s.Memory.Total)
	}
	if s.Memory.Human == "" {
		t.Fatal("expected a human readable memory summary")
	}
}
