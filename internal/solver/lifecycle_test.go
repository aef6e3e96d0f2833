package solver

import "testing"

func TestLifecycleRefCounting(t *testing.T) {
	global.mu.Lock()
	global.refCount = 0
	global.selectedGPU = -1
	global.mu.Unlock()

	if err := Release(); err == nil {
		t.Error("Release before Init should fail with InvalidState")
	}

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	if err := SetGPU(0); err != nil {
		t.Fatalf("SetGPU: %v", err)
	}

	if err := Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	global.mu.Lock()
	stillUp := global.refCount
	global.mu.Unlock()
	if stillUp != 1 {
		t.Errorf("refCount = %d after one Release of two Inits, want 1", stillUp)
	}

	if err := Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	global.mu.Lock()
	gpu := global.selectedGPU
	global.mu.Unlock()
	if gpu != -1 {
		t.Errorf("selectedGPU = %d after full Release, want -1 (reset)", gpu)
	}
}
