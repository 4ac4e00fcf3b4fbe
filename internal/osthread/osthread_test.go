package osthread

import (
	"runtime"
	"testing"
)

func TestID_StableWhileLocked(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	a, b := ID(), ID()
	if a != b {
		t.Fatalf("ID changed on a locked thread: %d != %d", a, b)
	}
	if runtime.GOOS == "linux" && a == Unknown {
		t.Fatal("expected a thread id on linux")
	}
}

func TestID_DistinctThreads(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("thread ids only on linux")
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	mine := ID()

	other := make(chan int)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		other <- ID()
	}()
	if got := <-other; got == mine {
		t.Fatalf("two locked goroutines share thread id %d", got)
	}
}
