package modbus

import (
	"sync"
	"time"
)

// deviceLocks is the process-wide pool of per-serial-device mutexes,
// grounded on the teacher's singleConnectionPerAddress client pool: one
// entry per address, created on first use and shared by every caller
// that names the same device (spec.md §5).
var deviceLocks sync.Map // map[string]*sync.Mutex

func deviceMutex(path string) *sync.Mutex {
	v, _ := deviceLocks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// AcquireDevice exclusively locks the named serial device, retrying with
// a short backoff until timeout elapses. Two PollRequests that target
// the same serial port never run concurrently; a caller that cannot
// acquire the lock within timeout gets error 115 ("cannot open serial
// port within timeout").
func AcquireDevice(path string, timeout time.Duration) (release func(), errRec *ErrorRecord) {
	mu := deviceMutex(path)
	deadline := time.Now().Add(timeout)

	for {
		if mu.TryLock() {
			return mu.Unlock, nil
		}
		if time.Now().After(deadline) {
			return nil, NewError(ErrSerialOpenTimeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
