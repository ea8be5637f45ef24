package pcmdev

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultNotifyPath is the kernel node that receives audio device power state records.
const DefaultNotifyPath = "/sys/kernel/aud_dev/state"

// notifyRecordLen is the fixed record size, NUL padded.
const notifyRecordLen = 9

// SysfsNotifier writes "<id> <0|1>" records to a sysfs node.
// The node is opened on the first Notify; while it cannot be opened every Notify retries.
type SysfsNotifier struct {
	path string

	mu sync.Mutex
	fd int
}

// NewSysfsNotifier returns a notifier writing to path.
func NewSysfsNotifier(path string) *SysfsNotifier {
	return &SysfsNotifier{path: path, fd: -1}
}

// Notify writes one state record.
func (n *SysfsNotifier) Notify(endpointID uint32, enabled bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fd < 0 {
		fd, err := unix.Open(n.path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", n.path, err)
		}
		n.fd = fd
	}

	state := 0
	if enabled {
		state = 1
	}

	record := make([]byte, notifyRecordLen)
	copy(record[:notifyRecordLen-1], fmt.Sprintf("%d %d", endpointID, state))

	if _, err := unix.Write(n.fd, record); err != nil {
		return fmt.Errorf("write to %s failed: %w", n.path, err)
	}

	return nil
}

// Close closes the node. A later Notify opens it again.
func (n *SysfsNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fd < 0 {
		return nil
	}

	err := unix.Close(n.fd)
	n.fd = -1

	return err
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(uint32, bool) error { return nil }

// Close does nothing.
func (NopNotifier) Close() error { return nil }
