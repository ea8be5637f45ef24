package snd

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl performs a generic ioctl syscall.
func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}

	return nil
}

// Direction bits of an ioctl request code.
const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

// ioc builds an ioctl request code the way the kernel _IOC macro does.
func ioc(dir, typ, nr, size uintptr) uintptr {
	const (
		nrShift   = 0
		typeShift = nrShift + 8
		sizeShift = typeShift + 8
		dirShift  = sizeShift + 14
	)

	return (dir << dirShift) | (typ << typeShift) | (nr << nrShift) | (size << sizeShift)
}

// Request codes for the PCM ('A') and control ('U') interfaces.
var (
	pcmIoctlInfo     = ioc(iocRead, 'A', 0x01, unsafe.Sizeof(pcmInfo{}))
	pcmIoctlHwParams = ioc(iocRead|iocWrite, 'A', 0x11, unsafe.Sizeof(hwParams{}))
	pcmIoctlHwFree   = ioc(iocNone, 'A', 0x12, 0)
	pcmIoctlSwParams = ioc(iocRead|iocWrite, 'A', 0x13, unsafe.Sizeof(swParams{}))
	pcmIoctlPrepare  = ioc(iocNone, 'A', 0x40, 0)
	pcmIoctlDrop     = ioc(iocNone, 'A', 0x43, 0)

	ctlIoctlCardInfo = ioc(iocRead, 'U', 0x01, unsafe.Sizeof(ctlCardInfo{}))
	ctlIoctlElemList = ioc(iocRead|iocWrite, 'U', 0x10, unsafe.Sizeof(ctlElemList{}))
	ctlIoctlElemInfo = ioc(iocRead|iocWrite, 'U', 0x11, unsafe.Sizeof(ctlElemInfo{}))
	ctlIoctlElemRead = ioc(iocRead|iocWrite, 'U', 0x12, unsafe.Sizeof(ctlElemValue{}))
	ctlIoctlTlvRead  = ioc(iocRead|iocWrite, 'U', 0x1a, unsafe.Sizeof(ctlTlv{}))
)
