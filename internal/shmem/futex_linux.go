//go:build linux

/*
 *
 * Copyright 2025 The psrdada-go Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The futex words live in System V segments shared between processes, so
// the operations must not carry FUTEX_PRIVATE_FLAG. x/sys/unix provides
// the syscall number but not the op constants; these are from
// <linux/futex.h>.
const (
	futexWaitOp = 0 // FUTEX_WAIT
	futexWakeOp = 1 // FUTEX_WAKE
)

// Wait blocks until the value at addr is observed to differ from val or
// another process calls Wake on the same address.
//
// Call this only when the logical condition is unmet and *addr == val, and
// always re-check the condition after it returns: spurious wakeups are
// possible.
func Wait(addr *uint32, val uint32) error {
	// Re-check atomically before entering the syscall. This closes the
	// lost-wake race where the peer bumps the word and wakes between our
	// snapshot and the futex entry.
	if atomic.LoadUint32(addr) != val {
		return nil
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitOp,
		uintptr(val),
		0, // timeout: infinite
		0,
		0,
	)

	if errno != 0 {
		// EAGAIN: the value no longer matched. EINTR: signal. Neither is
		// an error for our purposes; the caller re-checks the condition.
		if errno == unix.EAGAIN || errno == unix.EINTR {
			return nil
		}
		return fmt.Errorf("futex wait: %w", errno)
	}
	return nil
}

// Wake wakes up to n waiters blocked on addr, possibly in other processes.
// It returns the number of waiters actually woken.
func Wake(addr *uint32, n int) (int, error) {
	r1, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakeOp,
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("futex wake: %w", errno)
	}
	return int(r1), nil
}
