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

	"golang.org/x/sys/unix"
)

const segmentPerms = 0o666

// Create allocates and attaches a new shared-memory segment of size bytes
// at key. It fails if a segment already exists at that key.
func Create(key int, size uint64) (*Segment, error) {
	id, err := unix.SysvShmGet(key, int(size), unix.IPC_CREAT|unix.IPC_EXCL|segmentPerms)
	if err != nil {
		return nil, fmt.Errorf("shmget key 0x%x size %d: %w", key, size, err)
	}

	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		// Clean up the segment we just created so the key is reusable.
		if _, ctlErr := unix.SysvShmCtl(id, unix.IPC_RMID, nil); ctlErr != nil {
			return nil, fmt.Errorf("shmat key 0x%x: %w (rmid also failed: %v)", key, err, ctlErr)
		}
		return nil, fmt.Errorf("shmat key 0x%x: %w", key, err)
	}

	return &Segment{Key: key, ID: id, Mem: mem}, nil
}

// Attach attaches to an existing segment at key. The mapping size is taken
// from the kernel's record of the segment.
func Attach(key int) (*Segment, error) {
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("no segment at key 0x%x: %w", key, err)
	}

	mem, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shmat key 0x%x: %w", key, err)
	}

	return &Segment{Key: key, ID: id, Mem: mem}, nil
}

// NumAttached reports how many processes currently have the segment
// attached, including the caller.
func (s *Segment) NumAttached() (int, error) {
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(s.ID, unix.IPC_STAT, &desc); err != nil {
		return 0, fmt.Errorf("shmctl stat id %d: %w", s.ID, err)
	}
	return int(desc.Nattch), nil
}

// Detach unmaps the segment from this process. The segment itself survives.
func (s *Segment) Detach() error {
	if s.Mem == nil {
		return nil
	}
	if err := unix.SysvShmDetach(s.Mem); err != nil {
		return fmt.Errorf("shmdt id %d: %w", s.ID, err)
	}
	s.Mem = nil
	return nil
}

// Remove marks the segment for destruction. The kernel frees it once the
// last process detaches.
func (s *Segment) Remove() error {
	if _, err := unix.SysvShmCtl(s.ID, unix.IPC_RMID, nil); err != nil {
		return fmt.Errorf("shmctl rmid id %d: %w", s.ID, err)
	}
	return nil
}

// Mlock pins the mapping into physical memory so the kernel never swaps
// it out.
func (s *Segment) Mlock() error {
	if err := unix.Mlock(s.Mem); err != nil {
		return fmt.Errorf("mlock id %d: %w", s.ID, err)
	}
	return nil
}
