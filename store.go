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

package psrdada

import (
	"fmt"
	"unsafe"

	"github.com/kiranshila/psrdada-go/internal/shmem"
)

// store is one slot ring living in a System V segment. It provides the
// primitive slot operations; mutual exclusion between callers is the job
// of the Writer and Reader guards above it.
//
// Slots are addressed by monotonically increasing cursors; the slot index
// is cursor mod slotCount. The writer owns the shared write cursor; each
// reader seat persists its own read cursor in the control block. A slot
// is writable when its pending count is zero and readable when the write
// cursor has passed it.
type store struct {
	seg *shmem.Segment

	// Cached geometry; fixed for the life of the segment.
	slotSize   uint64
	slotCount  uint64
	metaOffset uint64
	dataOffset uint64
}

// createStore allocates, maps, and initializes a fresh ring at key.
func createStore(key int, slotCount, slotSize uint64, readerCount uint32) (*store, error) {
	if readerCount == 0 || readerCount > maxReaderCount {
		return nil, fmt.Errorf("%w: reader count %d out of range [1, %d]", ErrInit, readerCount, maxReaderCount)
	}

	total, metaOff, dataOff, err := storeLayout(slotCount, slotSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInit, err)
	}

	seg, err := shmem.Create(key, total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInit, err)
	}

	s := &store{
		seg:        seg,
		slotSize:   slotSize,
		slotCount:  slotCount,
		metaOffset: metaOff,
		dataOffset: dataOff,
	}

	// A fresh SysV segment is zero-filled, so cursors, sequence words, and
	// slot metadata all start in the correct state; only the identity and
	// geometry need writing.
	hdr := s.header()
	var magic [8]byte
	copy(magic[:], storeMagic)
	hdr.SetMagic(magic)
	hdr.SetVersion(storeVersion)
	hdr.SetSlotSize(slotSize)
	hdr.SetSlotCount(slotCount)
	hdr.SetReaderCount(readerCount)

	return s, nil
}

// connectStore attaches to an existing ring at key and validates it.
func connectStore(key int) (*store, error) {
	seg, err := shmem.Attach(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}

	if seg.Size() < storeHeaderSize {
		detachQuietly(seg)
		return nil, fmt.Errorf("%w: segment at key 0x%x too small (%d bytes)", ErrConnect, key, seg.Size())
	}

	s := &store{seg: seg}
	hdr := s.header()
	if err := validateStoreHeader(hdr, seg.Size()); err != nil {
		detachQuietly(seg)
		return nil, fmt.Errorf("%w: key 0x%x: %v", ErrConnect, key, err)
	}

	s.slotSize = hdr.SlotSize()
	s.slotCount = hdr.SlotCount()
	_, s.metaOffset, s.dataOffset, _ = storeLayout(s.slotCount, s.slotSize)
	return s, nil
}

// header returns the shared control block. No Go pointers into the segment
// are retained across calls; addresses are computed on demand.
func (s *store) header() *storeHeader {
	return (*storeHeader)(unsafe.Pointer(&s.seg.Mem[0]))
}

// meta returns the metadata record for the slot addressed by cursor.
func (s *store) meta(cursor uint64) *slotMeta {
	idx := cursor % s.slotCount
	off := uintptr(s.metaOffset) + uintptr(idx)*slotMetaSize
	return (*slotMeta)(unsafe.Pointer(uintptr(unsafe.Pointer(&s.seg.Mem[0])) + off))
}

// slot returns the full byte view of the slot addressed by cursor.
func (s *store) slot(cursor uint64) []byte {
	idx := cursor % s.slotCount
	off := s.dataOffset + idx*s.slotSize
	return s.seg.Mem[off : off+s.slotSize]
}

// Writer role.

// lockWriter takes the exclusive writer role, blocking until the current
// holder releases it. The same process re-locking without unlocking first
// will hang; that hazard is documented, not detected.
func (s *store) lockWriter() error {
	hdr := s.header()
	for {
		if hdr.Destroyed() {
			return fmt.Errorf("%w: writer lock", ErrDestroyed)
		}
		if hdr.TryLockWriter() {
			return nil
		}
		if err := shmem.Wait(&hdr.writerLock, 1); err != nil {
			return fmt.Errorf("%w: %v", ErrLocking, err)
		}
	}
}

// unlockWriter releases the writer role and wakes one waiter.
func (s *store) unlockWriter() error {
	hdr := s.header()
	if !hdr.UnlockWriter() {
		return fmt.Errorf("%w: writer role not held", ErrLocking)
	}
	if _, err := shmem.Wake(&hdr.writerLock, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrLocking, err)
	}
	return nil
}

// Reader role.

// lockReader occupies one of the configured reader seats and returns its
// index, blocking while all seats are taken. Each seat's read cursor is
// persisted in the control block, so whichever guard takes a seat resumes
// reading where that seat stopped.
func (s *store) lockReader() (uint32, error) {
	hdr := s.header()
	for {
		if hdr.Destroyed() {
			return 0, fmt.Errorf("%w: reader lock", ErrDestroyed)
		}
		active := hdr.ReadersActive()
		if active < hdr.ReaderCount() {
			for seat := uint32(0); seat < hdr.ReaderCount(); seat++ {
				if hdr.TrySeatReader(seat) {
					return seat, nil
				}
			}
			// Lost the race for every seat; re-observe and wait.
			continue
		}
		if err := shmem.Wait(&hdr.readersActive, active); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLocking, err)
		}
	}
}

// unlockReader vacates a reader seat and wakes one waiter. The seat's
// read cursor stays behind for the next occupant.
func (s *store) unlockReader(seat uint32) error {
	hdr := s.header()
	hdr.UnseatReader(seat)
	if _, err := shmem.Wake(&hdr.readersActive, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrLocking, err)
	}
	return nil
}

// readCursor returns the persisted cursor for a seat.
func (s *store) readCursor(seat uint32) uint64 {
	return s.header().ReadCursor(seat)
}

// advanceReadCursor persists a seat's cursor after a slot is cleared.
func (s *store) advanceReadCursor(seat uint32, cursor uint64) {
	s.header().SetReadCursor(seat, cursor)
}

// Slot acquisition and hand-off.

// acquireWriteSlot blocks until the slot at cursor has been cleared by
// every reader, then returns its byte view. The caller must hold the
// writer role.
func (s *store) acquireWriteSlot(cursor uint64) ([]byte, error) {
	hdr := s.header()
	m := s.meta(cursor)
	for {
		if hdr.Destroyed() {
			return nil, fmt.Errorf("%w: write slot", ErrDestroyed)
		}
		// Snapshot the space sequence before re-checking so a clear that
		// lands in between forces Wait to return immediately.
		seq := hdr.SpaceSeq()
		if m.Pending() == 0 {
			return s.slot(cursor), nil
		}
		if err := shmem.Wait(&hdr.spaceSeq, seq); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWrite, err)
		}
	}
}

// markFilled publishes the slot at cursor: the EOD tag (applied here, with
// the byte count, so readers can never observe one without the other),
// the valid byte count, the pending-reader count, and finally the advanced
// write cursor, which is the point the slot becomes visible. Wakes every
// reader waiting for data.
func (s *store) markFilled(cursor uint64, n uint64, eod bool) error {
	if n > s.slotSize {
		return fmt.Errorf("%w: %d bytes into %d-byte slot", ErrWriteOverflow, n, s.slotSize)
	}

	hdr := s.header()
	m := s.meta(cursor)
	m.SetEOD(eod)
	m.SetFilled(n)
	m.SetPending(hdr.ReaderCount())
	hdr.SetWriteCursor(cursor + 1)

	hdr.BumpDataSeq()
	if _, err := shmem.Wake(&hdr.dataSeq, int(hdr.ReaderCount())); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// acquireReadSlot blocks until the writer has published the slot at
// cursor, then returns its filled byte view. The caller must hold a
// reader seat.
func (s *store) acquireReadSlot(cursor uint64) ([]byte, error) {
	hdr := s.header()
	for {
		if hdr.Destroyed() {
			return nil, fmt.Errorf("%w: read slot", ErrDestroyed)
		}
		seq := hdr.DataSeq()
		if hdr.WriteCursor() > cursor {
			n := s.meta(cursor).Filled()
			return s.slot(cursor)[:n], nil
		}
		if err := shmem.Wait(&hdr.dataSeq, seq); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRead, err)
		}
	}
}

// markCleared records one reader's release of the slot at cursor and
// reports whether that slot carried the end-of-data tag. The tag is
// captured before the pending count drops: once the count reaches zero
// the writer may reuse the slot and overwrite its metadata, so reading it
// afterwards would race. This is what lets the public protocol order
// (clear, then check EOD, then unlock) stay race-free.
func (s *store) markCleared(cursor uint64) (bool, error) {
	hdr := s.header()
	m := s.meta(cursor)

	eod := m.EOD()
	if m.DropPending() == 0 {
		hdr.BumpSpaceSeq()
		if _, err := shmem.Wake(&hdr.spaceSeq, 1); err != nil {
			return eod, fmt.Errorf("%w: %v", ErrRead, err)
		}
	}
	return eod, nil
}

// reset rewinds the ring so a second logical stream can begin in the same
// allocation: cursor to zero, every slot metadata record cleared, both
// sequence words bumped so stale waiters re-check. The caller must hold
// the writer role and there must be no blocks in flight.
func (s *store) reset() error {
	hdr := s.header()
	if hdr.Destroyed() {
		return fmt.Errorf("%w: reset", ErrDestroyed)
	}

	for i := uint64(0); i < s.slotCount; i++ {
		m := s.meta(i)
		m.SetFilled(0)
		m.SetEOD(false)
		m.SetPending(0)
	}
	hdr.SetWriteCursor(0)
	for seat := uint32(0); seat < maxReaderCount; seat++ {
		hdr.SetReadCursor(seat, 0)
	}

	hdr.BumpDataSeq()
	hdr.BumpSpaceSeq()
	if _, err := shmem.Wake(&hdr.dataSeq, int(hdr.ReaderCount())); err != nil {
		return fmt.Errorf("%w: %v", ErrReset, err)
	}
	if _, err := shmem.Wake(&hdr.spaceSeq, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrReset, err)
	}
	return nil
}

// destroy tears the ring down: marks it destroyed, wakes everything so
// blocked peers observe the flag, then detaches and removes the segment.
// Fails while role locks are held or other processes are attached.
func (s *store) destroy() error {
	if s.seg.Mem == nil {
		return fmt.Errorf("%w: already detached", ErrDestroy)
	}
	hdr := s.header()
	if hdr.WriterLocked() || hdr.ReadersActive() != 0 {
		return fmt.Errorf("%w: role locks still held", ErrDestroy)
	}

	attached, err := s.seg.NumAttached()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDestroy, err)
	}
	if attached > 1 {
		return fmt.Errorf("%w: %d other processes still attached", ErrDestroy, attached-1)
	}

	hdr.SetDestroyed()
	shmem.Wake(&hdr.writerLock, 1<<30)
	shmem.Wake(&hdr.readersActive, 1<<30)
	shmem.Wake(&hdr.dataSeq, 1<<30)
	shmem.Wake(&hdr.spaceSeq, 1<<30)

	if err := s.seg.Remove(); err != nil {
		return fmt.Errorf("%w: %v", ErrDestroy, err)
	}
	if err := s.seg.Detach(); err != nil {
		return fmt.Errorf("%w: %v", ErrDestroy, err)
	}
	return nil
}

// disconnect detaches from the segment without touching shared state.
func (s *store) disconnect() error {
	return s.seg.Detach()
}

func detachQuietly(seg *shmem.Segment) {
	_ = seg.Detach()
}
