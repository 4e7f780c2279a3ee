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
	"sync/atomic"
)

// Memory layout constants.
const (
	// Magic bytes identifying a buffer segment.
	storeMagic = "PSRDADA\x00"

	// Current layout version.
	storeVersion = uint32(1)

	// Store header size (aligned to 256 bytes).
	storeHeaderSize = 256

	// Per-slot metadata record size.
	slotMetaSize = 16

	// Reader seats carried in the header; each seat persists its read
	// cursor in shared memory so a successor guard resumes the stream
	// where the previous one stopped.
	maxReaderCount = 8

	// Hard caps; a key typo should fail loudly rather than allocate the
	// machine away.
	maxSlotCount = 1 << 20
	maxSlotSize  = 1 << 40
)

// storeHeader is the shared control block at the start of a buffer
// segment. All mutable fields are accessed atomically; the futex words
// (writerLock, dataSeq, spaceSeq, readersActive) are waited on across
// processes.
type storeHeader struct {
	magic         [8]byte                // 0x00: "PSRDADA\0"
	version       uint32                 // 0x08: layout version
	flags         uint32                 // 0x0C: reserved
	slotSize      uint64                 // 0x10: bytes per slot
	slotCount     uint64                 // 0x18: slots in the ring
	readerCount   uint32                 // 0x20: readers that must clear each slot
	writerLock    uint32                 // 0x24: writer role futex word (0 free, 1 held)
	writeCursor   uint64                 // 0x28: monotonic count of committed slots
	dataSeq       uint32                 // 0x30: bumped when a slot is published
	spaceSeq      uint32                 // 0x34: bumped when a slot becomes reusable
	readersActive uint32                 // 0x38: occupied seats, futex word
	destroyed     uint32                 // 0x3C: teardown flag
	seatLocks     [maxReaderCount]uint32 // 0x40: per-seat occupancy (0 free, 1 held)
	readCursors   [maxReaderCount]uint64 // 0x60: per-seat persisted read cursor
	reserved      [96]byte               // 0xA0-0xFF: padding to 256B
}

// slotMeta is the per-slot bookkeeping record. eod is a property of the
// slot, not the store, so concurrent streams on reused slots cannot race
// on a global flag.
type slotMeta struct {
	filled  uint64 // valid bytes in the slot
	eod     uint32 // end-of-data raised at this slot
	pending uint32 // readers yet to clear; 0 means writable
}

// storeHeader atomic access.

func (h *storeHeader) Magic() [8]byte        { return h.magic }
func (h *storeHeader) SetMagic(m [8]byte)    { h.magic = m }
func (h *storeHeader) Version() uint32       { return atomic.LoadUint32(&h.version) }
func (h *storeHeader) SetVersion(v uint32)   { atomic.StoreUint32(&h.version, v) }
func (h *storeHeader) SlotSize() uint64      { return atomic.LoadUint64(&h.slotSize) }
func (h *storeHeader) SetSlotSize(n uint64)  { atomic.StoreUint64(&h.slotSize, n) }
func (h *storeHeader) SlotCount() uint64     { return atomic.LoadUint64(&h.slotCount) }
func (h *storeHeader) SetSlotCount(n uint64) { atomic.StoreUint64(&h.slotCount, n) }

func (h *storeHeader) ReaderCount() uint32     { return atomic.LoadUint32(&h.readerCount) }
func (h *storeHeader) SetReaderCount(n uint32) { atomic.StoreUint32(&h.readerCount, n) }

// WriterLocked reports whether some process holds the writer role.
func (h *storeHeader) WriterLocked() bool {
	return atomic.LoadUint32(&h.writerLock) != 0
}

// TryLockWriter attempts to take the writer role.
func (h *storeHeader) TryLockWriter() bool {
	return atomic.CompareAndSwapUint32(&h.writerLock, 0, 1)
}

// UnlockWriter releases the writer role. Reports whether it was held.
func (h *storeHeader) UnlockWriter() bool {
	return atomic.CompareAndSwapUint32(&h.writerLock, 1, 0)
}

func (h *storeHeader) WriteCursor() uint64     { return atomic.LoadUint64(&h.writeCursor) }
func (h *storeHeader) SetWriteCursor(c uint64) { atomic.StoreUint64(&h.writeCursor, c) }

func (h *storeHeader) DataSeq() uint32      { return atomic.LoadUint32(&h.dataSeq) }
func (h *storeHeader) BumpDataSeq() uint32  { return atomic.AddUint32(&h.dataSeq, 1) }
func (h *storeHeader) SpaceSeq() uint32     { return atomic.LoadUint32(&h.spaceSeq) }
func (h *storeHeader) BumpSpaceSeq() uint32 { return atomic.AddUint32(&h.spaceSeq, 1) }

func (h *storeHeader) ReadersActive() uint32 { return atomic.LoadUint32(&h.readersActive) }

// TrySeatReader attempts to occupy seat i. On success the occupied-seat
// count is bumped so waiters can futex on it.
func (h *storeHeader) TrySeatReader(i uint32) bool {
	if !atomic.CompareAndSwapUint32(&h.seatLocks[i], 0, 1) {
		return false
	}
	atomic.AddUint32(&h.readersActive, 1)
	return true
}

// UnseatReader vacates seat i. The seat's read cursor survives, so the
// next guard on this seat resumes the stream.
func (h *storeHeader) UnseatReader(i uint32) {
	atomic.StoreUint32(&h.seatLocks[i], 0)
	atomic.AddUint32(&h.readersActive, ^uint32(0))
}

func (h *storeHeader) ReadCursor(seat uint32) uint64 {
	return atomic.LoadUint64(&h.readCursors[seat])
}

func (h *storeHeader) SetReadCursor(seat uint32, c uint64) {
	atomic.StoreUint64(&h.readCursors[seat], c)
}

func (h *storeHeader) Destroyed() bool { return atomic.LoadUint32(&h.destroyed) != 0 }
func (h *storeHeader) SetDestroyed()   { atomic.StoreUint32(&h.destroyed, 1) }

// slotMeta atomic access.

func (m *slotMeta) Filled() uint64     { return atomic.LoadUint64(&m.filled) }
func (m *slotMeta) SetFilled(n uint64) { atomic.StoreUint64(&m.filled, n) }

func (m *slotMeta) EOD() bool { return atomic.LoadUint32(&m.eod) != 0 }
func (m *slotMeta) SetEOD(eod bool) {
	var v uint32
	if eod {
		v = 1
	}
	atomic.StoreUint32(&m.eod, v)
}

func (m *slotMeta) Pending() uint32     { return atomic.LoadUint32(&m.pending) }
func (m *slotMeta) SetPending(n uint32) { atomic.StoreUint32(&m.pending, n) }

// DropPending records one reader's clear and returns how many remain.
func (m *slotMeta) DropPending() uint32 {
	return atomic.AddUint32(&m.pending, ^uint32(0))
}

// storeLayout computes the segment layout for a ring of slotCount slots of
// slotSize bytes: header, then the slot metadata table, then the slot data
// area aligned to 64 bytes.
func storeLayout(slotCount, slotSize uint64) (totalSize, metaOffset, dataOffset uint64, err error) {
	if slotCount == 0 || slotCount > maxSlotCount {
		return 0, 0, 0, fmt.Errorf("slot count %d out of range [1, %d]", slotCount, uint64(maxSlotCount))
	}
	if slotSize == 0 || slotSize > maxSlotSize {
		return 0, 0, 0, fmt.Errorf("slot size %d out of range [1, %d]", slotSize, uint64(maxSlotSize))
	}

	metaOffset = storeHeaderSize
	dataOffset = alignTo64(metaOffset + slotCount*slotMetaSize)
	totalSize = dataOffset + slotCount*slotSize
	return totalSize, metaOffset, dataOffset, nil
}

// alignTo64 aligns a size to a 64-byte boundary.
func alignTo64(size uint64) uint64 {
	return (size + 63) &^ 63
}

// validateStoreHeader checks a mapped header for consistency against the
// size of the segment it came from.
func validateStoreHeader(h *storeHeader, segmentSize uint64) error {
	if string(h.magic[:]) != storeMagic {
		return fmt.Errorf("invalid magic bytes")
	}
	if h.Version() != storeVersion {
		return fmt.Errorf("unsupported layout version %d, expected %d", h.Version(), storeVersion)
	}
	if h.ReaderCount() == 0 || h.ReaderCount() > maxReaderCount {
		return fmt.Errorf("reader count %d out of range [1, %d]", h.ReaderCount(), maxReaderCount)
	}

	total, _, _, err := storeLayout(h.SlotCount(), h.SlotSize())
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	if total > segmentSize {
		return fmt.Errorf("segment size %d smaller than layout %d", segmentSize, total)
	}
	return nil
}
