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
	"io"
)

// ReadBlock is an in-progress read bound to exactly one slot. Its byte
// view stays valid until Close, which hands the slot back for reuse. Only
// one ReadBlock per Reader may be live at a time.
type ReadBlock struct {
	r      *Reader
	cursor uint64
	buf    []byte
	off    int
	closed bool
}

// Bytes returns the filled bytes of the slot. The view is invalidated by
// Close; copy anything that must outlive the block.
func (b *ReadBlock) Bytes() []byte {
	return b.buf
}

// Len returns the number of filled bytes in the block.
func (b *ReadBlock) Len() int {
	return len(b.buf)
}

// Read copies up to len(p) of the remaining bytes into p, returning
// io.EOF once the block is drained.
func (b *ReadBlock) Read(p []byte) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("%w: block closed", ErrRead)
	}
	if b.off >= len(b.buf) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

// ReadFull copies exactly len(p) bytes into p. Requesting more than
// remains in the block fails with ErrReadOverflow and copies nothing.
func (b *ReadBlock) ReadFull(p []byte) error {
	if b.closed {
		return fmt.Errorf("%w: block closed", ErrRead)
	}
	if len(p) > len(b.buf)-b.off {
		return fmt.Errorf("%w: %d bytes requested, %d remain", ErrReadOverflow, len(p), len(b.buf)-b.off)
	}
	b.off += copy(p, b.buf[b.off:b.off+len(p)])
	return nil
}

// Close releases the block: the slot is marked cleared, and if it carried
// the end-of-data tag the reader's exhausted state is latched before the
// reader unlock can run. That clear-then-check-then-unlock order is a
// protocol requirement, not a convention.
func (b *ReadBlock) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.r.open = false

	eod, err := b.r.store.markCleared(b.cursor)
	if eod {
		b.r.exhausted = true
	}
	b.r.cursor++
	b.r.store.advanceReadCursor(b.r.seat, b.r.cursor)
	return err
}
