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

import "fmt"

// WriteBlock is an in-progress write bound to exactly one slot. Obtain one
// from Writer.Next, fill it through Write or Bytes, and release it with
// Close (or abandon it with Discard). Only one WriteBlock per Writer may
// be live at a time.
type WriteBlock struct {
	w      *Writer
	cursor uint64
	buf    []byte

	n        int
	writeAll bool
	eod      bool
	closed   bool
}

// Bytes returns the full slot for direct placement of bytes. When the
// block is released without any Write or SetFilled call, the entire slot
// is assumed written; use SetFilled to override. Prefer Write unless
// bytes must land at specific offsets.
func (b *WriteBlock) Bytes() []byte {
	return b.buf
}

// Write appends p to the slot. Writing past the slot size fails with
// ErrWriteOverflow and copies nothing; it is never truncated.
func (b *WriteBlock) Write(p []byte) (int, error) {
	if b.closed {
		return 0, fmt.Errorf("%w: block closed", ErrWrite)
	}
	if b.n+len(p) > len(b.buf) {
		return 0, fmt.Errorf("%w: %d bytes into %d-byte slot with %d already written",
			ErrWriteOverflow, len(p), len(b.buf), b.n)
	}
	copy(b.buf[b.n:], p)
	b.SetFilled(b.n + len(p))
	return len(p), nil
}

// SetFilled records how many bytes of the slot are valid, overriding the
// whole-slot default used with Bytes.
func (b *WriteBlock) SetFilled(n int) {
	b.writeAll = false
	b.n = n
}

// Filled returns the byte count the block will publish.
func (b *WriteBlock) Filled() int {
	if b.writeAll {
		return len(b.buf)
	}
	return b.n
}

// MarkEOD tags this block as the end of the data stream. The same happens
// implicitly when the block is released with fewer bytes than the slot
// holds.
func (b *WriteBlock) MarkEOD() {
	b.eod = true
}

// Close commits the block: the end-of-data tag (explicit, or implicit on
// a partial fill) and the final byte count are published together and the
// write cursor advances. The order relative to the writer unlock — commit
// first, unlock after — is a protocol requirement.
func (b *WriteBlock) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.w.open = false

	n := b.n
	if b.writeAll {
		n = len(b.buf)
	}
	eod := b.eod || uint64(n) < uint64(len(b.buf))
	if err := b.w.store.markFilled(b.cursor, uint64(n), eod); err != nil {
		return err
	}
	b.w.cursor++
	return nil
}

// Discard releases the block without publishing anything; the slot is
// offered again by the next Writer.Next. Readers never observe a
// discarded block.
func (b *WriteBlock) Discard() {
	if b.closed {
		return
	}
	b.closed = true
	b.w.open = false
}
