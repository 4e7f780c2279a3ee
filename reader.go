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

import "log/slog"

// Reader is the scoped read-access guard for a buffer. Up to the
// configured number of readers may coexist, each with its own cursor; a
// Reader is not safe for concurrent use by multiple goroutines.
//
// Next yields blocks until end-of-data is observed, after which it
// permanently yields nothing; only a Client.Reset starts a new stream.
type Reader struct {
	store     *store
	seat      uint32
	cursor    uint64
	exhausted bool
	open      bool
	unlocked  bool
	err       error
}

// Reader takes one of the buffer's reader seats, blocking while all are
// occupied. The seat's read position lives in the shared control block,
// so a fresh Reader resumes the stream where the seat's previous
// occupant stopped; only a Client.Reset rewinds it.
func (b *Buffer) Reader() (*Reader, error) {
	seat, err := b.store.lockReader()
	if err != nil {
		return nil, err
	}
	return &Reader{
		store:  b.store,
		seat:   seat,
		cursor: b.store.readCursor(seat),
	}, nil
}

// Next returns the next ReadBlock, blocking until the writer publishes
// the slot. It returns (nil, false) once end-of-data has been observed —
// that is the stream's normal terminal state, not an error — or when an
// error stopped iteration, distinguishable through Err.
func (r *Reader) Next() (*ReadBlock, bool) {
	if r.exhausted || r.unlocked || r.err != nil {
		return nil, false
	}
	if r.open {
		r.err = ErrBlockOpen
		return nil, false
	}

	buf, err := r.store.acquireReadSlot(r.cursor)
	if err != nil {
		r.err = err
		return nil, false
	}
	r.open = true
	return &ReadBlock{r: r, cursor: r.cursor, buf: buf}, true
}

// Pop clears the next full block off the ring and returns a copy of its
// bytes. The second return is false at end-of-data.
func (r *Reader) Pop() ([]byte, bool) {
	block, ok := r.Next()
	if !ok {
		return nil, false
	}
	data := make([]byte, len(block.Bytes()))
	copy(data, block.Bytes())
	if err := block.Close(); err != nil {
		r.err = err
		return nil, false
	}
	return data, true
}

// IsEOD reports whether this reader has observed end-of-data. It reads
// state latched while the final block was cleared, so it is meaningful
// only between a block's Close and the reader's Unlock — the ordering the
// protocol requires.
func (r *Reader) IsEOD() bool {
	return r.exhausted
}

// Err returns the error that stopped iteration, if any. End-of-data is
// not an error and leaves Err nil.
func (r *Reader) Err() error {
	return r.err
}

// Unlock releases the reader seat. Idempotent; failures are logged and
// swallowed, matching the writer side.
func (r *Reader) Unlock() {
	if r.unlocked {
		return
	}
	r.unlocked = true
	if err := r.store.unlockReader(r.seat); err != nil {
		slog.Error("could not unlock buffer from reading", "key", r.store.seg.Key, "err", err)
	}
}
