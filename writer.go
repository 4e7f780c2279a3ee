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

// Writer is the scoped, exclusive write-access guard for a buffer. It is
// born holding the writer role and must be released with Unlock. At most
// one WriteBlock may be open at a time.
//
// Writer is not safe for concurrent use; the single-writer invariant is
// per buffer, enforced across processes by the role lock. Requesting a
// second Writer for the same buffer while one is live blocks until the
// first unlocks — including from the same goroutine, which hangs.
type Writer struct {
	store    *store
	cursor   uint64
	open     bool
	unlocked bool
}

// Writer takes the buffer's writer role, blocking until it is free.
func (b *Buffer) Writer() (*Writer, error) {
	if err := b.store.lockWriter(); err != nil {
		return nil, err
	}
	return &Writer{
		store:  b.store,
		cursor: b.store.header().WriteCursor(),
	}, nil
}

// Next returns a WriteBlock bound to the next slot, blocking until every
// reader has cleared it. The previous block must be closed first.
func (w *Writer) Next() (*WriteBlock, error) {
	if w.unlocked {
		return nil, ErrLocking
	}
	if w.open {
		return nil, ErrBlockOpen
	}

	buf, err := w.store.acquireWriteSlot(w.cursor)
	if err != nil {
		return nil, err
	}
	w.open = true
	return &WriteBlock{
		w:        w,
		cursor:   w.cursor,
		buf:      buf,
		writeAll: true,
	}, nil
}

// Push writes data into the next slot as a single block and commits it.
// It returns the number of bytes written. Data shorter than the slot size
// raises implicit end-of-data, like any partial fill.
func (w *Writer) Push(data []byte) (int, error) {
	block, err := w.Next()
	if err != nil {
		return 0, err
	}
	n, err := block.Write(data)
	if err != nil {
		block.Discard()
		return n, err
	}
	return n, block.Close()
}

// Unlock releases the writer role. It is idempotent, and infallible from
// the caller's perspective: failures are logged and swallowed, because
// the release path commonly runs during cleanup where a second error has
// nowhere to go.
func (w *Writer) Unlock() {
	if w.unlocked {
		return
	}
	w.unlocked = true
	if err := w.store.unlockWriter(); err != nil {
		slog.Error("could not unlock buffer from writing", "key", w.store.seg.Key, "err", err)
	}
}
