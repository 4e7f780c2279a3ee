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
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 64))

	payload := []byte{0, 1, 2, 3}

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := block.Write(payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := block.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	got, ok := reader.Next()
	if !ok {
		t.Fatalf("expected a block, got none (err: %v)", reader.Err())
	}
	if !bytes.Equal(got.Bytes(), payload) {
		t.Fatalf("payload mismatch: got %v, want %v", got.Bytes(), payload)
	}
	if err := got.Close(); err != nil {
		t.Fatalf("block Close failed: %v", err)
	}
}

func TestImplicitEOD(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	// Three bytes into a four-byte slot: partial fill means end-of-data.
	if _, err := writer.Push([]byte{0, 1, 2}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	data, ok := reader.Pop()
	if !ok {
		t.Fatalf("expected data, got none (err: %v)", reader.Err())
	}
	if !bytes.Equal(data, []byte{0, 1, 2}) {
		t.Fatalf("payload mismatch: got %v", data)
	}

	if _, ok := reader.Next(); ok {
		t.Fatal("expected end of data after partial fill")
	}
	if !reader.IsEOD() {
		t.Fatal("IsEOD should report true after drain")
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("end of data should not be an error, got %v", err)
	}
}

func TestFullWriteNoImplicitEOD(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	if _, err := writer.Push([]byte{0, 1, 2, 3}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	if _, ok := reader.Pop(); !ok {
		t.Fatalf("expected data, got none (err: %v)", reader.Err())
	}
	if reader.IsEOD() {
		t.Fatal("a completely filled slot must not raise implicit end-of-data")
	}
}

func TestExplicitEOD(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := block.Write([]byte{0, 1, 2, 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	block.MarkEOD()
	if err := block.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	data, ok := reader.Pop()
	if !ok || len(data) != 4 {
		t.Fatalf("expected full 4-byte block, got %v (ok %v)", data, ok)
	}
	if _, ok := reader.Next(); ok {
		t.Fatal("expected end of data after explicit MarkEOD on a full slot")
	}
}

func TestMultiSlotOrdering(t *testing.T) {
	const n = 4
	client := newTestClient(t, smallConfig(n, 8))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	for i := 0; i < n; i++ {
		block, err := writer.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		payload := bytes.Repeat([]byte{byte(i)}, 8)
		if _, err := block.Write(payload); err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
		if i == n-1 {
			block.MarkEOD()
		}
		if err := block.Close(); err != nil {
			t.Fatalf("Close %d failed: %v", i, err)
		}
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	var popped int
	for {
		data, ok := reader.Pop()
		if !ok {
			break
		}
		want := bytes.Repeat([]byte{byte(popped)}, 8)
		if !bytes.Equal(data, want) {
			t.Fatalf("block %d out of order: got %v, want %v", popped, data, want)
		}
		popped++
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("iteration stopped with error: %v", err)
	}
	if popped != n {
		t.Fatalf("popped %d blocks, want %d", popped, n)
	}
}

func TestWraparoundReuse(t *testing.T) {
	const slots = 3
	const cycles = 10
	client := newTestClient(t, smallConfig(slots, 8))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	defer writer.Unlock()
	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	// Interleave write and read so every slot index gets reused several
	// times without the writer ever overtaking the reader.
	for i := 0; i < cycles; i++ {
		payload := []byte(fmt.Sprintf("cycle %02d", i))
		if _, err := writer.Push(payload); err != nil {
			t.Fatalf("Push %d failed: %v", i, err)
		}
		data, ok := reader.Pop()
		if !ok {
			t.Fatalf("Pop %d returned nothing (err: %v)", i, reader.Err())
		}
		if !bytes.Equal(data, payload) {
			t.Fatalf("cycle %d corrupted: got %q, want %q", i, data, payload)
		}
	}
}

func TestWriteOverflowRejected(t *testing.T) {
	client := newTestClient(t, smallConfig(2, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}

	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := block.Write([]byte{0, 1, 2, 3, 4}); !errors.Is(err, ErrWriteOverflow) {
		t.Fatalf("expected ErrWriteOverflow, got %v", err)
	}
	// Nothing was published; discard leaves the ring untouched.
	block.Discard()
	writer.Unlock()

	state := client.Data().State()
	if state.WriteCursor != 0 {
		t.Fatalf("overflow leaked partial state: write cursor %d", state.WriteCursor)
	}
}

func TestOverflowAfterPartialWrite(t *testing.T) {
	client := newTestClient(t, smallConfig(2, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	defer writer.Unlock()

	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := block.Write([]byte{0, 1, 2}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := block.Write([]byte{3, 4}); !errors.Is(err, ErrWriteOverflow) {
		t.Fatalf("expected ErrWriteOverflow, got %v", err)
	}
	if block.Filled() != 3 {
		t.Fatalf("failed write changed the filled count to %d", block.Filled())
	}
	block.Discard()
}

func TestOneBlockPerGuard(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 16))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	defer writer.Unlock()

	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := writer.Next(); !errors.Is(err, ErrBlockOpen) {
		t.Fatalf("expected ErrBlockOpen for second concurrent block, got %v", err)
	}
	if err := block.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	next, err := writer.Next()
	if err != nil {
		t.Fatalf("Next after Close failed: %v", err)
	}
	next.Discard()
}

func TestBytesViewWholeSlotDefault(t *testing.T) {
	client := newTestClient(t, smallConfig(2, 8))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	copy(block.Bytes(), "abcdefgh")
	if err := block.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	got, ok := reader.Next()
	if !ok {
		t.Fatalf("expected block (err: %v)", reader.Err())
	}
	defer got.Close()
	if got.Len() != 8 {
		t.Fatalf("whole-slot default published %d bytes, want 8", got.Len())
	}
	if !bytes.Equal(got.Bytes(), []byte("abcdefgh")) {
		t.Fatalf("payload mismatch: %q", got.Bytes())
	}
	if reader.IsEOD() {
		t.Fatal("whole-slot publish must not raise end-of-data")
	}
}

func TestReadBlockReadFull(t *testing.T) {
	client := newTestClient(t, smallConfig(2, 8))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	if _, err := writer.Push([]byte("abcd")); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	block, ok := reader.Next()
	if !ok {
		t.Fatalf("expected block (err: %v)", reader.Err())
	}
	defer block.Close()

	half := make([]byte, 2)
	if err := block.ReadFull(half); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if !bytes.Equal(half, []byte("ab")) {
		t.Fatalf("first half mismatch: %q", half)
	}

	tooMuch := make([]byte, 3)
	if err := block.ReadFull(tooMuch); !errors.Is(err, ErrReadOverflow) {
		t.Fatalf("expected ErrReadOverflow, got %v", err)
	}

	rest := make([]byte, 2)
	if err := block.ReadFull(rest); err != nil {
		t.Fatalf("ReadFull of remainder failed: %v", err)
	}
	if !bytes.Equal(rest, []byte("cd")) {
		t.Fatalf("second half mismatch: %q", rest)
	}
}

func TestResetStartsNewStream(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	if _, err := writer.Push([]byte{1}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	if _, ok := reader.Pop(); !ok {
		t.Fatalf("expected data (err: %v)", reader.Err())
	}
	if _, ok := reader.Next(); ok {
		t.Fatal("expected end of data")
	}
	reader.Unlock()

	if err := client.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	// A second logical stream runs in the same allocation.
	writer, err = client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer after reset failed: %v", err)
	}
	if _, err := writer.Push([]byte{2, 3}); err != nil {
		t.Fatalf("Push after reset failed: %v", err)
	}
	writer.Unlock()

	reader, err = client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader after reset failed: %v", err)
	}
	defer reader.Unlock()
	data, ok := reader.Pop()
	if !ok {
		t.Fatalf("expected data after reset (err: %v)", reader.Err())
	}
	if !bytes.Equal(data, []byte{2, 3}) {
		t.Fatalf("post-reset payload mismatch: %v", data)
	}
}

func TestReaderResumesSeatPosition(t *testing.T) {
	client := newTestClient(t, smallConfig(4, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	for i := byte(0); i < 3; i++ {
		if _, err := writer.Push([]byte{i, i, i, i}); err != nil {
			t.Fatalf("Push %d failed: %v", i, err)
		}
	}
	writer.Unlock()

	// First guard consumes one slot and leaves.
	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	data, ok := reader.Pop()
	if !ok {
		t.Fatalf("Pop failed (err: %v)", reader.Err())
	}
	if data[0] != 0 {
		t.Fatalf("first guard read slot %d", data[0])
	}
	reader.Unlock()

	// A successor on the same seat picks up at the second slot rather
	// than replaying the first.
	reader, err = client.Data().Reader()
	if err != nil {
		t.Fatalf("second Reader failed: %v", err)
	}
	defer reader.Unlock()
	data, ok = reader.Pop()
	if !ok {
		t.Fatalf("Pop failed (err: %v)", reader.Err())
	}
	if data[0] != 1 {
		t.Fatalf("successor guard read slot %d, want 1", data[0])
	}
}

func TestZeroLengthFill(t *testing.T) {
	client := newTestClient(t, smallConfig(2, 4))

	writer, err := client.Data().Writer()
	if err != nil {
		t.Fatalf("Writer failed: %v", err)
	}
	block, err := writer.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	block.SetFilled(0)
	if err := block.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	writer.Unlock()

	reader, err := client.Data().Reader()
	if err != nil {
		t.Fatalf("Reader failed: %v", err)
	}
	defer reader.Unlock()

	data, ok := reader.Pop()
	if !ok {
		t.Fatalf("zero-length slot should still be delivered (err: %v)", reader.Err())
	}
	if len(data) != 0 {
		t.Fatalf("expected empty payload, got %v", data)
	}
	if !reader.IsEOD() {
		t.Fatal("zero-length fill is partial, so end-of-data should be raised")
	}
}
