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

// BufferState is a snapshot of one ring's shared state for diagnostics
// and tooling. All values are read atomically, but the snapshot as a
// whole is not; a live buffer can move between field reads.
type BufferState struct {
	Key          int    `json:"key"`
	SlotSize     uint64 `json:"slot_size"`
	SlotCount    uint64 `json:"slot_count"`
	ReaderCount  uint32 `json:"reader_count"`
	WriteCursor  uint64 `json:"write_cursor"`
	WriterLocked bool   `json:"writer_locked"`
	ReadersHeld  uint32 `json:"readers_held"`
	DataSeq      uint32 `json:"data_seq"`
	SpaceSeq     uint32 `json:"space_seq"`
	Destroyed    bool   `json:"destroyed"`
}

// State snapshots the buffer's shared control state.
func (b *Buffer) State() BufferState {
	hdr := b.store.header()
	return BufferState{
		Key:          b.store.seg.Key,
		SlotSize:     b.store.slotSize,
		SlotCount:    b.store.slotCount,
		ReaderCount:  hdr.ReaderCount(),
		WriteCursor:  hdr.WriteCursor(),
		WriterLocked: hdr.WriterLocked(),
		ReadersHeld:  hdr.ReadersActive(),
		DataSeq:      hdr.DataSeq(),
		SpaceSeq:     hdr.SpaceSeq(),
		Destroyed:    hdr.Destroyed(),
	}
}
