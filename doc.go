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

// Package psrdada implements shared-memory ring buffers for streaming
// large binary records and small textual headers between processes on the
// same host, compatible in spirit with the PSRDADA buffers used throughout
// radio astronomy.
//
// A Client owns a pair of buffers: a data buffer at an integer key K and a
// header buffer at K+1. Each buffer is a fixed ring of fixed-size slots in
// a System V shared-memory segment, so unrelated processes can attach to
// the same stream with nothing but the key, and the buffers survive the
// processes that use them.
//
// One process at a time holds the writer role of a buffer, obtained with
// Buffer.Writer; a fixed number of readers hold the reader role through
// Buffer.Reader. A writer hands off whole slots: it requests the next
// WriteBlock, fills it, and closes it, which publishes the slot's byte
// count and advances the write cursor. Readers mirror that with ReadBlock.
// Writing fewer bytes than a slot holds is the normal way a stream signals
// completion; MarkEOD forces the same on a completely filled slot.
//
// The release ordering between end-of-data signaling, slot bookkeeping, and
// role unlocks is a hard protocol contract inherited from the reference C
// implementation, not an implementation detail: the EOD tag is applied when
// the slot's byte count is published (before the writer unlock), and a
// reader latches EOD while clearing a slot (before its unlock). Block and
// guard Close methods perform these steps in the required order; callers
// only need to close what they open.
//
// Crash behavior is inherited from the protocol: a process that dies while
// holding a slot leaves that slot permanently in flight for its peers.
package psrdada
