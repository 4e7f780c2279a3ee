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

import "errors"

// Errors returned by buffer lifecycle and slot operations. Callers should
// test with errors.Is; most are returned wrapped with context.
var (
	// ErrInit indicates buffer creation failed, for example because the
	// key is already in use or the OS denied the allocation.
	ErrInit = errors.New("buffer creation failed")

	// ErrConnect indicates no buffer exists at the requested key.
	ErrConnect = errors.New("no buffer at key")

	// ErrDestroy indicates teardown failed, typically because other
	// processes are still attached or a role lock is still held.
	ErrDestroy = errors.New("buffer teardown failed")

	// ErrLocking indicates a role lock or unlock primitive failed.
	ErrLocking = errors.New("lock operation failed")

	// ErrWrite indicates a slot-level write problem.
	ErrWrite = errors.New("write failed")

	// ErrWriteOverflow is returned when a write would exceed the slot
	// size. Nothing is truncated and no partial state becomes visible to
	// readers.
	ErrWriteOverflow = errors.New("write exceeds slot size")

	// ErrRead indicates a slot-level read problem.
	ErrRead = errors.New("read failed")

	// ErrReadOverflow is returned by ReadBlock.ReadFull when more bytes
	// are requested than remain in the block.
	ErrReadOverflow = errors.New("read exceeds filled bytes")

	// ErrReset indicates rewinding the buffer for a new stream failed.
	ErrReset = errors.New("reset failed")

	// ErrHeaderParse indicates header bytes did not match the key-value
	// grammar.
	ErrHeaderParse = errors.New("malformed header")

	// ErrHeaderOverflow is returned when an encoded header does not fit
	// in one header slot.
	ErrHeaderOverflow = errors.New("header exceeds slot size")

	// ErrGpu indicates the optional pinned-memory registration failed.
	// Creation degrades to ordinary host memory instead of returning it.
	ErrGpu = errors.New("gpu pinning failed")

	// ErrDestroyed is returned by slot operations when the buffer was
	// torn down underneath the caller.
	ErrDestroyed = errors.New("buffer destroyed")

	// ErrBlockOpen is returned when a second block is requested from a
	// guard whose previous block has not been closed. This is a
	// programming error, not a runtime condition.
	ErrBlockOpen = errors.New("previous block still open")
)
