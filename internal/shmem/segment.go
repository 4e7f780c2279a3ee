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

package shmem

// Segment is an attached System V shared-memory segment. The same key
// yields the same underlying memory in every process on the host.
type Segment struct {
	// Key is the System V IPC key the segment was created or looked up
	// with.
	Key int

	// ID is the kernel segment identifier returned by shmget.
	ID int

	// Mem is the attached mapping. It stays valid until Detach.
	Mem []byte
}

// Size returns the segment size in bytes.
func (s *Segment) Size() uint64 {
	return uint64(len(s.Mem))
}
