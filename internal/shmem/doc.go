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

// Package shmem wraps the operating-system primitives the ring buffers are
// built on: System V shared-memory segments addressed by a small integer
// key, futex wait/wake over words living inside those segments, and memory
// locking/pre-faulting of the mapped regions.
//
// Segments created here outlive the creating process; they persist until
// explicitly removed or the host reboots. All synchronization words handed
// to Wait and Wake must live inside a shared mapping, and the futex
// operations deliberately omit FUTEX_PRIVATE_FLAG so that waiters in other
// processes attached to the same segment are woken.
//
// Only Linux is supported; every entry point returns ErrUnsupported
// elsewhere.
package shmem
