//go:build !linux

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

// Create is unavailable on this platform.
func Create(key int, size uint64) (*Segment, error) {
	return nil, ErrUnsupported
}

// Attach is unavailable on this platform.
func Attach(key int) (*Segment, error) {
	return nil, ErrUnsupported
}

// NumAttached is unavailable on this platform.
func (s *Segment) NumAttached() (int, error) {
	return 0, ErrUnsupported
}

// Detach is unavailable on this platform.
func (s *Segment) Detach() error {
	return ErrUnsupported
}

// Remove is unavailable on this platform.
func (s *Segment) Remove() error {
	return ErrUnsupported
}

// Mlock is unavailable on this platform.
func (s *Segment) Mlock() error {
	return ErrUnsupported
}
