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
	"fmt"
	"log/slog"
	"os"
)

// Pinner registers a memory region for direct device access, typically
// CUDA page-locking. It is invoked once per buffer segment after
// allocation, before first use.
type Pinner interface {
	Pin(mem []byte) error
}

// Config holds buffer geometry and creation behavior. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// DataSlots and DataSlotSize shape the data ring.
	DataSlots    uint64
	DataSlotSize uint64

	// HeaderSlots and HeaderSlotSize shape the header ring.
	HeaderSlots    uint64
	HeaderSlotSize uint64

	// Readers is the number of reader seats; every slot must be cleared
	// by this many readers before it can be reused.
	Readers uint32

	// LockMemory pins both segments with mlock so they never swap.
	LockMemory bool

	// PreFault touches every page of both segments at creation so no
	// page faults land on the data path.
	PreFault bool

	// Pinner, if non-nil, registers both segments for device access.
	// Failure degrades to ordinary host memory with a logged warning.
	Pinner Pinner
}

// DefaultConfig returns the conventional geometry: four data slots of 128
// pages each, eight single-page header slots, one reader.
func DefaultConfig() Config {
	page := uint64(os.Getpagesize())
	return Config{
		DataSlots:      4,
		DataSlotSize:   128 * page,
		HeaderSlots:    8,
		HeaderSlotSize: page,
		Readers:        1,
	}
}

// Client is a process-local handle to a pair of ring buffers: the data
// buffer at its key and the header buffer at key+1.
type Client struct {
	key    int
	data   *Buffer
	header *Buffer
}

// Buffer is a handle to a single ring buffer, from which writer and
// reader guards are obtained.
type Buffer struct {
	store *store
}

// CreateClient allocates the data and header buffers at key and key+1 and
// returns the owning handle. The owner is responsible for eventually
// calling Destroy; Close alone only detaches.
func CreateClient(key int, cfg Config) (*Client, error) {
	slog.Debug("creating dada buffer pair", "key", key)

	data, err := createStore(key, cfg.DataSlots, cfg.DataSlotSize, cfg.Readers)
	if err != nil {
		return nil, err
	}

	header, err := createStore(key+1, cfg.HeaderSlots, cfg.HeaderSlotSize, cfg.Readers)
	if err != nil {
		// Unwind the data ring so the key pair stays free.
		if derr := data.destroy(); derr != nil {
			slog.Error("could not unwind data buffer after header creation failure", "key", key, "err", derr)
		}
		return nil, err
	}

	c := &Client{
		key:    key,
		data:   &Buffer{store: data},
		header: &Buffer{store: header},
	}

	if err := c.applyCreationFlags(cfg); err != nil {
		if derr := c.Destroy(); derr != nil {
			slog.Error("could not unwind buffers after creation flags failure", "key", key, "err", derr)
		}
		return nil, err
	}
	return c, nil
}

// applyCreationFlags handles mlock, pre-faulting, and device pinning for
// both segments. Lock failures are hard errors; pin failures degrade.
func (c *Client) applyCreationFlags(cfg Config) error {
	segs := []*store{c.data.store, c.header.store}

	if cfg.LockMemory {
		for _, s := range segs {
			if err := s.seg.Mlock(); err != nil {
				return fmt.Errorf("%w: %v", ErrInit, err)
			}
		}
	}
	if cfg.PreFault {
		for _, s := range segs {
			touchSegment(s)
		}
	}
	if cfg.Pinner != nil {
		for _, s := range segs {
			if err := cfg.Pinner.Pin(s.seg.Mem); err != nil {
				slog.Warn("pinned-memory registration failed, using host memory",
					"key", s.seg.Key, "err", fmt.Errorf("%w: %v", ErrGpu, err))
			}
		}
	}
	return nil
}

// ConnectClient attaches to an existing buffer pair at key.
func ConnectClient(key int) (*Client, error) {
	slog.Debug("connecting to dada buffer pair", "key", key)

	data, err := connectStore(key)
	if err != nil {
		return nil, err
	}
	header, err := connectStore(key + 1)
	if err != nil {
		if derr := data.disconnect(); derr != nil {
			slog.Error("could not detach data buffer after header connect failure", "key", key, "err", derr)
		}
		return nil, err
	}

	return &Client{
		key:    key,
		data:   &Buffer{store: data},
		header: &Buffer{store: header},
	}, nil
}

// Key returns the data buffer's key; the header buffer lives at Key()+1.
func (c *Client) Key() int { return c.key }

// Data returns the data buffer handle.
func (c *Client) Data() *Buffer { return c.data }

// Header returns the header buffer handle.
func (c *Client) Header() *Buffer { return c.header }

// DataSlotSize returns the data buffer's slot size in bytes.
func (c *Client) DataSlotSize() uint64 { return c.data.SlotSize() }

// DataSlotCount returns the number of slots in the data ring.
func (c *Client) DataSlotCount() uint64 { return c.data.SlotCount() }

// HeaderSlotSize returns the header buffer's slot size in bytes.
func (c *Client) HeaderSlotSize() uint64 { return c.header.SlotSize() }

// HeaderSlotCount returns the number of slots in the header ring.
func (c *Client) HeaderSlotCount() uint64 { return c.header.SlotCount() }

// Reset rewinds both rings for a second logical stream: write and seat
// read cursors to zero, end-of-data cleared. It takes and releases the
// writer role of each ring, so it must not run while a writer guard or
// any block is live — and not while a Reader is held either, since a live
// guard's cached position would silently diverge from the rewound seat.
func (c *Client) Reset() error {
	for _, b := range []*Buffer{c.data, c.header} {
		if err := b.store.lockWriter(); err != nil {
			return err
		}
		err := b.store.reset()
		if uerr := b.store.unlockWriter(); uerr != nil {
			slog.Error("unlock after reset failed", "key", b.store.seg.Key, "err", uerr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Destroy tears down both rings. It fails if role locks are held or
// another process is still attached; the shared segments are removed
// exactly once.
func (c *Client) Destroy() error {
	slog.Debug("destroying dada buffer pair", "key", c.key)

	if err := c.data.store.destroy(); err != nil {
		return err
	}
	if err := c.header.store.destroy(); err != nil {
		return err
	}
	return nil
}

// Close detaches from both rings without destroying them. For the owner
// this is a leak unless Destroy ran first; for attachers it is the normal
// way out. Errors are logged, never returned: releasing a half-torn-down
// resource must not itself fail.
func (c *Client) Close() {
	if err := c.data.store.disconnect(); err != nil {
		slog.Error("detach data buffer failed", "key", c.key, "err", err)
	}
	if err := c.header.store.disconnect(); err != nil {
		slog.Error("detach header buffer failed", "key", c.key, "err", err)
	}
}

// SlotSize returns the buffer's slot size in bytes.
func (b *Buffer) SlotSize() uint64 { return b.store.slotSize }

// SlotCount returns the number of slots in the ring.
func (b *Buffer) SlotCount() uint64 { return b.store.slotCount }

// touchSegment pre-faults every page of a store's segment.
func touchSegment(s *store) {
	page := os.Getpagesize()
	// Skip the control block; it is already initialized.
	for off := int(s.dataOffset); off < len(s.seg.Mem); off += page {
		s.seg.Mem[off] = 0
	}
}
