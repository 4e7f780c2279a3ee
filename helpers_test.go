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
	"os"
	"runtime"
	"sync/atomic"
	"testing"
)

// Keys step by 2 because every client owns a pair: data at key, header at
// key+1. The pid component keeps parallel test binaries apart.
var testKeyCounter atomic.Int32

// nextKey returns a key pair base unique within and across test runs.
func nextKey() int {
	return int(0x4000_0000 | (int32(os.Getpid())&0x3fff)<<16 | testKeyCounter.Add(2))
}

// requireShm skips tests that need real shared-memory segments.
func requireShm(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("System V shared memory requires Linux")
	}
}

// newTestClient creates a buffer pair at a fresh key and tears it down
// with the test.
func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	requireShm(t)

	client, err := CreateClient(nextKey(), cfg)
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	t.Cleanup(func() {
		// Best effort; tests that destroy explicitly leave nothing here.
		_ = client.Destroy()
	})
	return client
}

// smallConfig is the geometry most protocol tests use: tiny slots so
// wraparound and EOD paths are cheap to reach.
func smallConfig(slotCount, slotSize uint64) Config {
	cfg := DefaultConfig()
	cfg.DataSlots = slotCount
	cfg.DataSlotSize = slotSize
	cfg.HeaderSlots = 4
	cfg.HeaderSlotSize = 256
	return cfg
}
