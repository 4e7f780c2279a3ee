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

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	psrdada "github.com/kiranshila/psrdada-go"
)

// fileConfig is the YAML shape for buffer geometry, for sites that keep
// their observation setup in a file instead of flags:
//
//	data_slots: 8
//	data_slot_bytes: 8388608
//	header_slots: 8
//	header_slot_bytes: 4096
//	readers: 2
//	lock_memory: true
//	prefault: true
//
// Absent fields keep their defaults.
type fileConfig struct {
	DataSlots      *uint64 `yaml:"data_slots"`
	DataSlotBytes  *uint64 `yaml:"data_slot_bytes"`
	HeaderSlots    *uint64 `yaml:"header_slots"`
	HeaderSlotByte *uint64 `yaml:"header_slot_bytes"`
	Readers        *uint32 `yaml:"readers"`
	LockMemory     bool    `yaml:"lock_memory"`
	PreFault       bool    `yaml:"prefault"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// apply overlays the file's set fields onto base.
func (f *fileConfig) apply(base psrdada.Config) psrdada.Config {
	if f.DataSlots != nil {
		base.DataSlots = *f.DataSlots
	}
	if f.DataSlotBytes != nil {
		base.DataSlotSize = *f.DataSlotBytes
	}
	if f.HeaderSlots != nil {
		base.HeaderSlots = *f.HeaderSlots
	}
	if f.HeaderSlotByte != nil {
		base.HeaderSlotSize = *f.HeaderSlotByte
	}
	if f.Readers != nil {
		base.Readers = *f.Readers
	}
	base.LockMemory = f.LockMemory
	base.PreFault = f.PreFault
	return base
}
