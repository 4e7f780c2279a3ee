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

// Command dadadb creates, destroys, and inspects shared-memory ring
// buffer pairs, the administrative counterpart to programs that stream
// through them.
//
// Usage:
//
//	dadadb create  -k 0xdada [-n slots] [-b bytes] [-N hdrs] [-H bytes] [-r readers] [--lock] [--prefault] [-c cfg.yaml]
//	dadadb destroy -k 0xdada
//	dadadb info    -k 0xdada [--json]
//
// Created buffers persist after dadadb exits; destroy removes them.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/sugawarayuuta/sonnet"

	psrdada "github.com/kiranshila/psrdada-go"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "destroy":
		err = runDestroy(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "dadadb: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("dadadb failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  dadadb create  -k key [-n slots] [-b bytes] [-N hdrs] [-H bytes] [-r readers] [--lock] [--prefault] [-c cfg.yaml]
  dadadb destroy -k key
  dadadb info    -k key [--json]`)
}

func runCreate(args []string) error {
	flags := pflag.NewFlagSet("create", pflag.ExitOnError)
	key := flags.StringP("key", "k", "", "buffer key (decimal or 0x hex); header buffer lives at key+1")
	configPath := flags.StringP("config", "c", "", "YAML file with geometry defaults")

	def := psrdada.DefaultConfig()
	dataSlots := flags.Uint64P("nbufs", "n", def.DataSlots, "number of data slots")
	dataSize := flags.Uint64P("bufsz", "b", def.DataSlotSize, "bytes per data slot")
	headerSlots := flags.Uint64P("nhdrs", "N", def.HeaderSlots, "number of header slots")
	headerSize := flags.Uint64P("hdrsz", "H", def.HeaderSlotSize, "bytes per header slot")
	readers := flags.Uint32P("readers", "r", def.Readers, "reader seats per buffer")
	lock := flags.Bool("lock", false, "mlock the buffers into physical memory")
	prefault := flags.Bool("prefault", false, "pre-fault every page at creation")
	if err := flags.Parse(args); err != nil {
		return err
	}

	k, err := parseKey(*key)
	if err != nil {
		return err
	}

	cfg := def
	if *configPath != "" {
		fileCfg, err := loadConfigFile(*configPath)
		if err != nil {
			return err
		}
		cfg = fileCfg.apply(cfg)
	}
	// Explicit flags win over both defaults and the config file.
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "nbufs":
			cfg.DataSlots = *dataSlots
		case "bufsz":
			cfg.DataSlotSize = *dataSize
		case "nhdrs":
			cfg.HeaderSlots = *headerSlots
		case "hdrsz":
			cfg.HeaderSlotSize = *headerSize
		case "readers":
			cfg.Readers = *readers
		}
	})
	cfg.LockMemory = cfg.LockMemory || *lock
	cfg.PreFault = cfg.PreFault || *prefault

	client, err := psrdada.CreateClient(k, cfg)
	if err != nil {
		return err
	}
	// Detach only: the buffers must outlive this process.
	defer client.Close()

	slog.Info("created buffer pair",
		"key", fmt.Sprintf("0x%x", k),
		"data_slots", cfg.DataSlots, "data_slot_bytes", cfg.DataSlotSize,
		"header_slots", cfg.HeaderSlots, "header_slot_bytes", cfg.HeaderSlotSize,
		"readers", cfg.Readers)
	return nil
}

func runDestroy(args []string) error {
	flags := pflag.NewFlagSet("destroy", pflag.ExitOnError)
	key := flags.StringP("key", "k", "", "buffer key")
	if err := flags.Parse(args); err != nil {
		return err
	}

	k, err := parseKey(*key)
	if err != nil {
		return err
	}

	client, err := psrdada.ConnectClient(k)
	if err != nil {
		return err
	}
	if err := client.Destroy(); err != nil {
		client.Close()
		return err
	}
	slog.Info("destroyed buffer pair", "key", fmt.Sprintf("0x%x", k))
	return nil
}

func runInfo(args []string) error {
	flags := pflag.NewFlagSet("info", pflag.ExitOnError)
	key := flags.StringP("key", "k", "", "buffer key")
	asJSON := flags.Bool("json", false, "emit machine-readable JSON")
	if err := flags.Parse(args); err != nil {
		return err
	}

	k, err := parseKey(*key)
	if err != nil {
		return err
	}

	client, err := psrdada.ConnectClient(k)
	if err != nil {
		return err
	}
	defer client.Close()

	info := struct {
		Data   psrdada.BufferState `json:"data"`
		Header psrdada.BufferState `json:"header"`
	}{
		Data:   client.Data().State(),
		Header: client.Header().State(),
	}

	if *asJSON {
		out, err := sonnet.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printState("data", info.Data)
	printState("header", info.Header)
	return nil
}

func printState(name string, st psrdada.BufferState) {
	fmt.Printf("%s buffer (key 0x%x)\n", name, st.Key)
	fmt.Printf("  slots:          %d x %d bytes\n", st.SlotCount, st.SlotSize)
	fmt.Printf("  readers:        %d held of %d seats\n", st.ReadersHeld, st.ReaderCount)
	fmt.Printf("  write cursor:   %d\n", st.WriteCursor)
	fmt.Printf("  writer locked:  %v\n", st.WriterLocked)
}

// parseKey accepts decimal or 0x-prefixed hex keys.
func parseKey(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("a buffer key is required (-k)")
	}
	k, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: %w", s, err)
	}
	return int(k), nil
}
