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
	"bytes"
	"fmt"
	"log/slog"
)

// Header slots carry ASCII key-value pairs by convention, one pair per
// line, key and value separated by spaces or tabs, '#' starting a comment
// that runs to end of line, a NUL terminating the whole header. Nothing
// in the shared-memory layer enforces any of this; these functions are
// the conventional codec over one slot's bytes.

// EncodeHeader serializes a header mapping as "key value\n" pairs with no
// particular key order.
//
// There is no escaping mechanism: keys or values containing spaces, tabs,
// newlines, '#', or NUL produce a header that will not decode back. That
// is a caller responsibility, not validated here.
func EncodeHeader(header map[string]string) []byte {
	var buf bytes.Buffer
	for k, v := range header {
		buf.WriteString(k)
		buf.WriteByte(' ')
		buf.WriteString(v)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// DecodeHeader parses header bytes into a mapping. Blank lines and
// comments are ignored; parsing stops at the first NUL. A line with other
// than exactly two tokens fails with ErrHeaderParse. When a key appears
// more than once the last occurrence wins; the upstream convention leaves
// precedence unspecified, so this implementation pins it down.
func DecodeHeader(data []byte) (map[string]string, error) {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}

	header := make(map[string]string)
	for lineno, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := bytes.Fields(line)
		switch len(fields) {
		case 0:
			// Blank or comment-only line.
		case 2:
			header[string(fields[0])] = string(fields[1])
		default:
			return nil, fmt.Errorf("%w: line %d has %d tokens, want key and value",
				ErrHeaderParse, lineno+1, len(fields))
		}
	}
	return header, nil
}

// PushHeader encodes header into the next header-buffer slot. The slot is
// zero-padded to its full size so the push never raises implicit
// end-of-data on the header ring, and the trailing NULs terminate the
// header for decoders. Blocks until a header slot is free.
func (c *Client) PushHeader(header map[string]string) error {
	encoded := EncodeHeader(header)
	slotSize := c.header.SlotSize()
	if uint64(len(encoded)) > slotSize {
		return fmt.Errorf("%w: %d bytes into %d-byte header slot", ErrHeaderOverflow, len(encoded), slotSize)
	}

	writer, err := c.header.Writer()
	if err != nil {
		return err
	}
	defer writer.Unlock()

	padded := make([]byte, slotSize)
	copy(padded, encoded)
	_, err = writer.Push(padded)
	return err
}

// PopHeader decodes the next header off the header buffer, blocking until
// one is available. The second return is false at end-of-data, which is
// not an error.
func (c *Client) PopHeader() (map[string]string, bool, error) {
	reader, err := c.header.Reader()
	if err != nil {
		return nil, false, err
	}
	defer reader.Unlock()

	data, ok := reader.Pop()
	if !ok {
		if err := reader.Err(); err != nil {
			return nil, false, err
		}
		slog.Debug("header buffer at end of data", "key", c.key)
		return nil, false, nil
	}

	header, err := DecodeHeader(data)
	if err != nil {
		return nil, false, err
	}
	return header, true, nil
}
