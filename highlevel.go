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

// Single-call transfer helpers. Each call takes and releases the relevant
// role lock, which is convenient for occasional transfers and wasteful in
// a loop — hold a Writer or Reader yourself for streaming.

// PushData writes data into the next data-buffer slot and commits it,
// returning the byte count. Data shorter than a slot raises implicit
// end-of-data.
func (c *Client) PushData(data []byte) (int, error) {
	writer, err := c.data.Writer()
	if err != nil {
		return 0, err
	}
	defer writer.Unlock()
	return writer.Push(data)
}

// PopData pops the next full data block, returning a copy of its bytes.
// The second return is false at end-of-data.
func (c *Client) PopData() ([]byte, bool, error) {
	reader, err := c.data.Reader()
	if err != nil {
		return nil, false, err
	}
	defer reader.Unlock()

	data, ok := reader.Pop()
	if !ok {
		return nil, false, reader.Err()
	}
	return data, true, nil
}
