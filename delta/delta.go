// This file is part of Timewarp.
//
// Timewarp is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Timewarp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Timewarp.  If not, see <https://www.gnu.org/licenses/>.

// Package delta implements the diff codec used by the playback package. A
// state buffer is encoded relative to a fixed reference buffer by XORing the
// two and compressing the result with zstd. Because consecutive snapshots of
// a deterministic simulation differ in only a small fraction of their bytes,
// the XOR body is mostly zeros and compresses very well.
//
// The round trip is byte-exact: Decode(ref, Encode(ref, cur)) == cur. Current
// and reference buffers do not need to be the same length.
package delta

import (
	"encoding/binary"

	"github.com/klauspost/compress/zstd"

	"github.com/splitframe/timewarp/fault"
)

// Codec encodes and decodes state buffers against a reference buffer. It is
// safe for concurrent use. Encode and Decode never retain or mutate their
// arguments.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec is the preferred method of initialisation for the Codec type.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fault.Errorf("delta: %v", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fault.Errorf("delta: %v", err)
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Encode returns a diff of current relative to reference. The diff is almost
// always much smaller than the current buffer but there is no guarantee of
// that in the worst case.
func (c *Codec) Encode(reference, current []byte) ([]byte, error) {
	payload := make([]byte, binary.MaxVarintLen64+len(current))
	n := binary.PutUvarint(payload, uint64(len(current)))

	body := payload[n : n+len(current)]
	for i := range current {
		if i < len(reference) {
			body[i] = current[i] ^ reference[i]
		} else {
			body[i] = current[i]
		}
	}

	return c.enc.EncodeAll(payload[:n+len(current)], nil), nil
}

// Decode reconstructs the buffer that diff was encoded from. The reference
// must be the same buffer the diff was encoded against.
func (c *Codec) Decode(reference, diff []byte) ([]byte, error) {
	payload, err := c.dec.DecodeAll(diff, nil)
	if err != nil {
		return nil, fault.Errorf("delta: %v", err)
	}

	length, n := binary.Uvarint(payload)
	if n <= 0 || uint64(len(payload)-n) != length {
		return nil, fault.Errorf("delta: %v", "malformed diff payload")
	}

	body := payload[n:]
	out := make([]byte, length)
	for i := range body {
		if i < len(reference) {
			out[i] = body[i] ^ reference[i]
		} else {
			out[i] = body[i]
		}
	}

	return out, nil
}
