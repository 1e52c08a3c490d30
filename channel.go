// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

// Channel is a single-producer single-consumer byte stream built on an
// SPSC ring of buckets (see [EncodeBucket]/[DecodeBucket]). It turns an
// arbitrary byte stream into a sequence of fixed-size words that the
// lock-free ring can carry, and back again on the reader side.
type Channel struct {
	ring *SPSC[uint64]
}

// NewChannel creates a channel whose ring holds capacity buckets.
func NewChannel(capacity int) *Channel {
	return &Channel{ring: NewSPSC[uint64](capacity)}
}

// Writer returns the producer half of the channel.
func (c *Channel) Writer() *ChannelWriter {
	return &ChannelWriter{ring: c.ring}
}

// Reader returns the consumer half of the channel.
func (c *Channel) Reader() *ChannelReader {
	return &ChannelReader{ring: c.ring}
}

// ChannelWriter is the producer side of a [Channel].
type ChannelWriter struct {
	ring *SPSC[uint64]
}

// Write encodes data into as many buckets as fit in the ring and pushes
// them. It returns the number of buckets written, not the number of bytes.
// Write keeps no cursor between calls: each call encodes data from its
// first byte. If the ring fills, it returns the buckets pushed so far
// together with [ErrWouldBlock].
//
// A single trailing byte that cannot be bucketed (see [EncodeBucket]) is
// left unwritten; the caller is expected to prepend it to the next Write
// call's data once more bytes are available.
func (w *ChannelWriter) Write(data []byte) (buckets int, err error) {
	cursor := 0
	for {
		bucket, consumed, ok := EncodeBucket(data, cursor)
		if !ok {
			return buckets, nil
		}
		if err := w.ring.Enqueue(&bucket); err != nil {
			return buckets, err
		}
		cursor += consumed
		buckets++
	}
}

// ChannelReader is the consumer side of a [Channel].
type ChannelReader struct {
	ring   *SPSC[uint64]
	cached uint64
	have   bool
}

// Read decodes buckets from the ring into data until data is full, the
// ring runs dry, or a bucket's payload cannot fit in the remaining space.
// It returns the number of bytes written into data.
//
// Unlike Write, Read's return value is a byte count: bytes are the unit a
// caller consuming a stream actually cares about, and a bucket's payload
// length is variable, so a bucket count would not tell the caller how much
// of data was filled. A bucket that is read from the ring but doesn't fit
// in the caller's remaining buffer is held in an internal register and
// decoded on the next Read call rather than dropped.
func (r *ChannelReader) Read(data []byte) (n int, err error) {
	for n < len(data) {
		if !r.have {
			bucket, derr := r.ring.Dequeue()
			if derr != nil {
				return n, nil
			}
			r.cached = bucket
			r.have = true
		}

		written, derr := DecodeBucket(r.cached, data[n:])
		if derr != nil {
			if derr == ErrInsufficientBuffer {
				return n, nil
			}
			return n, derr
		}

		n += written
		r.have = false
	}
	return n, nil
}
