// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conq

// A bucket packs 1 to 7 payload bytes plus a 1-byte length tag into a
// single uint64, so a byte stream can ride a ring of fixed-size words
// instead of a ring of variable-length frames.
//
// Tag values:
//
//	0x01..0x07  ordinary chunk, tag equals the payload length in bytes
//	0x09        a 7-byte chunk cut from a longer run (MANY_BYTES marker)
//
// 0x00 and 0x08, and anything above 0x09, never appear on the wire; seeing
// one out of a decoder indicates a corrupted or foreign bucket, not a
// recoverable condition.
const (
	bucketTagMin       = 0x01
	bucketTagMax       = 0x07
	bucketTagManyBytes = 0x09
)

// EncodeBucket packs up to 7 bytes starting at data[cursor] into a bucket.
// It returns the bucket, the number of payload bytes consumed, and true —
// or false if fewer than 2 bytes remain at cursor, in which case no bucket
// is produced.
//
// A single leftover byte at the end of data is therefore never encoded.
// This is intentional, not an oversight: the codec is a framing layer for
// streams where a trailing lone byte cannot be distinguished, on the
// decode side, from a bucket's own length tag, so the encoder declines to
// emit one and leaves it for the caller to carry over into the next
// EncodeBucket call once more data has arrived.
//
// Bytes are packed in descending order: data[cursor] lands in the bucket's
// most significant payload byte and the tag occupies the least significant
// byte. [DecodeBucket] unpacks in the same descending order, so composing
// the two is the identity transform.
func EncodeBucket(data []byte, cursor int) (bucket uint64, consumed int, ok bool) {
	remaining := len(data) - cursor
	if remaining < 2 {
		return 0, 0, false
	}

	k := remaining
	tag := uint64(k)
	if k > bucketTagMax {
		k = bucketTagMax
		tag = bucketTagManyBytes
	}

	for i := 0; i < k; i++ {
		bucket |= uint64(data[cursor+i]) << uint(8*(k-i))
	}
	bucket |= tag
	return bucket, k, true
}

// bucketLength returns the number of payload bytes a bucket's tag claims,
// or 0 if the tag is not a valid payload length (0x00, 0x08, or anything
// above 0x09 and not equal to 0x09).
func bucketLength(bucket uint64) int {
	tag := bucket & 0xff
	switch {
	case tag == bucketTagManyBytes:
		return bucketTagMax
	case tag >= bucketTagMin && tag <= bucketTagMax:
		return int(tag)
	default:
		return 0
	}
}

// DecodeBucket unpacks a bucket's payload into out. It returns the number
// of bytes written. If the bucket's tag is not a recognized payload
// length, it returns (0, [ErrInvalidBucket]) — the caller is looking at a
// corrupted bucket, a programming error, never a recoverable framing
// condition. If out is too small to hold the payload, it returns
// (0, [ErrInsufficientBuffer]); DecodeBucket never partially writes out,
// so the caller can grow its buffer and retry against the same bucket.
func DecodeBucket(bucket uint64, out []byte) (n int, err error) {
	length := bucketLength(bucket)
	if length == 0 {
		return 0, ErrInvalidBucket
	}
	if length > len(out) {
		return 0, ErrInsufficientBuffer
	}

	for j := 0; j < length; j++ {
		out[j] = byte(bucket >> uint(8*(length-j)))
	}
	return length, nil
}
