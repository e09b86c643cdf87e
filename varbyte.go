// VarByte encoding and d-gap compression for monotonically increasing
// integer sequences, used to compress the doc_id lists inside a
// PostingList.
package mir

// intoDGaps replaces a strictly increasing sequence [x0, x1, ...] with
// its successive differences [x0, x1-x0, x2-x1, ...]. The inverse,
// fromDGaps, recovers the original sequence by prefix sum.
func intoDGaps(xs []int) []int {
	gaps := make([]int, len(xs))
	prev := 0
	for i, x := range xs {
		gaps[i] = x - prev
		prev = x
	}
	return gaps
}

// fromDGaps inverts intoDGaps by prefix summation.
func fromDGaps(gaps []int) []int {
	xs := make([]int, len(gaps))
	sum := 0
	for i, g := range gaps {
		sum += g
		xs[i] = sum
	}
	return xs
}

// encodeVarByte appends the VarByte encoding of a non-negative integer
// to buf and returns the result. Groups of 7 bits are emitted
// LSB-first; every group but the last has its high bit set.
func encodeVarByte(buf []byte, v int) []byte {
	u := uint64(v)
	for {
		b := byte(u & 0x7f)
		u >>= 7
		if u != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

// decodeVarByte reads one VarByte-encoded integer starting at offset
// in data. It returns the value and the number of bytes consumed, or
// an error if the stream never terminates within data.
func decodeVarByte(data []byte, offset int) (int, int, error) {
	var result uint64
	var shift uint
	for i := offset; i < len(data); i++ {
		b := data[i]
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int(result), i - offset + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrCorruptVarByte
}

// intsToVB encodes a sequence of non-negative integers as consecutive
// VarByte groups.
func intsToVB(xs []int) []byte {
	buf := make([]byte, 0, len(xs)*2)
	for _, x := range xs {
		buf = encodeVarByte(buf, x)
	}
	return buf
}

// intsFromVB decodes a byte string produced by intsToVB back into the
// original integer sequence. It consumes the entire buffer.
func intsFromVB(data []byte) ([]int, error) {
	var xs []int
	offset := 0
	for offset < len(data) {
		v, n, err := decodeVarByte(data, offset)
		if err != nil {
			return nil, err
		}
		xs = append(xs, v)
		offset += n
	}
	return xs, nil
}

// encodeDocList compresses a strictly increasing doc_id list as
// VB(d-gaps(xs)), the on-disk representation used by PostingList.
func encodeDocList(xs []int) ([]byte, error) {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return nil, ErrNonMonotonic
		}
	}
	return intsToVB(intoDGaps(xs)), nil
}

// decodeDocList inverts encodeDocList.
func decodeDocList(data []byte) ([]int, error) {
	gaps, err := intsFromVB(data)
	if err != nil {
		return nil, err
	}
	return fromDGaps(gaps), nil
}
