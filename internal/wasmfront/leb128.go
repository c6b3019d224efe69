package wasmfront

import "github.com/pkg/errors"

// byteReader is the minimal LEB128 decoder the translator needs to walk a
// raw WASM instruction stream's immediates. This is wire-format plumbing
// at the same level as internal/masm's big-endian felt packing: no
// library in the retrieved pack exposes a standalone LEB128 decoder as an
// importable dependency (wazero's is an unexported internal helper, not a
// public API), so it is hand-rolled here exactly like encoding/binary is
// used directly for felt packing (see DESIGN.md).
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) done() bool { return r.pos >= len(r.b) }

func (r *byteReader) byte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, errors.New("wasmfront: unexpected end of instruction stream")
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) varUint32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.byte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errors.New("wasmfront: varuint32 overflow")
		}
	}
}

func (r *byteReader) varInt32() (int32, error) {
	v, _, err := r.varIntN(32)
	return int32(v), err
}

func (r *byteReader) varIntN(width uint) (int64, int, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.byte()
		if err != nil {
			return 0, 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < width && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, int(shift), nil
		}
	}
}

func (r *byteReader) varInt64() (int64, error) {
	v, _, err := r.varIntN(64)
	return v, err
}
