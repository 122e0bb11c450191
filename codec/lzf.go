package codec

import (
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
)

// Lzf compresses chunks with LZF. Incompressible chunks are stored verbatim
// behind a one byte marker so Encode never fails on adversarial input.
var Lzf Codec = lzfCodec{}

type lzfCodec struct{}

const (
	lzfStored     = 0
	lzfCompressed = 1
)

func (lzfCodec) Name() string { return "lzf" }

func (lzfCodec) Encode(records []byte) ([]byte, error) {
	out := make([]byte, 1+len(records))
	if len(records) > 0 {
		n, err := lzf.Compress(records, out[1:])
		if err == nil && n > 0 && n < len(records) {
			out[0] = lzfCompressed
			return out[:1+n], nil
		}
	}
	out[0] = lzfStored
	copy(out[1:], records)
	return out, nil
}

func (lzfCodec) Decode(data []byte, recordCount, recordLength int) ([]byte, error) {
	if len(data) < 1 {
		return nil, errors.New("lzf chunk missing marker byte")
	}
	marker, payload := data[0], data[1:]
	switch marker {
	case lzfStored:
		if err := checkDecodedSize(len(payload), recordCount, recordLength); err != nil {
			return nil, err
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case lzfCompressed:
		out := make([]byte, recordCount*recordLength)
		n, err := lzf.Decompress(payload, out)
		if err != nil {
			return nil, errors.Wrap(err, "lzf decompress")
		}
		if err := checkDecodedSize(n, recordCount, recordLength); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errors.Errorf("unknown lzf chunk marker %d", marker)
	}
}

func init() {
	Register(Lzf)
}
