package codec

import (
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Snappy compresses chunks with snappy block encoding.
var Snappy Codec = snappyCodec{}

type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Encode(records []byte) ([]byte, error) {
	return snappy.Encode(nil, records), nil
}

func (snappyCodec) Decode(data []byte, recordCount, recordLength int) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, "snappy decode")
	}
	if err := checkDecodedSize(len(out), recordCount, recordLength); err != nil {
		return nil, err
	}
	return out, nil
}

func init() {
	Register(Snappy)
}
