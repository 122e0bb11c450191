package codec

// Raw stores chunks uncompressed. It is the codec of last resort and the one
// used by files whose header does not set the compression bit.
var Raw Codec = rawCodec{}

type rawCodec struct{}

func (rawCodec) Name() string { return "raw" }

func (rawCodec) Encode(records []byte) ([]byte, error) {
	out := make([]byte, len(records))
	copy(out, records)
	return out, nil
}

func (rawCodec) Decode(data []byte, recordCount, recordLength int) ([]byte, error) {
	if err := checkDecodedSize(len(data), recordCount, recordLength); err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func init() {
	Register(Raw)
}
