package tag

import (
	"bytes"
	"errors"
	"reflect"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var msgpackHandle = &codec.MsgpackHandle{}

func init() {
	msgpackHandle.MapType = reflect.TypeOf(map[string]any{})
	msgpackHandle.RawToString = true
	msgpackHandle.WriteExt = true
}

// ErrNotCompound is returned when decoded data is not a compound at its root.
var ErrNotCompound = errors.New("tag: root is not a compound")

// Marshal encodes a compound as msgpack.
func Marshal(c Compound) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, msgpackHandle)
	if err := enc.Encode(map[string]any(c)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data produced by Marshal.
func Unmarshal(data []byte) (Compound, error) {
	var raw any
	dec := codec.NewDecoder(bytes.NewReader(data), msgpackHandle)
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	c, ok := AsCompound(Normalize(raw))
	if !ok {
		return nil, ErrNotCompound
	}
	return c, nil
}
