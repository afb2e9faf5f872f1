package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoder writes one value per call to an underlying stream
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder reads one value per call from an underlying stream
type Decoder interface {
	Decode(v interface{}) error
}

// Codec frames values on a connection
type Codec interface {
	Name() string
	NewEncoder(w io.Writer) Encoder
	NewDecoder(r io.Reader) Decoder
}

// JSON is the newline-delimited JSON codec
var JSON Codec = jsonCodec{}

// Msgpack is the MessagePack codec
var Msgpack Codec = msgpackCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string                   { return "json" }
func (jsonCodec) NewEncoder(w io.Writer) Encoder { return json.NewEncoder(w) }
func (jsonCodec) NewDecoder(r io.Reader) Decoder { return json.NewDecoder(r) }

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) NewEncoder(w io.Writer) Encoder {
	return msgpack.NewEncoder(w)
}

func (msgpackCodec) NewDecoder(r io.Reader) Decoder {
	return msgpack.NewDecoder(r)
}

// CodecByName returns the codec registered under name ("json" or "msgpack").
// An empty name selects JSON.
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	default:
		return nil, fmt.Errorf("unknown codec: %s", name)
	}
}

// Sniff picks the codec for a connection from its first byte.
// JSON commands always open with '{' (optionally after whitespace);
// a msgpack command is a map and never starts with those bytes.
func Sniff(first byte) Codec {
	switch first {
	case '{', ' ', '\t', '\r', '\n':
		return JSON
	default:
		return Msgpack
	}
}
