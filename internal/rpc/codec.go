// Package rpc defines the EquiSplit Connect services: message types,
// procedure names, handler constructors and typed clients.
//
// Messages are plain Go structs carried by a JSON codec, so the services
// speak the Connect protocol without generated protobuf types.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is the Connect codec name, matching the application/json content type.
const CodecName = "json"

type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return CodecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
}
