// Package rpcapi holds the wire contract of the securemsg.v1.Messenger gRPC
// service: request and response types, the JSON codec that carries them and
// the service descriptor shared by server and client.
package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype negotiated on the wire.
const CodecName = "json"

// Codec marshals messages as JSON.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}
