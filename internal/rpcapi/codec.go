// Package rpcapi is the RPC front-end: it mirrors the REST verbs over
// gRPC's binary framing with a service name matching the real cloud
// service, and renders errors as trailing detail-bin metadata.
//
// There are no .proto sources to generate from, so request/response
// messages are plain Go structs carried over a custom "json" grpc codec
// instead of protobuf wire format. Error details still use the real,
// already-compiled google.golang.org/genproto/googleapis/rpc/errdetails
// proto messages via status.WithDetails, exactly as a protoc-generated
// service would.
package rpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

// jsonCodec lets the grpc-go server/client frame plain Go structs as JSON
// instead of requiring protoc-generated proto.Message types.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
