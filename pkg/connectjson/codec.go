// Package connectjson provides a connect codec that encodes plain Go structs
// as JSON, so services can be served over the Connect protocol without
// generated protobuf types.
package connectjson

import (
	"fmt"

	"connectrpc.com/connect"
	"github.com/goccy/go-json"
)

// Name is registered in place of connect's protobuf-only JSON codec.
const Name = "json"

// Codec implements connect.Codec with goccy/go-json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return Name }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	// An empty body is a valid empty message.
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", msg, err)
	}
	return nil
}

// WithCodec returns the option that installs Codec on handlers and clients.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}
