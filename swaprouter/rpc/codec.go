package rpc

import (
	"encoding/json"
	"fmt"
)

// JSONCodec serialises RPC messages with encoding/json. The router messages are plain Go
// structs carrying CosmWasm JSON, so it replaces connect's protobuf JSON codec under "json".
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		// connect sends an empty body for messages without fields
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid json request: %w", err)
	}
	return nil
}
