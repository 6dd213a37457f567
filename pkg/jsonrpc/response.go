package jsonrpc

import (
	"encoding/json"

	"github.com/spindlework/a2ahost/pkg/errors"
)

type RPCResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

// NewResponse wraps a result in a success envelope correlated to id.
func NewResponse(id json.RawMessage, result any) RPCResponse {
	return RPCResponse{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse wraps an RpcError in an error envelope correlated to id,
// so error responses always carry the id of the request that caused them.
func NewErrorResponse(id json.RawMessage, rpcErr *errors.RpcError) RPCResponse {
	return RPCResponse{
		JSONRPC: Version,
		ID:      id,
		Error:   rpcErr,
	}
}
