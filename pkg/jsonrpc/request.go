package jsonrpc

import "encoding/json"

// Version is the only JSON-RPC protocol version the host accepts.
const Version = "2.0"

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"` // accepts string | number | null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

/*
HasID reports whether the request carries a usable id. Notifications (absent
or null id) are not valid A2A calls; every method here returns a result.
*/
func (req *RPCRequest) HasID() bool {
	if len(req.ID) == 0 {
		return false
	}

	return string(req.ID) != "null"
}
