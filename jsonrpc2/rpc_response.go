package jsonrpc2

import (
	"encoding/json"
	"errors"

	"chatey/utils"
)

var ErrNoResult = errors.New("missing result")

// Reply builds a successful response carrying result.
func Reply(id string, result interface{}) (*RPCResponse, error) {
	resp := &RPCResponse{ID: id, JSONRPC: Version}
	if err := resp.SetResult(result); err != nil {
		return nil, err
	}
	return resp, nil
}

// ReplyWithError builds a failed response. Failed responses never carry a
// result.
func ReplyWithError(id string, rpcErr *RPCError) *RPCResponse {
	return &RPCResponse{ID: id, JSONRPC: Version, Error: rpcErr}
}

func (me *RPCResponse) Encode() []byte {
	b, err := json.Marshal(me)
	if err != nil {
		utils.Log().Error(err, "error while marshaling RPCResponse", "id", me.ID)
	}
	return b
}

func (me *RPCResponse) SetResult(v interface{}) error {
	if v == nil {
		me.Result = nil
		return nil
	}

	raw, err := utils.ToRawMessage(v)
	if err != nil {
		return err
	}
	me.Result = raw
	return nil
}

// BindResult decodes Result into v. A failed response returns its error.
func (me *RPCResponse) BindResult(v interface{}) error {
	if me.Error != nil {
		return me.Error
	}
	if len(me.Result) == 0 {
		return ErrNoResult
	}
	return json.Unmarshal(me.Result, v)
}
