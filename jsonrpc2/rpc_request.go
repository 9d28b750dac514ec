package jsonrpc2

import (
	"encoding/json"
	"errors"

	"chatey/utils"
)

var ErrNoParams = errors.New("missing params")

// Notify builds a server-to-client notification. It has an id for tracing
// only; clients do not answer it.
func Notify(method string, params interface{}) (*RPCRequest, error) {
	req := &RPCRequest{ID: utils.GetRandomUUID(), Method: method, JSONRPC: Version, Notif: true}
	if err := req.SetParams(params); err != nil {
		return nil, err
	}
	return req, nil
}

func (me *RPCRequest) Encode() []byte {
	json, err := json.Marshal(me)
	if err != nil {
		utils.Log().Error(err, "error while marshaling RPCRequest")
	}
	return json
}

// SetParams sets r.Params to the JSON representation of v.
func (me *RPCRequest) SetParams(v interface{}) error {
	if v == nil {
		me.Params = nil
		return nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	me.Params = (json.RawMessage)(b)
	return nil
}

// BindParams decodes Params into v.
func (me *RPCRequest) BindParams(v interface{}) error {
	if len(me.Params) == 0 {
		return ErrNoParams
	}
	return json.Unmarshal(me.Params, v)
}
