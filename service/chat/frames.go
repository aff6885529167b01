package chat

import (
	"encoding/json"

	errs "ChatRelay/tools/errs"
)

// 入站帧格式：{"route": "sendMessage", "data": {...}}

type wireFrame struct {
	Route string          `json:"route"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEventFrame 解析客户端帧。只校验外层结构，
// data 原样透传给对应 handler 校验。
func ParseEventFrame(raw []byte) (Event, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Event{}, errs.ErrInvalidInput.WrapMsg("unmarshal frame", "err", err)
	}
	if frame.Route == "" {
		return Event{}, errs.ErrInvalidInput.WrapMsg("frame missing route")
	}
	return Event{Route: RouteKey(frame.Route), Body: frame.Data}, nil
}
