package network

import (
	"encoding/json"
	"errors"
)

const (
	MsgTypeHeartbeat = 1
	MsgTypeRequest   = 101
	MsgTypeReply     = 102
	MsgTypeEvent     = 301
)

// Request is one client operation. GameID or RoomCode addresses the room;
// create needs neither.
type Request struct {
	ID       string          `json:"id"`
	Op       string          `json:"op"`
	GameID   string          `json:"game_id,omitempty"`
	RoomCode string          `json:"room_code,omitempty"`
	Args     json.RawMessage `json:"args,omitempty"`
}

type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Reply struct {
	ID     string      `json:"id"`
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

// EventFrame is a room event pushed to members.
type EventFrame struct {
	Kind    string `json:"kind"`
	GameID  string `json:"game_id"`
	Payload any    `json:"payload,omitempty"`
}

var ErrMalformedRequest = errors.New("malformed request")

// DecodeRequest parses a request packet body.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Join(ErrMalformedRequest, err)
	}
	if req.Op == "" {
		return nil, ErrMalformedRequest
	}
	return &req, nil
}
