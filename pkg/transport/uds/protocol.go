// Package uds is the control socket of a running worker: NDJSON requests
// and responses over a Unix domain socket, plus events pushed to every
// connected client.
package uds

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modoterra/agentlog/pkg/core"
)

var msgCounter atomic.Uint64

// MsgType identifies the kind of message.
type MsgType string

const (
	MsgTypeReq MsgType = "req"
	MsgTypeRes MsgType = "res"
	MsgTypeEvt MsgType = "evt"
)

// Message is the NDJSON envelope for all communication.
type Message struct {
	Type   MsgType         `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: empty payload", m.Method)
	}
	return json.Unmarshal(m.Data, v)
}

func newMessage(typ MsgType, id, method string, data any) (Message, error) {
	msg := Message{Type: typ, ID: id, Method: method}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return Message{}, fmt.Errorf("encode %s: %w", method, err)
		}
		msg.Data = b
	}
	return msg, nil
}

// NewRequest creates a request message with a unique ID.
func NewRequest(method string, data any) (Message, error) {
	return newMessage(MsgTypeReq, fmt.Sprintf("req-%d", msgCounter.Add(1)), method, data)
}

// NewResponse creates a response to the request with the given ID.
func NewResponse(reqID, method string, data any) (Message, error) {
	return newMessage(MsgTypeRes, reqID, method, data)
}

// NewErrorResponse creates an error response.
func NewErrorResponse(reqID, method, errMsg string) Message {
	return Message{Type: MsgTypeRes, ID: reqID, Method: method, Error: errMsg}
}

// NewEvent creates a server-pushed event.
func NewEvent(method string, data any) (Message, error) {
	return newMessage(MsgTypeEvt, fmt.Sprintf("evt-%d", msgCounter.Add(1)), method, data)
}

// Methods
const (
	MethodPing   = "Ping"
	MethodStatus = "Status"
	MethodStop   = "Stop"

	// EventAgent carries one condensed core.Event.
	EventAgent = "agent.event"
)

// PingResponse is the response to a Ping request.
type PingResponse struct {
	Pong bool `json:"pong"`
	PID  int  `json:"pid"`
}

// StatusResponse describes the worker behind the socket.
type StatusResponse struct {
	State       core.Status `json:"state"`
	Iteration   int         `json:"iteration"`
	AgentPID    int         `json:"agent_pid,omitempty"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	LastExit    int         `json:"last_exit"`
	LastLog     string      `json:"last_log,omitempty"`
	Failures    int         `json:"failures"`
	Events      int64       `json:"events"`
	CostUSD     float64     `json:"cost_usd"`
	Dir         string      `json:"dir"`
	Command     string      `json:"command"`
	ServingFrom time.Time   `json:"serving_from"`

	// Processes is the agent's process group while a run is active.
	Processes []ProcessInfo `json:"processes,omitempty"`
}

// ProcessInfo is one process in the agent's process group.
type ProcessInfo struct {
	PID     int    `json:"pid"`
	PPID    int    `json:"ppid"`
	Command string `json:"command"`
}
