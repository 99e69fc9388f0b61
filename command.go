package bridge

import (
	"context"
	"encoding/json"
	"fmt"
)

type CommandName string

// Params is the parameter bag carried by a command.
type Params map[string]any

// Command is a message exchanged with the control peer, in either
// direction.
type Command struct {
	Name   CommandName `json:"command"`
	Params Params      `json:"params"`
}

// Ack confirms that an inbound command was dispatched locally.
type Ack struct {
	Status  string      `json:"status"`
	Command CommandName `json:"command"`
}

const ackStatusOK = "ok"

// Handler processes the params of one inbound command. The context is
// cancelled when the connection that delivered the command ends.
type Handler func(ctx context.Context, params Params) error

// DecodeCommand parses an inbound payload. A payload that is not a
// JSON object with a non-empty string "command" and an object (or
// absent) "params" is rejected with ErrInvalidCommand. Keys match
// exactly, so "Command" or "PARAMS" are ignored.
func DecodeCommand(data []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	rawName, ok := fields["command"]
	if !ok {
		return Command{}, fmt.Errorf("%w: missing command name", ErrInvalidCommand)
	}
	var name string
	if err := json.Unmarshal(rawName, &name); err != nil {
		return Command{}, fmt.Errorf("%w: command: %v", ErrInvalidCommand, err)
	}
	if name == "" {
		return Command{}, fmt.Errorf("%w: missing command name", ErrInvalidCommand)
	}

	params := Params{}
	if rawParams, ok := fields["params"]; ok && string(rawParams) != "null" {
		if err := json.Unmarshal(rawParams, &params); err != nil {
			return Command{}, fmt.Errorf("%w: params: %v", ErrInvalidCommand, err)
		}
	}

	return Command{Name: CommandName(name), Params: params}, nil
}

// EncodeCommand serializes an outbound command. Nil params are sent as
// an empty object.
func EncodeCommand(command Command) ([]byte, error) {
	if command.Params == nil {
		command.Params = Params{}
	}
	data, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return data, nil
}

func encodeAck(name CommandName) ([]byte, error) {
	return json.Marshal(Ack{Status: ackStatusOK, Command: name})
}
