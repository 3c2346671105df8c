package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownKind is returned for envelopes whose type is not handled.
	ErrUnknownKind = errors.New("protocol: unknown message type")
	// ErrMalformed is returned when a frame or its payload cannot be decoded
	// or fails validation.
	ErrMalformed = errors.New("protocol: malformed message")
)

var validate = validator.New()

// Decode parses a raw frame into a typed, validated payload. Payloads are
// returned whole or not at all.
func Decode(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var msg Inbound
	switch env.Type {
	case KindNewEmergency:
		var m NewEmergency
		if err := decodeData(env.Data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindOfficerLocationUpdate:
		var m OfficerLocationUpdate
		if err := decodeData(env.Data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindTaskStatusUpdate:
		var m TaskStatusUpdate
		if err := decodeData(env.Data, &m); err != nil {
			return nil, err
		}
		msg = m
	case KindThreatResolved:
		var m ThreatResolved
		if err := decodeData(env.Data, &m); err != nil {
			return nil, err
		}
		msg = m
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Type)
	}
	return msg, nil
}

func decodeData(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrMalformed)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
