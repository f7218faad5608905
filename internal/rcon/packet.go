package rcon

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alexmorten/rconsole/internal/messages"
)

// Outgoing packet types. CommandEnd is intentionally outside the server's
// documented vocabulary: the server echoes the id back in an empty
// response, which the client uses as a fence marking "all fragments for
// the preceding command have arrived".
const (
	TypeLogin      int32 = 3
	TypeCommand    int32 = 2
	TypeCommandEnd int32 = 99
)

// Incoming packet types.
const (
	TypeCommandResponse int32 = 0
	TypeLoginAck        int32 = 2
)

// Encoding returns the payload text encoding this spec mandates per server
// type: ASCII for Source, UTF-8 for Minecraft.
func Encoding(serverType messages.ServerType) string {
	if serverType == messages.ServerTypeSource {
		return "ascii"
	}
	return "utf-8"
}

// EncodePayload converts s to bytes under encoding, rejecting any string
// that cannot round-trip (relevant only for "ascii", where non-ASCII runes
// are unrepresentable).
func EncodePayload(s string, encoding string) ([]byte, error) {
	if encoding == "ascii" {
		b := make([]byte, len(s))
		for i := 0; i < len(s); i++ {
			if s[i] > 0x7f {
				return nil, fmt.Errorf("rcon: payload is not valid ascii")
			}
			b[i] = s[i]
		}
		return b, nil
	}
	return []byte(s), nil
}

// DecodePayload converts bytes back to a string under encoding.
func DecodePayload(b []byte, encoding string) (string, error) {
	if encoding == "ascii" {
		for _, c := range b {
			if c > 0x7f {
				return "", fmt.Errorf("rcon: response is not valid ascii")
			}
		}
	}
	return string(b), nil
}

// OutgoingPacket is a frame this client writes to the wire: login,
// command, or command-end.
type OutgoingPacket struct {
	RequestID int32
	Type      int32
	Payload   string
}

// LoginPacket builds a login request carrying rconPassword.
func LoginPacket(rconPassword string, requestID int32) OutgoingPacket {
	return OutgoingPacket{RequestID: requestID, Type: TypeLogin, Payload: rconPassword}
}

// CommandPacket builds a command request carrying command.
func CommandPacket(command string, requestID int32) OutgoingPacket {
	return OutgoingPacket{RequestID: requestID, Type: TypeCommand, Payload: command}
}

// CommandEndPacket builds the synthetic fence packet terminating a
// command's fragment stream.
func CommandEndPacket(requestID int32) OutgoingPacket {
	return OutgoingPacket{RequestID: requestID, Type: TypeCommandEnd, Payload: ""}
}

// Encode serializes p to the wire frame: length-prefixed
// (requestId, type, payload, nul, pad) per spec §4.C.
func (p OutgoingPacket) Encode(encoding string) ([]byte, error) {
	payloadBytes, err := EncodePayload(p.Payload, encoding)
	if err != nil {
		return nil, err
	}

	body := make([]byte, 0, 8+len(payloadBytes)+2)
	var idType [8]byte
	binary.LittleEndian.PutUint32(idType[0:4], uint32(p.RequestID))
	binary.LittleEndian.PutUint32(idType[4:8], uint32(p.Type))
	body = append(body, idType[:]...)
	body = append(body, payloadBytes...)
	body = append(body, 0x00, 0x00)

	frame := make([]byte, 0, 4+len(body))
	var lengthBytes [4]byte
	binary.LittleEndian.PutUint32(lengthBytes[:], uint32(len(body)))
	frame = append(frame, lengthBytes[:]...)
	frame = append(frame, body...)
	return frame, nil
}

// ResponseKind tags the decoded shape of an incoming frame.
type ResponseKind int

const (
	ResponseCommand ResponseKind = iota
	ResponseLoginSuccess
	ResponseLoginFailed
	ResponseUnprocessable
)

// IncomingResponse is the decoded shape of one frame read from the wire.
type IncomingResponse struct {
	Kind      ResponseKind
	RequestID int32
	Payload   []byte
	Message   string // set only when Kind == ResponseUnprocessable
}

// ReadFrame reads exactly one length-prefixed frame from r and decodes it.
// It returns *IncompleteReadError if the stream ends before a full frame
// is available.
func ReadFrame(r io.Reader) (IncomingResponse, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return IncomingResponse{}, &IncompleteReadError{Wanted: 4, Got: 0}
	}
	length := int(binary.LittleEndian.Uint32(lengthBytes))
	if length < 10 {
		return IncomingResponse{}, &InvalidPacketError{Reason: "frame shorter than minimum header"}
	}

	body := make([]byte, length)
	n, err := io.ReadFull(r, body)
	if err != nil {
		return IncomingResponse{}, &IncompleteReadError{Wanted: length, Got: n}
	}

	requestID := int32(binary.LittleEndian.Uint32(body[0:4]))
	packetType := int32(binary.LittleEndian.Uint32(body[4:8]))
	payload := body[8 : len(body)-2]
	pad := body[len(body)-2:]

	if pad[0] != 0x00 || pad[1] != 0x00 {
		return IncomingResponse{
			Kind:      ResponseUnprocessable,
			RequestID: requestID,
			Message:   "padding mismatch",
		}, nil
	}

	switch packetType {
	case TypeCommandResponse:
		return IncomingResponse{Kind: ResponseCommand, RequestID: requestID, Payload: payload}, nil
	case TypeLoginAck:
		if requestID == -1 {
			return IncomingResponse{Kind: ResponseLoginFailed}, nil
		}
		return IncomingResponse{Kind: ResponseLoginSuccess, RequestID: requestID}, nil
	default:
		return IncomingResponse{
			Kind:      ResponseUnprocessable,
			RequestID: requestID,
			Message:   "invalid packet type",
		}, nil
	}
}
