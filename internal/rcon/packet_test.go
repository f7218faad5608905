package rcon_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/rcon"
)

// decodeRawFrame parses a frame's fields directly, independent of
// ReadFrame's incoming-response semantics (which interprets wire type 2 as
// a login ack regardless of whether it was produced by an outgoing
// CommandPacket — outgoing and incoming type codes share numeric space but
// not meaning). This lets the round-trip tests check what Encode actually
// put on the wire.
func decodeRawFrame(t *testing.T, frame []byte) (requestID, packetType int32, payload []byte) {
	t.Helper()
	length := binary.LittleEndian.Uint32(frame[0:4])
	body := frame[4 : 4+length]
	requestID = int32(binary.LittleEndian.Uint32(body[0:4]))
	packetType = int32(binary.LittleEndian.Uint32(body[4:8]))
	payload = body[8 : len(body)-2]
	pad := body[len(body)-2:]
	require.Equal(t, []byte{0x00, 0x00}, pad)
	return
}

func TestOutgoingPacket_EncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pkt  rcon.OutgoingPacket
	}{
		{"login", rcon.LoginPacket("hunter2", 1)},
		{"command", rcon.CommandPacket("time set day", 2)},
		{"command-end", rcon.CommandEndPacket(3)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, err := tc.pkt.Encode("ascii")
			require.NoError(t, err)

			requestID, packetType, payload := decodeRawFrame(t, frame)
			assert.Equal(t, tc.pkt.RequestID, requestID)
			assert.Equal(t, tc.pkt.Type, packetType)
			assert.Equal(t, tc.pkt.Payload, string(payload))
		})
	}
}

func TestReadFrame_CommandResponseRoundTrip(t *testing.T) {
	// Simulate a server echoing a command response: wire type 0, which
	// ReadFrame interprets as ResponseCommand.
	resp := rcon.OutgoingPacket{RequestID: 7, Type: rcon.TypeCommandResponse, Payload: "ok"}
	frame, err := resp.Encode("ascii")
	require.NoError(t, err)

	decoded, err := rcon.ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, rcon.ResponseCommand, decoded.Kind)
	assert.Equal(t, int32(7), decoded.RequestID)
	assert.Equal(t, "ok", string(decoded.Payload))
}

func TestReadFrame_IncompleteStream(t *testing.T) {
	_, err := rcon.ReadFrame(bytes.NewReader([]byte{0x01, 0x00}))
	require.Error(t, err)
	var incomplete *rcon.IncompleteReadError
	assert.ErrorAs(t, err, &incomplete)
}

func TestReadFrame_PaddingMismatchIsUnprocessable(t *testing.T) {
	pkt := rcon.OutgoingPacket{RequestID: 5, Type: rcon.TypeCommandResponse, Payload: "status"}
	frame, err := pkt.Encode("ascii")
	require.NoError(t, err)
	frame[len(frame)-1] = 0x01 // corrupt the trailing pad byte

	decoded, err := rcon.ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, rcon.ResponseUnprocessable, decoded.Kind)
}

func TestReadFrame_LoginFailureSignal(t *testing.T) {
	pkt := rcon.OutgoingPacket{RequestID: -1, Type: rcon.TypeLoginAck, Payload: ""}
	frame, err := pkt.Encode("ascii")
	require.NoError(t, err)

	decoded, err := rcon.ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, rcon.ResponseLoginFailed, decoded.Kind)
}

func TestReadFrame_LoginSuccess(t *testing.T) {
	pkt := rcon.OutgoingPacket{RequestID: 42, Type: rcon.TypeLoginAck, Payload: ""}
	frame, err := pkt.Encode("ascii")
	require.NoError(t, err)

	decoded, err := rcon.ReadFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, rcon.ResponseLoginSuccess, decoded.Kind)
	assert.Equal(t, int32(42), decoded.RequestID)
}

func TestEncodePayload_RejectsNonASCII(t *testing.T) {
	_, err := rcon.EncodePayload("héllo", "ascii")
	assert.Error(t, err)
}
