package rcon

import (
	"bufio"
	"net"
	"sync"

	"github.com/alexmorten/rconsole/internal/messages"
)

// RconConnection is the raw transport: one net.Conn plus the text encoding
// its payloads use. Writes are expected to be serialized by the caller
// (RconClient.SendCommand takes a mutex for exactly this reason).
type RconConnection struct {
	conn     net.Conn
	reader   *bufio.Reader
	encoding string
}

// NewRconConnection wraps an already-dialed conn.
func NewRconConnection(conn net.Conn, encoding string) *RconConnection {
	return &RconConnection{conn: conn, reader: bufio.NewReader(conn), encoding: encoding}
}

// Write encodes and writes one outgoing packet.
func (c *RconConnection) Write(p OutgoingPacket) error {
	frame, err := p.Encode(c.encoding)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(frame)
	return err
}

// Read reads and decodes exactly one incoming frame.
func (c *RconConnection) Read() (IncomingResponse, error) {
	return ReadFrame(c.reader)
}

// Close closes the underlying connection.
func (c *RconConnection) Close() error {
	return c.conn.Close()
}

// requestMetadata records what a command-end id's matching command id,
// issuing user, and command text were, so the response can be attributed
// once the end marker's echo arrives.
type requestMetadata struct {
	commandRequestID int32
	issuingUser      string
	command          string
}

// RconClient drives one Ready-state RCON connection: allocating request
// ids, serializing writes, and reassembling multi-fragment responses on
// the read loop.
type RconClient struct {
	connection *RconConnection
	ids        *RequestIDProvider
	serverType messages.ServerType
	encoding   string

	writeMu sync.Mutex

	fragments map[int32][][]byte        // commandRequestId -> ordered fragments
	pending   map[int32]requestMetadata // endMarkerRequestId -> metadata
}

// NewRconClient constructs a client bound to an already-logged-in
// connection.
func NewRconClient(connection *RconConnection, ids *RequestIDProvider, serverType messages.ServerType, encoding string) *RconClient {
	return &RconClient{
		connection: connection,
		ids:        ids,
		serverType: serverType,
		encoding:   encoding,
		fragments:  make(map[int32][][]byte),
		pending:    make(map[int32]requestMetadata),
	}
}

// SendCommand allocates a command id and an end-marker id, records the
// pairing, and writes both packets. Concurrent calls are serialized so
// that packets from different commands never interleave on the wire.
func (c *RconClient) SendCommand(cmd messages.RconCommand) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cmdID := c.ids.Next()
	endID := c.ids.Next()
	c.pending[endID] = requestMetadata{
		commandRequestID: cmdID,
		issuingUser:      cmd.IssuingUser,
		command:          cmd.Command,
	}

	if err := c.connection.Write(CommandPacket(cmd.Command, cmdID)); err != nil {
		return err
	}
	return c.connection.Write(CommandEndPacket(endID))
}

// Read runs the receive loop until the connection fails. onMessage is
// invoked with each fully reassembled response; onError is invoked for
// every UnprocessableResponse without terminating the loop.
func (c *RconClient) Read(onMessage func(messages.RconResponse), onError func(string)) error {
	for {
		resp, err := c.connection.Read()
		if err != nil {
			return err
		}

		switch resp.Kind {
		case ResponseCommand:
			if meta, ok := c.pending[resp.RequestID]; ok {
				response, decodeErr := c.assembleAndDecode(resp.RequestID, meta)
				delete(c.pending, resp.RequestID)
				delete(c.fragments, meta.commandRequestID)
				if decodeErr != nil {
					if onError != nil {
						onError(decodeErr.Error())
					}
					continue
				}
				onMessage(response)
			} else {
				c.fragments[resp.RequestID] = append(c.fragments[resp.RequestID], resp.Payload)
			}
		case ResponseUnprocessable:
			if onError != nil {
				onError(resp.Message)
			}
		default:
			// login-phase responses are not expected once the client has
			// reached Ready; ignore them defensively rather than fail the
			// loop.
		}
	}
}

func (c *RconClient) assembleAndDecode(endID int32, meta requestMetadata) (messages.RconResponse, error) {
	parts := c.fragments[meta.commandRequestID]
	var total int
	for _, p := range parts {
		total += len(p)
	}
	joined := make([]byte, 0, total)
	for _, p := range parts {
		joined = append(joined, p...)
	}

	decoded, err := DecodePayload(joined, c.encoding)
	if err != nil {
		return messages.RconResponse{}, err
	}

	return messages.RconResponse{
		IssuingUser: meta.issuingUser,
		ServerType:  c.serverType,
		Command:     meta.command,
		Response:    decoded,
	}, nil
}
