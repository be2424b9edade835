// Package session implements the SLIM per-connection state machine: the
// handshake, the READ_LEN/READ_BODY framing loop, and batch dispatch into
// the instruction engine.
package session

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/op/go-logging"
	uuid "github.com/satori/go.uuid"

	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/engine"
	internallog "github.com/slimfix/slimd/internal/log"
	"github.com/slimfix/slimd/internal/wire"
)

const handshakeBanner = "Slim -- V0.0\n"
const byeBody = "bye"

// ByteCounter receives running totals of bytes a lane has read and written,
// so a collaborator (internal/stats) can keep a process-wide snapshot
// without the session package importing it back.
type ByteCounter interface {
	AddReceived(n int)
	AddSent(n int)
}

// Lane is one connection's execution state: identity, codec I/O, and the
// instruction engine context bound to it. A Lane is created fresh per
// connection and never shared — no state crosses lanes except through the
// ClassResolver and convert.Registry every lane uses.
type Lane struct {
	ID string

	conn     net.Conn
	reader   *bufio.Reader
	resolver engine.ClassResolver
	registry *convert.Registry
	counter  ByteCounter
	logger   *logging.Logger

	received int
	sent     int
}

// Serve runs one session lane to completion and closes conn before
// returning. Intended to be called as `go session.Serve(...)` once per
// accepted connection, grounded on the teacher's ServeKRAgent accept loop
// (one goroutine per Accept, wrapped in RecoverToLog so a panic that escapes
// the lane only takes down that lane).
func Serve(conn net.Conn, resolver engine.ClassResolver, registry *convert.Registry, counter ByteCounter, logger *logging.Logger) {
	lane := &Lane{
		ID:       uuid.NewV4().String(),
		conn:     conn,
		reader:   bufio.NewReader(conn),
		resolver: resolver,
		registry: registry,
		counter:  counter,
		logger:   logger,
	}
	internallog.RecoverToLog(func() { lane.run() }, logger)
}

func (l *Lane) run() {
	defer l.conn.Close()

	if err := l.handshake(); err != nil {
		l.logger.Errorf("lane %s: handshake write failed: %v", l.ID, err)
		return
	}
	l.logger.Infof("lane %s: connected", l.ID)

	ctx := engine.NewContext(l.resolver)

	for {
		body, err := l.readFrame()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			l.logger.Infof("lane %s: disconnected (received=%d sent=%d)", l.ID, l.received, l.sent)
			return
		}
		if err != nil {
			l.logger.Errorf("lane %s: frame read error: %v", l.ID, err)
			return
		}

		if string(body) == byeBody {
			l.logger.Infof("lane %s: bye (received=%d sent=%d)", l.ID, l.received, l.sent)
			return
		}

		batch, decodeErr := wire.Decode(body)
		if decodeErr != nil {
			l.logger.Errorf("lane %s: malformed batch frame: %v", l.ID, decodeErr)
			return
		}

		collector := engine.NewResultCollector()
		engine.ExecuteBatch(batch.Items(), ctx, l.registry, collector)

		if err := l.writeFrame(wire.Encode(collector.Encode())); err != nil {
			l.logger.Errorf("lane %s: frame write error: %v", l.ID, err)
			return
		}
	}
}

// Received reports the running total of bytes read on this lane, frame
// length headers included.
func (l *Lane) Received() int { return l.received }

// Sent reports the running total of bytes written on this lane.
func (l *Lane) Sent() int { return l.sent }

func (l *Lane) handshake() error {
	n, err := io.WriteString(l.conn, handshakeBanner)
	l.countSent(n)
	return err
}

// readFrame performs one READ_LEN/READ_BODY cycle: a fixed
// wire.NumericBlockLength-byte decimal length header (with its trailing
// separator), then exactly that many body bytes.
func (l *Lane) readFrame() ([]byte, error) {
	header := make([]byte, wire.NumericBlockLength)
	if _, err := io.ReadFull(l.reader, header); err != nil {
		return nil, err
	}
	l.countReceived(len(header))

	length, err := strconv.Atoi(string(header[:wire.NumericLength]))
	if err != nil {
		return nil, fmt.Errorf("session: invalid length header %q", header)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(l.reader, body); err != nil {
		return nil, err
	}
	l.countReceived(length)
	return body, nil
}

func (l *Lane) writeFrame(payload []byte) error {
	header := fmt.Sprintf("%0*d%c", wire.NumericLength, len(payload), ':')
	n, err := io.WriteString(l.conn, header)
	l.countSent(n)
	if err != nil {
		return err
	}
	m, err := l.conn.Write(payload)
	l.countSent(m)
	return err
}

func (l *Lane) countReceived(n int) {
	l.received += n
	if l.counter != nil {
		l.counter.AddReceived(n)
	}
}

func (l *Lane) countSent(n int) {
	l.sent += n
	if l.counter != nil {
		l.counter.AddSent(n)
	}
}
