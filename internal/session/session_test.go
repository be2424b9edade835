package session_test

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/op/go-logging"

	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/fixture"
	"github.com/slimfix/slimd/internal/session"
	"github.com/slimfix/slimd/internal/wire"
)

func silentLogger() *logging.Logger {
	backend := logging.NewLogBackend(io.Discard, "", 0)
	logging.SetBackend(backend)
	return logging.MustGetLogger("session_test")
}

func testResolver() *fixture.Registry {
	reg := fixture.NewRegistry()
	reg.Register("pkg.mod", "Echoer", fixture.ClassSpec{
		New: func(args []string) (any, error) { return struct{}{}, nil },
		Methods: []fixture.MethodSpec{
			{
				Name:      "echo",
				ParamTags: []string{"string"},
				Func: func(self any, args []any) (any, error) {
					return args[0].(string), nil
				},
			},
		},
	})
	return reg
}

type stringConverter struct{}

func (stringConverter) ToString(v any) (string, error) { return v.(string), nil }
func (stringConverter) FromString(s string) (any, error) { return s, nil }

func readHandshake(t *testing.T, r *bufio.Reader) {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("reading handshake: %v", err)
	}
	if line != "Slim -- V0.0\n" {
		t.Fatalf("unexpected handshake %q", line)
	}
}

func sendFrame(t *testing.T, w io.Writer, body []byte) {
	t.Helper()
	header := fmt.Sprintf("%06d:", len(body))
	if _, err := io.WriteString(w, header); err != nil {
		t.Fatalf("writing header: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("writing body: %v", err)
	}
}

func readFrame(t *testing.T, r *bufio.Reader) []byte {
	t.Helper()
	header := make([]byte, 7)
	if _, err := io.ReadFull(r, header); err != nil {
		t.Fatalf("reading header: %v", err)
	}
	length, err := strconv.Atoi(string(header[:6]))
	if err != nil {
		t.Fatalf("bad length header %q: %v", header, err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return body
}

func TestHandshakeAndBye(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	registry := convert.NewRegistry()
	done := make(chan struct{})
	go func() {
		session.Serve(serverConn, testResolver(), registry, nil, silentLogger())
		close(done)
	}()

	r := bufio.NewReader(clientConn)
	readHandshake(t, r)

	sendFrame(t, clientConn, []byte("bye"))
	clientConn.Close()
	<-done
}

func TestImportMakeCallRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	registry := convert.NewRegistry()
	registry.Register("string", stringConverter{})
	done := make(chan struct{})
	go func() {
		session.Serve(serverConn, testResolver(), registry, nil, silentLogger())
		close(done)
	}()

	r := bufio.NewReader(clientConn)
	readHandshake(t, r)

	batch := wire.List(
		wire.List(wire.String("id1"), wire.String("import"), wire.String("pkg.mod")),
		wire.List(wire.String("id2"), wire.String("make"), wire.String("x"), wire.String("Echoer")),
		wire.List(wire.String("id3"), wire.String("call"), wire.String("x"), wire.String("echo"), wire.String("hi")),
	)
	sendFrame(t, clientConn, wire.Encode(batch))

	responseBody := readFrame(t, r)
	response, err := wire.Decode(responseBody)
	if err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	items := response.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 results, got %d", len(items))
	}
	third := items[2].Items()
	if third[0].Str() != "id3" || third[1].Str() != "hi" {
		t.Fatalf("unexpected third result: %+v", third)
	}

	sendFrame(t, clientConn, []byte("bye"))
	clientConn.Close()
	<-done
}

func TestByteTotalsAreTracked(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	registry := convert.NewRegistry()
	counter := &fakeCounter{}
	done := make(chan struct{})
	go func() {
		session.Serve(serverConn, testResolver(), registry, counter, silentLogger())
		close(done)
	}()

	r := bufio.NewReader(clientConn)
	readHandshake(t, r)
	sendFrame(t, clientConn, []byte("bye"))
	clientConn.Close()
	<-done

	if counter.sent == 0 {
		t.Fatal("expected at least the handshake banner to be counted as sent")
	}
	if counter.received == 0 {
		t.Fatal("expected the bye frame to be counted as received")
	}
}

type fakeCounter struct {
	received, sent int
}

func (f *fakeCounter) AddReceived(n int) { f.received += n }
func (f *fakeCounter) AddSent(n int)     { f.sent += n }
