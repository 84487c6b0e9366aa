// Package testutil provides in-process fakes for the pipeline's two
// external collaborators: the MLLP message source and the pager service.
package testutil

import (
	"bytes"
	"net"
	"sync"
	"testing"
	"time"
)

// MLLPServer is a scripted MLLP message source for tests. Each accepted
// connection is handed to the script function, which drives the wire
// however the test needs (whole frames, split frames, abrupt closes).
type MLLPServer struct {
	tb testing.TB
	ln net.Listener
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewMLLPServer starts a TCP listener on a loopback port and serves every
// accepted connection with script in its own goroutine.
func NewMLLPServer(tb testing.TB, script func(conn net.Conn)) *MLLPServer {
	tb.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("listen: %v", err)
	}

	s := &MLLPServer{tb: tb, ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				script(conn)
			}()
		}
	}()

	tb.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on
func (s *MLLPServer) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener and waits for in-flight connections
func (s *MLLPServer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	_ = s.ln.Close()
	s.wg.Wait()
}

// WriteChunked writes data to conn in two pieces split at offset, with a
// short pause in between, to exercise partial-frame reassembly.
func WriteChunked(tb testing.TB, conn net.Conn, data []byte, offset int, pause time.Duration) {
	tb.Helper()
	if offset < 0 || offset > len(data) {
		tb.Fatalf("split offset %d out of range for %d bytes", offset, len(data))
	}
	if _, err := conn.Write(data[:offset]); err != nil {
		tb.Fatalf("write first chunk: %v", err)
	}
	time.Sleep(pause)
	if _, err := conn.Write(data[offset:]); err != nil {
		tb.Fatalf("write second chunk: %v", err)
	}
}

// ReadAck reads one complete MLLP frame (an acknowledgment) from conn
func ReadAck(conn net.Conn) ([]byte, error) {
	frames, err := ReadFrames(conn, 1)
	if len(frames) == 0 {
		return nil, err
	}
	return frames[0], err
}

// ReadFrames accumulates reads from conn until count end-of-block markers
// have arrived, then returns the individual frames. TCP may coalesce
// consecutive frames into one segment, so callers expecting several frames
// must read them in one pass.
func ReadFrames(conn net.Conn, count int) ([][]byte, error) {
	var acc bytes.Buffer
	buf := make([]byte, 256)
	for bytes.Count(acc.Bytes(), []byte{0x1c}) < count {
		n, err := conn.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			continue
		}
		if err != nil {
			return splitFrames(acc.Bytes()), err
		}
	}
	return splitFrames(acc.Bytes()), nil
}

// splitFrames cuts a byte stream into frames after each end-of-block
// marker and its trailing carriage return.
func splitFrames(data []byte) [][]byte {
	var frames [][]byte
	for len(data) > 0 {
		idx := bytes.IndexByte(data, 0x1c)
		if idx < 0 {
			break
		}
		end := idx + 1
		if end < len(data) && data[end] == 0x0d {
			end++
		}
		frame := make([]byte, end)
		copy(frame, data[:end])
		frames = append(frames, frame)
		data = data[end:]
	}
	return frames
}
