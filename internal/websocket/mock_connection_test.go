package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// mockMessage is one scripted read
type mockMessage struct {
	Type int
	Data []byte
	Err  error
}

// mockConnection is a Connection whose reads are fed by the test and whose
// text writes are delivered on written
type mockConnection struct {
	mu        sync.Mutex
	reads     chan mockMessage
	written   chan []byte
	closed    bool
	closeOnce sync.Once
	done      chan struct{}

	readLimit   int64
	pongHandler func(string) error
	frames      []int
}

func newMockConnection() *mockConnection {
	return &mockConnection{
		reads:   make(chan mockMessage, 16),
		written: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

// feed scripts a text message for ReadMessage
func (m *mockConnection) feed(data string) {
	m.reads <- mockMessage{Type: websocket.TextMessage, Data: []byte(data)}
}

// fail makes the next ReadMessage return err
func (m *mockConnection) fail(err error) {
	m.reads <- mockMessage{Err: err}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.frames = append(m.frames, messageType)
	if messageType == websocket.TextMessage {
		m.written <- data
	}
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.reads:
		return msg.Type, msg.Data, msg.Err
	case <-m.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (m *mockConnection) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
	})
	return nil
}

func (m *mockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *mockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) RemoteAddr() string { return "127.0.0.1:50000" }

// sentFrames returns the frame types written so far
func (m *mockConnection) sentFrames() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.frames...)
}
