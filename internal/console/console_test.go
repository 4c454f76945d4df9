package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-terminal/internal/model"
	"device-terminal/internal/terminal"
)

type fakeSession struct {
	mu          sync.Mutex
	log         *terminal.Log
	sent        []string
	connects    int
	disconnects int
}

func (s *fakeSession) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	s.log.Append(model.EntryKindInfo, "Connected to serial port", "")
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	return nil
}

func (s *fakeSession) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	s.log.Append(model.EntryKindEcho, text, "")
	return nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsoleSendsLinesAndDisconnectsOnEOF(t *testing.T) {
	log := terminal.NewLog()
	session := &fakeSession{log: log}
	out := &syncBuffer{}

	c := New(session, log, out, zap.NewNop())
	err := c.Run(context.Background(), strings.NewReader(":connect\nAT\n\nAT+GMR\n"))
	require.NoError(t, err)

	assert.Equal(t, 1, session.connects)
	assert.Equal(t, []string{"AT", "", "AT+GMR"}, session.sent)
	assert.Equal(t, 1, session.disconnects)

	assert.Equal(t, "Connected to serial port\n> AT\n> \n> AT+GMR\n", out.String())
}

func TestConsoleQuitStopsReading(t *testing.T) {
	log := terminal.NewLog()
	session := &fakeSession{log: log}

	c := New(session, log, &syncBuffer{}, zap.NewNop())
	require.NoError(t, c.Run(context.Background(), strings.NewReader("AT\n:quit\nAT\n")))

	assert.Equal(t, []string{"AT"}, session.sent)
	assert.Equal(t, 1, session.disconnects)
}

func TestConsoleStopsOnCancel(t *testing.T) {
	log := terminal.NewLog()
	session := &fakeSession{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	// a reader that never returns
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan error, 1)
	go func() {
		done <- New(session, log, &syncBuffer{}, zap.NewNop()).Run(ctx, r)
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
	assert.Equal(t, 1, session.disconnects)
}
