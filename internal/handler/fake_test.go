package handler

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"device-terminal/internal/model"
	"device-terminal/internal/repository"
	"device-terminal/internal/terminal"
)

type fakeSession struct {
	mu          sync.Mutex
	log         *terminal.Log
	state       model.SessionState
	connectErr  error
	sendErr     error
	sent        []string
	disconnects int
}

func newFakeSession(log *terminal.Log) *fakeSession {
	return &fakeSession{log: log, state: model.SessionStateClosed}
}

func (s *fakeSession) Connect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return s.connectErr
	}
	s.state = model.SessionStateOpen
	s.log.Append(model.EntryKindInfo, "Connected to serial port", "")
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	s.state = model.SessionStateClosed
	return nil
}

func (s *fakeSession) Send(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, text)
	s.log.Append(model.EntryKindEcho, text, "")
	return nil
}

func (s *fakeSession) Info() model.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SessionInfo{State: s.state, Variant: "serial"}
}

func (s *fakeSession) sentCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type fakeScanner struct {
	devices  []*model.DiscoveredDevice
	lastType string
}

func (f *fakeScanner) ScanAll(context.Context) ([]*model.DiscoveredDevice, error) {
	f.lastType = "all"
	return f.devices, nil
}

func (f *fakeScanner) ScanByType(_ context.Context, scannerType string) ([]*model.DiscoveredDevice, error) {
	f.lastType = scannerType
	if scannerType != "serial" && scannerType != "usb" {
		return nil, errors.New("scanner not found: " + scannerType)
	}
	return f.devices, nil
}

func (f *fakeScanner) GetAvailableScanners() []string {
	return []string{"serial", "usb"}
}

type fakeTranscripts struct {
	entries map[uuid.UUID][]*model.TranscriptEntry
}

func (f *fakeTranscripts) GetTranscript(_ context.Context, id uuid.UUID) ([]*model.TranscriptEntry, error) {
	entries, ok := f.entries[id]
	if !ok {
		return nil, repository.ErrTranscriptNotFound
	}
	return entries, nil
}

func (f *fakeTranscripts) ListSessions(context.Context, int) ([]*model.TranscriptSession, error) {
	sessions := make([]*model.TranscriptSession, 0, len(f.entries))
	for id, entries := range f.entries {
		sessions = append(sessions, &model.TranscriptSession{SessionID: id, EntryCount: int64(len(entries))})
	}
	return sessions, nil
}

type fakePinger struct {
	err error
}

func (p fakePinger) HealthCheck() error {
	return p.err
}
