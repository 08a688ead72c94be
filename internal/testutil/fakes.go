package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/yukikurage/stage-intake/internal/mailer"
	"github.com/yukikurage/stage-intake/internal/storage"
)

// FakeMailer records sent messages. Err, when set, is returned from Send.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []mailer.Message
	Err  error
}

// Send implements mailer.Mailer.
func (m *FakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages returns a copy of the sent messages.
func (m *FakeMailer) Messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.Sent...)
}

// FakeFileStore keeps uploads in memory and returns https://files.test/<filename>.
type FakeFileStore struct {
	mu    sync.Mutex
	Files map[string][]byte
	Err   error
}

// Save implements storage.FileStore.
func (s *FakeFileStore) Save(_ context.Context, upload storage.Upload) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	content, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", storage.ErrEmptyFile
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Files == nil {
		s.Files = make(map[string][]byte)
	}
	s.Files[upload.Filename] = content
	return "https://files.test/" + upload.Filename, nil
}

// Count returns the number of stored files.
func (s *FakeFileStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Files)
}
