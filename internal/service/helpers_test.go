package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-exam-grader/pkg/ai"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

// rawJudge answers with a fixed model response run through the real parser.
type rawJudge struct {
	mu     sync.Mutex
	raw    string
	err    error
	calls  int
	inputs []ai.JudgeInput
}

func (j *rawJudge) Judge(ctx context.Context, input ai.JudgeInput) (ai.JudgeResult, error) {
	j.mu.Lock()
	j.calls++
	j.inputs = append(j.inputs, input)
	j.mu.Unlock()
	if j.err != nil {
		return ai.JudgeResult{}, j.err
	}
	return ai.ParseJudgeResult(j.raw)
}

func (j *rawJudge) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

type rawAuditor struct {
	mu     sync.Mutex
	raw    string
	err    error
	block  bool
	calls  int
	inputs []ai.AuditInput
}

func (a *rawAuditor) Audit(ctx context.Context, input ai.AuditInput) (ai.AuditResult, error) {
	a.mu.Lock()
	a.calls++
	a.inputs = append(a.inputs, input)
	a.mu.Unlock()
	if a.block {
		<-ctx.Done()
		return ai.AuditResult{}, fmt.Errorf("audit request: %w", ctx.Err())
	}
	if a.err != nil {
		return ai.AuditResult{}, a.err
	}
	return ai.ParseAuditResult(a.raw)
}

func (a *rawAuditor) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type upload struct {
	folderID string
	name     string
	content  string
}

// memoryStore is a FolderStore keeping folders in memory. lookupDelay widens the find-then-create window.
type memoryStore struct {
	mu          sync.Mutex
	folders     map[string]string
	uploads     []upload
	creates     int
	finds       int
	lookupDelay time.Duration
	findErr     error
	createErr   error
	uploadErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{folders: make(map[string]string)}
}

func (m *memoryStore) FindFolder(ctx context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	m.finds++
	id, ok := m.folders[name]
	err := m.findErr
	m.mu.Unlock()

	if m.lookupDelay > 0 {
		time.Sleep(m.lookupDelay)
	}
	if err != nil {
		return "", false, err
	}
	return id, ok, nil
}

func (m *memoryStore) CreateFolder(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.creates++
	id := fmt.Sprintf("folder-%d", m.creates)
	m.folders[name] = id
	return id, nil
}

func (m *memoryStore) UploadReport(ctx context.Context, folderID, name string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	m.uploads = append(m.uploads, upload{folderID: folderID, name: name, content: string(data)})
	return "https://docs.example.com/" + folderID + "/" + name, nil
}

func (m *memoryStore) snapshot() (creates, finds int, uploads []upload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.finds, append([]upload(nil), m.uploads...)
}
