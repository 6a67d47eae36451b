package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/noah-isme/gema-exam-grader/internal/models"
	"github.com/noah-isme/gema-exam-grader/internal/service"
)

func TestFolderQuery(t *testing.T) {
	query := FolderQuery("root123", "ALU-01")
	require.Equal(t, "name = 'ALU-01' and mimeType = 'application/vnd.google-apps.folder' and 'root123' in parents and trashed = false", query)
}

func TestFolderQueryEscapesQuotes(t *testing.T) {
	query := FolderQuery("root", `O'Brien\2`)
	require.Contains(t, query, `name = 'O\'Brien\\2'`)
}

func TestNewRequiresRootFolder(t *testing.T) {
	_, err := New(context.Background(), Config{}, zerolog.Nop(), option.WithoutAuthentication())
	require.Error(t, err)
}

func TestNewWithoutCredentialsFile(t *testing.T) {
	store, err := New(context.Background(), Config{RootFolderID: "root"}, zerolog.Nop(), option.WithoutAuthentication())
	require.NoError(t, err)
	require.Equal(t, "root", store.root)
}

type driveFile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	MimeType    string   `json:"mimeType,omitempty"`
	Parents     []string `json:"parents,omitempty"`
	WebViewLink string   `json:"webViewLink,omitempty"`
}

type driveUpload struct {
	metadata    driveFile
	contentType string
	content     string
}

// fakeDrive serves the files.list, files.create and multipart upload endpoints.
type fakeDrive struct {
	mu         sync.Mutex
	folders    []driveFile
	lists      int
	queries    []string
	creates    int
	uploads    []driveUpload
	omitLink   bool
	failStatus int
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.failStatus != 0 && r.Method == http.MethodPost {
		w.WriteHeader(f.failStatus)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"The user does not have sufficient permissions for this file."}}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/files":
		f.lists++
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		// First page is empty but carries a token.
		if r.URL.Query().Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{"files": []driveFile{}, "nextPageToken": "page-2"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"files": f.folders})

	case r.Method == http.MethodPost && r.URL.Path == "/files":
		var file driveFile
		if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.creates++
		file.ID = fmt.Sprintf("folder-%d", f.creates)
		f.folders = append(f.folders, file)
		_ = json.NewEncoder(w).Encode(driveFile{ID: file.ID})

	case r.Method == http.MethodPost && r.URL.Path == "/upload/drive/v3/files":
		upload, err := readMultipartUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.uploads = append(f.uploads, upload)
		id := fmt.Sprintf("doc-%d", len(f.uploads))
		resp := driveFile{ID: id}
		if !f.omitLink {
			resp.WebViewLink = "https://docs.google.com/document/d/" + id + "/edit"
		}
		_ = json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

func readMultipartUpload(r *http.Request) (driveUpload, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return driveUpload{}, err
	}
	reader := multipart.NewReader(r.Body, params["boundary"])

	var upload driveUpload
	meta, err := reader.NextPart()
	if err != nil {
		return driveUpload{}, err
	}
	if err := json.NewDecoder(meta).Decode(&upload.metadata); err != nil {
		return driveUpload{}, err
	}

	media, err := reader.NextPart()
	if err != nil {
		return driveUpload{}, err
	}
	upload.contentType = media.Header.Get("Content-Type")
	content, err := io.ReadAll(media)
	if err != nil {
		return driveUpload{}, err
	}
	upload.content = string(content)
	return upload, nil
}

func (f *fakeDrive) snapshot() (lists, creates int, uploads []driveUpload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, f.creates, append([]driveUpload(nil), f.uploads...)
}

func newFakeDriveStore(t *testing.T, fake *fakeDrive) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(context.Background(), Config{RootFolderID: "root"}, zerolog.Nop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return store
}

func TestFindFolderFollowsPageToken(t *testing.T) {
	fake := &fakeDrive{folders: []driveFile{{ID: "f-9", Name: "ALU-01 "}, {ID: "f-1", Name: "ALU-01"}}}
	store := newFakeDriveStore(t, fake)

	folderID, found, err := store.FindFolder(context.Background(), "ALU-01")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "f-1", folderID)

	lists, _, _ := fake.snapshot()
	require.Equal(t, 2, lists)
	require.Equal(t, FolderQuery("root", "ALU-01"), fake.queries[0])

	_, found, err = store.FindFolder(context.Background(), "ALU-02")
	require.NoError(t, err)
	require.False(t, found)
}

func TestCreateFolderUnderRoot(t *testing.T) {
	fake := &fakeDrive{}
	store := newFakeDriveStore(t, fake)

	folderID, err := store.CreateFolder(context.Background(), "ALU-01")
	require.NoError(t, err)
	require.Equal(t, "folder-1", folderID)
	require.Equal(t, folderMimeType, fake.folders[0].MimeType)
	require.Equal(t, []string{"root"}, fake.folders[0].Parents)
}

func TestUploadReportFallsBackToDocumentURL(t *testing.T) {
	fake := &fakeDrive{omitLink: true}
	store := newFakeDriveStore(t, fake)

	reference, err := store.UploadReport(context.Background(), "folder-1", "report_x", strings.NewReader("<html></html>"))
	require.NoError(t, err)
	require.Equal(t, "https://docs.google.com/document/d/doc-1/view", reference)

	_, _, uploads := fake.snapshot()
	require.Len(t, uploads, 1)
	require.Equal(t, documentMimeType, uploads[0].metadata.MimeType)
	require.Equal(t, []string{"folder-1"}, uploads[0].metadata.Parents)
	require.Contains(t, uploads[0].contentType, "text/html")
	require.Equal(t, "<html></html>", uploads[0].content)
}

func TestPersistCreatesDriveFolderOnceAndReusesIt(t *testing.T) {
	fake := &fakeDrive{}
	store := newFakeDriveStore(t, fake)
	persistence := service.NewPersistenceService(store, nil, 5*time.Second, zerolog.Nop())

	at := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	report := models.Report{StudentID: "ALU-01", Body: "<!DOCTYPE html>\n<html>\n<body>\n<h1>ALU-01</h1>", GeneratedAt: at}

	first, err := persistence.Persist(context.Background(), "ALU-01", report)
	require.NoError(t, err)
	require.Equal(t, "folder-1", first.FolderID)
	require.Equal(t, "https://docs.google.com/document/d/doc-1/edit", first.Reference)

	report.GeneratedAt = at.Add(time.Minute)
	second, err := persistence.Persist(context.Background(), "ALU-01", report)
	require.NoError(t, err)
	require.Equal(t, "folder-1", second.FolderID)

	_, creates, uploads := fake.snapshot()
	require.Equal(t, 1, creates)
	require.Len(t, uploads, 2)
	require.Equal(t, "report_2024-05-17T09-01-00.000Z", uploads[1].metadata.Name)
	require.Equal(t, []string{"folder-1"}, uploads[1].metadata.Parents)
	require.Contains(t, uploads[0].content, `<p class="generated-at">Generated at 2024-05-17T09:00:00Z</p>`)
}

func TestPersistMapsDriveFailuresToPersistenceError(t *testing.T) {
	fake := &fakeDrive{failStatus: http.StatusForbidden}
	store := newFakeDriveStore(t, fake)
	persistence := service.NewPersistenceService(store, nil, 5*time.Second, zerolog.Nop())

	_, err := persistence.Persist(context.Background(), "ALU-01", models.Report{StudentID: "ALU-01", GeneratedAt: time.Now()})
	require.ErrorIs(t, err, service.ErrPersistence)
	require.Equal(t, "persistence failed", service.PublicMessage(err))
	require.NotContains(t, service.PublicMessage(err), "permissions")
}
