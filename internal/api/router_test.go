package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/rs/zerolog"

	"github.com/St1cky1/task-tracker/internal/config"
	"github.com/St1cky1/task-tracker/internal/entity"
	"github.com/St1cky1/task-tracker/internal/hub"
	"github.com/St1cky1/task-tracker/internal/infrastructure/auth"
	"github.com/St1cky1/task-tracker/internal/infrastructure/cache"
	"github.com/St1cky1/task-tracker/internal/infrastructure/client"
	"github.com/St1cky1/task-tracker/internal/infrastructure/mail"
	"github.com/St1cky1/task-tracker/internal/infrastructure/storage"
	"github.com/St1cky1/task-tracker/internal/repository/sqlite"
	"github.com/St1cky1/task-tracker/internal/usecase"
	"github.com/St1cky1/task-tracker/internal/worker"
)

type testServer struct {
	srv   *httptest.Server
	token string
	hub   *hub.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	dir := t.TempDir()

	store, err := sqlite.NewStore(filepath.Join(dir, "tasks.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	user, err := store.CreateUser(context.Background(), "owner@example.com", "Owner")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	files, err := storage.NewLocalStorage(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.New(logger, 16, time.Second)
	go h.Run(ctx)

	runner := worker.NewRunner(worker.DefaultRunnerConfig(), logger)
	if err := runner.Start(); err != nil {
		t.Fatalf("runner: %v", err)
	}
	t.Cleanup(func() { _ = runner.Stop(context.Background()) })

	tasks := usecase.NewTaskService(store, h, runner, mail.NewSMTPMailer(config.SMTPConfig{}, logger),
		client.NoopAuditPublisher{}, cache.NoopTaskCache{}, logger)

	jwt := auth.NewJWTManager("test-secret")
	token, err := jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	router := NewRouter(RouterDeps{
		Tasks:    tasks,
		Comments: usecase.NewCommentService(store, logger),
		Files:    usecase.NewFileService(store, files, logger),
		Hub:      h,
		Tokens:   jwt,
		Health:   store,
		Logger:   logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, token: token, hub: h}
}

func (s *testServer) request(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeTask(t *testing.T, resp *http.Response) entity.Task {
	t.Helper()
	var task entity.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}

func TestRouter_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.srv.URL + "/api/v1/tasks")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}

	resp, err = http.Get(s.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected healthz 200, got %d", resp.StatusCode)
	}
}

func TestRouter_TaskLifecycleIsBroadcast(t *testing.T) {
	s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws/listener"
	conn, _, _, err := ws.Dial(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("websocket was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	read := func() map[string]any {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return msg
	}

	resp := s.request(t, http.MethodPost, "/api/v1/tasks", "application/json", []byte(`{"title":"Ship","status":"In Progress"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	task := decodeTask(t, resp)
	if msg := read(); msg["type"] != "TASK_CREATED" {
		t.Errorf("Expected TASK_CREATED, got %v", msg)
	}

	path := "/api/v1/tasks/" + strconv.Itoa(task.ID)
	resp = s.request(t, http.MethodPatch, path, "application/json", []byte(`{"status":"done"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if updated := decodeTask(t, resp); !updated.Completed || updated.CompletedAt == nil {
		t.Errorf("Expected completed task, got %+v", updated)
	}
	msg := read()
	if msg["type"] != "TASK_UPDATED" {
		t.Fatalf("Expected TASK_UPDATED, got %v", msg)
	}
	if payload := msg["payload"].(map[string]any); payload["status"] != "done" || payload["completed"] != true {
		t.Errorf("unexpected payload %v", payload)
	}

	resp = s.request(t, http.MethodDelete, path, "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	msg = read()
	if msg["type"] != "TASK_DELETED" || msg["payload"].(map[string]any)["id"] != float64(task.ID) {
		t.Errorf("Expected TASK_DELETED for %d, got %v", task.ID, msg)
	}

	resp = s.request(t, http.MethodGet, path, "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestRouter_FileUploadAndDownload(t *testing.T) {
	s := newTestServer(t)

	resp := s.request(t, http.MethodPost, "/api/v1/tasks", "application/json", []byte(`{"title":"with file"}`))
	task := decodeTask(t, resp)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, _ := mw.CreatePart(header)
	_, _ = part.Write([]byte("file body"))
	_ = mw.Close()

	resp = s.request(t, http.MethodPost, "/api/v1/tasks/"+strconv.Itoa(task.ID)+"/files", mw.FormDataContentType(), body.Bytes())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var file entity.File
	_ = json.NewDecoder(resp.Body).Decode(&file)

	resp = s.request(t, http.MethodGet, "/api/v1/files/"+strconv.Itoa(file.ID), "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var got bytes.Buffer
	_, _ = got.ReadFrom(resp.Body)
	if got.String() != "file body" {
		t.Errorf("Expected file body, got %q", got.String())
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "notes.txt") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
}
