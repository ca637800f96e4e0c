package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	authadapter "github.com/careworks-oss/regulation-core/internal/adapters/driven/auth"
	"github.com/careworks-oss/regulation-core/internal/adapters/driven/memory"
	"github.com/careworks-oss/regulation-core/internal/chunker"
	"github.com/careworks-oss/regulation-core/internal/classifier"
	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven/mocks"
	"github.com/careworks-oss/regulation-core/internal/core/services"
	"github.com/careworks-oss/regulation-core/internal/runtime"
)

type testEnv struct {
	server     *Server
	store      *memory.Store
	llm        *mocks.MockLLMService
	adminToken string
	staffToken string
}

// failingPinger simulates an unreachable storage backend
type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestEnv(t *testing.T, taskQueue driven.TaskQueue) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	lock := memory.NewLock()

	embedding := mocks.NewMockEmbeddingService()
	llm := mocks.NewMockLLMService()
	runtimeServices := runtime.NewServices(domain.NewRuntimeConfig("memory"))
	runtimeServices.SetEmbeddingService(embedding)
	runtimeServices.SetLLMService(llm)

	adapter := authadapter.NewAdapterWithCost("test-secret", bcrypt.MinCost)
	passwordHash, err := adapter.HashPassword("admin-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	authService := services.NewAuthService(adapter, services.ServiceAccount{
		Email:        "admin@example.org",
		PasswordHash: passwordHash,
		Role:         domain.RoleAdmin,
	}, time.Hour)

	ingestService := services.NewIngestService(services.IngestServiceConfig{
		DocumentStore: store,
		ChunkStore:    store,
		Lock:          lock,
		Chunker:       chunker.New(chunker.Config{MinChunkSize: 5, MaxChunkSize: 500}),
		Classifier:    classifier.NewDefault(),
		Services:      runtimeServices,
		Logger:        logger,
	})

	retrievalService := services.NewRetrievalService(store, runtimeServices)
	answerService := services.NewAnswerService(runtimeServices, logger)
	askService := services.NewAskService(retrievalService, answerService,
		domain.RetrieveOptions{K: 3, MinSimilarity: 0.1})

	server := NewServer(DefaultConfig(), logger,
		authService, ingestService, askService, store, taskQueue, nil)

	// A token for a non-admin identity, signed with the same secret
	now := time.Now()
	staffToken, err := adapter.GenerateToken(&domain.TokenClaims{
		Subject:   "staff@example.org",
		Email:     "staff@example.org",
		Role:      domain.RoleStaff,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	env := &testEnv{
		server:     server,
		store:      store,
		llm:        llm,
		staffToken: staffToken,
	}
	env.adminToken = env.login(t, "admin@example.org", "admin-password")
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token
}

func (e *testEnv) ingestRegulation(t *testing.T, id string) {
	t.Helper()

	rec := e.do(t, "POST", "/api/v1/documents", e.adminToken, map[string]interface{}{
		"id":            id,
		"title":         "Equipment Regulation",
		"source_format": "structured",
		"content": "## Rentals\nWheelchair rentals require a refundable deposit.\n\n" +
			"## Repairs\nThe repair subsidy covers up to eighty percent of costs.\n",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	if rec := env.do(t, "GET", "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
	if rec := env.do(t, "GET", "/ready", "", nil); rec.Code != http.StatusOK {
		t.Errorf("/ready status = %d", rec.Code)
	}

	rec := env.do(t, "GET", "/version", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("/version status = %d", rec.Code)
	}
	var version map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &version)
	if version["version"] != "dev" {
		t.Errorf("version = %q, want dev", version["version"])
	}
}

func TestReadyStorageDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.server.db = failingPinger{}

	if rec := env.do(t, "GET", "/ready", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready status = %d, want 503", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@example.org",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", rec.Code)
	}
}

func TestAskRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "POST", "/api/v1/ask", "", askRequest{Question: "anything"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated ask status = %d, want 401", rec.Code)
	}

	rec = env.do(t, "POST", "/api/v1/ask", "garbage-token", askRequest{Question: "anything"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token ask status = %d, want 401", rec.Code)
	}
}

func TestAskGrounded(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingestRegulation(t, "equipment-reg")
	env.llm.SetResponse("The repair subsidy covers up to eighty percent.")

	rec := env.do(t, "POST", "/api/v1/ask", env.staffToken,
		askRequest{Question: "How much of the repair costs does the repair subsidy cover?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Grounded {
		t.Error("Grounded = false, want true")
	}
	if resp.Answer != "The repair subsidy covers up to eighty percent." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.GroundedChunks) == 0 {
		t.Error("GroundedChunks is empty")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "POST", "/api/v1/ask", env.staffToken, askRequest{Question: "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ask status = %d, want 400", rec.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingestRegulation(t, "equipment-reg")

	rec := env.do(t, "GET", "/api/v1/documents", env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var docs []domain.Document
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "equipment-reg" {
		t.Fatalf("documents = %v", docs)
	}

	rec = env.do(t, "GET", "/api/v1/documents/equipment-reg", env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/v1/documents/equipment-reg/chunks", env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chunks status = %d", rec.Code)
	}
	var chunks []domain.Chunk
	if err := json.Unmarshal(rec.Body.Bytes(), &chunks); err != nil {
		t.Fatalf("decode chunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("len(chunks) = %d, want 2", len(chunks))
	}

	rec = env.do(t, "DELETE", "/api/v1/documents/equipment-reg", env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/v1/documents/equipment-reg", env.staffToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestDocumentMutationsRequireAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "POST", "/api/v1/documents", env.staffToken, map[string]string{
		"title":   "Regulation",
		"content": "text",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff ingest status = %d, want 403", rec.Code)
	}

	rec = env.do(t, "DELETE", "/api/v1/documents/any", env.staffToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("staff delete status = %d, want 403", rec.Code)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "GET", "/api/v1/documents/missing", env.staffToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAsyncIngestAccepted(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	env := newTestEnv(t, queue)

	rec := env.do(t, "POST", "/api/v1/documents", env.adminToken, map[string]interface{}{
		"id":      "async-reg",
		"title":   "Async Regulation",
		"content": "Some regulation text for later processing.",
		"async":   true,
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("async ingest status = %d, body %s", rec.Code, rec.Body.String())
	}

	var accepted taskAcceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.TaskID == "" || accepted.DocumentID != "async-reg" {
		t.Errorf("accepted = %+v", accepted)
	}
	if accepted.Status != string(domain.TaskStatusPending) {
		t.Errorf("status = %q, want pending", accepted.Status)
	}

	rec = env.do(t, "GET", "/api/v1/tasks/"+accepted.TaskID, env.staffToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get task status = %d", rec.Code)
	}
	var task domain.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if task.Type != domain.TaskTypeIngestDocument {
		t.Errorf("task type = %q", task.Type)
	}

	rec = env.do(t, "GET", "/api/v1/tasks/stats", env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("stats status = %d", rec.Code)
	}
}

func TestAsyncIngestDisabled(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, "POST", "/api/v1/documents", env.adminToken, map[string]interface{}{
		"title":   "Regulation",
		"content": "text",
		"async":   true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("async without queue status = %d, want 400", rec.Code)
	}

	rec = env.do(t, "GET", "/api/v1/tasks/some-id", env.staffToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get task without queue status = %d, want 404", rec.Code)
	}
}

func TestUploadMarkdownDocument(t *testing.T) {
	env := newTestEnv(t, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "welfare-policy.md")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("## Consultation\nStaff provide counsel sessions on request.\n"))
	_ = writer.WriteField("id", "welfare-policy")
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/documents/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.adminToken)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	doc, err := env.store.Get(context.Background(), "welfare-policy")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Title != "welfare-policy" {
		t.Errorf("title = %q, want filename without extension", doc.Title)
	}
	if doc.SourceFormat != domain.SourceFormatStructured {
		t.Errorf("source format = %q, want structured for markdown", doc.SourceFormat)
	}
}

func TestReembedViaQueue(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	env := newTestEnv(t, queue)
	env.ingestRegulation(t, "equipment-reg")

	rec := env.do(t, "POST", "/api/v1/documents/equipment-reg/reembed", env.adminToken, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("reembed status = %d, body %s", rec.Code, rec.Body.String())
	}

	var accepted taskAcceptedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if accepted.DocumentID != "equipment-reg" {
		t.Errorf("document ID = %q", accepted.DocumentID)
	}
}

func TestReembedSync(t *testing.T) {
	env := newTestEnv(t, nil)
	env.ingestRegulation(t, "equipment-reg")

	rec := env.do(t, "POST", "/api/v1/documents/equipment-reg/reembed", env.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reembed status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "POST", "/api/v1/documents/missing/reembed", env.adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("reembed missing status = %d, want 404", rec.Code)
	}
}
