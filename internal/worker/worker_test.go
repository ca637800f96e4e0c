package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/careworks-oss/regulation-core/internal/adapters/driven/memory"
	"github.com/careworks-oss/regulation-core/internal/chunker"
	"github.com/careworks-oss/regulation-core/internal/classifier"
	"github.com/careworks-oss/regulation-core/internal/core/domain"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driven/mocks"
	"github.com/careworks-oss/regulation-core/internal/core/ports/driving"
	"github.com/careworks-oss/regulation-core/internal/core/services"
	"github.com/careworks-oss/regulation-core/internal/runtime"
)

type workerFixture struct {
	queue  *mocks.MockTaskQueue
	store  *memory.Store
	worker *Worker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	runtimeServices := runtime.NewServices(domain.NewRuntimeConfig("memory"))
	runtimeServices.SetEmbeddingService(mocks.NewMockEmbeddingService())

	ingest := services.NewIngestService(services.IngestServiceConfig{
		DocumentStore: store,
		ChunkStore:    store,
		Lock:          memory.NewLock(),
		Chunker:       chunker.New(chunker.Config{MinChunkSize: 5, MaxChunkSize: 500}),
		Classifier:    classifier.NewDefault(),
		Services:      runtimeServices,
		Logger:        logger,
	})

	queue := mocks.NewMockTaskQueue()
	w := New(Config{
		TaskQueue:      queue,
		IngestService:  ingest,
		Logger:         logger,
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	return &workerFixture{queue: queue, store: store, worker: w}
}

// waitForTaskStatus polls until the task reaches the wanted status
func waitForTaskStatus(t *testing.T, queue *mocks.MockTaskQueue, taskID string, want domain.TaskStatus) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := queue.GetTask(context.Background(), taskID)
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}
		if task != nil && task.Status == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	task, _ := queue.GetTask(context.Background(), taskID)
	t.Fatalf("task %s never reached %s, last seen %+v", taskID, want, task)
}

func TestWorkerProcessesIngestTask(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := domain.NewIngestTask("equipment-reg", "Equipment Regulation",
		domain.SourceFormatStructured,
		"## Rentals\nRentals require a deposit.\n\n## Repairs\nRepairs are subsidised.\n")
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	waitForTaskStatus(t, f.queue, task.ID, domain.TaskStatusCompleted)

	doc, err := f.store.Get(ctx, "equipment-reg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Title != "Equipment Regulation" {
		t.Errorf("Title = %q", doc.Title)
	}
	chunks, _ := f.store.GetByDocument(ctx, "equipment-reg")
	if len(chunks) != 2 {
		t.Errorf("len(chunks) = %d, want 2", len(chunks))
	}
}

func TestWorkerProcessesReembedTask(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingest := f.worker.ingest
	if _, err := ingest.Ingest(ctx, driving.IngestRequest{
		ID:      "equipment-reg",
		Title:   "Equipment Regulation",
		Content: "Rentals require a deposit at the front desk.",
	}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	task := domain.NewReembedTask("equipment-reg")
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	waitForTaskStatus(t, f.queue, task.ID, domain.TaskStatusCompleted)

	doc, _ := f.store.Get(ctx, "equipment-reg")
	if doc.ActiveVersion != 2 {
		t.Errorf("ActiveVersion = %d, want 2 after reembed", doc.ActiveVersion)
	}
}

func TestWorkerFailsExhaustedTask(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Re-embedding a document that does not exist cannot succeed
	task := domain.NewReembedTask("missing-doc")
	task.MaxAttempts = 1
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer f.worker.Stop()

	waitForTaskStatus(t, f.queue, task.ID, domain.TaskStatusFailed)

	got, _ := f.queue.GetTask(ctx, task.ID)
	if got.Error == "" {
		t.Error("failed task has no error message")
	}
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Errorf("second Start() error = %v", err)
	}

	f.worker.Stop()
	f.worker.Stop()
}
