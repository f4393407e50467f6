package dataset_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"backend/internal/dataset"
	"backend/internal/logger"
	"backend/internal/user"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Init("error", "console", "stderr")
	os.Exit(m.Run())
}

func setupDatasetTest(t *testing.T) (*dataset.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:dataset_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&dataset.Dataset{}, &user.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := dataset.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return dataset.NewService(db, store), db
}

func seedUser(t *testing.T, db *gorm.DB, id, username string) {
	t.Helper()
	u := &user.User{ID: id, Username: username, Email: username + "@example.com", PasswordHash: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestService_CreateAndGet(t *testing.T) {
	svc, db := setupDatasetTest(t)
	seedUser(t, db, "u-1", "alice")
	ctx := context.Background()

	d, err := svc.Create(ctx, dataset.CreateInput{
		Name:        "notes",
		Description: "meeting notes",
		MadeByUser:  "u-1",
		FileType:    "txt",
		Content:     strings.NewReader("hello world"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if d.SizeBytes != int64(len("hello world")) {
		t.Fatalf("unexpected size: %d", d.SizeBytes)
	}

	// 文件应当以 {id}.{file_type} 落盘
	rc, err := svc.OpenContent(d)
	if err != nil {
		t.Fatalf("OpenContent failed: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if string(content) != "hello world" {
		t.Fatalf("unexpected content: %q", content)
	}

	view, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if view.Username != "alice" {
		t.Fatalf("expected uploader username, got %q", view.Username)
	}
	if view.FileType != "txt" {
		t.Fatalf("unexpected file type: %s", view.FileType)
	}
}

func TestService_CreateRejectsUnsupportedType(t *testing.T) {
	svc, _ := setupDatasetTest(t)

	_, err := svc.Create(context.Background(), dataset.CreateInput{
		Name:       "doc",
		MadeByUser: "u-1",
		FileType:   "docx",
		Content:    strings.NewReader("x"),
	})
	if !errors.Is(err, dataset.ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestService_GetNotFound(t *testing.T) {
	svc, _ := setupDatasetTest(t)

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, dataset.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
	if _, err := svc.GetRecord(context.Background(), "missing"); !errors.Is(err, dataset.ErrDatasetNotFound) {
		t.Fatalf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestService_ListNewestFirst(t *testing.T) {
	svc, db := setupDatasetTest(t)
	seedUser(t, db, "u-1", "alice")
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		if _, err := svc.Create(ctx, dataset.CreateInput{
			Name:       name,
			MadeByUser: "u-1",
			FileType:   "txt",
			Content:    strings.NewReader(name),
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	views, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(views))
	}
	if views[0].Name != "second" {
		t.Fatalf("expected newest first, got %s", views[0].Name)
	}
}

func TestFileStore_SaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := dataset.NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	n, err := store.Save("a.txt", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != int64(len("content")) {
		t.Fatalf("unexpected byte count: %d", n)
	}

	// 目录里不应残留临时文件
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.txt" {
		t.Fatalf("unexpected dir entries: %v", entries)
	}
}

func TestFileStore_RemoveMissingIsNoop(t *testing.T) {
	store, err := dataset.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.Remove("never-existed.txt"); err != nil {
		t.Fatalf("Remove of missing file should be a no-op, got %v", err)
	}
}
