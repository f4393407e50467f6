package user_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"backend/internal/logger"
	"backend/internal/user"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Init("error", "console", "stderr")
	os.Exit(m.Run())
}

func setupUserTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:user_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&user.User{}, &user.Membership{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	svc := user.NewService(setupUserTestDB(t))
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated user id")
	}
	if u.PasswordHash == "s3cret-pass" {
		t.Fatalf("password stored in plaintext")
	}

	got, err := svc.Authenticate(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, got.ID)
	}
	if got.LastLoginAt == nil {
		t.Fatalf("expected last login timestamp")
	}
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	svc := user.NewService(setupUserTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "dup@example.com", "pass-one"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err := svc.Register(ctx, "bob", "dup@example.com", "pass-two")
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestService_AuthenticateWrongPassword(t *testing.T) {
	svc := user.NewService(setupUserTestDB(t))
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "correct"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// 未注册邮箱同样返回凭据错误，不泄露用户是否存在
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "whatever"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_GetByIDNotFound(t *testing.T) {
	svc := user.NewService(setupUserTestDB(t))

	_, err := svc.GetByID(context.Background(), "missing-id")
	if !errors.Is(err, user.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestService_MembershipLifecycle(t *testing.T) {
	svc := user.NewService(setupUserTestDB(t))
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "pass")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := svc.AddMembership(ctx, u.ID, user.RelationCreated, user.TargetDataset, "ds-1"); err != nil {
		t.Fatalf("AddMembership failed: %v", err)
	}
	if err := svc.AddMembership(ctx, u.ID, user.RelationBookmarked, user.TargetDataset, "ds-2"); err != nil {
		t.Fatalf("AddMembership failed: %v", err)
	}
	if err := svc.AddMembership(ctx, u.ID, user.RelationBookmarked, user.TargetRag, "rag-1"); err != nil {
		t.Fatalf("AddMembership failed: %v", err)
	}
	// 重复收藏是幂等的
	if err := svc.AddMembership(ctx, u.ID, user.RelationBookmarked, user.TargetDataset, "ds-2"); err != nil {
		t.Fatalf("duplicate AddMembership failed: %v", err)
	}

	lists, err := svc.ListMemberships(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListMemberships failed: %v", err)
	}
	if len(lists.CreatedDatasets) != 1 || lists.CreatedDatasets[0] != "ds-1" {
		t.Fatalf("unexpected created datasets: %v", lists.CreatedDatasets)
	}
	if len(lists.BookmarkedDatasets) != 1 || lists.BookmarkedDatasets[0] != "ds-2" {
		t.Fatalf("unexpected bookmarked datasets: %v", lists.BookmarkedDatasets)
	}
	if len(lists.BookmarkedRags) != 1 || lists.BookmarkedRags[0] != "rag-1" {
		t.Fatalf("unexpected bookmarked rags: %v", lists.BookmarkedRags)
	}

	if err := svc.RemoveMembership(ctx, u.ID, user.RelationBookmarked, user.TargetDataset, "ds-2"); err != nil {
		t.Fatalf("RemoveMembership failed: %v", err)
	}
	// 再删一次是 no-op
	if err := svc.RemoveMembership(ctx, u.ID, user.RelationBookmarked, user.TargetDataset, "ds-2"); err != nil {
		t.Fatalf("second RemoveMembership failed: %v", err)
	}

	marks, err := svc.ListBookmarks(ctx, u.ID, user.TargetDataset)
	if err != nil {
		t.Fatalf("ListBookmarks failed: %v", err)
	}
	if len(marks) != 0 {
		t.Fatalf("expected no dataset bookmarks, got %v", marks)
	}
}
