package bookmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/dataset"
	"backend/internal/logger"
	"backend/internal/rag"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "console", "stderr"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fixture struct {
	router   *gin.Engine
	users    *user.Service
	datasets *dataset.Service
	rags     *rag.Service
	token    string
	userID   string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:bookmarks_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &user.Membership{}, &dataset.Dataset{}, &rag.RagConfig{}))

	users := user.NewService(db)

	store, err := dataset.NewFileStore(t.TempDir())
	require.NoError(t, err)
	datasets := dataset.NewService(db, store)

	rags := rag.NewService(db, 50)

	jwtService := auth.NewJWTService(config.AuthConfig{
		JWTSecret:          "test-secret-key-for-handler-tests",
		Issuer:             "raghub-test",
		AccessExpiryHours:  2,
		RefreshExpiryHours: 168,
	}, nil)

	u, err := users.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(t, err)
	pair, err := jwtService.GenerateTokenPair(u.ID, u.Username)
	require.NoError(t, err)

	handler := NewBookmarksHandler(users, datasets, rags)

	router := gin.New()
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(jwtService))
	{
		api.GET("/bookmarks", handler.List)
		api.POST("/bookmarks/datasets/:id", handler.AddDataset)
		api.DELETE("/bookmarks/datasets/:id", handler.RemoveDataset)
		api.POST("/bookmarks/rags/:id", handler.AddRag)
		api.DELETE("/bookmarks/rags/:id", handler.RemoveRag)
	}

	return &fixture{
		router:   router,
		users:    users,
		datasets: datasets,
		rags:     rags,
		token:    pair.AccessToken,
		userID:   u.ID,
	}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestBookmarksHandler_DatasetLifecycle(t *testing.T) {
	f := setupFixture(t)

	d, err := f.datasets.Create(context.Background(), dataset.CreateInput{
		Name:       "城市介绍",
		MadeByUser: f.userID,
		FileType:   dataset.FileTypeTXT,
		Content:    strings.NewReader("上海是一座城市。"),
	})
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/api/bookmarks/datasets/"+d.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp common.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	// 重复收藏幂等
	w = f.do(http.MethodPost, "/api/bookmarks/datasets/"+d.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/bookmarks")
	require.Equal(t, http.StatusOK, w.Code)

	var lists user.MembershipLists
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lists))
	assert.Equal(t, []string{d.ID}, lists.BookmarkedDatasets)
	assert.Empty(t, lists.BookmarkedRags)

	w = f.do(http.MethodDelete, "/api/bookmarks/datasets/"+d.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	// 再次取消也返回成功
	w = f.do(http.MethodDelete, "/api/bookmarks/datasets/"+d.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/bookmarks")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lists))
	assert.Empty(t, lists.BookmarkedDatasets)
}

func TestBookmarksHandler_AddMissingTargetReturns404(t *testing.T) {
	f := setupFixture(t)

	w := f.do(http.MethodPost, "/api/bookmarks/datasets/no-such-dataset")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "not_found", resp.Code)

	w = f.do(http.MethodPost, "/api/bookmarks/rags/no-such-rag")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookmarksHandler_RagBookmark(t *testing.T) {
	f := setupFixture(t)

	cfg, err := f.rags.Create(context.Background(), rag.CreateInput{
		Name:       "城市问答",
		MadeByUser: f.userID,
		DatasetIDs: []string{},
		LLMModel:   "gpt-4o-mini",
		ChunkSize:  500,
	})
	require.NoError(t, err)

	w := f.do(http.MethodPost, "/api/bookmarks/rags/"+cfg.ID)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/bookmarks")
	require.Equal(t, http.StatusOK, w.Code)

	var lists user.MembershipLists
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &lists))
	assert.Equal(t, []string{cfg.ID}, lists.BookmarkedRags)
}

func TestBookmarksHandler_RequiresAuth(t *testing.T) {
	f := setupFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
