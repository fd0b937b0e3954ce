package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/da314jones/CapStone-Backend/pkg/storage"
)

type fakeStore struct {
	objects map[string]string // key -> content
	deleted []string
	listErr error
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []storage.ObjectInfo
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key})
		}
	}
	return out, nil
}

func (s *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	content, ok := s.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(content)), "video/mp4", nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func newRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/files", h.List)
	r.GET("/files/download/*key", h.Download)
	r.DELETE("/files/*key", h.Delete)
	return r
}

func TestListWithPrefix(t *testing.T) {
	store := &fakeStore{objects: map[string]string{
		"videos/a.mp4":     "aaa",
		"thumbnails/a.png": "ppp",
	}}
	r := newRouter(NewHandler(store, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files?prefix=videos/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "videos/a.mp4")
	require.NotContains(t, w.Body.String(), "thumbnails/a.png")
}

func TestDownloadStreamsObject(t *testing.T) {
	store := &fakeStore{objects: map[string]string{"videos/a.mp4": "mp4 bytes"}}
	r := newRouter(NewHandler(store, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/download/videos/a.mp4", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "mp4 bytes", w.Body.String())
	require.Equal(t, "video/mp4", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), `filename="a.mp4"`)
}

func TestDownloadMissingObject(t *testing.T) {
	r := newRouter(NewHandler(&fakeStore{objects: map[string]string{}}, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/download/videos/missing.mp4", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteObject(t *testing.T) {
	store := &fakeStore{objects: map[string]string{"videos/a.mp4": "x"}}
	r := newRouter(NewHandler(store, nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/files/videos/a.mp4", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"videos/a.mp4"}, store.deleted)
}
