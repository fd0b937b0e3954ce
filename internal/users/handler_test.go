package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/da314jones/CapStone-Backend/internal/models"
	"github.com/da314jones/CapStone-Backend/pkg/utils"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	listErr error
}

func newFakeUserRepo(us ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{byEmail: make(map[string]*models.User)}
	for _, u := range us {
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	for _, u := range r.byEmail {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.byEmail[email], nil
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	r.byEmail[u.Email] = u
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]models.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.User
	for _, u := range r.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) DeleteByEmail(_ context.Context, email string) (bool, error) {
	if _, ok := r.byEmail[email]; !ok {
		return false, nil
	}
	delete(r.byEmail, email)
	return true, nil
}

func seededUser(t *testing.T, userID, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	return &models.User{UserID: userID, FirstName: "Ada", Email: email, Password: hash}
}

func newUserRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.DELETE("/users/:id", h.Delete)
	return r
}

func newTestHandler(repo Store) *Handler {
	return NewHandler(repo, NewJWTService("test-secret", 1), nil)
}

func TestRegisterThenLogin(t *testing.T) {
	repo := newFakeUserRepo()
	router := newUserRouter(newTestHandler(repo))

	body, _ := json.Marshal(RegisterRequest{
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Password:    "difference",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	created := repo.byEmail["ada@example.com"]
	require.NotNil(t, created)
	require.Equal(t, "Ada", created.FirstName)
	require.Equal(t, "Lovelace", created.LastName)

	body, _ = json.Marshal(LoginRequest{Email: "ada@example.com", Password: "difference"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"token"`)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo(seededUser(t, "u1", "ada@example.com", "difference"))
	router := newUserRouter(newTestHandler(repo))

	body, _ := json.Marshal(RegisterRequest{
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		Password:    "difference",
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo(seededUser(t, "u1", "ada@example.com", "difference"))
	router := newUserRouter(newTestHandler(repo))

	body, _ := json.Marshal(LoginRequest{Email: "ada@example.com", Password: "engine"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListUsers(t *testing.T) {
	repo := newFakeUserRepo(
		seededUser(t, "u1", "ada@example.com", "difference"),
		seededUser(t, "u2", "grace@example.com", "compiler"),
	)
	router := newUserRouter(newTestHandler(repo))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ada@example.com")
	require.Contains(t, w.Body.String(), "grace@example.com")
	require.NotContains(t, w.Body.String(), "password", "hashes never leave the API")
}

func TestListUsersRepoError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.listErr = errors.New("connection refused")
	router := newUserRouter(newTestHandler(repo))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetUserByID(t *testing.T) {
	repo := newFakeUserRepo(seededUser(t, "u1", "ada@example.com", "difference"))
	router := newUserRouter(newTestHandler(repo))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ada@example.com")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUserByEmail(t *testing.T) {
	repo := newFakeUserRepo(seededUser(t, "u1", "ada@example.com", "difference"))
	router := newUserRouter(newTestHandler(repo))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/ada@example.com", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, repo.byEmail)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/ada@example.com", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}
