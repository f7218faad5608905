package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/httpapi"
	"github.com/alexmorten/rconsole/internal/messages"
)

func withUIDVar(r *http.Request, uid string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"uid": uid})
}

func TestListServersHandler(t *testing.T) {
	repo := newFakeServerRepo()
	seeded := &domain.Server{UID: uuid.New(), Name: "survival"}
	require.NoError(t, repo.Create(context.Background(), seeded))

	req := httptest.NewRequest(http.MethodGet, "/api/servers", nil)
	w := httptest.NewRecorder()
	httpapi.NewListServersHandler(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Server
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "survival", got[0].Name)
}

func TestGetServerHandler_NotFound(t *testing.T) {
	repo := newFakeServerRepo()

	req := httptest.NewRequest(http.MethodGet, "/api/servers/"+uuid.NewString(), nil)
	req = withUIDVar(req, uuid.NewString())
	w := httptest.NewRecorder()
	httpapi.NewGetServerHandler(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetServerHandler_InvalidUID(t *testing.T) {
	repo := newFakeServerRepo()

	req := httptest.NewRequest(http.MethodGet, "/api/servers/not-a-uuid", nil)
	req = withUIDVar(req, "not-a-uuid")
	w := httptest.NewRecorder()
	httpapi.NewGetServerHandler(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateServerHandler_NeverLeaksPasswordBack(t *testing.T) {
	repo := newFakeServerRepo()

	body, _ := json.Marshal(map[string]any{
		"type":          string(messages.ServerTypeSource),
		"host":          "10.0.0.1",
		"port":          27015,
		"rcon_port":     27015,
		"rcon_password": "super-secret",
		"name":          "arena",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/servers", bytes.NewReader(body))
	w := httptest.NewRecorder()
	httpapi.NewCreateServerHandler(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "super-secret")

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "super-secret", all[0].RconPassword)
}

func TestUpdateServerHandler_NotFound(t *testing.T) {
	repo := newFakeServerRepo()

	body, _ := json.Marshal(map[string]any{"name": "renamed"})
	uid := uuid.NewString()
	req := httptest.NewRequest(http.MethodPut, "/api/servers/"+uid, bytes.NewReader(body))
	req = withUIDVar(req, uid)
	w := httptest.NewRecorder()
	httpapi.NewUpdateServerHandler(repo).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteServerHandler_RemovesServer(t *testing.T) {
	repo := newFakeServerRepo()
	seeded := &domain.Server{UID: uuid.New(), Name: "doomed"}
	require.NoError(t, repo.Create(context.Background(), seeded))

	req := httptest.NewRequest(http.MethodDelete, "/api/servers/"+seeded.UID.String(), nil)
	req = withUIDVar(req, seeded.UID.String())
	w := httptest.NewRecorder()
	httpapi.NewDeleteServerHandler(repo).ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	_, err := repo.GetByUID(context.Background(), seeded.UID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
