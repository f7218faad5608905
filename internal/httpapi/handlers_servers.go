package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/alexmorten/rconsole/internal/domain"
	"github.com/alexmorten/rconsole/internal/messages"
)

// serverRequest is the JSON body accepted by the server CRUD endpoints. It
// mirrors domain.Server but, unlike that type, serializes RconPassword —
// domain.Server tags it json:"-" so it never leaks back out through a GET.
type serverRequest struct {
	Type         messages.ServerType `json:"type"`
	Host         string              `json:"host"`
	Port         int                 `json:"port"`
	RconPort     int                 `json:"rcon_port"`
	RconPassword string              `json:"rcon_password"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
}

func (req serverRequest) toDomain(uid uuid.UUID) *domain.Server {
	return &domain.Server{
		UID:          uid,
		Type:         req.Type,
		Host:         req.Host,
		Port:         req.Port,
		RconPort:     req.RconPort,
		RconPassword: req.RconPassword,
		Name:         req.Name,
		Description:  req.Description,
	}
}

// NewListServersHandler returns every registered server.
func NewListServersHandler(repo domain.ServerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		servers, err := repo.GetAll(r.Context())
		if err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list servers")
			return
		}
		JSON(w, http.StatusOK, servers)
	})
}

// NewGetServerHandler returns a single server by uid.
func NewGetServerHandler(repo domain.ServerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := parseUIDParam(w, r)
		if !ok {
			return
		}
		server, err := repo.GetByUID(r.Context(), uid)
		if err != nil {
			writeRepositoryError(w, err, "server")
			return
		}
		JSON(w, http.StatusOK, server)
	})
}

// NewCreateServerHandler registers a new server.
func NewCreateServerHandler(repo domain.ServerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req serverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}

		server := req.toDomain(uuid.Nil)
		if err := repo.Create(r.Context(), server); err != nil {
			Error(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to create server")
			return
		}
		JSON(w, http.StatusCreated, server)
	})
}

// NewUpdateServerHandler overwrites a server's mutable fields.
func NewUpdateServerHandler(repo domain.ServerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := parseUIDParam(w, r)
		if !ok {
			return
		}

		var req serverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
			return
		}

		server := req.toDomain(uid)
		if err := repo.Update(r.Context(), server); err != nil {
			writeRepositoryError(w, err, "server")
			return
		}
		JSON(w, http.StatusOK, server)
	})
}

// NewDeleteServerHandler removes a server.
func NewDeleteServerHandler(repo domain.ServerRepository) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := parseUIDParam(w, r)
		if !ok {
			return
		}
		if err := repo.Delete(r.Context(), uid); err != nil {
			writeRepositoryError(w, err, "server")
			return
		}
		JSON(w, http.StatusNoContent, nil)
	})
}

func parseUIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	uid, err := uuid.Parse(mux.Vars(r)["uid"])
	if err != nil {
		Error(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid server uid")
		return uuid.Nil, false
	}
	return uid, true
}

func writeRepositoryError(w http.ResponseWriter, err error, resource string) {
	if errors.Is(err, domain.ErrNotFound) {
		Error(w, http.StatusNotFound, ErrCodeNotFound, resource+" not found")
		return
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "unexpected "+resource+" repository error")
}
