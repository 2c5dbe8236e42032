package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/godilite/service-audit/internal/service"
)

// Identity headers set by the fronting auth proxy.
const (
	HeaderUserID       = "X-User-ID"
	HeaderUserRole     = "X-User-Role"
	HeaderDepartmentID = "X-Department-ID"
	HeaderRequestID    = "X-Request-ID"
)

// maxBodyBytes leaves room for base64 evidence screenshots on every criterion.
const maxBodyBytes = 10 << 20

var (
	errUnauthenticated = errors.New("não autenticado")
	errBodyTooLarge    = errors.New("corpo da requisição excede o limite de 10 MiB")
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ok writes {"success": true, key: v}.
func ok(w http.ResponseWriter, key string, v any) {
	body := map[string]any{"success": true}
	if key != "" {
		body[key] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError maps service errors onto status codes. Storage details never reach the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "erro interno"
	switch {
	case errors.Is(err, errUnauthenticated):
		status, msg = http.StatusUnauthorized, "Não autenticado"
	case errors.Is(err, errBodyTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(HeaderRequestID)),
			zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func actorFromRequest(r *http.Request) (service.Actor, error) {
	userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || userID <= 0 {
		return service.Actor{}, errUnauthenticated
	}
	deptID, err := strconv.ParseInt(r.Header.Get(HeaderDepartmentID), 10, 64)
	if err != nil || deptID <= 0 {
		return service.Actor{}, errUnauthenticated
	}
	role := r.Header.Get(HeaderUserRole)
	if role == "" {
		return service.Actor{}, errUnauthenticated
	}
	return service.Actor{UserID: userID, Role: role, DepartmentID: deptID}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		if errors.Is(err, service.ErrInvalidInput) {
			return err
		}
		return invalidRequest("JSON inválido")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidRequest("id inválido")
	}
	return id, nil
}

type requestError string

func (e requestError) Error() string        { return string(e) }
func (e requestError) Is(target error) bool { return target == service.ErrInvalidInput }

func invalidRequest(msg string) error { return requestError(msg) }
