package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server exposes the audit service as the JSON API used by the audit form.
type Server struct {
	audits  AuditAPI
	logger  *zap.Logger
	origins []string
}

// NewServer creates the HTTP API. An empty origins list disables cross-origin access.
func NewServer(audits AuditAPI, logger *zap.Logger, origins []string) *Server {
	if audits == nil {
		panic("nil AuditAPI provided to NewServer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		audits:  audits,
		logger:  logger.Named("http"),
		origins: origins,
	}
}

// Router returns the bare route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/auditoria").Subrouter()
	api.HandleFunc("/create/", s.createAudit).Methods(http.MethodPost)
	api.HandleFunc("/list/", s.listAudits).Methods(http.MethodGet)
	api.HandleFunc("/ranking/", s.ranking).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/", s.dashboard).Methods(http.MethodGet)
	api.HandleFunc("/config/", s.getConfiguration).Methods(http.MethodGet)
	api.HandleFunc("/config/update/", s.updateConfiguration).Methods(http.MethodPost)
	api.HandleFunc("/analistas/", s.listAnalysts).Methods(http.MethodGet)
	api.HandleFunc("/score/", s.scorePreview).Methods(http.MethodPost)
	api.HandleFunc("/analista/{id:[0-9]+}/", s.analystStats).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/", s.getAudit).Methods(http.MethodGet)
	api.HandleFunc("/{id:[0-9]+}/update/", s.updateAudit).Methods(http.MethodPost)
	api.HandleFunc("/{id:[0-9]+}/delete/", s.deleteAudit).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "rota não encontrada"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "método não permitido"})
	})
	return r
}

// Handler returns the routes wrapped in CORS, request id, access log and panic recovery.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Router()
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger)),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, s.accessLog)
	h = requestID(h)
	if len(s.origins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.origins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", HeaderUserID, HeaderUserRole, HeaderDepartmentID, HeaderRequestID}),
			handlers.ExposedHeaders([]string{HeaderRequestID}),
		)(h)
	}
	return h
}

func (s *Server) accessLog(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Info("request",
		zap.String("method", p.Request.Method),
		zap.String("path", p.URL.Path),
		zap.Int("status", p.StatusCode),
		zap.Int("size", p.Size),
		zap.Duration("duration", time.Since(p.TimeStamp)),
		zap.String("request_id", p.Request.Header.Get(HeaderRequestID)),
	)
}

// requestID propagates the caller's request id or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			r.Header.Set(HeaderRequestID, id)
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
