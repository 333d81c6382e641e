// Package server exposes the terminology engine over HTTP as a thin JSON
// API. Routing follows the teacher's server/concepts.go and
// server/search.go (the same mux.Vars/result{} handler shape), retargeted
// at the new terminology.Svc and dropping every medicine/dm+d-specific
// route (spec.md Non-goals exclude dose-and-medicine parsing). The
// teacher's second surface - a gRPC service plus grpc-gateway HTTP proxy,
// wired in server/rpc.go via github.com/soheilhy/cmux port-sniffing - isn't
// rebuilt here: it depends on protoc-generated service stubs
// (snomed.SnomedCTServer/SearchServer) compiled from a .proto file that
// doesn't exist anywhere in this module or the retrieved pack, and hand
// authoring the generated code without a compiler run would mean
// fabricating it rather than grounding it on anything real. See
// DESIGN.md.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/terminology"
)

// Server wraps a terminology.Svc with an HTTP handler.
type Server struct {
	svc    *terminology.Svc
	router *mux.Router
	logger *zap.Logger
}

// New builds a Server routing requests to svc.
func New(svc *terminology.Svc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: svc, router: mux.NewRouter(), logger: logger}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/v1/concepts/{id}", s.handle(getConcept)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/concepts/{id}/descriptions", s.handle(getConceptDescriptions)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/concepts/{id}/extended", s.handle(getExtendedConcept)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/concepts/{id}/parents", s.handle(getParents)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/concepts/{id}/children", s.handle(getChildren)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/concepts/{id}/genericise", s.handle(genericise)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/refsets/{refset}/members/{id}", s.handle(crossmap)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/search", s.handle(search)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/ecl", s.handle(evalECL)).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/status", s.handle(status)).Methods(http.MethodGet)
}

// result is a handler's outcome: the value to encode as JSON, an error if
// the request failed and the HTTP status to send. Mirrors the teacher's own
// (svc, w, r) -> result{...} shape.
type result struct {
	Value  interface{}
	Err    error
	Status int
}

type handlerFunc func(svc *terminology.Svc, r *http.Request) result

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := fn(s.svc, r)
		if res.Err != nil {
			s.logger.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(res.Err))
			http.Error(w, res.Err.Error(), res.Status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Status)
		json.NewEncoder(w).Encode(res.Value)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Duration("elapsed", time.Since(start)))
	})
}

func acceptLanguageTags(r *http.Request) []language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return []language.Tag{language.BritishEnglish}
	}
	return tags
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v := mux.Vars(r)[name]
	return strconv.ParseInt(v, 10, 64)
}

func statusFor(err error) int {
	switch {
	case apperr.IsKind(err, apperr.KindUsage), apperr.IsKind(err, apperr.KindInput):
		return http.StatusBadRequest
	case apperr.IsKind(err, apperr.KindQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
