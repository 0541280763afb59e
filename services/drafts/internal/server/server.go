package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"prdkit/internal/apitoken"
	"prdkit/internal/ratelimit"
	"prdkit/internal/util"
	"prdkit/pkg/ai"
	"prdkit/pkg/drafts"
	"prdkit/pkg/prompts"
)

// DefaultMaxBodyBytes caps draft and generate request bodies.
const DefaultMaxBodyBytes = 10 << 20

// Generator is the subset of *ai.Service the server needs.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
	Provider() ai.Provider
	Model() string
}

// Config wires required dependencies for the HTTP server. Tokens and
// Limiter are optional and only guard /generate.
type Config struct {
	Drafts         *drafts.Service
	Generator      Generator
	Tokens         *apitoken.Manager
	Limiter        ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	MaxBodyBytes   int64
}

// Server exposes the draft storage and generation endpoints.
type Server struct {
	drafts    *drafts.Service
	generator Generator
	tokens    *apitoken.Manager
	limiter   ratelimit.Limiter
	trusted   *util.TrustedProxies
	maxBody   int64
	router    chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		drafts:    cfg.Drafts,
		generator: cfg.Generator,
		tokens:    cfg.Tokens,
		limiter:   cfg.Limiter,
		trusted:   cfg.TrustedProxies,
		maxBody:   cfg.MaxBodyBytes,
		router:    chi.NewRouter(),
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog("drafts", s.trusted,
			util.WithSecurityHeaders(util.WithCORS(s.router))))
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Post("/save", s.handleSave)
	r.Get("/list", s.handleList)
	r.Get("/load/{filename}", s.handleLoad)
	r.Delete("/delete/{filename}", s.handleDelete)
	r.Post("/update/{filename}", s.handleUpdate)

	r.Get("/templates", s.handleTemplates)
	r.Group(func(r chi.Router) {
		r.Use(s.tokens.Middleware)
		if s.limiter != nil {
			r.Use(func(next http.Handler) http.Handler {
				return ratelimit.Middleware(s.limiter, func(req *http.Request) string {
					return util.ClientIP(req, s.trusted)
				}, next)
			})
		}
		r.Post("/generate", s.handleGenerate)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	name, err := s.drafts.Save(r.Context(), body)
	if err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Filename: name})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.drafts.List(r.Context())
	if err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := s.drafts.Load(r.Context(), name)
	if err != nil {
		writeDraftError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.drafts.Delete(r.Context(), name); err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := s.drafts.Update(r.Context(), name, body); err != nil {
		writeDraftError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, prompts.Intents())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusInternalServerError, "generator not configured")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	prompt, system := req.Prompt, req.SystemPrompt
	if strings.TrimSpace(req.Intent) != "" {
		tpl, err := prompts.Build(req.Intent, req.Args)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		prompt, system = tpl.User, tpl.System
	}

	content, err := s.generator.Generate(r.Context(), prompt, system)
	if err != nil {
		status := generateStatus(err)
		if status < http.StatusInternalServerError {
			writeError(w, status, err.Error())
			return
		}
		util.LoggerFromContext(r.Context()).Error("generate failed",
			"provider", string(s.generator.Provider()), "status", status, "err", err)
		writeError(w, status, generateFailureMessage(status))
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Provider: string(s.generator.Provider()),
		Model:    s.generator.Model(),
		Content:  content,
	})
}

// generateFailureMessage is the client-facing text for 5xx generation
// failures; details stay in the server log.
func generateFailureMessage(status int) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "provider timed out"
	case http.StatusBadGateway:
		return "provider request failed"
	default:
		return "generation unavailable"
	}
}

// generateStatus maps generation failures onto HTTP statuses.
func generateStatus(err error) int {
	switch {
	case errors.Is(err, ai.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, ai.ErrMissingCredential):
		return http.StatusPreconditionFailed
	case errors.Is(err, ai.ErrUnsupportedProvider):
		return http.StatusInternalServerError
	case errors.Is(err, ai.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ai.ErrBackend), errors.Is(err, ai.ErrDecode):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusBadGateway
	}
}

// filenameParam returns the decoded {filename} segment. chi matches on the
// raw path when the request carried escapes, so %2F stays inside one segment
// and is rejected after decoding.
func filenameParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "filename")
	name := raw
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return "", drafts.ErrInvalidFilename
		}
		name = decoded
	}
	if err := drafts.ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "read request body failed")
		return nil, false
	}
	return body, true
}

func writeDraftError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, drafts.ErrInvalidJSON), errors.Is(err, drafts.ErrInvalidFilename):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, drafts.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		util.LoggerFromContext(r.Context()).Error("draft storage failed", "err", err)
		writeError(w, http.StatusInternalServerError, "draft storage failed")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type saveResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type generateRequest struct {
	Intent       string            `json:"intent"`
	Args         map[string]string `json:"args"`
	Prompt       string            `json:"prompt"`
	SystemPrompt string            `json:"systemPrompt"`
}

type generateResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
