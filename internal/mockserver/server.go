// Package mockserver is an in-memory stand-in for the Guidera backend. It
// speaks the same HTTP contract as the real service and answers generate
// requests with the demo scenarios: prompts mentioning "fail" are blocked,
// prompts mentioning "warn" get a warning, everything else passes.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTokenLifetime = 2 * time.Hour

type Server struct {
	mux      *http.ServeMux
	log      *zap.Logger
	now      func() time.Time
	lifetime time.Duration
	delay    time.Duration

	mu       sync.Mutex
	users    map[string]string
	tokens   map[string]int64
	policies map[string][]string
	stats    usage
}

type usage struct {
	Requests         int            `json:"total_requests"`
	ComplianceChecks int            `json:"compliance_checks"`
	Redactions       int            `json:"redactions"`
	PlagiarismChecks int            `json:"plagiarism_checks"`
	CostSaved        float64        `json:"total_cost_saved"`
	ModelUsage       map[string]int `json:"model_usage"`
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithTokenLifetime sets how long issued tokens stay valid. Zero makes
// login omit exp so clients fall back to their own default.
func WithTokenLifetime(d time.Duration) Option {
	return func(s *Server) {
		s.lifetime = d
	}
}

// WithDelay makes generate wait before answering, like the real model
// pipeline.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New builds a server that accepts the given email/password pairs.
func New(users map[string]string, opts ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		log:      zap.NewNop(),
		now:      time.Now,
		lifetime: DefaultTokenLifetime,
		users:    make(map[string]string, len(users)),
		tokens:   make(map[string]int64),
		policies: map[string][]string{"input": {}, "output": {}},
		stats:    usage{ModelUsage: map[string]int{}},
	}
	for email, password := range users {
		s.users[email] = password
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.withLogging(s.health))
	s.mux.HandleFunc("POST /users/login", s.withLogging(s.login))
	s.mux.HandleFunc("POST /generate", s.withLogging(s.withAuth(s.generate)))
	s.mux.HandleFunc("POST /suggestion", s.withLogging(s.withAuth(s.suggestion)))
	s.mux.HandleFunc("POST /users/add_policy", s.withLogging(s.withAuth(s.addPolicy)))
	s.mux.HandleFunc("POST /users/remove_policy", s.withLogging(s.withAuth(s.removePolicy)))
	s.mux.HandleFunc("GET /users/get_policies", s.withLogging(s.withAuth(s.getPolicies)))
	s.mux.HandleFunc("GET /users/analytics", s.withLogging(s.withAuth(s.analytics)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	s.tokens = make(map[string]int64)
	s.mu.Unlock()
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().Unix(),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	password, ok := s.users[req.Email]
	if !ok || password != req.Password {
		s.mu.Unlock()
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token := uuid.NewString()
	lifetime := s.lifetime
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	exp := s.now().Add(lifetime).Unix()
	s.tokens[token] = exp
	s.mu.Unlock()

	resp := map[string]any{"token": token}
	if s.lifetime > 0 {
		resp["exp"] = exp
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) suggestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	topic := strings.TrimSpace(req.Prompt)
	if topic == "" {
		topic = "your content"
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"suggestions": []string{
			"Here are three diverse, high-quality prompts based on your input:",
			"Rewrite " + topic + " for a general audience",
			"Summarise " + topic + " in three bullet points",
			"List the compliance risks in " + topic,
		},
	})
}

type policyRequest struct {
	PolicyType  string `json:"policy_type"`
	Description string `json:"description"`
}

func decodePolicy(w http.ResponseWriter, r *http.Request) (policyRequest, bool) {
	var req policyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if req.PolicyType != "input" && req.PolicyType != "output" {
		respondWithError(w, http.StatusUnprocessableEntity, "policy_type must be input or output")
		return req, false
	}
	if strings.TrimSpace(req.Description) == "" {
		respondWithError(w, http.StatusUnprocessableEntity, "description is required")
		return req, false
	}
	return req, true
}

func (s *Server) addPolicy(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePolicy(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	s.policies[req.PolicyType] = append(s.policies[req.PolicyType], req.Description)
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Policy added"})
}

func (s *Server) removePolicy(w http.ResponseWriter, r *http.Request) {
	req, ok := decodePolicy(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.policies[req.PolicyType]
	for i, desc := range list {
		if desc == req.Description {
			s.policies[req.PolicyType] = append(list[:i], list[i+1:]...)
			respondWithJSON(w, http.StatusOK, map[string]string{"message": "Policy removed"})
			return
		}
	}
	respondWithError(w, http.StatusNotFound, "Policy not found")
}

func (s *Server) getPolicies(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := map[string][]string{
		"input_policies":  append([]string{}, s.policies["input"]...),
		"output_policies": append([]string{}, s.policies["output"]...),
	}
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshot := s.stats
	snapshot.ModelUsage = make(map[string]int, len(s.stats.ModelUsage))
	for k, v := range s.stats.ModelUsage {
		snapshot.ModelUsage[k] = v
	}
	s.mu.Unlock()
	respondWithJSON(w, http.StatusOK, snapshot)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"detail": message})
}
