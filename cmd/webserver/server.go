package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"genfix"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	sessionName = "genfix-session"
	saveTimeout = 30 * time.Second
)

// Server serves the cycle browser and the form that starts new cycles
type Server struct {
	db        *genfix.DB
	gateway   genfix.Gateway
	settings  *genfix.Settings
	store     *sessions.CookieStore
	templates map[string]*template.Template
	logger    *zap.Logger
	timeout   time.Duration
}

// NewServer parses the page templates and wires the handlers' dependencies
func NewServer(db *genfix.DB, gateway genfix.Gateway, settings *genfix.Settings, sessionKey []byte, logger *zap.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"short": func(s string) string {
			if r := []rune(s); len(r) > 80 {
				return string(r[:77]) + "..."
			}
			return s
		},
		"when": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"display": func(c *genfix.GenerationCycle) *genfix.Question {
			if c.FinalQuestion != nil {
				return c.FinalQuestion
			}
			return c.OriginalQuestion
		},
	}

	templates := make(map[string]*template.Template)
	for _, name := range []string{"home", "new_cycle", "cycle"} {
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		templates[name] = tmpl
	}

	store := sessions.NewCookieStore(sessionKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		db:        db,
		gateway:   gateway,
		settings:  settings,
		store:     store,
		templates: templates,
		logger:    logger,
		timeout:   10 * time.Minute,
	}, nil
}

// Routes returns the HTTP handler for every page, the JSON API and /metrics
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/cycles/new", s.handleNewCycle).Methods(http.MethodGet)
	r.HandleFunc("/cycles", s.handleCreateCycle).Methods(http.MethodPost)
	r.HandleFunc("/cycles/{id}", s.handleCycle).Methods(http.MethodGet)
	r.HandleFunc("/api/cycles/{id}", s.handleCycleJSON).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	records, err := s.db.ListCycles(r.Context(), 50)
	if err != nil {
		s.logger.Error("Failed to list cycles", zap.Error(err))
		http.Error(w, "Failed to list cycles", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "home", map[string]any{
		"Cycles": records,
	})
}

func (s *Server) handleNewCycle(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "new_cycle", map[string]any{
		"Courses":      genfix.Courses(),
		"Difficulties": []genfix.Difficulty{genfix.ReadingComprehension, genfix.Recall, genfix.Analyze, genfix.Evaluate},
		"Default":      genfix.Analyze,
	})
}

func (s *Server) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	course := strings.TrimSpace(r.FormValue("course"))
	article := strings.TrimSpace(r.FormValue("article"))
	if article == "" {
		s.flashRedirect(w, r, "Article is required", "/cycles/new")
		return
	}
	difficulty, err := genfix.ParseDifficulty(r.FormValue("difficulty"))
	if err != nil {
		s.flashRedirect(w, r, "Unknown difficulty", "/cycles/new")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	existing, err := s.db.QuestionTexts(ctx, course, s.settings.Cycle.AvoidHistory)
	if err != nil {
		s.logger.Error("Failed to load existing questions", zap.Error(err))
		http.Error(w, "Failed to load existing questions", http.StatusInternalServerError)
		return
	}

	opts := append([]genfix.CycleOption{genfix.WithLogger(s.logger)}, s.settings.CycleOptions()...)
	manager, err := genfix.NewCycleManager(genfix.CycleConfig{
		Course:            course,
		Article:           article,
		EKCodes:           splitCodes(r.FormValue("ek_codes")),
		LOCodes:           splitCodes(r.FormValue("lo_codes")),
		TargetDifficulty:  difficulty,
		ExistingQuestions: existing,
		LLM:               s.settings.LLM,
	}, s.gateway, opts...)
	if err != nil {
		s.flashRedirect(w, r, err.Error(), "/cycles/new")
		return
	}

	cycle, runErr := manager.RunCycle(ctx)

	// a cycle aborted by its deadline is still recorded
	saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancelSave()
	if err := s.db.SaveCycle(saveCtx, cycle, article); err != nil {
		s.logger.Error("Failed to save cycle", zap.String("cycle_id", cycle.ID), zap.Error(err))
		http.Error(w, "Failed to save cycle", http.StatusInternalServerError)
		return
	}

	switch {
	case runErr != nil:
		s.flashRedirect(w, r, "Cycle aborted: "+runErr.Error(), "/cycles/"+cycle.ID)
	case cycle.Status == genfix.StatusFailed:
		s.flashRedirect(w, r, "No fix could be applied to the failed checks", "/cycles/"+cycle.ID)
	case cycle.NeedsRevision():
		s.flashRedirect(w, r, "Question revised after failed checks", "/cycles/"+cycle.ID)
	default:
		s.flashRedirect(w, r, "Question passed every check", "/cycles/"+cycle.ID)
	}
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.render(w, r, "cycle", map[string]any{
		"Cycle": record,
	})
}

func (s *Server) handleCycleJSON(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		s.logger.Error("Failed to encode cycle", zap.Error(err))
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*genfix.CycleRecord, bool) {
	record, err := s.db.GetCycle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, genfix.ErrCycleNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		s.logger.Error("Failed to get cycle", zap.Error(err))
		http.Error(w, "Failed to get cycle", http.StatusInternalServerError)
		return nil, false
	}
	return record, true
}

// render executes a page inside base.html, consuming any pending flashes
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	session, _ := s.store.Get(r, sessionName)
	if flashes := session.Flashes(); len(flashes) > 0 {
		data["Flashes"] = flashes
		if err := session.Save(r, w); err != nil {
			s.logger.Warn("Failed to save session", zap.Error(err))
		}
	}

	if err := s.templates[name].ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Error("Template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, msg, to string) {
	session, _ := s.store.Get(r, sessionName)
	session.AddFlash(msg)
	if err := session.Save(r, w); err != nil {
		s.logger.Warn("Failed to save session", zap.Error(err))
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func splitCodes(s string) []string {
	var codes []string
	for _, c := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' }) {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
