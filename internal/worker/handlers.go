package worker

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thebtf/dilse/internal/activity"
	"github.com/thebtf/dilse/internal/catalog"
	"github.com/thebtf/dilse/internal/generation"
	"github.com/thebtf/dilse/internal/worker/sse"
	"github.com/thebtf/dilse/pkg/models"
)

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", serveIndex)
	r.Get("/static/*", serveAssets)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleVersion)
	r.Get("/api/ready", s.handleReady)
	r.Get("/api/metrics", s.handleMetrics)

	r.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		r.Get("/api/events", s.handleEvents)

		r.Route("/api/auth", func(r chi.Router) {
			r.Get("/me", s.handleMe)
			r.Post("/signin", s.handleSignIn)
			r.Post("/signup", s.handleSignUp)
			r.Post("/federated", s.handleFederated)
			r.Post("/signout", s.handleSignOut)
		})

		r.Route("/api/practice", func(r chi.Router) {
			r.Get("/stats", s.handleStats)
			r.Get("/sessions", s.handleSessions)
			r.Get("/sessions/recent", s.handleRecentSessions)
			r.Post("/sessions", s.handleAddSession)
		})

		r.Route("/api/tools", func(r chi.Router) {
			r.Post("/breathing", s.handleBreathing)
			r.Post("/grounding", s.handleGrounding)
			r.Post("/meditation", s.handleMeditation)
			r.Post("/support", s.handleSupport)
		})

		r.Route("/api/mood", func(r chi.Router) {
			r.Get("/", s.handleListMood)
			r.Post("/", s.handleCheckIn)
			r.Delete("/{id}", s.handleDeleteMood)
		})
		r.Route("/api/journal", func(r chi.Router) {
			r.Get("/", s.handleListJournal)
			r.Post("/", s.handleSaveJournal)
			r.Delete("/{id}", s.handleDeleteJournal)
		})
		r.Route("/api/gratitude", func(r chi.Router) {
			r.Get("/", s.handleListGratitude)
			r.Post("/", s.handleSaveGratitude)
			r.Patch("/{id}", s.handleUpdateGratitude)
			r.Delete("/{id}", s.handleDeleteGratitude)
		})

		r.Get("/api/dashboard", s.handleDashboard)

		r.Get("/api/resources", s.handleResources)
		r.Get("/api/prompts/journal", s.handleJournalPrompts)
		r.Get("/api/prompts/gratitude", s.handleGratitudePrompts)
		r.Get("/api/meditations", s.handleMeditations)

		r.Post("/api/gemini", s.handleGemini)
	})
}

// handleHealth answers even before the service is ready.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeMessage(w, http.StatusServiceUnavailable, "service not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleEvents streams identity and practice changes. A new client first
// receives the current identity and practice snapshot.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.sseBroadcaster.HandleSSE(w, r, func(send func(string, any)) {
		send(sse.EventIdentityChanged, identityView(s.adapter.Current()))
		send(sse.EventPracticeChanged, s.engine.Snapshot())
	})
}

// Auth

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type federatedCredential struct {
	ProviderID string `json:"providerId"`
	IDToken    string `json:"idToken"`
}

func (s *Service) handleMe(w http.ResponseWriter, r *http.Request) {
	id := s.adapter.Current()
	if id == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Service) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	id, err := s.adapter.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Service) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	id, err := s.adapter.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, id)
}

func (s *Service) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req federatedCredential
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	id, err := s.adapter.SignInWithFederatedProvider(r.Context(), req.ProviderID, req.IDToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// handleSignOut always succeeds: the local identity is cleared before the
// provider is told, so a provider failure only adds a warning.
func (s *Service) handleSignOut(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"signedOut": true}
	if err := s.adapter.SignOut(r.Context()); err != nil {
		_, body["warning"] = classify(err)
	}
	writeJSON(w, http.StatusOK, body)
}

// Practice

type practiceStats struct {
	models.PracticeStats
	Error   string `json:"error,omitempty"`
	Loading bool   `json:"loading"`
}

type sessionRequest struct {
	Tool     models.ToolKind `json:"tool"`
	ToolName string          `json:"toolName"`
	Duration int             `json:"duration"`
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, practiceStats{
		PracticeStats: snap.Stats,
		Loading:       snap.Loading,
		Error:         snap.Error,
	})
}

func (s *Service) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.engine.Sessions()))
}

func (s *Service) handleRecentSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.engine.RecentSessions()))
}

func (s *Service) handleAddSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	receipt, err := s.engine.AddSession(r.Context(), req.Tool, req.ToolName, req.Duration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// Tools

type breathingRequest struct {
	ElapsedSeconds int `json:"elapsedSeconds"`
	Cycles         int `json:"cycles"`
}

type groundingRequest struct {
	Seconds        int `json:"seconds"`
	CompletedSteps int `json:"completedSteps"`
}

type meditationRequest struct {
	ID string `json:"id"`
}

func (s *Service) handleBreathing(w http.ResponseWriter, r *http.Request) {
	var req breathingRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	elapsed, err := activity.Seconds(req.ElapsedSeconds)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.activity.CompleteBreathing(r.Context(), activity.BreathingSession{
		Elapsed: elapsed,
		Cycles:  req.Cycles,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activity.Result[breathingRequest]{
		Entry:   req,
		Receipt: res.Receipt,
		Message: res.Message,
	})
}

func (s *Service) handleGrounding(w http.ResponseWriter, r *http.Request) {
	var req groundingRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.CompleteGrounding(r.Context(), req.Seconds, req.CompletedSteps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleMeditation(w http.ResponseWriter, r *http.Request) {
	var req meditationRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.CompleteMeditation(r.Context(), req.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleSupport(w http.ResponseWriter, r *http.Request) {
	var req activity.SupportRequest
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.RequestSupport(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// Entries

func (s *Service) handleListMood(w http.ResponseWriter, r *http.Request) {
	entries, err := s.activity.MoodEntries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var entry models.MoodEntry
	if err := decode(w, r, &entry); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.CheckIn(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Service) handleDeleteMood(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.activity.DeleteMood(r.Context(), chi.URLParam(r, "id")))
}

func (s *Service) handleListJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.activity.JournalEntries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleSaveJournal(w http.ResponseWriter, r *http.Request) {
	var entry models.JournalEntry
	if err := decode(w, r, &entry); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.SaveJournal(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Service) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.activity.DeleteJournal(r.Context(), chi.URLParam(r, "id")))
}

func (s *Service) handleListGratitude(w http.ResponseWriter, r *http.Request) {
	entries, err := s.activity.GratitudeEntries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Service) handleSaveGratitude(w http.ResponseWriter, r *http.Request) {
	var entry models.GratitudeEntry
	if err := decode(w, r, &entry); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	res, err := s.activity.SaveGratitude(r.Context(), entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Service) handleUpdateGratitude(w http.ResponseWriter, r *http.Request) {
	var patch models.GratitudePatch
	if err := decode(w, r, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadBody)
		return
	}
	if err := s.activity.UpdateGratitude(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": activity.GratitudeUpdated})
}

func (s *Service) handleDeleteGratitude(w http.ResponseWriter, r *http.Request) {
	s.deleted(w, r, s.activity.DeleteGratitude(r.Context(), chi.URLParam(r, "id")))
}

func (s *Service) deleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.activity.Dashboard(r.Context(), s.engine)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Catalog

// handleResources returns the support circle. ?type= narrows it to one
// kind of contact.
func (s *Service) handleResources(w http.ResponseWriter, r *http.Request) {
	if kind := r.URL.Query().Get("type"); kind != "" {
		contacts := s.catalog.Contacts(models.ContactKind(kind))
		tagged := make([]catalog.TaggedContact, 0, len(contacts))
		for _, c := range contacts {
			tagged = append(tagged, catalog.TaggedContact{Contact: c})
		}
		writeJSON(w, http.StatusOK, map[string]any{"contacts": tagged})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"support":      s.catalog.Support,
		"selfCareTips": s.catalog.SelfCareTips,
	})
}

func (s *Service) handleJournalPrompts(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		writeJSON(w, http.StatusOK, nonNil(s.catalog.Prompts(category)))
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.JournalPrompts)
}

func (s *Service) handleGratitudePrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.GratitudePrompts)
}

func (s *Service) handleMeditations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Meditations)
}

// Generation

func (s *Service) handleGemini(w http.ResponseWriter, r *http.Request) {
	var req generation.Request
	if err := decode(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, generation.MsgMissingFields)
		return
	}
	resp, err := s.generation.Respond(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
