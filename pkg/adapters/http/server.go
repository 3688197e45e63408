// Package http exposes the assistant to a browser panel: a JSON API for
// operator actions and the library, an SSE stream of drafts and state
// changes, and a HostPage fed by page observations.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/internal/runtime"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/assist"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/library"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodySize bounds request bodies; imports are the largest documents.
const maxBodySize = 4 << 20

// Server wires HTTP routes to the controller, the library and the assist loop.
type Server struct {
	Controller *controller.Controller
	Library    *library.Library
	Loop       *assist.Loop
	Host       *Host
	Streams    *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server. host and streams must be the ones the
// controller and loop were built with.
func NewServer(ctrl *controller.Controller, lib *library.Library, loop *assist.Loop, host *Host, streams *StreamManager, opts ...Option) *Server {
	s := &Server{
		Controller: ctrl,
		Library:    lib,
		Loop:       loop,
		Host:       host,
		Streams:    streams,
		gatherer:   prometheus.DefaultGatherer,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.subscribeEvents)
	r.Post("/observe", s.observe)
	r.Post("/assist", s.setAssist)

	r.Route("/conversations/{id}", func(r chi.Router) {
		r.Get("/", s.view)
		r.Post("/start", s.start)
		r.Post("/reply", s.reply)
		r.Post("/options/{index}", s.chooseOption)
		r.Post("/redraft", s.redraft)
		r.Post("/restart", s.restart)
		r.Post("/rewrite", s.rewrite)
		r.Put("/editor", s.editDraft)
		r.Delete("/editor", s.closeEditor)
	})

	r.Get("/templates", s.listTemplates)
	r.Put("/templates", s.saveTemplates)
	r.Get("/templates/{id}", s.getTemplate)
	r.Put("/templates/{id}", s.putTemplate)
	r.Delete("/templates/{id}", s.deleteTemplate)
	r.Post("/favorites/{id}", s.toggleFavorite)
	r.Get("/rules", s.getRules)
	r.Put("/rules", s.putRules)
	r.Get("/flows", s.getFlows)
	r.Put("/flows", s.putFlows)
	r.Get("/suggest", s.suggest)
	r.Get("/export", s.export)
	r.Post("/import", s.importLibrary)

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"assist":       s.Loop.Enabled(),
		"conversation": s.Loop.Current(),
	})
}

type observeRequest struct {
	Conversation string `json:"conversation"`
	Message      string `json:"message"`
	Recent       string `json:"recent,omitempty"`
}

// observe records what the page shows. The assist loop picks it up on its next tick.
func (s *Server) observe(w http.ResponseWriter, r *http.Request) {
	var body observeRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.Host.Record(ports.Sample{
		Title:          body.Conversation,
		LatestIncoming: body.Message,
		RecentText:     body.Recent,
	})
	w.WriteHeader(http.StatusAccepted)
}

type assistRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setAssist(w http.ResponseWriter, r *http.Request) {
	var body assistRequest
	if !s.decode(w, r, &body) {
		return
	}
	settings, err := s.Library.Settings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	settings.Enabled = body.Enabled
	if err := s.Library.SaveSettings(r.Context(), settings); err != nil {
		s.writeError(w, err)
		return
	}
	s.Loop.SetEnabled(body.Enabled)
	s.writeJSON(w, http.StatusOK, settings)
}

// actionResponse is returned by every operator action.
type actionResponse struct {
	Draft *domain.Draft   `json:"draft"`
	View  controller.View `json:"view"`
}

func (s *Server) respondAction(w http.ResponseWriter, r *http.Request, conv string, draft *domain.Draft, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	view, err := s.Controller.View(r.Context(), conv)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, actionResponse{Draft: draft, View: view})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	view, err := s.Controller.View(r.Context(), conv)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type startRequest struct {
	FlowID string `json:"flow_id"`
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body startRequest
	if !s.decode(w, r, &body) {
		return
	}
	draft, err := s.Controller.Start(r.Context(), conv, body.FlowID)
	s.respondAction(w, r, conv, draft, err)
}

type replyRequest struct {
	Key string `json:"key"`
}

func (s *Server) reply(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body replyRequest
	if !s.decode(w, r, &body) {
		return
	}
	draft, err := s.Controller.SimulateReply(r.Context(), conv, body.Key)
	s.respondAction(w, r, conv, draft, err)
}

func (s *Server) chooseOption(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid option index", http.StatusBadRequest)
		return
	}
	draft, err := s.Controller.ChooseOption(r.Context(), conv, index)
	s.respondAction(w, r, conv, draft, err)
}

func (s *Server) redraft(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	draft, err := s.Controller.Redraft(r.Context(), conv)
	s.respondAction(w, r, conv, draft, err)
}

func (s *Server) restart(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.Controller.Restart(r.Context(), conv)
	s.respondAction(w, r, conv, nil, nil)
}

type editorRequest struct {
	Text string `json:"text"`
}

func (s *Server) editDraft(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body editorRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.Controller.EditDraft(conv, body.Text))
}

func (s *Server) closeEditor(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.Controller.CloseEditor(conv)
	w.WriteHeader(http.StatusNoContent)
}

type rewriteEvent struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text,omitempty"`
	Applied        bool   `json:"applied"`
	Error          string `json:"error,omitempty"`
}

// rewrite starts a background rewrite. Its outcome is pushed as a rewrite event.
func (s *Server) rewrite(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var body controller.RewriteRequest
	if !s.decode(w, r, &body) {
		return
	}
	results, err := s.Controller.Rewrite(r.Context(), conv, body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	go func() {
		res := <-results
		ev := rewriteEvent{ConversationID: conv, Text: res.Text, Applied: res.Applied}
		if res.Err != nil {
			ev.Error = res.Err.Error()
		}
		data, _ := json.Marshal(ev)
		s.Streams.Broadcast(conv, Event{Type: EventRewrite, Data: data})
	}()
	w.WriteHeader(http.StatusAccepted)
}

// subscribeEvents handles GET /events (SSE). Without a conversation filter the
// client receives every conversation's events.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	conv := r.URL.Query().Get("conversation")
	s.logger.Info("SSE: Subscribing to conversation updates", "conversation", conv)

	ch, cancel := s.Streams.Subscribe(conv)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "conversation", conv)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.Library.Templates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if q := r.URL.Query().Get("q"); q != "" {
		templates = library.Search(templates, q)
	}
	s.writeJSON(w, http.StatusOK, templates)
}

func (s *Server) saveTemplates(w http.ResponseWriter, r *http.Request) {
	var templates []domain.Template
	if !s.decode(w, r, &templates) {
		return
	}
	if err := s.Library.SaveTemplates(r.Context(), templates); err != nil {
		s.writeError(w, err)
		return
	}
	s.listTemplates(w, r)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	tpl, err := s.Library.Template(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) putTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var tpl domain.Template
	if !s.decode(w, r, &tpl) {
		return
	}
	tpl.ID = id
	saved, err := s.Library.SaveTemplate(r.Context(), tpl)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.Library.DeleteTemplate(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	on, err := s.Library.ToggleFavorite(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"favorite": on})
}

func (s *Server) getRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Library.Rules(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rules)
}

func (s *Server) putRules(w http.ResponseWriter, r *http.Request) {
	var rules []domain.Rule
	if !s.decode(w, r, &rules) {
		return
	}
	if err := s.Library.SaveRules(r.Context(), rules); err != nil {
		s.writeError(w, err)
		return
	}
	s.getRules(w, r)
}

func (s *Server) getFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.Library.Flows(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, flows)
}

// putFlows accepts authored documents (JSON or YAML), compiles and validates them.
func (s *Server) putFlows(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	flows, err := s.Library.ParseFlows(data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid flows: %v", err), http.StatusBadRequest)
		return
	}
	if err := s.Library.SaveFlows(r.Context(), flows); err != nil {
		s.writeError(w, err)
		return
	}
	s.getFlows(w, r)
}

type suggestResponse struct {
	Category string          `json:"category"`
	Groups   []library.Group `json:"groups"`
}

// suggest arranges the template picker for the given conversation text. When
// text is absent the last observed page text is used.
func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text := r.URL.Query().Get("text")
	if text == "" {
		sample, _ := s.Host.Sample(ctx)
		text = sample.RecentText
	}

	settings, err := s.Library.Settings(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rules, err := s.Library.Rules(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	all, err := s.Library.Templates(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	favorites, err := s.Library.Favorites(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var category string
	if settings.AutoSuggest {
		category = library.SuggestCategory(text, rules)
	}
	filtered := all
	if q := r.URL.Query().Get("q"); q != "" {
		filtered = library.Search(all, q)
	}
	s.writeJSON(w, http.StatusOK, suggestResponse{
		Category: category,
		Groups:   library.Arrange(all, filtered, favorites, category),
	})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Library.Export(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="assistant-export.json"`)
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) importLibrary(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.Library.Import(r.Context(), data); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.writeError(w, err)
			return
		}
		http.Error(w, fmt.Sprintf("Import failed: %v", err), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// -- Helpers --

// pathID returns the decoded {id} segment. Chat titles may contain escaped
// slashes; chi then routes on the raw path and hands the segment back escaped.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return id, true
	}
	id, err := url.PathUnescape(id)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "err", err)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrFlowNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveFlow),
		errors.Is(err, controller.ErrEditorClosed):
		return http.StatusConflict
	case errors.Is(err, runtime.ErrInputTooLarge),
		errors.Is(err, runtime.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrBridgeUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrMissingHostElement):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
