package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nano-banana-studio/internal/app"
	"nano-banana-studio/internal/download"
	"nano-banana-studio/internal/imagegen"
	"nano-banana-studio/internal/notify"
	"nano-banana-studio/internal/prompt"
	"nano-banana-studio/internal/session"
)

//go:embed static/*
var staticFS embed.FS

const (
	sessionCookie = "nb_session"
	// openURLHeader carries the image URL the page should open for preview after saving.
	openURLHeader = "X-Open-Url"
)

type server struct {
	sessions  *session.Store
	downloads *download.Helper
	logSink   notify.Sink
	logger    *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type optionsResponse struct {
	AdTypes            []prompt.NamedOption `json:"ad_types"`
	Industries         []prompt.NamedOption `json:"industries"`
	ToneStyles         []prompt.NamedOption `json:"tone_styles"`
	DefaultProductName string               `json:"default_product_name"`
}

type promptResponse struct {
	Prompt   string `json:"prompt"`
	Composed string `json:"composed"`
	Complete bool   `json:"complete"`
}

type generateResponse struct {
	Token uint64         `json:"token"`
	State imagegen.State `json:"state"`
}

type cancelResponse struct {
	Canceled bool           `json:"canceled"`
	State    imagegen.State `json:"state"`
}

type fallbackResponse struct {
	FellBack      bool                  `json:"fell_back"`
	OpenURL       string                `json:"open_url,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
}

// selectionPatch leaves fields that are absent from the request untouched.
type selectionPatch struct {
	AdType       *string `json:"ad_type"`
	Industry     *string `json:"industry"`
	ProductName  *string `json:"product_name"`
	ToneStyle    *string `json:"tone_style"`
	CustomPrompt *string `json:"custom_prompt"`
}

func (p selectionPatch) apply(sel *prompt.Selection) {
	if p.AdType != nil {
		sel.AdType = strings.TrimSpace(*p.AdType)
	}
	if p.Industry != nil {
		sel.Industry = strings.TrimSpace(*p.Industry)
	}
	if p.ProductName != nil {
		sel.ProductName = *p.ProductName
	}
	if p.ToneStyle != nil {
		sel.ToneStyle = strings.TrimSpace(*p.ToneStyle)
	}
	if p.CustomPrompt != nil {
		sel.CustomPrompt = *p.CustomPrompt
	}
}

func newServer(deps *app.App) *server {
	return &server{
		sessions:  deps.Sessions,
		downloads: deps.Downloads,
		logSink:   notify.NewLogSink(deps.Logger),
		logger:    deps.Logger,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/options", s.handleOptions)
	mux.HandleFunc("/api/selection", s.handleSelection)
	mux.HandleFunc("/api/prompt", s.handlePrompt)
	mux.HandleFunc("/api/generate", s.handleGenerate)
	mux.HandleFunc("/api/regenerate", s.handleRegenerate)
	mux.HandleFunc("/api/cancel", s.handleCancel)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/notifications", s.handleNotifications)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSub)))
	return mux
}

func (s *server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}

	sess := s.sessions.Resume(id)
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.sessions.TTL().Seconds()),
		})
	}
	return sess
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{
		AdTypes:            prompt.AdTypes(),
		Industries:         prompt.Industries(),
		ToneStyles:         prompt.ToneStyles(),
		DefaultProductName: prompt.DefaultProductName,
	})
}

func (s *server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sess.Selection())
	case http.MethodPost:
		patch, ok := decodePatch(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sess.Update(patch.apply))
	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
	}
}

func (s *server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	sel := sess.Update(patch.apply)
	writeJSON(w, http.StatusOK, promptResponse{
		Prompt:   prompt.ResolvePrompt(sel),
		Composed: prompt.Compose(sel),
		Complete: sel.IsComplete(),
	})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	sel := sess.Update(patch.apply)
	token, err := sess.Controller.Generate(r.Context(), prompt.ResolvePrompt(sel))
	s.writeGenerate(w, sess, token, err)
}

func (s *server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)
	token, err := sess.Controller.Regenerate(r.Context())
	s.writeGenerate(w, sess, token, err)
}

func (s *server) writeGenerate(w http.ResponseWriter, sess *session.Session, token uint64, err error) {
	switch {
	case errors.Is(err, imagegen.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, apiError{Error: "fill in all fields or enter a custom prompt"})
	case errors.Is(err, imagegen.ErrNotReady):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case errors.Is(err, imagegen.ErrInProgress):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
	case err != nil:
		s.logger.Error("generate failed", "session", sess.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, generateResponse{Token: token, State: sess.Controller.Snapshot()})
	}
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)
	canceled := sess.Controller.Cancel()
	writeJSON(w, http.StatusOK, cancelResponse{Canceled: canceled, State: sess.Controller.Snapshot()})
}

// handleStatus returns the controller state. With ?wait=N it long-polls up to N seconds.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)

	if wait, err := strconv.Atoi(r.URL.Query().Get("wait")); err == nil && wait > 0 {
		if wait > 60 {
			wait = 60
		}
		ctx, cancel := context.WithTimeout(r.Context(), time.Duration(wait)*time.Second)
		defer cancel()
		st, _ := sess.Controller.Wait(ctx)
		writeJSON(w, http.StatusOK, st)
		return
	}

	writeJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)

	st := sess.Controller.Snapshot()
	if st.Status != imagegen.StatusReady || st.Image == nil {
		writeJSON(w, http.StatusConflict, apiError{Error: download.ErrNoImage.Error()})
		return
	}

	saver := &download.MemorySaver{}
	opener := &download.URLRecorder{}
	sink := notify.NewRecorder(5)

	res, err := s.downloads.Download(r.Context(), st.Image.URL, sess.Selection().ProductName, download.Target{
		Saver:    saver,
		Opener:   opener,
		Notifier: notify.Multi(sink, s.logSink),
	})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, apiError{Error: err.Error()})
		return
	}

	files := saver.Files()
	if res.FellBack || len(files) == 0 {
		writeJSON(w, http.StatusOK, fallbackResponse{
			FellBack:      true,
			OpenURL:       res.OpenedURL,
			Notifications: sink.Drain(),
		})
		return
	}

	f := files[0]
	if res.OpenedURL != "" {
		w.Header().Set(openURLHeader, res.OpenedURL)
	}
	w.Header().Set("content-type", f.MimeType)
	w.Header().Set("content-disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	w.Header().Set("content-length", strconv.Itoa(len(f.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func (s *server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}
	sess := s.session(w, r)
	notes := sess.Notifications.Drain()
	if notes == nil {
		notes = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func decodePatch(w http.ResponseWriter, r *http.Request) (selectionPatch, bool) {
	var patch selectionPatch
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return selectionPatch{}, false
	}
	return patch, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
