package trigger

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// maxLocaleLength limits the request body of locale updates
const maxLocaleLength = 35

// NewHandler initializes a new trigger API handler
func NewHandler(s *service) *chi.Mux {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Post("/passes/{token}", passHandler(s))
		r.Get("/groups/{chatID}", groupHandler(s))
		r.Get("/users/{userID}/locale", getLocaleHandler(s))
		r.Put("/users/{userID}/locale", setLocaleHandler(s))
	})

	return r
}

type groupResponse struct {
	ChatID int64 `json:"chat_id"`
	ID     int64 `json:"id"`
	Exists bool  `json:"exists"`
}

func passHandler(s *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		valid, err := s.ValidToken(chi.URLParam(r, "token"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			level.Error(s.l).Log("err", err)
			return
		}
		if !valid {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		level.Info(s.l).Log("msg", "received valid token, running scheduling pass")
		sent, err := s.pr.RunOnce(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			level.Error(s.l).Log("err", errors.Wrap(err, "running scheduling pass"))
			return
		}
		level.Info(s.l).Log("msg", "scheduling pass triggered", "sent", sent)
		w.WriteHeader(http.StatusAccepted)
	}
}

func groupHandler(s *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid chat id", http.StatusBadRequest)
			return
		}
		refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
		id, err := s.groupExists(r.Context(), chatID, refresh)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			level.Error(s.l).Log("err", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(groupResponse{ChatID: chatID, ID: id, Exists: id != 0}); err != nil {
			level.Error(s.l).Log("err", err)
		}
	}
}

func getLocaleHandler(s *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		locale, ok, err := s.locales.Get(r.Context(), userID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			level.Error(s.l).Log("err", err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(locale))
	}
}

func setLocaleHandler(s *service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		b, err := io.ReadAll(io.LimitReader(r.Body, maxLocaleLength+1))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		locale := strings.TrimSpace(string(b))
		if locale == "" || len(locale) > maxLocaleLength {
			http.Error(w, "invalid locale", http.StatusBadRequest)
			return
		}
		if err := s.locales.Set(r.Context(), userID, locale); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			level.Error(s.l).Log("err", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
