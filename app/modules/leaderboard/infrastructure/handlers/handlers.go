package leaderboardhandlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// Cache-Control values per read surface. Weekly standings move constantly and
// get a short shared TTL; all-time and champions are stable; personal rank is
// never cached.
const (
	cacheControlWeekly    = "public, s-maxage=30, stale-while-revalidate=30"
	cacheControlAllTime   = "public, s-maxage=300, stale-while-revalidate=300"
	cacheControlChampions = "public, s-maxage=600"
	cacheControlPrivate   = "no-store"
)

const defaultPageLimit = 50

// LeaderboardHandlers serves the ranking subsystem's HTTP surface.
type LeaderboardHandlers struct {
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewLeaderboardHandlers(service leaderboardservice.Service, logger *slog.Logger) *LeaderboardHandlers {
	return &LeaderboardHandlers{service: service, logger: logger}
}

// Routes mounts the leaderboard endpoints. The personal rank endpoint
// requires a verified bearer token.
func (h *LeaderboardHandlers) Routes(verifier *TokenVerifier) chi.Router {
	r := chi.NewRouter()
	r.Get("/users", h.HandleUsers)
	r.Get("/users/country/{code}", h.HandleUsersByCountry)
	r.Get("/tribes", h.HandleTribes)
	r.Get("/search", h.HandleSearch)
	r.Get("/weekly-champions", h.HandleWeeklyChampions)
	r.Get("/recent-champions", h.HandleRecentChampions)
	r.Get("/champions-chart", h.HandleChampionsChart)
	r.With(RequireAuth(verifier)).Get("/me", h.HandleMe)
	return r
}

func (h *LeaderboardHandlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", slog.Any("error", err))
	}
}

func (h *LeaderboardHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, leaderboarddomain.ErrInvalidCursor):
		http.Error(w, "invalid cursor format", http.StatusBadRequest)
	case errors.Is(err, leaderboardservice.ErrInvalidLimit),
		errors.Is(err, leaderboardservice.ErrInvalidPoints):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, leaderboardservice.ErrNotRanked):
		http.Error(w, "not ranked", http.StatusNotFound)
	case errors.Is(err, leaderboardservice.ErrNoTribe):
		http.Error(w, "not in a tribe", http.StatusNotFound)
	case errors.Is(err, leaderboarddb.ErrSnapshotNotFound):
		http.Error(w, "no snapshot for week", http.StatusNotFound)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parsePageQuery extracts the shared listing parameters. An unknown period is
// a 400; limit falls back to the default when absent.
func parsePageQuery(r *http.Request) (leaderboarddomain.Period, int, string, error) {
	period := leaderboarddomain.PeriodWeekly
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := leaderboarddomain.ParsePeriod(raw)
		if err != nil {
			return "", 0, "", err
		}
		period = parsed
	}

	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return "", 0, "", leaderboardservice.ErrInvalidLimit
		}
		limit = parsed
	}

	return period, limit, r.URL.Query().Get("cursor"), nil
}

func cacheControlFor(period leaderboarddomain.Period) string {
	if period == leaderboarddomain.PeriodWeekly {
		return cacheControlWeekly
	}
	return cacheControlAllTime
}
