package leaderboardhandlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// HandleUsers serves one page of the global user leaderboard.
func (h *LeaderboardHandlers) HandleUsers(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, leaderboarddomain.ScopeUsers, "")
}

// HandleUsersByCountry serves the country-scoped user leaderboard. Country
// ranks are local: each country is its own contiguous ordering.
func (h *LeaderboardHandlers) HandleUsersByCountry(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	if len(code) != 2 {
		http.Error(w, "invalid country code", http.StatusBadRequest)
		return
	}
	h.servePage(w, r, leaderboarddomain.ScopeUsers, code)
}

// HandleTribes serves one page of the tribe leaderboard.
func (h *LeaderboardHandlers) HandleTribes(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, leaderboarddomain.ScopeTribes, "")
}

func (h *LeaderboardHandlers) servePage(w http.ResponseWriter, r *http.Request, scope leaderboarddomain.Scope, country string) {
	period, limit, cursor, err := parsePageQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.GetLeaderboard(r.Context(), scope, period, limit, cursor, country)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControlFor(period))
	h.writeJSON(w, r, http.StatusOK, page)
}

// HandleMe serves the authenticated user's own rank. Scope defaults to users;
// tribe scope reports the caller's tribe standing. Optional country query
// switches to the country-local ordering.
func (h *LeaderboardHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	scope := leaderboarddomain.ScopeUsers
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := leaderboarddomain.ParseScope(raw)
		if err != nil {
			http.Error(w, "unknown scope", http.StatusBadRequest)
			return
		}
		scope = parsed
	}
	period := leaderboarddomain.PeriodWeekly
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := leaderboarddomain.ParsePeriod(raw)
		if err != nil {
			http.Error(w, "unknown period", http.StatusBadRequest)
			return
		}
		period = parsed
	}
	country := strings.ToUpper(r.URL.Query().Get("country"))

	info, err := h.service.GetMyRank(r.Context(), leaderboarddomain.EntityID(userID), scope, period, country)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControlPrivate)
	h.writeJSON(w, r, http.StatusOK, info)
}

// HandleSearch serves name search over ranked entities.
func (h *LeaderboardHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		http.Error(w, "query must be at least 2 characters", http.StatusBadRequest)
		return
	}

	scope := leaderboarddomain.ScopeUsers
	if raw := r.URL.Query().Get("scope"); raw != "" {
		parsed, err := leaderboarddomain.ParseScope(raw)
		if err != nil {
			http.Error(w, "unknown scope", http.StatusBadRequest)
			return
		}
		scope = parsed
	}
	period := leaderboarddomain.PeriodWeekly
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := leaderboarddomain.ParsePeriod(raw)
		if err != nil {
			http.Error(w, "unknown period", http.StatusBadRequest)
			return
		}
		period = parsed
	}

	items, err := h.service.SearchRanked(r.Context(), query, scope, period, "")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControlPrivate)
	h.writeJSON(w, r, http.StatusOK, map[string]any{"items": items})
}
