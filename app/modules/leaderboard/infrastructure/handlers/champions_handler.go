package leaderboardhandlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

const weekStartLayout = "2006-01-02"

// parseWeekStart reads the weekStart query parameter. Absent means the most
// recently completed week.
func parseWeekStart(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("weekStart")
	if raw == "" {
		return leaderboarddomain.PreviousWeekWindow(time.Now().UTC()).Start, nil
	}
	return time.ParseInLocation(weekStartLayout, raw, time.UTC)
}

// HandleWeeklyChampions serves the frozen standings of one completed week.
func (h *LeaderboardHandlers) HandleWeeklyChampions(w http.ResponseWriter, r *http.Request) {
	weekStart, err := parseWeekStart(r)
	if err != nil {
		http.Error(w, "invalid weekStart, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	snapshot, err := h.service.WeeklyChampions(r.Context(), weekStart)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControlChampions)
	h.writeJSON(w, r, http.StatusOK, snapshot)
}

// HandleRecentChampions serves the latest weekly snapshots, newest first.
func (h *LeaderboardHandlers) HandleRecentChampions(w http.ResponseWriter, r *http.Request) {
	limit := 4
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	snapshots, err := h.service.RecentChampions(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", cacheControlChampions)
	h.writeJSON(w, r, http.StatusOK, map[string]any{"snapshots": snapshots})
}

// HandleChampionsChart serves a rendered PNG of a week's top users.
func (h *LeaderboardHandlers) HandleChampionsChart(w http.ResponseWriter, r *http.Request) {
	weekStart, err := parseWeekStart(r)
	if err != nil {
		http.Error(w, "invalid weekStart, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	png, err := h.service.ChampionsChart(r.Context(), weekStart)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControlChampions)
	if _, err := w.Write(png); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write chart", slog.Any("error", err))
	}
}
