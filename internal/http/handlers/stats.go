package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"reelchef/internal/domain"
)

// QueueInspector exposes queue statistics for the stats endpoint
type QueueInspector interface {
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

type StatsHandler struct {
	logger *slog.Logger
	queue  QueueInspector
}

type statsResponse struct {
	Timestamp string           `json:"timestamp"`
	Queue     map[string]int64 `json:"queue"`
}

func NewStatsHandler(logger *slog.Logger, queue QueueInspector) *StatsHandler {
	return &StatsHandler{
		logger: logger,
		queue:  queue,
	}
}

// HandleStats reports extraction queue counters: lifetime enqueued, completed,
// failed and retried along with current pending, processing, retrying and
// dead-letter depths.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.GetQueueStats(r.Context(), domain.JobTypeExtractRecipe)
	if err != nil {
		h.logger.Error("Failed to collect queue stats", "error", err)
		http.Error(w, "Failed to collect stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, statsResponse{
		Timestamp: time.Now().Format(time.RFC3339),
		Queue:     stats,
	})
}
