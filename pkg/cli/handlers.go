package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mchmarny/creatorpulse/pkg/creator"
	"github.com/mchmarny/creatorpulse/pkg/data"
	"github.com/mchmarny/creatorpulse/pkg/net"
	"github.com/mchmarny/creatorpulse/pkg/platform"
	"github.com/mchmarny/creatorpulse/pkg/report"
	"github.com/mchmarny/creatorpulse/pkg/score"
)

type resolver interface {
	Resolve(ctx context.Context, input string) (string, error)
}

type forwarder interface {
	Forward(ctx context.Context, path, rawQuery string) (*platform.Forwarded, error)
}

type characterList struct {
	CreatorID  string                         `json:"creator_id"`
	Period     score.Period                   `json:"period"`
	Characters []*score.GradedCharacter       `json:"characters"`
	TierCounts map[score.CharacterTierKey]int `json:"tier_counts"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	var se *net.StatusError
	switch {
	case errors.Is(err, platform.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrForbiddenPath):
		return http.StatusForbidden
	case errors.Is(err, platform.ErrNotFound), errors.Is(err, net.ErrNotFound), errors.Is(err, data.ErrSnapshotNotFound):
		return http.StatusNotFound
	case errors.As(err, &se), errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error, msg string) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err)
	} else {
		slog.Debug(msg, "error", err, "status", status)
	}
	writeError(w, status, msg)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func resolveAPIHandler(res resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			writeError(w, http.StatusBadRequest, "q parameter required")
			return
		}

		id, err := res.Resolve(r.Context(), q)
		if err != nil {
			writeDomainError(w, err, "failed to resolve creator")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}
}

// creatorID reads and validates the {id} path value.
func creatorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !platform.IsCreatorID(id) {
		writeError(w, http.StatusBadRequest, "invalid creator id")
		return "", false
	}
	return id, true
}

// interactionMode parses s, leaving it empty so the configured mode applies.
func interactionMode(s string) creator.InteractionMode {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return creator.ParseInteractionMode(s)
}

func buildReport(w http.ResponseWriter, r *http.Request, b *report.Builder) (*report.Report, bool) {
	id, ok := creatorID(w, r)
	if !ok {
		return nil, false
	}

	if r.URL.Query().Get("refresh") == "true" {
		if err := b.Refresh(r.Context(), id); err != nil {
			slog.Warn("failed to drop cached creator", "id", id, "error", err)
		}
	}

	period := score.ParsePeriod(r.URL.Query().Get("period"))
	rep, err := b.BuildMode(r.Context(), id, period, interactionMode(r.URL.Query().Get("interactions")))
	if err != nil {
		writeDomainError(w, err, "failed to build creator report")
		return nil, false
	}
	return rep, true
}

func creatorAPIHandler(b *report.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, ok := buildReport(w, r, b)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func recapAPIHandler(b *report.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, ok := buildReport(w, r, b)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, report.NewRecap(rep))
	}
}

func charactersAPIHandler(b *report.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, ok := buildReport(w, r, b)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, &characterList{
			CreatorID:  rep.CreatorID,
			Period:     rep.Period,
			Characters: rep.Characters,
			TierCounts: rep.TierCounts,
		})
	}
}

func rankingAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := platform.ParseRankingKind(r.PathValue("kind"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, err := data.GetLatestRankingSnapshot(r.Context(), db, string(kind))
		if err != nil {
			writeDomainError(w, err, "failed to get ranking snapshot")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func proxyAPIHandler(f forwarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := f.Forward(r.Context(), r.PathValue("path"), r.URL.RawQuery)
		if err != nil {
			writeDomainError(w, err, "failed to forward request")
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.WriteHeader(res.StatusCode)
		if _, err := w.Write(res.Body); err != nil {
			slog.Debug("failed to write forwarded body", "error", err)
		}
	}
}
