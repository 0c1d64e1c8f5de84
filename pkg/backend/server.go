// Package backend is an in-memory implementation of the meetup HTTP API.
// It backs cmd/meetupd for local development and the engine's end-to-end
// tests; the hosted deployment is an external service with the same
// surface.
package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/garvnn/meetup/pkg/client"
	"github.com/garvnn/meetup/pkg/config"
	"github.com/garvnn/meetup/pkg/deeplink"
	"github.com/garvnn/meetup/pkg/guards"
	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
)

var messagesStored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "meetup_backend_messages_stored_total",
	Help: "Messages accepted by the dev backend.",
})

// Server bundles the repository, guard layer and configuration.
type Server struct {
	Repo    *Repository
	Guard   *guards.Guard
	cfg     *config.Config
	version string
}

// New builds a Server from config. The repository doubles as the guard
// layer's meetup directory and report source.
func New(cfg *config.Config, version string) *Server {
	repo := NewRepository()
	limits := guards.Limits{
		MaxFileSize:       cfg.Files.MaxFileSize.Int64(),
		MaxFilesPerMeetup: cfg.Files.MaxFilesPerMeetup,
		MaxBytesPerMeetup: cfg.Files.MaxBytesPerMeetup.Int64(),
		SoftBanThreshold:  cfg.SoftBan.ReportsThreshold,
		SoftBanWindow:     cfg.SoftBan.Window.Duration(),
	}
	return &Server{
		Repo:    repo,
		Guard:   guards.New(repo, repo, limits),
		cfg:     cfg,
		version: version,
	}
}

// Handler returns the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/create_meetup", s.handleCreateMeetup).Methods(http.MethodPost)
	r.HandleFunc("/accept_invite", s.handleAcceptInvite).Methods(http.MethodPost)
	r.HandleFunc("/soft_ban", s.handleSoftBan).Methods(http.MethodPost)
	r.HandleFunc("/send_message", s.handleSendMessage).Methods(http.MethodPost)
	r.HandleFunc("/get_messages", s.handleGetMessages).Methods(http.MethodPost)
	r.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	r.HandleFunc("/meetup_snapshot", s.handleMeetupSnapshot).Methods(http.MethodPost)
	r.HandleFunc("/report_count", s.handleReportCount).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.PathPrefix("/openapi.yaml").Handler(http.FileServer(http.Dir("./docs")))

	r.Use(logMiddleware)
	r.Use(rateLimitMiddleware(s.cfg.Server.RateLimit))
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, client.HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleCreateMeetup(w http.ResponseWriter, r *http.Request) {
	var in client.CreateMeetupRequest
	if !decode(w, r, &in) {
		return
	}
	if res := s.Guard.CanCreateMeetup(in.HostID); !res.Allowed {
		writeJSONError(w, http.StatusForbidden, res.Reason)
		return
	}
	if in.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	start, _ := time.Parse(time.RFC3339, in.StartTS)
	end, _ := time.Parse(time.RFC3339, in.EndTS)
	ttl := time.Duration(in.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	meetupID, token := s.Repo.CreateMeetup(in.Title, in.Desc, in.HostID, in.HostName, start, end, in.Lat, in.Lng, in.Visibility, ttl)
	logger.Info("meetup_created", "meetup", meetupID, "host", in.HostID)
	writeJSON(w, http.StatusOK, client.CreateMeetupResponse{
		MeetupID: meetupID,
		Token:    token,
		DeepLink: deeplink.Build(s.cfg.DeepLink.Scheme, token),
		WebLink:  deeplink.BuildWeb(s.cfg.DeepLink.WebHost, token),
		Success:  true,
	})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	var in client.AcceptInviteRequest
	if !decode(w, r, &in) {
		return
	}
	meetupID, err := s.Repo.ResolveToken(in.Token)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "Invalid or expired invite token")
		return
	}
	if res := s.Guard.CanJoinMeetup(r.Context(), meetupID, in.UserID); !res.Allowed {
		writeJSONError(w, http.StatusForbidden, res.Reason)
		return
	}
	if err := s.Repo.Join(meetupID, in.UserID); err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	logger.Info("invite_accepted", "meetup", meetupID, "user", in.UserID)
	writeJSON(w, http.StatusOK, client.AcceptInviteResponse{MeetupID: meetupID, Success: true, Message: "Joined meetup"})
}

func (s *Server) handleSoftBan(w http.ResponseWriter, r *http.Request) {
	var in client.SoftBanRequest
	if !decode(w, r, &in) {
		return
	}
	until := time.Now().Add(s.cfg.SoftBan.Duration.Duration())
	if err := s.Repo.SoftBan(in.MeetupID, in.TargetUserID, until); err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	logger.Info("soft_ban_applied", "meetup", in.MeetupID, "target", in.TargetUserID, "by", in.EnactedBy)
	writeJSON(w, http.StatusOK, client.SoftBanResponse{Success: true, ExpiresAt: until.UTC().UnixMilli()})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in client.SendMessageRequest
	if !decode(w, r, &in) {
		return
	}
	kind := models.KindChat
	var res guards.GuardResult
	if in.MessageType == string(models.KindAnnouncement) {
		kind = models.KindAnnouncement
		res = s.Guard.CanCreateAnnouncement(r.Context(), in.MeetupID, in.UserID)
	} else {
		res = s.Guard.CanPostMessage(r.Context(), in.MeetupID, in.UserID)
	}
	if !res.Allowed {
		status := http.StatusForbidden
		if res.Reason == "Meetup not found" {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, res.Reason)
		return
	}
	m, err := s.Repo.AppendMessage(in.MeetupID, in.UserID, in.UserName, in.Message, kind)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	messagesStored.Inc()
	writeJSON(w, http.StatusOK, client.SendMessageResponse{Success: true, MessageID: m.ID})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	var in client.GetMessagesRequest
	if !decode(w, r, &in) {
		return
	}
	if res := s.Guard.CanViewMeetup(r.Context(), in.MeetupID, in.UserID); !res.Allowed {
		status := http.StatusForbidden
		if res.Reason == "Meetup not found" {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, res.Reason)
		return
	}
	msgs, total := s.Repo.Messages(in.MeetupID, in.Limit, in.Offset)
	wire := make([]client.WireMessage, 0, len(msgs))
	for _, m := range msgs {
		wire = append(wire, client.WireMessage{
			ID:          m.ID,
			MeetupID:    m.MeetupID,
			UserID:      m.SenderID,
			UserName:    m.SenderName,
			Message:     m.Text,
			Timestamp:   m.TS,
			MessageType: string(m.Kind),
		})
	}
	writeJSON(w, http.StatusOK, client.GetMessagesResponse{Success: true, Messages: wire, Total: total})
}

// handleMeetupSnapshot serves the per-viewer membership snapshot that
// remote guard evaluation (client.Directory) runs on. An unknown meetup
// is a found=false success, not an error, so guards can distinguish
// "meetup gone" from "backend unreachable".
func (s *Server) handleMeetupSnapshot(w http.ResponseWriter, r *http.Request) {
	var in client.SnapshotRequest
	if !decode(w, r, &in) {
		return
	}
	snap, err := s.Repo.MeetupSnapshot(r.Context(), in.MeetupID, in.UserID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, client.SnapshotResponse{Success: true, Found: snap != nil, Snapshot: snap})
}

// handleReportCount serves the windowed report count behind ShouldSoftBan
// for remote guard evaluation.
func (s *Server) handleReportCount(w http.ResponseWriter, r *http.Request) {
	var in client.ReportCountRequest
	if !decode(w, r, &in) {
		return
	}
	window := time.Duration(in.WindowSeconds) * time.Second
	if window <= 0 {
		window = s.cfg.SoftBan.Window.Duration()
	}
	count, err := s.Repo.CountReports(r.Context(), in.MeetupID, in.TargetUserID, window)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, client.ReportCountResponse{Success: true, Count: count})
}

// handleReport records a report and applies an automatic soft-ban when the
// windowed count crosses the threshold.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var in client.ReportRequest
	if !decode(w, r, &in) {
		return
	}
	tt := models.TargetType(in.TargetType)
	if res := s.Guard.CanReport(r.Context(), in.MeetupID, in.ReporterID, tt, in.TargetID); !res.Allowed {
		status := http.StatusForbidden
		if res.Reason == "Meetup not found" {
			status = http.StatusNotFound
		}
		writeJSONError(w, status, res.Reason)
		return
	}
	s.Repo.AddReport(models.Report{
		MeetupID:   in.MeetupID,
		TargetType: tt,
		TargetID:   in.TargetID,
		ReporterID: in.ReporterID,
		Reason:     in.Reason,
	})
	count := 0
	if tt == models.TargetUser {
		decision := s.Guard.ShouldSoftBan(r.Context(), in.MeetupID, in.TargetID)
		count = decision.ReportCount
		if decision.Restrict {
			until := time.Now().Add(s.cfg.SoftBan.Duration.Duration())
			if err := s.Repo.SoftBan(in.MeetupID, in.TargetID, until); err != nil && !errors.Is(err, ErrMeetupNotFound) {
				logger.Error("auto_soft_ban_failed", "meetup", in.MeetupID, "target", in.TargetID, "error", err)
			} else {
				logger.Info("auto_soft_ban", "meetup", in.MeetupID, "target", in.TargetID, "reports", decision.ReportCount)
			}
		}
	}
	writeJSON(w, http.StatusOK, client.ReportResponse{Success: true, ReportCount: count})
}
