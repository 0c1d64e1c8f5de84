// Package guards answers "may this user do this in this meetup" questions.
// Every guard resolves the same way: fetch the viewer's meetup snapshot,
// then walk an ordered rule chain and return the first failing reason.
// Fetch failures deny (fail-closed), never default to allowed.
package guards

import (
	"context"
	"fmt"
	"time"

	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
)

// GuardResult is the uniform answer returned by every guard.
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Action  string `json:"action,omitempty"`
}

// SoftBanDecision is the result of the report-threshold check.
type SoftBanDecision struct {
	Restrict    bool          `json:"restrict"`
	ReportCount int           `json:"report_count"`
	Window      time.Duration `json:"window"`
	Reason      string        `json:"reason,omitempty"`
}

// MeetupDirectory fetches the per-viewer membership snapshot a guard
// evaluates. The dev backend repository implements it in-process; a
// remote deployment would back it with the hosted API.
type MeetupDirectory interface {
	MeetupSnapshot(ctx context.Context, meetupID, userID string) (*models.MeetupSnapshot, error)
}

// ReportSource counts reports against a target inside a sliding window.
type ReportSource interface {
	CountReports(ctx context.Context, meetupID, targetUserID string, window time.Duration) (int, error)
}

// Limits holds the thresholds the guards enforce.
type Limits struct {
	MaxFileSize       int64
	MaxFilesPerMeetup int
	MaxBytesPerMeetup int64
	SoftBanThreshold  int
	SoftBanWindow     time.Duration
}

// DefaultLimits mirrors the mobile client's shipped configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:       10 * 1024 * 1024,
		MaxFilesPerMeetup: 25,
		MaxBytesPerMeetup: 100 * 1024 * 1024,
		SoftBanThreshold:  3,
		SoftBanWindow:     10 * time.Minute,
	}
}

// Guard evaluates moderation and membership rules.
type Guard struct {
	Dir     MeetupDirectory
	Reports ReportSource
	Limits  Limits
}

// New returns a Guard with the given backends and limits.
func New(dir MeetupDirectory, reports ReportSource, limits Limits) *Guard {
	return &Guard{Dir: dir, Reports: reports, Limits: limits}
}

// rule is one predicate/reason pair in a guard's chain. deny returns true
// when the rule rejects the action.
type rule struct {
	deny   func(s *models.MeetupSnapshot) bool
	reason string
	action string
}

var permissionCheckFailed = GuardResult{Allowed: false, Reason: "Permission check failed"}

// eval fetches the snapshot and applies rules in order, returning the
// first failing reason. Missing meetups and fetch errors both deny.
func (g *Guard) eval(ctx context.Context, meetupID, userID string, rules []rule) GuardResult {
	snap, err := g.Dir.MeetupSnapshot(ctx, meetupID, userID)
	if err != nil {
		logger.Warn("guard_snapshot_failed", "meetup", meetupID, "user", userID, "error", err)
		return permissionCheckFailed
	}
	if snap == nil {
		return GuardResult{Allowed: false, Reason: "Meetup not found"}
	}
	for _, r := range rules {
		if r.deny(snap) {
			return GuardResult{Allowed: false, Reason: r.reason, Action: r.action}
		}
	}
	return GuardResult{Allowed: true}
}

// Shared chain prefixes, in the fixed priority order:
// ended -> not a member -> soft-banned -> guard-specific rules.
func ended(s *models.MeetupSnapshot) bool      { return s.IsEnded }
func notMember(s *models.MeetupSnapshot) bool  { return !s.IsMember }
func softBanned(s *models.MeetupSnapshot) bool { return s.IsSoftBanned }
func notHost(s *models.MeetupSnapshot) bool    { return !s.IsHost }

// CanPostMessage checks whether the user may post chat messages.
func (g *Guard) CanPostMessage(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has ended", action: "read-only"},
		{deny: notMember, reason: "You are not a member of this meetup"},
		{deny: softBanned, reason: "You are temporarily restricted from posting in this meetup", action: "view-only"},
	})
}

// CanUploadFile checks membership plus the file size and quota rules.
func (g *Guard) CanUploadFile(ctx context.Context, meetupID, userID string, fileSize int64) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has ended", action: "read-only"},
		{deny: notMember, reason: "You are not a member of this meetup"},
		{deny: softBanned, reason: "You are temporarily restricted from uploading files in this meetup", action: "view-only"},
		{
			deny:   func(*models.MeetupSnapshot) bool { return fileSize > g.Limits.MaxFileSize },
			reason: fmt.Sprintf("File size exceeds %dMB limit", g.Limits.MaxFileSize/(1024*1024)),
		},
		{
			deny:   func(s *models.MeetupSnapshot) bool { return s.FilesCount >= g.Limits.MaxFilesPerMeetup },
			reason: fmt.Sprintf("Meetup has reached the maximum of %d files", g.Limits.MaxFilesPerMeetup),
		},
		{
			deny:   func(s *models.MeetupSnapshot) bool { return s.TotalBytes+fileSize > g.Limits.MaxBytesPerMeetup },
			reason: fmt.Sprintf("Upload would exceed the %dMB storage limit", g.Limits.MaxBytesPerMeetup/(1024*1024)),
		},
	})
}

// CanDeleteFile checks whether the user may delete a file. Hosts may
// delete any file; members only their own, which is verified during the
// deletion itself.
func (g *Guard) CanDeleteFile(ctx context.Context, meetupID, userID string) GuardResult {
	res := g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has ended", action: "read-only"},
		{deny: notMember, reason: "You are not a member of this meetup"},
		{deny: softBanned, reason: "You are temporarily restricted from deleting files in this meetup", action: "view-only"},
	})
	return res
}

// CanJoinMeetup checks whether the user may join.
func (g *Guard) CanJoinMeetup(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has ended"},
		{deny: func(s *models.MeetupSnapshot) bool { return s.IsMember }, reason: "You are already a member of this meetup"},
	})
}

// CanLeaveMeetup checks whether the user may leave. Hosts cannot leave
// their own meetup.
func (g *Guard) CanLeaveMeetup(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: notMember, reason: "You are not a member of this meetup"},
		{deny: func(s *models.MeetupSnapshot) bool { return s.IsHost }, reason: "Hosts cannot leave their own meetup. End the meetup instead."},
	})
}

// CanEndMeetup checks whether the user may end the meetup (host only).
func (g *Guard) CanEndMeetup(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has already ended"},
		{deny: notHost, reason: "Only the host can end the meetup"},
	})
}

// CanReport checks whether the user may report the given target. Users
// cannot report themselves.
func (g *Guard) CanReport(ctx context.Context, meetupID, userID string, targetType models.TargetType, targetID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: notMember, reason: "You must be a member to report content"},
		{
			deny:   func(*models.MeetupSnapshot) bool { return targetType == models.TargetUser && targetID == userID },
			reason: "You cannot report yourself",
		},
	})
}

// CanCreateAnnouncement checks whether the user may post announcements
// (host only).
func (g *Guard) CanCreateAnnouncement(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: ended, reason: "Meetup has ended", action: "read-only"},
		{deny: notHost, reason: "Only the host can create announcements"},
	})
}

// CanViewMeetup checks whether the user may view meetup content.
func (g *Guard) CanViewMeetup(ctx context.Context, meetupID, userID string) GuardResult {
	return g.eval(ctx, meetupID, userID, []rule{
		{deny: notMember, reason: "You are not a member of this meetup"},
	})
}

// CanCreateMeetup checks whether the user may create a meetup.
func (g *Guard) CanCreateMeetup(userID string) GuardResult {
	if userID == "" {
		return GuardResult{Allowed: false, Reason: "User not authenticated"}
	}
	return GuardResult{Allowed: true}
}

// ShouldSoftBan decides whether accumulated reports inside the sliding
// window warrant an automatic restriction. It performs no mutation; the
// caller is responsible for invoking the restriction endpoint.
func (g *Guard) ShouldSoftBan(ctx context.Context, meetupID, targetUserID string) SoftBanDecision {
	window := g.Limits.SoftBanWindow
	count, err := g.Reports.CountReports(ctx, meetupID, targetUserID, window)
	if err != nil {
		logger.Warn("softban_count_failed", "meetup", meetupID, "target", targetUserID, "error", err)
		return SoftBanDecision{Restrict: false, Window: window, Reason: "Soft-ban check failed"}
	}
	if count >= g.Limits.SoftBanThreshold {
		return SoftBanDecision{
			Restrict:    true,
			ReportCount: count,
			Window:      window,
			Reason:      fmt.Sprintf("User has %d reports in the last %d minutes", count, int(window.Minutes())),
		}
	}
	return SoftBanDecision{Restrict: false, ReportCount: count, Window: window}
}
