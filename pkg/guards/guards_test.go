package guards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garvnn/meetup/pkg/models"
)

// fakeDir serves one canned snapshot (or error) for every lookup.
type fakeDir struct {
	snap *models.MeetupSnapshot
	err  error
}

func (f *fakeDir) MeetupSnapshot(ctx context.Context, meetupID, userID string) (*models.MeetupSnapshot, error) {
	return f.snap, f.err
}

type fakeReports struct {
	count int
	err   error
}

func (f *fakeReports) CountReports(ctx context.Context, meetupID, targetUserID string, window time.Duration) (int, error) {
	return f.count, f.err
}

func member() *models.MeetupSnapshot {
	return &models.MeetupSnapshot{ID: "m1", HostID: "host", IsMember: true}
}

func newGuard(snap *models.MeetupSnapshot, dirErr error, reports ReportSource) *Guard {
	if reports == nil {
		reports = &fakeReports{}
	}
	return New(&fakeDir{snap: snap, err: dirErr}, reports, DefaultLimits())
}

func TestCanPostMessageAllowed(t *testing.T) {
	g := newGuard(member(), nil, nil)
	if res := g.CanPostMessage(context.Background(), "m1", "u1"); !res.Allowed {
		t.Fatalf("expected allowed, got %+v", res)
	}
}

func TestCanPostMessagePriorityOrder(t *testing.T) {
	cases := []struct {
		name   string
		snap   *models.MeetupSnapshot
		reason string
	}{
		{"missing meetup", nil, "Meetup not found"},
		{"ended before membership", &models.MeetupSnapshot{IsEnded: true, IsMember: false}, "Meetup has ended"},
		{"not a member", &models.MeetupSnapshot{IsMember: false}, "You are not a member of this meetup"},
		{"soft banned member", &models.MeetupSnapshot{IsMember: true, IsSoftBanned: true}, "You are temporarily restricted from posting in this meetup"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGuard(tc.snap, nil, nil)
			res := g.CanPostMessage(context.Background(), "m1", "u1")
			if res.Allowed || res.Reason != tc.reason {
				t.Fatalf("expected denial %q, got %+v", tc.reason, res)
			}
		})
	}
}

func TestGuardsFailClosedOnLookupError(t *testing.T) {
	g := newGuard(nil, errors.New("directory down"), nil)
	res := g.CanPostMessage(context.Background(), "m1", "u1")
	if res.Allowed || res.Reason != "Permission check failed" {
		t.Fatalf("expected fail-closed denial, got %+v", res)
	}
}

func TestSoftBannedActionIsViewOnly(t *testing.T) {
	g := newGuard(&models.MeetupSnapshot{IsMember: true, IsSoftBanned: true}, nil, nil)
	res := g.CanPostMessage(context.Background(), "m1", "u1")
	if res.Action != "view-only" {
		t.Fatalf("expected view-only action, got %+v", res)
	}
}

func TestCanUploadFileQuotas(t *testing.T) {
	snap := member()
	g := newGuard(snap, nil, nil)
	if res := g.CanUploadFile(context.Background(), "m1", "u1", 1024); !res.Allowed {
		t.Fatalf("small upload should pass, got %+v", res)
	}
	if res := g.CanUploadFile(context.Background(), "m1", "u1", 11*1024*1024); res.Allowed || res.Reason != "File size exceeds 10MB limit" {
		t.Fatalf("oversize file: %+v", res)
	}
	snap.FilesCount = 25
	if res := g.CanUploadFile(context.Background(), "m1", "u1", 1024); res.Allowed || res.Reason != "Meetup has reached the maximum of 25 files" {
		t.Fatalf("file count cap: %+v", res)
	}
	snap.FilesCount = 0
	snap.TotalBytes = 95 * 1024 * 1024
	if res := g.CanUploadFile(context.Background(), "m1", "u1", 6*1024*1024); res.Allowed || res.Reason != "Upload would exceed the 100MB storage limit" {
		t.Fatalf("byte quota: %+v", res)
	}
}

func TestCanJoinMeetup(t *testing.T) {
	g := newGuard(&models.MeetupSnapshot{IsMember: false}, nil, nil)
	if res := g.CanJoinMeetup(context.Background(), "m1", "u1"); !res.Allowed {
		t.Fatalf("non-member should be able to join, got %+v", res)
	}
	g = newGuard(member(), nil, nil)
	if res := g.CanJoinMeetup(context.Background(), "m1", "u1"); res.Allowed || res.Reason != "You are already a member of this meetup" {
		t.Fatalf("double join: %+v", res)
	}
	g = newGuard(&models.MeetupSnapshot{IsEnded: true}, nil, nil)
	if res := g.CanJoinMeetup(context.Background(), "m1", "u1"); res.Allowed || res.Reason != "Meetup has ended" {
		t.Fatalf("join ended: %+v", res)
	}
}

func TestCanLeaveMeetupHostBlocked(t *testing.T) {
	g := newGuard(&models.MeetupSnapshot{IsMember: true, IsHost: true}, nil, nil)
	res := g.CanLeaveMeetup(context.Background(), "m1", "host")
	if res.Allowed || res.Reason != "Hosts cannot leave their own meetup. End the meetup instead." {
		t.Fatalf("host leave: %+v", res)
	}
}

func TestCanEndMeetupHostOnly(t *testing.T) {
	g := newGuard(member(), nil, nil)
	if res := g.CanEndMeetup(context.Background(), "m1", "u1"); res.Allowed || res.Reason != "Only the host can end the meetup" {
		t.Fatalf("member ending: %+v", res)
	}
	g = newGuard(&models.MeetupSnapshot{IsMember: true, IsHost: true}, nil, nil)
	if res := g.CanEndMeetup(context.Background(), "m1", "host"); !res.Allowed {
		t.Fatalf("host ending: %+v", res)
	}
}

func TestCanReportSelfBlocked(t *testing.T) {
	g := newGuard(member(), nil, nil)
	res := g.CanReport(context.Background(), "m1", "u1", models.TargetUser, "u1")
	if res.Allowed || res.Reason != "You cannot report yourself" {
		t.Fatalf("self report: %+v", res)
	}
	if res := g.CanReport(context.Background(), "m1", "u1", models.TargetUser, "u2"); !res.Allowed {
		t.Fatalf("reporting another user: %+v", res)
	}
	// self-id only matters for user targets
	if res := g.CanReport(context.Background(), "m1", "u1", models.TargetMessage, "u1"); !res.Allowed {
		t.Fatalf("reporting a message: %+v", res)
	}
}

func TestCanCreateAnnouncementHostOnly(t *testing.T) {
	g := newGuard(member(), nil, nil)
	res := g.CanCreateAnnouncement(context.Background(), "m1", "u1")
	if res.Allowed || res.Reason != "Only the host can create announcements" {
		t.Fatalf("member announcement: %+v", res)
	}
}

func TestCanCreateMeetupRequiresUser(t *testing.T) {
	g := newGuard(nil, nil, nil)
	if res := g.CanCreateMeetup(""); res.Allowed || res.Reason != "User not authenticated" {
		t.Fatalf("anonymous create: %+v", res)
	}
	if res := g.CanCreateMeetup("u1"); !res.Allowed {
		t.Fatalf("authenticated create: %+v", res)
	}
}

func TestShouldSoftBanThreshold(t *testing.T) {
	g := newGuard(member(), nil, &fakeReports{count: 2})
	if d := g.ShouldSoftBan(context.Background(), "m1", "u2"); d.Restrict {
		t.Fatalf("2 reports must not restrict: %+v", d)
	}
	g = newGuard(member(), nil, &fakeReports{count: 3})
	d := g.ShouldSoftBan(context.Background(), "m1", "u2")
	if !d.Restrict || d.ReportCount != 3 {
		t.Fatalf("3 reports must restrict: %+v", d)
	}
	if d.Reason != "User has 3 reports in the last 10 minutes" {
		t.Fatalf("unexpected reason: %q", d.Reason)
	}
}

func TestShouldSoftBanNeverRestrictsOnCountError(t *testing.T) {
	g := newGuard(member(), nil, &fakeReports{err: errors.New("count backend down")})
	d := g.ShouldSoftBan(context.Background(), "m1", "u2")
	if d.Restrict {
		t.Fatal("a failed count must not trigger a restriction")
	}
	if d.Reason != "Soft-ban check failed" {
		t.Fatalf("unexpected reason: %q", d.Reason)
	}
}
