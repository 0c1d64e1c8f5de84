package client

import (
	"context"
	"time"

	"github.com/garvnn/meetup/pkg/models"
)

// Directory answers the guard layer's snapshot and report-count lookups
// over the remote API, as the production counterpart of the in-process
// repository. Transport failures surface as errors, which the guards
// treat as denials.
type Directory struct {
	c *Client
}

// NewDirectory returns a Directory over the given API client.
func NewDirectory(c *Client) *Directory {
	return &Directory{c: c}
}

// MeetupSnapshot fetches the membership snapshot for a (meetup, user)
// pair. A meetup unknown to the backend yields (nil, nil).
func (d *Directory) MeetupSnapshot(ctx context.Context, meetupID, userID string) (*models.MeetupSnapshot, error) {
	var out SnapshotResponse
	if err := d.c.post(ctx, "/meetup_snapshot", SnapshotRequest{MeetupID: meetupID, UserID: userID}, &out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, nil
	}
	return out.Snapshot, nil
}

// CountReports counts reports against the target user inside the window.
func (d *Directory) CountReports(ctx context.Context, meetupID, targetUserID string, window time.Duration) (int, error) {
	var out ReportCountResponse
	in := ReportCountRequest{
		MeetupID:      meetupID,
		TargetUserID:  targetUserID,
		WindowSeconds: int64(window.Seconds()),
	}
	if err := d.c.post(ctx, "/report_count", in, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
