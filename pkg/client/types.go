package client

import "github.com/garvnn/meetup/pkg/models"

// Wire types for the meetup HTTP JSON API. Every response carries an
// explicit success flag; failures are surfaced as *APIError rather than
// loosely-typed maps.

// CreateMeetupRequest creates a private event.
type CreateMeetupRequest struct {
	Title         string  `json:"title"`
	Desc          string  `json:"desc,omitempty"`
	StartTS       string  `json:"start_ts"`
	EndTS         string  `json:"end_ts"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Visibility    string  `json:"visibility"`
	TokenTTLHours int     `json:"token_ttl_hours,omitempty"`
	HostID        string  `json:"host_id"`
	HostName      string  `json:"host_name,omitempty"`
}

type CreateMeetupResponse struct {
	MeetupID string `json:"meetup_id"`
	Token    string `json:"token"`
	DeepLink string `json:"deep_link"`
	WebLink  string `json:"web_link"`
	Success  bool   `json:"success"`
}

// AcceptInviteRequest redeems an invite token.
type AcceptInviteRequest struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type AcceptInviteResponse struct {
	MeetupID string `json:"meetup_id"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
}

// SoftBanRequest applies a moderation restriction.
type SoftBanRequest struct {
	MeetupID     string `json:"meetup_id"`
	TargetUserID string `json:"target_user_id"`
	EnactedBy    string `json:"enacted_by"`
	Reason       string `json:"reason,omitempty"`
}

type SoftBanResponse struct {
	Success   bool  `json:"success"`
	ExpiresAt int64 `json:"expires_at,omitempty"`
}

// SendMessageRequest delivers a chat or announcement message.
type SendMessageRequest struct {
	MeetupID    string `json:"meetup_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	Message     string `json:"message"`
	MessageType string `json:"message_type"`
}

type SendMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
}

// GetMessagesRequest is a paged fetch over the time-ordered list.
type GetMessagesRequest struct {
	MeetupID string `json:"meetup_id"`
	UserID   string `json:"user_id"`
	Limit    int    `json:"limit"`
	Offset   int    `json:"offset"`
}

// WireMessage is the API's message shape; the sync engine converts it
// into models.Message.
type WireMessage struct {
	ID          string `json:"id"`
	MeetupID    string `json:"meetup_id"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name,omitempty"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
	MessageType string `json:"message_type"`
}

type GetMessagesResponse struct {
	Success  bool          `json:"success"`
	Messages []WireMessage `json:"messages"`
	Total    int           `json:"total,omitempty"`
}

// ReportRequest submits a moderation report.
type ReportRequest struct {
	MeetupID   string `json:"meetup_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	ReporterID string `json:"reporter_id"`
	Reason     string `json:"reason,omitempty"`
}

type ReportResponse struct {
	Success     bool `json:"success"`
	ReportCount int  `json:"report_count,omitempty"`
}

// SnapshotRequest fetches the per-viewer membership snapshot for a
// (meetup, user) pair.
type SnapshotRequest struct {
	MeetupID string `json:"meetup_id"`
	UserID   string `json:"user_id"`
}

type SnapshotResponse struct {
	Success  bool                   `json:"success"`
	Found    bool                   `json:"found"`
	Snapshot *models.MeetupSnapshot `json:"snapshot,omitempty"`
}

// ReportCountRequest counts reports against a user inside a sliding
// window.
type ReportCountRequest struct {
	MeetupID      string `json:"meetup_id"`
	TargetUserID  string `json:"target_user_id"`
	WindowSeconds int64  `json:"window_seconds"`
}

type ReportCountResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
