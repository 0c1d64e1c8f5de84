package models

// TargetType identifies what a report points at.
type TargetType string

const (
	TargetUser    TargetType = "user"
	TargetMessage TargetType = "message"
	TargetFile    TargetType = "file"
)

// Report is a user-submitted moderation report. Reports are immutable and
// read only in aggregate; authoritative state lives server-side.
type Report struct {
	MeetupID   string     `json:"meetup_id"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	ReporterID string     `json:"reporter_id"`
	Reason     string     `json:"reason,omitempty"`
	// CreatedAt is unix milliseconds.
	CreatedAt int64 `json:"created_at"`
}

// MeetupSnapshot is the per-viewer membership state the guard layer
// evaluates. It is fetched from the backend for a (meetup, user) pair.
type MeetupSnapshot struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	HostID        string `json:"host_id"`
	IsEnded       bool   `json:"is_ended"`
	IsMember      bool   `json:"is_member"`
	IsHost        bool   `json:"is_host"`
	IsSoftBanned  bool   `json:"is_soft_banned"`
	AttendeeCount int    `json:"attendee_count"`
	FilesCount    int    `json:"files_count"`
	TotalBytes    int64  `json:"total_bytes"`
}
