package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garvnn/meetup/pkg/models"
)

var (
	ErrMeetupNotFound = errors.New("meetup not found")
	ErrTokenInvalid   = errors.New("invalid or expired invite token")
)

type meetupRecord struct {
	ID         string
	Title      string
	Desc       string
	HostID     string
	HostName   string
	StartTS    time.Time
	EndTS      time.Time
	Lat, Lng   float64
	Visibility string
	Ended      bool
}

type tokenRecord struct {
	Token     string
	MeetupID  string
	ExpiresAt time.Time
	Revoked   bool
}

type banRecord struct {
	MeetupID  string
	UserID    string
	ExpiresAt time.Time
}

// Repository is the in-memory state behind the dev backend. All access
// goes through the mutex; there is deliberately no package-level mutable
// state so tests can run isolated instances side by side.
type Repository struct {
	mu       sync.RWMutex
	now      func() time.Time
	meetups  map[string]*meetupRecord
	tokens   map[string]*tokenRecord
	members  map[string]map[string]bool
	bans     []banRecord
	messages map[string][]models.Message
	reports  []models.Report
	msgSeq   uint64
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		now:      time.Now,
		meetups:  make(map[string]*meetupRecord),
		tokens:   make(map[string]*tokenRecord),
		members:  make(map[string]map[string]bool),
		messages: make(map[string][]models.Message),
	}
}

// CreateMeetup registers a meetup with its host as first member and mints
// an invite token with the given TTL.
func (r *Repository) CreateMeetup(title, desc, hostID, hostName string, start, end time.Time, lat, lng float64, visibility string, tokenTTL time.Duration) (meetupID, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meetupID = uuid.NewString()
	r.meetups[meetupID] = &meetupRecord{
		ID: meetupID, Title: title, Desc: desc,
		HostID: hostID, HostName: hostName,
		StartTS: start, EndTS: end,
		Lat: lat, Lng: lng, Visibility: visibility,
	}
	r.members[meetupID] = map[string]bool{hostID: true}
	token = uuid.NewString()
	r.tokens[token] = &tokenRecord{
		Token:     token,
		MeetupID:  meetupID,
		ExpiresAt: r.now().Add(tokenTTL),
	}
	return meetupID, token
}

// ResolveToken validates an invite token (exists, not revoked, not
// expired) and returns its meetup ID.
func (r *Repository) ResolveToken(token string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tokens[token]
	if !ok || rec.Revoked || r.now().After(rec.ExpiresAt) {
		return "", ErrTokenInvalid
	}
	return rec.MeetupID, nil
}

// RevokeToken invalidates an invite token.
func (r *Repository) RevokeToken(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.tokens[token]; ok {
		rec.Revoked = true
	}
}

// Join adds a user to a meetup's membership.
func (r *Repository) Join(meetupID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetups[meetupID]; !ok {
		return ErrMeetupNotFound
	}
	if r.members[meetupID] == nil {
		r.members[meetupID] = make(map[string]bool)
	}
	r.members[meetupID][userID] = true
	return nil
}

// Leave removes a user from a meetup's membership.
func (r *Repository) Leave(meetupID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[meetupID], userID)
}

// EndMeetup marks the meetup ended; messages become read-only.
func (r *Repository) EndMeetup(meetupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetups[meetupID]
	if !ok {
		return ErrMeetupNotFound
	}
	m.Ended = true
	return nil
}

// SoftBan restricts a user in a meetup until the given expiry.
func (r *Repository) SoftBan(meetupID, userID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetups[meetupID]; !ok {
		return ErrMeetupNotFound
	}
	r.bans = append(r.bans, banRecord{MeetupID: meetupID, UserID: userID, ExpiresAt: until})
	return nil
}

func (r *Repository) isSoftBannedLocked(meetupID, userID string) bool {
	now := r.now()
	for _, b := range r.bans {
		if b.MeetupID == meetupID && b.UserID == userID && now.Before(b.ExpiresAt) {
			return true
		}
	}
	return false
}

// AppendMessage stores a message with a durable server ID.
func (r *Repository) AppendMessage(meetupID, userID, userName, text string, kind models.MessageKind) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meetups[meetupID]; !ok {
		return models.Message{}, ErrMeetupNotFound
	}
	r.msgSeq++
	m := models.Message{
		ID:         fmt.Sprintf("srv-%d", r.msgSeq),
		MeetupID:   meetupID,
		Text:       text,
		SenderID:   userID,
		SenderName: userName,
		TS:         r.now().UTC().UnixMilli(),
		Kind:       kind,
	}
	r.messages[meetupID] = append(r.messages[meetupID], m)
	return m, nil
}

// Messages returns the requested page of a meetup's messages in timestamp
// order, plus the total count.
func (r *Repository) Messages(meetupID string, limit, offset int) ([]models.Message, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.messages[meetupID]
	out := append([]models.Message(nil), all...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	total := len(out)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], total
}

// AddReport records a moderation report.
func (r *Repository) AddReport(rep models.Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep.CreatedAt == 0 {
		rep.CreatedAt = r.now().UTC().UnixMilli()
	}
	r.reports = append(r.reports, rep)
}

// CountReports implements guards.ReportSource: reports against a target
// user inside the sliding window.
func (r *Repository) CountReports(_ context.Context, meetupID, targetUserID string, window time.Duration) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cutoff := r.now().UTC().Add(-window).UnixMilli()
	n := 0
	for _, rep := range r.reports {
		if rep.MeetupID == meetupID && rep.TargetType == models.TargetUser && rep.TargetID == targetUserID && rep.CreatedAt >= cutoff {
			n++
		}
	}
	return n, nil
}

// MeetupSnapshot implements guards.MeetupDirectory. A missing meetup
// yields (nil, nil) so guards report "Meetup not found".
func (r *Repository) MeetupSnapshot(_ context.Context, meetupID, userID string) (*models.MeetupSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meetups[meetupID]
	if !ok {
		return nil, nil
	}
	return &models.MeetupSnapshot{
		ID:            m.ID,
		Title:         m.Title,
		HostID:        m.HostID,
		IsEnded:       m.Ended || (!m.EndTS.IsZero() && r.now().After(m.EndTS)),
		IsMember:      r.members[meetupID][userID],
		IsHost:        m.HostID == userID,
		IsSoftBanned:  r.isSoftBannedLocked(meetupID, userID),
		AttendeeCount: len(r.members[meetupID]),
	}, nil
}
