package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Session status values. Transitions are one-directional:
// initialized -> in_progress -> completed.
const (
	StatusInitialized = "initialized"
	StatusInProgress  = "in_progress"
	StatusCompleted   = "completed"
)

// AdminName is the fixed moderator role. The admin speaks in the transcript
// but is never a participant and is never evaluated.
const AdminName = "Admin"

var ErrAlreadyStarted = errors.New("discussion already started")

type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	IsHuman  bool      `json:"is_human"`
	JoinTime time.Time `json:"join_time"`
}

type Message struct {
	Participant string `json:"participant"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
}

// ParticipationData aggregates per-participant statistics used for the
// end-of-session evaluation. EntryTime is the elapsed seconds at which the
// participant first spoke; nil until then, set exactly once.
type ParticipationData struct {
	Messages      []string `json:"messages"`
	EntryTime     *float64 `json:"entry_time"`
	SpeakingCount int      `json:"speaking_count"`
	WordCount     int      `json:"word_count"`
}

// Session is the root aggregate of one group-discussion run. Participants are
// kept in join order and the transcript is append-only. ParticipationData is
// keyed by display name; two participants sharing a name collide into one
// entry (see DESIGN.md).
//
// Mutation methods do not lock. Callers serialize access per session through
// Lock/Unlock around each read-modify-write.
type Session struct {
	mu sync.Mutex

	SessionID         string                        `json:"session_id"`
	Status            string                        `json:"status"`
	Topic             *string                       `json:"topic"`
	StartTime         *time.Time                    `json:"start_time"`
	Participants      []Participant                 `json:"participants"`
	Messages          []Message                     `json:"messages"`
	ParticipationData map[string]*ParticipationData `json:"participation_data"`

	participantCount int
	candidateCount   int
}

func NewSession(id string) *Session {
	return &Session{
		SessionID:         id,
		Status:            StatusInitialized,
		Participants:      []Participant{},
		Messages:          []Message{},
		ParticipationData: map[string]*ParticipationData{},
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// AddParticipant appends a participant with the next sequential id and a
// zeroed metrics entry.
func (s *Session) AddParticipant(name string, isHuman bool) Participant {
	p := Participant{
		ID:       fmt.Sprintf("p%d", s.participantCount),
		Name:     name,
		IsHuman:  isHuman,
		JoinTime: time.Now().UTC(),
	}
	s.Participants = append(s.Participants, p)
	s.ParticipationData[name] = &ParticipationData{Messages: []string{}}
	s.participantCount++
	return p
}

// AddAICandidate adds the next "Candidate N" participant. The counter is
// monotonic for the life of the session and numbers are never reused.
func (s *Session) AddAICandidate() string {
	s.candidateCount++
	name := fmt.Sprintf("Candidate %d", s.candidateCount)
	s.AddParticipant(name, false)
	return name
}

// Start moves the session to in_progress, fixes the topic and start time and
// records the admin opening announcement. A second call is rejected.
func (s *Session) Start(topic, adminMessage string) error {
	if s.Status != StatusInitialized {
		return ErrAlreadyStarted
	}
	now := time.Now().UTC()
	s.Status = StatusInProgress
	s.Topic = &topic
	s.StartTime = &now
	s.AddMessage(AdminName, adminMessage, now.Format(time.RFC3339))
	return nil
}

// AddMessage appends to the transcript unconditionally. Status gating is the
// caller's responsibility.
func (s *Session) AddMessage(participant, message, timestamp string) {
	s.Messages = append(s.Messages, Message{
		Participant: participant,
		Message:     message,
		Timestamp:   timestamp,
	})
}

// TrackParticipation updates the speaker's metrics: speaking count, word
// count (whitespace-delimited tokens) and first-entry time. Unknown names are
// ignored; AddParticipant must have run first.
func (s *Session) TrackParticipation(participant, message string) {
	data, ok := s.ParticipationData[participant]
	if !ok {
		return
	}
	data.Messages = append(data.Messages, message)
	data.SpeakingCount++
	data.WordCount += len(strings.Fields(message))
	if data.EntryTime == nil {
		t := s.ElapsedTime()
		data.EntryTime = &t
	}
}

// ElapsedTime returns seconds since the session started, 0 if it has not.
func (s *Session) ElapsedTime() float64 {
	if s.StartTime == nil {
		return 0
	}
	return time.Since(*s.StartTime).Seconds()
}

func (s *Session) HumanCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.IsHuman {
			n++
		}
	}
	return n
}

// AICandidates returns the participants eligible to speak unprompted: every
// non-human participant except the admin.
func (s *Session) AICandidates() []Participant {
	out := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if !p.IsHuman && p.Name != AdminName {
			out = append(out, p)
		}
	}
	return out
}

// TopicOrDefault is used where a prompt needs a topic before one was set.
func (s *Session) TopicOrDefault() string {
	if s.Topic == nil || *s.Topic == "" {
		return "General Discussion"
	}
	return *s.Topic
}
