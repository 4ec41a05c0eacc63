package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/placementlab/gdroom/internal/gateway"
	"github.com/placementlab/gdroom/internal/models"
	"github.com/placementlab/gdroom/internal/store"
	"github.com/placementlab/gdroom/internal/utils"
)

const (
	humanName         = "YOU"
	initialCandidates = 4

	// Seconds of discussion after which late candidates may be injected.
	injectionThreshold = 300

	// Transcript lines handed to the gateway as context.
	recentContext = 5

	closingMessage = "Thank you everyone for your participation. The discussion is now concluded. " +
		"Please wait while we prepare your evaluation reports."
)

// AIGateway is the slice of the gateway the service needs. Methods never
// fail; the gateway absorbs upstream errors into fallback content.
type AIGateway interface {
	GenerateTopic(ctx context.Context) gateway.TopicAnnouncement
	CandidateReply(ctx context.Context, candidateName, topic string, recent []models.Message, triggeringInput string) string
	EvaluateAll(ctx context.Context, topic string, participants []models.Participant, data map[string]*models.ParticipationData) models.EvaluationReport
}

type StartResult struct {
	Topic        string
	AdminMessage string
	StartTime    time.Time
}

type SendMessageInput struct {
	SessionID   string
	Participant string
	Message     string
	Timestamp   string
}

type SendMessageResult struct {
	Responses   []models.Message
	ElapsedTime float64
}

type EndResult struct {
	AdminClosing string
	Evaluation   models.EvaluationReport
}

// StatusSnapshot is a point-in-time copy safe to use after the session lock
// is released.
type StatusSnapshot struct {
	SessionID    string
	Status       string
	Topic        *string
	ElapsedTime  float64
	Participants []models.Participant
	Messages     []models.Message
}

type DiscussionService interface {
	Create(ctx context.Context, sessionID string) (*StatusSnapshot, error)
	Start(ctx context.Context, sessionID string) (*StartResult, error)
	SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error)
	Tick(ctx context.Context, sessionID string) (*models.Message, error)
	InjectCandidates(ctx context.Context, sessionID string) ([]models.Participant, error)
	End(ctx context.Context, sessionID string) (*EndResult, error)
	Status(ctx context.Context, sessionID string) (*StatusSnapshot, error)
	Delete(ctx context.Context, sessionID string)
}

type discussionService struct {
	sessions *store.Store
	ai       AIGateway
	log      *logrus.Logger
}

func NewDiscussionService(sessions *store.Store, ai AIGateway, log *logrus.Logger) DiscussionService {
	return &discussionService{sessions: sessions, ai: ai, log: log}
}

// Create registers a session and seeds the room: one human participant plus
// the initial AI candidates.
func (s *discussionService) Create(ctx context.Context, sessionID string) (*StatusSnapshot, error) {
	const op = "DiscussionService.Create"

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sess, err := s.sessions.Create(sessionID)
	if err != nil {
		if errors.Is(err, store.ErrExists) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "session already exists", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	sess.Lock()
	defer sess.Unlock()

	sess.AddParticipant(humanName, true)
	for i := 0; i < initialCandidates; i++ {
		sess.AddAICandidate()
	}

	s.log.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"participants": len(sess.Participants),
	}).Info("session created")

	return snapshot(sess), nil
}

// Start fixes the topic via the gateway and opens the discussion. A session
// can only be started once.
func (s *discussionService) Start(ctx context.Context, sessionID string) (*StartResult, error) {
	const op = "DiscussionService.Start"

	sess, err := s.get(op, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Status != models.StatusInitialized {
		return nil, utils.E(utils.CodeInvalidArgument, op, "discussion already started", models.ErrAlreadyStarted)
	}

	announcement := s.ai.GenerateTopic(ctx)
	if err := sess.Start(announcement.Topic, announcement.Message); err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "discussion already started", err)
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"topic":      announcement.Topic,
	}).Info("session started")

	return &StartResult{
		Topic:        announcement.Topic,
		AdminMessage: announcement.Message,
		StartTime:    *sess.StartTime,
	}, nil
}

// SendMessage records the human contribution, then has 1-2 randomly chosen
// AI candidates reply in turn. Replies are appended sequentially so the
// transcript order matches generation order.
func (s *discussionService) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	const op = "DiscussionService.SendMessage"

	if in.Participant == "" || in.Message == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "participant and message are required", nil)
	}

	sess, err := s.get(op, in.SessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	ts := in.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}
	sess.AddMessage(in.Participant, in.Message, ts)
	sess.TrackParticipation(in.Participant, in.Message)

	candidates := sess.AICandidates()
	numResponses := rand.IntN(2) + 1
	if numResponses > len(candidates) {
		numResponses = len(candidates)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	responses := make([]models.Message, 0, numResponses)
	for _, candidate := range candidates[:numResponses] {
		reply := s.ai.CandidateReply(ctx, candidate.Name, sess.TopicOrDefault(), lastN(sess.Messages, recentContext), in.Message)

		replyTS := time.Now().UTC().Format(time.RFC3339)
		sess.AddMessage(candidate.Name, reply, replyTS)
		sess.TrackParticipation(candidate.Name, reply)

		responses = append(responses, models.Message{
			Participant: candidate.Name,
			Message:     reply,
			Timestamp:   replyTS,
		})
	}

	return &SendMessageResult{
		Responses:   responses,
		ElapsedTime: sess.ElapsedTime(),
	}, nil
}

// Tick has one random AI candidate speak unprompted to keep the room alive
// between human messages.
func (s *discussionService) Tick(ctx context.Context, sessionID string) (*models.Message, error) {
	const op = "DiscussionService.Tick"

	sess, err := s.get(op, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.Status != models.StatusInProgress {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session not active", nil)
	}

	candidates := sess.AICandidates()
	if len(candidates) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "no AI candidates available", nil)
	}
	candidate := candidates[rand.IntN(len(candidates))]

	reply := s.ai.CandidateReply(ctx, candidate.Name, sess.TopicOrDefault(), lastN(sess.Messages, recentContext), "")

	ts := time.Now().UTC().Format(time.RFC3339)
	sess.AddMessage(candidate.Name, reply, ts)
	sess.TrackParticipation(candidate.Name, reply)

	return &models.Message{
		Participant: candidate.Name,
		Message:     reply,
		Timestamp:   ts,
	}, nil
}

// InjectCandidates adds late joiners once the discussion has run five
// minutes: two extra candidates for a single-human room, one when there are
// two humans, none otherwise. Before the threshold it is a no-op.
func (s *discussionService) InjectCandidates(ctx context.Context, sessionID string) ([]models.Participant, error) {
	const op = "DiscussionService.InjectCandidates"

	sess, err := s.get(op, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	if sess.ElapsedTime() >= injectionThreshold {
		switch sess.HumanCount() {
		case 1:
			sess.AddAICandidate()
			sess.AddAICandidate()
		case 2:
			sess.AddAICandidate()
		}
	}

	out := make([]models.Participant, len(sess.Participants))
	copy(out, sess.Participants)
	return out, nil
}

// End closes the discussion, records the admin sign-off and produces the
// ranked evaluation report.
func (s *discussionService) End(ctx context.Context, sessionID string) (*EndResult, error) {
	const op = "DiscussionService.End"

	sess, err := s.get(op, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	sess.Status = models.StatusCompleted
	sess.AddMessage(models.AdminName, closingMessage, time.Now().UTC().Format(time.RFC3339))

	report := s.ai.EvaluateAll(ctx, sess.TopicOrDefault(), sess.Participants, sess.ParticipationData)

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"evaluated":  len(report.Rankings),
	}).Info("session ended")

	return &EndResult{
		AdminClosing: closingMessage,
		Evaluation:   report,
	}, nil
}

func (s *discussionService) Status(ctx context.Context, sessionID string) (*StatusSnapshot, error) {
	const op = "DiscussionService.Status"

	sess, err := s.get(op, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return snapshot(sess), nil
}

// Delete removes the session from the registry. Unknown ids are ignored.
func (s *discussionService) Delete(ctx context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

func (s *discussionService) get(op, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
	}
	return sess, nil
}

func snapshot(sess *models.Session) *StatusSnapshot {
	participants := make([]models.Participant, len(sess.Participants))
	copy(participants, sess.Participants)
	messages := make([]models.Message, len(sess.Messages))
	copy(messages, sess.Messages)

	return &StatusSnapshot{
		SessionID:    sess.SessionID,
		Status:       sess.Status,
		Topic:        sess.Topic,
		ElapsedTime:  sess.ElapsedTime(),
		Participants: participants,
		Messages:     messages,
	}
}

func lastN(msgs []models.Message, n int) []models.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
