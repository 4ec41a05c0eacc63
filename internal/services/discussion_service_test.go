package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/placementlab/gdroom/internal/gateway"
	"github.com/placementlab/gdroom/internal/models"
	"github.com/placementlab/gdroom/internal/providers/llm"
	"github.com/placementlab/gdroom/internal/store"
	"github.com/placementlab/gdroom/internal/utils"
)

type stubGateway struct {
	topic        gateway.TopicAnnouncement
	reply        string
	report       models.EvaluationReport
	replyCalls   int
	evalAllCalls int
	lastRecent   []models.Message
	lastTrigger  string
}

func (g *stubGateway) GenerateTopic(_ context.Context) gateway.TopicAnnouncement {
	return g.topic
}

func (g *stubGateway) CandidateReply(_ context.Context, _ string, _ string, recent []models.Message, trigger string) string {
	g.replyCalls++
	g.lastRecent = recent
	g.lastTrigger = trigger
	return g.reply
}

func (g *stubGateway) EvaluateAll(_ context.Context, _ string, participants []models.Participant, _ map[string]*models.ParticipationData) models.EvaluationReport {
	g.evalAllCalls++
	rankings := make([]models.Evaluation, 0, len(participants))
	for i, p := range participants {
		if p.Name == models.AdminName {
			continue
		}
		rankings = append(rankings, models.Evaluation{Name: p.Name, OverallScore: 6, Rank: i + 1})
	}
	return models.EvaluationReport{Rankings: rankings, Summary: "done"}
}

func newTestService(t *testing.T) (DiscussionService, *store.Store, *stubGateway) {
	t.Helper()
	gw := &stubGateway{
		topic: gateway.TopicAnnouncement{Topic: "Remote work", Message: "Please begin."},
		reply: "That is a fair point.",
	}
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	st := store.New()
	return NewDiscussionService(st, gw, lg), st, gw
}

func TestCreate_SeedsHumanAndFourCandidates(t *testing.T) {
	svc, _, _ := newTestService(t)

	snap, err := svc.Create(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != models.StatusInitialized {
		t.Fatalf("expected initialized, got %s", snap.Status)
	}
	if snap.Topic != nil {
		t.Fatal("topic must be nil before start")
	}
	if len(snap.Participants) != 5 {
		t.Fatalf("expected 5 participants, got %d", len(snap.Participants))
	}
	if snap.Participants[0].Name != "YOU" || !snap.Participants[0].IsHuman {
		t.Fatal("first participant must be the human YOU")
	}
	for i, name := range []string{"Candidate 1", "Candidate 2", "Candidate 3", "Candidate 4"} {
		if snap.Participants[i+1].Name != name {
			t.Fatalf("expected %s at slot %d, got %s", name, i+1, snap.Participants[i+1].Name)
		}
	}
}

func TestCreate_GeneratesIDWhenOmitted(t *testing.T) {
	svc, st, _ := newTestService(t)

	snap, err := svc.Create(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if snap.SessionID == "" {
		t.Fatal("expected generated session id")
	}
	if _, err := st.Get(snap.SessionID); err != nil {
		t.Fatal("session must be registered under the generated id")
	}
}

func TestCreate_DuplicateID(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(context.Background(), "s1")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestStart_SetsTopicAndAdminMessage(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Start(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Topic != "Remote work" || res.AdminMessage != "Please begin." {
		t.Fatalf("unexpected start result %+v", res)
	}

	sess, _ := st.Get("s1")
	if sess.Status != models.StatusInProgress {
		t.Fatalf("expected in_progress, got %s", sess.Status)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Participant != models.AdminName {
		t.Fatal("expected admin opening in transcript")
	}
}

func TestStart_SecondCallRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Start(context.Background(), "s1")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT on second start, got %v", err)
	}
}

func TestStart_UnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Start(context.Background(), "nope")
	if !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

type failingProvider struct{}

func (failingProvider) Complete(context.Context, llm.Request) (string, error) {
	return "", errors.New("upstream unreachable")
}

func (failingProvider) Close() error { return nil }

func TestStart_UpstreamFailureStillStarts(t *testing.T) {
	lg := logrus.New()
	lg.SetLevel(logrus.PanicLevel)
	svc := NewDiscussionService(store.New(), gateway.New(failingProvider{}, lg), lg)

	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Start(context.Background(), "s1")
	if err != nil {
		t.Fatalf("start must succeed on upstream failure, got %v", err)
	}
	if res.Topic != "Should AI replace human jobs in the next decade?" {
		t.Fatalf("expected literal fallback topic, got %q", res.Topic)
	}
}

func TestSendMessage_TracksHumanAndAIReplies(t *testing.T) {
	svc, st, gw := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.SendMessage(context.Background(), SendMessageInput{
		SessionID:   "s1",
		Participant: "YOU",
		Message:     "a b c",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Responses) < 1 || len(res.Responses) > 2 {
		t.Fatalf("expected 1-2 AI replies, got %d", len(res.Responses))
	}
	if gw.lastTrigger != "a b c" {
		t.Fatalf("candidate prompt must carry the triggering input, got %q", gw.lastTrigger)
	}

	sess, _ := st.Get("s1")

	// Admin opening + human message + replies, in generation order.
	wantLen := 2 + len(res.Responses)
	if len(sess.Messages) != wantLen {
		t.Fatalf("expected %d transcript entries, got %d", wantLen, len(sess.Messages))
	}
	for i, r := range res.Responses {
		if sess.Messages[2+i].Participant != r.Participant {
			t.Fatal("transcript order must match generation order")
		}
	}

	human := sess.ParticipationData["YOU"]
	if human.SpeakingCount != 1 || human.WordCount != 3 {
		t.Fatalf("human metrics not tracked: %+v", human)
	}
	for _, r := range res.Responses {
		data := sess.ParticipationData[r.Participant]
		if data.SpeakingCount != 1 {
			t.Fatalf("reply by %s not tracked", r.Participant)
		}
		if data.EntryTime == nil {
			t.Fatalf("entry time for %s not set", r.Participant)
		}
	}
}

func TestSendMessage_DistinctResponders(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		res, err := svc.SendMessage(context.Background(), SendMessageInput{
			SessionID: "s1", Participant: "YOU", Message: "hello",
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Responses) == 2 && res.Responses[0].Participant == res.Responses[1].Participant {
			t.Fatal("the same candidate must not reply twice to one message")
		}
	}
}

func TestSendMessage_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SendMessage(context.Background(), SendMessageInput{SessionID: "s1"})
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestTick_SpeaksUnprompted(t *testing.T) {
	svc, st, gw := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	msg, err := svc.Tick(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if msg.Participant == "YOU" || msg.Participant == models.AdminName {
		t.Fatalf("tick must pick an AI candidate, got %s", msg.Participant)
	}
	if gw.lastTrigger != "" {
		t.Fatal("tick turns carry no triggering input")
	}

	sess, _ := st.Get("s1")
	if len(sess.Messages) != 2 {
		t.Fatalf("expected tick reply appended, transcript has %d entries", len(sess.Messages))
	}
	if sess.ParticipationData[msg.Participant].SpeakingCount != 1 {
		t.Fatal("tick reply must be tracked")
	}
}

func TestTick_InactiveSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Tick(context.Background(), "s1")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT for inactive session, got %v", err)
	}
}

func TestTick_NoCandidates(t *testing.T) {
	svc, st, _ := newTestService(t)

	sess, err := st.Create("s1")
	if err != nil {
		t.Fatal(err)
	}
	sess.AddParticipant("YOU", true)
	if err := sess.Start("Topic", "go"); err != nil {
		t.Fatal(err)
	}

	_, err = svc.Tick(context.Background(), "s1")
	if !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT when no AI candidates, got %v", err)
	}
}

func TestInjectCandidates_NoopBeforeThreshold(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	sess, _ := st.Get("s1")
	past := time.Now().Add(-250 * time.Second)
	sess.StartTime = &past

	participants, err := svc.InjectCandidates(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(participants) != 5 {
		t.Fatalf("expected no-op before 300s, got %d participants", len(participants))
	}
}

func TestInjectCandidates_OneHumanAddsTwo(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	sess, _ := st.Get("s1")
	past := time.Now().Add(-310 * time.Second)
	sess.StartTime = &past

	participants, err := svc.InjectCandidates(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(participants) != 7 {
		t.Fatalf("expected 2 extra candidates, got %d participants", len(participants))
	}
	if participants[5].Name != "Candidate 5" || participants[6].Name != "Candidate 6" {
		t.Fatal("candidate numbering must stay monotonic")
	}
}

func TestInjectCandidates_TwoHumansAddOne(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	sess, _ := st.Get("s1")
	sess.AddParticipant("Friend", true)
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-301 * time.Second)
	sess.StartTime = &past

	participants, err := svc.InjectCandidates(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(participants) != 7 { // 6 seeded + 1 injected
		t.Fatalf("expected 1 extra candidate for two humans, got %d participants", len(participants))
	}
}

func TestEnd_CompletesAndEvaluates(t *testing.T) {
	svc, st, gw := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Start(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.End(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if res.AdminClosing == "" {
		t.Fatal("expected admin closing message")
	}
	if gw.evalAllCalls != 1 {
		t.Fatal("expected one evaluation pass")
	}
	if len(res.Evaluation.Rankings) != 5 {
		t.Fatalf("expected all 5 participants evaluated, got %d", len(res.Evaluation.Rankings))
	}

	sess, _ := st.Get("s1")
	if sess.Status != models.StatusCompleted {
		t.Fatalf("expected completed, got %s", sess.Status)
	}
	last := sess.Messages[len(sess.Messages)-1]
	if last.Participant != models.AdminName || last.Message != res.AdminClosing {
		t.Fatal("expected closing message in the transcript")
	}
}

func TestStatus_SnapshotIsDetached(t *testing.T) {
	svc, st, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	snap, err := svc.Status(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}

	sess, _ := st.Get("s1")
	sess.Lock()
	sess.AddMessage("YOU", "later", time.Now().UTC().Format(time.RFC3339))
	sess.Unlock()

	if len(snap.Messages) != 0 {
		t.Fatal("snapshot must not alias live session state")
	}
}

func TestDelete_RemovesSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Create(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}

	svc.Delete(context.Background(), "s1")
	_, err := svc.Status(context.Background(), "s1")
	if !utils.IsCode(err, utils.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}
