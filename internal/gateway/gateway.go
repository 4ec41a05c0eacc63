package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/placementlab/gdroom/internal/models"
	"github.com/placementlab/gdroom/internal/providers/llm"
)

// Gateway translates discussion events into prompts for the LLM provider and
// parses the results back. Every method returns a usable value: upstream
// failures and malformed completions are logged and replaced with fixed
// fallback content, never surfaced to callers.
type Gateway struct {
	provider llm.Provider
	log      *logrus.Logger
}

func New(provider llm.Provider, log *logrus.Logger) *Gateway {
	return &Gateway{provider: provider, log: log}
}

type TopicAnnouncement struct {
	Topic   string `json:"topic"`
	Message string `json:"message"`
}

const (
	fallbackTopic   = "Should AI replace human jobs in the next decade?"
	fallbackOpening = "Good morning everyone. Today's topic is: Should AI replace human jobs in the next decade? " +
		"This is a corporate-style group discussion. Please maintain professionalism, listen to others, " +
		"and present your viewpoints clearly. You may begin."
	fallbackReply = "I understand the topic. Let me share my perspective."
)

var personalities = []string{
	"analytical and data-driven",
	"passionate and persuasive",
	"balanced and diplomatic",
	"creative and innovative",
	"practical and solution-oriented",
}

const topicPrompt = `You are an HR Admin conducting a Group Discussion for campus placements.

Generate a relevant and challenging GD topic suitable for engineering students.
The topic should be current, debatable, and test their analytical and communication skills.

Then write a professional opening announcement (2-3 sentences) that:
1. Introduces the topic
2. Sets expectations for corporate behavior
3. Starts the discussion

Return response in JSON format:
{
    "topic": "the GD topic",
    "message": "your opening announcement"
}`

// GenerateTopic asks the model for a discussion topic and opening
// announcement. The fallback pair is part of the contract: a session can
// always start.
func (g *Gateway) GenerateTopic(ctx context.Context) TopicAnnouncement {
	raw, err := g.provider.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: topicPrompt}},
		Temperature: 0.8,
	})
	if err == nil {
		var out TopicAnnouncement
		if jsonErr := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); jsonErr == nil && out.Topic != "" && out.Message != "" {
			return out
		}
		err = fmt.Errorf("unparseable topic completion")
	}

	g.log.WithError(err).Warn("topic generation failed, using fallback")
	return TopicAnnouncement{Topic: fallbackTopic, Message: fallbackOpening}
}

// CandidateReply generates a short in-character contribution for one AI
// candidate. Context is the last 3 of the given transcript lines; the
// personality is drawn per call. triggeringInput is empty for unprompted
// (tick) turns.
func (g *Gateway) CandidateReply(ctx context.Context, candidateName, topic string, recent []models.Message, triggeringInput string) string {
	personality := personalities[rand.IntN(len(personalities))]

	contextLines := make([]string, 0, 3)
	start := len(recent) - 3
	if start < 0 {
		start = 0
	}
	for _, msg := range recent[start:] {
		contextLines = append(contextLines, fmt.Sprintf("%s: %s", msg.Participant, msg.Message))
	}

	var sb strings.Builder
	sb.WriteString("You are a candidate in a corporate Group Discussion for campus placements.\n\n")
	fmt.Fprintf(&sb, "Topic: %s\n\n", topic)
	fmt.Fprintf(&sb, "Recent discussion:\n%s\n\n", strings.Join(contextLines, "\n"))
	if triggeringInput != "" {
		fmt.Fprintf(&sb, "Latest input: %s\n\n", triggeringInput)
	}
	fmt.Fprintf(&sb, "Your personality: %s\n\n", personality)
	sb.WriteString(`Generate a response (2-4 sentences) that:
- Relates to the topic and ongoing discussion
- Shows you're listening to others
- Presents a clear viewpoint
- Uses professional language
- Occasionally builds on or politely disagrees with others

Keep it natural and conversational. DO NOT be overly formal.`)

	raw, err := g.provider.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: sb.String()}},
		Temperature: 0.9,
		MaxTokens:   150,
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		g.log.WithError(err).WithField("candidate", candidateName).Warn("candidate reply failed, using fallback")
		return fallbackReply
	}
	return strings.TrimSpace(raw)
}

// evaluationResult mirrors the JSON the evaluator prompt asks for.
type evaluationResult struct {
	Communication      float64  `json:"communication"`
	ContentRelevance   float64  `json:"content_relevance"`
	Leadership         float64  `json:"leadership"`
	Confidence         float64  `json:"confidence"`
	TeamBehavior       float64  `json:"team_behavior"`
	CorporateReadiness float64  `json:"corporate_readiness"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	HRRemarks          string   `json:"hr_remarks"`
	Suggestions        []string `json:"suggestions"`
}

// EvaluateParticipant scores one participant. On any upstream or parse
// failure it returns the complete default record so ranking never breaks.
func (g *Gateway) EvaluateParticipant(ctx context.Context, name, topic string, speakingCount, wordCount int, entryTime float64, messages []string) models.Evaluation {
	content := "No contribution"
	if len(messages) > 0 {
		content = strings.Join(messages, " ")
	}

	prompt := fmt.Sprintf(`You are an HR evaluator for campus placements conducting a strict GD evaluation.

Participant: %s
Topic: %s
Speaking frequency: %d times
Total words: %d
Entry time: %.1f seconds
Content: %s

Evaluate this participant on a scale of 1-10 for each:

1. Communication: Clarity, articulation, confidence
2. Content Relevance: How well they addressed the topic
3. Leadership: Initiative, guiding discussion
4. Confidence: Body language (inferred), conviction
5. Team Behavior: Listening, building on others' points
6. Corporate Readiness: Professional language, maturity

Also provide:
- 2-3 specific strengths
- 2-3 areas for improvement
- 1-2 sentences of HR remarks
- 2-3 actionable suggestions for improvement

Return ONLY valid JSON:
{
    "communication": score,
    "content_relevance": score,
    "leadership": score,
    "confidence": score,
    "team_behavior": score,
    "corporate_readiness": score,
    "strengths": ["strength1", "strength2"],
    "weaknesses": ["weakness1", "weakness2"],
    "hr_remarks": "remarks here",
    "suggestions": ["suggestion1", "suggestion2"]
}`, name, topic, speakingCount, wordCount, entryTime, content)

	raw, err := g.provider.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		g.log.WithError(err).WithField("participant", name).Warn("evaluation failed, using default record")
		return defaultEvaluation(name)
	}

	var result evaluationResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		g.log.WithError(err).WithField("participant", name).Warn("unparseable evaluation, using default record")
		return defaultEvaluation(name)
	}

	overall := (result.Communication + result.ContentRelevance + result.Leadership +
		result.Confidence + result.TeamBehavior + result.CorporateReadiness) / 6

	return models.Evaluation{
		Name:               name,
		Communication:      result.Communication,
		ContentRelevance:   result.ContentRelevance,
		Leadership:         result.Leadership,
		Confidence:         result.Confidence,
		TeamBehavior:       result.TeamBehavior,
		CorporateReadiness: result.CorporateReadiness,
		OverallScore:       round2(overall),
		Strengths:          result.Strengths,
		Weaknesses:         result.Weaknesses,
		HRRemarks:          result.HRRemarks,
		Suggestions:        result.Suggestions,
		PlacementReadiness: readinessLevel(overall),
	}
}

// EvaluateAll scores every participant except the admin and ranks them by
// overall score, best first. Ties keep their original evaluation order.
func (g *Gateway) EvaluateAll(ctx context.Context, topic string, participants []models.Participant, data map[string]*models.ParticipationData) models.EvaluationReport {
	evaluations := make([]models.Evaluation, 0, len(participants))

	for _, p := range participants {
		if p.Name == models.AdminName {
			continue
		}

		speakingCount, wordCount := 0, 0
		entryTime := 999.0
		var messages []string
		if d, ok := data[p.Name]; ok && d != nil {
			speakingCount = d.SpeakingCount
			wordCount = d.WordCount
			messages = d.Messages
			if d.EntryTime != nil {
				entryTime = *d.EntryTime
			}
		}

		evaluations = append(evaluations, g.EvaluateParticipant(ctx, p.Name, topic, speakingCount, wordCount, entryTime, messages))
	}

	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].OverallScore > evaluations[j].OverallScore
	})
	for i := range evaluations {
		evaluations[i].Rank = i + 1
	}

	return models.EvaluationReport{
		Rankings: evaluations,
		Summary: fmt.Sprintf("Evaluation complete for %d participants. Rankings have been determined based on comprehensive performance analysis.",
			len(evaluations)),
	}
}

func defaultEvaluation(name string) models.Evaluation {
	return models.Evaluation{
		Name:               name,
		Communication:      6,
		ContentRelevance:   6,
		Leadership:         5,
		Confidence:         6,
		TeamBehavior:       7,
		CorporateReadiness: 6,
		OverallScore:       6.0,
		Strengths:          []string{"Participated in discussion", "Professional demeanor"},
		Weaknesses:         []string{"Could improve content depth", "Need more initiative"},
		HRRemarks:          "Satisfactory performance with room for growth.",
		Suggestions:        []string{"Practice speaking with more examples", "Take more initiative"},
		PlacementReadiness: "Moderate",
	}
}

func readinessLevel(score float64) string {
	switch {
	case score >= 8.5:
		return "Excellent - Ready for top-tier placements"
	case score >= 7.5:
		return "Good - Ready for mid-tier placements"
	case score >= 6.5:
		return "Moderate - Needs practice"
	default:
		return "Needs Significant Improvement"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
