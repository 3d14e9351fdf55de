package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ragbase/ragbase/internal/ai"
	"github.com/ragbase/ragbase/internal/document"
	"github.com/ragbase/ragbase/internal/log"
)

// NoPassagesMessage is returned without a generation call when retrieval
// finds nothing.
const NoPassagesMessage = "No relevant passages were found. Try rephrasing your question or adding more documents to this project."

// maxAnswerContextChars bounds the concatenated passage context. Blocks are
// added whole in rank order; the first block that would exceed the budget
// stops the loop.
const maxAnswerContextChars = 6000

const answerSystemPrompt = `You are an RFP assistant. Answer the user's question using ONLY the provided document passages. Be concise and accurate. If the passages do not contain enough information to answer, say so. Do not invent facts. Cite which passage(s) support your answer when relevant (e.g. "According to [1]...").`

// chatClient is the slice of the AI client the answerer needs.
type chatClient interface {
	Complete(ctx context.Context, messages []ai.ChatMessage, maxTokens int) (string, error)
}

// Answer is a grounded answer with its topic and supporting hits.
type Answer struct {
	Text  string `json:"answer"`
	Topic string `json:"topic"`
	Hits  []Hit  `json:"hits"`
}

// Answerer synthesizes grounded answers from retrieved chunks.
type Answerer struct {
	retriever *Retriever
	chat      chatClient
	queries   queryLog
	logger    log.Logger
}

// NewAnswerer creates an answerer sharing the retriever's vector path.
func NewAnswerer(retriever *Retriever, chat chatClient, queries queryLog, logger log.Logger) *Answerer {
	return &Answerer{
		retriever: retriever,
		chat:      chat,
		queries:   queries,
		logger:    logger.With("component", "answerer"),
	}
}

// LastUserMessage reduces a chat conversation to the query: the content of
// the last user-authored message. Empty when there is none.
func LastUserMessage(messages []ai.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

// Answer retrieves chunks for the query and synthesizes a grounded answer
// with a topic from the closed list. Zero hits short-circuit to
// NoPassagesMessage without calling the generation service. The call is
// logged with answer and topic.
func (a *Answerer) Answer(ctx context.Context, projectID, actor, query string, k int) (*Answer, error) {
	start := time.Now()

	hits, k, err := a.retriever.retrieve(ctx, projectID, query, k)
	if err != nil {
		return nil, err
	}

	ans := &Answer{Hits: hits, Topic: TopicOther}
	if len(hits) == 0 {
		ans.Text = NoPassagesMessage
		a.log(ctx, start, actor, projectID, query, k, ans)
		return ans, nil
	}

	reply, err := a.chat.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: answerSystemPrompt},
		{Role: ai.RoleUser, Content: buildAnswerPrompt(query, hits)},
	}, 1024)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	ans.Text = strings.TrimSpace(reply)
	if ans.Text == "" {
		ans.Text = "I couldn't generate an answer from the retrieved passages."
	}

	ans.Topic = a.classifyTopic(ctx, query, ans.Text)

	a.log(ctx, start, actor, projectID, query, k, ans)
	return ans, nil
}

// Rephrase rewrites an answer in more technical wording without adding
// facts.
func (a *Answerer) Rephrase(ctx context.Context, question, answer string) (string, error) {
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyQuery
	}

	system := "You are an expert technical writer. Given a question and an answer, rephrase the answer in a more technical way. Use precise terminology, avoid casual language, and structure the response clearly. Do not add new facts or change the meaning. Output only the rephrased answer, no preamble."
	user := fmt.Sprintf("Question:\n%s\n\nOriginal answer:\n%s", question, answer)

	reply, err := a.chat.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: user},
	}, 1024)
	if err != nil {
		return "", fmt.Errorf("rephrase answer: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// classifyTopic asks the generation service to file the answer under one of
// the closed topics. Any failure or off-list reply maps to TopicOther.
func (a *Answerer) classifyTopic(ctx context.Context, query, answer string) string {
	system := fmt.Sprintf(
		"Classify the question into exactly one of these topics and reply with the topic name only: %s. Reply %q if none fit.",
		strings.Join(Topics, "; "), TopicOther)

	reply, err := a.chat.Complete(ctx, []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: system},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Question: %s\n\nAnswer: %s", query, answer)},
	}, 20)
	if err != nil {
		a.logger.Warn("topic classification failed", "error", err)
		return TopicOther
	}
	return NormalizeTopic(reply)
}

// buildAnswerPrompt concatenates passage blocks in rank order until the
// context budget would be exceeded, then appends the question.
func buildAnswerPrompt(query string, hits []Hit) string {
	var blocks []string
	total := 0
	for i, hit := range hits {
		block := fmt.Sprintf("[%d] (%s, score: %.2f)\n%s", i+1, hit.Filename, hit.Score, hit.Content)
		if total+len(block) > maxAnswerContextChars {
			break
		}
		blocks = append(blocks, block)
		total += len(block)
	}

	return fmt.Sprintf(
		"Relevant passages from the knowledge base:\n\n%s\n\nQuestion: %s\n\nAnswer (based only on the passages above):",
		strings.Join(blocks, "\n\n---\n\n"), query)
}

func (a *Answerer) log(ctx context.Context, start time.Time, actor, projectID, query string, k int, ans *Answer) {
	err := a.queries.LogSearch(ctx, &document.SearchQuery{
		Timestamp:   start.UTC(),
		Actor:       actor,
		ProjectID:   projectID,
		QueryText:   strings.TrimSpace(query),
		K:           k,
		ResultCount: len(ans.Hits),
		LatencyMS:   time.Since(start).Milliseconds(),
		Answer:      ans.Text,
		Topic:       ans.Topic,
	})
	if err != nil {
		a.logger.Warn("logging answer query failed", "error", err)
	}
}
