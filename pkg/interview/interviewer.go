// Package interview runs the consultant/expert dialogue for each persona.
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"dtplanner/pkg/agent/llm"
	"dtplanner/pkg/dialogue"
	"dtplanner/pkg/domain"
	"dtplanner/pkg/logx"
	"dtplanner/pkg/search"
	"dtplanner/pkg/templates"
	"dtplanner/pkg/utils"
)

const (
	// ConsultantIdentity tags every consultant message.
	ConsultantIdentity = dialogue.ConsultantIdentity

	// Sentinel is the phrase that ends an interview early.
	Sentinel = "This concludes our interview"

	// DefaultMaxTurns is the expert answer ceiling per interview.
	DefaultMaxTurns = 5

	// MaxSearchContextChars bounds the serialized search results handed to the expert.
	MaxSearchContextChars = 15000

	maxQueries = 3

	// FallbackQuestion keeps the loop alive when question generation fails.
	FallbackQuestion = "Could you tell me more about how your company approaches digital transformation? " +
		"What are your main priorities?"

	// NoSearchFallbackAnswer is used when search and the unsearched answer both fail.
	NoSearchFallbackAnswer = "Based on my expertise, I recommend focusing on a clear digital transformation " +
		"strategy aligned with your business goals. Start with a thorough assessment of your current systems " +
		"and processes before implementing any new technologies."

	// FallbackAnswer is used when answering fails for any other reason.
	FallbackAnswer = "I recommend focusing on implementing digital solutions that directly address your business " +
		"challenges. This typically involves modernizing legacy systems, improving data integration, and " +
		"enhancing customer-facing digital channels. For more specific advice, I would need additional " +
		"details about your particular situation."

	continueInstruction = "Please continue the interview with your next question."
)

// FallbackQueries are searched when query generation fails or returns nothing.
//
//nolint:gochecknoglobals // fixed fallback set
var FallbackQueries = []string{"digital transformation best practices", "business digital modernization"}

// Greeting returns the message every interview is seeded with.
func Greeting(company string) string {
	return fmt.Sprintf("I'm here to discuss digital transformation strategies for %s. What questions do you have?", company)
}

// Interviewer runs interviews. One Interviewer is shared by all personas of a run.
type Interviewer struct {
	questioner  llm.LLMClient
	expert      llm.LLMClient
	searcher    *search.Searcher
	renderer    *templates.Renderer
	hook        Hook
	logger      *logx.Logger
	maxTurns    int
	maxParallel int
}

// Option configures an Interviewer.
type Option func(*Interviewer)

// WithMaxTurns sets the expert answer ceiling.
func WithMaxTurns(n int) Option {
	return func(i *Interviewer) {
		if n > 0 {
			i.maxTurns = n
		}
	}
}

// WithMaxParallel bounds how many interviews RunAll runs at once. 0 means unbounded.
func WithMaxParallel(n int) Option {
	return func(i *Interviewer) { i.maxParallel = n }
}

// WithHook registers a progress observer.
func WithHook(h Hook) Option {
	return func(i *Interviewer) { i.hook = h }
}

// WithRenderer overrides the prompt renderer.
func WithRenderer(r *templates.Renderer) Option {
	return func(i *Interviewer) { i.renderer = r }
}

// NewInterviewer creates an interviewer. questioner drives the consultant and
// query generation; expert writes the answers.
func NewInterviewer(questioner, expert llm.LLMClient, searcher *search.Searcher, opts ...Option) *Interviewer {
	i := &Interviewer{
		questioner: questioner,
		expert:     expert,
		searcher:   searcher,
		logger:     logx.NewLogger("interview"),
		maxTurns:   DefaultMaxTurns,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.renderer == nil {
		i.renderer = templates.MustNewRenderer()
	}
	if i.searcher == nil {
		i.searcher = search.NewSearcher(nil, 0)
	}
	return i
}

// session is the per-interview state.
type session struct {
	transcript *dialogue.Transcript
	persona    domain.ExpertPersona
	company    *domain.CompanyProfile
	identity   string
	logger     *logx.Logger
}

// Run interviews one persona until the turn ceiling or the sentinel phrase.
// The returned transcript is never nil. The only error is context cancellation,
// in which case the transcript holds the turns completed so far.
func (iv *Interviewer) Run(ctx context.Context, persona domain.ExpertPersona, company *domain.CompanyProfile) (*dialogue.Transcript, error) {
	s := &session{
		transcript: dialogue.NewTranscript(persona),
		persona:    persona,
		company:    company,
		identity:   dialogue.ExpertIdentity(persona.Name),
	}
	s.logger = iv.logger.WithComponent(s.identity)
	s.transcript.Append(ConsultantIdentity, Greeting(company.Name))

	ctx = llm.WithCaller(ctx, llm.Caller{Actor: s.identity})
	iv.emit(Event{Step: StepStarted, Expert: s.identity})

	for {
		if err := ctx.Err(); err != nil {
			return s.transcript, fmt.Errorf("interview with %s cancelled: %w", s.identity, err)
		}
		iv.ask(ctx, s)
		if err := ctx.Err(); err != nil {
			return s.transcript, fmt.Errorf("interview with %s cancelled: %w", s.identity, err)
		}
		iv.answer(ctx, s)

		if reason, done := iv.shouldTerminate(s); done {
			s.logger.Info("interview finished after %d answers: %s", s.transcript.Count(s.identity), reason)
			iv.emit(Event{Step: StepTerminated, Expert: s.identity, Turn: s.transcript.Count(s.identity), Detail: reason})
			return s.transcript, nil
		}
	}
}

// shouldTerminate applies both stop conditions after an answer.
func (iv *Interviewer) shouldTerminate(s *session) (string, bool) {
	if s.transcript.Count(s.identity) >= iv.maxTurns {
		return "max turns reached", true
	}
	if last, ok := s.transcript.Last(ConsultantIdentity); ok && strings.Contains(last.Content, Sentinel) {
		return "consultant concluded", true
	}
	return "", false
}

// ask appends the consultant's next question, or the fallback question.
func (iv *Interviewer) ask(ctx context.Context, s *session) {
	question, err := iv.generateQuestion(ctx, s)
	degraded := false
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		s.logger.Warn("question generation failed, using fallback: %v", err)
		question = FallbackQuestion
		degraded = true
	}
	s.transcript.Append(ConsultantIdentity, question)
	iv.emit(Event{Step: StepAsk, Expert: s.identity, Turn: s.transcript.Count(s.identity), Degraded: degraded})
}

func (iv *Interviewer) generateQuestion(ctx context.Context, s *session) (string, error) {
	data := templates.NewPromptData(s.company)
	data.Persona = s.persona.String()
	data.Sentinel = Sentinel
	prompt, err := iv.renderer.Render(templates.InterviewQuestionTemplate, data)
	if err != nil {
		return "", err //nolint:wrapcheck // renderer errors name the template
	}

	msgs := append(prompt.Messages(), dialogue.Relabel(s.transcript, ConsultantIdentity)...)
	if msgs[len(msgs)-1].Role != llm.RoleUser {
		msgs = append(msgs, llm.NewUserMessage(continueInstruction))
	}
	req := llm.NewCompletionRequest(msgs)
	req.Temperature = llm.TemperatureCreative

	resp, err := iv.questioner.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate question: %w", err)
	}
	question := strings.TrimSpace(resp.Content)
	if question == "" {
		return "", errors.New("generate question: empty completion")
	}
	return question, nil
}

// answer appends the expert's answer and merges the references it cites.
func (iv *Interviewer) answer(ctx context.Context, s *session) {
	content, refs, degraded := iv.generateAnswer(ctx, s)
	if ctx.Err() != nil {
		return
	}
	s.transcript.MergeReferences(refs)
	s.transcript.Append(s.identity, content)
	iv.emit(Event{Step: StepAnswer, Expert: s.identity, Turn: s.transcript.Count(s.identity), Degraded: degraded})
}

// generateAnswer never fails: every error path resolves to a fallback answer.
func (iv *Interviewer) generateAnswer(ctx context.Context, s *session) (string, map[string]string, bool) {
	view := dialogue.Relabel(s.transcript, s.identity)

	queries := iv.generateQueries(ctx, s, view)
	batches, err := iv.searcher.BatchSearch(ctx, queries)
	excerpts := search.ExcerptsByURL(batches)
	iv.emit(Event{
		Step:     StepSearch,
		Expert:   s.identity,
		Turn:     s.transcript.Count(s.identity),
		Degraded: err != nil,
		Detail:   fmt.Sprintf("%d/%d queries, %d sources", len(batches), len(queries), len(excerpts)),
	})

	if err != nil || len(excerpts) == 0 {
		if err != nil {
			s.logger.Warn("all searches failed, answering without sources: %v", err)
		}
		answer, uerr := iv.unsearchedAnswer(ctx, s, view)
		if uerr != nil {
			s.logger.Warn("unsearched answer failed, using fallback: %v", uerr)
			return NoSearchFallbackAnswer, nil, true
		}
		return answer, nil, err != nil
	}

	answer, cited, err := iv.groundedAnswer(ctx, s, view, excerpts)
	if err != nil {
		s.logger.Warn("answer generation failed, using fallback: %v", err)
		return FallbackAnswer, nil, true
	}
	return FormatAnswer(answer, cited), CitedReferences(cited, excerpts), false
}

type queryList struct {
	Queries []string `json:"queries"`
}

// generateQueries returns up to three search queries, or the fallback set.
func (iv *Interviewer) generateQueries(ctx context.Context, s *session, view []llm.CompletionMessage) []string {
	prompt, err := iv.renderer.Render(templates.InterviewQueriesTemplate, &templates.PromptData{})
	if err == nil {
		req := llm.NewJSONRequest(append(prompt.Messages(), view...))
		var out queryList
		if err = llm.CompleteJSON(ctx, iv.questioner, req, &out); err == nil {
			queries := cleanQueries(out.Queries)
			if len(queries) > 0 {
				return queries
			}
			err = errors.New("no queries returned")
		}
	}
	s.logger.Warn("query generation failed, using fallback queries: %v", err)
	return append([]string(nil), FallbackQueries...)
}

func cleanQueries(raw []string) []string {
	out := make([]string, 0, maxQueries)
	for _, q := range raw {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
		if len(out) == maxQueries {
			break
		}
	}
	return out
}

func (iv *Interviewer) answerPrompt(s *session, searchResults string) (templates.Prompt, error) {
	return iv.renderer.Render(templates.InterviewAnswerTemplate, &templates.PromptData{ //nolint:wrapcheck // names the template
		ExpertName:        s.identity,
		ExpertiseArea:     s.persona.ExpertiseArea,
		ExpertDescription: s.persona.Description,
		SearchResults:     searchResults,
	})
}

func (iv *Interviewer) unsearchedAnswer(ctx context.Context, s *session, view []llm.CompletionMessage) (string, error) {
	prompt, err := iv.answerPrompt(s, "")
	if err != nil {
		return "", err
	}
	resp, err := iv.expert.Complete(ctx, llm.NewCompletionRequest(append(prompt.Messages(), view...)))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", errors.New("generate answer: empty completion")
	}
	return answer, nil
}

type expertAnswer struct {
	Answer    string   `json:"answer"`
	CitedURLs []string `json:"cited_urls"`
}

func (iv *Interviewer) groundedAnswer(ctx context.Context, s *session, view []llm.CompletionMessage, excerpts map[string]string) (string, []string, error) {
	dumped, err := json.Marshal(excerpts)
	if err != nil {
		return "", nil, fmt.Errorf("marshal search results: %w", err)
	}
	prompt, err := iv.answerPrompt(s, utils.TruncateRunes(string(dumped), MaxSearchContextChars))
	if err != nil {
		return "", nil, err
	}

	var out expertAnswer
	req := llm.NewJSONRequest(append(prompt.Messages(), view...))
	if err := llm.CompleteJSON(ctx, iv.expert, req, &out); err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return "", nil, errors.New("generate answer: empty answer field")
	}
	return strings.TrimSpace(out.Answer), citedInResults(out.CitedURLs, excerpts), nil
}

// citedInResults keeps the cited URLs that were actually searched, de-duplicated,
// in citation order.
func citedInResults(cited []string, excerpts map[string]string) []string {
	seen := make(map[string]bool, len(cited))
	out := make([]string, 0, len(cited))
	for _, url := range cited {
		url = strings.TrimSpace(url)
		if _, ok := excerpts[url]; !ok || seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, url)
	}
	return out
}

// CitedReferences returns the excerpts for the cited URLs only.
func CitedReferences(cited []string, excerpts map[string]string) map[string]string {
	refs := make(map[string]string, len(cited))
	for _, url := range cited {
		if excerpt, ok := excerpts[url]; ok {
			refs[url] = excerpt
		}
	}
	return refs
}

// FormatAnswer appends the numbered citation footer.
func FormatAnswer(answer string, cited []string) string {
	if len(cited) == 0 {
		return answer
	}
	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\nCitations:")
	for i, url := range cited {
		fmt.Fprintf(&b, "\n[%d]: %s", i+1, url)
	}
	return b.String()
}

func (iv *Interviewer) emit(ev Event) {
	if iv.hook != nil {
		iv.hook(ev)
	}
}

// RunAll interviews every persona concurrently and returns the transcripts in
// persona order. A failing interview does not stop the others; the error is
// non-nil only when the context was cancelled.
func (iv *Interviewer) RunAll(ctx context.Context, personas []domain.ExpertPersona, company *domain.CompanyProfile) ([]*dialogue.Transcript, error) {
	results := make([]*dialogue.Transcript, len(personas))
	errs := make([]error, len(personas))

	var sem *semaphore.Weighted
	if iv.maxParallel > 0 {
		sem = semaphore.NewWeighted(int64(iv.maxParallel))
	}

	var wg sync.WaitGroup
	for idx := range personas {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					results[idx] = dialogue.NewTranscript(personas[idx])
					errs[idx] = fmt.Errorf("interview with %s not started: %w", personas[idx].Name, err)
					return
				}
				defer sem.Release(1)
			}
			results[idx], errs[idx] = iv.Run(ctx, personas[idx], company)
		}()
	}
	wg.Wait()

	return results, errors.Join(errs...)
}
