// Package scoring rates a resume with five weighted sub-scores that combine
// text heuristics with model assessments.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/normalize"
	"github.com/spigell/resume-insight/internal/prompts"
	"go.uber.org/zap"
)

const defaultModelScore = 50

// Assessor runs the scorer's model prompts.
type Assessor interface {
	Assess(ctx context.Context, kind prompts.Kind, resume string, opts ...analyzer.CallOption) (map[string]any, error)
}

// ComponentScore is one weighted sub-score.
type ComponentScore struct {
	Score         int            `json:"score"`
	Weight        float64        `json:"weight"`
	WeightedScore int            `json:"weighted_score"`
	Details       map[string]any `json:"details"`
}

// Report is the overall score with its components.
type Report struct {
	OverallScore           int                          `json:"overall_score"`
	Classification         string                       `json:"classification"`
	Timestamp              time.Time                    `json:"timestamp"`
	ComponentScores        map[Component]ComponentScore `json:"component_scores"`
	ImprovementSuggestions []string                     `json:"improvement_suggestions"`
}

// Scores returns the raw component scores.
func (r *Report) Scores() map[Component]int {
	out := make(map[Component]int, len(r.ComponentScores))
	for c, s := range r.ComponentScores {
		out[c] = s.Score
	}
	return out
}

type Scorer struct {
	assessor Assessor
	logger   *zap.Logger
	now      func() time.Time
	opts     []analyzer.CallOption
}

type Option func(*Scorer)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithCallOptions applies analyzer options to every model assessment.
func WithCallOptions(opts ...analyzer.CallOption) Option {
	return func(s *Scorer) { s.opts = opts }
}

func New(assessor Assessor, opts ...Option) *Scorer {
	s := &Scorer{assessor: assessor, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score rates the resume. Target keywords, when given, replace the model's
// keyword scan. Model failures degrade to neutral defaults.
func (s *Scorer) Score(ctx context.Context, text string, keywords []string) (*Report, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("resume text must not be empty")
	}

	s.logger.Info("starting resume scoring")

	scores := map[Component]ComponentScore{}
	add := func(c Component, score int, details map[string]any) {
		scores[c] = ComponentScore{
			Score:         clamp(score),
			Weight:        Weight(c),
			WeightedScore: weighted(c, score),
			Details:       details,
		}
		s.logger.Info("component scored", zap.String("component", string(c)), zap.Int("score", clamp(score)))
	}

	completeness, scan := ScoreCompleteness(text)
	add(Completeness, completeness, map[string]any{
		"found_sections":   scan.Found,
		"missing_sections": scan.Missing,
	})

	content, details := s.contentQuality(ctx, text)
	add(ContentQuality, content, details)

	formatting, checks := ScoreFormatting(text)
	add(Formatting, formatting, map[string]any{
		"word_count":     checks.WordCount,
		"line_count":     checks.LineCount,
		"section_breaks": checks.SectionBreaks,
		"formatting_checks": map[string]int{
			"length":        checks.Length,
			"consistency":   checks.Consistency,
			"clarity":       checks.Clarity,
			"special_chars": checks.SpecialChars,
		},
	})

	keyword, details := s.keywordRelevance(ctx, text, keywords)
	add(KeywordRelevance, keyword, details)

	experience, details := s.experience(ctx, text)
	add(Experience, experience, details)

	raw := make(map[Component]int, len(scores))
	for c, cs := range scores {
		raw[c] = cs.Score
	}
	overall := Overall(raw)

	report := &Report{
		OverallScore:           overall,
		Classification:         Classify(overall),
		Timestamp:              s.now().UTC(),
		ComponentScores:        scores,
		ImprovementSuggestions: Suggestions(raw, scan.Missing),
	}
	s.logger.Info("resume scoring complete", zap.Int("overall_score", overall), zap.String("classification", report.Classification))
	return report, nil
}

func (s *Scorer) contentQuality(ctx context.Context, text string) (int, map[string]any) {
	verbs, found := CountActionVerbs(text)
	metrics := CountMetrics(text)
	details := map[string]any{
		"action_verbs_found":        found,
		"action_verb_count":         verbs,
		"quantifiable_achievements": metrics,
		"manual_score":              manualContentScore(verbs, metrics),
	}

	llm := defaultModelScore
	rec, err := s.assessor.Assess(ctx, prompts.ContentQuality, text, s.opts...)
	if err != nil {
		s.logger.Warn("content quality assessment failed", zap.Error(err))
		details["llm_assessment"] = "assessment unavailable: " + analyzer.FailureOf(err).Reason
	} else {
		llm = clamp(normalize.Int(rec["score"], defaultModelScore))
		details["llm_assessment"] = normalize.String(rec["explanation"])
		details["strengths"] = normalize.Strings(rec["strengths"])
		details["improvements"] = normalize.Strings(rec["improvements"])
	}
	details["llm_score"] = llm

	return blendContent(llm, verbs, metrics), details
}

func (s *Scorer) keywordRelevance(ctx context.Context, text string, targets []string) (int, map[string]any) {
	var found, missing []string
	details := map[string]any{}

	switch {
	case len(targets) > 0:
		found, missing = MatchKeywords(text, targets)
		details["source"] = "targets"
	default:
		rec, err := s.assessor.Assess(ctx, prompts.KeywordScan, text, s.opts...)
		if err != nil {
			s.logger.Warn("keyword scan failed, using dictionary", zap.Error(err))
			found, missing = DictionaryKeywords(text), []string{}
			details["source"] = "dictionary"
		} else {
			found = normalize.Strings(rec["found_keywords"])
			missing = normalize.Strings(rec["missing_keywords"])
			details["industry_keywords"] = normalize.Strings(rec["industry_keywords"])
			details["source"] = "model"
		}
	}

	details["found_keywords"] = found
	details["missing_keywords"] = missing
	details["keyword_count"] = len(found)
	return keywordScore(len(found), len(missing)), details
}

func (s *Scorer) experience(ctx context.Context, text string) (int, map[string]any) {
	years := float64(YearsMentioned(text))
	progression := "unknown"
	coherence := defaultModelScore
	details := map[string]any{"years_mentioned": years}

	rec, err := s.assessor.Assess(ctx, prompts.ExperienceScan, text, s.opts...)
	if err != nil {
		s.logger.Warn("experience assessment failed", zap.Error(err))
	} else {
		if detected := normalize.Float(rec["years_detected"]); !math.IsNaN(detected) && !math.IsInf(detected, 0) && detected > 0 {
			years = detected
		}
		if p := normalize.String(rec["progression"]); p != "" {
			progression = strings.ToLower(p)
		}
		coherence = clamp(normalize.Int(rec["coherence"], defaultModelScore))
		details["depth"] = clamp(normalize.Int(rec["depth"], defaultModelScore))
		details["llm_assessment"] = normalize.String(rec["explanation"])
	}

	details["years_of_experience"] = years
	details["career_progression"] = progression
	details["coherence"] = coherence
	return experienceScore(years, progression, coherence), details
}

const (
	completenessCutoff = 80
	componentCutoff    = 75
)

var componentAdvice = map[Component]string{
	ContentQuality:   "Improve content quality by using more action verbs and adding quantifiable achievements (e.g. 'increased sales by 25%')",
	Formatting:       "Improve formatting: use consistent bullet points, keep clear spacing between sections and stay within 1-2 pages",
	KeywordRelevance: "Include more industry-relevant keywords and technical skills that match your target role",
	Experience:       "Highlight career progression and growth across your roles, and state your years of experience clearly",
}

// Suggestions derives improvement advice from the component scores. When no
// component is below its cutoff a single encouragement is returned.
func Suggestions(scores map[Component]int, missingSections []string) []string {
	out := []string{}
	if scores[Completeness] < completenessCutoff {
		if len(missingSections) > 0 {
			out = append(out, "Add the missing essential sections: "+strings.Join(missingSections, ", "))
		} else {
			out = append(out, "Make sure every essential section is present: contact, summary, experience, education, skills")
		}
	}
	for _, c := range Components()[1:] {
		if scores[c] < componentCutoff {
			out = append(out, componentAdvice[c])
		}
	}
	if len(out) == 0 {
		out = append(out, "Your resume is performing well! Fine-tune the weaker components for a perfect score.")
	}
	return out
}
