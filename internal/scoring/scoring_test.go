package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/inference"
	"github.com/spigell/resume-insight/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssessor struct {
	records map[prompts.Kind]map[string]any
	err     error
	calls   []prompts.Kind
}

func (f *fakeAssessor) Assess(_ context.Context, kind prompts.Kind, _ string, _ ...analyzer.CallOption) (map[string]any, error) {
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[kind]
	if !ok {
		return nil, &analyzer.ParseError{Kind: kind, Raw: "?"}
	}
	return rec, nil
}

const sampleResume = `Contact: jane@example.com
Summary
Backend engineer.

Experience
Led a team of 5 engineers and improved latency by 40%.

Education
BSc Computer Science

Skills: go, docker`

func TestWeightsSumToOne(t *testing.T) {
	total := 0
	for _, c := range Components() {
		total += weightPercent[c]
	}
	assert.Equal(t, 100, total)
	assert.InDelta(t, 0.30, Weight(ContentQuality), 1e-9)
}

func TestOverallBounds(t *testing.T) {
	all := func(n int) map[Component]int {
		out := map[Component]int{}
		for _, c := range Components() {
			out[c] = n
		}
		return out
	}
	assert.Equal(t, 100, Overall(all(100)))
	assert.Equal(t, 0, Overall(all(0)))
	assert.Equal(t, 100, Overall(all(250)))
	assert.Equal(t, 25, Overall(map[Component]int{Completeness: 100}))
}

func TestClassify(t *testing.T) {
	cases := map[int]string{
		100: Excellent,
		90:  Excellent,
		89:  Good,
		75:  Good,
		74:  Average,
		60:  Average,
		59:  NeedsImprovement,
		0:   NeedsImprovement,
	}
	for score, want := range cases {
		assert.Equal(t, want, Classify(score), "score %d", score)
	}
}

func TestScoreCompleteness(t *testing.T) {
	score, scan := ScoreCompleteness("Experience\nEducation\nSkills")
	assert.Equal(t, 60, score)
	assert.Equal(t, []string{"experience", "education", "skills"}, scan.Found)
	assert.Equal(t, []string{"contact", "summary"}, scan.Missing)

	score, scan = ScoreCompleteness(sampleResume)
	assert.Equal(t, 100, score)
	assert.Empty(t, scan.Missing)
}

func TestCountActionVerbs(t *testing.T) {
	total, found := CountActionVerbs("Led the team. Then LED another. Misled nobody. Improved builds.")
	assert.Equal(t, 3, total)
	assert.Equal(t, map[string]int{"led": 2, "improved": 1}, found)
}

func TestBlendContent(t *testing.T) {
	assert.Equal(t, 66, blendContent(80, 4, 3))
	assert.Equal(t, 100, blendContent(100, 10, 20))
	assert.Equal(t, 0, blendContent(0, 0, 0))
	assert.Equal(t, 45, manualContentScore(4, 3))
}

func TestScoreFormatting(t *testing.T) {
	score, checks := ScoreFormatting("hello world")
	assert.Equal(t, 58, score)
	assert.Equal(t, 40, checks.Length)
	assert.Equal(t, 50, checks.Consistency)
	assert.Equal(t, 50, checks.Clarity)
	assert.Equal(t, 95, checks.SpecialChars)

	_, checks = ScoreFormatting("a\n\nb\n\nc")
	assert.Equal(t, 2, checks.SectionBreaks)
	assert.Equal(t, 80, checks.Clarity)

	_, checks = ScoreFormatting("@@@@ ab")
	assert.Equal(t, 50, checks.SpecialChars)
}

func TestKeywordScore(t *testing.T) {
	assert.Equal(t, 40, keywordScore(0, 5))
	assert.Equal(t, 75, keywordScore(3, 1))
	assert.Equal(t, 90, keywordScore(15, 5))
	assert.Equal(t, 100, keywordScore(20, 0))
}

func TestMatchKeywords(t *testing.T) {
	found, missing := MatchKeywords("Worked with Docker and Go", []string{"docker", " ", "Kubernetes", "go"})
	assert.Equal(t, []string{"docker", "go"}, found)
	assert.Equal(t, []string{"Kubernetes"}, missing)
}

func TestDictionaryKeywords(t *testing.T) {
	found := DictionaryKeywords("Python and Kubernetes on AWS")
	assert.Contains(t, found, "python")
	assert.Contains(t, found, "kubernetes")
	assert.Contains(t, found, "aws")
	assert.NotContains(t, found, "rust")
}

func TestExperienceScore(t *testing.T) {
	assert.Equal(t, 80, experienceScore(7, "senior", 80))
	assert.Equal(t, 80, experienceScore(7, " Senior ", 80))
	assert.Equal(t, 55, experienceScore(15, "bogus", 0))
	assert.Equal(t, 30, experienceScore(0, "unclear", 50))
	assert.Equal(t, 98, experienceScore(1e300, "senior", 100))
	assert.Equal(t, 15, experienceScore(-1e300, "unclear", 0))
}

func TestYearsMentioned(t *testing.T) {
	assert.Equal(t, 12, YearsMentioned("3 years at A, 12+ yrs overall, 5 Years elsewhere"))
	assert.Equal(t, 0, YearsMentioned("no figures"))
}

func TestSuggestions(t *testing.T) {
	high := map[Component]int{}
	for _, c := range Components() {
		high[c] = 95
	}
	got := Suggestions(high, nil)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "performing well")

	low := map[Component]int{
		Completeness:     60,
		ContentQuality:   74,
		Formatting:       75,
		KeywordRelevance: 90,
		Experience:       10,
	}
	got = Suggestions(low, []string{"contact", "summary"})
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "contact, summary")
	assert.Equal(t, componentAdvice[ContentQuality], got[1])
	assert.Equal(t, componentAdvice[Experience], got[2])
}

func TestScoreWithModelAssessments(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assessor := &fakeAssessor{records: map[prompts.Kind]map[string]any{
		prompts.ContentQuality: {"score": 80.0, "explanation": "solid", "strengths": []any{"metrics"}},
		prompts.ExperienceScan: {"years_detected": 7.0, "progression": "Senior", "coherence": 80.0, "depth": 70.0},
	}}

	report, err := New(assessor, WithClock(func() time.Time { return fixed })).
		Score(context.Background(), sampleResume, []string{"go", "docker", "kubernetes"})
	require.NoError(t, err)

	assert.Equal(t, []prompts.Kind{prompts.ContentQuality, prompts.ExperienceScan}, assessor.calls)
	assert.Equal(t, fixed, report.Timestamp)

	cs := report.ComponentScores
	require.Len(t, cs, 5)
	assert.Equal(t, 100, cs[Completeness].Score)
	assert.Equal(t, 25, cs[Completeness].WeightedScore)

	verbs, _ := CountActionVerbs(sampleResume)
	assert.Equal(t, blendContent(80, verbs, CountMetrics(sampleResume)), cs[ContentQuality].Score)
	assert.Equal(t, 80, cs[ContentQuality].Details["llm_score"])
	assert.Equal(t, "solid", cs[ContentQuality].Details["llm_assessment"])

	assert.Equal(t, 66, cs[KeywordRelevance].Score)
	assert.Equal(t, []string{"kubernetes"}, cs[KeywordRelevance].Details["missing_keywords"])
	assert.Equal(t, 80, cs[Experience].Score)

	assert.Equal(t, Overall(report.Scores()), report.OverallScore)
	assert.Equal(t, Classify(report.OverallScore), report.Classification)
	assert.NotEmpty(t, report.ImprovementSuggestions)
}

func TestScoreSaturatesHugeModelNumbers(t *testing.T) {
	assessor := &fakeAssessor{records: map[prompts.Kind]map[string]any{
		prompts.ContentQuality: {"score": 1e300},
		prompts.ExperienceScan: {"years_detected": 1e300, "progression": "senior", "coherence": "1e20"},
	}}

	report, err := New(assessor).Score(context.Background(), sampleResume, []string{"go"})
	require.NoError(t, err)

	cs := report.ComponentScores
	assert.Equal(t, 100, cs[ContentQuality].Details["llm_score"])
	assert.Equal(t, 100, cs[Experience].Details["coherence"])
	assert.Equal(t, 98, cs[Experience].Score)
}

func TestScoreFallsBackWhenModelUnavailable(t *testing.T) {
	assessor := &fakeAssessor{err: inference.ErrUnreachable}

	report, err := New(assessor).Score(context.Background(), sampleResume, nil)
	require.NoError(t, err)

	assert.Equal(t, []prompts.Kind{prompts.ContentQuality, prompts.KeywordScan, prompts.ExperienceScan}, assessor.calls)

	cs := report.ComponentScores
	assert.Equal(t, 50, cs[ContentQuality].Details["llm_score"])
	assert.Equal(t, "dictionary", cs[KeywordRelevance].Details["source"])
	assert.Equal(t, []string{"go", "docker"}, cs[KeywordRelevance].Details["found_keywords"])
	assert.Equal(t, 50, cs[Experience].Details["coherence"])
	assert.Equal(t, "unknown", cs[Experience].Details["career_progression"])
}

func TestScoreUsesModelKeywordScan(t *testing.T) {
	assessor := &fakeAssessor{records: map[prompts.Kind]map[string]any{
		prompts.KeywordScan: {
			"found_keywords":    []any{"go", "docker", "redis"},
			"missing_keywords":  []any{"kubernetes"},
			"industry_keywords": []any{"grpc"},
		},
	}}

	report, err := New(assessor).Score(context.Background(), sampleResume, nil)
	require.NoError(t, err)

	kw := report.ComponentScores[KeywordRelevance]
	assert.Equal(t, 75, kw.Score)
	assert.Equal(t, "model", kw.Details["source"])
	assert.Equal(t, []string{"grpc"}, kw.Details["industry_keywords"])
}

func TestScoreRejectsEmptyResume(t *testing.T) {
	_, err := New(&fakeAssessor{err: errors.New("unused")}).Score(context.Background(), "  \n", nil)
	require.Error(t, err)
}
