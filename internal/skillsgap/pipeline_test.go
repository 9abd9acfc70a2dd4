package skillsgap

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/cache"
	"github.com/spigell/resume-insight/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	inventoryReply = `{"languages": [{"name": "Go", "proficiency": "advanced", "years_experience": 5}, {"name": "Python", "proficiency": "intermediate"}],
		"databases": [{"name": "PostgreSQL", "proficiency": "intermediate"}],
		"soft_skills": [{"name": "Mentoring", "proficiency": "advanced"}]}`
	roleReply     = `{"role": "Backend Developer", "level": "senior", "reasoning": "APIs in Go"}`
	industryReply = `{"must_have": [
			{"skill": "Go", "category": "languages", "importance": "high"},
			{"skill": "Kubernetes", "category": "platforms", "importance": "high"},
			{"skill": "gRPC", "category": "frameworks", "importance": "medium"}
		],
		"nice_to_have": [{"skill": "Terraform", "category": "tools", "importance": "low"}],
		"emerging_skills": ["eBPF"]}`
	fullGapReply = `{
		"summary": {"total_skills_found": 4, "matching_must_have": 1, "missing_critical": 2, "strength_areas": ["languages"], "gap_areas": ["platforms"], "readiness_score": 140},
		"present_skills": [{"skill": "Go", "category": "languages", "proficiency": "advanced", "matches_requirement": true}],
		"missing_critical_skills": [{"skill": "Kubernetes", "category": "platforms", "priority": "high"}],
		"missing_nice_to_have": [],
		"skill_recommendations": [{"skill": "Kubernetes", "priority": "High", "learning_time": "2 months", "prerequisites": ["Docker"], "learning_path": ["Run a cluster"], "resources": [{"title": "k8s docs"}]}],
		"learning_roadmap": {"immediate_focus": ["Kubernetes"], "short_term": [], "long_term": []},
		"visualization_data": {"skills_by_category": {"languages": 1}, "proficiency_distribution": {"advanced": 1}, "gap_severity": {"critical": 1, "moderate": 0, "minor": 0}}
	}`
)

type routingGenerator struct {
	mu      sync.Mutex
	calls   map[string]int
	replies map[string]func() (string, error)
	prompts map[string][]string
}

var markers = map[string]string{
	"detailed_skills": "categorized inventory",
	"role_inference":  "most likely target job role",
	"industry_skills": "employers expect",
	"gap_analysis":    "skills gap report",
}

func newRouter() *routingGenerator {
	ok := func(s string) func() (string, error) { return func() (string, error) { return s, nil } }
	return &routingGenerator{
		calls:   map[string]int{},
		prompts: map[string][]string{},
		replies: map[string]func() (string, error){
			"detailed_skills": ok(inventoryReply),
			"role_inference":  ok(roleReply),
			"industry_skills": ok(industryReply),
			"gap_analysis":    ok(fullGapReply),
		},
	}
}

func (r *routingGenerator) Generate(_ context.Context, req inference.Request) (*inference.Response, error) {
	r.mu.Lock()
	kind := ""
	for k, marker := range markers {
		if strings.Contains(req.Prompt, marker) {
			kind = k
		}
	}
	r.calls[kind]++
	r.prompts[kind] = append(r.prompts[kind], req.Prompt)
	respond := r.replies[kind]
	r.mu.Unlock()

	if respond == nil {
		return nil, errors.New("unexpected prompt")
	}
	text, err := respond()
	if err != nil {
		return nil, err
	}
	return &inference.Response{Text: text, Attempts: 1, Model: "test"}, nil
}

func (r *routingGenerator) Model() string    { return "test" }
func (r *routingGenerator) Provider() string { return "fake" }

func (r *routingGenerator) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

var exhausted = func() (string, error) {
	return "", &inference.ExhaustedError{Attempts: 3, Last: inference.ErrUnreachable}
}

const resumeText = "Jane Doe\nExperience\nBuilt payment APIs in Go and Python on PostgreSQL."

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newPipeline(gen *routingGenerator, cached bool, opts ...Option) *Pipeline {
	var aopts []analyzer.Option
	if cached {
		aopts = append(aopts, analyzer.WithCache(cache.New(nil, zap.NewNop())))
	}
	p := New(analyzer.New(gen, aopts...), append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	return p
}

func TestRunWithSuppliedRole(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	report, err := newPipeline(gen, false).Run(context.Background(), Input{Resume: resumeText, Role: "Platform Engineer", Level: "Senior"})
	require.NoError(t, err)

	assert.Zero(t, gen.calls["role_inference"], "a supplied role skips inference")
	assert.Equal(t, 1, gen.calls["detailed_skills"])
	assert.Equal(t, 1, gen.calls["industry_skills"])
	assert.Equal(t, 1, gen.calls["gap_analysis"])
	assert.Contains(t, gen.prompts["industry_skills"][0], "senior Platform Engineer")
	assert.Contains(t, gen.prompts["gap_analysis"][0], `"name":"PostgreSQL"`)
	assert.Contains(t, gen.prompts["gap_analysis"][0], `"skill":"Kubernetes"`)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "Platform Engineer", report.TargetRole)
	assert.Equal(t, "senior", report.ExperienceLevel)
	assert.Equal(t, RoleSupplied, report.RoleSource)
	assert.Equal(t, fixedNow, report.GeneratedAt)

	assert.Equal(t, 100, report.Summary.ReadinessScore, "readiness is clamped")
	assert.Equal(t, []string{"platforms"}, report.Summary.GapAreas)
	assert.Equal(t, []PresentSkill{{Skill: "Go", Category: "languages", Proficiency: "advanced", MatchesRequirement: true}}, report.PresentSkills)
	assert.Equal(t, []MissingSkill{{Skill: "Kubernetes", Category: "platforms", Priority: "high"}}, report.MissingCritical)
	assert.Empty(t, report.MissingNiceToHave)
	assert.Equal(t, []Recommendation{{
		Skill: "Kubernetes", Priority: "high", LearningTime: "2 months",
		Prerequisites: []string{"Docker"}, LearningPath: []string{"Run a cluster"}, Resources: []string{"k8s docs"},
	}}, report.Recommendations)
	assert.Equal(t, []string{"Kubernetes"}, report.Roadmap.Immediate)
	assert.Equal(t, 1, report.Visualization.GapSeverity["critical"])
}

func TestRunInfersRole(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	report, err := newPipeline(gen, false).Run(context.Background(), Input{Resume: resumeText})
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls["role_inference"])
	assert.Equal(t, "Backend Developer", report.TargetRole)
	assert.Equal(t, DefaultLevel, report.ExperienceLevel)
	assert.Equal(t, RoleInferred, report.RoleSource)
	assert.Contains(t, gen.prompts["industry_skills"][0], "mid Backend Developer")
}

func TestRunFallsBackToDefaultRole(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	gen.replies["role_inference"] = exhausted

	core, logs := observer.New(zap.WarnLevel)
	report, err := newPipeline(gen, false, WithLogger(zap.New(core))).Run(context.Background(), Input{Resume: resumeText, Level: "junior"})
	require.NoError(t, err, "role inference failure must not abort the pipeline")

	assert.Equal(t, DefaultRole, report.TargetRole)
	assert.Equal(t, RoleDefault, report.RoleSource)
	assert.Contains(t, gen.prompts["industry_skills"][0], "junior Software Engineer")
	assert.Equal(t, 1, logs.FilterMessage("skills gap stage failed, continuing").Len())
}

func TestRunFallsBackWhenNoRoleProposed(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	gen.replies["role_inference"] = func() (string, error) { return `{"reasoning": "hard to say"}`, nil }

	report, err := newPipeline(gen, false).Run(context.Background(), Input{Resume: resumeText})
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, report.TargetRole)
	assert.Equal(t, RoleDefault, report.RoleSource)
}

func TestRunAbortsOnCriticalStages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stage string
		kind  string
		reply func() (string, error)
	}{
		{stage: "extract", kind: "detailed_skills", reply: exhausted},
		{stage: "extract", kind: "detailed_skills", reply: func() (string, error) { return "no JSON here", nil }},
		{stage: "industry_lookup", kind: "industry_skills", reply: exhausted},
		{stage: "gap_compute", kind: "gap_analysis", reply: func() (string, error) { return "cannot comply", nil }},
	}

	for _, tc := range cases {
		t.Run(tc.stage, func(t *testing.T) {
			t.Parallel()

			gen := newRouter()
			gen.replies[tc.kind] = tc.reply

			_, err := newPipeline(gen, false).Run(context.Background(), Input{Resume: resumeText, Role: "SRE"})
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tc.stage, stageErr.Stage)
			assert.NotEqual(t, analyzer.ReasonFailed, analyzer.FailureOf(err).Reason)
		})
	}
}

func TestRunExtractFailureIsUnreachable(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	gen.replies["detailed_skills"] = exhausted

	_, err := newPipeline(gen, false).Run(context.Background(), Input{Resume: resumeText})
	require.Error(t, err)
	assert.True(t, inference.IsUnreachable(err))
	assert.Zero(t, gen.calls["industry_skills"])
}

func TestRunCachesReport(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	p := newPipeline(gen, true)
	in := Input{Resume: resumeText, Role: "SRE", Level: "mid", UseCache: true}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	calls := gen.total()
	assert.Equal(t, 3, calls)

	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, calls, gen.total())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)

	_, err = p.Run(context.Background(), Input{Resume: resumeText, Role: "SRE", Level: "senior", UseCache: true})
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls["detailed_skills"], "the inventory stage is cached on its own")
	assert.Equal(t, 2, gen.calls["industry_skills"], "level is part of the key")
}

func TestRunWithoutCacheRecomputes(t *testing.T) {
	t.Parallel()

	gen := newRouter()
	p := newPipeline(gen, true)
	in := Input{Resume: resumeText, Role: "SRE"}

	_, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	_, err = p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 6, gen.total())
}

func TestRunRejectsEmptyResume(t *testing.T) {
	t.Parallel()

	_, err := newPipeline(newRouter(), false).Run(context.Background(), Input{Resume: " "})
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	p := newPipeline(newRouter(), false)
	assert.Equal(t, []Status{
		{Name: "extract", Critical: true},
		{Name: "infer_role", Critical: false},
		{Name: "industry_lookup", Critical: true},
		{Name: "gap_compute", Critical: true},
	}, Describe(p.Stages()))
}
