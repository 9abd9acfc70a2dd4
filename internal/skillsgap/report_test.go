package skillsgap

import (
	"testing"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/stretchr/testify/assert"
)

func sampleInventory() analyzer.SkillInventory {
	return analyzer.SkillInventory{
		Languages: []analyzer.SkillRecord{
			{Name: "Go", Proficiency: analyzer.Advanced},
			{Name: "Python", Proficiency: analyzer.Intermediate},
		},
		Databases:  []analyzer.SkillRecord{{Name: "PostgreSQL", Proficiency: analyzer.Intermediate}},
		SoftSkills: []analyzer.SkillRecord{{Name: "Mentoring", Proficiency: analyzer.Unknown}},
	}
}

func sampleRequirements() analyzer.IndustryRequirements {
	return analyzer.IndustryRequirements{
		Role:  "SRE",
		Level: "mid",
		MustHave: []analyzer.Requirement{
			{Skill: "go", Category: "languages", Importance: "high"},
			{Skill: "Kubernetes", Category: "platforms", Importance: "high"},
			{Skill: "Prometheus", Category: "tools", Importance: "medium"},
			{Skill: "Terraform", Category: "tools", Importance: "medium"},
		},
		NiceToHave: []analyzer.Requirement{
			{Skill: "PostgreSQL", Category: "databases", Importance: "low"},
			{Skill: "Rust", Category: "languages", Importance: "low"},
		},
	}
}

func TestBuildReportDerivesMissingSections(t *testing.T) {
	t.Parallel()

	r := buildReport(map[string]any{}, sampleInventory(), sampleRequirements())

	assert.Len(t, r.PresentSkills, 4)
	assert.Equal(t, PresentSkill{Skill: "Go", Category: "languages", Proficiency: "advanced", MatchesRequirement: true}, r.PresentSkills[0])
	assert.True(t, r.PresentSkills[2].MatchesRequirement, "nice-to-have skills count as matches")
	assert.False(t, r.PresentSkills[1].MatchesRequirement)

	assert.Equal(t, []MissingSkill{
		{Skill: "Kubernetes", Category: "platforms", Priority: "high"},
		{Skill: "Prometheus", Category: "tools", Priority: "medium"},
		{Skill: "Terraform", Category: "tools", Priority: "medium"},
	}, r.MissingCritical)
	assert.Equal(t, []MissingSkill{{Skill: "Rust", Category: "languages", Priority: "low"}}, r.MissingNiceToHave)

	assert.Equal(t, Summary{
		TotalSkillsFound: 4,
		MatchingMustHave: 1,
		MissingCritical:  3,
		StrengthAreas:    []string{"languages", "databases", "soft_skills"},
		GapAreas:         []string{"tools", "platforms"},
		ReadinessScore:   25,
	}, r.Summary)

	assert.Equal(t, Roadmap{
		Immediate: []string{"Kubernetes"},
		ShortTerm: []string{"Prometheus", "Terraform"},
		LongTerm:  []string{"Rust"},
	}, r.Roadmap)

	assert.Equal(t, map[string]int{"languages": 2, "databases": 1, "soft_skills": 1}, r.Visualization.SkillsByCategory)
	assert.Equal(t, map[string]int{"advanced": 1, "intermediate": 2, "unknown": 1}, r.Visualization.ProficiencyDistribution)
	assert.Equal(t, map[string]int{"critical": 1, "moderate": 2, "minor": 0}, r.Visualization.GapSeverity)
}

func TestBuildReportUsesModelReadiness(t *testing.T) {
	t.Parallel()

	r := buildReport(map[string]any{"readiness_score": 64.0, "missing_critical_skills": []any{"Kubernetes"}}, sampleInventory(), sampleRequirements())
	assert.Equal(t, 64, r.Summary.ReadinessScore)
	assert.Equal(t, []MissingSkill{{Skill: "Kubernetes", Category: "general", Priority: "high"}}, r.MissingCritical)
	assert.Equal(t, []string{"general"}, r.Summary.GapAreas)
}

func TestBuildReportSaturatesHugeReadiness(t *testing.T) {
	t.Parallel()

	r := buildReport(map[string]any{"readiness_score": 1e300}, sampleInventory(), sampleRequirements())
	assert.Equal(t, 100, r.Summary.ReadinessScore)

	r = buildReport(map[string]any{"summary": map[string]any{"readiness_score": "1e20"}}, sampleInventory(), sampleRequirements())
	assert.Equal(t, 100, r.Summary.ReadinessScore)
}

func TestBuildReportGapAreasFallBackToNiceToHave(t *testing.T) {
	t.Parallel()

	r := buildReport(map[string]any{
		"missing_critical_skills": []any{},
		"missing_nice_to_have":    []any{map[string]any{"skill": "Rust", "category": "languages"}},
	}, sampleInventory(), sampleRequirements())

	assert.Equal(t, []string{"languages"}, r.Summary.GapAreas)
	assert.Equal(t, []string{"Rust"}, r.Roadmap.LongTerm)
	assert.Equal(t, map[string]int{"critical": 0, "moderate": 0, "minor": 0}, r.Visualization.GapSeverity)
}

func TestSeverityOf(t *testing.T) {
	t.Parallel()

	cases := map[string]string{"high": "critical", "Medium": "moderate", "low": "minor", "": "minor", "urgent": "minor"}
	for priority, want := range cases {
		assert.Equal(t, want, severityOf(priority), priority)
	}
}

func TestTopKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"b", "a", "c"}, topKeys(map[string]int{"a": 1, "b": 3, "c": 1, "d": 0}, 3))
	assert.Empty(t, topKeys(map[string]int{}, 3))
}
