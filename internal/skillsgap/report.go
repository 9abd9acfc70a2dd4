package skillsgap

import (
	"sort"
	"strings"
	"time"

	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/normalize"
)

const (
	roadmapLimit = 5
	areasLimit   = 3
)

// Summary condenses a gap report.
type Summary struct {
	TotalSkillsFound int      `json:"total_skills_found"`
	MatchingMustHave int      `json:"matching_must_have"`
	MissingCritical  int      `json:"missing_critical"`
	StrengthAreas    []string `json:"strength_areas"`
	GapAreas         []string `json:"gap_areas"`
	ReadinessScore   int      `json:"readiness_score"`
}

type PresentSkill struct {
	Skill              string `json:"skill"`
	Category           string `json:"category"`
	Proficiency        string `json:"proficiency"`
	MatchesRequirement bool   `json:"matches_requirement"`
}

type MissingSkill struct {
	Skill    string `json:"skill"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

type Recommendation struct {
	Skill         string   `json:"skill"`
	Priority      string   `json:"priority"`
	LearningTime  string   `json:"learning_time"`
	Prerequisites []string `json:"prerequisites"`
	LearningPath  []string `json:"learning_path"`
	Resources     []string `json:"resources"`
}

type Roadmap struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

type Visualization struct {
	SkillsByCategory        map[string]int `json:"skills_by_category"`
	ProficiencyDistribution map[string]int `json:"proficiency_distribution"`
	GapSeverity             map[string]int `json:"gap_severity"`
}

// GapReport is the enriched result of a pipeline run.
type GapReport struct {
	ID              string    `json:"id"`
	TargetRole      string    `json:"target_role"`
	ExperienceLevel string    `json:"experience_level"`
	RoleSource      string    `json:"role_source"`
	GeneratedAt     time.Time `json:"generated_at"`

	Summary           Summary          `json:"summary"`
	PresentSkills     []PresentSkill   `json:"present_skills"`
	MissingCritical   []MissingSkill   `json:"missing_critical_skills"`
	MissingNiceToHave []MissingSkill   `json:"missing_nice_to_have"`
	Recommendations   []Recommendation `json:"skill_recommendations"`
	Roadmap           Roadmap          `json:"learning_roadmap"`
	Visualization     Visualization    `json:"visualization_data"`
}

// severityOf maps a recommendation priority to a gap severity.
func severityOf(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "high":
		return "critical"
	case "medium":
		return "moderate"
	default:
		return "minor"
	}
}

// buildReport shapes the gap record, deriving whatever the model left out
// from the inventory and the requirements.
func buildReport(rec map[string]any, inv analyzer.SkillInventory, reqs analyzer.IndustryRequirements) *GapReport {
	required := nameSet(reqs.MustHave)
	wanted := nameSet(append(append([]analyzer.Requirement{}, reqs.MustHave...), reqs.NiceToHave...))

	r := &GapReport{
		PresentSkills:   presentSkills(rec["present_skills"]),
		Recommendations: recommendations(rec["skill_recommendations"]),
	}
	if len(r.PresentSkills) == 0 {
		r.PresentSkills = derivePresent(inv, wanted)
	}
	present := make(map[string]bool, len(r.PresentSkills))
	for _, s := range r.PresentSkills {
		present[strings.ToLower(s.Skill)] = true
	}

	if v, ok := rec["missing_critical_skills"]; ok {
		r.MissingCritical = missingSkills(v, "high")
	} else {
		r.MissingCritical = deriveMissing(reqs.MustHave, present, "high")
	}
	if v, ok := rec["missing_nice_to_have"]; ok {
		r.MissingNiceToHave = missingSkills(v, "low")
	} else {
		r.MissingNiceToHave = deriveMissing(reqs.NiceToHave, present, "low")
	}

	if summary, ok := normalize.Object(rec, "summary"); ok && len(summary) > 0 {
		r.Summary = shapeSummary(summary)
	} else {
		r.Summary = deriveSummary(r, required, present, rec["readiness_score"])
	}

	if roadmap, ok := normalize.Object(rec, "learning_roadmap"); ok && len(roadmap) > 0 {
		r.Roadmap = Roadmap{
			Immediate: normalize.Strings(normalize.First(roadmap, "immediate", "immediate_focus"), "skill"),
			ShortTerm: normalize.Strings(roadmap["short_term"], "skill"),
			LongTerm:  normalize.Strings(roadmap["long_term"], "skill"),
		}
	} else {
		r.Roadmap = deriveRoadmap(r.MissingCritical, r.MissingNiceToHave)
	}

	if viz, ok := normalize.Object(rec, "visualization_data"); ok && len(viz) > 0 {
		r.Visualization = Visualization{
			SkillsByCategory:        counts(viz["skills_by_category"]),
			ProficiencyDistribution: counts(viz["proficiency_distribution"]),
			GapSeverity:             counts(viz["gap_severity"]),
		}
	} else {
		r.Visualization = deriveVisualization(r.PresentSkills, r.MissingCritical)
	}
	return r
}

func nameSet(reqs []analyzer.Requirement) map[string]bool {
	out := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		out[strings.ToLower(r.Skill)] = true
	}
	return out
}

func presentSkills(v any) []PresentSkill {
	items, _ := v.([]any)
	out := make([]PresentSkill, 0, len(items))
	for _, item := range items {
		s := PresentSkill{Category: "general", Proficiency: analyzer.Unknown}
		if obj, ok := item.(map[string]any); ok {
			s.Skill = normalize.String(normalize.First(obj, "skill", "name"))
			if c := normalize.String(obj["category"]); c != "" {
				s.Category = c
			}
			s.Proficiency = analyzer.Proficiency(normalize.String(obj["proficiency"]))
			s.MatchesRequirement = normalize.Bool(obj["matches_requirement"])
		} else {
			s.Skill = normalize.String(item)
		}
		if s.Skill != "" {
			out = append(out, s)
		}
	}
	return out
}

func derivePresent(inv analyzer.SkillInventory, wanted map[string]bool) []PresentSkill {
	out := make([]PresentSkill, 0, inv.Count())
	for _, b := range inv.Buckets() {
		for _, s := range b.Skills {
			out = append(out, PresentSkill{
				Skill:              s.Name,
				Category:           b.Name,
				Proficiency:        s.Proficiency,
				MatchesRequirement: wanted[strings.ToLower(s.Name)],
			})
		}
	}
	return out
}

func missingSkills(v any, priority string) []MissingSkill {
	items, _ := v.([]any)
	out := make([]MissingSkill, 0, len(items))
	for _, item := range items {
		m := MissingSkill{Category: "general", Priority: priority}
		if obj, ok := item.(map[string]any); ok {
			m.Skill = normalize.String(normalize.First(obj, "skill", "name"))
			if c := normalize.String(obj["category"]); c != "" {
				m.Category = c
			}
			if p := normalize.String(normalize.First(obj, "priority", "importance")); p != "" {
				m.Priority = strings.ToLower(p)
			}
		} else {
			m.Skill = normalize.String(item)
		}
		if m.Skill != "" {
			out = append(out, m)
		}
	}
	return out
}

func deriveMissing(reqs []analyzer.Requirement, present map[string]bool, priority string) []MissingSkill {
	out := make([]MissingSkill, 0, len(reqs))
	for _, r := range reqs {
		if present[strings.ToLower(r.Skill)] {
			continue
		}
		p := priority
		if r.Importance != "" {
			p = r.Importance
		}
		out = append(out, MissingSkill{Skill: r.Skill, Category: r.Category, Priority: p})
	}
	return out
}

func recommendations(v any) []Recommendation {
	items, _ := v.([]any)
	out := make([]Recommendation, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			if s := normalize.String(item); s != "" {
				out = append(out, Recommendation{Skill: s, Priority: "medium", Prerequisites: []string{}, LearningPath: []string{}, Resources: []string{}})
			}
			continue
		}
		rec := Recommendation{
			Skill:         normalize.String(normalize.First(obj, "skill", "name")),
			Priority:      strings.ToLower(normalize.String(obj["priority"])),
			LearningTime:  normalize.String(normalize.First(obj, "learning_time", "estimated_time", "time_to_learn")),
			Prerequisites: normalize.Strings(obj["prerequisites"], "skill", "name"),
			LearningPath:  normalize.Strings(normalize.First(obj, "learning_path", "steps"), "step", "description"),
			Resources:     normalize.Strings(obj["resources"], "name", "title", "url"),
		}
		if rec.Skill == "" {
			continue
		}
		if rec.Priority == "" {
			rec.Priority = "medium"
		}
		out = append(out, rec)
	}
	return out
}

func shapeSummary(obj map[string]any) Summary {
	return Summary{
		TotalSkillsFound: normalize.Int(obj["total_skills_found"], 0),
		MatchingMustHave: normalize.Int(obj["matching_must_have"], 0),
		MissingCritical:  normalize.Int(obj["missing_critical"], 0),
		StrengthAreas:    normalize.Strings(obj["strength_areas"]),
		GapAreas:         normalize.Strings(obj["gap_areas"]),
		ReadinessScore:   normalize.Clamp(normalize.Int(obj["readiness_score"], 0), 0, 100),
	}
}

func deriveSummary(r *GapReport, required, present map[string]bool, readiness any) Summary {
	matching := 0
	for name := range required {
		if present[name] {
			matching++
		}
	}

	byCategory := map[string]int{}
	for _, s := range r.PresentSkills {
		byCategory[s.Category]++
	}
	gaps := map[string]int{}
	for _, m := range r.MissingCritical {
		gaps[m.Category]++
	}
	gapAreas := topKeys(gaps, areasLimit)
	if len(gapAreas) == 0 {
		soft := map[string]int{}
		for _, m := range r.MissingNiceToHave {
			soft[m.Category]++
		}
		gapAreas = topKeys(soft, areasLimit)
	}

	score := normalize.Int(readiness, -1)
	if score < 0 {
		score = 0
		if len(required) > 0 {
			score = matching * 100 / len(required)
		}
	}

	return Summary{
		TotalSkillsFound: len(r.PresentSkills),
		MatchingMustHave: matching,
		MissingCritical:  len(r.MissingCritical),
		StrengthAreas:    topKeys(byCategory, areasLimit),
		GapAreas:         gapAreas,
		ReadinessScore:   normalize.Clamp(score, 0, 100),
	}
}

func deriveRoadmap(critical, nice []MissingSkill) Roadmap {
	pick := func(list []MissingSkill, priority string) []string {
		out := []string{}
		for _, m := range list {
			if m.Priority == priority && len(out) < roadmapLimit {
				out = append(out, m.Skill)
			}
		}
		return out
	}
	return Roadmap{
		Immediate: pick(critical, "high"),
		ShortTerm: pick(critical, "medium"),
		LongTerm:  pick(nice, "low"),
	}
}

func deriveVisualization(present []PresentSkill, critical []MissingSkill) Visualization {
	viz := Visualization{
		SkillsByCategory:        map[string]int{},
		ProficiencyDistribution: map[string]int{},
		GapSeverity:             map[string]int{"critical": 0, "moderate": 0, "minor": 0},
	}
	for _, s := range present {
		viz.SkillsByCategory[s.Category]++
		viz.ProficiencyDistribution[s.Proficiency]++
	}
	for _, m := range critical {
		viz.GapSeverity[severityOf(m.Priority)]++
	}
	return viz
}

func counts(v any) map[string]int {
	out := map[string]int{}
	obj, _ := v.(map[string]any)
	for k, n := range obj {
		out[k] = normalize.Int(n, 0)
	}
	return out
}

// topKeys returns up to limit keys by descending count, ties broken by name.
func topKeys(m map[string]int, limit int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
