package analyzer

import (
	"math"
	"strings"

	"github.com/spigell/resume-insight/internal/normalize"
)

const (
	defaultCategory   = "content"
	defaultSeverity   = "minor"
	defaultImportance = "medium"
	defaultConfidence = 50
)

var findingTextKeys = []string{"text", "strength", "weakness", "description", "title", "point", "issue"}

// shapeFindings re-homes list items found under any of listKeys and fills
// deterministic defaults. weakness selects severity over importance.
func shapeFindings(rec map[string]any, weakness bool, listKeys ...string) Findings {
	out := Findings{
		Summary: normalize.String(normalize.First(rec, "summary", "overview", "overall_assessment")),
		Items:   []Finding{},
	}

	raw := normalize.First(rec, append([]string{"items"}, listKeys...)...)
	if obj, ok := raw.(map[string]any); ok {
		// {"strengths": {"summary": ..., "items": [...]}}
		if out.Summary == "" {
			out.Summary = normalize.String(obj["summary"])
		}
		raw = normalize.First(obj, append([]string{"items"}, listKeys...)...)
	}

	items, _ := raw.([]any)
	for _, item := range items {
		var f Finding
		switch v := item.(type) {
		case map[string]any:
			f = Finding{
				Text:       normalize.String(normalize.First(v, findingTextKeys...)),
				Category:   strings.ToLower(normalize.String(normalize.First(v, "category", "type", "area"))),
				Confidence: normalize.Clamp(normalize.Int(normalize.First(v, "confidence", "confidence_score"), defaultConfidence), 0, 100),
				Examples:   normalize.Strings(normalize.First(v, "examples", "evidence", "example")),
				Location:   normalize.String(normalize.First(v, "location", "section")),
			}
			level := strings.ToLower(normalize.String(normalize.First(v, "severity", "importance", "impact", "priority")))
			if weakness {
				f.Severity = level
			} else {
				f.Importance = level
			}
		default:
			f = Finding{Text: normalize.String(v), Confidence: defaultConfidence, Examples: []string{}}
		}

		if f.Text == "" {
			continue
		}
		if f.Category == "" {
			f.Category = defaultCategory
		}
		if weakness && f.Severity == "" {
			f.Severity = defaultSeverity
		}
		if !weakness && f.Importance == "" {
			f.Importance = defaultImportance
		}
		out.Items = append(out.Items, f)
	}
	return out
}

func shapeSkillSet(rec map[string]any) SkillSet {
	if nested, ok := normalize.Object(rec, "skills"); ok {
		rec = nested
	}
	return SkillSet{
		Technical: normalize.Strings(normalize.First(rec, "technical_skills", "technical", "hard_skills"), "name", "skill"),
		Soft:      normalize.Strings(normalize.First(rec, "soft_skills", "soft", "interpersonal_skills"), "name", "skill"),
	}
}

func shapeSuggestions(rec map[string]any) []string {
	return normalize.Strings(
		normalize.First(rec, "suggestions", "improvements", "recommendations"),
		"suggestion", "text", "description",
	)
}

func shapeJobMatch(rec map[string]any) JobMatch {
	return JobMatch{
		MatchScore:       normalize.Clamp(normalize.Int(normalize.First(rec, "match_score", "score", "match_percentage"), 0), 0, 100),
		MatchingSkills:   normalize.Strings(normalize.First(rec, "matching_skills", "matched_skills"), "skill", "name"),
		MissingSkills:    normalize.Strings(normalize.First(rec, "missing_skills", "skill_gaps"), "skill", "name"),
		StrengthsForRole: normalize.Strings(normalize.First(rec, "strengths_for_role", "strengths"), "text", "strength"),
		Recommendations:  normalize.Strings(normalize.First(rec, "recommendations", "suggestions"), "text", "recommendation"),
	}
}

var bucketAliases = map[string][]string{
	"languages":        {"languages", "programming_languages"},
	"frameworks":       {"frameworks", "frameworks_libraries", "libraries"},
	"tools":            {"tools", "tools_technologies", "technologies"},
	"databases":        {"databases", "data_stores"},
	"platforms":        {"platforms", "cloud_platforms", "cloud"},
	"methodologies":    {"methodologies", "practices"},
	"soft_skills":      {"soft_skills", "soft"},
	"domain_knowledge": {"domain_knowledge", "domain", "domains"},
	"certifications":   {"certifications", "certificates"},
}

func shapeInventory(rec map[string]any) SkillInventory {
	if nested, ok := normalize.Object(rec, "skills"); ok {
		rec = nested
	}
	bucket := func(name string) []SkillRecord {
		items, _ := normalize.First(rec, bucketAliases[name]...).([]any)
		out := make([]SkillRecord, 0, len(items))
		for _, item := range items {
			if s := shapeSkillRecord(item); s.Name != "" {
				out = append(out, s)
			}
		}
		return out
	}

	return SkillInventory{
		Languages:       bucket("languages"),
		Frameworks:      bucket("frameworks"),
		Tools:           bucket("tools"),
		Databases:       bucket("databases"),
		Platforms:       bucket("platforms"),
		Methodologies:   bucket("methodologies"),
		SoftSkills:      bucket("soft_skills"),
		DomainKnowledge: bucket("domain_knowledge"),
		Certifications:  bucket("certifications"),
	}
}

func shapeSkillRecord(item any) SkillRecord {
	obj, ok := item.(map[string]any)
	if !ok {
		return SkillRecord{Name: normalize.String(item), Proficiency: Unknown}
	}

	rec := SkillRecord{
		Name:        normalize.String(normalize.First(obj, "name", "skill")),
		Proficiency: Proficiency(normalize.String(normalize.First(obj, "proficiency", "level"))),
		Context:     normalize.String(normalize.First(obj, "context", "evidence", "usage")),
	}
	if years := normalize.Float(normalize.First(obj, "years_experience", "years")); !math.IsNaN(years) {
		rec.YearsExperience = normalize.String(years)
	}
	return rec
}

// Proficiency maps free-form proficiency wording onto the fixed scale.
func Proficiency(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return Unknown
	case strings.Contains(s, "begin"), strings.Contains(s, "basic"), strings.Contains(s, "novice"), strings.Contains(s, "familiar"):
		return Beginner
	case strings.Contains(s, "inter"), strings.Contains(s, "working"), strings.Contains(s, "competent"), strings.Contains(s, "mid"):
		return Intermediate
	case strings.Contains(s, "adv"), strings.Contains(s, "expert"), strings.Contains(s, "proficient"), strings.Contains(s, "senior"), strings.Contains(s, "strong"):
		return Advanced
	default:
		return Unknown
	}
}

func shapeRole(rec map[string]any) RoleGuess {
	return RoleGuess{
		Role:      normalize.String(normalize.First(rec, "role", "target_role", "job_title", "title")),
		Level:     strings.ToLower(normalize.String(normalize.First(rec, "level", "experience_level", "seniority"))),
		Reasoning: normalize.String(normalize.First(rec, "reasoning", "explanation", "reason")),
	}
}

var (
	mustHaveKeys   = []string{"must_have", "must-have", "required", "required_skills", "essential", "core_skills", "critical_skills"}
	niceToHaveKeys = []string{"nice_to_have", "nice-to-have", "preferred", "preferred_skills", "optional", "bonus_skills"}
	emergingKeys   = []string{"emerging_skills", "emerging", "trending_skills", "future_skills"}
)

func shapeRequirements(rec map[string]any, role, level string) IndustryRequirements {
	lookup := func(keys []string) any {
		if v := normalize.First(rec, keys...); v != nil {
			return v
		}
		if nested, ok := normalize.Object(rec, "requirements"); ok {
			return normalize.First(nested, keys...)
		}
		return nil
	}

	out := IndustryRequirements{
		Role:       normalize.String(rec["role"]),
		Level:      strings.ToLower(normalize.String(rec["level"])),
		MustHave:   requirementList(lookup(mustHaveKeys), "high"),
		NiceToHave: requirementList(lookup(niceToHaveKeys), "medium"),
		Emerging:   requirementList(lookup(emergingKeys), "low"),
	}
	if out.Role == "" {
		out.Role = role
	}
	if out.Level == "" {
		out.Level = strings.ToLower(level)
	}
	return out
}

func requirementList(v any, importance string) []Requirement {
	items, _ := v.([]any)
	out := make([]Requirement, 0, len(items))
	for _, item := range items {
		var r Requirement
		if obj, ok := item.(map[string]any); ok {
			r = Requirement{
				Skill:        normalize.String(normalize.First(obj, "skill", "name")),
				Category:     normalize.String(obj["category"]),
				Importance:   strings.ToLower(normalize.String(normalize.First(obj, "importance", "priority"))),
				TypicalYears: normalize.String(normalize.First(obj, "typical_years", "years")),
			}
		} else {
			r = Requirement{Skill: normalize.String(item)}
		}
		if r.Skill == "" {
			continue
		}
		if r.Category == "" {
			r.Category = "general"
		}
		if r.Importance == "" {
			r.Importance = importance
		}
		out = append(out, r)
	}
	return out
}
