// Package prompts holds the declarative prompt templates, one per analysis kind.
// Each template states the output shape the normalizer and analyzer rely on.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/spigell/resume-insight/internal/utils"
)

// Kind selects a prompt template and the post-processing applied to its reply.
type Kind string

const (
	Strengths      Kind = "strengths"
	Weaknesses     Kind = "weaknesses"
	Skills         Kind = "skills"
	Suggestions    Kind = "suggestions"
	JobMatch       Kind = "job_match"
	Comprehensive  Kind = "comprehensive"
	OverallScore   Kind = "overall_score"
	DetailedSkills Kind = "detailed_skills"
	RoleInference  Kind = "role_inference"
	IndustrySkills Kind = "industry_skills"
	GapAnalysis    Kind = "gap_analysis"
	ContentQuality Kind = "content_quality"
	KeywordScan    Kind = "keyword_scan"
	ExperienceScan Kind = "experience_review"

	// SkillsGap names the enriched gap report. It has no template of its own.
	SkillsGap Kind = "skills_gap"
)

// Vars are the values a template may reference. Unused fields are ignored.
type Vars struct {
	Resume         string
	JobDescription string
	Role           string
	Level          string
	// Skills and Requirements carry JSON documents produced by earlier stages.
	Skills       string
	Requirements string
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	loadOnce  sync.Once
	templates map[Kind]*template.Template
	loadErr   error
)

var funcs = template.FuncMap{
	"excerpt": utils.Excerpt,
}

func load() {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		loadErr = fmt.Errorf("read prompt templates: %w", err)
		return
	}

	templates = make(map[Kind]*template.Template, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		data, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			loadErr = fmt.Errorf("read prompt %s: %w", name, err)
			return
		}

		kind := Kind(strings.TrimSuffix(name, ".tmpl"))
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(data))
		if err != nil {
			loadErr = fmt.Errorf("parse prompt %s: %w", name, err)
			return
		}
		templates[kind] = tmpl
	}
}

// Render fills the template for kind.
func Render(kind Kind, vars Vars) (string, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return "", loadErr
	}

	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("no prompt template for analysis kind %q", kind)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", kind, err)
	}
	return buf.String(), nil
}

// Kinds lists every kind that has a template, sorted by name.
func Kinds() []Kind {
	loadOnce.Do(load)

	kinds := make([]Kind, 0, len(templates))
	for k := range templates {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Analyses lists the kinds a user can request directly from the command line.
func Analyses() []Kind {
	return []Kind{Strengths, Weaknesses, Skills, Suggestions, JobMatch, Comprehensive, OverallScore, DetailedSkills}
}

// ParseKind accepts a user-supplied kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Analyses() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}
