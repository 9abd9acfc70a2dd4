package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/resume-insight/internal/normalize"
	"github.com/spigell/resume-insight/internal/prompts"
)

// CallOption adjusts a single request built by a shaped getter.
type CallOption func(*Request)

// NoCache forces a fresh call that neither reads nor writes the cache.
func NoCache() CallOption {
	return func(r *Request) { r.UseCache = false }
}

func (a *Analyzer) request(kind prompts.Kind, subject string, prompt PromptFunc, opts []CallOption, params ...string) Request {
	req := Request{
		Subject:  subject,
		Kind:     kind,
		Params:   params,
		Prompt:   prompt,
		UseCache: a.cache != nil,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

func (a *Analyzer) GetStrengths(ctx context.Context, resume string, opts ...CallOption) (Findings, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.Strengths, resume, Template(prompts.Strengths, prompts.Vars{}), opts))
	if err != nil {
		return Findings{}, err
	}
	return shapeFindings(rec, false, "strengths", "key_strengths"), nil
}

func (a *Analyzer) GetWeaknesses(ctx context.Context, resume string, opts ...CallOption) (Findings, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.Weaknesses, resume, Template(prompts.Weaknesses, prompts.Vars{}), opts))
	if err != nil {
		return Findings{}, err
	}
	return shapeFindings(rec, true, "weaknesses", "areas_for_improvement", "improvements"), nil
}

func (a *Analyzer) GetSkills(ctx context.Context, resume string, opts ...CallOption) (SkillSet, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.Skills, resume, Template(prompts.Skills, prompts.Vars{}), opts))
	if err != nil {
		return SkillSet{}, err
	}
	return shapeSkillSet(rec), nil
}

func (a *Analyzer) GetSuggestions(ctx context.Context, resume string, opts ...CallOption) ([]string, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.Suggestions, resume, Template(prompts.Suggestions, prompts.Vars{}), opts))
	if err != nil {
		return nil, err
	}
	return shapeSuggestions(rec), nil
}

// MatchJob compares a resume with a job description. The description takes
// part in the cache key.
func (a *Analyzer) MatchJob(ctx context.Context, resume, jobDescription string, opts ...CallOption) (JobMatch, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return JobMatch{}, fmt.Errorf("job description must not be empty")
	}
	prompt := Template(prompts.JobMatch, prompts.Vars{JobDescription: jobDescription})
	rec, err := a.Analyze(ctx, a.request(prompts.JobMatch, resume, prompt, opts, jobDescription))
	if err != nil {
		return JobMatch{}, err
	}
	return shapeJobMatch(rec), nil
}

func (a *Analyzer) DetailedSkills(ctx context.Context, resume string, opts ...CallOption) (SkillInventory, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.DetailedSkills, resume, Template(prompts.DetailedSkills, prompts.Vars{}), opts))
	if err != nil {
		return SkillInventory{}, err
	}
	inv := shapeInventory(rec)
	if inv.Count() == 0 {
		return SkillInventory{}, &ValidationError{Kind: prompts.DetailedSkills, Reason: "no skills in any bucket"}
	}
	return inv, nil
}

// InferRole proposes a target role from an excerpt of the resume.
func (a *Analyzer) InferRole(ctx context.Context, resume string, opts ...CallOption) (RoleGuess, error) {
	rec, err := a.Analyze(ctx, a.request(prompts.RoleInference, resume, Template(prompts.RoleInference, prompts.Vars{}), opts))
	if err != nil {
		return RoleGuess{}, err
	}
	guess := shapeRole(rec)
	if guess.Role == "" {
		return RoleGuess{}, &ValidationError{Kind: prompts.RoleInference, Reason: "no role proposed"}
	}
	return guess, nil
}

// IndustrySkills looks up the skills expected for a role at a level. The pair
// is the cache subject.
func (a *Analyzer) IndustrySkills(ctx context.Context, role, level string, opts ...CallOption) (IndustryRequirements, error) {
	if strings.TrimSpace(role) == "" {
		return IndustryRequirements{}, fmt.Errorf("role must not be empty")
	}
	vars := prompts.Vars{Role: role, Level: level}
	prompt := func(string) (string, error) { return prompts.Render(prompts.IndustrySkills, vars) }

	rec, err := a.Analyze(ctx, a.request(prompts.IndustrySkills, role, prompt, opts, strings.ToLower(level)))
	if err != nil {
		return IndustryRequirements{}, err
	}
	return shapeRequirements(rec, role, level), nil
}

// GapAnalysis compares an inventory with requirements and returns the raw
// record for the caller to enrich.
func (a *Analyzer) GapAnalysis(ctx context.Context, inv SkillInventory, reqs IndustryRequirements, opts ...CallOption) (map[string]any, error) {
	skills, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("marshal skill inventory: %w", err)
	}
	requirements, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}

	vars := prompts.Vars{Role: reqs.Role, Level: reqs.Level, Skills: string(skills), Requirements: string(requirements)}
	prompt := func(string) (string, error) { return prompts.Render(prompts.GapAnalysis, vars) }

	return a.Analyze(ctx, a.request(prompts.GapAnalysis, string(skills), prompt, opts, string(requirements)))
}

// OverallScore asks for a bare 0-100 rating and extracts the first integer
// token in range from the reply.
func (a *Analyzer) OverallScore(ctx context.Context, resume string, opts ...CallOption) (int, error) {
	req := a.request(prompts.OverallScore, resume, Template(prompts.OverallScore, prompts.Vars{}), opts)
	req.Parse = func(raw string) (map[string]any, error) {
		score, ok := normalize.FirstScore(raw)
		if !ok {
			return nil, &ParseError{Kind: prompts.OverallScore, Raw: raw}
		}
		return map[string]any{"score": score}, nil
	}

	rec, err := a.Analyze(ctx, req)
	if err != nil {
		return 0, err
	}
	return normalize.Clamp(normalize.Int(rec["score"], 0), 0, 100), nil
}

// Assess runs one of the scorer's catalog prompts and returns the raw record.
func (a *Analyzer) Assess(ctx context.Context, kind prompts.Kind, resume string, opts ...CallOption) (map[string]any, error) {
	return a.Analyze(ctx, a.request(kind, resume, Template(kind, prompts.Vars{}), opts))
}
