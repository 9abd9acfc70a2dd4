// Package skillsgap compares a resume's skills with what a target role
// requires. It runs four stages on top of the analyzer: skill extraction, role
// inference, industry lookup and gap computation.
package skillsgap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/resume-insight/internal/analyzer"
	"github.com/spigell/resume-insight/internal/cache"
	"github.com/spigell/resume-insight/internal/normalize"
	"github.com/spigell/resume-insight/internal/prompts"
	"go.uber.org/zap"
)

const (
	// DefaultRole is used when no role is supplied and inference fails.
	DefaultRole  = "Software Engineer"
	DefaultLevel = "mid"
)

// Role sources recorded in the report.
const (
	RoleSupplied = "supplied"
	RoleInferred = "inferred"
	RoleDefault  = "default"
)

// Engine is the part of the analyzer the stages rely on.
type Engine interface {
	DetailedSkills(ctx context.Context, resume string, opts ...analyzer.CallOption) (analyzer.SkillInventory, error)
	InferRole(ctx context.Context, resume string, opts ...analyzer.CallOption) (analyzer.RoleGuess, error)
	IndustrySkills(ctx context.Context, role, level string, opts ...analyzer.CallOption) (analyzer.IndustryRequirements, error)
	GapAnalysis(ctx context.Context, inv analyzer.SkillInventory, reqs analyzer.IndustryRequirements, opts ...analyzer.CallOption) (map[string]any, error)
	Lookup(ctx context.Context, kind prompts.Kind, subject string, params ...string) (map[string]any, bool)
	Remember(ctx context.Context, kind prompts.Kind, rec map[string]any, subject string, params ...string) error
}

// Input starts a pipeline run. An empty Role triggers inference.
type Input struct {
	Resume   string
	Role     string
	Level    string
	UseCache bool
}

// State is shared by the stages of one run.
type State struct {
	Resume       string
	Role         string
	Level        string
	RoleSource   string
	Inventory    analyzer.SkillInventory
	Requirements analyzer.IndustryRequirements
	Gap          map[string]any
	CallOptions  []analyzer.CallOption
}

// Stage is one step of the pipeline. A failing critical stage aborts the run.
type Stage interface {
	Name() string
	Critical() bool
	Run(ctx context.Context, st *State) error
}

// fallbacker is implemented by non-critical stages that can recover state
// after a failure.
type fallbacker interface {
	Fallback(st *State, err error)
}

// StageError reports the critical stage that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("skills gap stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Status describes a stage for display.
type Status struct {
	Name     string `json:"name"`
	Critical bool   `json:"critical"`
}

// Describe returns status entries for the provided stages.
func Describe(stages []Stage) []Status {
	out := make([]Status, 0, len(stages))
	for _, s := range stages {
		out = append(out, Status{Name: s.Name(), Critical: s.Critical()})
	}
	return out
}

// Pipeline runs the stages in order.
type Pipeline struct {
	engine Engine
	stages []Stage
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithStages replaces the default stages.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) { p.stages = stages }
}

func New(engine Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		stages: DefaultStages(engine),
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the configured stages.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Run produces a gap report. Extraction, industry lookup and gap computation
// failures abort the run; a failed role inference falls back to DefaultRole.
func (p *Pipeline) Run(ctx context.Context, in Input) (*GapReport, error) {
	if strings.TrimSpace(in.Resume) == "" {
		return nil, fmt.Errorf("resume text must not be empty")
	}

	st := &State{
		Resume:     in.Resume,
		Role:       strings.TrimSpace(in.Role),
		Level:      strings.ToLower(strings.TrimSpace(in.Level)),
		RoleSource: RoleSupplied,
	}
	if st.Level == "" {
		st.Level = DefaultLevel
	}
	if !in.UseCache {
		st.CallOptions = append(st.CallOptions, analyzer.NoCache())
	}

	p.logger.Info("starting skills gap analysis",
		zap.String("role", st.Role),
		zap.String("level", st.Level),
		zap.Int("stages", len(p.stages)),
	)

	checked := false
	for _, stage := range p.stages {
		if in.UseCache && !checked && st.Role != "" && st.Inventory.Count() > 0 {
			checked = true
			if report, ok := p.cached(ctx, st); ok {
				return report, nil
			}
		}

		started := p.now()
		err := stage.Run(ctx, st)
		if err == nil {
			p.logger.Info("skills gap stage finished", zap.String("stage", stage.Name()), zap.Duration("took", p.now().Sub(started)))
			continue
		}
		if stage.Critical() {
			p.logger.Error("skills gap stage failed", zap.String("stage", stage.Name()), zap.Error(err))
			return nil, &StageError{Stage: stage.Name(), Err: err}
		}

		p.logger.Warn("skills gap stage failed, continuing", zap.String("stage", stage.Name()), zap.Error(err))
		if f, ok := stage.(fallbacker); ok {
			f.Fallback(st, err)
		}
	}

	if st.Gap == nil {
		return nil, fmt.Errorf("skills gap pipeline finished without a gap record")
	}

	report := buildReport(st.Gap, st.Inventory, st.Requirements)
	report.ID = p.newID()
	report.TargetRole = st.Role
	report.ExperienceLevel = st.Level
	report.RoleSource = st.RoleSource
	report.GeneratedAt = p.now().UTC()

	if in.UseCache {
		p.remember(ctx, st, report)
	}
	return report, nil
}

func (p *Pipeline) cached(ctx context.Context, st *State) (*GapReport, bool) {
	digest, err := inventoryDigest(st.Inventory)
	if err != nil {
		return nil, false
	}
	rec, ok := p.engine.Lookup(ctx, prompts.SkillsGap, digest, st.Role, st.Level)
	if !ok {
		return nil, false
	}

	var report GapReport
	if err := normalize.Decode(rec, &report); err != nil {
		p.logger.Warn("discarding undecodable cached gap report", zap.Error(err))
		return nil, false
	}
	p.logger.Info("serving skills gap report from cache", zap.String("id", report.ID))
	return &report, true
}

func (p *Pipeline) remember(ctx context.Context, st *State, report *GapReport) {
	digest, err := inventoryDigest(st.Inventory)
	if err != nil {
		p.logger.Warn("cannot digest skill inventory", zap.Error(err))
		return
	}
	rec, err := normalize.ToRecord(report)
	if err != nil {
		p.logger.Warn("cannot encode gap report", zap.Error(err))
		return
	}
	_ = p.engine.Remember(ctx, prompts.SkillsGap, rec, digest, st.Role, st.Level)
}

// inventoryDigest fingerprints a skill inventory snapshot.
func inventoryDigest(inv analyzer.SkillInventory) (string, error) {
	data, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("marshal skill inventory: %w", err)
	}
	return cache.Key(string(data), "skill_inventory"), nil
}
