package analyzer

import (
	"context"
	"fmt"

	"github.com/spigell/resume-insight/internal/normalize"
	"github.com/spigell/resume-insight/internal/prompts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var comprehensiveSections = []string{"strengths", "weaknesses", "skills", "suggestions"}

// ComprehensiveAnalysis performs one structured call for all four sections and
// an independent overall-score call. The bundle is cached as one unit keyed by
// the resume alone.
func (a *Analyzer) ComprehensiveAnalysis(ctx context.Context, resume string, opts ...CallOption) (Comprehensive, error) {
	unit := a.request(prompts.Comprehensive, resume, nil, opts)
	if unit.UseCache {
		if rec, ok := a.Lookup(ctx, prompts.Comprehensive, resume); ok {
			var out Comprehensive
			err := normalize.Decode(rec, &out)
			if err == nil {
				a.logger.Debug("serving comprehensive analysis from cache")
				return out, nil
			}
			a.logger.Warn("discarding undecodable cached comprehensive analysis", zap.Error(err))
		}
	}

	var (
		sections map[string]any
		score    int
		scoreErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := a.Analyze(gctx, Request{
			Subject: resume,
			Kind:    prompts.Comprehensive,
			Prompt:  Template(prompts.Comprehensive, prompts.Vars{}),
		})
		if err != nil {
			return err
		}
		sections = rec
		return nil
	})
	g.Go(func() error {
		// A failed score leaves the bundle without one rather than failing it.
		score, scoreErr = a.OverallScore(gctx, resume, NoCache())
		return nil
	})
	if err := g.Wait(); err != nil {
		return Comprehensive{}, err
	}

	out := shapeComprehensive(sections)
	if scoreErr != nil {
		a.logger.Warn("overall score unavailable", zap.Error(scoreErr))
	} else {
		out.OverallScore = &score
	}
	if len(out.Missing) > 0 {
		a.logger.Warn("comprehensive analysis missing sections", zap.Strings("sections", out.Missing))
	}

	if unit.UseCache {
		rec, err := normalize.ToRecord(out)
		if err != nil {
			return out, fmt.Errorf("encode comprehensive analysis: %w", err)
		}
		_ = a.Remember(ctx, prompts.Comprehensive, rec, resume)
	}
	return out, nil
}

func shapeComprehensive(rec map[string]any) Comprehensive {
	out := Comprehensive{Suggestions: []string{}}
	for _, section := range comprehensiveSections {
		if _, ok := rec[section]; !ok {
			out.Missing = append(out.Missing, section)
		}
	}

	out.Strengths = shapeFindings(sectionRecord(rec, "strengths"), false, "strengths")
	out.Weaknesses = shapeFindings(sectionRecord(rec, "weaknesses"), true, "weaknesses")
	out.Skills = shapeSkillSet(sectionRecord(rec, "skills"))
	out.Suggestions = shapeSuggestions(map[string]any{"suggestions": rec["suggestions"]})
	return out
}

// sectionRecord returns rec[key] as a record. A bare list becomes the items of
// an otherwise empty record.
func sectionRecord(rec map[string]any, key string) map[string]any {
	switch v := rec[key].(type) {
	case map[string]any:
		return v
	case []any:
		return map[string]any{"items": v}
	default:
		return map[string]any{}
	}
}
