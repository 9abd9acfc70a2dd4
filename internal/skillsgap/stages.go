package skillsgap

import (
	"context"
	"strings"
)

// DefaultStages returns extract, infer_role, industry_lookup and gap_compute.
func DefaultStages(engine Engine) []Stage {
	return []Stage{
		&extractStage{engine: engine},
		&inferRoleStage{engine: engine},
		&industryStage{engine: engine},
		&gapStage{engine: engine},
	}
}

type extractStage struct {
	engine Engine
}

func (s *extractStage) Name() string   { return "extract" }
func (s *extractStage) Critical() bool { return true }

func (s *extractStage) Run(ctx context.Context, st *State) error {
	inv, err := s.engine.DetailedSkills(ctx, st.Resume, st.CallOptions...)
	if err != nil {
		return err
	}
	st.Inventory = inv
	return nil
}

type inferRoleStage struct {
	engine Engine
}

func (s *inferRoleStage) Name() string   { return "infer_role" }
func (s *inferRoleStage) Critical() bool { return false }

func (s *inferRoleStage) Run(ctx context.Context, st *State) error {
	if st.Role != "" {
		return nil
	}

	guess, err := s.engine.InferRole(ctx, st.Resume, st.CallOptions...)
	if err != nil {
		return err
	}
	st.Role = guess.Role
	st.RoleSource = RoleInferred
	return nil
}

func (s *inferRoleStage) Fallback(st *State, _ error) {
	st.Role = DefaultRole
	st.RoleSource = RoleDefault
}

type industryStage struct {
	engine Engine
}

func (s *industryStage) Name() string   { return "industry_lookup" }
func (s *industryStage) Critical() bool { return true }

func (s *industryStage) Run(ctx context.Context, st *State) error {
	reqs, err := s.engine.IndustrySkills(ctx, st.Role, st.Level, st.CallOptions...)
	if err != nil {
		return err
	}
	st.Requirements = reqs
	return nil
}

type gapStage struct {
	engine Engine
}

func (s *gapStage) Name() string   { return "gap_compute" }
func (s *gapStage) Critical() bool { return true }

func (s *gapStage) Run(ctx context.Context, st *State) error {
	reqs := st.Requirements
	reqs.Role = st.Role
	if strings.TrimSpace(reqs.Level) == "" {
		reqs.Level = st.Level
	}

	rec, err := s.engine.GapAnalysis(ctx, st.Inventory, reqs, st.CallOptions...)
	if err != nil {
		return err
	}
	st.Gap = rec
	return nil
}
