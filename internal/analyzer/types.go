package analyzer

// Finding is one strength or weakness.
type Finding struct {
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	Severity   string   `json:"severity,omitempty"`
	Importance string   `json:"importance,omitempty"`
	Confidence int      `json:"confidence"`
	Examples   []string `json:"examples"`
	Location   string   `json:"location"`
}

// Findings is the shaped result of a strengths or weaknesses analysis.
type Findings struct {
	Summary string    `json:"summary"`
	Items   []Finding `json:"items"`
}

// SkillSet is the shaped result of a skills analysis.
type SkillSet struct {
	Technical []string `json:"technical_skills"`
	Soft      []string `json:"soft_skills"`
}

// JobMatch is the shaped result of matching a resume with a job description.
type JobMatch struct {
	MatchScore       int      `json:"match_score"`
	MatchingSkills   []string `json:"matching_skills"`
	MissingSkills    []string `json:"missing_skills"`
	StrengthsForRole []string `json:"strengths_for_role"`
	Recommendations  []string `json:"recommendations"`
}

// Proficiency levels of a SkillRecord.
const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
	Unknown      = "unknown"
)

// SkillRecord is one entry of a skill inventory.
type SkillRecord struct {
	Name            string `json:"name"`
	Proficiency     string `json:"proficiency"`
	YearsExperience string `json:"years_experience,omitempty"`
	Context         string `json:"context,omitempty"`
}

// SkillInventory groups skills by bucket.
type SkillInventory struct {
	Languages       []SkillRecord `json:"languages"`
	Frameworks      []SkillRecord `json:"frameworks"`
	Tools           []SkillRecord `json:"tools"`
	Databases       []SkillRecord `json:"databases"`
	Platforms       []SkillRecord `json:"platforms"`
	Methodologies   []SkillRecord `json:"methodologies"`
	SoftSkills      []SkillRecord `json:"soft_skills"`
	DomainKnowledge []SkillRecord `json:"domain_knowledge"`
	Certifications  []SkillRecord `json:"certifications"`
}

// Bucket is a named group of an inventory.
type Bucket struct {
	Name   string
	Skills []SkillRecord
}

// Buckets lists the inventory in a fixed order.
func (s SkillInventory) Buckets() []Bucket {
	return []Bucket{
		{"languages", s.Languages},
		{"frameworks", s.Frameworks},
		{"tools", s.Tools},
		{"databases", s.Databases},
		{"platforms", s.Platforms},
		{"methodologies", s.Methodologies},
		{"soft_skills", s.SoftSkills},
		{"domain_knowledge", s.DomainKnowledge},
		{"certifications", s.Certifications},
	}
}

// Count returns the number of skills across every bucket.
func (s SkillInventory) Count() int {
	n := 0
	for _, b := range s.Buckets() {
		n += len(b.Skills)
	}
	return n
}

// RoleGuess is the shaped result of role inference.
type RoleGuess struct {
	Role      string `json:"role"`
	Level     string `json:"level"`
	Reasoning string `json:"reasoning"`
}

// Requirement is one skill expected for a role.
type Requirement struct {
	Skill        string `json:"skill"`
	Category     string `json:"category"`
	Importance   string `json:"importance"`
	TypicalYears string `json:"typical_years,omitempty"`
}

// IndustryRequirements lists what employers expect for a role and level.
type IndustryRequirements struct {
	Role       string        `json:"role"`
	Level      string        `json:"level"`
	MustHave   []Requirement `json:"must_have"`
	NiceToHave []Requirement `json:"nice_to_have"`
	Emerging   []Requirement `json:"emerging_skills"`
}

// Comprehensive bundles the four structured sections with a separately
// computed overall score. OverallScore is nil when the score call failed.
type Comprehensive struct {
	Strengths    Findings `json:"strengths"`
	Weaknesses   Findings `json:"weaknesses"`
	Skills       SkillSet `json:"skills"`
	Suggestions  []string `json:"suggestions"`
	OverallScore *int     `json:"overall_score"`
	// Missing names sections the service left out; they hold empty values.
	Missing []string `json:"missing_sections,omitempty"`
}
