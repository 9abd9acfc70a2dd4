package scoring

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sectionPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"contact", regexp.MustCompile(`(contact|phone|email|linkedin|address)`)},
	{"summary", regexp.MustCompile(`(professional summary|summary|objective|profile)`)},
	{"experience", regexp.MustCompile(`(work experience|experience|professional experience|employment)`)},
	{"education", regexp.MustCompile(`(education|degree|university|college|school)`)},
	{"skills", regexp.MustCompile(`(skills|technical skills|competencies|expertise|proficiencies)`)},
}

// SectionScan is the completeness diagnostic.
type SectionScan struct {
	Found   []string `json:"found_sections"`
	Missing []string `json:"missing_sections"`
}

// ScoreCompleteness checks the five essential sections. Score is
// found*100/5, rounded down.
func ScoreCompleteness(text string) (int, SectionScan) {
	lower := strings.ToLower(text)
	scan := SectionScan{Found: []string{}, Missing: []string{}}
	for _, s := range sectionPatterns {
		if s.pattern.MatchString(lower) {
			scan.Found = append(scan.Found, s.name)
		} else {
			scan.Missing = append(scan.Missing, s.name)
		}
	}
	return len(scan.Found) * 100 / len(sectionPatterns), scan
}

var actionVerbs = []string{
	"led", "managed", "directed", "supervised", "coordinated", "spearheaded",
	"achieved", "accomplished", "delivered", "completed", "executed",
	"improved", "enhanced", "optimized", "streamlined", "accelerated",
	"created", "designed", "developed", "invented", "pioneered",
	"analyzed", "evaluated", "assessed", "identified", "determined",
	"collaborated", "partnered", "cooperated", "contributed", "supported",
}

var actionVerbPatterns = func() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(actionVerbs))
	for _, v := range actionVerbs {
		out[v] = regexp.MustCompile(`\b` + v + `\b`)
	}
	return out
}()

var quantifiable = regexp.MustCompile(`\b(?:\d+%|\$\d+[KM]?|\d+\+?(?:\s*(?:years?|months?|weeks?|days?|hours?))?)\b`)

// CountActionVerbs returns the total number of action verb occurrences and
// the count per verb found.
func CountActionVerbs(text string) (int, map[string]int) {
	lower := strings.ToLower(text)
	total := 0
	found := map[string]int{}
	for _, v := range actionVerbs {
		if n := len(actionVerbPatterns[v].FindAllStringIndex(lower, -1)); n > 0 {
			found[v] = n
			total += n
		}
	}
	return total, found
}

// CountMetrics counts quantifiable achievements such as percentages, amounts
// and durations.
func CountMetrics(text string) int {
	return len(quantifiable.FindAllStringIndex(text, -1))
}

// manualContentScore averages the capped verb and metric scores.
func manualContentScore(verbs, metrics int) int {
	return (min(100, verbs*15) + min(100, metrics*10)) / 2
}

// blendContent weights the model score at 60% and the manual score at 40%,
// rounding the result down.
func blendContent(llm, verbs, metrics int) int {
	verbScore := min(100, verbs*15)
	metricScore := min(100, metrics*10)
	return (clamp(llm)*120 + (verbScore+metricScore)*40) / 200
}

var (
	bulletChars   = regexp.MustCompile(`[-•*]`)
	sectionBreaks = regexp.MustCompile(`\n\n+`)
	specialChars  = regexp.MustCompile(`[^a-zA-Z0-9\s\-•*.()\[\]]`)
)

// FormattingChecks holds the four formatting sub-scores.
type FormattingChecks struct {
	WordCount     int `json:"word_count"`
	LineCount     int `json:"line_count"`
	Length        int `json:"length"`
	Consistency   int `json:"consistency"`
	Clarity       int `json:"clarity"`
	SpecialChars  int `json:"special_chars"`
	SectionBreaks int `json:"section_breaks"`
}

// ScoreFormatting averages length, bullet consistency, section separation and
// special character checks, rounding down.
func ScoreFormatting(text string) (int, FormattingChecks) {
	c := FormattingChecks{
		WordCount: len(strings.Fields(text)),
		LineCount: strings.Count(text, "\n") + 1,
	}

	switch {
	case c.WordCount >= 400 && c.WordCount <= 2000:
		c.Length = 100
	case c.WordCount >= 200 && c.WordCount < 400:
		c.Length = 70
	case c.WordCount > 2000 && c.WordCount <= 3000:
		c.Length = 60
	default:
		c.Length = 40
	}

	bullets := len(bulletChars.FindAllStringIndex(text, -1))
	newlines := strings.Count(text, "\n")
	switch {
	case bullets > 0 && newlines > 20:
		c.Consistency = 90
	case bullets > 0 || newlines > 15:
		c.Consistency = 75
	default:
		c.Consistency = 50
	}

	c.SectionBreaks = len(sectionBreaks.FindAllStringIndex(text, -1))
	switch {
	case c.SectionBreaks >= 4:
		c.Clarity = 95
	case c.SectionBreaks >= 2:
		c.Clarity = 80
	default:
		c.Clarity = 50
	}

	special := len(specialChars.FindAllStringIndex(text, -1))
	chars := max(utf8.RuneCountInString(text), 1)
	switch {
	case special*100 < 5*chars:
		c.SpecialChars = 95
	case special*100 < 15*chars:
		c.SpecialChars = 80
	default:
		c.SpecialChars = 50
	}

	return (c.Length + c.Consistency + c.Clarity + c.SpecialChars) / 4, c
}

var techKeywords = []string{
	"python", "java", "javascript", "c++", "c#", "go", "rust", "php",
	"react", "angular", "vue", "node", "django", "flask", "spring",
	"sql", "mysql", "postgresql", "mongodb", "redis", "elasticsearch",
	"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "git",
	"agile", "scrum", "jira", "linux", "windows", "machine learning",
	"ai", "tensorflow", "pytorch", "pandas", "numpy", "api", "rest",
	"microservices", "cloud", "devops", "ci/cd",
}

// DictionaryKeywords finds the fixed technology keywords in text.
func DictionaryKeywords(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, k := range techKeywords {
		if strings.Contains(lower, k) {
			found = append(found, k)
		}
	}
	return found
}

// MatchKeywords splits targets into those present in text and those absent,
// ignoring case.
func MatchKeywords(text string, targets []string) (found, missing []string) {
	lower := strings.ToLower(text)
	found, missing = []string{}, []string{}
	for _, k := range targets {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			found = append(found, k)
		} else {
			missing = append(missing, k)
		}
	}
	return found, missing
}

// keywordScore rates found against missing keywords. No keywords scores 40;
// fifteen or more found earns a bonus of 15.
func keywordScore(found, missing int) int {
	if found == 0 {
		return 40
	}
	score := found * 100 / (found + missing)
	if found >= 15 {
		score = min(100, score+15)
	}
	return score
}

var yearsMentioned = regexp.MustCompile(`(?i)(\d{1,2})\s*\+?\s*(?:years?|yrs?)`)

// YearsMentioned returns the largest "N years" figure in text.
func YearsMentioned(text string) int {
	best := 0
	for _, m := range yearsMentioned.FindAllStringSubmatch(text, -1) {
		n := 0
		for _, r := range m[1] {
			n = n*10 + int(r-'0')
		}
		best = max(best, n)
	}
	return best
}

var progressionScores = map[string]int{
	"entry":   60,
	"mid":     80,
	"senior":  95,
	"unclear": 50,
}

// experienceScore weights years at 40%, progression at 30% and coherence at
// 30%. Ten or more years earn the full years share.
func experienceScore(years float64, progression string, coherence int) int {
	yearsScore := int(math.Min(100, math.Max(0, years*10)))
	prog, ok := progressionScores[strings.ToLower(strings.TrimSpace(progression))]
	if !ok {
		prog = 50
	}
	return (yearsScore*40 + prog*30 + clamp(coherence)*30) / 100
}
