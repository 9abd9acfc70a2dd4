package scoring

// Component names one of the five weighted sub-scores.
type Component string

const (
	Completeness     Component = "completeness"
	ContentQuality   Component = "content_quality"
	Formatting       Component = "formatting"
	KeywordRelevance Component = "keyword_relevance"
	Experience       Component = "experience"
)

// Components lists the sub-scores in report order.
func Components() []Component {
	return []Component{Completeness, ContentQuality, Formatting, KeywordRelevance, Experience}
}

// weightPercent partitions 100 across the components.
var weightPercent = map[Component]int{
	Completeness:     25,
	ContentQuality:   30,
	Formatting:       15,
	KeywordRelevance: 20,
	Experience:       10,
}

// Weight returns the component's share of the overall score as a fraction.
func Weight(c Component) float64 {
	return float64(weightPercent[c]) / 100
}

// Overall combines component scores into the weighted total, rounded down.
// Missing components count as zero.
func Overall(scores map[Component]int) int {
	sum := 0
	for c, pct := range weightPercent {
		sum += clamp(scores[c]) * pct
	}
	return sum / 100
}

func weighted(c Component, score int) int {
	return clamp(score) * weightPercent[c] / 100
}

// Classification bands.
const (
	Excellent        = "Excellent"
	Good             = "Good"
	Average          = "Average"
	NeedsImprovement = "Needs Improvement"
)

// Classify maps an overall score onto its band.
func Classify(score int) string {
	switch {
	case score >= 90:
		return Excellent
	case score >= 75:
		return Good
	case score >= 60:
		return Average
	default:
		return NeedsImprovement
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
