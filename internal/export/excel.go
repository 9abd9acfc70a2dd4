// Package export writes score and skills-gap reports to Excel workbooks.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spigell/resume-insight/internal/scoring"
	"github.com/spigell/resume-insight/internal/skillsgap"
	"github.com/xuri/excelize/v2"
)

const timeLayout = "2006-01-02 15:04:05"

// ScoreWorkbook writes the score report to outputPath, adding the .xlsx
// extension when missing. It returns the path written.
func ScoreWorkbook(report *scoring.Report, outputPath string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("score report is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return "", err
	}

	summary, components := "Summary", "Components"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", err
	}
	if _, err := f.NewSheet(components); err != nil {
		return "", err
	}

	if err := scoreSummarySheet(f, st, summary, report); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := componentSheet(f, st, components, report); err != nil {
		return "", fmt.Errorf("failed to create components sheet: %w", err)
	}

	return save(f, outputPath)
}

// GapWorkbook writes the skills-gap report to outputPath, adding the .xlsx
// extension when missing. It returns the path written.
func GapWorkbook(report *skillsgap.GapReport, outputPath string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("gap report is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return "", err
	}

	summary, present, missing, roadmap := "Summary", "Present Skills", "Missing Skills", "Roadmap"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", err
	}
	for _, name := range []string{present, missing, roadmap} {
		if _, err := f.NewSheet(name); err != nil {
			return "", err
		}
	}

	steps := []struct {
		sheet string
		fill  func(*excelize.File, styles, string, *skillsgap.GapReport) error
	}{
		{summary, gapSummarySheet},
		{present, presentSheet},
		{missing, missingSheet},
		{roadmap, roadmapSheet},
	}
	for _, s := range steps {
		if err := s.fill(f, st, s.sheet, report); err != nil {
			return "", fmt.Errorf("failed to create %s sheet: %w", strings.ToLower(s.sheet), err)
		}
	}

	return save(f, outputPath)
}

type styles struct {
	header int
	label  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return styles{}, err
	}
	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return styles{}, err
	}
	return styles{header: header, label: label}, nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// labelRow writes a bold label in column A and the value in column B.
func labelRow(f *excelize.File, st styles, sheet string, row int, label string, value any) error {
	if err := f.SetCellValue(sheet, cell("A", row), label); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell("A", row), cell("A", row), st.label); err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell("B", row), value)
}

// table writes a styled header row followed by rows starting at row.
func table(f *excelize.File, st styles, sheet string, row int, header []any, rows [][]any) error {
	if err := f.SetSheetRow(sheet, cell("A", row), &header); err != nil {
		return err
	}
	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cell("A", row), cell(last, row), st.header); err != nil {
		return err
	}
	for i := range rows {
		if err := f.SetSheetRow(sheet, cell("A", row+1+i), &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func scoreSummarySheet(f *excelize.File, st styles, sheet string, r *scoring.Report) error {
	f.SetColWidth(sheet, "A", "A", 25)
	f.SetColWidth(sheet, "B", "B", 90)

	if err := f.SetCellValue(sheet, "A1", "Resume Score Report"); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A1", "B1", st.header)
	f.MergeCell(sheet, "A1", "B1")

	rows := []struct {
		label string
		value any
	}{
		{"Generated:", r.Timestamp.Format(timeLayout)},
		{"Overall Score:", r.OverallScore},
		{"Classification:", r.Classification},
	}
	row := 3
	for _, item := range rows {
		if err := labelRow(f, st, sheet, row, item.label, item.value); err != nil {
			return err
		}
		row++
	}

	row++
	if err := f.SetCellValue(sheet, cell("A", row), "Improvement Suggestions"); err != nil {
		return err
	}
	f.SetCellStyle(sheet, cell("A", row), cell("B", row), st.header)
	f.MergeCell(sheet, cell("A", row), cell("B", row))
	row++
	for i, s := range r.ImprovementSuggestions {
		if err := labelRow(f, st, sheet, row, fmt.Sprintf("%d.", i+1), s); err != nil {
			return err
		}
		row++
	}
	return nil
}

func componentSheet(f *excelize.File, st styles, sheet string, r *scoring.Report) error {
	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "D", 14)
	f.SetColWidth(sheet, "E", "E", 80)

	var rows [][]any
	for _, c := range scoring.Components() {
		cs, ok := r.ComponentScores[c]
		if !ok {
			continue
		}
		rows = append(rows, []any{string(c), cs.Score, cs.Weight, cs.WeightedScore, describe(cs.Details)})
	}
	return table(f, st, sheet, 1, []any{"Component", "Score", "Weight", "Weighted", "Details"}, rows)
}

// describe flattens component details into "key: value" lines in key order.
func describe(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := details[k]
		if list, ok := v.([]string); ok {
			v = strings.Join(list, ", ")
		}
		lines = append(lines, fmt.Sprintf("%s: %v", k, v))
	}
	return strings.Join(lines, "\n")
}

func gapSummarySheet(f *excelize.File, st styles, sheet string, r *skillsgap.GapReport) error {
	f.SetColWidth(sheet, "A", "A", 28)
	f.SetColWidth(sheet, "B", "B", 60)

	if err := f.SetCellValue(sheet, "A1", "Skills Gap Report"); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A1", "B1", st.header)
	f.MergeCell(sheet, "A1", "B1")

	s := r.Summary
	rows := []struct {
		label string
		value any
	}{
		{"Report ID:", r.ID},
		{"Generated:", r.GeneratedAt.Format(timeLayout)},
		{"Target Role:", r.TargetRole},
		{"Experience Level:", r.ExperienceLevel},
		{"Role Source:", r.RoleSource},
		{"Readiness Score:", s.ReadinessScore},
		{"Skills Found:", s.TotalSkillsFound},
		{"Matching Must-Have:", s.MatchingMustHave},
		{"Missing Critical:", s.MissingCritical},
		{"Strength Areas:", strings.Join(s.StrengthAreas, ", ")},
		{"Gap Areas:", strings.Join(s.GapAreas, ", ")},
	}
	for i, item := range rows {
		if err := labelRow(f, st, sheet, i+3, item.label, item.value); err != nil {
			return err
		}
	}
	return nil
}

func presentSheet(f *excelize.File, st styles, sheet string, r *skillsgap.GapReport) error {
	f.SetColWidth(sheet, "A", "D", 22)

	rows := make([][]any, 0, len(r.PresentSkills))
	for _, s := range r.PresentSkills {
		match := "No"
		if s.MatchesRequirement {
			match = "Yes"
		}
		rows = append(rows, []any{s.Skill, s.Category, s.Proficiency, match})
	}
	return table(f, st, sheet, 1, []any{"Skill", "Category", "Proficiency", "Required"}, rows)
}

func missingSheet(f *excelize.File, st styles, sheet string, r *skillsgap.GapReport) error {
	f.SetColWidth(sheet, "A", "D", 22)

	rows := make([][]any, 0, len(r.MissingCritical)+len(r.MissingNiceToHave))
	for _, s := range r.MissingCritical {
		rows = append(rows, []any{s.Skill, s.Category, s.Priority, "critical"})
	}
	for _, s := range r.MissingNiceToHave {
		rows = append(rows, []any{s.Skill, s.Category, s.Priority, "nice to have"})
	}
	return table(f, st, sheet, 1, []any{"Skill", "Category", "Priority", "Group"}, rows)
}

func roadmapSheet(f *excelize.File, st styles, sheet string, r *skillsgap.GapReport) error {
	f.SetColWidth(sheet, "A", "A", 16)
	f.SetColWidth(sheet, "B", "B", 60)

	var rows [][]any
	for _, stage := range []struct {
		name  string
		items []string
	}{
		{"immediate", r.Roadmap.Immediate},
		{"short term", r.Roadmap.ShortTerm},
		{"long term", r.Roadmap.LongTerm},
	} {
		for _, item := range stage.items {
			rows = append(rows, []any{stage.name, item})
		}
	}
	if err := table(f, st, sheet, 1, []any{"Horizon", "Goal"}, rows); err != nil {
		return err
	}

	row := len(rows) + 3
	recs := make([][]any, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		recs = append(recs, []any{rec.Skill, rec.Priority, rec.LearningTime, strings.Join(rec.LearningPath, " -> ")})
	}
	return table(f, st, sheet, row, []any{"Skill", "Priority", "Learning Time", "Learning Path"}, recs)
}

func save(f *excelize.File, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	if err := f.SaveAs(outputPath); err != nil {
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), buffer write also failed: %w", err, writeErr)
		}
		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0o644); fileErr != nil {
			return "", fmt.Errorf("failed to save Excel file: direct save failed (%v), file write failed: %w", err, fileErr)
		}
	}
	return outputPath, nil
}
