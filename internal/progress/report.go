package progress

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/conatuslab/conatuslab/internal/curriculum"
)

const (
	overviewSheet = "Overview"
	coursesSheet  = "Courses"
	modulesSheet  = "Modules"
)

// WriteReport writes an xlsx workbook summarising a progress snapshot.
func WriteReport(w io.Writer, cat *curriculum.Catalog, p UserProgress) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return fmt.Errorf("naming overview sheet: %w", err)
	}
	overview := [][]any{
		{"Metric", "Value"},
		{"Total hours spent", p.TotalHoursSpent},
		{"Streak days", p.StreakDays},
		{"Last active", p.LastActive.Format(time.RFC3339)},
		{"Skills acquired", strings.Join(p.SkillsAcquired, ", ")},
	}
	if err := writeRows(f, overviewSheet, overview); err != nil {
		return err
	}

	courses := [][]any{{"Course", "Level", "Overall progress (%)", "Modules completed", "Lessons completed", "Last accessed"}}
	modules := [][]any{{"Course", "Module", "Completed", "Lessons completed", "Lessons total", "Assessment"}}
	for _, c := range cat.Courses() {
		cp, ok := p.Course(c.ID)
		if !ok {
			continue
		}
		courses = append(courses, []any{
			c.Title,
			string(c.Level),
			Overall(c, cp),
			fmt.Sprintf("%d/%d", len(cp.CompletedModules), c.ModuleCount()),
			fmt.Sprintf("%d/%d", cp.CompletedLessonCount(), c.LessonCount()),
			cp.LastAccessed.Format(time.RFC3339),
		})
		for _, m := range c.Modules {
			mp, _ := cp.Module(m.ID)
			modules = append(modules, []any{
				c.Title,
				m.Title,
				mp.Completed,
				len(mp.CompletedLessons),
				len(m.Topics),
				mp.Assessment().String(),
			})
		}
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{coursesSheet, courses},
		{modulesSheet, modules},
	}
	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("creating %s sheet: %w", sh.name, err)
		}
		if err := writeRows(f, sh.name, sh.rows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
