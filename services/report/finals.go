// Package report renders spreadsheets of school records.
package report

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	finalsSheet = "Sheet1"
)

var finalsHeader = []string{"Group", "Student", "Subject", "Grade", "Absences", "Evaluative judgment", "Registered"}

func FinalsFilename(year int) string {
	return fmt.Sprintf("finals-%d.xlsx", year)
}

func refName(ref *catalog.Ref, id string) string {
	if ref != nil {
		return ref.Name
	}
	return id
}

// WriteFinals writes the final grades of a year as an XLSX workbook, one row per grade.
func WriteFinals(w io.Writer, finals []qualification.Expanded) error {
	f := excelize.NewFile()

	rows := make([][]interface{}, 0, len(finals)+1)
	header := make([]interface{}, 0, len(finalsHeader))
	for _, h := range finalsHeader {
		header = append(header, h)
	}
	rows = append(rows, header)

	for _, q := range finals {
		rows = append(rows, []interface{}{
			refName(q.Group, q.GroupID.String),
			refName(q.Student, q.StudentID),
			refName(q.Subject, q.SubjectID),
			q.Grade,
			q.Absences,
			q.EvaluativeJudgment,
			q.RegistrationDate.Format("2006-01-02"),
		})
	}

	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return errors.Wrap(err, "naming cell")
			}
			if err = f.SetCellValue(finalsSheet, cell, val); err != nil {
				return errors.Wrapf(err, "writing cell %s", cell)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
