package qualification

import (
	"math"
	"sort"

	"github.com/sigcolegio/backend/core/catalog"
)

// Weights maps a period id to its share (0-100) of the year grade.
type Weights map[string]float64

// WeightsFromPeriods builds the weights of the given periods.
func WeightsFromPeriods(periods []catalog.Period) Weights {
	w := make(Weights, len(periods))
	for _, p := range periods {
		w[p.ID] = p.Percentage
	}
	return w
}

// FinalGrade is the computed year grade of a student in a subject.
type FinalGrade struct {
	StudentID string
	SubjectID string
	Grade     float64
}

// normalize returns the weights to use for grades.
// When no weight is configured, every known period gets an equal share of 100.
// Periods only referenced by grades count as known.
func (w Weights) normalize(grades []Qualification) Weights {
	var total float64
	for _, pct := range w {
		total += pct
	}
	if total > 0 {
		return w
	}

	periods := make(map[string]struct{}, len(w))
	for id := range w {
		periods[id] = struct{}{}
	}
	for _, g := range grades {
		if g.PeriodID.Valid {
			periods[g.PeriodID.String] = struct{}{}
		}
	}
	if len(periods) == 0 {
		return w
	}

	share := 100 / float64(len(periods))
	norm := make(Weights, len(periods))
	for id := range periods {
		norm[id] = share
	}
	return norm
}

type studentSubject struct {
	studentID string
	subjectID string
}

type studentSubjectPeriod struct {
	studentSubject
	periodID string
}

// latestPerPeriod keeps one PERIOD grade per (student, subject, period): the most recently
// updated one, or the later one in grades on a tie.
func latestPerPeriod(grades []Qualification) []Qualification {
	index := make(map[studentSubjectPeriod]int)
	latest := make([]Qualification, 0, len(grades))
	for _, g := range grades {
		if g.GradeType != TypePeriod {
			continue
		}
		key := studentSubjectPeriod{
			studentSubject: studentSubject{studentID: g.StudentID, subjectID: g.SubjectID},
			periodID:       g.PeriodID.String,
		}
		i, ok := index[key]
		switch {
		case !ok:
			index[key] = len(latest)
			latest = append(latest, g)
		case !g.UpdatedAt.Before(latest[i].UpdatedAt):
			latest[i] = g
		}
	}
	return latest
}

type accumulator struct {
	sumWeighted float64
	sumPct      float64
	sumGrades   float64
	count       int
}

// ComputeFinals computes one final grade per (student, subject) from PERIOD grades.
// The weighted average is renormalized over the periods that have a grade, so a missing
// period does not pull the average down. When every present period weighs zero, the
// plain mean of the grades is used. Grades are rounded to 2 decimal places.
// A period graded more than once counts with its latest grade only.
// Results are sorted by student then subject.
func ComputeFinals(grades []Qualification, weights Weights) []FinalGrade {
	grades = latestPerPeriod(grades)
	weights = weights.normalize(grades)

	accs := make(map[studentSubject]*accumulator)
	for _, g := range grades {
		key := studentSubject{studentID: g.StudentID, subjectID: g.SubjectID}
		acc, ok := accs[key]
		if !ok {
			acc = new(accumulator)
			accs[key] = acc
		}
		pct := weights[g.PeriodID.String]
		acc.sumWeighted += g.Grade * pct / 100
		acc.sumPct += pct
		acc.sumGrades += g.Grade
		acc.count++
	}

	finals := make([]FinalGrade, 0, len(accs))
	for key, acc := range accs {
		var grade float64
		if acc.sumPct > 0 {
			grade = acc.sumWeighted / (acc.sumPct / 100)
		} else {
			grade = acc.sumGrades / float64(acc.count)
		}
		finals = append(finals, FinalGrade{
			StudentID: key.studentID,
			SubjectID: key.subjectID,
			Grade:     round2(grade),
		})
	}

	sort.Slice(finals, func(i, j int) bool {
		if finals[i].StudentID != finals[j].StudentID {
			return finals[i].StudentID < finals[j].StudentID
		}
		return finals[i].SubjectID < finals[j].SubjectID
	})
	return finals
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
