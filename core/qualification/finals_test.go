package qualification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core/catalog"
	. "github.com/sigcolegio/backend/core/qualification"
)

func periodGrade(student, subject, period string, grade float64) Qualification {
	return Qualification{
		StudentID: student,
		SubjectID: subject,
		PeriodID:  null.StringFrom(period),
		GradeType: TypePeriod,
		Grade:     grade,
	}
}

func updatedAt(q Qualification, day int) Qualification {
	q.UpdatedAt = time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
	return q
}

func TestComputeFinals(t *testing.T) {
	tests := []struct {
		name    string
		grades  []Qualification
		weights Weights
		want    []FinalGrade
	}{
		{
			name:    "weighted average",
			grades:  []Qualification{periodGrade("s1", "m1", "p1", 3.0), periodGrade("s1", "m1", "p2", 4.0)},
			weights: Weights{"p1": 40, "p2": 60},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 3.60}},
		},
		{
			name:    "missing period is renormalized",
			grades:  []Qualification{periodGrade("s1", "m1", "p1", 3.0)},
			weights: Weights{"p1": 40, "p2": 60},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 3.00}},
		},
		{
			name:    "zero weights split equally",
			grades:  []Qualification{periodGrade("s1", "m1", "p1", 3.0), periodGrade("s1", "m1", "p2", 5.0)},
			weights: Weights{"p1": 0, "p2": 0},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 4.00}},
		},
		{
			name:    "no configured periods",
			grades:  []Qualification{periodGrade("s1", "m1", "p1", 2.0), periodGrade("s1", "m1", "p2", 3.0)},
			weights: Weights{},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 2.50}},
		},
		{
			name:    "only unweighted periods present",
			grades:  []Qualification{periodGrade("s1", "m1", "p3", 2.0), periodGrade("s1", "m1", "p4", 4.5)},
			weights: Weights{"p1": 50, "p2": 50},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 3.25}},
		},
		{
			name: "rounded to 2 decimals",
			grades: []Qualification{
				periodGrade("s1", "m1", "p1", 3.3),
				periodGrade("s1", "m1", "p2", 4.1),
				periodGrade("s1", "m1", "p3", 4.6),
			},
			weights: Weights{"p1": 30, "p2": 30, "p3": 40},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 4.06}},
		},
		{
			name: "sorted by student then subject",
			grades: []Qualification{
				periodGrade("s2", "m1", "p1", 4.0),
				periodGrade("s1", "m2", "p1", 2.0),
				periodGrade("s1", "m1", "p1", 5.0),
			},
			weights: Weights{"p1": 100},
			want: []FinalGrade{
				{StudentID: "s1", SubjectID: "m1", Grade: 5},
				{StudentID: "s1", SubjectID: "m2", Grade: 2},
				{StudentID: "s2", SubjectID: "m1", Grade: 4},
			},
		},
		{
			name: "latest grade of a period wins",
			grades: []Qualification{
				updatedAt(periodGrade("s1", "m1", "p1", 1.0), 2),
				updatedAt(periodGrade("s1", "m1", "p1", 3.0), 5),
				updatedAt(periodGrade("s1", "m1", "p1", 2.0), 4),
				periodGrade("s1", "m1", "p2", 4.0),
			},
			weights: Weights{"p1": 40, "p2": 60},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 3.60}},
		},
		{
			name: "same update time keeps the later grade",
			grades: []Qualification{
				periodGrade("s1", "m1", "p1", 2.0),
				periodGrade("s1", "m1", "p1", 5.0),
			},
			weights: Weights{"p1": 100},
			want:    []FinalGrade{{StudentID: "s1", SubjectID: "m1", Grade: 5}},
		},
		{
			name:    "final grades are ignored",
			grades:  []Qualification{{StudentID: "s1", SubjectID: "m1", GradeType: TypeFinal, Grade: 1}},
			weights: Weights{"p1": 100},
			want:    []FinalGrade{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeFinals(tt.grades, tt.weights))
		})
	}
}

func TestWeightsFromPeriods(t *testing.T) {
	periods := []catalog.Period{{ID: "p1", Percentage: 25}, {ID: "p2", Percentage: 75}}
	assert.Equal(t, Weights{"p1": 25, "p2": 75}, WeightsFromPeriods(periods))
}
