package validity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	. "github.com/sigcolegio/backend/core/validity"
	dummydb "github.com/sigcolegio/backend/storage/database/dummy"
	testutil "github.com/sigcolegio/backend/tests"
)

func setup(t *testing.T) *Service {
	db, err := dummydb.Open()
	require.NoError(t, err)
	validate, translator := testutil.NewValidator()
	return NewService(dummydb.NewValidityRepository(db), validate, translator)
}

func newValidity(year int, schoolID string) NewValidity {
	return NewValidity{Year: year, SchoolID: schoolID}
}

func TestService_Create(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	school := uuid.New().String()

	v, err := svc.Create(ctx, newValidity(2024, school))
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.False(t, v.Active)
	assert.Equal(t, DefaultMaxGrade, v.MaxGrade)
	assert.Equal(t, DefaultMinGrade, v.MinGrade)
	assert.Equal(t, DefaultFailYearCondition, v.FailYearCondition)
	assert.Equal(t, RecoveryAverage, v.RecoveryType)
	assert.Equal(t, DefaultRecoveryPercentage, v.RecoveryPercentage)
	assert.Equal(t, DefaultMaxFailedSubjects, v.MaxFailedSubjects)
	assert.Empty(t, v.Headquarters)
	assert.NotNil(t, v.GradeConventions)
	assert.Equal(t, v.CreatedAt.Truncate(time.Microsecond), v.CreatedAt)
	assert.Equal(t, time.UTC, v.CreatedAt.Location())

	got, err := svc.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	t.Run("duplicate year and school", func(t *testing.T) {
		_, err := svc.Create(ctx, newValidity(2024, school))
		assert.Equal(t, ErrValidityExists, err)
		assert.True(t, core.IsConflict(err))
	})

	t.Run("same year other school", func(t *testing.T) {
		_, err := svc.Create(ctx, newValidity(2024, uuid.New().String()))
		assert.NoError(t, err)
	})

	t.Run("custom settings", func(t *testing.T) {
		maxGrade, minGrade, pct, maxFailed := 10.0, 0.0, 30.0, 3
		nv := NewValidity{
			Year:               2025,
			SchoolID:           school,
			RectorID:           null.StringFrom(uuid.New().String()),
			Headquarters:       []HeadquarterInfo{{HeadquarterID: uuid.New().String()}},
			MaxGrade:           &maxGrade,
			MinGrade:           &minGrade,
			GradeConventions:   []GradeConvention{{Code: "S", Value: "Superior", Order: 1}},
			RecoveryType:       RecoveryReplacement,
			RecoveryPercentage: &pct,
			MaxFailedSubjects:  &maxFailed,
		}
		v, err := svc.Create(ctx, nv)
		require.NoError(t, err)
		assert.Equal(t, 10.0, v.MaxGrade)
		assert.Equal(t, 0.0, v.MinGrade)
		assert.Equal(t, RecoveryReplacement, v.RecoveryType)
		assert.Equal(t, 3, v.MaxFailedSubjects)
		assert.Len(t, v.Headquarters, 1)
		assert.Equal(t, "Superior", v.GradeConventions[0].Value)
	})

	t.Run("validation", func(t *testing.T) {
		high, low := 2.0, 4.0
		tests := []struct {
			name      string
			nv        NewValidity
			wantField string
		}{
			{name: "missing year", nv: NewValidity{SchoolID: school}, wantField: "year"},
			{name: "bad school", nv: newValidity(2026, "lol"), wantField: "school_id"},
			{name: "min above max", nv: NewValidity{Year: 2026, SchoolID: school, MaxGrade: &high, MinGrade: &low}, wantField: "min_grade"},
			{name: "unknown recovery type", nv: NewValidity{Year: 2026, SchoolID: school, RecoveryType: "lol"}, wantField: "recovery_type"},
			{
				name:      "headquarter without id",
				nv:        NewValidity{Year: 2026, SchoolID: school, Headquarters: []HeadquarterInfo{{}}},
				wantField: "headquarter_id",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.Create(ctx, tt.nv)
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				require.NotEmpty(t, vErr.Fields)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			})
		}
	})
}

func TestService_Activate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.GetActive(ctx)
	assert.Equal(t, ErrNoneActive, err)

	var vals []Validity
	for _, year := range []int{2022, 2023, 2024} {
		v, err := svc.Create(ctx, newValidity(year, uuid.New().String()))
		require.NoError(t, err)
		vals = append(vals, v)
	}

	for _, v := range []Validity{vals[0], vals[2], vals[1]} {
		activated, err := svc.Activate(ctx, v.ID)
		require.NoError(t, err)
		assert.True(t, activated.Active)
	}

	active, err := svc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, vals[1].ID, active.ID)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	var count int
	for _, v := range all {
		if v.Active {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []int{2024, 2023, 2022}, []int{all[0].Year, all[1].Year, all[2].Year})

	t.Run("unknown validity leaves the active one", func(t *testing.T) {
		_, err := svc.Activate(ctx, uuid.New().String())
		assert.Equal(t, ErrNotFound, err)
		active, err := svc.GetActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, vals[1].ID, active.ID)
	})

	t.Run("concurrent activations", func(t *testing.T) {
		var wg sync.WaitGroup
		for _, v := range vals {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _ = svc.Activate(ctx, id)
			}(v.ID)
		}
		wg.Wait()

		all, err := svc.List(ctx, core.OrderBy("-active"))
		require.NoError(t, err)
		assert.True(t, all[0].Active)
		assert.False(t, all[1].Active)
		assert.False(t, all[2].Active)
	})

	t.Run("deactivate", func(t *testing.T) {
		current, err := svc.GetActive(ctx)
		require.NoError(t, err)
		v, err := svc.Deactivate(ctx, current.ID)
		require.NoError(t, err)
		assert.False(t, v.Active)
		_, err = svc.GetActive(ctx)
		assert.Equal(t, ErrNoneActive, err)
	})
}

func TestService_GetByID_notFound(t *testing.T) {
	svc := setup(t)
	for _, id := range []string{"", "lol", uuid.New().String()} {
		_, err := svc.GetByID(context.Background(), id)
		assert.Equal(t, ErrNotFound, err, id)
	}
}
