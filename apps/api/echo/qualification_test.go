package echoapi_test

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	. "github.com/sigcolegio/backend/apps/api/echo"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/services/report"
)

func gradePtr(g float64) *float64 { return &g }

func (f *fixture) newGrade(period catalog.Period, grade float64) qualification.NewQualification {
	return qualification.NewQualification{
		SchoolID:  f.school.ID,
		StudentID: f.student.ID,
		SubjectID: f.math.ID,
		GroupID:   null.StringFrom(f.group.ID),
		PeriodID:  null.StringFrom(period.ID),
		Year:      2024,
		GradeType: qualification.TypePeriod,
		Grade:     gradePtr(grade),
	}
}

func Test_qualificationApi_create(t *testing.T) {
	f := setup(t)
	path := "/api/qualifications"
	body := marchallObj(t, f.newGrade(f.p1, 3))

	runHTTPTests(t, f, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: path, body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teachers cannot write", method: http.MethodPost, path: path, body: body, token: f.token(t, f.teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Invalid data", method: http.MethodPost, path: path, token: f.token(t, f.secretary),
			body:     marchallObj(t, qualification.NewQualification{SchoolID: f.school.ID}),
			wantCode: http.StatusBadRequest,
		},
	})

	var created qualification.Qualification
	nq := f.newGrade(f.p1, 3)
	nq.RegisteredBy = null.StringFrom(f.teacher.ID)
	f.serve(t, httpTest{method: http.MethodPost, path: path, body: marchallObj(t, nq), token: f.token(t, f.secretary), wantCode: http.StatusCreated}, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 3.0, created.Grade)
	assert.Equal(t, null.StringFrom(f.secretary.ID), created.RegisteredBy, "the principal takes precedence")

	var got qualification.Expanded
	f.serve(t, httpTest{method: http.MethodGet, path: path + "/" + created.ID, token: f.token(t, f.teacher)}, &got)
	assert.Equal(t, created.ID, got.ID)
	require.NotNil(t, got.Subject)
	assert.Equal(t, "Math", got.Subject.Name)
	require.NotNil(t, got.Period)
	assert.Equal(t, "P1", got.Period.Name)
	require.NotNil(t, got.RegisteredByUser)
	assert.Equal(t, f.secretary.ID, got.RegisteredByUser.ID)

	runHTTPTests(t, f, []httpTest{
		{
			name: "Unknown id", path: path + "/0b6e2a4c-5b1f-4d7e-9a3c-6f8d2e1b4a70", token: f.token(t, f.teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "qualification not found"}),
		},
		{name: "Malformed id", path: path + "/lol", token: f.token(t, f.teacher), wantCode: http.StatusNotFound},
		{name: "Students cannot read", path: path + "/" + created.ID, token: f.token(t, f.student), wantCode: http.StatusForbidden},
	})
}

func Test_qualificationApi_withoutAuth(t *testing.T) {
	f := setup(t, false)

	nq := f.newGrade(f.p1, 3)
	nq.RegisteredBy = null.StringFrom(f.teacher.ID)

	var created qualification.Qualification
	f.serve(t, httpTest{method: http.MethodPost, path: "/api/qualifications", body: marchallObj(t, nq), wantCode: http.StatusCreated}, &created)
	assert.Equal(t, null.StringFrom(f.teacher.ID), created.RegisteredBy, "the client value is used without principal")

	// role checks are off too
	f.serve(t, httpTest{method: http.MethodGet, path: "/api/qualifications/" + created.ID, token: f.token(t, f.student), wantCode: http.StatusOK})
}

func Test_qualificationApi_createBatch(t *testing.T) {
	f := setup(t)
	path := "/api/qualifications/batch"
	token := f.token(t, f.secretary)

	batch := make([]qualification.NewQualification, 0, 6)
	for i := 0; i < 5; i++ {
		batch = append(batch, f.newGrade(f.p1, float64(i)))
	}
	invalid := f.newGrade(f.p2, 3)
	invalid.SubjectID = ""

	runHTTPTests(t, f, []httpTest{
		{name: "Not a list", method: http.MethodPost, path: path, token: token, body: []byte(`{"lol": 1}`), wantCode: http.StatusBadRequest},
		{
			name: "Empty batch", method: http.MethodPost, path: path, token: token, body: []byte(`[]`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"items": "at least one qualification is required"}),
		},
		{
			name: "One invalid item", method: http.MethodPost, path: path, token: token, body: marchallObj(t, append(batch, invalid)),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"items[5].subject_id": "this field is required"}),
		},
	})

	var listed []qualification.Expanded
	f.serve(t, httpTest{method: http.MethodGet, path: "/api/qualifications/students/" + f.student.ID, token: token}, &listed)
	assert.Empty(t, listed, "nothing is persisted")

	var resp BatchResponse
	f.serve(t, httpTest{method: http.MethodPost, path: path, token: token, body: marchallObj(t, batch), wantCode: http.StatusCreated}, &resp)
	assert.Equal(t, "5 qualifications created", resp.Message)
	require.Len(t, resp.Data, 5)
	for i, q := range resp.Data {
		assert.Equal(t, float64(i), q.Grade, "input order is kept")
		assert.Equal(t, null.StringFrom(f.secretary.ID), q.RegisteredBy)
	}
}

func Test_qualificationApi_finals(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.secretary)

	for _, nq := range []qualification.NewQualification{f.newGrade(f.p1, 3), f.newGrade(f.p2, 4)} {
		f.serve(t, httpTest{method: http.MethodPost, path: "/api/qualifications", token: token, body: marchallObj(t, nq), wantCode: http.StatusCreated})
	}

	scope := qualification.FinalsScope{SchoolID: f.school.ID, Year: 2024, GroupID: null.StringFrom(f.group.ID)}
	runHTTPTests(t, f, []httpTest{
		{
			name: "Teachers cannot generate", method: http.MethodPost, path: "/api/qualifications/generate-finals",
			token: f.token(t, f.teacher), body: marchallObj(t, scope), wantCode: http.StatusForbidden,
		},
		{
			name: "Invalid scope", method: http.MethodPost, path: "/api/qualifications/generate-finals",
			token: token, body: marchallObj(t, qualification.FinalsScope{Year: 2024}), wantCode: http.StatusBadRequest,
		},
	})

	var res qualification.FinalsResult
	for i := 0; i < 2; i++ { // idempotent
		f.serve(t, httpTest{method: http.MethodPost, path: "/api/qualifications/generate-finals", token: token, body: marchallObj(t, scope), wantCode: http.StatusOK}, &res)
		require.Equal(t, 1, res.Count)
		assert.Equal(t, 3.6, res.Results[0].Grade)
		assert.Equal(t, qualification.TypeFinal, res.Results[0].GradeType)
		assert.False(t, res.Results[0].PeriodID.Valid)
	}
	final := res.Results[0]

	paths := []string{
		"/api/qualifications/finals/2024",
		"/api/qualifications/students/" + f.student.ID + "/finals?year=2024",
		"/api/qualifications/groups/" + f.group.ID + "/finals",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			var finals []qualification.Expanded
			f.serve(t, httpTest{method: http.MethodGet, path: path, token: f.token(t, f.teacher), wantCode: http.StatusOK}, &finals)
			require.Len(t, finals, 1)
			assert.Equal(t, final.ID, finals[0].ID)
		})
	}

	var periodGrades []qualification.Expanded
	f.serve(t, httpTest{
		method: http.MethodGet, path: fmt.Sprintf("/api/qualifications/groups/%s/subjects/%s?year=2024", f.group.ID, f.math.ID),
		token: token, wantCode: http.StatusOK,
	}, &periodGrades)
	assert.Len(t, periodGrades, 3, "two period grades and the final")

	runHTTPTests(t, f, []httpTest{
		{name: "Bad year", path: "/api/qualifications/finals/lol", token: token, wantCode: http.StatusBadRequest},
		{name: "Bad year query", path: "/api/qualifications/groups/" + f.group.ID + "?year=-1", token: token, wantCode: http.StatusBadRequest},
	})

	// manual override of the final
	var updated qualification.Qualification
	f.serve(t, httpTest{
		method: http.MethodPut, path: "/api/qualifications/finals/" + final.ID, token: token,
		body: []byte(`{"grade": 4.5, "observations": "recovered"}`), wantCode: http.StatusOK,
	}, &updated)
	assert.Equal(t, 4.5, updated.Grade)
	assert.Equal(t, "recovered", updated.Observations)

	f.serve(t, httpTest{
		method: http.MethodPut, path: "/api/qualifications/finals/" + periodGrades[0].ID, token: token,
		body: []byte(`{"grade": 1}`), wantCode: http.StatusNotFound,
	})
	f.serve(t, httpTest{
		method: http.MethodPut, path: "/api/qualifications/" + final.ID, token: token,
		body: []byte(`{"grade": 11}`), wantCode: http.StatusBadRequest,
	})
}

func Test_qualificationApi_finalsReport(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.secretary)

	f.serve(t, httpTest{method: http.MethodPost, path: "/api/qualifications", token: token, body: marchallObj(t, f.newGrade(f.p1, 4)), wantCode: http.StatusCreated})
	f.serve(t, httpTest{
		method: http.MethodPost, path: "/api/qualifications/generate-finals", token: token, wantCode: http.StatusOK,
		body: marchallObj(t, qualification.FinalsScope{SchoolID: f.school.ID, Year: 2024}),
	})

	rec := f.serve(t, httpTest{method: http.MethodGet, path: "/api/qualifications/finals/2024?format=xlsx", token: token, wantCode: http.StatusOK})
	assert.Equal(t, report.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), report.FinalsFilename(2024))

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := book.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, f.student.FullName(), rows[1][1])
	assert.Equal(t, "Math", rows[1][2])
}
