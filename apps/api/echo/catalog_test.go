package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core/catalog"
)

func Test_catalogApi_refs(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.secretary)
	newRef := func(name string, schoolID null.String) []byte {
		return marchallObj(t, catalog.NewRef{Name: name, SchoolID: schoolID})
	}

	runHTTPTests(t, f, []httpTest{
		{name: "Auth required", path: "/api/catalog/schools", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teachers cannot write", method: http.MethodPost, path: "/api/catalog/subjects", token: f.token(t, f.teacher),
			body: newRef("Art", null.StringFrom(f.school.ID)), wantCode: http.StatusForbidden,
		},
		{
			name: "Missing name", method: http.MethodPost, path: "/api/catalog/subjects", token: token,
			body: newRef("  ", null.String{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "Group without school", method: http.MethodPost, path: "/api/catalog/groups", token: token,
			body: newRef("7B", null.String{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"school_id": "a group belongs to a school"}),
		},
		{
			name: "Unknown school", method: http.MethodPost, path: "/api/catalog/groups", token: token,
			body: newRef("7B", null.StringFrom("0b6e2a4c-5b1f-4d7e-9a3c-6f8d2e1b4a70")), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "school not found"}),
		},
	})

	var art catalog.Ref
	f.serve(t, httpTest{
		method: http.MethodPost, path: "/api/catalog/subjects", token: token,
		body: newRef(" Art ", null.StringFrom(f.school.ID)), wantCode: http.StatusCreated,
	}, &art)
	assert.Equal(t, "Art", art.Name)
	assert.Equal(t, catalog.KindSubject, art.Kind)

	var subjects []catalog.Ref
	f.serve(t, httpTest{path: "/api/catalog/subjects?school_id=" + f.school.ID, token: f.token(t, f.teacher), wantCode: http.StatusOK}, &subjects)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Art", subjects[0].Name, "sorted by name")
	assert.Equal(t, "Math", subjects[1].Name)

	var schools []catalog.Ref
	f.serve(t, httpTest{path: "/api/catalog/schools", token: token, wantCode: http.StatusOK}, &schools)
	require.Len(t, schools, 1)
	assert.Equal(t, f.school.ID, schools[0].ID)
}

func Test_catalogApi_periods(t *testing.T) {
	f := setup(t)
	token := f.token(t, f.rector)
	path := "/api/catalog/periods"
	newPeriod := func(name string, year, order int) []byte {
		return marchallObj(t, catalog.NewPeriod{SchoolID: f.school.ID, Year: year, Name: name, Order: order, Percentage: 50})
	}

	runHTTPTests(t, f, []httpTest{
		{
			name: "Duplicate name", method: http.MethodPost, path: path, token: token, body: newPeriod("P1", 2024, 3),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: catalog.ErrPeriodExists.Error()}),
		},
		{
			name: "Invalid percentage", method: http.MethodPost, path: path, token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, catalog.NewPeriod{SchoolID: f.school.ID, Year: 2024, Name: "P3", Percentage: 120}),
		},
		{name: "Bad year", path: path + "?year=lol", token: token, wantCode: http.StatusBadRequest},
	})

	var p catalog.Period
	f.serve(t, httpTest{method: http.MethodPost, path: path, token: token, body: newPeriod("P1", 2025, 1), wantCode: http.StatusCreated}, &p)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 2025, p.Year)

	var periods []catalog.Period
	f.serve(t, httpTest{path: path + "?year=2024&school_id=" + f.school.ID, token: token, wantCode: http.StatusOK}, &periods)
	require.Len(t, periods, 2)
	assert.Equal(t, f.p1.ID, periods[0].ID, "sorted by order")
	assert.Equal(t, f.p2.ID, periods[1].ID)

	f.serve(t, httpTest{path: path, token: token, wantCode: http.StatusOK}, &periods)
	assert.Len(t, periods, 3)
}
