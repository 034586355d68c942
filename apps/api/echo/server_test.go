package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/nocheto/libretas/apps/api/echo"
	"github.com/nocheto/libretas/core/average"
	"github.com/nocheto/libretas/core/consolidation"
	"github.com/nocheto/libretas/core/grade"
	"github.com/nocheto/libretas/core/report"
	"github.com/nocheto/libretas/core/school"
	testutil "github.com/nocheto/libretas/tests"
)

func TestAuth(t *testing.T) {
	srv, env := setup(t)

	rec := do(t, srv, httpTest{method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Username: " Teacher ", Password: testutil.Password}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login echoapi.LoginResponse
	decode(t, rec, &login)
	assert.NotEmpty(t, login.Token)

	rec = do(t, srv, httpTest{path: "/v1/me", token: login.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	var profile school.Profile
	decode(t, rec, &profile)
	assert.Equal(t, "u-teacher", profile.ID)
	assert.Equal(t, school.KindSubjectTeacher, profile.Role)
	assert.Equal(t, []string{"1A", "1B"}, profile.Sections)

	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/auth/token-refresh", token: login.Token})
	assert.Equal(t, http.StatusOK, rec.Code)

	tests := []httpTest{
		{name: "wrong password", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Username: "teacher", Password: "nope"}, wantCode: http.StatusBadRequest},
		{name: "unknown user", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Username: "nobody", Password: "pwd"}, wantCode: http.StatusBadRequest},
		{name: "missing fields", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{}, wantCode: http.StatusBadRequest},
		{name: "auth required", path: "/v1/me", wantCode: http.StatusUnauthorized},
		{name: "invalid token", path: "/v1/me", token: "lol", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	// a user removed from the directory can no longer use its token
	ghost := testutil.NewUser(t, "u-ghost", "ghost", "Ghost", "ghost@school.test", school.KindPrincipal, nil, nil)
	token, err := echoapi.GenerateToken(env.Conf, echoapi.NewClaims(env.Conf, ghost))
	require.NoError(t, err)
	rec = do(t, srv, httpTest{path: "/v1/me", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGradeAPI(t *testing.T) {
	srv, env := setup(t)
	teacher := getToken(t, env, "u-teacher")
	principal := getToken(t, env, "u-principal")

	batch := []grade.NewGrade{
		{Key: grade.Key{StudentID: "s-ana", CourseID: "mat", Section: "1A", Bimester: "bim1"}, Month: "marzo", Value: average.Float(0)},
		{Key: grade.Key{StudentID: "s-bruno", CourseID: "mat", Section: "1A", Bimester: "bim1"}, Month: "marzo", Value: average.Float(18.5)},
	}

	rec := do(t, srv, httpTest{method: http.MethodPut, path: "/v1/grades", body: batch, token: teacher})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved []grade.Entry
	decode(t, rec, &saved)
	require.Len(t, saved, 2)
	assert.Equal(t, average.Float(0), saved[0].Value)
	assert.Equal(t, "u-teacher", saved[0].TeacherID)

	// the request sequence is echoed back
	req, rec := newAuthRequest(t, http.MethodGet, "/v1/grades?section=1A&course=mat", teacher, nil)
	req.Header.Set("X-Request-Seq", "42")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("X-Request-Seq"))
	var entries []grade.Entry
	decode(t, rec, &entries)
	assert.Len(t, entries, 2)

	tests := []httpTest{
		{name: "out of range", method: http.MethodPut, path: "/v1/grades", token: teacher, wantCode: http.StatusBadRequest,
			body: []grade.NewGrade{{Key: batch[0].Key, Value: average.Float(20.5)}}},
		{name: "principal cannot write grades", method: http.MethodPut, path: "/v1/grades", token: principal, wantCode: http.StatusForbidden, body: batch},
		{name: "course not assigned", method: http.MethodPut, path: "/v1/grades", token: teacher, wantCode: http.StatusForbidden,
			body: []grade.NewGrade{{Key: grade.Key{StudentID: "s-ana", CourseID: "cta", Section: "1A", Bimester: "bim1"}, Value: average.Float(12)}}},
		{name: "section required for teachers", path: "/v1/grades", token: teacher, wantCode: http.StatusForbidden},
		{name: "principal sees every section", path: "/v1/grades", token: principal, wantCode: http.StatusOK},
		{name: "finals need a course", path: "/v1/finals/1A/bim1", token: teacher, wantCode: http.StatusBadRequest},
		{name: "finals", path: "/v1/finals/1A/bim1?course=mat", token: teacher, wantCode: http.StatusOK},
		{name: "finals of an unknown course", path: "/v1/finals/1A/bim1?course=lol", token: teacher, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	rec = do(t, srv, httpTest{method: http.MethodPut, path: "/v1/exams", token: teacher,
		body: grade.NewExam{Key: batch[1].Key, ExamGrade: average.Float(17)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, httpTest{path: "/v1/finals/1A/bim1?course=mat", token: teacher})
	var finals []grade.Final
	decode(t, rec, &finals)
	require.Len(t, finals, 3)
	assert.Equal(t, average.Float(17.75), finals[1].Final)
}

func TestConsolidationAPI(t *testing.T) {
	srv, env := setup(t)
	teacher := getToken(t, env, "u-teacher")
	tutor := getToken(t, env, "u-tutor1a")
	principal := getToken(t, env, "u-principal")

	// subject teachers cannot close; tutors close their own sections only
	rec := do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1A/bim1/close", token: teacher})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1B/bim1/close", token: tutor})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown periods are rejected before reaching the ledger
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/9Z/bim1/close", token: principal})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1A/bim9/close", token: principal})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1A/bim1/close", token: tutor})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c consolidation.Consolidation
	decode(t, rec, &c)
	assert.True(t, c.IsClosed)
	assert.Equal(t, "u-tutor1a", c.ClosedBy)

	// writes to the closed period conflict
	rec = do(t, srv, httpTest{method: http.MethodPut, path: "/v1/grades", token: teacher, body: []grade.NewGrade{
		{Key: grade.Key{StudentID: "s-ana", CourseID: "mat", Section: "1A", Bimester: "bim1"}, Value: average.Float(12)},
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	var herr httpErr
	decode(t, rec, &herr)
	assert.Equal(t, "period closed", herr.Error)

	// only the principal reopens
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1A/bim1/reopen", token: tutor})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1B/bim1/reopen", token: principal})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/consolidations/1A/bim1/reopen", token: principal})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, httpTest{path: "/v1/consolidations/1A/bim1", token: tutor})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &c)
	assert.False(t, c.IsClosed)

	_, err := env.Consolidation.Close(ctx, "1B", "bim2", "u-principal")
	require.NoError(t, err)

	// the tutor of 1A does not see 1B records
	rec = do(t, srv, httpTest{path: "/v1/consolidations", token: tutor})
	var all []consolidation.Consolidation
	decode(t, rec, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "1A", all[0].Section)

	rec = do(t, srv, httpTest{path: "/v1/consolidations", token: principal})
	decode(t, rec, &all)
	assert.Len(t, all, 2)
}

func TestRubricAPI(t *testing.T) {
	srv, env := setup(t)
	teacher := getToken(t, env, "u-teacher")

	sheet := map[string]interface{}{
		"section": "1A", "course_id": "mat", "bimester": "bim1", "month": "abril",
		"rubrics": []average.Rubric{{ID: "1", Name: "Tareas", Percentage: 40}, {ID: "2", Name: "Examen", Percentage: 60}},
		"scores":  map[string]map[string]*float64{"s-carla": {"1": average.Float(10), "2": average.Float(20)}},
	}
	rec := do(t, srv, httpTest{method: http.MethodPut, path: "/v1/sheets", body: sheet, token: teacher})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	key := map[string]string{"section": "1A", "course_id": "mat", "bimester": "bim1", "month": "abril"}
	rec = do(t, srv, httpTest{method: http.MethodPost, path: "/v1/sheets/submit", body: key, token: teacher})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entry, err := env.Grade.Get(ctx, grade.Key{StudentID: "s-carla", CourseID: "mat", Section: "1A", Bimester: "bim1"})
	require.NoError(t, err)
	assert.Equal(t, average.Float(16), entry.Value)

	rec = do(t, srv, httpTest{path: "/v1/sheets?status=submitted", token: teacher})
	var sheets []map[string]interface{}
	decode(t, rec, &sheets)
	assert.Len(t, sheets, 1)

	// sheets of other teachers are not listed
	rec = do(t, srv, httpTest{path: "/v1/sheets", token: getToken(t, env, "u-tutor1a")})
	decode(t, rec, &sheets)
	assert.Empty(t, sheets)
}

func TestReportAPI(t *testing.T) {
	srv, env := setup(t)
	env.MustGrade(t, "s-ana", "mat", "1A", "bim1", average.Float(15), average.Float(16))
	teacher := getToken(t, env, "u-teacher")
	tutor := getToken(t, env, "u-tutor1a")
	principal := getToken(t, env, "u-principal")

	rec := do(t, srv, httpTest{path: "/v1/reports/coverage?section=1A&bimester=bim1", token: tutor})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cov report.Coverage
	decode(t, rec, &cov)
	assert.Equal(t, 9, cov.Expected)
	assert.Equal(t, 1, cov.Graded)

	tests := []httpTest{
		{name: "coverage requires a bimester", path: "/v1/reports/coverage?section=1A", token: tutor, wantCode: http.StatusBadRequest},
		{name: "coverage of another section", path: "/v1/reports/coverage?section=1B&bimester=bim1", token: tutor, wantCode: http.StatusForbidden},
		{name: "overview is for the principal", path: "/v1/reports/sections?bimester=bim1", token: teacher, wantCode: http.StatusForbidden},
		{name: "overview", path: "/v1/reports/sections?bimester=bim1", token: principal, wantCode: http.StatusOK},
		{name: "teacher coverage", path: "/v1/reports/teacher?bimester=bim1", token: teacher, wantCode: http.StatusOK},
		{name: "unknown bimester", path: "/v1/reports/teacher?bimester=bim9", token: teacher, wantCode: http.StatusNotFound},
		{name: "report card", path: "/v1/reports/report-card/s-ana", token: tutor, wantCode: http.StatusOK},
		{name: "report card of another section", path: "/v1/reports/report-card/s-diego", token: tutor, wantCode: http.StatusForbidden},
		{name: "unknown student", path: "/v1/reports/report-card/s-nobody", token: principal, wantCode: http.StatusNotFound},
		{name: "ranking", path: "/v1/reports/ranking?section=1A&course=mat&bimester=bim1", token: teacher, wantCode: http.StatusOK},
		{name: "ranking requires a course", path: "/v1/reports/ranking?section=1A&bimester=bim1", token: teacher, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}
