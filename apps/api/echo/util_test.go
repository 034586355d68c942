package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/nocheto/libretas/apps/api/echo"
	testutil "github.com/nocheto/libretas/tests"
)

var ctx = context.Background()

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}

func setup(t *testing.T) (*echoapi.Server, *testutil.Env) {
	env := testutil.NewEnv(t)
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          env.Conf,
		Logger:        env.Logger,
		Dir:           env.Dir,
		Consolidation: env.Consolidation,
		Grade:         env.Grade,
		Rubric:        env.Rubric,
		Report:        env.Report,
		Validate:      env.Validate,
		Translator:    env.Translator,
	})
	return srv, env
}

func getToken(t *testing.T, env *testutil.Env, userID string) string {
	usr, err := env.Dir.User(userID)
	require.NoError(t, err)
	token, err := echoapi.GenerateToken(env.Conf, echoapi.NewClaims(env.Conf, usr))
	require.NoError(t, err)
	return token
}

func newAuthRequest(t *testing.T, method, path, token string, data interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if data != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(data))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func do(t *testing.T, srv http.Handler, tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(t, method, tt.path, tt.token, tt.body)
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
