package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/compass/apps/api/echo"
	"github.com/trezcool/compass/core"
	"github.com/trezcool/compass/core/auth"
	"github.com/trezcool/compass/core/reference"
	"github.com/trezcool/compass/core/school"
	"github.com/trezcool/compass/core/student"
	"github.com/trezcool/compass/core/user"
	appfs "github.com/trezcool/compass/fs"
	emailsvc "github.com/trezcool/compass/services/email"
	inmemdb "github.com/trezcool/compass/storage/database/inmem"
	sessionstore "github.com/trezcool/compass/storage/session"
	testutil "github.com/trezcool/compass/tests"
)

var (
	conf     *core.Config
	db       *inmemdb.DB
	store    *sessionstore.MemoryStore
	broker   *sessionstore.MemoryBroker
	sessions *auth.Sessions
	usrRepo  user.Repository
	stdRepo  student.Repository
	demoUser user.User

	errMissingToken = httpErr{Error: "missing or invalid token"}
)

func setup(t *testing.T, overrides ...func(deps *echoapi.ServerDeps)) *echoapi.Server {
	t.Helper()

	conf = core.NewTestConfig()
	validate, translator := testutil.NewValidate()
	user.LoadCommonPasswords(appfs.FS, core.NopLogger{})
	core.ParseEmailTemplates(appfs.FS, "templates/email", true, core.NopLogger{})
	emailsvc.ResetSentMessages()

	// set up DB & repos
	db = inmemdb.OpenDemo()
	usrRepo = inmemdb.NewUserRepository(db)
	stdRepo = inmemdb.NewStudentRepository(db)

	var err error
	demoUser, err = usrRepo.GetUserByID(context.Background(), inmemdb.DemoOperatorID)
	require.NoError(t, err)

	// set up sessions
	store = sessionstore.NewMemoryStore()
	broker = sessionstore.NewMemoryBroker()
	sessions = auth.NewSessions(store, store, broker, conf.Server.SessionTTL)

	// set up services
	logger := core.NopLogger{}
	retrier := testutil.NewRetrier()
	deps := echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		StudentSvc:     student.NewService(stdRepo, retrier, validate, logger),
		SchoolSvc:      school.NewService(inmemdb.NewSchoolRepository(db), retrier, validate, logger),
		ReferenceSvc:   reference.NewService(inmemdb.NewReferenceRepository(db), retrier, logger),
		UserSvc:        user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(conf), validate, conf),
		Sessions:       sessions,
		Flashes:        store,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	}
	for _, override := range overrides {
		override(&deps)
	}

	// set up server
	return echoapi.NewServer(deps)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *echoapi.Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type uploadFile struct {
	field, name, content string
}

// multipartBody encodes fields and files as a multipart/form-data body.
func multipartBody(t *testing.T, fields url.Values, files ...uploadFile) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for key, vals := range fields {
		for _, val := range vals {
			require.NoError(t, w.WriteField(key, val))
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

// browser keeps the cookies of the dashboard between requests.
type browser struct {
	t       *testing.T
	app     *echoapi.Server
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, app *echoapi.Server) *browser {
	return &browser{t: t, app: app, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range b.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	b.app.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(b.cookies, cookie.Name)
			continue
		}
		b.cookies[cookie.Name] = cookie
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) csrf() string {
	if _, ok := b.cookies["_csrf"]; !ok {
		b.get("/login")
	}
	cookie, ok := b.cookies["_csrf"]
	require.True(b.t, ok, "no csrf cookie")
	return cookie.Value
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	if form.Get("_csrf") == "" {
		form.Set("_csrf", b.csrf())
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(path string, fields url.Values, files ...uploadFile) *httptest.ResponseRecorder {
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("_csrf", b.csrf())
	body, contentType := multipartBody(b.t, fields, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	return b.do(req)
}

func (b *browser) login(email, pwd string) *httptest.ResponseRecorder {
	return b.post("/login", url.Values{"email": {email}, "password": {pwd}})
}

// loggedIn returns a browser signed in as the demo operator.
func loggedIn(t *testing.T, app *echoapi.Server) *browser {
	t.Helper()
	b := newBrowser(t, app)
	rec := b.login(inmemdb.DemoOperatorEmail, inmemdb.DemoOperatorPassword)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/students", rec.Header().Get("Location"))
	return b
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, location, rec.Header().Get("Location"))
}
