package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
	"github.com/akili/shulenet/core/school"
	"github.com/akili/shulenet/core/user"
	emailsvc "github.com/akili/shulenet/services/email"
	inmemdb "github.com/akili/shulenet/storage/database/inmem"
	"github.com/akili/shulenet/storage/files"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	srv  *Server
	db   *inmemdb.DB
	conf *core.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		Env:                 "TEST",
		TestMode:            true,
		AppName:             "Shulenet",
		SecretKey:           []byte("test-secret-key"),
		FrontendBaseURL:     "http://localhost:3000",
		PageSize:            20,
		DefaultUserPassword: "shulenet123",
		UploadsDir:          t.TempDir(),
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)

	fileStore, err := files.NewStore(conf)
	if err != nil {
		t.Fatalf("creating file store: %v", err)
	}

	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		UserSvc:        user.NewService(inmemdb.NewUserRepository(db), mailSvc, conf),
		SchoolSvc:      school.NewService(inmemdb.NewSchoolRepository(db), mailSvc, conf),
		CatalogSvc:     catalog.NewService(inmemdb.NewCatalogRepository(db), conf),
		Validate:       validate,
		Translator:     translator,
		FileStore:      fileStore,
		DisableReqLogs: true,
	})
	return &testEnv{srv: srv, db: db, conf: conf}
}

func (env *testEnv) seedUser(t *testing.T, email, role string, approved bool) user.User {
	t.Helper()
	usr := user.User{
		Name:      "Test " + role,
		Email:     email,
		Role:      role,
		Approved:  approved,
		Status:    user.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword("secret123"); err != nil {
		t.Fatalf("setting password: %v", err)
	}
	usr, err := inmemdb.NewUserRepository(env.db).CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return usr
}

func (env *testEnv) seedSchool(t *testing.T, name string, approved bool) school.School {
	t.Helper()
	sch, err := inmemdb.NewSchoolRepository(env.db).CreateSchool(context.Background(), school.School{
		Name:         name,
		Location:     "Dar es Salaam",
		ContactEmail: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com",
		Approved:     approved,
		Status:       school.StatusActive,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding school: %v", err)
	}
	return sch
}

func (env *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	admin := env.seedUser(t, "admin@example.com", core.RoleSuperAdmin, true)
	return env.token(t, admin)
}

func (env *testEnv) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(env.conf, usr))
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return token
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

func newFormRequest(path, token string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func newGetRequest(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

type actionRes struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type listRes struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Data    []map[string]interface{} `json:"data"`
	Meta    core.Page                `json:"meta"`
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func Test_home(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Shulenet Admin API!", rec.Body.String())
}

func Test_login(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "asha@example.com", user.RoleTeacher, true)
	env.seedUser(t, "pending@example.com", user.RoleTeacher, false)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"ok", `{"email": "asha@example.com", "password": "secret123"}`, http.StatusOK, ""},
		{"email is case-insensitive", `{"email": "Asha@Example.com", "password": "secret123"}`, http.StatusOK, ""},
		{"wrong password", `{"email": "asha@example.com", "password": "nope"}`, http.StatusBadRequest, "authentication failed"},
		{"unknown email", `{"email": "ghost@example.com", "password": "secret123"}`, http.StatusBadRequest, "authentication failed"},
		{"pending account", `{"email": "pending@example.com", "password": "secret123"}`, http.StatusForbidden, "account deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := env.do(req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				var body map[string]string
				decodeJSON(t, rec, &body)
				assert.Equal(t, tt.wantErr, body["error"])
				return
			}
			var body LoginResponse
			decodeJSON(t, rec, &body)
			assert.NotEmpty(t, body.Token)
		})
	}
}

func Test_login_recordsLastLogin(t *testing.T) {
	env := newTestEnv(t)
	usr := env.seedUser(t, "asha@example.com", user.RoleTeacher, true)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email": "asha@example.com", "password": "secret123"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	got, err := inmemdb.NewUserRepository(env.db).GetUserByID(context.Background(), usr.ID)
	assert.NoError(t, err)
	assert.False(t, got.LastLogin.IsZero())
}

func Test_adminGate(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.seedUser(t, "asha@example.com", user.RoleTeacher, true)
	teacherToken := env.token(t, teacher)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"list without token", newGetRequest("/v1/admin/schools", ""), http.StatusUnauthorized, "missing or malformed jwt"},
		{"action without token", newFormRequest("/v1/admin/schools/actions", "", url.Values{"action": {"approve_school"}}), http.StatusUnauthorized, "missing or malformed jwt"},
		{"list as non-admin", newGetRequest("/v1/admin/schools", teacherToken), http.StatusForbidden, "permission denied"},
		{"action as non-admin", newFormRequest("/v1/admin/schools/actions", teacherToken, url.Values{"action": {"approve_school"}}), http.StatusForbidden, "permission denied"},
		{"export as non-admin", newGetRequest("/v1/admin/export?type=schools", teacherToken), http.StatusForbidden, "permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(tt.req)
			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]string
			decodeJSON(t, rec, &body)
			assert.Equal(t, tt.wantErr, body["error"])
		})
	}
}

func Test_schoolList(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	env.seedSchool(t, "Mlimani Academy", false)
	env.seedSchool(t, "Tumaini High", true)

	rec := env.do(newGetRequest("/v1/admin/schools?filter=pending", token))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body listRes
	decodeJSON(t, rec, &body)
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, "Mlimani Academy", body.Data[0]["name"])
	assert.Equal(t, core.Page{Total: 1, NumPages: 1, Number: 1, Size: 20}, body.Meta)

	// no matches still renders an empty array, never null
	rec = env.do(newGetRequest("/v1/admin/schools?filter=suspended", token))
	decodeJSON(t, rec, &body)
	assert.True(t, body.Success)
	assert.NotNil(t, body.Data)
	assert.Len(t, body.Data, 0)
}

func Test_schoolActions(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	// add
	rec := env.do(newFormRequest("/v1/admin/schools/actions", token, url.Values{
		"action":        {"add_school"},
		"name":          {"Mlimani Academy"},
		"location":      {"Dar es Salaam"},
		"contact_email": {"info@mlimani.example.com"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	var res actionRes
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, `school "Mlimani Academy" added`, res.Message)
	assert.Equal(t, "Mlimani Academy", res.Data["name"])
	assert.Equal(t, true, res.Data["approved"]) // admin-created schools skip the gate

	// validation failures stay in the envelope as HTTP 200
	rec = env.do(newFormRequest("/v1/admin/schools/actions", token, url.Values{
		"action": {"add_school"},
		"name":   {"Nameless"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "location")

	// unknown action names never reach a dispatcher
	rec = env.do(newFormRequest("/v1/admin/schools/actions", token, url.Values{"action": {"drop_school"}}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, core.MsgInvalidAction, res.Message)
}

func Test_schoolApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	sch := env.seedSchool(t, "Mlimani Academy", false)
	schoolAdmin := user.User{
		SchoolID:  sch.ID,
		Name:      "Neema Said",
		Email:     "neema@example.com",
		Role:      user.RoleSchoolAdmin,
		Status:    user.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	schoolAdmin, err := inmemdb.NewUserRepository(env.db).CreateUser(context.Background(), schoolAdmin)
	assert.NoError(t, err)

	rec := env.do(newFormRequest("/v1/admin/schools/actions", token, url.Values{
		"action": {"approve_school"},
		"id":     {strconv.Itoa(sch.ID)},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	var res actionRes
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "school approved", res.Message)

	got, err := inmemdb.NewSchoolRepository(env.db).GetSchoolByID(context.Background(), sch.ID)
	assert.NoError(t, err)
	assert.True(t, got.Approved)
	gotAdmin, err := inmemdb.NewUserRepository(env.db).GetUserByID(context.Background(), schoolAdmin.ID)
	assert.NoError(t, err)
	assert.True(t, gotAdmin.Approved)
}

func Test_userActions_addRelaysCredential(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	sch := env.seedSchool(t, "Mlimani Academy", true)

	rec := env.do(newFormRequest("/v1/admin/users/actions", token, url.Values{
		"action":    {"add_user"},
		"school_id": {strconv.Itoa(sch.ID)},
		"name":      {"Asha Juma"},
		"email":     {"asha@example.com"},
		"role":      {"teacher"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	var res actionRes
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, env.conf.DefaultUserPassword)
	assert.Equal(t, float64(sch.ID), res.Data["school_id"])
	_, hasHash := res.Data["password_hash"]
	assert.False(t, hasHash) // the hash never leaves the server
}

func Test_userRejectFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	pending := env.seedUser(t, "pending@example.com", user.RoleTeacher, false)
	active := env.seedUser(t, "active@example.com", user.RoleTeacher, true)

	rec := env.do(newFormRequest("/v1/admin/users/actions", token, url.Values{
		"action": {"reject_user"},
		"id":     {strconv.Itoa(pending.ID)},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	var res actionRes
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "user rejected", res.Message)
	_, err := inmemdb.NewUserRepository(env.db).GetUserByID(context.Background(), pending.ID)
	assert.Equal(t, user.ErrNotFound, err)

	// approved users cannot be rejected
	rec = env.do(newFormRequest("/v1/admin/users/actions", token, url.Values{
		"action": {"reject_user"},
		"id":     {strconv.Itoa(active.ID)},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, "only a pending user can be rejected", res.Message)
}

func Test_userList_filtersBySchool(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	sch := env.seedSchool(t, "Mlimani Academy", true)
	other := env.seedSchool(t, "Tumaini High", true)

	usrRepo := inmemdb.NewUserRepository(env.db)
	for i, schoolID := range []int{sch.ID, sch.ID, other.ID} {
		_, err := usrRepo.CreateUser(context.Background(), user.User{
			SchoolID:  schoolID,
			Name:      "Teacher",
			Email:     string(rune('a'+i)) + "@example.com",
			Role:      user.RoleTeacher,
			Approved:  true,
			Status:    user.StatusActive,
			CreatedAt: time.Now().UTC(),
		})
		assert.NoError(t, err)
	}

	rec := env.do(newGetRequest(fmt.Sprintf("/v1/admin/users?school_id=%d&role=teacher", sch.ID), token))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body listRes
	decodeJSON(t, rec, &body)
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Meta.Total)
}

func Test_catalogActionsAndLists(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	var res actionRes
	rec := env.do(newFormRequest("/v1/admin/categories/actions", token, url.Values{
		"action": {"add_category"},
		"name":   {"Stationery"},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	catID := strconv.Itoa(int(res.Data["id"].(float64)))

	rec = env.do(newFormRequest("/v1/admin/brands/actions", token, url.Values{
		"action":      {"add_brand"},
		"category_id": {catID},
		"name":        {"Kampala Pens"},
	}))
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "Stationery", res.Data["category_name"])

	// the three catalog routes share one action vocabulary; a brand action
	// posted to the category route still resolves
	rec = env.do(newFormRequest("/v1/admin/categories/actions", token, url.Values{
		"action":      {"add_brand"},
		"category_id": {catID},
		"name":        {"Arusha Books"},
	}))
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)

	// deleting a category that still has brands is refused in the envelope
	rec = env.do(newFormRequest("/v1/admin/categories/actions", token, url.Values{
		"action": {"delete_category"},
		"id":     {catID},
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, catalog.ErrCategoryInUse.Error(), res.Message)

	rec = env.do(newGetRequest("/v1/admin/brands?category_id="+catID, token))
	var body listRes
	decodeJSON(t, rec, &body)
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, "Arusha Books", body.Data[0]["name"]) // name ascending
}

func Test_export(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)
	env.seedSchool(t, "Mlimani Academy", false)
	env.seedSchool(t, "Tumaini High", true)

	rec := env.do(newGetRequest("/v1/admin/export?type=schools", token))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment; filename=schools-")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Equal(t, "ID,Name,Location,Contact Email,Phone,Approved,Status,Created At", lines[0])
	assert.Len(t, lines, 3)

	// the status filter applies to exports too
	rec = env.do(newGetRequest("/v1/admin/export?type=schools&filter=pending", token))
	lines = strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Mlimani Academy")

	rec = env.do(newGetRequest("/v1/admin/export?type=everything", token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_uploads(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	content := []byte("fake image bytes")
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "logo.png")
	assert.NoError(t, err)
	_, err = fw.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/uploads", body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var res actionRes
	decodeJSON(t, rec, &res)
	assert.True(t, res.Success)
	name, _ := res.Data["filename"].(string)
	assert.NotEmpty(t, name)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, "logo.png", name) // stored under a fresh random name

	// stored files are served back
	rec = env.do(newGetRequest("/v1/admin/uploads/"+name, token))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())

	// unknown names fall back to the placeholder
	placeholder := []byte("placeholder bytes")
	assert.NoError(t, os.WriteFile(filepath.Join(env.conf.UploadsDir, files.Placeholder), placeholder, 0o644))
	rec = env.do(newGetRequest("/v1/admin/uploads/nope.png", token))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, placeholder, rec.Body.Bytes())

	// a post without a file is an application failure, not an HTTP error
	rec = env.do(newFormRequest("/v1/admin/uploads", token, url.Values{}))
	assert.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, "no file uploaded", res.Message)
}

func Test_tokenRefresh(t *testing.T) {
	env := newTestEnv(t)
	usr := env.seedUser(t, "asha@example.com", user.RoleTeacher, true)
	token := env.token(t, usr)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token-refresh", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body LoginResponse
	decodeJSON(t, rec, &body)
	assert.NotEmpty(t, body.Token)

	// expired refresh window
	staleClaims := GetUserClaims(env.conf, usr, time.Now().Add(-5*time.Hour).Unix())
	stale, err := GenerateToken(staleClaims)
	assert.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/token-refresh", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+stale)
	rec = env.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	var errBody map[string]string
	decodeJSON(t, rec, &errBody)
	assert.Equal(t, "refresh has expired", errBody["error"])
}
