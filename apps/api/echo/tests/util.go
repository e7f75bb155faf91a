package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	. "github.com/vishusingh1/classroom/apps/api/echo"
	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/core/user"
	"github.com/vishusingh1/classroom/services/cloudinary"
	"github.com/vishusingh1/classroom/services/email"
	"github.com/vishusingh1/classroom/services/metrics"
	"github.com/vishusingh1/classroom/storage/database/inmem"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "widget not found"}

	pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
)

type testApp struct {
	*Server
	conf    *core.Config
	usrRepo user.Repository
	clsRepo class.Repository
	mailSvc *emailsvc.ConsoleService
	cloud   *fakeCloud
}

func setup(t *testing.T) *testApp {
	t.Helper()
	cloud := newFakeCloud(t)

	conf := &core.Config{AppName: "Classroom", TestMode: true, SecretKey: "test-secret"}
	conf.Server.DisableReqLogs = true
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Cloudinary.CloudName = "demo"
	conf.Cloudinary.UploadPreset = "unsigned"
	conf.Cloudinary.Folder = "avatars"
	conf.Cloudinary.MaxFileSize = 1024
	conf.Cloudinary.AllowedFormats = []string{"png", "jpg", "jpeg"}
	conf.Cloudinary.APIBaseURL = cloud.URL
	conf.Cloudinary.RequestTimeout = time.Second
	conf.Cloudinary.ReadinessInterval = 5 * time.Millisecond

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:    conf,
		usrRepo: inmemdb.NewUserRepository(db),
		clsRepo: inmemdb.NewClassRepository(db),
		mailSvc: emailsvc.NewConsoleServiceMock(conf),
		cloud:   cloud,
	}

	// set up the upload provider, already loaded
	provider := cloudinary.NewBootstrap(conf, cloudinary.NewClient(conf), core.NopLogger{})
	provider.Install()

	// set up server
	server, err := NewServer(Options{
		Conf:       conf,
		Logger:     core.NopLogger{},
		Validate:   validate,
		Translator: translator,
		UserSvc:    user.NewService(app.usrRepo, validate, app.mailSvc),
		ClassSvc:   class.NewService(app.clsRepo, validate),
		Provider:   provider,
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)
	app.Server = server
	t.Cleanup(func() { _ = server.Close() })
	return app
}

func (app *testApp) createUser(t *testing.T, name, username string, avatar *media.AssetReference, roles ...string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := app.usrRepo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  username,
		Email:     username + "@test.cd",
		IsActive:  true,
		Roles:     roles,
		Avatar:    avatar,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func (app *testApp) createClass(t *testing.T, name string, teacherID int, banner *media.AssetReference) class.Class {
	t.Helper()
	now := time.Now().UTC()
	cls, err := app.clsRepo.CreateClass(context.Background(), class.Class{
		Name:      name,
		Subject:   "Maths",
		TeacherID: teacherID,
		Capacity:  30,
		Status:    class.StatusActive,
		Banner:    banner,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return cls
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr, app.conf), app.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

// fakeCloud mimics the upload and delete_by_token endpoints of the provider.
type fakeCloud struct {
	*httptest.Server

	mu      sync.Mutex
	uploads int
	tokens  []string
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()
	fc := &fakeCloud{}
	mux := http.NewServeMux()
	mux.HandleFunc("/demo/image/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fc.mu.Lock()
		fc.uploads++
		fc.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"public_id":    r.FormValue("folder") + "/abc123",
			"secure_url":   "https://res.cloudinary.com/demo/image/upload/v1/" + r.FormValue("folder") + "/abc123.png",
			"delete_token": "tok1",
		})
	})
	mux.HandleFunc("/demo/delete_by_token", func(w http.ResponseWriter, r *http.Request) {
		fc.mu.Lock()
		fc.tokens = append(fc.tokens, r.PostFormValue("token"))
		fc.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
	})
	fc.Server = httptest.NewServer(mux)
	t.Cleanup(fc.Close)
	return fc
}

func (fc *fakeCloud) deletedTokens() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.tokens...)
}

func (fc *fakeCloud) uploadCount() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.uploads
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

// widgetResp mirrors the JSON representation of a mounted widget.
type widgetResp struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	RecordID int    `json:"record_id"`
	Snapshot struct {
		State    string                `json:"state"`
		Value    *media.AssetReference `json:"value"`
		Ready    bool                  `json:"ready"`
		Disabled bool                  `json:"disabled"`
		Mounted  bool                  `json:"mounted"`
	} `json:"snapshot"`
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

func newUploadRequest(t *testing.T, path, token, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeWidget(t *testing.T, rec *httptest.ResponseRecorder) widgetResp {
	t.Helper()
	var resp widgetResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
