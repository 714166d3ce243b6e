package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/najdeno/internal/asset"
	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/service"
	"github.com/erazemk/najdeno/internal/store"
)

const (
	testMaxBody  = 1 << 20
	testMaxAsset = 64 << 10
)

type testServer struct {
	*httptest.Server
	assets *asset.Store
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	database := db.NewTestDB(t)
	backend, err := asset.NewLocalBackend(t.TempDir())
	require.NoError(t, err)

	assets := asset.NewStore(backend, asset.Options{
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		MaxSize:           testMaxAsset,
		MaxImageDimension: 1600,
	})
	items := store.NewItems(database)

	handler := NewHandler(Deps{
		Items: service.NewItems(items, assets),
		Accounts: service.NewAccounts(store.NewUsers(database), store.NewTokens(database), auth.NewTokens("test-secret"),
			service.SessionConfig{Duration: time.Hour, RememberDuration: 24 * time.Hour}),
		Finder:      items,
		Assets:      assets,
		DB:          database,
		MaxBodySize: testMaxBody,
	})

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &testServer{Server: server, assets: assets}
}

func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := noRedirectClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) postJSON(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, token)
}

func (s *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	return s.do(t, req, token)
}

func (s *testServer) send(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	require.NoError(t, err)
	return s.do(t, req, token)
}

// multipartForm posts fields and an optional file as multipart/form-data.
func (s *testServer) multipartForm(t *testing.T, method, path, token string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req, token)
}

func (s *testServer) signUp(t *testing.T, username, email string) string {
	t.Helper()

	resp := s.postJSON(t, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": "secret123", "confirm_password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.postJSON(t, "/api/auth/login", "", map[string]any{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func decodeItem(t *testing.T, resp *http.Response) *model.Item {
	t.Helper()
	var item model.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&item))
	return &item
}

func decodeItems(t *testing.T, resp *http.Response) []model.Item {
	t.Helper()
	var items []model.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	return items
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestWelcomeAndHealth(t *testing.T) {
	s := setupTestServer(t)

	resp := s.get(t, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.get(t, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(traceIDHeader))
}

func TestTraceIDIsEchoed(t *testing.T) {
	s := setupTestServer(t)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(traceIDHeader, "trace-123")

	resp := s.do(t, req, "")
	assert.Equal(t, "trace-123", resp.Header.Get(traceIDHeader))
}

func TestRegisterAndLogin(t *testing.T) {
	s := setupTestServer(t)

	resp := s.postJSON(t, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "password")

	resp = s.postJSON(t, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.postJSON(t, "/api/auth/register", "", map[string]string{
		"username": "b", "email": "b@x.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.postJSON(t, "/api/auth/login", "", map[string]any{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Location"))

	resp = s.postJSON(t, "/api/auth/login", "", map[string]any{
		"email": "a@x.com", "password": "secret123", "remember": true, "next": "https://evil.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, "/", login.Next)
	assert.Equal(t, "alice", login.User.Username)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, login.Token, cookie.Value)
	assert.False(t, cookie.Expires.IsZero(), "remembered sessions get a persistent cookie")
}

func TestSessionCookieAuthenticates(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})

	resp := s.do(t, req, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user model.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "alice", user.Username)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.get(t, "/api/auth/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.send(t, http.MethodPost, "/api/auth/logout", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.get(t, "/api/auth/me", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.send(t, http.MethodPost, "/api/auth/logout", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnauthenticatedMutationsRedirectToLogin(t *testing.T) {
	s := setupTestServer(t)

	resp := s.multipartForm(t, http.MethodPost, "/api/items", "", map[string]string{"name": "Wallet", "status": "Lost"}, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/api/auth/login?next=%2Fapi%2Fitems", resp.Header.Get("Location"))

	resp = s.send(t, http.MethodPost, "/api/items/1/claim", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/api/auth/login?next=%2Fapi%2Fitems%2F1%2Fclaim", resp.Header.Get("Location"))

	// A bad token is treated as no session at all.
	resp = s.send(t, http.MethodDelete, "/api/items/1", "garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginLocationIsServed(t *testing.T) {
	s := setupTestServer(t)

	resp := s.postJSON(t, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.send(t, http.MethodPost, "/api/items/1/claim", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	location := resp.Header.Get("Location")
	require.NotEmpty(t, location)

	// Signing in at the advertised location returns the original target.
	resp = s.postJSON(t, location, "", map[string]any{"email": "a@x.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, "/api/items/1/claim", login.Next)

	// The forbidden location is the board itself.
	resp = s.get(t, boardPath, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestItemEndToEnd(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token,
		map[string]string{"name": "Wallet", "status": "Lost", "description": "brown leather"},
		"wallet.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeItem(t, resp)
	assert.Equal(t, "alice", item.OwnerUsername)
	key := item.ImageKey()
	require.True(t, asset.ValidKey(key))

	resp = s.get(t, "/uploads/"+key, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = s.get(t, "/api/items", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeItems(t, resp)
	require.Len(t, all, 1)
	assert.Equal(t, item.ID, all[0].ID)

	path := fmt.Sprintf("/api/items/%d", item.ID)
	resp = s.multipartForm(t, http.MethodPut, path, token,
		map[string]string{"name": "Wallet", "status": "Found", "description": "brown leather"}, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, key, decodeItem(t, resp).ImageKey())

	resp = s.get(t, "/api/items?status=Lost", "")
	assert.Empty(t, decodeItems(t, resp))

	resp = s.get(t, "/api/items?status=Found", "")
	assert.Len(t, decodeItems(t, resp), 1)

	resp = s.send(t, http.MethodDelete, path, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.get(t, path, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.get(t, "/uploads/"+key, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditReplacesImage(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token,
		map[string]string{"name": "Scarf", "status": "Found"}, "one.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeItem(t, resp)
	k1 := item.ImageKey()

	resp = s.multipartForm(t, http.MethodPost, fmt.Sprintf("/api/items/%d", item.ID), token,
		map[string]string{"name": "Scarf", "status": "Found"}, "two.png", pngBytes(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	k2 := decodeItem(t, resp).ImageKey()

	assert.NotEqual(t, k1, k2)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/uploads/"+k1, "").StatusCode)
	assert.Equal(t, http.StatusOK, s.get(t, "/uploads/"+k2, "").StatusCode)
}

func TestStrangerIsForbidden(t *testing.T) {
	s := setupTestServer(t)
	alice := s.signUp(t, "alice", "a@x.com")
	bob := s.signUp(t, "bob", "b@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", alice, map[string]string{"name": "Keys", "status": "Lost"}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	path := fmt.Sprintf("/api/items/%d", decodeItem(t, resp).ID)

	checks := []*http.Response{
		s.multipartForm(t, http.MethodPost, path, bob, map[string]string{"name": "Mine", "status": "Found"}, "", nil),
		s.send(t, http.MethodDelete, path, bob),
		s.send(t, http.MethodPost, path+"/delete", bob),
		s.send(t, http.MethodPost, path+"/claim", bob),
		s.send(t, http.MethodPost, path+"/unclaim", bob),
	}
	for _, resp := range checks {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "/api/items", resp.Header.Get("Location"))
	}

	// Missing items are reported as not found, even to strangers.
	resp = s.send(t, http.MethodPost, "/api/items/999/claim", bob)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClaimAndUnclaim(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token, map[string]string{"name": "Keys", "status": "Lost"}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	path := fmt.Sprintf("/api/items/%d", decodeItem(t, resp).ID)

	for i := 0; i < 2; i++ {
		resp = s.send(t, http.MethodPost, path+"/claim", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decodeItem(t, resp).Claimed)
	}

	resp = s.get(t, "/api/items?claim=claimed", "")
	assert.Len(t, decodeItems(t, resp), 1)

	resp = s.send(t, http.MethodPost, path+"/unclaim", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeItem(t, resp).Claimed)

	resp = s.get(t, "/api/items?claim=claimed", "")
	assert.Empty(t, decodeItems(t, resp))
}

func TestSearchFilters(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	for _, f := range []map[string]string{
		{"name": "Blue Umbrella", "status": "Lost"},
		{"name": "Keys", "description": "umbrella keyring", "status": "Found"},
		{"name": "Wallet", "status": "Lost"},
	} {
		resp := s.multipartForm(t, http.MethodPost, "/api/items", token, f, "", nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	names := func(items []model.Item) []string {
		out := []string{}
		for _, it := range items {
			out = append(out, it.Name)
		}
		return out
	}

	assert.Equal(t, []string{"Wallet", "Keys", "Blue Umbrella"}, names(decodeItems(t, s.get(t, "/api/items", ""))))
	assert.Equal(t, []string{"Keys", "Blue Umbrella"}, names(decodeItems(t, s.get(t, "/api/items?q=UMBRELLA", ""))))
	assert.Equal(t, []string{"Blue Umbrella"}, names(decodeItems(t, s.get(t, "/api/items?q=umbrella&status=Lost&claim=unclaimed", ""))))

	// Unknown values are ignored rather than rejected.
	assert.Len(t, decodeItems(t, s.get(t, "/api/items?status=Stolen&claim=maybe", "")), 3)
}

func TestUploadRejections(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token,
		map[string]string{"name": "Virus", "status": "Lost"}, "malware.exe", []byte("MZ"))
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = s.multipartForm(t, http.MethodPost, "/api/items", token,
		map[string]string{"name": "Huge", "status": "Lost"}, "huge.png", bytes.Repeat([]byte{0}, testMaxAsset+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	assert.Empty(t, decodeItems(t, s.get(t, "/api/items", "")))
}

func TestItemValidationAndIDs(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token, map[string]string{"name": "", "status": "Lost"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.multipartForm(t, http.MethodPost, "/api/items", token, map[string]string{"name": "Keys", "status": "Stolen"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, s.get(t, "/api/items/abc", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/api/items/12345", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, s.get(t, "/uploads/..%2F..%2Fetc%2Fpasswd", "").StatusCode)
}

func TestJSONItemForm(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.postJSON(t, "/api/items", token, map[string]string{"name": "Keys", "status": "Found"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeItem(t, resp)
	assert.Nil(t, item.Image)
	assert.Equal(t, int64(1), item.Version)
}

func TestEditVersionConflict(t *testing.T) {
	s := setupTestServer(t)
	token := s.signUp(t, "alice", "a@x.com")

	resp := s.multipartForm(t, http.MethodPost, "/api/items", token, map[string]string{"name": "Keys", "status": "Lost"}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeItem(t, resp)
	path := fmt.Sprintf("/api/items/%d", item.ID)
	version := fmt.Sprint(item.Version)

	resp = s.multipartForm(t, http.MethodPost, path, token, map[string]string{"name": "First", "status": "Lost", "version": version}, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.multipartForm(t, http.MethodPost, path, token, map[string]string{"name": "Second", "status": "Lost", "version": version}, "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = s.multipartForm(t, http.MethodPost, path, token, map[string]string{"name": "Third", "status": "Lost", "version": "x"}, "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got := decodeItem(t, s.get(t, path, ""))
	assert.Equal(t, "First", got.Name)
}

func TestUnknownRoute(t *testing.T) {
	s := setupTestServer(t)

	resp := s.get(t, "/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"))
}
