package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"

	"finance_tracker/internal/config"
	appdb "finance_tracker/internal/db"
	"finance_tracker/internal/domain"
	"finance_tracker/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newTestApp builds the full gate pipeline over an in-memory database.
// Redis is nil, so caching is a no-op and every read hits the store.
func newTestApp(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, appdb.AutoMigrate(db))

	cfg := &config.Config{
		JWTSecret:      "test-jwt-secret",
		CSRFSecret:     "test-csrf-secret",
		FrontendOrigin: "http://localhost:5500",
		UploadDir:      t.TempDir(),
		SessionHours:   1,
	}
	srv := httptest.NewServer(router.Setup(cfg, db, nil))
	t.Cleanup(srv.Close)
	return srv, db
}

// client is a cookie-carrying API client for one simulated browser session
type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

// mintCSRF fetches a fresh pair; the secret half lands in the cookie jar
func (c *client) mintCSRF() {
	c.t.Helper()
	resp, err := c.http.Get(c.base + "/api/csrf-token")
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"csrfToken"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(c.t, body.Token)
	c.csrf = body.Token
}

// postJSON sends a JSON request; the CSRF header rides along when minted
func (c *client) doJSON(method, path string, payload any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(payload))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

// signup registers and logs the user in, capturing the session cookie
func (c *client) signup(username, password string) {
	c.t.Helper()
	creds := map[string]string{"username": username, "password": password}
	resp := c.doJSON(http.MethodPost, "/api/auth/register", creds)
	resp.Body.Close()
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	resp = c.doJSON(http.MethodPost, "/api/auth/login", creds)
	resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
}

// transactionField is one multipart form field
type transactionField struct{ key, value string }

// postTransaction sends a multipart create, optionally with a receipt file
func (c *client) postTransaction(fields []transactionField, fileName string, fileContent []byte, withCSRF bool) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		require.NoError(c.t, w.WriteField(f.key, f.value))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("receipt", fileName)
		require.NoError(c.t, err)
		_, err = part.Write(fileContent)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/transactions", &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if withCSRF && c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

// coffeeFields is the canonical valid create payload
func coffeeFields(categoryID string) []transactionField {
	return []transactionField{
		{"description", "Coffee"},
		{"amount", "4.50"},
		{"type", "expense"},
		{"date", "2024-01-01"},
		{"idCategory", categoryID},
	}
}

func seedCategory(t *testing.T, db *gorm.DB, name string) domain.Category {
	t.Helper()
	cat := domain.Category{Name: name}
	require.NoError(t, db.Create(&cat).Error)
	return cat
}

func userID(t *testing.T, db *gorm.DB, username string) uint {
	t.Helper()
	var user domain.User
	require.NoError(t, db.Where("username = ?", username).First(&user).Error)
	return user.ID
}

func decodeTransaction(t *testing.T, r io.Reader) domain.Transaction {
	t.Helper()
	var body struct {
		Transaction domain.Transaction `json:"transaction"`
	}
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body.Transaction
}

func TestCreateTransactionEndToEnd(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	resp := c.postTransaction(coffeeFields("1"), "", nil, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tx := decodeTransaction(t, resp.Body)
	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, 4.50, tx.Amount)
	assert.Equal(t, domain.TypeExpense, tx.Type)
	assert.Equal(t, userID(t, db, "alice"), tx.UserID)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Food", tx.Category.Name)
}

func TestCreateWithoutCSRFRejected(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	// Valid session, valid cookie pair, but the header is not echoed
	resp := c.postTransaction(coffeeFields("1"), "", nil, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The gate fired before the handler: nothing was inserted
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestMutationWithoutSessionRejected(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	// CSRF pair minted, but never logged in
	c := newClient(t, srv)
	c.mintCSRF()

	resp := c.postTransaction(coffeeFields("1"), "", nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCSRFGatePrecedesSessionGate(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	// Neither a CSRF pair nor a session: the rejection must be the CSRF
	// one, proving the anti-forgery gate runs before session verification
	c := newClient(t, srv)
	resp := c.postTransaction(coffeeFields("1"), "", nil, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCrossUserUpdateReturnsNotFound(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	alice := newClient(t, srv)
	alice.mintCSRF()
	alice.signup("alice", "password123")
	resp := alice.postTransaction(coffeeFields("1"), "", nil, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeTransaction(t, resp.Body)
	resp.Body.Close()

	bob := newClient(t, srv)
	bob.mintCSRF()
	bob.signup("bob", "password123")

	update := map[string]any{
		"description": "Hijacked",
		"amount":      99.0,
		"type":        "income",
		"date":        "2024-02-02",
		"idCategory":  1,
	}
	resp = bob.doJSON(http.MethodPut, "/api/transactions/1", update)
	resp.Body.Close()
	// Not-owned answers not-found, never forbidden, and leaks no data
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Row unchanged under its owner
	var tx domain.Transaction
	require.NoError(t, db.First(&tx, created.ID).Error)
	assert.Equal(t, "Coffee", tx.Description)
	assert.Equal(t, userID(t, db, "alice"), tx.UserID)
}

func TestCrossUserDeleteReturnsNotFound(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	alice := newClient(t, srv)
	alice.mintCSRF()
	alice.signup("alice", "password123")
	resp := alice.postTransaction(coffeeFields("1"), "", nil, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	bob := newClient(t, srv)
	bob.mintCSRF()
	bob.signup("bob", "password123")

	resp = bob.doJSON(http.MethodDelete, "/api/transactions/1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Still there for the owner
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeleteIdempotentNotFound(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")
	resp := c.postTransaction(coffeeFields("1"), "", nil, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = c.doJSON(http.MethodDelete, "/api/transactions/1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deleting again yields the same not-found as a never-owned id
	resp = c.doJSON(http.MethodDelete, "/api/transactions/1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListScopedToOwner(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	alice := newClient(t, srv)
	alice.mintCSRF()
	alice.signup("alice", "password123")
	for i := 0; i < 2; i++ {
		resp := alice.postTransaction(coffeeFields("1"), "", nil, true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	bob := newClient(t, srv)
	bob.mintCSRF()
	bob.signup("bob", "password123")
	resp := bob.postTransaction(coffeeFields("1"), "", nil, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := alice.http.Get(srv.URL + "/api/transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Transactions []domain.Transaction `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Transactions, 2)
	aliceID := userID(t, db, "alice")
	for _, tx := range body.Transactions {
		assert.Equal(t, aliceID, tx.UserID)
	}
}

func TestClientSuppliedOwnerIgnored(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	// Crafted payload smuggling a foreign owner id
	fields := append(coffeeFields("1"), transactionField{"userId", "999"})
	resp := c.postTransaction(fields, "", nil, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tx := decodeTransaction(t, resp.Body)
	assert.Equal(t, userID(t, db, "alice"), tx.UserID)

	var stored domain.Transaction
	require.NoError(t, db.First(&stored, tx.ID).Error)
	assert.Equal(t, userID(t, db, "alice"), stored.UserID)
}

func TestReceiptUnsupportedMediaRejected(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	resp := c.postTransaction(coffeeFields("1"), "notes.txt", []byte("plain text, not a receipt"), true)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	// Rejected before anything was persisted
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReceiptPNGAccepted(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	// Minimal PNG signature is enough for content sniffing
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	resp := c.postTransaction(coffeeFields("1"), "receipt.png", png, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	tx := decodeTransaction(t, resp.Body)
	require.NotEmpty(t, tx.ReceiptPath)
	_, err := os.Stat(tx.ReceiptPath)
	assert.NoError(t, err, "stored receipt file should exist")
}

func TestExpiredSessionRejected(t *testing.T) {
	srv, _ := newTestApp(t)

	c := newClient(t, srv)
	c.mintCSRF()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/transactions", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "token", Value: "tampered.or.expired"})
	resp, err := c.http.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	srv, _ := newTestApp(t)

	resp, err := http.Get(srv.URL + "/api/csrf-token")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestDisallowedOriginRejected(t *testing.T) {
	srv, _ := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/csrf-token", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSessionCookieFlags(t *testing.T) {
	srv, _ := newTestApp(t)

	c := newClient(t, srv)
	creds := map[string]string{"username": "alice", "password": "password123"}
	resp := c.doJSON(http.MethodPost, "/api/auth/register", creds)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = c.doJSON(http.MethodPost, "/api/auth/login", creds)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "token" {
			sessionCookie = ck
		}
	}
	require.NotNil(t, sessionCookie, "login must set the session cookie")
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, sessionCookie.SameSite)
}

func TestCategoryCRUD(t *testing.T) {
	srv, _ := newTestApp(t)

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	resp := c.doJSON(http.MethodPost, "/api/categories", map[string]string{"name": "Food"})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate name rejected
	resp = c.doJSON(http.MethodPost, "/api/categories", map[string]string{"name": "Food"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.doJSON(http.MethodPut, "/api/categories/1", map[string]string{"name": "Groceries"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listResp, err := c.http.Get(srv.URL + "/api/categories")
	require.NoError(t, err)
	var listBody struct {
		Categories []domain.Category `json:"categories"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listBody))
	listResp.Body.Close()
	require.Len(t, listBody.Categories, 1)
	assert.Equal(t, "Groceries", listBody.Categories[0].Name)

	resp = c.doJSON(http.MethodDelete, "/api/categories/1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = c.doJSON(http.MethodDelete, "/api/categories/1", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidationRejectsBadPayloads(t *testing.T) {
	srv, db := newTestApp(t)
	seedCategory(t, db, "Food")

	c := newClient(t, srv)
	c.mintCSRF()
	c.signup("alice", "password123")

	cases := []struct {
		name   string
		fields []transactionField
	}{
		{"missing description", []transactionField{{"amount", "4.50"}, {"type", "expense"}, {"date", "2024-01-01"}, {"idCategory", "1"}}},
		{"negative amount", []transactionField{{"description", "Coffee"}, {"amount", "-1"}, {"type", "expense"}, {"date", "2024-01-01"}, {"idCategory", "1"}}},
		{"bad type", []transactionField{{"description", "Coffee"}, {"amount", "4.50"}, {"type", "loan"}, {"date", "2024-01-01"}, {"idCategory", "1"}}},
		{"bad date", []transactionField{{"description", "Coffee"}, {"amount", "4.50"}, {"type", "expense"}, {"date", "01/01/2024"}, {"idCategory", "1"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := c.postTransaction(tc.fields, "", nil, true)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}
