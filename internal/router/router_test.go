package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/contactbook/internal/auth"
	"github.com/patric-chuzhbe/contactbook/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactbook/internal/db/storage"
	"github.com/patric-chuzhbe/contactbook/internal/ipchecker"
	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/mockstorage"
	"github.com/patric-chuzhbe/contactbook/internal/passhash"
	"github.com/patric-chuzhbe/contactbook/internal/service"
)

var testSigningKey = []byte("router-test-signing-key")

type mockAuth struct {
	userID int64
}

func (m *mockAuth) AuthenticateUser(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), auth.UserIDKey, m.userID)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

type initOption func(*initOptions)

type initOptions struct {
	mockAuth      *mockAuth
	mockStorage   storage.Storage
	trustedSubnet string
}

func withMockStorage(db storage.Storage) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

func withMockAuth(userID int64) initOption {
	return func(options *initOptions) {
		options.mockAuth = &mockAuth{userID: userID}
	}
}

func withTrustedSubnet(subnet string) initOption {
	return func(options *initOptions) {
		options.trustedSubnet = subnet
	}
}

func must(t *testing.T, err error) {
	if t != nil {
		require.NoError(t, err)
	} else if err != nil {
		panic(err)
	}
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) (*httptest.Server, *chi.Mux) {
	options := &initOptions{trustedSubnet: "127.0.0.0/8"}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var db storage.Storage
	if options.mockStorage != nil {
		db = options.mockStorage
	} else {
		memory, err := memorystorage.New()
		must(t, err)
		db = memory
	}

	theAuth := auth.New(testSigningKey, time.Minute)
	var authMiddleware authenticator = theAuth
	if options.mockAuth != nil {
		authMiddleware = options.mockAuth
	}

	guard, err := ipchecker.New(options.trustedSubnet, ipchecker.WithProxyHeaders(true))
	must(t, err)

	theRouter := New(
		service.New(db, passhash.New(bcrypt.MinCost), theAuth),
		authMiddleware,
		guard,
	)

	must(t, logger.Init("debug"))

	server := httptest.NewServer(theRouter)
	if t != nil {
		t.Cleanup(server.Close)
	}

	return server, theRouter
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type authData struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func signupUser(t *testing.T, serverURL, email string) authData {
	t.Helper()
	var result envelope
	resp, err := resty.New().R().
		SetBody(map[string]string{"name": "Test User", "email": email, "password": "secret"}).
		SetResult(&result).
		Post(serverURL + "/user/signup")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	var data authData
	require.NoError(t, json.Unmarshal(result.Data, &data))
	return data
}

func TestPostUsersignup(t *testing.T) {
	server, _ := setupTestRouter(t)

	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "positive",
			body:         `{"name":"Ann","email":"ann@example.com","password":"secret"}`,
			expectedCode: http.StatusOK,
			expectedMsg:  "User signup complete",
		},
		{
			name:         "duplicate email",
			body:         `{"name":"Ann","email":"ann@example.com","password":"secret"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Email already registered",
		},
		{
			name:         "blank name",
			body:         `{"email":"bob@example.com","password":"secret"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Name cannot be left blank",
		},
		{
			name:         "invalid email",
			body:         `{"name":"Bob","email":"bob","password":"secret"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Email is not valid",
		},
		{
			name:         "blank password",
			body:         `{"name":"Bob","email":"bob@example.com"}`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Password cannot be left blank",
		},
		{
			name:         "malformed json",
			body:         `{"name":`,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result envelope
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(tt.body).
				SetResult(&result).
				SetError(&result).
				Post(server.URL + "/user/signup")
			require.NoError(t, err)

			assert.Equal(t, tt.expectedCode, resp.StatusCode())
			assert.Equal(t, tt.expectedMsg, result.Message)
			if tt.expectedCode != http.StatusOK {
				assert.JSONEq(t, `{}`, string(result.Data))
			}
		})
	}
}

func TestSignupLoginProfileFlow(t *testing.T) {
	server, _ := setupTestRouter(t)

	registered := signupUser(t, server.URL, "flow@example.com")
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "flow@example.com", registered.User.Email)

	t.Run("login", func(t *testing.T) {
		cases := []struct {
			body         string
			expectedCode int
			expectedMsg  string
		}{
			{`{"email":"flow@example.com","password":"secret"}`, http.StatusOK, "Login successful"},
			{`{"email":"flow@example.com","password":"wrong"}`, http.StatusUnauthorized, "Invalid password"},
			{`{"email":"nobody@example.com","password":"secret"}`, http.StatusNotFound, "Email not registered"},
			{`{"email":"","password":"secret"}`, http.StatusBadRequest, "Email is not valid"},
		}
		for _, c := range cases {
			var result envelope
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(c.body).
				SetResult(&result).
				SetError(&result).
				Post(server.URL + "/user/login")
			require.NoError(t, err)
			assert.Equal(t, c.expectedCode, resp.StatusCode(), c.body)
			assert.Equal(t, c.expectedMsg, result.Message, c.body)
		}
	})

	t.Run("profile with token", func(t *testing.T) {
		var result envelope
		resp, err := resty.New().R().
			SetAuthToken(registered.AccessToken).
			SetResult(&result).
			Get(server.URL + "/user")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, "User detail", result.Message)
		assert.JSONEq(
			t,
			fmt.Sprintf(`{"id":%d,"name":"Test User","email":"flow@example.com"}`, registered.User.ID),
			string(result.Data),
		)
	})

	t.Run("profile without token", func(t *testing.T) {
		resp, err := resty.New().R().Get(server.URL + "/user")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
		assert.JSONEq(t, `{"message":"Missing or invalid token","data":{}}`, resp.String())
	})

	t.Run("profile with a token of a vanished user", func(t *testing.T) {
		token, err := auth.New(testSigningKey, time.Minute).BuildJWTString(9999)
		require.NoError(t, err)

		resp, err := resty.New().R().SetAuthToken(token).Get(server.URL + "/user")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode())
		assert.JSONEq(t, `{"message":"User not found","data":{}}`, resp.String())
	})
}

func TestContacts(t *testing.T) {
	server, _ := setupTestRouter(t)

	owner := signupUser(t, server.URL, "owner@example.com")
	stranger := signupUser(t, server.URL, "stranger@example.com")

	client := resty.New()

	t.Run("create validation", func(t *testing.T) {
		resp, err := client.R().SetAuthToken(owner.AccessToken).
			SetHeader("Content-Type", "application/json").
			SetBody(`{"phone":"555"}`).
			Post(server.URL + "/contact")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.JSONEq(t, `{"message":"Name is required","data":{}}`, resp.String())

		resp, err = client.R().SetAuthToken(owner.AccessToken).
			SetHeader("Content-Type", "application/json").
			SetBody(`{"name":"Bob"}`).
			Post(server.URL + "/contact")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
		assert.JSONEq(t, `{"message":"Phone is required","data":{}}`, resp.String())
	})

	t.Run("create returns the full record", func(t *testing.T) {
		resp, err := client.R().SetAuthToken(owner.AccessToken).
			SetHeader("Content-Type", "application/json").
			SetBody(`{"name":"Bob","phone":"555-0100","email":"bob@example.com"}`).
			Post(server.URL + "/contact")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.JSONEq(
			t,
			`{"message":"Contact added","data":{"id":1,"name":"Bob","email":"bob@example.com","phone":"555-0100","address":null,"country":null}}`,
			resp.String(),
		)
	})

	for i := 2; i <= 25; i++ {
		resp, err := client.R().SetAuthToken(owner.AccessToken).
			SetBody(map[string]string{"name": "Person " + strconv.Itoa(i), "phone": "100-" + strconv.Itoa(i)}).
			Post(server.URL + "/contact")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
	}
	resp, err := client.R().SetAuthToken(stranger.AccessToken).
		SetBody(map[string]string{"name": "Secret", "phone": "000"}).
		Post(server.URL + "/contact")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	type listData struct {
		List []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"list"`
		HasNext bool  `json:"has_next"`
		HasPrev bool  `json:"has_prev"`
		Page    int   `json:"page"`
		Pages   int   `json:"pages"`
		PerPage int   `json:"per_page"`
		Total   int64 `json:"total"`
	}

	list := func(t *testing.T, token string, query map[string]string) (int, envelope, listData) {
		var result envelope
		resp, err := client.R().SetAuthToken(token).
			SetQueryParams(query).
			SetResult(&result).
			SetError(&result).
			Get(server.URL + "/contact")
		require.NoError(t, err)

		var data listData
		if resp.StatusCode() == http.StatusOK {
			require.NoError(t, json.Unmarshal(result.Data, &data))
		}
		return resp.StatusCode(), result, data
	}

	t.Run("pages of 10", func(t *testing.T) {
		expectations := []struct {
			page     string
			items    int
			hasNext  bool
			hasPrev  bool
			firstID  int64
			lastPage bool
		}{
			{page: "1", items: 10, hasNext: true, hasPrev: false, firstID: 25},
			{page: "2", items: 10, hasNext: true, hasPrev: true, firstID: 15},
			{page: "3", items: 5, hasNext: false, hasPrev: true, firstID: 5},
		}
		for _, e := range expectations {
			code, result, data := list(t, owner.AccessToken, map[string]string{"page": e.page, "limit": "10"})
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, "Contact list", result.Message)
			require.Len(t, data.List, e.items)
			assert.Equal(t, e.firstID, data.List[0].ID)
			assert.Equal(t, e.hasNext, data.HasNext)
			assert.Equal(t, e.hasPrev, data.HasPrev)
			assert.Equal(t, 3, data.Pages)
			assert.Equal(t, 10, data.PerPage)
			assert.Equal(t, int64(25), data.Total)
		}
	})

	t.Run("defaults for missing or non-numeric paging", func(t *testing.T) {
		code, _, data := list(t, owner.AccessToken, map[string]string{"page": "abc", "limit": "x"})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 1, data.Page)
		assert.Equal(t, 10, data.PerPage)
		assert.Len(t, data.List, 10)
	})

	t.Run("out of range page is empty", func(t *testing.T) {
		code, result, data := list(t, owner.AccessToken, map[string]string{"page": "9"})
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, string(result.Data), `"list":[]`)
		assert.Empty(t, data.List)
		assert.Equal(t, int64(25), data.Total)
		assert.False(t, data.HasNext)
		assert.True(t, data.HasPrev)
	})

	t.Run("invalid paging", func(t *testing.T) {
		code, result, _ := list(t, owner.AccessToken, map[string]string{"page": "0"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Page must be a positive integer", result.Message)

		code, result, _ = list(t, owner.AccessToken, map[string]string{"limit": "-1"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Limit must be a positive integer", result.Message)
	})

	t.Run("sorting and filtering", func(t *testing.T) {
		_, _, data := list(t, owner.AccessToken, map[string]string{"sort_by": "oldest", "limit": "1"})
		require.Len(t, data.List, 1)
		assert.Equal(t, "Bob", data.List[0].Name)

		_, _, data = list(t, owner.AccessToken, map[string]string{"name": "PERSON 1", "limit": "50"})
		assert.Equal(t, int64(10), data.Total)
		for _, item := range data.List {
			assert.Contains(t, item.Name, "Person 1")
		}

		_, _, data = list(t, owner.AccessToken, map[string]string{"phone": "100-25"})
		require.Len(t, data.List, 1)
		assert.Equal(t, "Person 25", data.List[0].Name)
	})

	t.Run("scoped to the owner", func(t *testing.T) {
		_, _, data := list(t, stranger.AccessToken, map[string]string{"limit": "50"})
		require.Len(t, data.List, 1)
		assert.Equal(t, "Secret", data.List[0].Name)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := client.R().Get(server.URL + "/contact")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}

func TestPostContactForGzip(t *testing.T) {
	server, _ := setupTestRouter(t)
	owner := signupUser(t, server.URL, "gzip@example.com")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(`{"name":"Zipped","phone":"123"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var result envelope
	resp, err := resty.New().R().
		SetAuthToken(owner.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Content-Encoding", "gzip").
		SetHeader("Accept-Encoding", "gzip").
		SetBody(buf.Bytes()).
		SetResult(&result).
		Post(server.URL + "/contact")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, "Contact added", result.Message)
	assert.Contains(t, string(result.Data), `"name":"Zipped"`)
}

func TestGetPing(t *testing.T) {
	t.Run("storage is up", func(t *testing.T) {
		db := new(mockstorage.StorageMock)
		db.On("Ping", mock.Anything).Return(nil)
		_, r := setupTestRouter(t, withMockStorage(db))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"pong","data":{}}`, rec.Body.String())
	})

	t.Run("storage is down", func(t *testing.T) {
		db := new(mockstorage.StorageMock)
		db.On("Ping", mock.Anything).Return(errors.New("connection refused"))
		_, r := setupTestRouter(t, withMockStorage(db))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Internal server error","data":{}}`, rec.Body.String())
	})
}

func TestGetContactStorageError(t *testing.T) {
	db := new(mockstorage.StorageMock)
	db.On("FindContacts", mock.Anything, mock.Anything).Return(nil, int64(0), errors.New("db error"))
	_, r := setupTestRouter(t, withMockStorage(db), withMockAuth(7))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contact", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Internal server error","data":{}}`, rec.Body.String())
	db.AssertExpectations(t)
}

func TestGetApiinternalstats(t *testing.T) {
	db := &mockstorage.StorageMock{
		OnGetNumberOfUsers:    func(context.Context) (int64, error) { return 2, nil },
		OnGetNumberOfContacts: func(context.Context) (int64, error) { return 5, nil },
	}

	t.Run("trusted client", func(t *testing.T) {
		_, r := setupTestRouter(t, withMockStorage(db), withTrustedSubnet("10.0.0.0/8"))

		req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
		req.Header.Set("X-Real-IP", "10.20.30.40")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Internal stats","data":{"users":2,"contacts":5}}`, rec.Body.String())
	})

	t.Run("untrusted client", func(t *testing.T) {
		_, r := setupTestRouter(t, withMockStorage(db), withTrustedSubnet("10.0.0.0/8"))

		req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
		req.Header.Set("X-Real-IP", "192.168.0.1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no subnet configured", func(t *testing.T) {
		_, r := setupTestRouter(t, withMockStorage(db), withTrustedSubnet(""))

		req := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
		req.Header.Set("X-Real-IP", "10.20.30.40")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	_, r := setupTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not found","data":{}}`, rec.Body.String())
}
