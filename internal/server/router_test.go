package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/assignment-tracker/apiserver/config"
	"github.com/assignment-tracker/apiserver/internal/handlers"
	"github.com/assignment-tracker/apiserver/internal/services"
	"github.com/assignment-tracker/apiserver/internal/store"
	"github.com/assignment-tracker/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	tokens, err := handlers.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	memory := store.NewMemory()
	router := NewRouter(
		config.Config{},
		tokens,
		services.NewUserService(memory.Users()),
		services.NewTaskService(memory.Tasks()),
		nil,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiClient{t: t, server: srv}
}

func (c *apiClient) do(method, path, token string, body any) (int, []byte) {
	c.t.Helper()

	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(v)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *apiClient) login(username, password string) string {
	c.t.Helper()

	status, _ := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": username, "password": password})
	require.Equal(c.t, http.StatusCreated, status)

	status, body := c.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(c.t, http.StatusOK, status, string(body))

	var resp handlers.LoginResponse
	require.NoError(c.t, json.Unmarshal(body, &resp))
	require.NotEmpty(c.t, resp.Token)
	return resp.Token
}

func (c *apiClient) createTask(token string, body any) handlers.CreateTaskResponse {
	c.t.Helper()

	status, data := c.do(http.MethodPost, "/api/tasks", token, body)
	require.Equal(c.t, http.StatusCreated, status, string(data))

	var resp handlers.CreateTaskResponse
	require.NoError(c.t, json.Unmarshal(data, &resp))
	return resp
}

func (c *apiClient) listTasks(token string) []map[string]any {
	c.t.Helper()

	status, data := c.do(http.MethodGet, "/api/tasks", token, nil)
	require.Equal(c.t, http.StatusOK, status, string(data))

	var tasks []map[string]any
	require.NoError(c.t, json.Unmarshal(data, &tasks))
	return tasks
}

func TestRegister(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name   string
		body   any
		status int
		error  string
	}{
		{"missing password", map[string]string{"username": "laura"}, http.StatusBadRequest, "Username and password are required"},
		{"missing username", map[string]string{"password": "secret"}, http.StatusBadRequest, "Username and password are required"},
		{"short password", map[string]string{"username": "laura", "password": "1234"}, http.StatusBadRequest, "Password must be at least 5 characters long"},
		{"unknown field", map[string]string{"username": "laura", "password": "12345", "role": "admin"}, http.StatusBadRequest, "Invalid request body"},
		{"not json", "username=laura", http.StatusBadRequest, "Invalid request body"},
		{"five characters", map[string]string{"username": "laura", "password": "12345"}, http.StatusCreated, ""},
		{"duplicate", map[string]string{"username": "laura", "password": "67890"}, http.StatusBadRequest, "Username already exists"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := api.do(http.MethodPost, "/api/auth/register", "", tc.body)
			assert.Equal(t, tc.status, status, string(body))
			if tc.error != "" {
				assert.JSONEq(t, `{"error":"`+tc.error+`"}`, string(body))
				return
			}
			var resp handlers.RegisterResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, "laura", resp.Username)
			assert.NotEmpty(t, resp.UserID)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestLogin_EnumerationSafe(t *testing.T) {
	api := newAPI(t)
	api.login("laura", "correct-horse")

	wrongStatus, wrongBody := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "laura", "password": "nope!"})
	unknownStatus, unknownBody := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "ghost", "password": "nope!"})

	assert.Equal(t, http.StatusBadRequest, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, string(wrongBody), string(unknownBody))
	assert.JSONEq(t, `{"error":"Invalid username or password"}`, string(wrongBody))

	status, body := api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"username": "laura"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Username and password are required"}`, string(body))
}

func TestLogin_TokenWorksOnEveryProtectedRoute(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")
	created := api.createTask(token, map[string]string{"title": "Lab"})

	routes := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/auth/me", nil},
		{http.MethodGet, "/api/tasks", nil},
		{http.MethodPost, "/api/tasks", map[string]string{"title": "Another"}},
		{http.MethodPut, "/api/tasks/" + created.AssignmentID, map[string]string{"course": "CIS-486"}},
		{http.MethodPatch, "/api/tasks/" + created.AssignmentID + "/toggle", nil},
		{http.MethodDelete, "/api/tasks/" + created.AssignmentID, nil},
		{http.MethodPost, "/api/seed", nil},
		{http.MethodDelete, "/api/cleanup", nil},
	}
	for _, route := range routes {
		status, body := api.do(route.method, route.path, "", route.body)
		assert.Equal(t, http.StatusUnauthorized, status, "%s %s without token", route.method, route.path)
		assert.JSONEq(t, `{"error":"Access token required"}`, string(body))

		status, body = api.do(route.method, route.path, "forged.token.value", route.body)
		assert.Equal(t, http.StatusForbidden, status, "%s %s with bad token", route.method, route.path)
		assert.JSONEq(t, `{"error":"Invalid or expired token"}`, string(body))

		status, body = api.do(route.method, route.path, token, route.body)
		assert.Less(t, status, 300, "%s %s: %s", route.method, route.path, body)
	}
}

func TestMe_OmitsPasswordHash(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")

	status, body := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	var resp map[string]map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	user := resp["user"]
	assert.Equal(t, "laura", user["username"])
	assert.NotEmpty(t, user["_id"])
	assert.NotContains(t, string(body), "password")
}

func TestMe_UnknownUser(t *testing.T) {
	tokens, err := handlers.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)
	memory := store.NewMemory()
	srv := httptest.NewServer(NewRouter(config.Config{}, tokens,
		services.NewUserService(memory.Users()), services.NewTaskService(memory.Tasks()), nil))
	defer srv.Close()

	token, err := tokens.Issue(types.Identity{UserID: "65f1c2a9e4b0a1b2c3d4e5f6", Username: "ghost"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAndList(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")

	status, body := api.do(http.MethodPost, "/api/tasks", token, map[string]string{"course": "CIS-486"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Title is required"}`, string(body))

	status, _ = api.do(http.MethodPost, "/api/tasks", token, map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodPost, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.Empty(t, api.listTasks(token))

	first := api.createTask(token, map[string]string{"title": "X"})
	assert.Equal(t, "Assignment created successfully", first.Message)
	assert.Equal(t, first.AssignmentID, first.Assignment.ID)
	assert.Equal(t, "X", first.Assignment.Title)
	assert.Equal(t, "", first.Assignment.Course)
	assert.Equal(t, "laura", first.Assignment.CreatedBy)
	assert.Equal(t, "pending", first.Assignment.Status)

	second := api.createTask(token, map[string]string{"title": "Y", "course": "MG-395"})

	tasks := api.listTasks(token)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.AssignmentID, tasks[0]["_id"])
	assert.Equal(t, first.AssignmentID, tasks[1]["_id"])
	assert.Equal(t, "MG-395", tasks[0]["course"])
}

func TestUpdateAndDelete(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")
	created := api.createTask(token, map[string]string{"title": "Draft", "course": "CIS-486"})
	missing := "65f1c2a9e4b0a1b2c3d4e5f6"

	status, body := api.do(http.MethodPut, "/api/tasks/not-an-id", token, map[string]string{"title": "New"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Invalid assignment ID"}`, string(body))

	status, _ = api.do(http.MethodPut, "/api/tasks/"+missing, token, map[string]string{"title": "New"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(http.MethodPut, "/api/tasks/"+created.AssignmentID, token, map[string]string{"title": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Title cannot be empty"}`, string(body))

	status, body = api.do(http.MethodPut, "/api/tasks/"+created.AssignmentID, token, map[string]string{"title": "Final"})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Assignment updated successfully","modifiedCount":1}`, string(body))

	tasks := api.listTasks(token)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Final", tasks[0]["title"])
	assert.Equal(t, "CIS-486", tasks[0]["course"])
	assert.Equal(t, "laura", tasks[0]["updatedBy"])
	assert.NotEmpty(t, tasks[0]["updatedAt"])

	status, _ = api.do(http.MethodDelete, "/api/tasks/12345", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(http.MethodDelete, "/api/tasks/"+created.AssignmentID, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Assignment deleted successfully","deletedCount":1}`, string(body))

	status, _ = api.do(http.MethodDelete, "/api/tasks/"+created.AssignmentID, token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestToggle_RoundTrip(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")
	created := api.createTask(token, map[string]string{"title": "Quiz"})
	path := "/api/tasks/" + created.AssignmentID + "/toggle"

	status, body := api.do(http.MethodPatch, path, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Assignment marked as completed","completed":true,"status":"completed"}`, string(body))

	status, body = api.do(http.MethodPatch, path, token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Assignment marked as pending","completed":false,"status":"pending"}`, string(body))

	status, _ = api.do(http.MethodPatch, "/api/tasks/bad/toggle", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(http.MethodPatch, "/api/tasks/65f1c2a9e4b0a1b2c3d4e5f6/toggle", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestToggle_ConcurrentCallsInvertOncePerCall(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")
	created := api.createTask(token, map[string]string{"title": "Race"})
	path := "/api/tasks/" + created.AssignmentID + "/toggle"

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := api.do(http.MethodPatch, path, token, nil)
			assert.Equal(t, http.StatusOK, status)
		}()
	}
	wg.Wait()

	tasks := api.listTasks(token)
	require.Len(t, tasks, 1)
	assert.Equal(t, n%2 == 1, tasks[0]["completed"])
	if n%2 == 1 {
		assert.Equal(t, "completed", tasks[0]["status"])
	} else {
		assert.Equal(t, "pending", tasks[0]["status"])
	}
}

func TestSeedAndCleanup(t *testing.T) {
	api := newAPI(t)
	token := api.login("laura", "secret1")

	for i := 0; i < 4; i++ {
		api.createTask(token, map[string]string{"title": "old"})
	}

	for round := 0; round < 2; round++ {
		status, body := api.do(http.MethodPost, "/api/seed", token, nil)
		require.Equal(t, http.StatusOK, status)
		var seeded handlers.SeedResponse
		require.NoError(t, json.Unmarshal(body, &seeded))
		assert.Equal(t, 3, seeded.InsertedCount)

		tasks := api.listTasks(token)
		require.Len(t, tasks, 3)
		for _, task := range tasks {
			assert.Equal(t, "laura", task["createdBy"])
		}
	}

	status, body := api.do(http.MethodDelete, "/api/cleanup", token, nil)
	require.Equal(t, http.StatusOK, status)
	var cleaned handlers.DeleteTaskResponse
	require.NoError(t, json.Unmarshal(body, &cleaned))
	assert.EqualValues(t, 3, cleaned.DeletedCount)
	assert.Empty(t, api.listTasks(token))

	status, body = api.do(http.MethodDelete, "/api/cleanup", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &cleaned))
	assert.EqualValues(t, 0, cleaned.DeletedCount)
}

func TestStaticAndHealth(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Assignment Tracker")

	status, body = api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}
