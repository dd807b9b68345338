package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/questai/mongodb-tools-api/internal/auth"
	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/documents"
	"github.com/questai/mongodb-tools-api/internal/handlers"
	"github.com/questai/mongodb-tools-api/internal/logger"
	"github.com/questai/mongodb-tools-api/internal/platform"
	"github.com/questai/mongodb-tools-api/test/fixtures"
)

const (
	testToken      = "caller-token"
	testConnString = "mongodb://db.example:27017"
)

type fakeBackend struct {
	mu sync.Mutex

	databases   []string
	collections []string
	insertedIDs []any
	found       []bson.D
	update      documents.UpdateResult
	deleted     int64
	err         error

	database, collection string
	docs                 []any
	query                documents.FindQuery
	filter, change       any
	multi, upsert        bool
	closed               int
}

func (f *fakeBackend) record(database, collection string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.database, f.collection = database, collection
}

func (f *fakeBackend) ListDatabases(context.Context) ([]string, error) {
	return f.databases, f.err
}

func (f *fakeBackend) ListCollections(_ context.Context, database string) ([]string, error) {
	f.record(database, "")
	return f.collections, f.err
}

func (f *fakeBackend) InsertMany(_ context.Context, database, collection string, docs []any) ([]any, error) {
	f.record(database, collection)
	f.docs = docs
	return f.insertedIDs, f.err
}

func (f *fakeBackend) Find(_ context.Context, database, collection string, query documents.FindQuery) ([]bson.D, error) {
	f.record(database, collection)
	f.query = query
	return f.found, f.err
}

func (f *fakeBackend) Update(_ context.Context, database, collection string, filter, update any, multi, upsert bool) (documents.UpdateResult, error) {
	f.record(database, collection)
	f.filter, f.change, f.multi, f.upsert = filter, update, multi, upsert
	return f.update, f.err
}

func (f *fakeBackend) Delete(_ context.Context, database, collection string, filter any, multi bool) (int64, error) {
	f.record(database, collection)
	f.filter, f.multi = filter, multi
	return f.deleted, f.err
}

func (f *fakeBackend) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

type fakeDialer struct {
	backend *fakeBackend
	err     error
	dialed  []string
}

func (d *fakeDialer) Dial(_ context.Context, connectionString string) (documents.Backend, error) {
	d.dialed = append(d.dialed, connectionString)
	if d.err != nil {
		return nil, d.err
	}
	return d.backend, nil
}

type testEnv struct {
	router   *gin.Engine
	backend  *fakeBackend
	dialer   *fakeDialer
	platform *fixtures.PlatformStub
}

func setupDocumentsRouter(t *testing.T, backend *fakeBackend) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &fixtures.PlatformStub{
		ConnectionStrings: map[string]string{fixtures.TestProject: testConnString},
	}
	server := fixtures.NewPlatformServer(t, stub)
	client := platform.NewClient(logger.Nop(), server.URL, 5*time.Second)

	dialer := &fakeDialer{backend: backend}
	service := documents.NewService(logger.Nop(), client, dialer)
	handler := documents.NewHandler(logger.Nop(), service)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(constant.ContextKeyToken, &auth.TokenData{
			Email:       fixtures.TestEmail,
			ID:          fixtures.TestUserID,
			AccessToken: testToken,
		})
		c.Next()
	})
	handler.RegisterRoutes(api)

	return &testEnv{router: router, backend: backend, dialer: dialer, platform: stub}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func withProject(path string) string {
	return path + "?mongo_project=" + fixtures.TestProject
}

func TestListDatabases(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{databases: []string{"admin", "shop"}})

	w := env.do(t, http.MethodGet, withProject("/api/v1/databases"), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["admin","shop"]`, w.Body.String())
	assert.Equal(t, []string{testConnString}, env.dialer.dialed)
	assert.Equal(t, []string{testToken}, env.platform.Tokens(), "caller token is forwarded to the platform")
	assert.Equal(t, 1, env.backend.closed)
}

func TestListDatabases_Empty(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{})

	w := env.do(t, http.MethodGet, withProject("/api/v1/databases"), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestListCollections(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{collections: []string{"orders"}})

	w := env.do(t, http.MethodGet, withProject("/api/v1/databases/shop/collections"), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["orders"]`, w.Body.String())
	assert.Equal(t, "shop", env.backend.database)
}

func TestInsertDocuments(t *testing.T) {
	oid, err := bson.ObjectIDFromHex(hexID)
	require.NoError(t, err)
	env := setupDocumentsRouter(t, &fakeBackend{insertedIDs: []any{oid, "custom-id"}})

	w := env.do(t, http.MethodPost, withProject("/api/v1/databases/shop/collections/orders/documents/insert"),
		`{"documents":[{"item":"pen","qty":3},{"_id":"custom-id","price":1.5}]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"inserted_ids":["`+hexID+`","custom-id"]}`, w.Body.String())
	assert.Equal(t, "orders", env.backend.collection)
	require.Len(t, env.backend.docs, 2)
	assert.Equal(t, map[string]any{"item": "pen", "qty": int64(3)}, env.backend.docs[0], "integers stay integers")
	assert.Equal(t, map[string]any{"_id": "custom-id", "price": 1.5}, env.backend.docs[1])
}

func TestQueryDocuments(t *testing.T) {
	oid, err := bson.ObjectIDFromHex(hexID)
	require.NoError(t, err)
	env := setupDocumentsRouter(t, &fakeBackend{
		found: []bson.D{{{Key: "_id", Value: oid}, {Key: "item", Value: "pen"}}},
	})

	w := env.do(t, http.MethodPost, withProject("/api/v1/databases/shop/collections/orders/documents/find"),
		`{"filter":{"_id":"`+hexID+`","qty":{"$gt":2}},"limit":5,"skip":1,"sort":[["item",-1]]}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"_id":"`+hexID+`","item":"pen"}]`, w.Body.String())
	assert.Equal(t, documents.FindQuery{
		Filter: map[string]any{"_id": oid, "qty": map[string]any{"$gt": int64(2)}},
		Limit:  5,
		Skip:   1,
		Sort:   []documents.SortKey{{Field: "item", Direction: -1}},
	}, env.backend.query)
}

func TestQueryDocuments_Defaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "no body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupDocumentsRouter(t, &fakeBackend{})

			w := env.do(t, http.MethodPost, withProject("/api/v1/databases/shop/collections/orders/documents/find"), tt.body)

			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `[]`, w.Body.String())
			assert.Equal(t, documents.FindQuery{
				Filter: map[string]any{},
				Limit:  10,
				Skip:   0,
				Sort:   []documents.SortKey{{Field: "_id", Direction: 1}},
			}, env.backend.query)
		})
	}
}

func TestQueryDocuments_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero limit", body: `{"limit":0}`},
		{name: "negative skip", body: `{"skip":-1}`},
		{name: "bad sort direction", body: `{"sort":[["item",2]]}`},
		{name: "malformed json", body: `{"filter":`},
		{name: "filter not an object", body: `{"filter":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupDocumentsRouter(t, &fakeBackend{})

			w := env.do(t, http.MethodPost, withProject("/api/v1/databases/shop/collections/orders/documents/find"), tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "bad_request", body.Error)
			assert.Empty(t, env.dialer.dialed, "no connection is opened for invalid requests")
		})
	}
}

func TestUpdateDocuments(t *testing.T) {
	oid, err := bson.ObjectIDFromHex(hexID)
	require.NoError(t, err)
	env := setupDocumentsRouter(t, &fakeBackend{update: documents.UpdateResult{MatchedCount: 1, ModifiedCount: 1}})

	w := env.do(t, http.MethodPatch, withProject("/api/v1/databases/shop/collections/orders/documents"),
		`{"filter":{"_id":"`+hexID+`"},"update":{"$set":{"qty":4}},"upsert":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"matched_count":1,"modified_count":1}`, w.Body.String())
	assert.Equal(t, map[string]any{"_id": oid}, env.backend.filter)
	assert.Equal(t, map[string]any{"$set": map[string]any{"qty": int64(4)}}, env.backend.change)
	assert.False(t, env.backend.multi)
	assert.True(t, env.backend.upsert)
}

func TestDeleteDocuments(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{deleted: 3})

	w := env.do(t, http.MethodDelete, withProject("/api/v1/databases/shop/collections/orders/documents"),
		`{"filter":{"status":"stale"},"multi":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted_count":3}`, w.Body.String())
	assert.Equal(t, map[string]any{"status": "stale"}, env.backend.filter)
	assert.True(t, env.backend.multi)
	assert.Equal(t, 1, env.backend.closed)
}

func TestDocuments_MissingProject(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{})

	w := env.do(t, http.MethodGet, "/api/v1/databases", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"mongo_project query parameter is required"}`, w.Body.String())
}

func TestDocuments_BackendErrors(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		path            string
		body            string
		expectedMessage string
	}{
		{
			name:            "list databases",
			method:          http.MethodGet,
			path:            "/api/v1/databases",
			expectedMessage: "Could not query documents: boom",
		},
		{
			name:            "list collections",
			method:          http.MethodGet,
			path:            "/api/v1/databases/shop/collections",
			expectedMessage: "Could not query documents: boom",
		},
		{
			name:            "insert",
			method:          http.MethodPost,
			path:            "/api/v1/databases/shop/collections/orders/documents/insert",
			body:            `{"documents":[{"a":1}]}`,
			expectedMessage: "Could not insert documents: boom",
		},
		{
			name:            "find",
			method:          http.MethodPost,
			path:            "/api/v1/databases/shop/collections/orders/documents/find",
			body:            `{}`,
			expectedMessage: "Could not query documents: boom",
		},
		{
			name:            "update",
			method:          http.MethodPatch,
			path:            "/api/v1/databases/shop/collections/orders/documents",
			body:            `{"update":{"$set":{"a":1}}}`,
			expectedMessage: "Could not update documents: boom",
		},
		{
			name:            "delete",
			method:          http.MethodDelete,
			path:            "/api/v1/databases/shop/collections/orders/documents",
			body:            `{}`,
			expectedMessage: "Could not delete documents: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupDocumentsRouter(t, &fakeBackend{err: errors.New("boom")})

			w := env.do(t, tt.method, withProject(tt.path), tt.body)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "internal_error", body.Error)
			assert.Equal(t, tt.expectedMessage, body.Message)
			assert.Equal(t, 1, env.backend.closed, "connection is closed even on failure")
		})
	}
}

func TestDocuments_UnknownProject(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{})

	w := env.do(t, http.MethodGet, "/api/v1/databases?mongo_project=unknown", "")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "Could not query documents: unable to get mongodb details: (404)")
	assert.Empty(t, env.dialer.dialed)
}

func TestDocuments_DialFailure(t *testing.T) {
	env := setupDocumentsRouter(t, &fakeBackend{})
	env.dialer.err = documents.ErrFailedToConnect

	w := env.do(t, http.MethodGet, withProject("/api/v1/databases"), "")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Could not query documents: failed to connect to mongo")
	assert.Equal(t, 0, env.backend.closed)
}
