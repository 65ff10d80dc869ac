package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/floorplan/internal/config"
	"github.com/mansoorceksport/floorplan/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testJWTSecret = "test-secret-key-123"

// setupTestDB spins up a fresh MongoDB container and returns the database
// along with a cleanup function.
func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}
	ctx := context.Background()

	mongodbContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	endpoint, err := mongodbContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	return mongoClient.Database("test_db"), func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect mongo: %v", err)
		}
		if err := mongodbContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}
}

type testEnv struct {
	app *fiber.App
	db  *mongo.Database
	t   *testing.T
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanupDB := setupTestDB(t)
	t.Cleanup(cleanupDB)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	storage, err := repository.NewLocalDiskStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.MaxUploadSizeMB = 10
	cfg.Server.IdempotencyTTL = time.Hour
	cfg.JWT.Secret = testJWTSecret
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.Processing.ImageMaxPixels = 1_000_000
	cfg.Processing.ArchiveMaxEntries = 50
	cfg.Processing.ArchiveMaxBytes = 1 << 20
	cfg.OTEL.ServiceName = "floorplan-test"

	app := NewApp(AppDependencies{
		Config:      cfg,
		MongoDB:     db,
		RedisClient: redisClient,
		Storage:     storage,
	})
	return &testEnv{app: app, db: db, t: t}
}

// envelope is the {"success": ..., "data": ...} response body
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(req *http.Request, token string) *http.Response {
	e.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	return resp
}

func (e *testEnv) json(method, path, token string, body interface{}) *http.Response {
	e.t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, path, bodyReader)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, token)
}

func (e *testEnv) upload(path, token, filename, contentType string, content []byte) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(e.t, err)
	_, err = part.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(req, token)
}

// decode reads an envelope and unmarshals its data into out when non-nil
func decode(t *testing.T, resp *http.Response, out interface{}) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}
