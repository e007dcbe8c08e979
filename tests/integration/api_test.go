// Package integration wires the real service stack (postgres store, LRU
// cache, base62 generator, chi router) against a containerized database and
// drives it through the public HTTP surface.
package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	myhttp "github.com/Rohit-Yadav-47/url-shorter/internal/api/http"
	"github.com/Rohit-Yadav-47/url-shorter/internal/cache"
	"github.com/Rohit-Yadav-47/url-shorter/internal/config"
	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
	"github.com/Rohit-Yadav-47/url-shorter/internal/events"
	"github.com/Rohit-Yadav-47/url-shorter/internal/service"
	"github.com/Rohit-Yadav-47/url-shorter/internal/shortcode"
	pgstore "github.com/Rohit-Yadav-47/url-shorter/internal/storage/postgres"
	"github.com/Rohit-Yadav-47/url-shorter/tests"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	shortCodeLength = 7
	cacheCapacity   = 64

	seedCode     = "go4it42"
	seedOriginal = "https://go.dev/blog/error-handling"
)

type APISuite struct {
	suite.Suite
	db     *sqlx.DB
	store  *pgstore.Store
	logger *httplog.Logger
	server *httptest.Server
	e      *httpexpect.Expect
}

func (suite *APISuite) SetupSuite() {
	ctx := context.Background()
	t := suite.T()

	req := testcontainers.ContainerRequest{
		Image: "postgres:16-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "shorter",
			"POSTGRES_PASSWORD": "shorter",
			"POSTGRES_DB":       "shorter",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx), "terminate postgres container")
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "resolve container host")
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err, "resolve container port")

	dsn := config.Postgres{
		Host:     host,
		Port:     port.Int(),
		User:     "shorter",
		Password: "shorter",
		DB:       "shorter",
		SSLMode:  "disable",
	}.DSN()

	suite.db, err = sqlx.Connect("pgx", dsn)
	require.NoError(t, err, "connect to database")
	t.Cleanup(func() {
		require.NoError(t, suite.db.Close(), "close database")
	})

	root, err := tests.FindProjectRoot()
	require.NoError(t, err, "locate project root")

	m, err := migrate.New("file://"+filepath.Join(root, "migrations"), dsn)
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
	t.Cleanup(func() {
		require.NoError(t, m.Down(), "revert migrations")
	})

	suite.store = pgstore.NewStore(suite.db)
	suite.logger = httplog.NewLogger("", httplog.Options{Writer: io.Discard})
}

// SetupSubTest rebuilds the service stack with an empty cache so cached
// entries never leak between subtests.
func (suite *APISuite) SetupSubTest() {
	t := suite.T()

	lru, err := cache.New[string, entity.CachedURL](cacheCapacity)
	require.NoError(t, err, "create cache")

	gen, err := shortcode.NewGenerator(shortCodeLength)
	require.NoError(t, err, "create short code generator")

	urlSvc := service.NewURLService(suite.store, lru, gen)

	suite.server = httptest.NewServer(myhttp.NewRouter(suite.logger, urlSvc, events.NopPublisher{}))
	suite.e = httpexpect.Default(t, suite.server.URL)
}

func (suite *APISuite) TearDownSubTest() {
	suite.server.Close()

	_, err := suite.db.ExecContext(context.Background(), `TRUNCATE TABLE urls RESTART IDENTITY CASCADE`)
	require.NoError(suite.T(), err, "clean urls table")
}

func (suite *APISuite) seed(expiresAt *time.Time) *entity.URL {
	suite.T().Helper()

	url := &entity.URL{
		ShortCode:   seedCode,
		OriginalURL: seedOriginal,
		CreatedAt:   time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	require.NoError(suite.T(), suite.store.Put(context.Background(), url), "seed url record")

	return url
}

func (suite *APISuite) visitCount(shortCode string) int64 {
	suite.T().Helper()

	url, err := suite.store.Get(context.Background(), shortCode)
	require.NoError(suite.T(), err, "read url record")

	return url.VisitCount
}

func (suite *APISuite) TestPing() {
	suite.Run("answers pong", func() {
		suite.e.GET("/api/v1/ping").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *APISuite) TestShortenURL() {
	const path = "/api/v1/shorten"

	suite.Run("generates a code of the configured length", func() {
		data := suite.e.POST(path).
			WithJSON(map[string]string{"url": seedOriginal}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object()

		data.HasValue("url", seedOriginal)
		data.NotContainsKey("expires_at")

		code := data.Value("short_code").String().Raw()
		suite.Len(code, shortCodeLength)

		url, err := suite.store.Get(context.Background(), code)
		require.NoError(suite.T(), err)
		suite.Equal(seedOriginal, url.OriginalURL)
		suite.Zero(url.VisitCount)
		suite.Nil(url.ExpiresAt)
	})

	suite.Run("honors a custom code once", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":         seedOriginal,
				"custom_code": seedCode,
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object().
			HasValue("short_code", seedCode).
			HasValue("url", seedOriginal)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":         "https://go.dev/doc/faq",
				"custom_code": seedCode,
			}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("stores the expiry", func() {
		data := suite.e.POST(path).
			WithJSON(map[string]any{
				"url":         seedOriginal,
				"expiry_days": 30,
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object()

		data.ContainsKey("expires_at")

		code := data.Value("short_code").String().Raw()

		url, err := suite.store.Get(context.Background(), code)
		require.NoError(suite.T(), err)
		suite.NotNil(url.ExpiresAt)
	})

	suite.Run("reports the failing field", func() {
		suite.e.POST(path).
			WithJSON(map[string]string{"url": "no scheme here"}).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("status", "error").
			Value("details").Array().Value(0).Object().
			HasValue("field", "url").
			ContainsKey("issue")
	})
}

func (suite *APISuite) TestResolveShortCode() {
	const path = "/api/v1/shorten/%s"

	suite.Run("code not registered", func() {
		suite.e.GET(fmt.Sprintf(path, seedCode)).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("resolves and counts through the cache", func() {
		url := suite.seed(nil)

		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object().
			HasValue("short_code", url.ShortCode).
			HasValue("url", url.OriginalURL)

		suite.EqualValues(1, suite.visitCount(url.ShortCode))

		// The second resolve is served from the cache and must still count.
		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusOK)

		suite.EqualValues(2, suite.visitCount(url.ShortCode))
	})

	suite.Run("expired code is hidden but kept", func() {
		expiresAt := time.Now().UTC().Add(-time.Hour)
		url := suite.seed(&expiresAt)

		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusGone).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")

		suite.EqualValues(0, suite.visitCount(url.ShortCode))
	})
}

func (suite *APISuite) TestRedirect() {
	suite.Run("code not registered", func() {
		suite.e.GET("/" + seedCode).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("redirects and counts the visit", func() {
		url := suite.seed(nil)

		client := &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		e := httpexpect.WithConfig(httpexpect.Config{
			BaseURL:  suite.server.URL,
			Reporter: httpexpect.NewAssertReporter(suite.T()),
			Client:   client,
		})

		e.GET("/" + url.ShortCode).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual(url.OriginalURL)

		suite.EqualValues(1, suite.visitCount(url.ShortCode))
	})
}

func (suite *APISuite) TestDeactivateURL() {
	const path = "/api/v1/shorten/%s"

	suite.Run("code not registered", func() {
		suite.e.DELETE(fmt.Sprintf(path, seedCode)).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("deactivation drops the cached entry", func() {
		url := suite.seed(nil)

		// Resolve once so the code lands in the cache before deletion.
		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusOK)

		suite.e.DELETE(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusNoContent)

		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusNotFound)
	})
}

func (suite *APISuite) TestGetURLStats() {
	const path = "/api/v1/shorten/%s/stats"

	suite.Run("code not registered", func() {
		suite.e.GET(fmt.Sprintf(path, seedCode)).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("stats reads do not count as visits", func() {
		url := suite.seed(nil)

		resolvePath := fmt.Sprintf("/api/v1/shorten/%s", url.ShortCode)
		suite.e.GET(resolvePath).Expect().Status(http.StatusOK)
		suite.e.GET(resolvePath).Expect().Status(http.StatusOK)

		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object().
			HasValue("short_code", url.ShortCode).
			HasValue("url", url.OriginalURL).
			HasValue("visit_count", int64(2)).
			ContainsKey("created_at")

		suite.e.GET(fmt.Sprintf(path, url.ShortCode)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("visit_count", int64(2))
	})
}

func TestAPI(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	suite.Run(t, new(APISuite))
}
