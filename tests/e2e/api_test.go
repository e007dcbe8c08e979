// Package e2e exercises a running url-shorter instance over HTTP. Start the
// server with the config named by CONFIG_PATH, then run these tests with the
// same CONFIG_PATH so the suite finds the right port.
//
// The suite is black-box: it seeds data through the API itself and uses
// random custom codes so runs never collide, whatever storage backend the
// server was started with.
package e2e

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gavv/httpexpect/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Rohit-Yadav-47/url-shorter/internal/config"
	"github.com/Rohit-Yadav-47/url-shorter/internal/shortcode"
	"github.com/Rohit-Yadav-47/url-shorter/tests"
)

const tourURL = "https://go.dev/tour/welcome/1"

type E2ESuite struct {
	suite.Suite
	cfg     *config.Config
	baseURL string
	e       *httpexpect.Expect
}

func (suite *E2ESuite) SetupSuite() {
	root, err := tests.FindProjectRoot()
	require.NoError(suite.T(), err, "locate project root")

	cfg, err := config.Load(filepath.Join(root, os.Getenv("CONFIG_PATH")))
	require.NoError(suite.T(), err, "load config")

	suite.cfg = cfg
	suite.baseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTPServer.Port)
	suite.e = httpexpect.Default(suite.T(), suite.baseURL)
}

// newCustomCode draws a random code from the full keyspace so that repeated
// runs against the same server never step on each other.
func (suite *E2ESuite) newCustomCode() string {
	suite.T().Helper()

	code, err := gonanoid.Generate(shortcode.Alphabet, suite.cfg.ShortCodeLength)
	require.NoError(suite.T(), err, "generate custom code")

	return code
}

// shortenURL registers url under a fresh custom code through the API.
func (suite *E2ESuite) shortenURL(url string) string {
	suite.T().Helper()

	code := suite.newCustomCode()

	suite.e.POST("/api/v1/shorten").
		WithJSON(map[string]string{
			"url":         url,
			"custom_code": code,
		}).
		Expect().
		Status(http.StatusCreated)

	return code
}

func (suite *E2ESuite) TestPing() {
	suite.Run("answers pong", func() {
		suite.e.GET("/api/v1/ping").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *E2ESuite) TestShortenURL() {
	const path = "/api/v1/shorten"

	suite.Run("empty body", func() {
		suite.e.POST(path).
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("malformed body", func() {
		suite.e.POST(path).
			WithJSON("not an object").
			Expect().
			Status(http.StatusBadRequest).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
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

	suite.Run("generates a code of the configured length", func() {
		data := suite.e.POST(path).
			WithJSON(map[string]string{"url": tourURL}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object()

		data.HasValue("url", tourURL)
		data.ContainsKey("created_at")

		code := data.Value("short_code").String().Raw()
		suite.Len(code, suite.cfg.ShortCodeLength)
	})

	suite.Run("honors a custom code once", func() {
		code := suite.newCustomCode()

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":         tourURL,
				"custom_code": code,
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object().
			HasValue("short_code", code)

		suite.e.POST(path).
			WithJSON(map[string]string{
				"url":         "https://go.dev/doc/faq",
				"custom_code": code,
			}).
			Expect().
			Status(http.StatusConflict).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})
}

func (suite *E2ESuite) TestResolveShortCode() {
	const path = "/api/v1/shorten/%s"

	suite.Run("code not registered", func() {
		suite.e.GET(fmt.Sprintf(path, suite.newCustomCode())).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("resolves a registered code", func() {
		code := suite.shortenURL(tourURL)

		suite.e.GET(fmt.Sprintf(path, code)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object().
			HasValue("short_code", code).
			HasValue("url", tourURL)
	})
}

func (suite *E2ESuite) TestRedirect() {
	suite.Run("code not registered", func() {
		suite.e.GET("/" + suite.newCustomCode()).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("redirects to the original url", func() {
		code := suite.shortenURL(tourURL)

		client := &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		e := httpexpect.WithConfig(httpexpect.Config{
			BaseURL:  suite.baseURL,
			Reporter: httpexpect.NewAssertReporter(suite.T()),
			Client:   client,
		})

		e.GET("/" + code).
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual(tourURL)
	})
}

func (suite *E2ESuite) TestDeactivateURL() {
	const path = "/api/v1/shorten/%s"

	suite.Run("code not registered", func() {
		suite.e.DELETE(fmt.Sprintf(path, suite.newCustomCode())).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("deactivated code stops resolving", func() {
		code := suite.shortenURL(tourURL)

		suite.e.DELETE(fmt.Sprintf(path, code)).
			Expect().
			Status(http.StatusNoContent)

		suite.e.GET(fmt.Sprintf(path, code)).
			Expect().
			Status(http.StatusNotFound)
	})
}

func (suite *E2ESuite) TestGetURLStats() {
	const path = "/api/v1/shorten/%s/stats"

	suite.Run("code not registered", func() {
		suite.e.GET(fmt.Sprintf(path, suite.newCustomCode())).
			Expect().
			Status(http.StatusNotFound).
			JSON().Object().
			HasValue("status", "error").
			ContainsKey("message")
	})

	suite.Run("counts resolutions", func() {
		code := suite.shortenURL(tourURL)

		suite.e.GET(fmt.Sprintf(path, code)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			HasValue("status", "success").
			Value("data").Object().
			HasValue("short_code", code).
			HasValue("url", tourURL).
			HasValue("visit_count", int64(0))

		suite.e.GET(fmt.Sprintf("/api/v1/shorten/%s", code)).
			Expect().
			Status(http.StatusOK)

		suite.e.GET(fmt.Sprintf(path, code)).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("visit_count", int64(1))
	})
}

func TestE2E(t *testing.T) {
	suite.Run(t, new(E2ESuite))
}
