package api

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
	"github.com/fulldump/box"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fulldump/docfile"
	"github.com/fulldump/docfile/service"
	"github.com/fulldump/docfile/value"
)

func TestAcceptance(t *testing.T) {

	biff.Alternative("Setup", func(a *biff.A) {

		d := docfile.NewJSON(filepath.Join(t.TempDir(), "acceptance.json"))
		biff.AssertNil(d.Connect())

		b := Build(service.NewService(d), "test")
		b.WithInterceptors(
			RecoverFromPanic,
			PrettyErrorInterceptor,
		)

		api := apitest.NewWithHandler(b)

		service.Acceptance(a, func(method, path string) *apitest.Request {
			return api.Request(method, "/v1"+path)
		})
	})
}

func TestNotConnected(t *testing.T) {

	d := docfile.NewJSON(filepath.Join(t.TempDir(), "never.json"))

	b := Build(service.NewService(d), "test")
	b.WithInterceptors(PrettyErrorInterceptor)
	api := apitest.NewWithHandler(b)

	resp := api.Request("GET", "/v1/records").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusServiceUnavailable)
	biff.AssertEqualJson(resp.BodyJson(), map[string]interface{}{
		"error": map[string]interface{}{
			"message":     "driver is not connected",
			"description": "store is not connected",
		},
	})

	resp = api.Request("GET", "/v1/store").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)
	biff.AssertEqual(resp.BodyJsonMap()["connected"], false)
}

func TestRelease(t *testing.T) {

	d := docfile.NewJSON(filepath.Join(t.TempDir(), "db.json"))
	api := apitest.NewWithHandler(Build(service.NewService(d), "1.2.3"))

	resp := api.Request("GET", "/release").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusOK)
	biff.AssertEqual(resp.BodyJson(), "1.2.3")
}

func TestAccessLog(t *testing.T) {

	d := docfile.NewJSON(filepath.Join(t.TempDir(), "db.json"))
	biff.AssertNil(d.Connect())

	out := &bytes.Buffer{}
	b := Build(service.NewService(d), "test")
	b.WithInterceptors(
		AccessLog(zerolog.New(out)),
		PrettyErrorInterceptor,
	)
	api := apitest.NewWithHandler(b)

	api.Request("POST", "/v1/records").WithBodyJson(map[string]interface{}{"a": 1}).Do()
	api.Request("POST", "/v1/records:findOne").WithBodyJson(map[string]interface{}{
		"filter": map[string]interface{}{"a": 2},
	}).Do()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	biff.AssertEqual(len(lines), 2)
	biff.AssertTrue(strings.Contains(lines[0], `"level":"info"`))
	biff.AssertTrue(strings.Contains(lines[0], `"status":201`))
	biff.AssertTrue(strings.Contains(lines[1], `"level":"warn"`))
	biff.AssertTrue(strings.Contains(lines[1], `"status":404`))
	biff.AssertTrue(strings.Contains(lines[1], `"url":"/v1/records:findOne"`))
}

func TestReloadCorruptSnapshot(t *testing.T) {

	filename := filepath.Join(t.TempDir(), "db.json")
	d := docfile.NewJSON(filename)
	biff.AssertNil(d.Connect())
	d.Set(value.MustParseJSONMap(`{"a":1}`))

	b := Build(service.NewService(d), "test")
	b.WithInterceptors(PrettyErrorInterceptor)
	api := apitest.NewWithHandler(b)

	biff.AssertNil(os.WriteFile(filename, []byte(`[{"a":`), 0644))

	resp := api.Request("POST", "/v1/store:reload").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusInternalServerError)
	body := resp.BodyJsonMap()["error"].(map[string]interface{})
	biff.AssertEqual(body["description"], "snapshot file cannot be parsed")

	// memory is kept
	resp = api.Request("POST", "/v1/records:count").Do()
	biff.AssertEqualJson(resp.BodyJson(), map[string]interface{}{"count": 1})

	resp = api.Request("POST", "/v1/records:find").WithBodyString(`{"filter":`).Do()
	biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
}

func TestRecoverFromPanic(t *testing.T) {

	out := &bytes.Buffer{}
	previous := log.Logger
	log.Logger = zerolog.New(out)
	defer func() {
		log.Logger = previous
	}()

	d := docfile.NewJSON(filepath.Join(t.TempDir(), "db.json"))
	b := Build(service.NewService(d), "test")
	b.Resource("/explode").
		WithActions(box.Get(func() string {
			panic("boom")
		}).WithName("explode"))
	b.WithInterceptors(
		PrettyErrorInterceptor,
		RecoverFromPanic,
	)
	api := apitest.NewWithHandler(b)

	resp := api.Request("GET", "/explode").Do()
	biff.AssertEqual(resp.StatusCode, http.StatusInternalServerError)
	biff.AssertEqual(resp.BodyJsonMap()["error"].(map[string]interface{})["message"], "panic: boom")

	biff.AssertTrue(strings.Contains(out.String(), `"level":"error"`))
	biff.AssertTrue(strings.Contains(out.String(), `"panic":"boom"`))
	biff.AssertTrue(strings.Contains(out.String(), `"stack":"goroutine`))
	biff.AssertTrue(strings.Contains(out.String(), `"message":"recovered from panic"`))
}
