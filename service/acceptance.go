package service

import (
	"net/http"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/fulldump/biff"
)

type JSON = map[string]interface{}

// Acceptance walks the records API against an empty, connected store.
func Acceptance(a *biff.A, apiRequest func(method, path string) *apitest.Request) {

	a.Alternative("Retrieve store", func(a *biff.A) {
		resp := apiRequest("GET", "/store").Do()
		Save(resp, "Retrieve store", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		body := resp.BodyJsonMap()
		biff.AssertEqual(body["connected"], true)
		biff.AssertEqual(body["total"], float64(0))
		biff.AssertEqual(body["policy"], "autosave")
	})

	a.Alternative("List empty", func(a *biff.A) {
		resp := apiRequest("GET", "/records").Do()

		biff.AssertEqual(resp.StatusCode, http.StatusOK)
		biff.AssertEqualJson(resp.BodyJson(), []JSON{})
	})

	a.Alternative("Insert one", func(a *biff.A) {
		resp := apiRequest("POST", "/records").
			WithBodyJson(JSON{
				"name":    "Fulanez",
				"address": JSON{"street": "Elm Street", "number": 11},
				"tags":    []string{"a", "b"},
			}).Do()
		Save(resp, "Insert one", `
			The stored record is returned with its system fields: ´_id´,
			´_createdAt´ and ´_updatedAt´.
		`)

		biff.AssertEqual(resp.StatusCode, http.StatusCreated)
		biff.AssertTrue(strings.HasPrefix(resp.BodyString(), `{"_id":"`))
		inserted := resp.BodyJsonMap()
		biff.AssertEqual(inserted["name"], "Fulanez")
		biff.AssertEqual(inserted["_createdAt"], inserted["_updatedAt"])
		id := inserted["_id"]

		a.Alternative("Find", func(a *biff.A) {
			resp := apiRequest("POST", "/records:find").
				WithBodyJson(JSON{
					"filter": JSON{"address": JSON{"number": 11}},
				}).Do()
			Save(resp, "Find", `
				Mappings in the filter match as a subset, lists must be equal.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{inserted})
		})

		a.Alternative("Find partial list", func(a *biff.A) {
			resp := apiRequest("POST", "/records:find").
				WithBodyJson(JSON{
					"filter": JSON{"tags": []string{"a"}},
				}).Do()

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), []JSON{})
		})

		a.Alternative("Find one by id", func(a *biff.A) {
			resp := apiRequest("POST", "/records:findOne").
				WithBodyJson(JSON{
					"filter": JSON{"_id": id},
				}).Do()
			Save(resp, "Find one", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), inserted)
		})

		a.Alternative("Find one - not found", func(a *biff.A) {
			resp := apiRequest("POST", "/records:findOne").
				WithBodyJson(JSON{
					"filter": JSON{"name": "Menganez"},
				}).Do()
			Save(resp, "Find one - not found", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusNotFound)
			biff.AssertEqualJson(resp.BodyJson(), JSON{
				"error": JSON{
					"message":     "record not found",
					"description": "no record matches the filter",
				},
			})
		})

		a.Alternative("Patch", func(a *biff.A) {
			resp := apiRequest("POST", "/records:patch").
				WithBodyJson(JSON{
					"filter": JSON{"name": "Fulanez"},
					"patch":  JSON{"name": "Menganez", "_id": "hijacked"},
				}).Do()
			Save(resp, "Patch", `
				Patch fields replace the existing ones, system fields are ignored.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"updated": 1})

			resp = apiRequest("GET", "/records").Do()
			records := resp.BodyJson().([]interface{})
			biff.AssertEqual(len(records), 1)
			record := records[0].(JSON)
			biff.AssertEqual(record["_id"], id)
			biff.AssertEqual(record["name"], "Menganez")
			biff.AssertEqual(record["address"], inserted["address"])
		})

		a.Alternative("Remove", func(a *biff.A) {
			resp := apiRequest("POST", "/records:remove").
				WithBodyJson(JSON{
					"filter": JSON{"name": "Fulanez"},
				}).Do()
			Save(resp, "Remove", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"removed": 1})

			resp = apiRequest("POST", "/records:count").Do()
			biff.AssertEqualJson(resp.BodyJson(), JSON{"count": 0})
		})

		a.Alternative("Count and exists", func(a *biff.A) {
			resp := apiRequest("POST", "/records:count").
				WithBodyJson(JSON{
					"filter": JSON{"name": "Fulanez"},
				}).Do()
			Save(resp, "Count", ``)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"count": 1})

			resp = apiRequest("POST", "/records:exists").
				WithBodyJson(JSON{
					"filter": JSON{"name": "Nobody"},
				}).Do()
			Save(resp, "Exists", ``)
			biff.AssertEqualJson(resp.BodyJson(), JSON{"exists": false})
		})

		a.Alternative("Clear", func(a *biff.A) {
			resp := apiRequest("POST", "/records:clear").Do()
			Save(resp, "Clear", ``)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("GET", "/store").Do()
			biff.AssertEqual(resp.BodyJsonMap()["total"], float64(0))
		})

		a.Alternative("Drop", func(a *biff.A) {
			resp := apiRequest("POST", "/store:drop").Do()
			Save(resp, "Drop", `
				Removes the file and every record, the store stays connected.
			`)

			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("GET", "/store").Do()
			body := resp.BodyJsonMap()
			biff.AssertEqual(body["connected"], true)
			biff.AssertEqual(body["total"], float64(0))
		})

		a.Alternative("Flush and reload", func(a *biff.A) {
			resp := apiRequest("POST", "/store:flush").Do()
			Save(resp, "Flush", ``)
			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("POST", "/store:reload").Do()
			Save(resp, "Reload", ``)
			biff.AssertEqual(resp.StatusCode, http.StatusOK)

			resp = apiRequest("GET", "/records").Do()
			biff.AssertEqualJson(resp.BodyJson(), []JSON{inserted})
		})
	})

	a.Alternative("Insert malformed", func(a *biff.A) {
		resp := apiRequest("POST", "/records").
			WithBodyString(`{"name":`).Do()
		Save(resp, "Insert - malformed", ``)

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})

	a.Alternative("Find malformed", func(a *biff.A) {
		resp := apiRequest("POST", "/records:find").
			WithBodyString(`[1, 2]`).Do()

		biff.AssertEqual(resp.StatusCode, http.StatusBadRequest)
	})
}
