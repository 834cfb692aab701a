package service

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/rs/zerolog/log"
)

// Save writes a markdown example of the exchange into API_EXAMPLES_PATH. It
// does nothing when the variable is not set.
func Save(response *apitest.Response, title, description string) {

	examplesPath := os.Getenv("API_EXAMPLES_PATH")
	if examplesPath == "" {
		return
	}

	request := response.Request
	target := request.URL.Path
	if request.URL.RawQuery != "" {
		target += "?" + request.URL.RawQuery
	}
	requestBody := indentBody(response.BodyRequestString())

	doc := &strings.Builder{}
	doc.WriteString("# " + title + "\n")
	doc.WriteString(cropIndent(description) + "\n")

	doc.WriteString("Curl example:\n\n```sh\ncurl ")
	if request.Method != "GET" {
		doc.WriteString("-X " + request.Method + " ")
	}
	doc.WriteString(`"http://localhost:8080` + target + `"`)
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			doc.WriteString(" \\\n-H \"" + k + ": " + v + "\"")
		}
	}
	if requestBody != "" {
		doc.WriteString(" \\\n-d '" + requestBody + "'")
	}
	doc.WriteString("\n```\n\n\n")

	doc.WriteString("HTTP request/response example:\n\n```http\n")
	doc.WriteString(request.Method + " " + target + " " + request.Proto + "\n")
	doc.WriteString("Host: localhost:8080\n")
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			doc.WriteString(k + ": " + v + "\n")
		}
	}
	doc.WriteString("\n" + requestBody + "\n\n")

	doc.WriteString(response.Proto + " " + response.Status + "\n")
	for _, k := range sortedKeys(response.Header) {
		if k == "Date" {
			// fixed, so regenerated docs do not change on every run
			doc.WriteString("Date: Mon, 06 May 2024 07:08:09 GMT\n")
			continue
		}
		for _, v := range response.Header[k] {
			doc.WriteString(k + ": " + v + "\n")
		}
	}
	doc.WriteString("\n" + indentBody(response.BodyString()) + "\n```\n\n\n")

	filename := strings.ReplaceAll(strings.ToLower(title), " ", "_") + ".md"
	p := filepath.Join(examplesPath, filepath.Clean(filename))
	if err := os.WriteFile(p, []byte(doc.String()), 0666); err != nil {
		log.Error().Err(err).Str("path", p).Msg("saving api example")
		return
	}
	log.Debug().Str("path", p).Msg("api example saved")
}

func sortedKeys(h map[string][]string) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indentBody(body string) string {
	out := &bytes.Buffer{}
	if err := json.Indent(out, []byte(body), "", "    "); err != nil {
		return body
	}
	return out.String()
}

// cropIndent removes the common leading tabs of a raw string literal written
// inside indented test code, and turns ´´´ fences into backticks.
func cropIndent(d string) string {

	lines := strings.Split(d, "\n")

	body := lines
	if len(lines) > 2 {
		body = lines[1 : len(lines)-1]
	}

	minTabs := -1
	for _, line := range body {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tabs := len(line) - len(strings.TrimLeft(line, "\t"))
		if minTabs < 0 || tabs < minTabs {
			minTabs = tabs
		}
	}

	if minTabs > 0 {
		prefix := strings.Repeat("\t", minTabs)
		for i, line := range lines {
			lines[i] = strings.TrimPrefix(line, prefix)
		}
	}

	return strings.ReplaceAll(strings.Join(lines, "\n"), "\n´´´", "\n```")
}
