package apirecordsv1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrInvalidInput = errors.New("invalid input")

// readInput decodes the request body into input, an empty body leaves input
// untouched.
func readInput(r *http.Request, input any) error {

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, input); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	return nil
}
