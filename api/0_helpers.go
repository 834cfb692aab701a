package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/docfile"
	"github.com/fulldump/docfile/api/apirecordsv1"
)

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func statusFor(err error) (int, string) {

	var parseErr *docfile.ParseError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.Is(err, docfile.ErrNotFound):
		return http.StatusNotFound, "no record matches the filter"
	case errors.Is(err, docfile.ErrNotConnected):
		return http.StatusServiceUnavailable, "store is not connected"
	case errors.Is(err, apirecordsv1.ErrInvalidInput), errors.As(err, &syntaxErr):
		return http.StatusBadRequest, "Malformed JSON"
	case errors.Is(err, docfile.ErrNotFinite), errors.Is(err, docfile.ErrInvalidUTF8):
		return http.StatusBadRequest, "value cannot be stored"
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError, "snapshot file cannot be parsed"
	}

	return http.StatusInternalServerError, "Unexpected error"
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}

		status, description := statusFor(err)

		w := box.GetResponse(ctx)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(PrettyError{
			Message:     err.Error(),
			Description: description,
		})
	}
}
