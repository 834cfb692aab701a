package apirecordsv1

import (
	"context"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/docfile/value"
)

type JSON = map[string]any

type filterInput struct {
	Filter *value.Map `json:"filter"`
}

type patchInput struct {
	Filter *value.Map `json:"filter"`
	Patch  *value.Map `json:"patch"`
}

func listRecords(ctx context.Context) ([]*value.Map, error) {
	return GetServicer(ctx).Get(nil)
}

func insert(ctx context.Context, r *http.Request) (*value.Map, error) {

	fields := value.NewMap()
	if err := readInput(r, fields); err != nil {
		return nil, err
	}

	record, err := GetServicer(ctx).Set(fields)
	if err != nil {
		return nil, err
	}

	box.GetResponse(ctx).WriteHeader(http.StatusCreated)
	return record, nil
}

func find(ctx context.Context, r *http.Request) ([]*value.Map, error) {

	input := filterInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	return GetServicer(ctx).Get(input.Filter)
}

func findOne(ctx context.Context, r *http.Request) (*value.Map, error) {

	input := filterInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	return GetServicer(ctx).GetOne(input.Filter)
}

func patch(ctx context.Context, r *http.Request) (JSON, error) {

	input := patchInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	n, err := GetServicer(ctx).Update(input.Filter, input.Patch)
	if err != nil {
		return nil, err
	}

	return JSON{"updated": n}, nil
}

func remove(ctx context.Context, r *http.Request) (JSON, error) {

	input := filterInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	n, err := GetServicer(ctx).Delete(input.Filter)
	if err != nil {
		return nil, err
	}

	return JSON{"removed": n}, nil
}

func count(ctx context.Context, r *http.Request) (JSON, error) {

	input := filterInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	n, err := GetServicer(ctx).Count(input.Filter)
	if err != nil {
		return nil, err
	}

	return JSON{"count": n}, nil
}

func exists(ctx context.Context, r *http.Request) (JSON, error) {

	input := filterInput{}
	if err := readInput(r, &input); err != nil {
		return nil, err
	}

	found, err := GetServicer(ctx).Exists(input.Filter)
	if err != nil {
		return nil, err
	}

	return JSON{"exists": found}, nil
}

func clearRecords(ctx context.Context) (JSON, error) {
	if err := GetServicer(ctx).Clear(); err != nil {
		return nil, err
	}
	return JSON{}, nil
}
