package apirecordsv1

import (
	"context"

	"github.com/fulldump/docfile/service"
)

func getStore(ctx context.Context) *service.Store {
	return GetServicer(ctx).Store()
}

func flush(ctx context.Context) (any, error) {
	if err := GetServicer(ctx).Flush(); err != nil {
		return nil, err
	}
	return JSON{}, nil
}

func reload(ctx context.Context) (any, error) {
	if err := GetServicer(ctx).Reload(); err != nil {
		return nil, err
	}
	return JSON{}, nil
}

func drop(ctx context.Context) (any, error) {
	if err := GetServicer(ctx).Drop(); err != nil {
		return nil, err
	}
	return JSON{}, nil
}
