package apirecordsv1

import (
	"context"

	"github.com/fulldump/docfile/service"
)

const ContextServicerKey = "5b0e8f52-7d3c-11ef-b8d4-3f2a9c1e6a40"

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) service.Servicer {
	return ctx.Value(ContextServicerKey).(service.Servicer)
}
