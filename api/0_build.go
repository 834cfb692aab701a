package api

import (
	"context"

	"github.com/fulldump/box"
	"github.com/fulldump/box/boxopenapi"

	"github.com/fulldump/docfile/api/apirecordsv1"
	"github.com/fulldump/docfile/service"
)

func Build(s service.Servicer, version string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		injectServicer(s),
	)
	apirecordsv1.BuildV1Records(v1)

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}).WithName("release"))

	spec := boxopenapi.Spec(b)
	spec.Info.Title = "docfile"
	spec.Info.Description = "A collection of JSON documents persisted to one local file."
	spec.Info.Version = version
	b.Resource("/openapi.json").
		WithActions(box.Get(func() boxopenapi.OpenAPI {
			return spec
		}).WithName("openapi"))

	return b
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(apirecordsv1.SetServicer(ctx, s))
		}
	}
}
