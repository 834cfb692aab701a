package apirecordsv1

import (
	"github.com/fulldump/box"
)

func BuildV1Records(v1 *box.R) *box.R {

	v1.Resource("/store").
		WithActions(
			box.Get(getStore).WithName("getStore"),
			box.ActionPost(flush).WithName("flush"),
			box.ActionPost(reload).WithName("reload"),
			box.ActionPost(drop).WithName("drop"),
		)

	records := v1.Resource("/records").
		WithActions(
			box.Get(listRecords).WithName("listRecords"),
			box.Post(insert).WithName("insert"),
			box.ActionPost(find).WithName("find"),
			box.ActionPost(findOne).WithName("findOne"),
			box.ActionPost(patch).WithName("patch"),
			box.ActionPost(remove).WithName("remove"),
			box.ActionPost(count).WithName("count"),
			box.ActionPost(exists).WithName("exists"),
			box.ActionPost(clearRecords).WithName("clear"),
		)

	return records
}
