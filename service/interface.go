package service

import (
	"github.com/fulldump/docfile/value"
)

type Servicer interface {
	Store() *Store

	Set(fields *value.Map) (*value.Map, error)
	Get(query *value.Map) ([]*value.Map, error)
	GetOne(query *value.Map) (*value.Map, error)
	Update(query, patch *value.Map) (int, error)
	Delete(query *value.Map) (int, error)
	Exists(query *value.Map) (bool, error)
	Count(query *value.Map) (int, error)
	Clear() error

	Flush() error
	Reload() error
	Drop() error
}
