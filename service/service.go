package service

import (
	"github.com/fulldump/docfile"
)

// Service exposes one driver to the API.
type Service struct {
	*docfile.Driver
}

func NewService(d *docfile.Driver) *Service {
	return &Service{
		Driver: d,
	}
}

type Store struct {
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Policy    string `json:"policy"`
	Connected bool   `json:"connected"`
	Total     int    `json:"total"`
}

func (s *Service) Store() *Store {
	total, err := s.Len()
	return &Store{
		Filename:  s.Filename(),
		Format:    s.Format(),
		Policy:    s.Policy().String(),
		Connected: err == nil,
		Total:     total,
	}
}
