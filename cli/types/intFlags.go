package types

import "errors"

// PageNumber is a 1-based page of a listing.
type PageNumber int

func (p PageNumber) Validate() error {
	if p < 1 {
		return errors.New("must be >= 1")
	}
	return nil
}

type PageSize int

func (s PageSize) Validate() error {
	if s <= 0 {
		return errors.New("must be > 0")
	}
	return nil
}

// TopN limits a ranking; zero keeps every entry.
type TopN int

func (n TopN) Validate() error {
	if n < 0 {
		return errors.New("must be >= 0")
	}
	return nil
}
