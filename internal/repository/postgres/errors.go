package postgres

import "errors"

var (
	ErrFieldsNotAllowedToUpdate = errors.New("some fields are not allowed to be updated")
)
