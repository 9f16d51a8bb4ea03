package repo

import "errors"

// Общая таксономия ошибок хранилищ. HTTP-слой переводит их в коды,
// наружу уходит только грубая категория — детали остаются в логах.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation failed")
)
