package biz

import (
	"errors"
)

var (
	ErrInvalidJWT       = errors.New("invalid jwt token")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoDepartment     = errors.New("no active department")
	ErrInternal         = errors.New("server internal error, please try again later")
)
