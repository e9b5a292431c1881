package staff

import "errors"

var (
	ErrNotFound       = errors.New("staff profile not found")
	ErrDuplicateUser  = errors.New("username already taken")
	ErrInvalidProfile = errors.New("invalid profile")
)
