package repository

import apierrors "github.com/zfogg/bizfeed/backend/internal/errors"

var (
	ErrUserNotFound = apierrors.NotFound("user")
	ErrPostNotFound = apierrors.NotFound("post")
	ErrInvalidInput = apierrors.BadRequest("invalid input")
	ErrUserExists   = apierrors.Conflict("username or email already taken")
)
