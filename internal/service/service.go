package service

import (
	"errors"

	"gorm.io/gorm"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
)

// lookupErr turns a repository lookup failure into notFound or a wrapped internal error.
func lookupErr(op string, err error, notFound *apperrors.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperrors.Service(op, err)
}

// writeErr maps unique-index violations to alreadyExists.
func writeErr(op string, err error, alreadyExists *apperrors.Error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return alreadyExists
	}
	return apperrors.Service(op, err)
}

func requireHR(caller auth.Principal) error {
	if !caller.IsHR() {
		return apperrors.ErrForbidden.With("HR role required")
	}
	return nil
}

func requireEmployee(caller auth.Principal) error {
	if !caller.IsEmployee() {
		return apperrors.ErrForbidden.With("Employee role required")
	}
	return nil
}

func requireReader(caller auth.Principal, owner string) error {
	if !caller.CanRead(owner) {
		return apperrors.ErrForbidden.With("not the owner")
	}
	return nil
}
