package handler

import (
	"errors"
	"regexp"

	"github.com/coinflux/realtime/internal/ierr"
)

// RoomNameValidator bounds room and subscription topic names to a safe
// shape; rooms are created on first join, so this is the only gate.
type RoomNameValidator struct {
	roomNameRegex *regexp.Regexp
}

func NewRoomNameValidator() *RoomNameValidator {
	return &RoomNameValidator{
		roomNameRegex: regexp.MustCompile(`^[\w-]{1,64}$`),
	}
}

func (v *RoomNameValidator) Validate(room string) error {
	valid := v.roomNameRegex.MatchString(room)
	if !valid {
		return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid room name"))
	}

	return nil
}
