package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks a join request and returns a client-facing reason.
func (d *JoinRoomData) Validate() error {
	d.RoomID = strings.TrimSpace(d.RoomID)
	d.Participant.Name = strings.TrimSpace(d.Participant.Name)

	if err := validate.Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s failed %q", strings.ToLower(fe.Namespace()), fe.Tag())
		}
		return err
	}
	return nil
}
