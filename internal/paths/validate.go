package paths

import (
	"fmt"
	"regexp"
)

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateID checks that a profile, connection or conversation id given on
// the command line is well formed.
func ValidateID(id string) error {
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("invalid id %q: must match ^[A-Za-z0-9_-]{1,64}$", id)
	}
	return nil
}
