//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies who started a bootstrap run.
type Actor struct {
	// Hostname is the machine name the bootstrap runs on.
	Hostname string
	// Username is the system user running the bootstrap.
	Username string
}

// String renders the actor as username@hostname.
func (a *Actor) String() string {
	if a == nil {
		return "<unknown>"
	}

	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the run log.
// Containers often run with a UID that has no passwd entry; the UID is
// used as the username then.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	username := fmt.Sprintf("uid:%d", os.Getuid())
	if currentUser, userErr := user.Current(); userErr == nil {
		username = currentUser.Username
	}

	return &Actor{
		Hostname: hostname,
		Username: username,
	}, nil
}
