// Package version identifies the service build and checks client/server
// compatibility.
package version

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// Version is the release of this build. Overridden at link time with
// -ldflags "-X shopsync/internal/version.Version=v1.2.3".
var Version = "v1.0.0"

// Check reports whether a client at version client can talk to a server at
// version server. They must share a major version and the server must be at
// least as new as the client.
func Check(client, server string) error {
	cv := normalize(client)
	sv := normalize(server)

	if !semver.IsValid(cv) {
		return fmt.Errorf("invalid client version %q", client)
	}
	if !semver.IsValid(sv) {
		return fmt.Errorf("invalid server version %q", server)
	}
	if semver.Major(cv) != semver.Major(sv) {
		return fmt.Errorf("server %s is incompatible with client %s", sv, cv)
	}
	if semver.Compare(sv, cv) < 0 {
		return fmt.Errorf("server %s is older than client %s", sv, cv)
	}
	return nil
}

// normalize adds the "v" prefix semver parsing requires.
func normalize(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
