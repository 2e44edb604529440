// Package compat checks the client version against the server's advertised
// minimum before practice data is exchanged.
package compat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"versekeep/internal/api"
)

// ErrClientTooOld means the server refuses clients below its minimum
// version and the user must update.
var ErrClientTooOld = errors.New("client version below server minimum")

// InfoSource fetches the server's version metadata.
type InfoSource interface {
	GetServerInfo(ctx context.Context) (api.ServerInfo, error)
}

// Check compares clientVersion against the server's minimum. Development
// builds and servers that advertise no minimum always pass. A transient
// fetch failure also passes; compatibility is enforced, not availability.
func Check(ctx context.Context, src InfoSource, clientVersion string) error {
	if clientVersion == "" || clientVersion == "(devel)" {
		return nil
	}

	info, err := src.GetServerInfo(ctx)
	if err != nil {
		if api.IsTransient(err) {
			return nil
		}
		return fmt.Errorf("fetch server info: %w", err)
	}
	if info.MinClientVersion == "" {
		return nil
	}

	client := canonical(clientVersion)
	minimum := canonical(info.MinClientVersion)
	if !semver.IsValid(client) || !semver.IsValid(minimum) {
		return nil
	}

	if semver.Compare(client, minimum) < 0 {
		return fmt.Errorf("%w: running %s, server requires %s", ErrClientTooOld, clientVersion, info.MinClientVersion)
	}
	return nil
}

// canonical ensures the "v" prefix semver.Compare expects.
func canonical(version string) string {
	if !strings.HasPrefix(version, "v") {
		return "v" + version
	}
	return version
}
