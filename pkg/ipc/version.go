package ipc

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// compatibleRange is the set of peer protocol versions this build accepts.
const compatibleRange = "^1.0.0"

// CheckCompatible reports whether a peer speaking version can talk to this build.
// The worker may be a different executable (jobs.worker_path), so both sides check.
func CheckCompatible(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid protocol version %q: %w", version, err)
	}

	c, err := semver.NewConstraint(compatibleRange)
	if err != nil {
		return fmt.Errorf("invalid protocol range %q: %w", compatibleRange, err)
	}

	if !c.Check(v) {
		return fmt.Errorf("protocol version %s is not compatible with %s (%s)", v, ProtocolVersion, compatibleRange)
	}
	return nil
}
