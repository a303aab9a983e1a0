package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

const devVersion = "0.0.0"

// Set with -ldflags at build time.
var (
	BuildDate    = "unknown"
	BuildVersion = devVersion
	Commit       = "unknown"
)

// String describes the build as printed by "mathedit --version".
func String() string {
	return fmt.Sprintf("mathedit %s (%s) on %s", BuildVersion, Commit, BuildDate)
}

// Check returns an error unless the build satisfies constraint, such as
// ">= 1.2". Unversioned builds satisfy every valid constraint.
func Check(constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %q", constraint)
	}
	if BuildVersion == devVersion {
		return nil
	}

	v, err := semver.NewVersion(BuildVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid build version %q", BuildVersion)
	}
	// Drop "git describe" suffixes; constraints never match prereleases.
	release, err := v.SetPrerelease("")
	if err != nil {
		return errors.WithStack(err)
	}

	if ok, errs := c.Validate(&release); !ok {
		reason := "constraint not met"
		if len(errs) > 0 {
			reason = errs[0].Error()
		}
		return errors.Errorf("mathedit %s does not satisfy %q: %s", BuildVersion, constraint, reason)
	}
	return nil
}
