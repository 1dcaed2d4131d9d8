package bytecode

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CurrentInstructionSetVersion is the semver of the instruction set
// this package's Verify/Interpret implement. Bump the minor version
// when adding instructions, the major version when removing or
// reinterpreting one.
const CurrentInstructionSetVersion = "1.0.0"

// CheckCompatible reports whether bytecode compiled against unitVersion
// may be safely loaded by an interpreter built against
// interpreterVersion, using a "same major, interpreter minor >= unit
// minor" constraint: a newer interpreter can run older bytecode within
// a major version, but bytecode requesting a newer minor than the
// interpreter supports is rejected outright.
func CheckCompatible(unitVersion, interpreterVersion string) error {
	unitVer, err := semver.NewVersion(unitVersion)
	if err != nil {
		return fmt.Errorf("bytecode: invalid unit instruction-set version %q: %w", unitVersion, err)
	}

	interpreterVer, err := semver.NewVersion(interpreterVersion)
	if err != nil {
		return fmt.Errorf("bytecode: invalid interpreter instruction-set version %q: %w", interpreterVersion, err)
	}

	constraint, err := semver.NewConstraint(fmt.Sprintf(">= %d.%d.0, < %d.0.0", unitVer.Major(), unitVer.Minor(), unitVer.Major()+1))
	if err != nil {
		return fmt.Errorf("bytecode: building compatibility constraint: %w", err)
	}

	if !constraint.Check(interpreterVer) {
		return fmt.Errorf("bytecode: unit requires instruction-set %s, interpreter provides incompatible %s", unitVer, interpreterVer)
	}

	return nil
}
