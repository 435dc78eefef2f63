package geth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/hashicorp/go-version"
)

const (
	// DefaultBinary is the executable looked up on PATH.
	DefaultBinary = "geth"

	// MinVersion and MaxVersion bound the supported geth releases, both inclusive.
	MinVersion = "1.7.2"
	MaxVersion = "1.7.999"
)

var (
	// ErrBinaryNotFound is returned when the geth executable cannot be located.
	ErrBinaryNotFound = errors.New("ethereum client 'geth' not found")
	// ErrIncompatibleVersion is returned when geth is outside [MinVersion, MaxVersion].
	ErrIncompatibleVersion = errors.New("incompatible geth version")
	// ErrVersionParse is returned when the output of `geth version` has no version in it.
	ErrVersionParse = errors.New("cannot parse geth version")
)

var (
	versionRE         = regexp.MustCompile(`Version: (\d+\.\d+\.\d+)`)
	compatibleVersion = version.MustConstraints(version.NewConstraint(">= " + MinVersion + ", <= " + MaxVersion))
)

// LocateBinary searches PATH for the named executable. Names containing a path
// separator are checked directly.
func LocateBinary(name string) (string, error) {
	if name == "" {
		name = DefaultBinary
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, err)
	}
	return path, nil
}

// CheckVersion runs `<path> version` and verifies the reported version is supported.
func CheckVersion(ctx context.Context, path string) (*version.Version, error) {
	cmd := exec.CommandContext(ctx, path, "version")
	out, runErr := cmd.CombinedOutput()

	v, err := ParseVersion(string(out))
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("%w (run %s version: %v)", err, path, runErr)
		}
		return nil, err
	}
	if err := CheckCompatible(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseVersion extracts the major.minor.patch version from the output of `geth version`.
func ParseVersion(output string) (*version.Version, error) {
	m := versionRE.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("%w: no version in %q", ErrVersionParse, truncate(output, 120))
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrVersionParse, err)
	}
	return v, nil
}

// CheckCompatible reports whether v is within [MinVersion, MaxVersion].
func CheckCompatible(v *version.Version) error {
	if !compatibleVersion.Check(v) {
		return fmt.Errorf("%w: %s. Expected >= %s and <= %s", ErrIncompatibleVersion, v, MinVersion, MaxVersion)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
