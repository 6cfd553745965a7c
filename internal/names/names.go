// Package names implements the fully-qualified resource name grammar shared
// by the registry and both front-ends: projects/{p}/locations/{l}/functions/{short}
// and operations/{uuid}.
//
// Validation is deliberately case-insensitive for the short-name regex — the
// source this spec was distilled from validates case-sensitively in one code
// path and case-insensitively in another (see SPEC_FULL.md / DESIGN.md Open
// Questions); this package standardizes on case-insensitive and documents the
// choice rather than silently picking one.
package names

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/novafn/novafn/internal/apierr"
)

// shortNameRE matches a function's short name: starts with a letter, ends
// with a letter or digit, and contains only letters, digits, underscores and
// hyphens in between. Length is capped at 63 characters total.
var shortNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,61}[A-Za-z0-9]$`)

// operationNameRE matches the lower-case-only grammar the cloud service uses
// for operation IDs embedded in operations/{id}.
var operationNameRE = regexp.MustCompile(`^[a-z0-9-]+$`)

// ParsedName is the decomposed form of a fully-qualified function name.
type ParsedName struct {
	Project  string
	Location string
	Short    string
}

// FormatName builds "projects/{p}/locations/{l}/functions/{short}".
func FormatName(project, location, short string) string {
	return fmt.Sprintf("projects/%s/locations/%s/functions/%s", project, location, short)
}

// FormatLocation builds "projects/{p}/locations/{l}".
func FormatLocation(project, location string) string {
	return fmt.Sprintf("projects/%s/locations/%s", project, location)
}

// ParseName validates and decomposes a fully-qualified function name.
func ParseName(fqname string) (ParsedName, error) {
	parts := strings.Split(fqname, "/")
	if len(parts) != 6 || parts[0] != "projects" || parts[2] != "locations" || parts[4] != "functions" {
		return ParsedName{}, badName(fqname)
	}
	project, location, short := parts[1], parts[3], parts[5]
	if project == "" || location == "" {
		return ParsedName{}, badName(fqname)
	}
	if err := ValidateShortName(short); err != nil {
		return ParsedName{}, err
	}
	return ParsedName{Project: project, Location: location, Short: short}, nil
}

// ParseLocation validates and decomposes "projects/{p}/locations/{l}".
func ParseLocation(loc string) (project, location string, err error) {
	parts := strings.Split(loc, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "locations" {
		return "", "", apierr.New(apierr.InvalidArgument, "malformed location: "+loc).
			WithBadRequest("location", "must match projects/{project}/locations/{location}")
	}
	return parts[1], parts[3], nil
}

// ValidateShortName checks a bare function short name against the canonical
// regex (case-insensitive).
func ValidateShortName(short string) error {
	if !shortNameRE.MatchString(strings.ToLower(short)) && !shortNameRE.MatchString(short) {
		return apierr.New(apierr.InvalidArgument,
			fmt.Sprintf("Invalid value '%s': Function name must contain only letters, digits, hyphens and underscores, start with a letter and end with a letter or digit.", short)).
			WithBadRequest("name", "must match ^[A-Za-z][A-Za-z0-9_-]{0,61}[A-Za-z0-9]$")
	}
	return nil
}

// ValidateOperationShortName checks the uuid-like suffix of operations/{id}.
func ValidateOperationShortName(id string) error {
	if !operationNameRE.MatchString(id) {
		return apierr.New(apierr.InvalidArgument,
			fmt.Sprintf("Invalid value '%s': Operation name must contain only lower case Latin letters, digits and hyphens (-).", id)).
			WithBadRequest("name", "must match ^[a-z0-9-]+$")
	}
	return nil
}

func badName(fqname string) error {
	return apierr.New(apierr.InvalidArgument,
		fmt.Sprintf("Invalid value '%s': Function name must contain only letters, digits, hyphens and underscores, start with a letter and end with a letter or digit.", fqname)).
		WithBadRequest("name", "must match projects/{project}/locations/{location}/functions/{short}")
}
