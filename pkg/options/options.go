// Package options defines the option group contract shared by every
// configuration section and a few helpers to drive groups in bulk.
package options

import (
	"reflect"
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is one configuration section. Flags carry the section name,
// e.g. "cohort.path", and may be nested under extra prefixes.
type IOptions interface {
	// Validate returns every problem found, not only the first.
	Validate() []error

	// AddFlags registers the section flags on fs.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag prefix: Join("a", "b") is "a.b." and Join() is "".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// ValidateAll validates each group and concatenates the errors. Nil groups,
// including typed nil pointers, are skipped.
func ValidateAll(groups ...IOptions) []error {
	var errs []error
	for _, g := range groups {
		if isNil(g) {
			continue
		}
		errs = append(errs, g.Validate()...)
	}
	return errs
}

// AddAllFlags registers the flags of every non-nil group on fs.
func AddAllFlags(fs *pflag.FlagSet, groups ...IOptions) {
	for _, g := range groups {
		if isNil(g) {
			continue
		}
		g.AddFlags(fs)
	}
}

func isNil(g IOptions) bool {
	if g == nil {
		return true
	}
	v := reflect.ValueOf(g)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
