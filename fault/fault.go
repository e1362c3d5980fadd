// This file is part of Timewarp.
//
// Timewarp is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Timewarp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Timewarp.  If not, see <https://www.gnu.org/licenses/>.

package fault

import (
	"fmt"
	"strings"
)

// fault is an implementation of the go language error interface.
type fault struct {
	pattern string
	values  []any
}

// Errorf creates a new fault error.
//
// The first argument is named "pattern" rather than "format" because the
// pattern string doubles as the identity of the error. The Is() and Has()
// functions compare against the pattern, never against the formatted message.
func Errorf(pattern string, values ...any) error {
	// the arguments are stored as they are. formatting happens in the Error()
	// function and nowhere else
	return fault{
		pattern: pattern,
		values:  values,
	}
}

// Error returns the normalised error message. Normalisation being the removal
// of duplicate adjacent parts in the message chain.
//
// Implements the go language error interface.
func (er fault) Error() string {
	s := fmt.Errorf(er.pattern, er.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}

	return strings.Join(p, ": ")
}

// IsAny checks if the error is a fault error of any pattern.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(fault)
	return ok
}

// Is checks if the error is a fault error with the specific pattern.
func Is(err error, pattern string) bool {
	if err == nil {
		return false
	}

	if er, ok := err.(fault); ok {
		return er.pattern == pattern
	}

	return false
}

// Has checks if the pattern appears somewhere in the error chain.
func Has(err error, pattern string) bool {
	if !IsAny(err) {
		return false
	}

	if Is(err, pattern) {
		return true
	}

	for _, v := range err.(fault).values {
		if e, ok := v.(fault); ok {
			if Has(e, pattern) {
				return true
			}
		}
	}

	return false
}
