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

// Package fault implements the error type used throughout Timewarp. Errors
// created with Errorf() remember the pattern they were created with, meaning
// that deep error chains can be queried with the Is() and Has() functions
// without resorting to string comparison of the formatted message.
//
// For example:
//
//	err := doSomething()
//	if err != nil {
//		return fault.Errorf("playback: %v", err)
//	}
//
// and later:
//
//	if fault.Has(err, "playback: %v") {
//		...
//	}
//
// When an error is wrapped with the same pattern at adjacent levels of the
// chain, the duplicated message part is removed from the output of the
// Error() function.
package fault
