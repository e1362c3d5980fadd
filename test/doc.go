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

// Package test contains helper functions to remove common boilerplate and to
// make testing easier.
//
// The Expect functions test a condition and mark the test as failed if the
// condition does not hold. The Demand functions are the same except that the
// test is stopped immediately.
//
// It is worth describing how the Expect/Demand success and failure functions
// handle the nil type because it is not obvious. The nil type is considered a
// success. This is because of how errors usually work (nil indicating no
// error) and is almost always the interpretation we want.
//
// ExpectTimely and DemandTimely wait on a condition that another goroutine is
// expected to make true. They exist because much of Timewarp's core is
// background workers and many tests can only observe those workers
// indirectly.
package test
