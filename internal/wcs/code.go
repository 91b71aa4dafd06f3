// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package wcs

import (
	"fmt"
	"strings"
)

// Projection code. Linear is the zero value and disables all spherical trigonometry
type Code int

const (
	Linear Code = iota
	CAR
	SIN
	TAN
	TNX
	ARC
	NCP
	GLS
	SFL
	MER
	AIT
	STG
	COE
	numCodes
)

var codeNames = [numCodes]string{"LINEAR", "CAR", "SIN", "TAN", "TNX", "ARC", "NCP", "GLS", "SFL", "MER", "AIT", "STG", "COE"}

func (c Code) String() string {
	if c < 0 || c >= numCodes {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

// Returns all valid codes, in declaration order
func Codes() []Code {
	cs := make([]Code, numCodes)
	for i := range cs {
		cs[i] = Code(i)
	}
	return cs
}

// Parses a projection code from a bare name like "TAN" or a FITS CTYPE
// value like "RA---TAN" or "GLON-CAR". A trailing "-SIP" distortion suffix is
// ignored. "PIXEL", "LINEAR", empty strings and bare axis names are linear.
func ParseCode(s string) (Code, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "-SIP")
	if s == "" || s == "PIXEL" || s == "LINEAR" {
		return Linear, nil
	}
	name := s
	if i := strings.LastIndex(s, "-"); i >= 0 {
		name = s[i+1:]
		if name == "" {
			return Linear, nil
		}
	}
	for i, n := range codeNames {
		if n == name {
			return Code(i), nil
		}
	}
	if name == s && isAxisName(s) {
		return Linear, nil
	}
	return Linear, fmt.Errorf("%w: unknown projection %q", ErrConfig, s)
}

// Axis names that appear without a projection suffix
func isAxisName(s string) bool {
	switch s {
	case "RA", "DEC", "GLON", "GLAT", "ELON", "ELAT", "LON", "LAT":
		return true
	}
	return false
}

// Returns true if the CTYPE names a latitude axis
func isLatitudeAxis(ctype string) bool {
	s := strings.ToUpper(strings.TrimSpace(ctype))
	for _, p := range []string{"DEC", "GLAT", "ELAT", "SLAT", "HLAT", "LAT"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c Code) MarshalText() ([]byte, error) {
	if c < 0 || c >= numCodes {
		return nil, fmt.Errorf("%w: invalid projection code %d", ErrConfig, int(c))
	}
	return []byte(codeNames[c]), nil
}

func (c *Code) UnmarshalText(b []byte) error {
	parsed, err := ParseCode(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
