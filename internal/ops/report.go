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

package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mlnoga/wcsbounds/internal/vec"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// Formats a sky point in decimal degrees, or as sexagesimal RA and Dec
func FormatSky(p vec.SkyPoint, sexagesimal bool) string {
	if !sexagesimal {
		return fmt.Sprintf("%11.6f %+10.6f", p.Lon, p.Lat)
	}
	ra := sexa.FmtRA(unit.RAFromDeg(p.Lon))
	dec := sexa.FmtAngle(unit.AngleFromDeg(p.Lat))
	return fmt.Sprintf("%.2d %+.1d", ra, dec)
}

// Writes one summary line per frame to the log. Takes n inputs, produces the same n outputs
type OpReport struct {
	OpUnaryBase
}

func init() { SetOperatorFactory(func() Operator { return NewOpReportDefault() }) } // register the operator for JSON decoding

func NewOpReportDefault() *OpReport { return NewOpReport() }

func NewOpReport() *OpReport {
	op := &OpReport{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "report", Active: true}},
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

func (op *OpReport) UnmarshalJSON(data []byte) error {
	type defaults OpReport
	def := defaults(*NewOpReportDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpReport(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpReport) Apply(f *Frame, c *Context) (*Frame, error) {
	fmt.Fprintf(c.Log, "%d: %s\n", f.ID, ReportLine(f, c.Sexagesimal))
	return f, nil
}

// Summarizes a frame in one line: file name, center, size, position angle and overlaps
func ReportLine(f *Frame, sexagesimal bool) string {
	var sb strings.Builder
	sb.WriteString(f.FileName)
	switch {
	case f.Footprint != nil:
		fi := f.Footprint
		fmt.Fprintf(&sb, " %s center %s size %.5f x %.5f pa %+.3f r %.5f", fi.Mode, FormatSky(fi.Center, sexagesimal),
			fi.LonSize, fi.LatSize, fi.PosAngle, fi.Radius)
	case f.WCS != nil:
		fmt.Fprintf(&sb, " ref %s", FormatSky(f.WCS.RefSky, sexagesimal))
	default:
		sb.WriteString(" no WCS")
	}
	if f.PixBox != nil {
		fmt.Fprintf(&sb, " pixels %s", *f.PixBox)
	}
	if len(f.Overlaps) > 0 {
		fmt.Fprintf(&sb, " overlaps %v", f.Overlaps)
	}
	return sb.String()
}
