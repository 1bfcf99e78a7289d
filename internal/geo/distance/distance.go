// Package distance models buffer distances and converts them to the angular
// degrees the geometry kernel works in.
package distance

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s1"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

// EarthMeanRadiusMeters is the radius used to turn lengths into angles.
const EarthMeanRadiusMeters = 6371008.7714

// Unit is a length or angle unit.
type Unit struct {
	Name   string
	meters float64 // zero for angular units
}

var (
	Millimetres   = Unit{Name: "mm", meters: 0.001}
	Centimetres   = Unit{Name: "cm", meters: 0.01}
	Decimetres    = Unit{Name: "dm", meters: 0.1}
	Metres        = Unit{Name: "m", meters: 1}
	Decametres    = Unit{Name: "dam", meters: 10}
	Hectometres   = Unit{Name: "hm", meters: 100}
	Kilometres    = Unit{Name: "km", meters: 1000}
	Inches        = Unit{Name: "in", meters: 0.0254}
	Feet          = Unit{Name: "ft", meters: 0.3048}
	Yards         = Unit{Name: "yd", meters: 0.9144}
	Miles         = Unit{Name: "mi", meters: 1609.344}
	NauticalMiles = Unit{Name: "nmi", meters: 1852}
	Degrees       = Unit{Name: "deg"}
)

var units = map[string]Unit{
	"mm":  Millimetres,
	"cm":  Centimetres,
	"dm":  Decimetres,
	"m":   Metres,
	"dam": Decametres,
	"hm":  Hectometres,
	"km":  Kilometres,
	"in":  Inches,
	"ft":  Feet,
	"yd":  Yards,
	"mi":  Miles,
	"nmi": NauticalMiles,
	"NM":  NauticalMiles,
	"deg": Degrees,
}

// LookupUnit returns the unit registered under name.
func LookupUnit(name string) (Unit, bool) {
	u, ok := units[name]
	if !ok {
		u, ok = units[strings.ToLower(name)]
	}
	return u, ok
}

func (u Unit) angular() bool { return u.meters == 0 }

// Distance is an immutable magnitude with a unit.
type Distance struct {
	Value float64
	Unit  Unit
}

// New returns a distance, rejecting negative and non-finite values.
func New(value float64, unit Unit) (Distance, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return Distance{}, geoerr.Configf("distance must be a finite non-negative number, got %v", value)
	}
	if unit.Name == "" {
		unit = Metres
	}
	return Distance{Value: value, Unit: unit}, nil
}

// Parse reads values like "10km", "2.5 mi" or "300". A missing unit means
// metres.
func Parse(s string) (Distance, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Distance{}, geoerr.Configf("empty distance")
	}
	split := len(raw)
	for i, r := range raw {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			split = i
			break
		}
		// "e" only belongs to the number when it is followed by a digit or sign
		if (r == 'e' || r == 'E') && !exponentAt(raw, i) {
			split = i
			break
		}
	}
	num := strings.TrimSpace(raw[:split])
	unitName := strings.TrimSpace(raw[split:])

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Distance{}, geoerr.Configf("invalid distance %q", s)
	}
	unit := Metres
	if unitName != "" {
		u, ok := LookupUnit(unitName)
		if !ok {
			return Distance{}, geoerr.Configf("unknown distance unit %q in %q", unitName, s)
		}
		unit = u
	}
	return New(v, unit)
}

func exponentAt(s string, i int) bool {
	if i == 0 || i+1 >= len(s) {
		return false
	}
	next := s[i+1]
	return (next >= '0' && next <= '9') || next == '-' || next == '+'
}

// MustParse is Parse for constants in tests and defaults.
func MustParse(s string) Distance {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Meters returns the length in metres. Angular distances are measured along
// a great circle of the mean Earth radius.
func (d Distance) Meters() float64 {
	if d.Unit.angular() {
		return (s1.Angle(d.Value) * s1.Degree).Radians() * EarthMeanRadiusMeters
	}
	return d.Value * d.Unit.meters
}

// Degrees returns the distance as an angle in degrees.
func (d Distance) Degrees() float64 {
	if d.Unit.angular() {
		return d.Value
	}
	return s1.Angle(d.Meters() / EarthMeanRadiusMeters).Degrees()
}

// Less reports whether d is shorter than o.
func (d Distance) Less(o Distance) bool { return d.Degrees() < o.Degrees() }

func (d Distance) String() string {
	return strconv.FormatFloat(d.Value, 'f', -1, 64) + d.Unit.Name
}

func (d Distance) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a string such as "10km" or a bare number of metres.
func (d *Distance) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return geoerr.Configf("distance must be a string or a number, got %s", string(b))
	}
	v, err := New(f, Metres)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
