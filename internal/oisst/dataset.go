package oisst

import (
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// variable is the subset of api.VarGetter the dataset relies on.
type variable interface {
	Values() (interface{}, error)
	GetSlice(begin, limit int64) (interface{}, error)
	Attributes() api.AttributeMap
}

// Dataset is a read-only view over a NOAA OI SST file. Coordinates are loaded
// eagerly; measurement values are read one time step at a time.
type Dataset struct {
	close   func()
	varName string
	la      []float64
	lo      []float64
	ts      []float64
	sst     variable
	scale   float64
	offset  float64
	missing []float64
}

// Open opens the NetCDF file at filePath. Times are kept as raw numbers in
// the units of the file and are not decoded.
func Open(filePath, varName string) (*Dataset, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	d, err := newDataset(func(name string) (variable, error) {
		return nc.GetVarGetter(name)
	}, varName)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	d.close = nc.Close
	return d, nil
}

func newDataset(get func(string) (variable, error), varName string) (*Dataset, error) {
	d := &Dataset{varName: varName, scale: 1}
	var err error
	d.la, err = dimValues(get, "lat")
	if err != nil {
		return nil, err
	}
	d.lo, err = dimValues(get, "lon")
	if err != nil {
		return nil, err
	}
	d.ts, err = dimValues(get, "time")
	if err != nil {
		return nil, err
	}
	d.sst, err = get(varName)
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", varName, err)
	}
	attrs := d.sst.Attributes()
	if attrs == nil {
		return d, nil
	}
	if v, ok := attrs.Get("scale_factor"); ok {
		if d.scale, ok = scalar(v); !ok {
			return nil, fmt.Errorf("variable %q: unsupported scale_factor %T", varName, v)
		}
	}
	if v, ok := attrs.Get("add_offset"); ok {
		if d.offset, ok = scalar(v); !ok {
			return nil, fmt.Errorf("variable %q: unsupported add_offset %T", varName, v)
		}
	}
	for _, name := range []string{"missing_value", "_FillValue"} {
		if v, ok := attrs.Get(name); ok {
			if f, ok := scalar(v); ok {
				d.missing = append(d.missing, f)
			}
		}
	}
	return d, nil
}

func dimValues(get func(string) (variable, error), dimName string) ([]float64, error) {
	dim, err := get(dimName)
	if err != nil {
		return nil, fmt.Errorf("dimension %q: %w", dimName, err)
	}
	v, err := dim.Values()
	if err != nil {
		return nil, fmt.Errorf("dimension %q: %w", dimName, err)
	}
	switch vs := v.(type) {
	case []float32:
		return widen(vs), nil
	case []float64:
		return vs, nil
	case []int32:
		return widen(vs), nil
	case []int64:
		return widen(vs), nil
	case []int16:
		return widen(vs), nil
	}
	return nil, fmt.Errorf("dimension %q: unsupported type %T", dimName, v)
}

func widen[T float32 | int16 | int32 | int64](vs []T) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// scalar unwraps a numeric attribute, which the reader reports either as a
// bare value or as a one-element slice.
func scalar(v any) (float64, bool) {
	switch x := v.(type) {
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case []float32:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	case []float64:
		if len(x) == 1 {
			return x[0], true
		}
	case []int16:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	case []int32:
		if len(x) == 1 {
			return float64(x[0]), true
		}
	}
	return 0, false
}

// Close closes the underlying file.
func (d *Dataset) Close() {
	if d.close != nil {
		d.close()
	}
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (d *Dataset) Summary() []any {
	return []any{
		"dims", []string{"time", "lat", "lon"},
		"variable", d.varName,
		"tsCnt", len(d.ts),
		"laCnt", len(d.la),
		"loCnt", len(d.lo),
		"scale", d.scale,
		"offset", d.offset,
	}
}

// TimeCount returns the number of time steps in the file.
func (d *Dataset) TimeCount() int { return len(d.ts) }

// LatCount returns the number of latitudes in the grid.
func (d *Dataset) LatCount() int { return len(d.la) }

// LonCount returns the number of longitudes in the grid.
func (d *Dataset) LonCount() int { return len(d.lo) }

// Time returns the raw, undecoded time value at index i.
func (d *Dataset) Time(i int) float64 { return d.ts[i] }

// Point reads the unpacked value at the given indices together with the
// coordinates of the cell. Longitude is normalized to (-180, 180].
func (d *Dataset) Point(timeIdx, latIdx, lonIdx int) (Point, error) {
	if timeIdx < 0 || timeIdx >= len(d.ts) ||
		latIdx < 0 || latIdx >= len(d.la) ||
		lonIdx < 0 || lonIdx >= len(d.lo) {
		return Point{}, fmt.Errorf("%w: time=%d lat=%d lon=%d", ErrOutOfRange, timeIdx, latIdx, lonIdx)
	}
	begin := int64(timeIdx)
	v, err := d.sst.GetSlice(begin, begin+1)
	if err != nil {
		return Point{}, err
	}
	var raw float64
	switch s := v.(type) {
	case [][][]int16:
		raw = float64(s[0][latIdx][lonIdx])
	case [][][]int32:
		raw = float64(s[0][latIdx][lonIdx])
	case [][][]float32:
		raw = float64(s[0][latIdx][lonIdx])
	case [][][]float64:
		raw = s[0][latIdx][lonIdx]
	default:
		return Point{}, fmt.Errorf("variable %q: unsupported slice type %T", d.varName, v)
	}
	p := Point{
		TimeIdx:   timeIdx,
		LatIdx:    latIdx,
		LonIdx:    lonIdx,
		Latitude:  d.la[latIdx],
		Longitude: TidyLon(d.lo[lonIdx]),
		Value:     raw*d.scale + d.offset,
	}
	for _, m := range d.missing {
		if raw == m {
			p.Value = math.NaN()
		}
	}
	return p, nil
}
