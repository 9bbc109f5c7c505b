package quicklook

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rtm0/itcz/internal/grid"
)

// newField returns a dataset with lat ascending [-1, 0, 1], lon [10, 20]
// and two time steps of precipitation stored (time, lon, lat).
func newField(t *testing.T) *grid.Dataset {
	t.Helper()
	ds := grid.New()
	vars := []*grid.Variable{
		{Name: "time", Dims: []string{"time"}, Shape: []int{2}, Values: []float64{0, 30}, Attrs: grid.NewAttrs()},
		{Name: "lat", Dims: []string{"lat"}, Shape: []int{3}, Values: []float32{-1, 0, 1}, Attrs: grid.NewAttrs()},
		{Name: "lon", Dims: []string{"lon"}, Shape: []int{2}, Values: []float32{10, 20}, Attrs: grid.NewAttrs()},
		{
			Name:  "precipitation",
			Dims:  []string{"time", "lon", "lat"},
			Shape: []int{2, 2, 3},
			// value = 100*time + 10*lon + lat index
			Values: []float32{0, 1, 2, 10, 11, 12, 100, 101, 102, 110, 111, float32(math.NaN())},
			Attrs:  grid.NewAttrs(),
		},
	}
	vars[0].Attrs.Set("units", "minutes since 2024-01-14 00:00:00")
	for _, v := range vars {
		if err := ds.Add(v); err != nil {
			t.Fatalf("Add(%s) failed: %v", v.Name, err)
		}
	}
	return ds
}

func TestExtract(t *testing.T) {
	ds := newField(t)

	f, err := Extract(ds, "precipitation", "lat", "lon", "time", 1)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !slices.Equal(f.Lat, []float64{1, 0, -1}) {
		t.Errorf("got lat %v, want north first", f.Lat)
	}
	if !slices.Equal(f.Lon, []float64{10, 20}) {
		t.Errorf("got lon %v", f.Lon)
	}
	want := []float64{102, math.NaN(), 101, 111, 100, 110}
	for i, w := range want {
		g := f.Values[i]
		if math.IsNaN(w) != math.IsNaN(g) || (!math.IsNaN(w) && g != w) {
			t.Errorf("value %d: got %v, want %v", i, g, w)
		}
	}
	if lo, hi := f.Range(); lo != 100 || hi != 111 {
		t.Errorf("got range [%v, %v], want [100, 111]", lo, hi)
	}
}

func TestExtract_Errors(t *testing.T) {
	ds := newField(t)
	tests := []struct {
		name  string
		v     string
		index int
	}{
		{"missing variable", "irwin_cdr", 0},
		{"time out of range", "precipitation", 2},
		{"coordinate only", "lat", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Extract(ds, tc.v, "lat", "lon", "time", tc.index); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNearest(t *testing.T) {
	base := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(3 * time.Hour), base.Add(6 * time.Hour)}
	tests := []struct {
		at   time.Duration
		want int
	}{
		{0, 0},
		{time.Hour, 0},
		{2 * time.Hour, 1},
		{5 * time.Hour, 2},
		{48 * time.Hour, 2},
	}
	for _, tc := range tests {
		if got := Nearest(times, base.Add(tc.at)); got != tc.want {
			t.Errorf("Nearest(+%s) = %d, want %d", tc.at, got, tc.want)
		}
	}
	if got := Nearest(nil, base); got != -1 {
		t.Errorf("Nearest(nil) = %d, want -1", got)
	}
}

func TestPalette(t *testing.T) {
	p := BrightnessTemperature(201, 289)
	if p.Levels[0] != 200 || p.Levels[len(p.Levels)-1] != 290 {
		t.Fatalf("got levels %v..%v", p.Levels[0], p.Levels[len(p.Levels)-1])
	}
	if len(p.Colors) != len(p.Levels)-1 {
		t.Fatalf("got %d colours for %d levels", len(p.Colors), len(p.Levels))
	}
	if c := p.Color(150); c.R != 255 {
		t.Errorf("below range: got %v, want white", c)
	}
	if c := p.Color(300); c.R != 0 {
		t.Errorf("above range: got %v, want black", c)
	}
	if p.Color(205) != p.Colors[1] || p.Color(204.9) != p.Colors[0] {
		t.Error("a level boundary belongs to the bin above it")
	}

	pr := Precipitation()
	if n := len(pr.Levels); n != 61 {
		t.Errorf("got %d precipitation levels, want 61", n)
	}
	if c := pr.Color(0); c.B != 255 || c.R != 255 {
		t.Errorf("zero rate: got %v, want purple", c)
	}
	if c := pr.Color(10); c.R != 255 || c.B > 1 {
		t.Errorf("high rate: got %v, want red", c)
	}
}

func TestRenderWritePNG(t *testing.T) {
	f, err := Extract(newField(t), "precipitation", "lat", "lon", "time", 1)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	img := Render(f, Precipitation())
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Fatalf("got image %v, want 2x3", b)
	}
	if a := img.NRGBAAt(1, 0).A; a != 0 {
		t.Errorf("missing value: got alpha %d, want transparent", a)
	}
	if a := img.NRGBAAt(0, 0).A; a != 255 {
		t.Errorf("got alpha %d, want opaque", a)
	}

	path := filepath.Join(t.TempDir(), "field.png")
	if err := WritePNG(path, img); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	r, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	back, err := png.Decode(r)
	if err != nil {
		t.Fatalf("cannot decode: %v", err)
	}
	if back.Bounds() != img.Bounds() {
		t.Errorf("got bounds %v, want %v", back.Bounds(), img.Bounds())
	}
}
