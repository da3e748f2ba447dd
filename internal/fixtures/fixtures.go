// Package fixtures provides recorded sensor streams for tests.
package fixtures

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/nodwatch/internal/orientation"
	"github.com/ayusman/nodwatch/internal/sensor"
)

//go:embed streams/*.csv
var streamsFS embed.FS

// Stream names.
const (
	Nod   = "nod"
	Shake = "shake"
	Still = "still"
)

// standardGravity in m/s².
const standardGravity = 9.81

// LoadStream loads a recorded stream of gravity vectors by name. Lines starting with #
// are comments.
func LoadStream(name string) ([]orientation.Vector, error) {
	data, err := streamsFS.ReadFile("streams/" + name + ".csv")
	if err != nil {
		return nil, fmt.Errorf("load stream %s: %w", name, err)
	}

	var vecs []orientation.Vector
	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := sensor.ParseVector(text)
		if err != nil {
			return nil, fmt.Errorf("stream %s line %d: %w", name, line, err)
		}
		vecs = append(vecs, v)
	}
	return vecs, sc.Err()
}

// MustLoadStream is LoadStream for fixtures known to exist.
func MustLoadStream(name string) []orientation.Vector {
	vecs, err := LoadStream(name)
	if err != nil {
		panic(err)
	}
	return vecs
}

// GravityForNod returns the gravity vector whose nod angle is deg and shake angle 0.
func GravityForNod(deg float64) orientation.Vector {
	r := deg * math.Pi / 180
	return orientation.Vector{X: 0, Y: standardGravity * math.Cos(r), Z: -standardGravity * math.Sin(r)}
}

// GravityForShake returns the gravity vector whose shake angle is deg and nod angle 0.
func GravityForShake(deg float64) orientation.Vector {
	r := deg * math.Pi / 180
	return orientation.Vector{X: -standardGravity * math.Sin(r), Y: standardGravity * math.Cos(r), Z: 0}
}
