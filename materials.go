package matfx

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/sbinet/matfx/effects"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownMaterial = errors.New("matfx: unknown material")
	ErrUnknownElement  = errors.New("matfx: unknown element")
	ErrComposition     = errors.New("matfx: invalid material composition")
)

//go:embed data/materials.yaml
var defaultMaterials []byte

// Element is a chemical element, or an effective one (e.g. standard rock).
type Element struct {
	Name string  `yaml:"name"`
	Z    float64 `yaml:"z"` // atomic number
	A    float64 `yaml:"a"` // atomic mass, in g/mol
}

type componentDef struct {
	Element  string  `yaml:"element"`
	Fraction float64 `yaml:"fraction"` // mass fraction
}

type materialDef struct {
	Name           string         `yaml:"name"`
	Density        float64        `yaml:"density"`          // in g/cm^3
	RadLen         float64        `yaml:"radiation_length"` // in g/cm^2
	MeanExcitation float64        `yaml:"mean_excitation"`  // in eV
	Components     []componentDef `yaml:"components"`
}

type catalogDef struct {
	Elements  []Element     `yaml:"elements"`
	Materials []materialDef `yaml:"materials"`
}

// Catalog holds named materials, ready for the effects engine.
type Catalog struct {
	elements  map[string]Element
	materials map[string]effects.Material
}

// LoadCatalog decodes a YAML catalog of elements and materials.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var def catalogDef
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&def)
	if err != nil {
		return nil, fmt.Errorf("matfx: could not decode material catalog: %w", err)
	}

	cat := &Catalog{
		elements:  make(map[string]Element, len(def.Elements)),
		materials: make(map[string]effects.Material, len(def.Materials)),
	}
	for _, elt := range def.Elements {
		if elt.Z <= 0 || elt.A <= 0 {
			return nil, fmt.Errorf("matfx: invalid element %q (Z=%g, A=%g)", elt.Name, elt.Z, elt.A)
		}
		cat.elements[elt.Name] = elt
	}

	for _, m := range def.Materials {
		mat, err := cat.mix(m)
		if err != nil {
			return nil, fmt.Errorf("matfx: material %q: %w", m.Name, err)
		}
		cat.materials[m.Name] = mat
	}
	return cat, nil
}

// mix computes the effective Z and A of a material from the mass fractions
// of its components. A material without components is vacuum.
func (cat *Catalog) mix(def materialDef) (effects.Material, error) {
	if len(def.Components) == 0 {
		return effects.Material{}, nil
	}
	if def.Density <= 0 || def.RadLen <= 0 || def.MeanExcitation <= 0 {
		return effects.Material{}, fmt.Errorf(
			"%w: density=%g, radlen=%g, I=%g",
			ErrComposition, def.Density, def.RadLen, def.MeanExcitation,
		)
	}

	var (
		zoa  = 0.0 // <Z/A>
		ooa  = 0.0 // <1/A>
		norm = 0.0
	)
	for _, c := range def.Components {
		elt, ok := cat.elements[c.Element]
		if !ok {
			return effects.Material{}, fmt.Errorf("%w: %q", ErrUnknownElement, c.Element)
		}
		if c.Fraction <= 0 {
			return effects.Material{}, fmt.Errorf("%w: fraction of %q is %g", ErrComposition, c.Element, c.Fraction)
		}
		zoa += c.Fraction * elt.Z / elt.A
		ooa += c.Fraction / elt.A
		norm += c.Fraction
	}
	if math.Abs(norm-1) > 1e-3 {
		return effects.Material{}, fmt.Errorf("%w: mass fractions sum to %g", ErrComposition, norm)
	}

	a := norm / ooa
	return effects.Material{
		Density:         def.Density,
		Z:               zoa / norm * a,
		A:               a,
		RadiationLength: def.RadLen / def.Density,
		MeanExcitation:  def.MeanExcitation,
	}, nil
}

// Material returns the material with the given name.
func (cat *Catalog) Material(name string) (effects.Material, error) {
	m, ok := cat.materials[name]
	if !ok {
		return effects.Material{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
	}
	return m, nil
}

// Element returns the element with the given name.
func (cat *Catalog) Element(name string) (Element, error) {
	elt, ok := cat.elements[name]
	if !ok {
		return Element{}, fmt.Errorf("%w: %q", ErrUnknownElement, name)
	}
	return elt, nil
}

// Names returns the sorted names of the materials of the catalog.
func (cat *Catalog) Names() []string {
	names := make([]string, 0, len(cat.materials))
	for name := range cat.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// DefaultCatalog returns the catalog of the materials shipped with the package.
func DefaultCatalog() *Catalog {
	defaultOnce.Do(func() {
		cat, err := LoadCatalog(bytes.NewReader(defaultMaterials))
		if err != nil {
			panic(err)
		}
		defaultCatalog = cat
	})
	return defaultCatalog
}
