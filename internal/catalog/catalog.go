// Package catalog loads unit templates from YAML.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/battlegrid/engine/pkg/core"
)

// ErrEmptyCatalog is returned when a catalog defines no units.
var ErrEmptyCatalog = errors.New("catalog has no units")

// UnitSpec is one template as written in the catalog file.
type UnitSpec struct {
	Name           string             `yaml:"name"`
	Type           string             `yaml:"type"`
	Health         int                `yaml:"health"`
	BaseAttack     int                `yaml:"baseAttack"`
	Cost           int                `yaml:"cost"`
	AttackType     string             `yaml:"attackType"`
	AttackBonuses  map[string]float64 `yaml:"attackBonuses"`
	DefenceBonuses map[string]float64 `yaml:"defenceBonuses"`
}

// File is the root of a catalog document.
type File struct {
	Units []UnitSpec `yaml:"units"`
}

// Load reads and validates the catalog at path.
func Load(path string) ([]core.Unit, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(b)
}

// Parse decodes and validates a catalog document.
func Parse(b []byte) ([]core.Unit, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if len(f.Units) == 0 {
		return nil, ErrEmptyCatalog
	}

	units := make([]core.Unit, 0, len(f.Units))
	for i, spec := range f.Units {
		u, err := spec.toUnit()
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", i, err)
		}
		units = append(units, u)
	}
	return units, nil
}

func (s UnitSpec) toUnit() (core.Unit, error) {
	if s.Type == "" {
		return core.Unit{}, errors.New("missing type")
	}
	if s.Health <= 0 {
		return core.Unit{}, fmt.Errorf("%s: health must be positive, got %d", s.Type, s.Health)
	}
	if s.Cost <= 0 {
		return core.Unit{}, fmt.Errorf("%s: cost must be positive, got %d", s.Type, s.Cost)
	}

	attackType := s.AttackType
	switch attackType {
	case "":
		attackType = core.AttackMelee
	case core.AttackMelee, core.AttackRanged:
	default:
		return core.Unit{}, fmt.Errorf("%s: unknown attack type %q", s.Type, s.AttackType)
	}

	name := s.Name
	if name == "" {
		name = s.Type
	}

	return core.Unit{
		Name:           name,
		UnitType:       s.Type,
		Health:         s.Health,
		BaseAttack:     s.BaseAttack,
		Cost:           s.Cost,
		AttackType:     attackType,
		AttackBonuses:  s.AttackBonuses,
		DefenceBonuses: s.DefenceBonuses,
	}, nil
}

// Default returns the built-in templates.
func Default() []core.Unit {
	return []core.Unit{
		{
			Name: "Knight", UnitType: "Knight", Health: 70, BaseAttack: 20, Cost: 60,
			AttackType:     core.AttackMelee,
			AttackBonuses:  map[string]float64{"Archer": 1.5},
			DefenceBonuses: map[string]float64{"Swordsman": 1.2},
		},
		{
			Name: "Archer", UnitType: "Archer", Health: 30, BaseAttack: 15, Cost: 40,
			AttackType:     core.AttackRanged,
			AttackBonuses:  map[string]float64{"Pikeman": 1.2},
			DefenceBonuses: map[string]float64{"Archer": 1.1},
		},
		{
			Name: "Swordsman", UnitType: "Swordsman", Health: 50, BaseAttack: 18, Cost: 45,
			AttackType:     core.AttackMelee,
			AttackBonuses:  map[string]float64{"Pikeman": 1.3},
			DefenceBonuses: map[string]float64{"Archer": 1.2},
		},
		{
			Name: "Pikeman", UnitType: "Pikeman", Health: 55, BaseAttack: 14, Cost: 35,
			AttackType:     core.AttackMelee,
			AttackBonuses:  map[string]float64{"Knight": 1.6},
			DefenceBonuses: map[string]float64{"Knight": 1.3},
		},
	}
}
