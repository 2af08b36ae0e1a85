package formats

import (
	"fmt"

	"github.com/Faultbox/roseimport/pkg/binreader"
)

// ErrInvalidCHRIndex reports a character referencing a missing table entry.
var ErrInvalidCHRIndex = fmt.Errorf("%w: CHR index out of range", ErrFormat)

// CHRMotion binds a motion file to an action slot.
type CHRMotion struct {
	Type   int16
	Motion int
}

// actionNames names the action slots a CHR motion can fill.
var actionNames = [...]string{
	"Stop",
	"Walk",
	"Attack",
	"Hit",
	"Die",
	"Run",
	"Casting1",
	"SkillAction1",
	"Casting2",
	"SkillAction2",
	"Etc",
}

// Action returns the action slot name, or "" for a slot the client does
// not use.
func (m CHRMotion) Action() string {
	if m.Type < 0 || int(m.Type) >= len(actionNames) {
		return ""
	}
	return actionNames[m.Type]
}

// CHREffect attaches an effect to a skeleton bone.
type CHREffect struct {
	Bone   int16
	Effect int
}

// Character is one NPC or monster definition. Models index the matching
// ZSC model list.
type Character struct {
	Enabled  bool
	Name     string
	Skeleton int
	Models   []int16
	Motions  []CHRMotion
	Effects  []CHREffect
}

// CHR represents a parsed character list.
type CHR struct {
	Skeletons  []string
	Motions    []string
	Effects    []string
	Characters []Character
}

// ParseCHR parses a CHR character list from raw bytes.
func ParseCHR(data []byte) (*CHR, error) {
	r := binreader.New(data)
	chr := &CHR{}
	var err error

	for _, t := range []struct {
		name string
		dst  *[]string
	}{
		{"skeleton", &chr.Skeletons},
		{"motion", &chr.Motions},
		{"effect", &chr.Effects},
	} {
		if *t.dst, err = readZSCStrings(r); err != nil {
			return nil, fmt.Errorf("reading %s table: %w", t.name, err)
		}
	}

	count, err := readZSCCount(r)
	if err != nil {
		return nil, fmt.Errorf("reading character count: %w", err)
	}
	chr.Characters = make([]Character, 0, min(count, r.Remaining()))
	for i := 0; i < count; i++ {
		c, err := parseCharacter(r)
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", i, err)
		}
		if err := chr.check(c); err != nil {
			return nil, fmt.Errorf("character %d: %w", i, err)
		}
		chr.Characters = append(chr.Characters, c)
	}
	return chr, nil
}

func parseCharacter(r *binreader.Reader) (Character, error) {
	var c Character

	enabled, err := r.Uint8()
	if err != nil {
		return c, err
	}
	if enabled == 0 {
		return c, nil
	}
	c.Enabled = true

	skeleton, err := r.Int16()
	if err != nil {
		return c, err
	}
	c.Skeleton = int(skeleton)
	if c.Name, err = r.CString(); err != nil {
		return c, fmt.Errorf("reading name: %w", err)
	}

	n, err := readZSCCount(r)
	if err != nil {
		return c, err
	}
	if c.Models, err = binreader.Array(r, n, binreader.ReadInt16); err != nil {
		return c, fmt.Errorf("reading models: %w", err)
	}

	if n, err = readZSCCount(r); err != nil {
		return c, err
	}
	if c.Motions, err = binreader.Array(r, n, func(r *binreader.Reader) (CHRMotion, error) {
		typ, err := r.Int16()
		if err != nil {
			return CHRMotion{}, err
		}
		motion, err := r.Int16()
		return CHRMotion{Type: typ, Motion: int(motion)}, err
	}); err != nil {
		return c, fmt.Errorf("reading motions: %w", err)
	}

	if n, err = readZSCCount(r); err != nil {
		return c, err
	}
	if c.Effects, err = binreader.Array(r, n, func(r *binreader.Reader) (CHREffect, error) {
		bone, err := r.Int16()
		if err != nil {
			return CHREffect{}, err
		}
		effect, err := r.Int16()
		return CHREffect{Bone: bone, Effect: int(effect)}, err
	}); err != nil {
		return c, fmt.Errorf("reading effects: %w", err)
	}
	return c, nil
}

func (chr *CHR) check(c Character) error {
	if !c.Enabled {
		return nil
	}
	if c.Skeleton < 0 || c.Skeleton >= len(chr.Skeletons) {
		return fmt.Errorf("%w: skeleton %d of %d", ErrInvalidCHRIndex, c.Skeleton, len(chr.Skeletons))
	}
	for _, m := range c.Motions {
		if m.Motion < 0 || m.Motion >= len(chr.Motions) {
			return fmt.Errorf("%w: motion %d of %d", ErrInvalidCHRIndex, m.Motion, len(chr.Motions))
		}
	}
	for _, e := range c.Effects {
		if e.Effect < 0 || e.Effect >= len(chr.Effects) {
			return fmt.Errorf("%w: effect %d of %d", ErrInvalidCHRIndex, e.Effect, len(chr.Effects))
		}
	}
	return nil
}

// ParseCHRFile parses a CHR file from disk.
func ParseCHRFile(path string) (*CHR, error) {
	return parseFile("CHR", path, ParseCHR)
}
