package model

import (
	"encoding/json"
	"strings"
)

// DefaultSkillLevel is the proficiency assigned to skills that were found on
// a page without any level information.
const DefaultSkillLevel = 50

// RequiredSkill is one entry of a SkillLevels mapping.
type RequiredSkill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// SkillLevels is an ordered mapping of skill name to level (0-100).
// Names are unique case-insensitively; the first spelling wins and
// insertion order is kept.
type SkillLevels struct {
	entries []RequiredSkill
}

// NewSkillLevels builds a mapping where every name gets the same level.
func NewSkillLevels(level int, names ...string) SkillLevels {
	var s SkillLevels
	for _, n := range names {
		s.Set(n, level)
	}
	return s
}

// Set inserts or updates name. Blank names are ignored.
func (s *SkillLevels) Set(name string, level int) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	level = clampLevel(level)
	for i := range s.entries {
		if strings.EqualFold(s.entries[i].Name, name) {
			s.entries[i].Level = level
			return
		}
	}
	s.entries = append(s.entries, RequiredSkill{Name: name, Level: level})
}

// Get returns the level for name.
func (s SkillLevels) Get(name string) (int, bool) {
	for _, e := range s.entries {
		if strings.EqualFold(e.Name, name) {
			return e.Level, true
		}
	}
	return 0, false
}

func (s SkillLevels) Len() int { return len(s.entries) }

// Entries returns a copy of the mapping in insertion order. Never nil.
func (s SkillLevels) Entries() []RequiredSkill {
	out := make([]RequiredSkill, len(s.entries))
	copy(out, s.entries)
	return out
}

// Names returns skill names in insertion order. Never nil.
func (s SkillLevels) Names() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Name)
	}
	return out
}

// MarshalJSON encodes the mapping as an ordered array of {name, level}.
func (s SkillLevels) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}

// UnmarshalJSON decodes an array of {name, level}.
func (s *SkillLevels) UnmarshalJSON(data []byte) error {
	var raw []RequiredSkill
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SkillLevels{}
	for _, r := range raw {
		s.Set(r.Name, r.Level)
	}
	return nil
}

func clampLevel(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
