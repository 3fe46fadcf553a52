package skeleton

import (
	"fmt"
	"strings"
)

func (a *Actor) HasMirrorInfo() bool { return a.mirror != nil }

// MirrorInfo returns the mirror setup of node i. Without mirror info every
// node maps to itself.
func (a *Actor) MirrorInfo(i int) MirrorInfo {
	if a.mirror == nil {
		return MirrorInfo{SourceNode: i}
	}
	return a.mirror[i]
}

// SetMirrorInfo sets the mirror setup of node i, allocating a table that
// maps every node to itself on first use.
func (a *Actor) SetMirrorInfo(i int, info MirrorInfo) error {
	if info.SourceNode < 0 || info.SourceNode >= len(a.Nodes) {
		return fmt.Errorf("skeleton: %s: mirror source %d out of range", a.Name, info.SourceNode)
	}
	if info.Axis < 0 || info.Axis > 2 {
		return fmt.Errorf("skeleton: %s: mirror axis %d out of range", a.Name, info.Axis)
	}
	if a.mirror == nil {
		a.mirror = make([]MirrorInfo, len(a.Nodes))
		for n := range a.mirror {
			a.mirror[n] = MirrorInfo{SourceNode: n, Axis: info.Axis}
		}
	}
	a.mirror[i] = info
	return nil
}

// AutoMirror builds mirror info by pairing left and right joints by name
// ("Bip01 L Thigh" / "Bip01 R Thigh", "LeftArm" / "RightArm"). Unpaired
// joints mirror onto themselves. Returns the number of paired joints.
func (a *Actor) AutoMirror(axis int) int {
	a.mirror = make([]MirrorInfo, len(a.Nodes))
	paired := 0
	for i, n := range a.Nodes {
		a.mirror[i] = MirrorInfo{SourceNode: i, Axis: axis}
		other := mirrorName(n.Name)
		if other == n.Name {
			continue
		}
		if j := a.FindNode(other); j >= 0 {
			a.mirror[i].SourceNode = j
			paired++
		}
	}
	return paired
}

var sidePairs = [][2]string{
	{"Left", "Right"},
	{"left", "right"},
	{"LEFT", "RIGHT"},
}

// mirrorName swaps the side marker of a joint name. Single letter markers
// must stand alone between separators.
func mirrorName(name string) string {
	for _, p := range sidePairs {
		if strings.Contains(name, p[0]) {
			return strings.Replace(name, p[0], p[1], 1)
		}
		if strings.Contains(name, p[1]) {
			return strings.Replace(name, p[1], p[0], 1)
		}
	}

	fields := splitKeep(name)
	for i, f := range fields {
		switch f {
		case "L":
			fields[i] = "R"
		case "R":
			fields[i] = "L"
		case "l":
			fields[i] = "r"
		case "r":
			fields[i] = "l"
		default:
			continue
		}
		return strings.Join(fields, "")
	}
	return name
}

// splitKeep splits on separators and keeps them as their own fields.
func splitKeep(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == ' ' || r == '_' || r == '.' || r == '-' {
			if i > start {
				out = append(out, s[start:i])
			}
			out = append(out, string(r))
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
