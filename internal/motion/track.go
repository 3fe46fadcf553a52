package motion

import (
	"math"
	"sort"

	"wavemotion/internal/mathutil"
)

// Key is one keyframe of a track. Times are in seconds.
type Key[T any] struct {
	Time  float64 `json:"t"`
	Value T       `json:"v"`
}

// Track is a keyframe track sorted by time.
type Track[T any] struct {
	Keys []Key[T] `json:"keys"`
}

type (
	Vec3Track  = Track[mathutil.Vec3]
	QuatTrack  = Track[mathutil.Quat]
	FloatTrack = Track[float64]
)

// Lerp interpolates between two values with fraction f in [0, 1].
type Lerp[T any] func(a, b T, f float64) T

func LerpVec3(a, b mathutil.Vec3, f float64) mathutil.Vec3 { return a.Lerp(b, f) }
func LerpQuat(a, b mathutil.Quat, f float64) mathutil.Quat { return a.Nlerp(b, f) }
func LerpFloat(a, b float64, f float64) float64            { return a + (b-a)*f }

// Add appends a key and keeps the track sorted.
func (t *Track[T]) Add(time float64, v T) {
	t.Keys = append(t.Keys, Key[T]{Time: time, Value: v})
	if n := len(t.Keys); n > 1 && t.Keys[n-2].Time > time {
		sort.SliceStable(t.Keys, func(i, j int) bool { return t.Keys[i].Time < t.Keys[j].Time })
	}
}

// Duration is the time of the last key.
func (t *Track[T]) Duration() float64 {
	if t == nil || len(t.Keys) == 0 {
		return 0
	}
	return t.Keys[len(t.Keys)-1].Time
}

// Sample evaluates the track at time, holding the first and last keys
// outside the keyed range.
func (t *Track[T]) Sample(time float64, lerp Lerp[T]) T {
	keys := t.Keys
	switch {
	case len(keys) == 0:
		var zero T
		return zero
	case time <= keys[0].Time:
		return keys[0].Value
	case time >= keys[len(keys)-1].Time:
		return keys[len(keys)-1].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > time })
	a, b := keys[i-1], keys[i]
	span := b.Time - a.Time
	if span <= 0 {
		return b.Value
	}
	return lerp(a.Value, b.Value, (time-a.Time)/span)
}

// constantAt reports whether every key lies within tol of v.
func constantAt[T any](t *Track[T], v T, dist func(a, b T) float64, tol float64) bool {
	for _, k := range t.Keys {
		if dist(k.Value, v) > tol {
			return false
		}
	}
	return true
}

func vec3Dist(a, b mathutil.Vec3) float64 { return a.Sub(b).Len() }

// quatDist is 1-|a.b|, zero for identical rotations.
func quatDist(a, b mathutil.Quat) float64 {
	return 1 - math.Abs(a.Normalize().Dot(b.Normalize()))
}

func floatDist(a, b float64) float64 { return math.Abs(a - b) }
