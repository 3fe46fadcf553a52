package bmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"wavemotion/internal/crypto"
)

// ErrNoKey is returned for v15 files when no LEA key is configured.
var ErrNoKey = errors.New("bmd: v15 file needs a LEA key")

// Parse reads a BMD file and returns its bones and actions.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(filepath string, leaKey [32]byte) (*Model, error) {
	raw, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", filepath, err)
	}
	return Decode(filepath, raw, leaKey)
}

// Decode parses BMD bytes. name is only used in error messages.
func Decode(name string, raw []byte, leaKey [32]byte) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, fmt.Errorf("bmd: invalid header in %s", name)
	}

	version := raw[3]
	var data []byte

	switch version {
	case 15:
		payload, err := sizedPayload(name, raw, version)
		if err != nil {
			return nil, err
		}
		if leaKey == ([32]byte{}) {
			return nil, fmt.Errorf("%w: %s", ErrNoKey, name)
		}
		data = crypto.DecryptLEA(payload, leaKey)
	case 12:
		payload, err := sizedPayload(name, raw, version)
		if err != nil {
			return nil, err
		}
		data = crypto.DecryptXOR(payload)
	default:
		data = raw[4:]
	}

	r := &reader{data: data}
	m := r.parse()
	if r.short {
		return nil, fmt.Errorf("bmd: truncated data in %s", name)
	}
	if r.err != nil {
		return nil, fmt.Errorf("bmd: %s: %w", name, r.err)
	}
	return m, nil
}

func sizedPayload(name string, raw []byte, version byte) ([]byte, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("bmd: truncated v%d header in %s", version, name)
	}
	size := binary.LittleEndian.Uint32(raw[4:8])
	if 8+int(size) > len(raw) {
		return nil, fmt.Errorf("bmd: truncated v%d data in %s", version, name)
	}
	return raw[8 : 8+size], nil
}

type reader struct {
	data  []byte
	off   int
	short bool
	err   error
}

func (r *reader) take(n int) []byte {
	if n < 0 || r.off+n > len(r.data) {
		r.off = len(r.data)
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readStr(n int) string {
	s := r.take(n)
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

func (r *reader) readU16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) readF32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Per-element sizes of the mesh arrays that are skipped.
const (
	vertexSize   = 16 // node:i16, pad:i16, x, y, z:f32
	normalSize   = 20 // node:i16, pad:i16, nx, ny, nz:f32, bind:i16, pad:i16
	texCoordSize = 8
	triangleSize = 64
	nameSize     = 32
)

func (r *reader) parse() *Model {
	m := &Model{Name: r.readStr(nameSize)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > 100 {
		r.err = fmt.Errorf("invalid mesh count %d", meshCount)
		return nil
	}

	for i := 0; i < meshCount && !r.short; i++ {
		nv := int(r.readI16())
		nn := int(r.readI16())
		ntc := int(r.readI16())
		nt := int(r.readI16())
		_ = r.readI16() // texture index
		r.take(nv*vertexSize + nn*normalSize + ntc*texCoordSize + nt*triangleSize)

		texPath := r.readStr(nameSize)
		// Normalize backslashes
		m.Textures = append(m.Textures, strings.ReplaceAll(texPath, "\\", "/"))
	}

	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		act := &m.Actions[a]
		act.NumKeys = int(r.readI16())
		if act.NumKeys < 0 {
			r.err = fmt.Errorf("action %d has negative key count", a)
			return nil
		}
		act.LockPositions = r.readByte() > 0
		if act.LockPositions {
			act.RootPositions = make([][3]float32, 0, act.NumKeys)
			for k := 0; k < act.NumKeys && !r.short; k++ {
				act.RootPositions = append(act.RootPositions, r.readVec3())
			}
		}
	}

	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount && !r.short; b++ {
		isDummy := r.readByte() > 0
		if isDummy {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:   r.readStr(nameSize),
			Parent: int(r.readI16()),
			Keys:   make([]BoneKeys, actionCount),
		}
		for a, act := range m.Actions {
			keys := &bone.Keys[a]
			keys.Positions = make([][3]float32, 0, act.NumKeys)
			for k := 0; k < act.NumKeys && !r.short; k++ {
				keys.Positions = append(keys.Positions, r.readVec3())
			}
			keys.Rotations = make([][3]float32, 0, act.NumKeys)
			for k := 0; k < act.NumKeys && !r.short; k++ {
				keys.Rotations = append(keys.Rotations, r.readVec3())
			}
		}
		// the first key of the first action is the bind pose
		for _, keys := range bone.Keys {
			if len(keys.Positions) > 0 && len(keys.Rotations) > 0 {
				for c := 0; c < 3; c++ {
					bone.BindPosition[c] = float64(keys.Positions[0][c])
					bone.BindRotation[c] = float64(keys.Rotations[0][c])
				}
				break
			}
		}
		m.Bones = append(m.Bones, bone)
	}
	return m
}
