package bmd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wavemotion/internal/crypto"
)

var testKey = [32]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}

type builder struct{ bytes.Buffer }

func (b *builder) put(v any) { binary.Write(&b.Buffer, binary.LittleEndian, v) }

func (b *builder) name(s string) {
	var n [32]byte
	copy(n[:], s)
	b.put(n)
}

// body writes a model with one mesh, two actions and three bones, the
// second of which is a dummy.
func body() []byte {
	var b builder
	b.name("Player")
	b.put([3]uint16{1, 3, 2})

	b.put([5]int16{1, 1, 1, 1, 0})
	b.Write(make([]byte, vertexSize+normalSize+texCoordSize+triangleSize))
	b.name(`skin\body.jpg`)

	b.put(int16(2))
	b.put(uint8(1))
	b.put([2][3]float32{{0, 0, 0}, {0, 1, 0}})
	b.put(int16(3))
	b.put(uint8(0))

	bone := func(name string, parent int16, offset float32) {
		b.put(uint8(0))
		b.name(name)
		b.put(parent)
		// action 0
		b.put([2][3]float32{{offset, 0, 1}, {offset, 0.5, 1}})
		b.put([2][3]float32{{0, 0, 0}, {0, 0, 0.3}})
		// action 1
		b.put([3][3]float32{{offset, 0, 1}, {offset, 0, 1.2}, {offset, 0, 1.4}})
		b.put([3][3]float32{{0, 0, 0}, {0.1, 0, 0}, {0.2, 0, 0}})
	}
	bone("Bip01", -1, 0)
	b.put(uint8(1))
	bone("Bip01 Head", 0, 2)
	return b.Bytes()
}

func file(version byte, payload []byte) []byte {
	out := []byte{'B', 'M', 'D', version}
	if version == 10 {
		return append(out, payload...)
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

func TestDecodeVersions(t *testing.T) {
	plain := body()
	want, err := Decode("v10", file(10, plain), [32]byte{})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		raw  []byte
	}{
		{"v12", file(12, crypto.EncryptXOR(plain))},
		{"v15", file(15, crypto.EncryptLEA(plain, testKey))},
	}
	for _, c := range cases {
		got, err := Decode(c.name, c.raw, testKey)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", c.name, diff)
		}
	}
}

func TestDecodeContent(t *testing.T) {
	m, err := Decode("test", file(10, body()), [32]byte{})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "Player" {
		t.Errorf("name = %q", m.Name)
	}
	if diff := cmp.Diff([]string{"skin/body.jpg"}, m.Textures); diff != "" {
		t.Errorf("textures (-want +got):\n%s", diff)
	}
	if len(m.Actions) != 2 || !m.Actions[0].LockPositions || m.Actions[1].NumKeys != 3 {
		t.Fatalf("unexpected actions %+v", m.Actions)
	}
	if len(m.Bones) != 3 || !m.Bones[1].IsDummy {
		t.Fatalf("unexpected bones %+v", m.Bones)
	}
	head := m.Bones[2]
	if head.Parent != 0 || head.BindPosition != [3]float64{2, 0, 1} {
		t.Errorf("head bone = %+v", head)
	}
}

func TestDecodeErrors(t *testing.T) {
	plain := body()
	if _, err := Decode("enc", file(15, crypto.EncryptLEA(plain, testKey)), [32]byte{}); !errors.Is(err, ErrNoKey) {
		t.Errorf("missing key: err = %v, want ErrNoKey", err)
	}
	if _, err := Decode("short", file(10, plain[:len(plain)-10]), [32]byte{}); err == nil {
		t.Error("expected an error for truncated data")
	}
	if _, err := Decode("magic", []byte("XYZ\x0a"), [32]byte{}); err == nil {
		t.Error("expected an error for a bad header")
	}
	raw := file(12, plain)
	if _, err := Decode("size", raw[:len(raw)-1], [32]byte{}); err == nil {
		t.Error("expected an error for a short v12 payload")
	}
}

func TestActorAndSourceMotion(t *testing.T) {
	m, err := Decode("test", file(10, body()), [32]byte{})
	if err != nil {
		t.Fatal(err)
	}

	a, err := m.Actor()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Bip01", "dummy_1", "Bip01 Head"}, m.NodeNames()); diff != "" {
		t.Errorf("node names (-want +got):\n%s", diff)
	}
	if a.NumNodes() != 3 || a.Nodes[2].Parent != 0 {
		t.Fatalf("unexpected actor nodes %+v", a.Nodes)
	}

	src, err := m.SourceMotion(1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(src.SubMotions) != 2 {
		t.Fatalf("expected 2 sub-motions, got %d", len(src.SubMotions))
	}
	if math.Abs(src.MaxTime()-0.2) > 1e-12 {
		t.Errorf("max time = %v, want 0.2", src.MaxTime())
	}
	if src.MotionExtractionNode != "" {
		t.Errorf("unlocked action should have no extraction node, got %q", src.MotionExtractionNode)
	}
	head := src.SubMotions[1]
	if p := head.TransformAt(0.1).Position; math.Abs(p[2]-1.2) > 1e-6 || p[0] != 2 {
		t.Errorf("head position at 0.1 = %v", p)
	}

	locked, err := m.SourceMotion(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if locked.MotionExtractionNode != "Bip01" {
		t.Errorf("extraction node = %q, want Bip01", locked.MotionExtractionNode)
	}

	if _, err := m.SourceMotion(2, 10); err == nil {
		t.Error("expected an error for an out of range action")
	}
}
