package motionfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/wavelet"
)

type writer struct {
	buf   []byte
	order binary.ByteOrder
	tmp   [8]byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	w.order.PutUint16(w.tmp[:2], v)
	w.buf = append(w.buf, w.tmp[:2]...)
}

func (w *writer) u32(v uint32) {
	w.order.PutUint32(w.tmp[:4], v)
	w.buf = append(w.buf, w.tmp[:4]...)
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) f64(v float64) {
	w.order.PutUint64(w.tmp[:8], math.Float64bits(v))
	w.buf = append(w.buf, w.tmp[:8]...)
}

func (w *writer) str(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) transform(t mathutil.Transform) {
	for _, v := range t.Position {
		w.f32(float32(v))
	}
	for _, v := range t.Rotation {
		w.f32(float32(v))
	}
	for _, v := range t.Scale {
		w.f32(float32(v))
	}
}

func orderTag(o binary.ByteOrder) byte {
	if o.String() == binary.BigEndian.String() {
		return 'B'
	}
	return 'L'
}

// Write encodes m with header fields in the given byte order. Chunk streams
// are stored in the motion's current chunk byte order, which is tagged in
// the info block.
func Write(w io.Writer, m *wavelet.Motion, order binary.ByteOrder) error {
	if m.Released() {
		return fmt.Errorf("motionfile: write %s: motion has been released", m.Name())
	}
	for i := 0; i < m.NumSubMotions(); i++ {
		if len(m.SubMotion(i).Name) > math.MaxUint16 {
			return fmt.Errorf("motionfile: write %s: sub-motion %d name too long", m.Name(), i)
		}
	}

	e := &writer{order: order}
	e.buf = append(e.buf, magic...)
	e.u8(orderTag(order))
	e.u8(version)
	e.u16(0)

	e.u32(uint32(m.NumChunks()))
	e.u32(uint32(m.SamplesPerChunk()))
	e.f64(m.SecondsPerChunk())
	e.f64(m.MaxTime())
	for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
		e.u32(uint32(m.ChannelStreamBytes(k)))
	}
	for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
		e.u32(uint32(m.NumTracks(k)))
	}
	for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
		e.f32(m.QualityFactor(k))
	}
	e.u8(uint8(m.Wavelet()))
	e.u8(compressorHuffman)
	e.u8(orderTag(m.ChunkByteOrder()))
	e.u8(0)
	e.f32(m.ScaleFactor())
	e.u32(uint32(m.NumSubMotions()))
	e.u32(uint32(m.NumMorphSubMotions()))
	st := m.Stats()
	for _, v := range [numStats]int{st.CompressedBytes, st.UncompressedBytes, st.OptimizedBytes, st.ChunkOverhead} {
		e.u32(uint32(v))
	}
	e.str(m.Name())
	e.str(m.MotionExtractionNodeName())

	for i := 0; i < m.NumSubMotions(); i++ {
		mp := m.Mapping(i)
		e.u16(uint16(mp.Position))
		e.u16(uint16(mp.Rotation))
		e.u16(uint16(mp.Scale))
		s := m.SubMotion(i)
		e.u32(s.ID)
		e.transform(s.Pose)
		e.transform(s.BindPose)
		e.str(s.Name)
	}
	for i := 0; i < m.NumMorphSubMotions(); i++ {
		mo := m.MorphSubMotion(i)
		e.u16(uint16(mo.Track))
		e.u32(mo.ID)
		e.f32(mo.PoseWeight)
		e.str(mo.Name)
	}

	for i := 0; i < m.NumChunks(); i++ {
		c := m.Chunk(i)
		e.f64(c.StartTime)
		for k := range c.Channels {
			ch := &c.Channels[k]
			e.f32(ch.QuantScale)
			e.u32(ch.NumBits)
			e.u32(uint32(len(ch.Data)))
		}
		for k := range c.Channels {
			e.buf = append(e.buf, c.Channels[k].Data...)
		}
	}

	if _, err := w.Write(e.buf); err != nil {
		return fmt.Errorf("motionfile: write %s: %w", m.Name(), err)
	}
	return nil
}

// Save writes m to path.
func Save(path string, m *wavelet.Motion, order binary.ByteOrder) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("motionfile: create %s: %w", path, err)
	}
	if err := Write(f, m, order); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("motionfile: close %s: %w", path, err)
	}
	return nil
}
