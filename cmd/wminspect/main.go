package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wavemotion/internal/anim"
	"wavemotion/internal/bmd"
	"wavemotion/internal/config"
	"wavemotion/internal/library"
	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
	"wavemotion/internal/wavelet"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	actorPath := flag.String("actor", "", "Play .wmo files on the skeleton of this BMD model")
	at := flag.Float64("t", -1, "Print the sampled pose at this time (seconds)")
	mirror := flag.Bool("mirror", false, "Mirror the motion when playing on -actor")
	retarget := flag.Bool("retarget", false, "Retarget the motion when playing on -actor")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{})
	key, err := cfg.Key()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts := library.SourceOptions{LEAKey: key, FPS: cfg.SourceFPS}
	cache := wavelet.NewCache(wavelet.CacheConfig{MaxBytes: cfg.MaxCacheBytes, NumThreads: 1})

	var actorModel *bmd.Model
	if *actorPath != "" {
		actorModel, err = bmd.Parse(*actorPath, key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Parse error %s: %v\n", *actorPath, err)
			os.Exit(1)
		}
	}

	failed := 0
	for _, arg := range flag.Args() {
		var err error
		switch {
		case motionfile.IsMotionFile(arg):
			err = inspectMotion(arg, cache, *at)
			if err == nil && actorModel != nil {
				err = playMotion(arg, cache, actorModel, *at, *mirror, *retarget)
			}
		case strings.EqualFold(filepath.Ext(arg), ".bmd"):
			err = inspectModel(arg, key)
		case motion.IsSourceFile(arg):
			err = inspectSource(arg, opts)
		default:
			err = fmt.Errorf("unknown file type")
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error %s: %v\n", arg, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func inspectMotion(path string, cache *wavelet.Cache, at float64) error {
	m, err := motionfile.Load(path, cache)
	if err != nil {
		return err
	}
	defer m.Release()

	fmt.Printf("\n=== %s (%s) ===\n", path, m.Name())
	fmt.Printf("  wavelet=%s samples/chunk=%d seconds/chunk=%.4f spacing=%.4f\n",
		m.Wavelet(), m.SamplesPerChunk(), m.SecondsPerChunk(), m.SampleSpacing())
	fmt.Printf("  duration=%.3fs chunks=%d scale=%.3f", m.MaxTime(), m.NumChunks(), m.ScaleFactor())
	if name := m.MotionExtractionNodeName(); name != "" {
		fmt.Printf(" extraction=%s", name)
	}
	fmt.Println()
	for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
		fmt.Printf("  %-8s tracks=%-3d quality=%-8.1f stream=%-6d maxQuantErr=%.6f\n",
			k, m.NumTracks(k), m.QualityFactor(k), m.ChannelStreamBytes(k), m.MaxQuantError(k))
	}
	st := m.Stats()
	fmt.Printf("  size: compressed=%d uncompressed=%d (%.1fx) keyframes=%d (%.1fx) overhead=%d\n",
		st.CompressedBytes, st.UncompressedBytes, st.Ratio(), st.OptimizedBytes, st.OptimizedRatio(), st.ChunkOverhead)

	fmt.Println("--- CHUNKS ---")
	for i := 0; i < m.NumChunks(); i++ {
		c := m.Chunk(i)
		fmt.Printf("  [%d] start=%.3f bytes=%d", i, c.StartTime, c.CompressedBytes())
		for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
			if m.NumTracks(k) > 0 {
				fmt.Printf(" %s=%d/%.4g", k, len(c.Channels[k].Data), c.Channels[k].QuantScale)
			}
		}
		fmt.Println()
	}

	fmt.Println("--- SUB-MOTIONS ---")
	for i := 0; i < m.NumSubMotions(); i++ {
		sm, mp := m.SubMotion(i), m.Mapping(i)
		fmt.Printf("  [%d] %-24s pos=%s rot=%s scale=%s", i, sm.Name, track(mp.Position), track(mp.Rotation), track(mp.Scale))
		if at >= 0 {
			tr, err := m.TransformAtTime(cache, 0, i, at)
			if err != nil {
				return err
			}
			p, q := tr.Position, tr.Rotation
			fmt.Printf(" @%.2f pos=(%.3f,%.3f,%.3f) rot=(%.3f,%.3f,%.3f,%.3f)", at, p[0], p[1], p[2], q[0], q[1], q[2], q[3])
		}
		fmt.Println()
	}
	if m.NumMorphSubMotions() > 0 {
		fmt.Println("--- MORPHS ---")
		for i := 0; i < m.NumMorphSubMotions(); i++ {
			mo := m.MorphSubMotion(i)
			fmt.Printf("  [%d] %-24s pose=%.3f track=%s", i, mo.Name, mo.PoseWeight, track(mo.Track))
			if at >= 0 {
				w, err := m.MorphWeightAtTime(cache, 0, i, at)
				if err != nil {
					return err
				}
				fmt.Printf(" @%.2f=%.3f", at, w)
			}
			fmt.Println()
		}
	}
	return nil
}

// playMotion links the motion to the model's skeleton and prints the world
// position of every joint at time at.
func playMotion(path string, cache *wavelet.Cache, model *bmd.Model, at float64, mirror, retarget bool) error {
	actor, err := model.Actor()
	if err != nil {
		return err
	}
	m, err := motionfile.Load(path, cache)
	if err != nil {
		return err
	}
	defer m.Release()

	inst := anim.NewMotionInstance(actor, m, cache, 0)
	inst.Retarget = retarget
	if mirror {
		actor.AutoMirror(0)
		inst.Mirror = true
	}
	fmt.Printf("--- PLAY on %s (linked %d/%d, height %.2f vs %.2f) ---\n",
		model.Name, inst.NumLinked(), actor.NumNodes(), inst.MotionBindPoseHeight(), actor.BindPoseHeight())

	if at < 0 {
		at = 0
	}
	inst.Advance(at)
	bind := anim.NewPose(actor, m.NumMorphSubMotions())
	out := anim.NewPose(actor, m.NumMorphSubMotions())
	if err := anim.Update(bind, out, inst); err != nil {
		return err
	}
	world := out.WorldMatrices(actor)
	for i, n := range actor.Nodes {
		p := world[i]
		fmt.Printf("  [%d] %-24s link=%-3d world=(%.2f,%.2f,%.2f)\n", i, n.Name, inst.Link(i), p[3], p[7], p[11])
	}
	fmt.Printf("  cache: %d chunks, %d bytes, hit rate %.0f%%\n", cache.NumChunks(), cache.TotalBytes(), cache.HitRate()*100)
	return nil
}

func inspectModel(path string, key [32]byte) error {
	model, err := bmd.Parse(path, key)
	if err != nil {
		return err
	}
	fmt.Printf("\n=== %s (bones=%d actions=%d) ===\n", path, len(model.Bones), len(model.Actions))
	names := model.NodeNames()
	for i, b := range model.Bones {
		if b.IsDummy {
			fmt.Printf("  Bone[%d] %s (dummy)\n", i, names[i])
			continue
		}
		fmt.Printf("  Bone[%d] %-24s parent=%-3d pos=(%.1f,%.1f,%.1f)\n",
			i, names[i], b.Parent, b.BindPosition[0], b.BindPosition[1], b.BindPosition[2])
	}
	for i, a := range model.Actions {
		fmt.Printf("  Action[%d] keys=%d lockPositions=%v\n", i, a.NumKeys, a.LockPositions)
	}
	return nil
}

func inspectSource(path string, opts library.SourceOptions) error {
	m, err := library.LoadSource(library.Entry{Name: filepath.Base(path), Source: path}, 0, opts)
	if err != nil {
		return err
	}
	pos, rot, scale, morph := m.NumKeys()
	fmt.Printf("\n=== %s (%s) ===\n", path, m.Name)
	fmt.Printf("  duration=%.3fs subMotions=%d morphs=%d\n", m.MaxTime(), len(m.SubMotions), len(m.Morphs))
	fmt.Printf("  keys: pos=%d rot=%d scale=%d morph=%d\n", pos, rot, scale, morph)
	for i, sm := range m.SubMotions {
		p, r, s := sm.NumKeys()
		fmt.Printf("  [%d] %-24s keys=%d/%d/%d animated=%v/%v/%v\n", i, sm.Name, p, r, s,
			sm.PositionAnimated(), sm.RotationAnimated(), sm.ScaleAnimated())
	}
	return nil
}

func track(t wavelet.TrackIndex) string {
	if !t.Valid() {
		return "-"
	}
	return fmt.Sprint(int(t))
}
