package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wavemotion/internal/config"
	"wavemotion/internal/library"
	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
	"wavemotion/internal/plot"
	"wavemotion/internal/wavelet"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	action := flag.Int("action", 0, "BMD action index")
	node := flag.String("node", "", "Joint or morph target to plot (default: first)")
	channel := flag.String("channel", "rotation", "Channel: rotation, position, scale or morph")
	compressed := flag.String("wmo", "", "Plot against this .wmo file instead of compressing the source")
	waveletName := flag.String("wavelet", "", "Wavelet: haar, daub4 or cdf97 (default: daub4)")
	quality := flag.Float64("quality", 0, "Quality 1-100 for every channel (default: 75)")
	samples := flag.Int("samples", 200, "Number of sample times")
	size := flag.Int("size", 0, "Output size in pixels (default: 512)")
	format := flag.String("format", "", "Output format: webp or tga (default: webp)")
	out := flag.String("o", "", "Output file (default: <motion>_<node>_<channel>.<format>)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: wmplot [flags] <source.bmd|source.json[.zst|.lz4]>")
		os.Exit(2)
	}

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{Wavelet: *waveletName, Quality: float32(*quality)})
	if *size > 0 {
		cfg.PlotSize = *size
	}
	if *format != "" {
		cfg.PlotFormat = strings.ToLower(*format)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	kind, err := wavelet.ParseChannelKind(*channel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0), *action, *node, kind, *compressed, *samples, *out); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, source string, action int, node string, kind wavelet.ChannelKind, wmo string, samples int, out string) error {
	key, err := cfg.Key()
	if err != nil {
		return err
	}
	opts := library.SourceOptions{LEAKey: key, FPS: cfg.SourceFPS}
	src, err := library.LoadSource(library.Entry{Name: filepath.Base(source), Source: source}, action, opts)
	if err != nil {
		return err
	}

	cache := wavelet.NewCache(wavelet.CacheConfig{MaxBytes: cfg.MaxCacheBytes, NumThreads: 1})
	var m *wavelet.Motion
	if wmo != "" {
		m, err = motionfile.Load(wmo, cache)
	} else {
		settings, serr := cfg.Settings()
		if serr != nil {
			return serr
		}
		m, err = wavelet.Compress(src, settings, cache)
	}
	if err != nil {
		return err
	}
	defer m.Release()

	sub, name, err := pick(src, kind, node)
	if err != nil {
		return err
	}
	chart, err := plot.ChannelChart(src, m, cache, 0, sub, kind, samples)
	if err != nil {
		return err
	}
	img := plot.Render(chart, cfg.PlotSize, 2)

	if out == "" {
		out = fmt.Sprintf("%s_%s_%s.%s", src.Name, sanitize(name), kind, cfg.PlotFormat)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := plot.Encode(f, img, cfg.PlotFormat); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	lo, hi := chart.Range()
	fmt.Printf("%s: %s (%d samples, range %.4f..%.4f, %d bytes compressed)\n",
		out, chart.Title, samples, lo, hi, m.Stats().CompressedBytes)
	return nil
}

// pick resolves the plotted sub-motion by name, defaulting to the first
// animated one.
func pick(src *motion.SkeletalMotion, kind wavelet.ChannelKind, node string) (int, string, error) {
	if kind == wavelet.Morph {
		for i, mo := range src.Morphs {
			if node == "" || strings.EqualFold(mo.Name, node) {
				return i, mo.Name, nil
			}
		}
		return 0, "", fmt.Errorf("no morph target %q in %s", node, src.Name)
	}
	if node != "" {
		i := src.FindSubMotion(node)
		if i < 0 {
			return 0, "", fmt.Errorf("no joint %q in %s", node, src.Name)
		}
		return i, node, nil
	}
	for i, sm := range src.SubMotions {
		animated := sm.RotationAnimated()
		switch kind {
		case wavelet.Position:
			animated = sm.PositionAnimated()
		case wavelet.Scale:
			animated = sm.ScaleAnimated()
		}
		if animated {
			return i, sm.Name, nil
		}
	}
	if len(src.SubMotions) == 0 {
		return 0, "", fmt.Errorf("%s has no joints", src.Name)
	}
	return 0, src.SubMotions[0].Name, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
