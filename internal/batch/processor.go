package batch

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"wavemotion/internal/library"
	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
	"wavemotion/internal/wavelet"
)

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir string
	Settings  wavelet.Settings
	Source    library.SourceOptions
	// Order is the byte order of written files and their chunk streams.
	Order   binary.ByteOrder
	Verify  bool
	Workers int
	// Cache must have at least Workers thread slots.
	Cache *wavelet.Cache
}

// Job is one motion to compress.
type Job struct {
	Name   string
	Entry  library.Entry
	Action int
}

// Result holds the outcome of processing one job.
type Result struct {
	Name    string
	Source  string
	Output  string
	Success bool
	Error   string

	Chunks int
	Stats  wavelet.Stats

	// Largest sampling error against the source, set when verifying.
	MaxPositionError float64
	MaxRotationError float64
}

// Jobs expands source entries into one job per motion. BMD actions are
// named <stem>_<action>.
func Jobs(entries []library.Entry, opts library.SourceOptions) ([]Job, []Result) {
	var jobs []Job
	var failed []Result
	for _, e := range entries {
		if e.Source == "" {
			continue
		}
		if !e.IsBMD() {
			jobs = append(jobs, Job{Name: e.Name, Entry: e})
			continue
		}
		n, err := library.NumActions(e, opts)
		if err != nil {
			failed = append(failed, Result{Name: e.Name, Source: e.Source, Error: err.Error()})
			continue
		}
		for a := 0; a < n; a++ {
			jobs = append(jobs, Job{Name: fmt.Sprintf("%s_%02d", e.Name, a), Entry: e, Action: a})
		}
	}
	return jobs, failed
}

// Run processes all jobs using a worker pool. Worker w samples through
// cache thread slot w.
func Run(cfg Config, jobs []Job) []Result {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Cache == nil {
		cfg.Cache = wavelet.NewCache(wavelet.CacheConfig{NumThreads: cfg.Workers})
	}
	if cfg.Workers > cfg.Cache.NumThreads() {
		cfg.Workers = cfg.Cache.NumThreads()
	}
	if cfg.Order == nil {
		cfg.Order = binary.LittleEndian
	}

	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f motions/sec, cache hit rate %.0f%%\n",
						p, total, rate, 100*cfg.Cache.HitRate())
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(threadIndex int) {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(cfg, threadIndex, jobs[idx])
				processed.Add(1)
			}
		}(w)
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processJob(cfg Config, threadIndex int, job Job) Result {
	res := Result{Name: job.Name, Source: job.Entry.Source}

	src, err := library.LoadSource(job.Entry, job.Action, cfg.Source)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	m, err := wavelet.Compress(src, cfg.Settings, cfg.Cache)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer m.Release()
	res.Chunks = m.NumChunks()
	res.Stats = m.Stats()

	if cfg.Verify {
		res.MaxPositionError, res.MaxRotationError, err = Verify(src, m, cfg.Cache, threadIndex)
		if err != nil {
			res.Error = fmt.Sprintf("verify: %v", err)
			return res
		}
	}

	if err := m.ConvertChunkDataEndian(cfg.Order); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Output = filepath.Join(cfg.OutputDir, job.Name+motionfile.Ext)
	if err := os.MkdirAll(filepath.Dir(res.Output), 0755); err != nil {
		res.Error = err.Error()
		return res
	}
	if err := motionfile.Save(res.Output, m, cfg.Order); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	return res
}

// Verify samples m through the cache at every compressed sample time and
// returns the largest position distance and rotation angle (radians)
// against the source.
func Verify(src *motion.SkeletalMotion, m *wavelet.Motion, c *wavelet.Cache, threadIndex int) (posErr, rotErr float64, err error) {
	maxTime := m.MaxTime()
	steps := int(math.Ceil(maxTime/m.SampleSpacing())) + 1
	for i := 0; i < steps; i++ {
		t := min(float64(i)*m.SampleSpacing(), maxTime)
		for sub, sm := range src.SubMotions {
			got, err := m.TransformAtTime(c, threadIndex, sub, t)
			if err != nil {
				return 0, 0, err
			}
			want := sm.TransformAt(t)
			posErr = max(posErr, got.Position.Sub(want.Position).Len())
			d := math.Min(1, math.Abs(got.Rotation.Dot(want.Rotation.Normalize())))
			rotErr = max(rotErr, 2*math.Acos(d))
		}
	}
	return posErr, rotErr, nil
}
