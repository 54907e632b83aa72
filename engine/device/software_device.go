package device

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ibl/engine/texture"
)

// softwareDevice executes passes on the CPU. Each pass is split into row bands, per face
// for cube passes, and the bands are fanned out to a bounded worker pool. A WaitGroup
// gives the per-pass barrier; pool.Wait() is unsuitable because it blocks until workers
// idle-exit.
type softwareDevice struct {
	mu sync.Mutex

	pool     worker.DynamicWorkerPool
	workers  int
	bandRows int
	passes   atomic.Int64
	taskID   int
	released bool
}

var _ Device = &softwareDevice{}

// NewSoftwareDevice creates a Device that runs kernels on a pool of CPU workers.
// Defaults to runtime.NumCPU() workers and 16-row bands.
//
// Parameters:
//   - options: functional options to configure the device
//
// Returns:
//   - Device: the new device
func NewSoftwareDevice(options ...DeviceBuilderOption) Device {
	d := &softwareDevice{
		workers:  max(runtime.NumCPU(), 1),
		bandRows: 16,
	}
	for _, opt := range options {
		opt(d)
	}
	// Queue size of 256 holds a full face fan-out for faces up to 4096 rows at 16-row bands.
	d.pool = worker.NewDynamicWorkerPool(d.workers, 256, 1*time.Second)
	return d
}

func (d *softwareDevice) SubmitCube(pass CubePass) error {
	if err := validateCubePass(pass); err != nil {
		return err
	}
	size := pass.Target.Size(pass.Level)
	var jobs []band
	for _, f := range texture.Faces {
		img := pass.Target.Face(f, pass.Level)
		for y0 := 0; y0 < size; y0 += d.bandRows {
			face := f
			jobs = append(jobs, band{
				img: img,
				y0:  y0,
				y1:  min(y0+d.bandRows, size),
				texel: func(x, y int) [4]float32 {
					return pass.Kernel(face, x, y)
				},
			})
		}
	}
	return d.run(pass.Label, jobs)
}

func (d *softwareDevice) SubmitImage(pass ImagePass) error {
	if err := validateImagePass(pass); err != nil {
		return err
	}
	var jobs []band
	for y0 := 0; y0 < pass.Target.Height; y0 += d.bandRows {
		jobs = append(jobs, band{
			img:   pass.Target,
			y0:    y0,
			y1:    min(y0+d.bandRows, pass.Target.Height),
			texel: pass.Kernel,
		})
	}
	return d.run(pass.Label, jobs)
}

func (d *softwareDevice) Passes() int {
	return int(d.passes.Load())
}

func (d *softwareDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true
	d.pool.Stop()
}

// band is a contiguous range of rows of one destination image.
type band struct {
	img    *texture.Image
	y0, y1 int
	texel  func(x, y int) [4]float32
}

func (b band) execute() {
	for y := b.y0; y < b.y1; y++ {
		for x := 0; x < b.img.Width; x++ {
			b.img.Set(x, y, b.texel(x, y))
		}
	}
}

// run submits every band to the pool and blocks until all have finished. A panicking
// kernel is recovered and reported as the pass error.
func (d *softwareDevice) run(label string, jobs []band) error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return fmt.Errorf("device: pass %q submitted to a released device", label)
	}
	d.mu.Unlock()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	for _, job := range jobs {
		wg.Add(1)
		j := job
		d.mu.Lock()
		id := d.taskID
		d.taskID++
		d.mu.Unlock()
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (res any, err error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("device: pass %q: kernel panic: %v", label, r)
						errMu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						errMu.Unlock()
					}
				}()
				j.execute()
				return nil, nil
			},
		})
	}
	wg.Wait()
	d.passes.Add(1)
	return firstErr
}
