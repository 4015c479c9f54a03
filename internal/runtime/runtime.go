// Package runtime is the public façade of the inference-runtime core:
// per-zone model load/replace/share/teardown, concurrent push_frame
// dispatch with double-buffered outputs, the zone-group completion
// protocol, and the consumer lock/wait discipline (spec.md §3-§8).
package runtime

import (
	"log"
	"sync"

	"github.com/Brownie44l1/babble-runtime/internal/executor"
	"github.com/Brownie44l1/babble-runtime/internal/image"
	"github.com/Brownie44l1/babble-runtime/internal/resample"
	"github.com/Brownie44l1/babble-runtime/internal/zone"
)

// InvalidTimestamp is returned by readers when no coherent committed
// result is available yet.
const InvalidTimestamp int64 = -1

// OnDataFunc is the data-ready callback installed with OnData. It is
// invoked with the runtime's mutex held for its entire duration: the
// zones mask identifies which zones were submitted together with the
// completing zone, and timestamp is the one that zone's inference just
// produced (already committed, or awaiting a deferred swap if the zone
// is locked). The original C signature carried an opaque user pointer
// alongside the runtime pointer; Go closures capture that context
// directly, so OnDataFunc only takes the runtime.
//
// Because the mutex is already held, calling Runtime.GetParams or
// Runtime.GetGazes from inside this callback would deadlock (Go mutexes
// are not recursive). Use GetParamsLocked / GetGazesLocked instead, which
// assume the lock is already held.
type OnDataFunc func(rt *Runtime, zones zone.Zones, timestamp int64)

// Runtime is the per-process (or per-tracker-instance) orchestration
// core. It owns one mutex and two condition variables guarding every
// field below; see spec.md §5 for the suspension-point table.
type Runtime struct {
	mu               sync.Mutex
	processFinished  *sync.Cond
	swapFinished     *sync.Cond
	exec             executor.Executor
	pending          zone.Zones
	pendingSwap      zone.Zones
	locked           zone.Zones
	onData           OnDataFunc
	contexts         [zone.Count]zoneContext
}

// New constructs a runtime bound to exec. It never returns nil; the
// external API's "runtime_init() -> runtime | null" contract reserves
// null for allocation failure, which Go's garbage-collected allocator
// does not surface as a recoverable error.
func New(exec executor.Executor) *Runtime {
	rt := &Runtime{exec: exec}
	rt.processFinished = sync.NewCond(&rt.mu)
	rt.swapFinished = sync.NewCond(&rt.mu)
	for i := range rt.contexts {
		rt.contexts[i].reset()
	}
	return rt
}

const allZones = zone.Zones(1<<uint(zone.LeftEye) | 1<<uint(zone.RightEye) | 1<<uint(zone.Mouth))

// waitPending blocks until no zone in zones is mid-inference. Caller
// must hold mu.
func (rt *Runtime) waitPending(zones zone.Zones) {
	for rt.pending&zones != 0 {
		rt.processFinished.Wait()
	}
}

// waitPendingAndSwap additionally blocks until no zone in zones has a
// deferred swap outstanding. Caller must hold mu.
func (rt *Runtime) waitPendingAndSwap(zones zone.Zones) {
	rt.waitPending(zones)
	for rt.pendingSwap&zones != 0 {
		rt.swapFinished.Wait()
	}
}

// Free waits for all in-flight inference to drain, releases every
// loaded session (a shared eye session is released exactly once), and
// leaves the Runtime unusable. Calling Free on a Runtime that is already
// freed, or using the Runtime afterward, is undefined — callers must
// serialize, matching spec.md §4.7.
func (rt *Runtime) Free() {
	if rt == nil {
		return
	}
	rt.mu.Lock()
	rt.waitPending(allZones)
	rt.mu.Unlock()
	for z := zone.Zone(0); z < zone.Count; z++ {
		rt.cleanupContext(z)
	}
}

// cleanupContext tears down the context for zone z and releases its
// session iff no other zone still references it. Must be called with no
// inference pending against z.
func (rt *Runtime) cleanupContext(z zone.Zone) {
	ctx := &rt.contexts[z]
	if ctx.session == nil {
		return
	}
	for i := range ctx.output {
		if ctx.output[i] != nil {
			if err := ctx.output[i].Destroy(); err != nil {
				log.Printf("runtime: failed to destroy zone %s output tensor: %v", z, err)
			}
		}
	}
	if ctx.input != nil {
		if err := ctx.input.Destroy(); err != nil {
			log.Printf("runtime: failed to destroy zone %s input tensor: %v", z, err)
		}
	}
	session := ctx.session
	ctx.reset()
	for i := range rt.contexts {
		if zone.Zone(i) != z && rt.contexts[i].session == session {
			return // still referenced by another zone
		}
	}
	if err := session.Close(); err != nil {
		log.Printf("runtime: failed to close session for zone %s: %v", z, err)
	}
}

// LoadModel validates zones, waits for any in-flight inference on those
// zones to drain, loads model through the Executor, and on success
// replaces the zone(s)' context(s) atomically (spec.md §4.3). It returns
// false without mutating state on any validation or executor failure.
func (rt *Runtime) LoadModel(model []byte, zones zone.Zones) bool {
	if rt == nil {
		return false
	}
	first := zone.First(zones)
	if first >= zone.Count {
		log.Printf("runtime: LoadModel called with empty zone set")
		return false
	}
	sharedEyes := zones == zone.Eyes
	if !sharedEyes && zone.Next(zones, first) != zone.Count {
		log.Printf("runtime: invalid zone combination %#x", uint8(zones))
		return false
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.waitPending(zones)

	sess, err := rt.exec.Load(model)
	if err != nil {
		log.Printf("runtime: model load failed: %v", err)
		return false
	}

	inShape := sess.InputShape()
	if inShape[0] != 1 || inShape[1] != 1 ||
		inShape[2] < 8 || inShape[2] > 4096 ||
		inShape[3] < 8 || inShape[3] > 4096 {
		log.Printf("runtime: input shape out of range %v", inShape)
		sess.Close()
		return false
	}
	wantK := int64(zone.OutputLen(first))
	outShape := sess.OutputShape()
	if outShape[0] != 1 || outShape[1] != 1 || outShape[2] != 1 || outShape[3] != wantK {
		log.Printf("runtime: output shape %v does not match expected K=%d", outShape, wantK)
		sess.Close()
		return false
	}

	made := map[zone.Zone]zoneTensors{}
	for z := first; z < zone.Count; z = zone.Next(zones, z) {
		in, err := sess.NewInputTensor()
		if err != nil {
			log.Printf("runtime: failed to create input tensor: %v", err)
			rollback(made, sess)
			return false
		}
		out0, err := sess.NewOutputTensor()
		if err != nil {
			log.Printf("runtime: failed to create output tensor: %v", err)
			in.Destroy()
			rollback(made, sess)
			return false
		}
		out1, err := sess.NewOutputTensor()
		if err != nil {
			log.Printf("runtime: failed to create output tensor: %v", err)
			in.Destroy()
			out0.Destroy()
			rollback(made, sess)
			return false
		}
		made[z] = zoneTensors{input: in, output: [2]executor.Tensor{out0, out1}}
	}

	for z := first; z < zone.Count; z = zone.Next(zones, z) {
		rt.cleanupContext(z)
		t := made[z]
		rt.contexts[z] = zoneContext{
			session:    sess,
			inputSize:  [2]uint32{uint32(inShape[3]), uint32(inShape[2])},
			input:      t.input,
			output:     t.output,
			inputName:  sess.InputName(),
			outputName: sess.OutputName(),
			timestamp:  [2]int64{-1, -1},
		}
	}
	return true
}

// zoneTensors holds the freshly allocated input/output tensors for one
// zone while LoadModel is still validating the rest of the zone set.
type zoneTensors struct {
	input  executor.Tensor
	output [2]executor.Tensor
}

func rollback(made map[zone.Zone]zoneTensors, sess executor.Session) {
	for _, t := range made {
		t.input.Destroy()
		t.output[0].Destroy()
		t.output[1].Destroy()
	}
	sess.Close()
}

// PushFrame resamples each image into its zone's input tensor and
// dispatches asynchronous inference for every addressed zone, returning
// the submitted zone mask (spec.md §4.4). It returns an empty mask
// without dispatching anything on any validation or resampling failure.
func (rt *Runtime) PushFrame(images []image.Descriptor, timestamp int64) zone.Zones {
	if rt == nil {
		return 0
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var group zone.Zones
	for i := range images {
		z := images[i].Zone
		if z >= zone.Count {
			log.Printf("runtime: invalid zone %d in push_frame", z)
			return 0
		}
		if group.Has(z) {
			log.Printf("runtime: cannot push multiple images for zone %s", z)
			return 0
		}
		if !rt.contexts[z].loaded() {
			log.Printf("runtime: zone %s has no loaded model", z)
			return 0
		}
		group = group.With(z)
	}
	if group == 0 {
		return 0
	}

	rt.waitPendingAndSwap(group)

	for i := range images {
		ctx := &rt.contexts[images[i].Zone]
		buf := ctx.input.Data()
		if !resample.To(&images[i], buf, len(buf), ctx.inputSize[0], ctx.inputSize[1]) {
			log.Printf("runtime: resampling failed for zone %s", images[i].Zone)
			return 0
		}
	}

	for i := range images {
		z := images[i].Zone
		ctx := &rt.contexts[z]
		ctx.timestamp[ctx.pendingIdx()] = timestamp
		out := ctx.output[ctx.pendingIdx()]
		ctx.session.RunAsync(ctx.input, out, func(z zone.Zone) func(error) {
			return func(err error) { rt.onProcess(z, err) }
		}(z))
	}

	for z := zone.First(group); z < zone.Count; z = zone.Next(group, z) {
		rt.contexts[z].group = group
	}
	rt.pending |= group
	return group
}

// onProcess is the per-zone completion callback invoked by the Executor
// once inference for zone z finishes, with err non-nil on failure
// (spec.md §4.5).
func (rt *Runtime) onProcess(z zone.Zone, err error) {
	rt.mu.Lock()
	ctx := &rt.contexts[z]
	group := ctx.group
	rt.pending = rt.pending.Without(z)
	if err != nil {
		log.Printf("runtime: zone %s inference failed: %v", z, err)
		rt.processFinished.Broadcast()
		rt.mu.Unlock()
		return
	}
	// The just-written timestamp lives in the producer-writable slot
	// until the swap decision below runs; capture it before that
	// decision so on_data always reports the timestamp this completion
	// actually produced, locked or not (spec.md §8 invariant 3).
	writtenTS := ctx.timestamp[ctx.pendingIdx()]
	if !rt.locked.Has(z) {
		ctx.swap = !ctx.swap
	} else {
		rt.pendingSwap = rt.pendingSwap.With(z)
	}
	if rt.onData != nil {
		rt.onData(rt, group, writtenTS)
	}
	rt.processFinished.Broadcast()
	rt.mu.Unlock()
}

// OnData installs or replaces the data-ready callback.
func (rt *Runtime) OnData(fn OnDataFunc) {
	if rt == nil {
		return
	}
	rt.mu.Lock()
	rt.onData = fn
	rt.mu.Unlock()
}

// LockZones sets the absolute set of zones the consumer holds. While a
// zone is locked, its committed output and timestamp never change, and
// once a completion for that zone has deferred its swap, push_frame for
// that zone blocks until the zone is released. Releasing a zone that had a deferred
// swap publishes it and broadcasts swapFinished (spec.md §4.6).
func (rt *Runtime) LockZones(zones zone.Zones, wait bool) {
	if rt == nil {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if wait {
		rt.waitPending(zones)
	}
	swap := (rt.locked &^ zones) & rt.pendingSwap
	rt.locked = zones
	for z := zone.First(swap); z < zone.Count; z = zone.Next(swap, z) {
		rt.contexts[z].swap = !rt.contexts[z].swap
	}
	rt.pendingSwap &^= swap
	if swap != 0 {
		rt.swapFinished.Broadcast()
	}
}

// GetParams copies up to len(out) params starting at first from the
// current committed zone outputs, returning the latest common timestamp
// or InvalidTimestamp if any referenced zone is unloaded or the
// referenced zones disagree on their committed timestamp (the
// all-or-nothing resolution of the Open Question in spec.md §9). For an
// eye zone, whose model output is the 3-value (horizontal, vertical,
// closed) vector rather than 5 independently named values, the 5 named
// slots are derived via eyeNamedParam.
func (rt *Runtime) GetParams(first zone.Param, out []float32) int64 {
	if rt == nil {
		return InvalidTimestamp
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.GetParamsLocked(first, out)
}

// GetParamsLocked is the lock-free core of GetParams. Call it (never
// GetParams) from inside an OnDataFunc callback, since the mutex is
// already held there and Go mutexes do not support recursive locking.
func (rt *Runtime) GetParamsLocked(first zone.Param, out []float32) int64 {
	ts, ok := int64(0), false
	for i := range out {
		p := first + zone.Param(i)
		if p >= zone.ParamCount {
			break
		}
		z := zone.ZoneOf(p)
		ctx := &rt.contexts[z]
		if !ctx.loaded() {
			return InvalidTimestamp
		}
		zts := ctx.timestamp[ctx.committedIdx()]
		if !ok {
			ts, ok = zts, true
		} else if zts != ts {
			return InvalidTimestamp
		}
		local := int(p - zone.FirstParam(z))
		data := ctx.output[ctx.committedIdx()].Data()
		if z == zone.Mouth {
			out[i] = data[local]
		} else {
			out[i] = eyeNamedParam(data, local)
		}
	}
	if !ok {
		return InvalidTimestamp
	}
	return ts
}

// GetGazes copies committed gaze values for both eyes into out[0]
// (left) and out[1] (right), returning the latest common timestamp or
// InvalidTimestamp under the same all-or-nothing rule as GetParams.
func (rt *Runtime) GetGazes(out *[2][4]float32) int64 {
	if rt == nil {
		return InvalidTimestamp
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.GetGazesLocked(out)
}

// GetGazesLocked is the lock-free core of GetGazes; see GetParamsLocked.
func (rt *Runtime) GetGazesLocked(out *[2][4]float32) int64 {
	left := &rt.contexts[zone.LeftEye]
	right := &rt.contexts[zone.RightEye]
	if !left.loaded() || !right.loaded() {
		return InvalidTimestamp
	}
	lt := left.timestamp[left.committedIdx()]
	rtS := right.timestamp[right.committedIdx()]
	if lt != rtS {
		return InvalidTimestamp
	}
	out[0] = eyeGaze(left.output[left.committedIdx()].Data())
	out[1] = eyeGaze(right.output[right.committedIdx()].Data())
	return lt
}

// eyeGaze derives a 4-component gaze vector (horizontal, vertical,
// closed, reserved) directly from one eye's raw 3-value committed output
// (spec.md §3: K=3 for either eye), which is itself already laid out as
// [horizontal, vertical, closed]. The fourth slot is reserved for the
// convergence hint the original runtime marks as a TODO.
func eyeGaze(data []float32) [4]float32 {
	var g [4]float32
	if len(data) < zone.EyeOutputLen {
		return g
	}
	g[0] = data[0]
	g[1] = data[1]
	g[2] = data[2]
	return g
}

// eyeNamedParam expands an eye's raw 3-value committed output
// (horizontal, vertical, closed) into the value at position local (0..4)
// of the zone's 5-entry named slice [LookOut, LookIn, LookUp, LookDown,
// Closed]: the signed horizontal/vertical components split into their
// directional pairs, each clamped to its positive half.
func eyeNamedParam(data []float32, local int) float32 {
	if len(data) < zone.EyeOutputLen {
		return 0
	}
	switch local {
	case 0: // LookOut
		return positivePart(data[0])
	case 1: // LookIn
		return positivePart(-data[0])
	case 2: // LookUp
		return positivePart(data[1])
	case 3: // LookDown
		return positivePart(-data[1])
	case 4: // Closed
		return data[2]
	default:
		return 0
	}
}

func positivePart(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}
