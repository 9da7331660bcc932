package engine

import "sync/atomic"

// Diagnostics collects recoverable fault counters an engine accumulates at
// runtime. All counters are atomic so the host may poll them from any thread.
type Diagnostics struct {
	notPrepared     atomic.Uint64
	scrubbedSamples atomic.Uint64
	failedAllocs    atomic.Uint64
	rejectedIndices atomic.Uint64
	deferredReloads atomic.Uint64
}

// CountNotPrepared records a Process call before a successful Prepare.
func (d *Diagnostics) CountNotPrepared() { d.notPrepared.Add(1) }

// CountScrubbed records n non-finite samples replaced by the safety net.
func (d *Diagnostics) CountScrubbed(n int) {
	if n > 0 {
		d.scrubbedSamples.Add(uint64(n))
	}
}

// CountFailedAlloc records a Prepare-time allocation failure that forced the
// engine into its pass-through identity state.
func (d *Diagnostics) CountFailedAlloc() { d.failedAllocs.Add(1) }

// CountRejectedIndices records n parameter updates that referenced unknown
// indices.
func (d *Diagnostics) CountRejectedIndices(n int) {
	if n > 0 {
		d.rejectedIndices.Add(uint64(n))
	}
}

// CountDeferredReload records a parameter change whose heavyweight rebuild
// was postponed because a previous rebuild was still in flight.
func (d *Diagnostics) CountDeferredReload() { d.deferredReloads.Add(1) }

// NotPrepared returns the number of Process calls made before Prepare.
func (d *Diagnostics) NotPrepared() uint64 { return d.notPrepared.Load() }

// ScrubbedSamples returns the number of non-finite samples replaced.
func (d *Diagnostics) ScrubbedSamples() uint64 { return d.scrubbedSamples.Load() }

// FailedAllocs returns the number of Prepare-time allocation failures.
func (d *Diagnostics) FailedAllocs() uint64 { return d.failedAllocs.Load() }

// RejectedIndices returns the number of unknown parameter indices seen.
func (d *Diagnostics) RejectedIndices() uint64 { return d.rejectedIndices.Load() }

// DeferredReloads returns the number of postponed heavyweight rebuilds.
func (d *Diagnostics) DeferredReloads() uint64 { return d.deferredReloads.Load() }
