package service

// ProximityDetector fires a one-shot "near" side effect the first time the
// distance between the parties drops below the threshold while both
// positions are known. Edge-triggered and latched: it never re-fires when
// the distance rises and drops again; only session teardown resets it (by
// discarding the detector).
type ProximityDetector struct {
	threshold float64
	fired     bool
	onNear    func(distanceMeters float64)
}

func NewProximityDetector(thresholdMeters float64, onNear func(distanceMeters float64)) *ProximityDetector {
	if onNear == nil {
		onNear = func(float64) {}
	}
	return &ProximityDetector{threshold: thresholdMeters, onNear: onNear}
}

// Observe feeds the detector one distance reading. It returns true only on
// the firing observation. An unknown distance (+Inf) never fires.
func (d *ProximityDetector) Observe(distanceMeters float64, bothKnown bool) bool {
	if d.fired || !bothKnown {
		return false
	}
	if distanceMeters < d.threshold {
		d.fired = true
		d.onNear(distanceMeters)
		return true
	}
	return false
}

// Fired reports whether the latch has tripped.
func (d *ProximityDetector) Fired() bool { return d.fired }
