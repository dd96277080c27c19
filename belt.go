package conveyor

import "sync"

// Belt simulation tunables. The dynamics are a first-order difference
// equation; fidelity is not the point, short critical sections are.
const (
	beltApproachGain = 0.05
	setpointStep     = 20.0
	setpointCeiling  = 500.0
	setpointWrap     = 120.0
)

// Belt is the shared plant state: measured rpm, setpoint rpm and belt
// position, guarded by a single mutex. All critical sections are plain
// arithmetic to bound priority-inversion blocking.
type Belt struct {
	mu       sync.Mutex
	measured float64
	setpoint float64
	position float64
}

func NewBelt(setpoint float64) *Belt {
	return &Belt{setpoint: setpoint}
}

// Step advances the simulation by dt seconds: the measured speed approaches
// the setpoint and the position integrates measured rpm.
func (b *Belt) Step(dt float64) {
	b.mu.Lock()
	b.measured += (b.setpoint - b.measured) * beltApproachGain
	b.position += b.measured / 60.0 * dt
	b.mu.Unlock()
}

// PIController holds the speed-loop gains and its clamped integrator.
type PIController struct {
	Kp, Ki   float64
	Limit    float64
	integral float64
}

// Correct runs one bounded PI update against the belt under the lock. The
// integrator is clamped to ±Limit (anti-windup) and so is the applied
// correction. A belt with a zero setpoint (e.g. after Stop) is held at rest:
// no correction is applied and the integrator is cleared.
func (b *Belt) Correct(pi *PIController, dt float64) {
	b.mu.Lock()
	if b.setpoint == 0 {
		pi.integral = 0
		b.mu.Unlock()
		return
	}
	err := b.setpoint - b.measured
	pi.integral += err * dt
	if pi.integral > pi.Limit {
		pi.integral = pi.Limit
	} else if pi.integral < -pi.Limit {
		pi.integral = -pi.Limit
	}
	u := pi.Kp*err + pi.Ki*pi.integral
	if u > pi.Limit {
		u = pi.Limit
	} else if u < -pi.Limit {
		u = -pi.Limit
	}
	b.measured += u * dt
	b.mu.Unlock()
}

// Stop is the e-stop action: both the setpoint and the measured speed go to
// zero immediately.
func (b *Belt) Stop() {
	b.mu.Lock()
	b.setpoint = 0
	b.measured = 0
	b.mu.Unlock()
}

// RaiseSetpoint bumps the setpoint by 20 rpm, wrapping back to 120 above
// 500. Returns the new setpoint.
func (b *Belt) RaiseSetpoint() float64 {
	b.mu.Lock()
	b.setpoint += setpointStep
	if b.setpoint > setpointCeiling {
		b.setpoint = setpointWrap
	}
	sp := b.setpoint
	b.mu.Unlock()
	return sp
}

// Snapshot returns the current measured rpm, setpoint rpm and position.
func (b *Belt) Snapshot() (measured, setpoint, position float64) {
	b.mu.Lock()
	measured, setpoint, position = b.measured, b.setpoint, b.position
	b.mu.Unlock()
	return
}
