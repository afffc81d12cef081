package follow

import "time"

// Ticker is a restartable periodic timer. C returns nil while stopped so a
// select on it blocks forever.
type Ticker interface {
	// Reset starts the ticker or changes its period.
	Reset(d time.Duration)
	Stop()
	Active() bool
	Period() time.Duration
	C() <-chan time.Time
}

// TimeTicker implements Ticker on top of time.Ticker.
type TimeTicker struct {
	t      *time.Ticker
	period time.Duration
	active bool
}

var _ Ticker = (*TimeTicker)(nil)

func NewTimeTicker() *TimeTicker {
	return &TimeTicker{}
}

func (t *TimeTicker) Reset(d time.Duration) {
	if d <= 0 {
		t.Stop()
		return
	}
	switch {
	case t.t == nil:
		t.t = time.NewTicker(d)
	case !t.active || d != t.period:
		t.t.Reset(d)
	}
	t.period = d
	t.active = true
}

func (t *TimeTicker) Stop() {
	if t.t != nil {
		t.t.Stop()
	}
	t.active = false
}

func (t *TimeTicker) Active() bool { return t.active }

func (t *TimeTicker) Period() time.Duration {
	if !t.active {
		return 0
	}
	return t.period
}

func (t *TimeTicker) C() <-chan time.Time {
	if !t.active {
		return nil
	}
	return t.t.C
}
