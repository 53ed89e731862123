package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts time.Now so services and the scheduler stay deterministic
// under test.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func NewRealClock() Clock {
	return realClock{}
}

var Module = fx.Module("clock",
	fx.Provide(NewRealClock),
)
