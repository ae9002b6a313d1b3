package service

import (
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// SystemClock implements domain.Clock with the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

var _ domain.Clock = SystemClock{}
