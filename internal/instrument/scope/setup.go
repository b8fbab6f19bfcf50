package scope

import (
	"errors"
	"fmt"
)

// ErrAverageCount is returned when an average count is not a power of two
var ErrAverageCount = errors.New("average count must be a positive power of 2")

// ChannelSetup configures one analog channel. Nil fields are left untouched.
type ChannelSetup struct {
	BandwidthLimit *bool     `yaml:"bandwidth_limit" json:"bandwidth_limit,omitempty"`
	Coupling       *Coupling `yaml:"coupling" json:"coupling,omitempty"`
	Probe          *int      `yaml:"probe" json:"probe,omitempty"`
	Range          *float64  `yaml:"range" json:"range,omitempty"`
	Scale          *float64  `yaml:"scale" json:"scale,omitempty"`
	Display        *bool     `yaml:"display" json:"display,omitempty"`
	Offset         *float64  `yaml:"offset" json:"offset,omitempty"`
}

func (s *ChannelSetup) Validate() error {
	if s.Probe != nil && *s.Probe <= 0 {
		return fmt.Errorf("scope.ChannelSetup: probe factor must be positive: %d given", *s.Probe)
	}
	if s.Range != nil && *s.Range <= 0 {
		return fmt.Errorf("scope.ChannelSetup: range must be positive: %g given", *s.Range)
	}
	if s.Scale != nil && *s.Scale <= 0 {
		return fmt.Errorf("scope.ChannelSetup: scale must be positive: %g given", *s.Scale)
	}
	return nil
}

// TriggerSetup configures the trigger system. Nil fields are left untouched.
type TriggerSetup struct {
	Mode       *TriggerMode  `yaml:"trigger-mode" json:"trigger-mode,omitempty"`
	Sweep      *TriggerSweep `yaml:"trigger-sweep" json:"trigger-sweep,omitempty"`
	EdgeLevel  *float64      `yaml:"trigger-edge-level" json:"trigger-edge-level,omitempty"`
	EdgeSource *Source       `yaml:"trigger-edge-source" json:"trigger-edge-source,omitempty"`
	EdgeSlope  *TriggerSlope `yaml:"trigger-edge-slope" json:"trigger-edge-slope,omitempty"`
	HFReject   *bool         `yaml:"hf-reject" json:"hf-reject,omitempty"`
	NReject    *bool         `yaml:"n-reject" json:"n-reject,omitempty"`
}

// TimebaseSetup configures the horizontal system. Nil fields are left untouched.
type TimebaseSetup struct {
	Mode  *TimebaseMode `yaml:"timebase-mode" json:"timebase-mode,omitempty"`
	Range *float64      `yaml:"timebase-range" json:"timebase-range,omitempty"`
	Scale *float64      `yaml:"timebase-scale" json:"timebase-scale,omitempty"`
}

// AcquireSetup configures acquisition. Nil fields are left untouched.
type AcquireSetup struct {
	Mode         *AcquireMode `yaml:"acquire-mode" json:"acquire-mode,omitempty"`
	AverageCount *int         `yaml:"average-count" json:"average-count,omitempty"`
}

func (s *AcquireSetup) Validate() error {
	if s.AverageCount != nil {
		return ValidateAverageCount(*s.AverageCount)
	}
	return nil
}

// ValidateAverageCount checks that count is a positive power of two
func ValidateAverageCount(count int) error {
	if count <= 0 || count&(count-1) != 0 {
		return fmt.Errorf("%w: %d given", ErrAverageCount, count)
	}
	return nil
}
