package engine

import (
	"fmt"
	"math"

	"github.com/leosat/MMVJ/internal/config"
	"github.com/leosat/MMVJ/internal/pipeline"
	"github.com/leosat/MMVJ/internal/stage"
	"github.com/leosat/MMVJ/internal/value"
)

// holdResolver returns a reader for the current normalized value of an input
// control, for stages that reference another control by name.
type holdResolver func(value.Address) func() float64

// buildPipeline turns a validated transformation list into a live stage
// chain. Validation has already bounds-checked every parameter; this only
// materializes stages.
func buildPipeline(specs []config.StageSpec, resolve holdResolver) (*pipeline.Pipeline, error) {
	stages := make([]stage.Stage, 0, len(specs))
	for _, spec := range specs {
		st, err := buildStage(spec, resolve)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return pipeline.New(stages...), nil
}

func buildStage(spec config.StageSpec, resolve holdResolver) (stage.Stage, error) {
	p := spec.Params
	switch spec.Name {
	case "clamp":
		return stage.NewClamp(*p.Lo, *p.Hi, p.Override), nil
	case "invert":
		return stage.NewInvert(), nil
	case "deadzone":
		return stage.NewDeadzone(p.Width), nil
	case "integrate":
		rng := value.Range{Lo: *p.Lo, Hi: *p.Hi, Default: *p.Lo}
		if p.Default != nil {
			rng.Default = *p.Default
		}
		return stage.NewIntegrate(rng, p.LeakHalfLife), nil
	case "linear":
		return stage.NewCurve(stage.CurveLinear, 0, 0), nil
	case "quadratic":
		return stage.NewCurve(stage.CurveQuadratic, 0, 0), nil
	case "cubic":
		return stage.NewCurve(stage.CurveCubic, 0, 0), nil
	case "smoothstep":
		return stage.NewCurve(stage.CurveSmoothstep, 0, 0), nil
	case "smootherstep":
		return stage.NewCurve(stage.CurveSmootherstep, 0, 0), nil
	case "s_curve":
		return stage.NewCurve(stage.CurveSCurve, p.K, 0), nil
	case "exponential":
		return stage.NewCurve(stage.CurveExponential, 0, p.Base), nil
	case "moving_average":
		return stage.NewMovingAverage(p.Window), nil
	case "pedal_filter":
		ped := stage.NewPedalFilter(p.RiseRate, p.FallRate, p.FallTimeout)
		if p.FallHoldRef != nil {
			ped.HoldSource = resolve(value.Address{
				Device:  p.FallHoldRef.Device,
				Control: p.FallHoldRef.Control,
			})
		}
		return ped, nil
	case "steering":
		half := p.AutocenterHalfLife
		if math.IsInf(half, 1) {
			half = 0
		}
		return stage.NewSteering(p.Sensitivity, half, p.HoldFactor, p.FFScale, p.Alpha), nil
	default:
		return nil, fmt.Errorf("%w: unknown stage %q", ErrConfigInvalid, spec.Name)
	}
}

// sourceTemplate shapes the sample an input control produces, so executors
// can synthesize idle-tick input with the right relativity and range.
func sourceTemplate(cfg *config.Config, ref config.SourceRef) (value.Sample, error) {
	if dev, ok := cfg.MIDIDevices[ref.Device]; ok {
		key, ok := dev.Controls[ref.Control]
		if !ok {
			return value.Sample{}, fmt.Errorf("%w: unknown control %s.%s", ErrConfigInvalid, ref.Device, ref.Control)
		}
		if key.Kind == config.MIDIPitchWheel {
			return value.Abs(value.Symmetric, 0), nil
		}
		return value.Abs(value.Unipolar, 0), nil
	}
	if dev, ok := cfg.MouseDevices[ref.Device]; ok {
		key, ok := dev.Controls[ref.Control]
		if !ok {
			return value.Sample{}, fmt.Errorf("%w: unknown control %s.%s", ErrConfigInvalid, ref.Device, ref.Control)
		}
		switch key.Kind {
		case config.PointerRel, config.PointerWheel:
			return value.Rel(value.Symmetric, 0), nil
		case config.PointerButton:
			return value.Abs(value.Button, 0), nil
		default:
			return value.Abs(value.Symmetric, 0), nil
		}
	}
	return value.Sample{}, fmt.Errorf("%w: unknown device %q", ErrConfigInvalid, ref.Device)
}
