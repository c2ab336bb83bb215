package control

import (
	"errors"
	"fmt"
	"math"

	"smart-led-controller/backend/pkg/utils"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidCommand = errors.New("invalid command payload")
)

const (
	CommandSetManualMode     = "setManualMode"
	CommandSetSimulationMode = "setSimulationMode"
	CommandUpdateSimulation  = "updateSimulation"
	CommandSetManualPWM      = "setManualPWM"
)

// CommandNames lists every accepted command in a stable order.
var CommandNames = []string{
	CommandSetManualMode,
	CommandSetSimulationMode,
	CommandUpdateSimulation,
	CommandSetManualPWM,
}

// Command is the closed set of state changes an operator can request.
type Command interface {
	Name() string
	command()
}

type ManualMode struct {
	Enabled bool
	PWM     int
}

type SimulationMode struct {
	Enabled   bool
	Sunlight  float64
	Occupancy int
}

type UpdateSimulation struct {
	Sunlight  float64
	Occupancy int
}

type ManualPWM struct {
	PWM int
}

func (ManualMode) Name() string       { return CommandSetManualMode }
func (SimulationMode) Name() string   { return CommandSetSimulationMode }
func (UpdateSimulation) Name() string { return CommandUpdateSimulation }
func (ManualPWM) Name() string        { return CommandSetManualPWM }

func (ManualMode) command()       {}
func (SimulationMode) command()   {}
func (UpdateSimulation) command() {}
func (ManualPWM) command()        {}

// Apply mutates e according to cmd.
func Apply(e *Engine, cmd Command) error {
	switch c := cmd.(type) {
	case ManualMode:
		e.SetManualMode(c.Enabled, c.PWM)
	case SimulationMode:
		e.SetSimulationMode(c.Enabled, c.Sunlight, c.Occupancy)
	case UpdateSimulation:
		e.UpdateSimulation(c.Sunlight, c.Occupancy)
	case ManualPWM:
		e.SetManualPWM(c.PWM)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	return nil
}

type manualModePayload struct {
	Enabled bool     `json:"enabled"`
	PWM     *float64 `json:"pwm"`
}

type simulationModePayload struct {
	Enabled   bool     `json:"enabled"`
	Sunlight  *float64 `json:"sunlight"`
	Occupancy *float64 `json:"occupancy"`
}

type updateSimulationPayload struct {
	Sunlight  *float64 `json:"sunlight"`
	Occupancy *float64 `json:"occupancy"`
}

type manualPWMPayload struct {
	PWM *float64 `json:"pwm"`
}

func orDefault(v *float64, def float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	return *v
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

// DecodeCommand parses a named command and its JSON payload as received from any
// transport. Missing optional fields fall back to the controller defaults.
func DecodeCommand(name string, data []byte) (Command, error) {
	switch name {
	case CommandSetManualMode:
		p, err := utils.FromJSON[manualModePayload](data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCommand, name, err)
		}
		return ManualMode{Enabled: p.Enabled, PWM: roundInt(orDefault(p.PWM, DefaultManualPWM))}, nil

	case CommandSetSimulationMode:
		p, err := utils.FromJSON[simulationModePayload](data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCommand, name, err)
		}
		return SimulationMode{
			Enabled:   p.Enabled,
			Sunlight:  orDefault(p.Sunlight, DefaultSimulatedSunlight),
			Occupancy: roundInt(orDefault(p.Occupancy, DefaultSimulatedOccupancy)),
		}, nil

	case CommandUpdateSimulation:
		p, err := utils.FromJSON[updateSimulationPayload](data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCommand, name, err)
		}
		if p.Sunlight == nil || p.Occupancy == nil {
			return nil, fmt.Errorf("%w: %s requires sunlight and occupancy", ErrInvalidCommand, name)
		}
		return UpdateSimulation{Sunlight: *p.Sunlight, Occupancy: roundInt(*p.Occupancy)}, nil

	case CommandSetManualPWM:
		// The payload is a bare number; an object with a pwm field is also accepted.
		if raw, err := utils.FromJSON[*float64](data); err == nil && raw != nil {
			return ManualPWM{PWM: roundInt(*raw)}, nil
		}
		p, err := utils.FromJSON[manualPWMPayload](data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidCommand, name, err)
		}
		if p.PWM == nil {
			return nil, fmt.Errorf("%w: %s requires pwm", ErrInvalidCommand, name)
		}
		return ManualPWM{PWM: roundInt(*p.PWM)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}
