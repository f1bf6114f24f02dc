package service

import (
	"errors"
	"fmt"
	"math"

	"outbreak/application/domain"
	"outbreak/application/request"
)

// Validator はディスパッチ前の入力検証境界。
type Validator interface {
	Start(request.Start) error
	ControlMeasure(request.ControlMeasure) error
	Event(request.Event) error
	Save(request.Save) error
}

// SimpleValidator は最低限の入力検証を提供するデフォルト実装。
type SimpleValidator struct{}

func (SimpleValidator) Start(req request.Start) error {
	if req.Region < 0 {
		return fmt.Errorf("invalid region: %d", req.Region)
	}
	return nil
}

func (SimpleValidator) ControlMeasure(req request.ControlMeasure) error {
	if req.Name == "" {
		return errors.New("control measure name is required")
	}
	if req.Region < 0 {
		return fmt.Errorf("invalid region: %d", req.Region)
	}
	if req.Action == request.ControlApply && req.Level <= 0 {
		return fmt.Errorf("invalid level: %d", req.Level)
	}
	if !req.Action.Valid() {
		return fmt.Errorf("unknown action: %q", req.Action)
	}
	if err := validDate(req.CurDate); err != nil {
		return err
	}
	return validParams(req.Params)
}

func (SimpleValidator) Event(req request.Event) error {
	if !req.Action.Valid() {
		return fmt.Errorf("unknown action: %q", req.Action)
	}
	if req.Action != request.EventRequest && req.ID <= 0 {
		return fmt.Errorf("invalid event id: %d", req.ID)
	}
	if err := validDate(req.CurDate); err != nil {
		return err
	}
	if req.Action == request.EventAccept {
		return validParams(req.Params)
	}
	return nil
}

func (SimpleValidator) Save(req request.Save) error {
	if req.Region < 0 {
		return fmt.Errorf("invalid region: %d", req.Region)
	}
	if err := validDate(req.CurDate); err != nil {
		return err
	}
	return validParams(req.Params)
}

func validDate(d float64) error {
	if !isFinite(d) || d < 0 {
		return fmt.Errorf("invalid cur_date: %g", d)
	}
	return nil
}

func validParams(p domain.SimulationParams) error {
	fields := []float64{
		p.Susceptible, p.Exposed, p.Infectious, p.Removed,
		p.CurrentReproductionNumber, p.IdealReproductionNumber,
		p.ComplianceFactor, p.RecoveryRate, p.InfectionRate,
	}
	for _, f := range fields {
		if !isFinite(f) {
			return fmt.Errorf("non-finite simulation params: %+v", p)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
