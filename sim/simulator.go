package sim

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"outbreak/application/domain"
	"outbreak/integrate"
)

// 許容誤差は絶対・相対とも 1e-10。
const (
	tolerance   = 1e-10
	initialStep = 1.0
)

// State は (S, E, I, R, Rt) の5成分。
type State [5]float64

// Simulator はSEIR+実効再生産数の連立常微分方程式系。
// 1回のシミュレーション中、パラメータは時間によらず一定とみなす。
//
// フィールド名は永続スナップショットの名前をそのまま引き継ぐ。数式上は
// RecoveryRate が伝播項の係数、InfectionRate がE→I遷移率として働くが、
// ここでは元の系をそのまま保存する。
type Simulator struct {
	params domain.SimulationParams
}

// NewSimulator はスナップショットからシミュレータを生成します。
func NewSimulator(params domain.SimulationParams) *Simulator {
	return &Simulator{params: params}
}

// Derivatives は integrate.System の実装。
//
//	dS  = -β·Rt·S·I
//	dE  =  β·Rt·S·I − σ·E
//	dI  =  σ·E − β·I
//	dR  =  β·I
//	dRt =  κ·(Rt_ideal − Rt)
func (s *Simulator) Derivatives(t float64, y, dy []float64) {
	beta := s.params.RecoveryRate
	sigma := s.params.InfectionRate
	kappa := s.params.ComplianceFactor

	transmission := beta * y[4] * y[0] * y[2]
	dy[0] = -transmission
	dy[1] = transmission - sigma*y[1]
	dy[2] = sigma*y[1] - beta*y[2]
	dy[3] = beta * y[2]
	dy[4] = kappa * (s.params.IdealReproductionNumber - y[4])
}

// Simulate は [t0, t1] を積分し、採択された各ステップの状態列を返します。
// 積分器はシミュレーションごとに新規生成され、共有状態を持ちません。
func (s *Simulator) Simulate(t0, t1 float64) ([]State, error) {
	y0 := []float64{
		s.params.Susceptible,
		s.params.Exposed,
		s.params.Infectious,
		s.params.Removed,
		s.params.CurrentReproductionNumber,
	}
	solver, err := integrate.NewDopri5(s, t0, t1, initialStep, y0, tolerance, tolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIntegration, err)
	}
	if err := solver.Integrate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIntegration, err)
	}

	out := solver.YOut()
	states := make([]State, len(out))
	for i, y := range out {
		copy(states[i][:], y)
	}
	return states, nil
}

// SerializeTrajectory は軌道を送信用テキストへ変換します。
// S,E,I,R は人口を乗じた頭数、Rt はそのまま出力する。
// 形式: [[S,E,I,R,Rt],[...],...]
func SerializeTrajectory(states []State, population float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, st := range states {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		for j, v := range st {
			if j > 0 {
				b.WriteByte(',')
			}
			if j == 4 {
				b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			} else {
				b.WriteString(strconv.FormatFloat(v*population, 'g', -1, 64))
			}
		}
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// Result は再シミュレーション1回分の成果。正規化済みの初期S,E,I,Rを併せて返す。
type Result struct {
	Payload     string
	Susceptible float64
	Exposed     float64
	Infectious  float64
	Removed     float64
	Final       State
}

// SimulateFrom は頭数表現のパラメータを人口で正規化し、changed を適用した上で
// 残り期間 [0, horizon−curDate] をシミュレートします。
func SimulateFrom(params domain.SimulationParams, changed domain.Delta, curDate, horizon, population float64) (Result, error) {
	if population <= 0 || !isFinite(population) {
		return Result{}, fmt.Errorf("%w: population %g", domain.ErrIntegration, population)
	}
	normalized := params
	normalized.Susceptible = params.Susceptible / population
	normalized.Exposed = params.Exposed / population
	normalized.Infectious = params.Infectious / population
	normalized.Removed = params.Removed / population
	normalized = normalized.WithTunables(changed)

	states, err := NewSimulator(normalized).Simulate(0, horizon-curDate)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Payload:     SerializeTrajectory(states, population),
		Susceptible: normalized.Susceptible,
		Exposed:     normalized.Exposed,
		Infectious:  normalized.Infectious,
		Removed:     normalized.Removed,
		Final:       states[len(states)-1],
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
