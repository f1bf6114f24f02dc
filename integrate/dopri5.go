package integrate

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInterval は積分区間が不正な場合に返されるエラーです。
	ErrInvalidInterval = errors.New("integrate: invalid interval")
	// ErrInvalidTolerance は許容誤差が不正な場合に返されるエラーです。
	ErrInvalidTolerance = errors.New("integrate: tolerance must be positive")
	// ErrNonFinite は状態または導関数が有限でなくなった場合に返されるエラーです。
	ErrNonFinite = errors.New("integrate: non-finite value encountered")
	// ErrStepLimit はステップ数の上限に達した場合に返されるエラーです。
	ErrStepLimit = errors.New("integrate: maximum number of steps exceeded")
	// ErrMissingSystem はSystemがnilの場合に返されるエラーです。
	ErrMissingSystem = errors.New("integrate: system is required")
)

// System は一階常微分方程式系 dy/dt = f(t, y) を表します。
// Derivatives は dy に導関数を書き込みます。len(dy) == len(y) が保証されます。
type System interface {
	Derivatives(t float64, y []float64, dy []float64)
}

// Dormand–Prince 5(4) のブッチャー配列。
// e は5次解と埋め込み4次解の差の係数。
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

// ステップ制御パラメータ（Hairer & Wanner の標準値）。
const (
	stepSafety = 0.9
	stepFacMin = 0.2
	stepFacMax = 10.0
	maxSteps   = 1_000_000
)

// Dopri5 は適応刻み幅の陽的Runge-Kutta法（5次、4次誤差推定）による積分器です。
// 1回の積分ごとに新しいインスタンスを生成して使います。共有可能な内部状態は持ちません。
type Dopri5 struct {
	sys        System
	t0, t1     float64
	h          float64
	rtol, atol float64

	y    []float64
	k    [7][]float64
	tOut []float64
	yOut [][]float64
}

// NewDopri5 は積分器を生成します。
// h0 は初期刻み幅で、区間長を超える場合は切り詰められます。
func NewDopri5(sys System, t0, t1, h0 float64, y0 []float64, rtol, atol float64) (*Dopri5, error) {
	if sys == nil {
		return nil, ErrMissingSystem
	}
	if !(t1 > t0) || !isFinite(t0) || !isFinite(t1) {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrInvalidInterval, t0, t1)
	}
	if rtol <= 0 || atol <= 0 {
		return nil, fmt.Errorf("%w: rtol=%g atol=%g", ErrInvalidTolerance, rtol, atol)
	}
	if h0 <= 0 || h0 > t1-t0 {
		h0 = t1 - t0
	}
	s := &Dopri5{
		sys:  sys,
		t0:   t0,
		t1:   t1,
		h:    h0,
		rtol: rtol,
		atol: atol,
		y:    append([]float64(nil), y0...),
	}
	for i := range s.k {
		s.k[i] = make([]float64, len(y0))
	}
	return s, nil
}

// Integrate は [t0, t1] を積分し、採択された各ステップの状態を記録します。
// 途中で継続不能になった場合はエラーを返し、軌道は部分的にも返しません。
func (s *Dopri5) Integrate() error {
	n := len(s.y)
	t := s.t0

	s.tOut = append(s.tOut, t)
	s.yOut = append(s.yOut, append([]float64(nil), s.y...))

	if err := s.derive(t, s.y, s.k[0]); err != nil {
		return err
	}

	yTmp := make([]float64, n)
	yNew := make([]float64, n)

	for step := 0; ; step++ {
		if step >= maxSteps {
			return fmt.Errorf("%w: %d", ErrStepLimit, maxSteps)
		}
		if t >= s.t1 {
			return nil
		}
		if t+s.h > s.t1 {
			s.h = s.t1 - t
		}

		// 2..7段目を評価（1段目はFSALにより前ステップの最終段を再利用）
		for stage := 1; stage < 7; stage++ {
			for i := 0; i < n; i++ {
				sum := 0.0
				for j := 0; j < stage; j++ {
					sum += dpA[stage][j] * s.k[j][i]
				}
				yTmp[i] = s.y[i] + s.h*sum
			}
			if err := s.derive(t+dpC[stage]*s.h, yTmp, s.k[stage]); err != nil {
				return err
			}
		}
		// 7段目の評価点が次ステップの解（a7の係数はbと一致する）
		copy(yNew, yTmp)

		errNorm := s.errorNorm(yNew)
		if !isFinite(errNorm) {
			return fmt.Errorf("%w: error norm at t=%g", ErrNonFinite, t)
		}

		if errNorm <= 1 {
			t += s.h
			copy(s.y, yNew)
			copy(s.k[0], s.k[6]) // FSAL
			s.tOut = append(s.tOut, t)
			s.yOut = append(s.yOut, append([]float64(nil), s.y...))
		}

		fac := stepSafety * math.Pow(errNorm, -1.0/5.0)
		if fac < stepFacMin {
			fac = stepFacMin
		} else if fac > stepFacMax {
			fac = stepFacMax
		}
		s.h *= fac
		if s.h <= 0 || !isFinite(s.h) {
			return fmt.Errorf("%w: step size underflow at t=%g", ErrNonFinite, t)
		}
	}
}

// TOut は採択されたステップの時刻列を返します。
func (s *Dopri5) TOut() []float64 { return s.tOut }

// YOut は採択されたステップの状態列を返します。先頭は初期状態です。
func (s *Dopri5) YOut() [][]float64 { return s.yOut }

func (s *Dopri5) derive(t float64, y, dy []float64) error {
	for _, v := range y {
		if !isFinite(v) {
			return fmt.Errorf("%w: state at t=%g", ErrNonFinite, t)
		}
	}
	s.sys.Derivatives(t, y, dy)
	for _, v := range dy {
		if !isFinite(v) {
			return fmt.Errorf("%w: derivative at t=%g", ErrNonFinite, t)
		}
	}
	return nil
}

// errorNorm は埋め込み4次解との差から混合許容誤差で正規化したRMSノルムを計算します。
func (s *Dopri5) errorNorm(yNew []float64) float64 {
	n := len(s.y)
	sum := 0.0
	for i := 0; i < n; i++ {
		e := 0.0
		for stage := 0; stage < 7; stage++ {
			e += dpE[stage] * s.k[stage][i]
		}
		e *= s.h
		sc := s.atol + s.rtol*math.Max(math.Abs(s.y[i]), math.Abs(yNew[i]))
		sum += (e / sc) * (e / sc)
	}
	return math.Sqrt(sum / float64(n))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
