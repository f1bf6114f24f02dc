package domain

// TunableCount は操作対象のパラメータ数（ideal_reproduction_number,
// compliance_factor, recovery_rate, infection_rate の4つ）。
const TunableCount = 4

// Delta は4つの操作対象パラメータへの変化量。
type Delta [TunableCount]float64

// Range は1パラメータの許容範囲。
type Range struct {
	Min float64
	Max float64
}

// Limits は操作対象パラメータごとの許容範囲。プロセス生存中は不変。
type Limits [TunableCount]Range

// SimulationParams は1地域の感染症パラメータの永続スナップショット。
// S+E+I+R は人口比で1に正規化された状態で保持する。
type SimulationParams struct {
	Susceptible               float64 `json:"susceptible" yaml:"susceptible"`
	Exposed                   float64 `json:"exposed" yaml:"exposed"`
	Infectious                float64 `json:"infectious" yaml:"infectious"`
	Removed                   float64 `json:"removed" yaml:"removed"`
	CurrentReproductionNumber float64 `json:"current_reproduction_number" yaml:"current_reproduction_number"`
	IdealReproductionNumber   float64 `json:"ideal_reproduction_number" yaml:"ideal_reproduction_number"`
	ComplianceFactor          float64 `json:"compliance_factor" yaml:"compliance_factor"`
	RecoveryRate              float64 `json:"recovery_rate" yaml:"recovery_rate"`
	InfectionRate             float64 `json:"infection_rate" yaml:"infection_rate"`
}

// Tunables は操作対象パラメータを Delta の並び順で返します。
func (p SimulationParams) Tunables() Delta {
	return Delta{
		p.IdealReproductionNumber,
		p.ComplianceFactor,
		p.RecoveryRate,
		p.InfectionRate,
	}
}

// WithTunables は操作対象パラメータを差し替えたコピーを返します。
func (p SimulationParams) WithTunables(t Delta) SimulationParams {
	p.IdealReproductionNumber = t[0]
	p.ComplianceFactor = t[1]
	p.RecoveryRate = t[2]
	p.InfectionRate = t[3]
	return p
}

// ApplyDelta は既存の変化量と要求された変化量の差分を受信パラメータへ適用し、
// 許容範囲に丸めた結果を返します。添字間の依存はなく、有限入力に対して常に成功します。
func ApplyDelta(existing, target, received Delta, limits Limits) Delta {
	var changed Delta
	for i := 0; i < TunableCount; i++ {
		v := received[i] + (target[i] - existing[i])
		if v < limits[i].Min {
			v = limits[i].Min
		} else if v > limits[i].Max {
			v = limits[i].Max
		}
		changed[i] = v
	}
	return changed
}

// MessUpDelta は介入失敗時の変化量変換。先頭成分は符号反転、続く2成分は
// 負方向へ、最終成分は正方向へ倒す。裏目に出た介入をモデル化する。
func MessUpDelta(d Delta) Delta {
	return Delta{
		-d[0],
		-abs(d[1]),
		-abs(d[2]),
		abs(d[3]),
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
