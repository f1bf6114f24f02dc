package domain

// SimulatorResponse はシミュレーション結果の送信用表現。
// Payload には人口スケール済みの軌道テキストが入る。
type SimulatorResponse struct {
	Date                    float64 `json:"date"`
	Region                  int     `json:"region"`
	Payload                 string  `json:"payload"`
	IdealReproductionNumber float64 `json:"ideal_reproduction_number"`
	ComplianceFactor        float64 `json:"compliance_factor"`
	RecoveryRate            float64 `json:"recovery_rate"`
	InfectionRate           float64 `json:"infection_rate"`
}

// ActionResponse は対策・イベント操作の結果。IsSuccess は介入が裏目に
// 出なかったかどうかを示す。
type ActionResponse struct {
	SimulationData SimulatorResponse `json:"simulation_data"`
	Description    string            `json:"description"`
	IsSuccess      bool              `json:"is_success"`
}

// EventInfo は保留中イベントの提示用表現。
type EventInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ParamsDelta Delta  `json:"params_delta"`
	Region      int    `json:"region"`
	Reward      int64  `json:"reward"`
}
