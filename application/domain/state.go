package domain

// Player は認証済みユーザーのゲーム上の状態。
type Player struct {
	ID           int64
	Email        string
	Money        int64
	CurLevel     int
	IsRandomized bool
	StatusID     int64 // 0 はstatus未作成
}

// Status はプレイヤーごとの進行状態。CurrentEvent が 0 のときは保留中イベントなし。
type Status struct {
	ID           int64
	CurrentEvent int
	Postponed    int
	CurDate      float64
}

// ActiveControlMeasures は対策名から現在適用中のレベルへの写像。
// キーが存在しない場合は未適用を意味する。
type ActiveControlMeasures map[string]int

// Region はプレイヤーのstatusに属する1地域。初回参照時に遅延生成される。
type Region struct {
	ID                    int64
	RegionID              int
	Params                SimulationParams
	ActiveControlMeasures ActiveControlMeasures
}

// Clone はACM写像を含む深いコピーを返します。
func (r Region) Clone() Region {
	acm := make(ActiveControlMeasures, len(r.ActiveControlMeasures))
	for k, v := range r.ActiveControlMeasures {
		acm[k] = v
	}
	r.ActiveControlMeasures = acm
	return r
}
