package catalog

import (
	"outbreak/application/domain"
)

// ControlMeasureLevel はレベル1段階分の定義。
type ControlMeasureLevel struct {
	ParamsDelta domain.Delta `yaml:"params_delta"`
	Cost        int64        `yaml:"cost"`
}

// ControlMeasure は対策1種の定義。レベル別の効果と失敗確率を持つ。
// 実行時には変更されない読み取り専用データ。
type ControlMeasure struct {
	Description  string                      `yaml:"description"`
	Apply        string                      `yaml:"apply"`
	Remove       string                      `yaml:"remove"`
	MessUpChance float64                     `yaml:"mess_up_chance"`
	Levels       map[int]ControlMeasureLevel `yaml:"levels"`
}

// Event はイベント1件の定義。受諾時に delta を一度だけ加算する。
// Accept / Reject / Postpone は各操作の結果としてクライアントへ返す文面。
type Event struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	ParamsDelta domain.Delta `yaml:"params_delta"`
	Reward      int64        `yaml:"reward"`
	Region      int          `yaml:"region"`
	Accept      string       `yaml:"accept"`
	Reject      string       `yaml:"reject"`
	Postpone    string       `yaml:"postpone"`
}

// SeedSection はクライアント初期化用の1セクション分の初期値。
// JSONタグは送信時の表現、YAMLタグは定義ファイル上の表現。
type SeedSection struct {
	Population float64                 `yaml:"population" json:"population"`
	InitParams domain.SimulationParams `yaml:"init_params" json:"init_params"`
}

// Seed はレベル開始時にクライアントへ渡す初期化データ。
type Seed struct {
	NumSections int           `yaml:"num_sections" json:"num_sections"`
	SectionData []SeedSection `yaml:"section_data" json:"section_data"`
}

// StartParams は地域番号からシミュレーション初期パラメータへの写像。
type StartParams struct {
	Params map[int]domain.SimulationParams `yaml:"params"`
}
