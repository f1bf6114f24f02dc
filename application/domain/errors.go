package domain

import "errors"

// ゲーム操作のエラー分類。Persistence / Integration は当該リクエストに限り
// 内部エラーとして扱い、それ以外は利用者へそのまま提示できる想定内の結果。
var (
	ErrNotFound          = errors.New("game: not found")
	ErrInvalidRequest    = errors.New("game: invalid request")
	ErrInsufficientFunds = errors.New("game: not enough money")
	ErrAlreadyApplied    = errors.New("game: control measure already applied at this level")
	ErrNotApplied        = errors.New("game: control measure was not applied")
	ErrPersistence       = errors.New("game: persistence failure")
	ErrIntegration       = errors.New("game: integration failure")
)

// IsInternal はエラーがセッションへ詳細を返すべきでない内部障害かを判定します。
func IsInternal(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrIntegration)
}
