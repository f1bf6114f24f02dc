package state

import (
	"context"

	"outbreak/application/domain"
)

//go:generate go tool mockgen -destination=./mocks/repository_mock.go -package=mocks . Repository

// Repository は (player, region) 単位で永続化された行への入出力境界です。
// 読み取りはスナップショットを返し、書き込みは Apply にまとめて渡します。
type Repository interface {
	// PlayerByEmail はメールアドレスでプレイヤーを引きます。
	// 存在しなければ domain.ErrNotFound を返します。
	PlayerByEmail(ctx context.Context, email string) (domain.Player, error)

	// CreatePlayer はプレイヤー行を新規作成します。認証層の外側
	// （プロビジョニングとテスト）からのみ呼ばれます。
	CreatePlayer(ctx context.Context, email string) (domain.Player, error)

	// EnsureStatus はプレイヤーのstatus行を返し、なければ作成して紐付けます。
	EnsureStatus(ctx context.Context, playerID int64) (domain.Status, error)

	// Status はstatus行を返します。存在しなければ domain.ErrNotFound。
	Status(ctx context.Context, statusID int64) (domain.Status, error)

	// Region はstatusに属する地域を返します。存在しなければ domain.ErrNotFound。
	Region(ctx context.Context, statusID int64, regionID int) (domain.Region, error)

	// CreateRegion は地域行を新規作成します。既に存在する場合は既存の行を返します。
	CreateRegion(ctx context.Context, statusID int64, regionID int) (domain.Region, error)

	// Apply は一連の書き込みを全て適用するか、全く適用しないかのいずれかです。
	// 途中で失敗した場合、それまでの変更は残りません。
	Apply(ctx context.Context, ops []WriteOp) error
}

// WriteOp は Apply に渡す書き込み操作の閉じた和型です。
type WriteOp interface {
	writeOp()
}

// PutRegion は地域のシミュレーションパラメータとACM写像を丸ごと置き換えます。
type PutRegion struct {
	StatusID int64
	Region   domain.Region
}

// PutStatus はstatus行を丸ごと置き換えます。
type PutStatus struct {
	Status domain.Status
}

// AddMoney はプレイヤーの所持金に差分を加えます。負値は減算。
type AddMoney struct {
	PlayerID int64
	Delta    int64
}

func (PutRegion) writeOp() {}
func (PutStatus) writeOp() {}
func (AddMoney) writeOp()  {}
