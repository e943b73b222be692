package repository

import "context"

// 住所帳への保存窓口。注文確定後のbest-effort呼び出し専用。
type AddressRepository interface {
	// 注文のスナップショットから住所を保存。makeDefaultなら既存デフォルトを外す。
	SaveFromOrder(ctx context.Context, memberID int64, receiver, postcode, addrDetail string, makeDefault bool) error
}
