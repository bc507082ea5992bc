package router

import (
	"context"

	"github.com/driftlabs/driftpay-backend/internal/analytics/types"
)

type fakeWriter struct {
	saleRows       []types.SaleFactRow
	settlementRows []types.SettlementFactRow
}

func (f *fakeWriter) InsertSaleFact(_ context.Context, row types.SaleFactRow) error {
	f.saleRows = append(f.saleRows, row)
	return nil
}

func (f *fakeWriter) InsertSettlementFact(_ context.Context, row types.SettlementFactRow) error {
	f.settlementRows = append(f.settlementRows, row)
	return nil
}
