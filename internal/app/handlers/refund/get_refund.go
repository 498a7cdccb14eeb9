package refund

import (
	"context"
	"errors"
	"strings"

	"luxrent/internal/app/dto"
	"luxrent/internal/app/policies"
	"luxrent/internal/app/queries"
)

const GetRefundKey = "refund.get"

type GetRefundQuery struct {
	BookingID string
}

func (q GetRefundQuery) Key() string { return GetRefundKey }

type GetRefundHandler struct {
	Ledger policies.RefundLedger
}

var ErrLedgerUnavailable = errors.New("refund: ledger unavailable")

func (h *GetRefundHandler) Handle(ctx context.Context, q GetRefundQuery) (*dto.RefundRecordDTO, error) {
	if h.Ledger == nil {
		return nil, ErrLedgerUnavailable
	}
	id := strings.TrimSpace(q.BookingID)
	if id == "" {
		return nil, policies.ErrRefundRecordNotFound
	}
	rec, err := h.Ledger.ByBookingID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewRefundRecordDTO(rec)
}

var _ queries.Handler[GetRefundQuery, *dto.RefundRecordDTO] = (*GetRefundHandler)(nil)
