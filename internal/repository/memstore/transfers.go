package memstore

import (
	"context"
	"fmt"
	"sort"

	"varistock/internal/domain"
	"varistock/internal/errors"
)

// ApplyTransfer grava o novo inventário da entidade e acrescenta o registro ao histórico na mesma troca de estado.
// Se qualquer metade falhar, nenhuma fica visível.
func (s *Store) ApplyTransfer(ctx context.Context, entity domain.StockableEntity, record domain.TransferRecord) (domain.TransferRecord, error) {
	err := s.update(ctx, func(st *state) error {
		if record.ID == "" {
			record.ID = s.newID()
		}
		if record.Timestamp.IsZero() {
			record.Timestamp = s.nowFn()
		}
		for _, existing := range st.transfers {
			if existing.ID == record.ID {
				return errors.NewConflictError(fmt.Sprintf("Transferência %s já registrada.", record.ID))
			}
		}
		if record.Quantity <= 0 || record.FromWarehouseID == record.ToWarehouseID {
			return errors.NewValidationError("Registro de transferência inválido.")
		}

		if _, err := saveEntity(st, entity, s.nowFn); err != nil {
			return err
		}
		st.transfers = append(st.transfers, record)
		return nil
	})
	if err != nil {
		return domain.TransferRecord{}, err
	}
	s.logger.Debug("Transferência registrada em memória.", map[string]interface{}{"id": record.ID})
	return record, nil
}

// ListTransfers devolve cópias dos registros (mais recentes primeiro); o histórico interno nunca é exposto.
func (s *Store) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.TransferRecord, error) {
	var out []domain.TransferRecord
	err := s.view(ctx, func(st *state) error {
		for i := len(st.transfers) - 1; i >= 0; i-- {
			if filter.Matches(st.transfers[i]) {
				out = append(out, st.transfers[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// FindTransferByID busca um registro do histórico.
func (s *Store) FindTransferByID(ctx context.Context, id string) (domain.TransferRecord, error) {
	var out domain.TransferRecord
	err := s.view(ctx, func(st *state) error {
		for _, r := range st.transfers {
			if r.ID == id {
				out = r
				return nil
			}
		}
		return errors.NewNotFoundError(fmt.Sprintf("Transferência com ID %s não encontrada.", id))
	})
	return out, err
}
