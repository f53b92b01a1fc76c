package internal

import "fmt"

// normalizeRecords replaces the raw discount_rate and distance columns with
// numbers and adds is_full_reduction, full_cond and full_save.
func normalizeRecords(events *Table) (*Table, error) {
	infos := make([]DiscountInfo, events.Rows())
	t, err := events.Replace(ColumnDiscountRate, NumberColumn, func(r Row) (Cell, error) {
		info, err := NormalizeDiscount(optionalText(r, ColumnDiscountRate))
		if err != nil {
			return Cell{}, err
		}
		infos[r.Index()] = info
		return NumberCell(info.Rate), nil
	})
	if err != nil {
		return nil, fmt.Errorf("normalize discount: %w", err)
	}

	t, err = t.Derive(ColumnIsFullReduction, NumberColumn, func(r Row) (Cell, error) {
		if infos[r.Index()].IsFullReduction {
			return NumberCell(1), nil
		}
		return NumberCell(0), nil
	})
	if err != nil {
		return nil, err
	}
	t, err = t.Derive(ColumnFullCond, NumberColumn, func(r Row) (Cell, error) {
		return NumberCell(float64(infos[r.Index()].Condition)), nil
	})
	if err != nil {
		return nil, err
	}
	t, err = t.Derive(ColumnFullSave, NumberColumn, func(r Row) (Cell, error) {
		return NumberCell(float64(infos[r.Index()].Save)), nil
	})
	if err != nil {
		return nil, err
	}

	t, err = t.Replace(ColumnDistance, NumberColumn, func(r Row) (Cell, error) {
		d, err := NormalizeDistance(optionalText(r, ColumnDistance))
		if err != nil {
			return Cell{}, err
		}
		return NumberCell(float64(d)), nil
	})
	if err != nil {
		return nil, fmt.Errorf("normalize distance: %w", err)
	}
	return t, nil
}

// deriveLabels adds days_gap and label from date_received and date_used. A
// table without date_used labels every received coupon as unused.
func deriveLabels(events *Table) (*Table, error) {
	t, err := events.Derive(ColumnDaysGap, NumberColumn, func(r Row) (Cell, error) {
		received, used, err := rowDates(r)
		if err != nil {
			return Cell{}, err
		}
		return NumberCell(float64(DayGap(received, used))), nil
	})
	if err != nil {
		return nil, fmt.Errorf("derive days gap: %w", err)
	}

	return t.Derive(ColumnLabel, NumberColumn, func(r Row) (Cell, error) {
		received, used, err := rowDates(r)
		if err != nil {
			return Cell{}, err
		}
		return NumberCell(float64(DeriveLabel(received, used).ToInt())), nil
	})
}

func rowDates(r Row) (received, used *Date8, err error) {
	received, err = r.Date(ColumnDateReceived)
	if err != nil {
		return nil, nil, err
	}
	used, err = r.Date(ColumnDateUsed)
	if err != nil {
		return nil, nil, err
	}
	return received, used, nil
}

func optionalText(r Row, name string) *string {
	s, ok := r.Text(name)
	if !ok {
		return nil
	}
	return &s
}
