package internal

import "errors"

var (
	ErrMalformedDiscount = errors.New("malformed discount rate")
	ErrMalformedDistance = errors.New("malformed distance")
	ErrMalformedDate     = errors.New("malformed date")
	ErrNonNumeric        = errors.New("non-numeric value")

	ErrUnknownColumn     = errors.New("unknown column")
	ErrColumnExists      = errors.New("column already exists")
	ErrDuplicateJoinKey  = errors.New("duplicate join key in right table")
	ErrColumnLength      = errors.New("column length mismatch")
	ErrUnknownVariant    = errors.New("unknown feature set variant")
	ErrUnknownStatistic  = errors.New("unknown statistic")
)
