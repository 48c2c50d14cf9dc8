package domain

import "errors"

var (
	// ErrMissingReferenceRate means a currency conversion series is absent from the raw table.
	ErrMissingReferenceRate = errors.New("missing reference exchange rate")
	// ErrInsufficientHistory means an asset flagged for back-fill has no observation at all.
	ErrInsufficientHistory = errors.New("insufficient history for synthetic back-fill")
	// ErrInsufficientUniverse means fewer than two assets survived a horizon's window.
	ErrInsufficientUniverse = errors.New("insufficient assets for horizon")
	// ErrInsufficientObservations means a window has too few rows to estimate a sample covariance.
	ErrInsufficientObservations = errors.New("insufficient observations in window")
	// ErrUnknownAsset means a referenced asset id or symbol is not in the table.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrEmptyTable means a stage received a table without rows.
	ErrEmptyTable = errors.New("empty price table")
)
