package ingestion

import (
	"context"
	"fmt"

	"tradeblocks/internal/domain"
	"tradeblocks/internal/idhash"
)

// LoadOptions configures LoadTrades and LoadDailyLog.
type LoadOptions struct {
	Mapping HeaderMapping // nil uses the default mapping for the file kind

	// Per-kind overrides merged on top of Mapping (or the default).
	TradeHeaders    HeaderMapping
	DailyLogHeaders HeaderMapping

	ChunkSize  int
	OnProgress ProgressFunc
}

// TradeLoadResult is the outcome of loading a trade log.
type TradeLoadResult struct {
	DatasetKey  string
	Trades      []*domain.Trade // sorted by (date_opened, row_index)
	Rejections  []*RowRejection
	ParseErrors []ParseError
	Unmapped    []string
	TotalRows   int
}

// DailyLogLoadResult is the outcome of loading a daily log.
type DailyLogLoadResult struct {
	DatasetKey  string
	Entries     []*domain.DailyLogEntry // sorted by date
	Rejections  []*RowRejection
	ParseErrors []ParseError
	Unmapped    []string
	TotalRows   int
}

// Failed returns an error when strict is set and any row was skipped.
func (r *TradeLoadResult) Failed(strict bool) error {
	return failed(strict, r.Rejections, r.ParseErrors)
}

// Failed returns an error when strict is set and any row was skipped.
func (r *DailyLogLoadResult) Failed(strict bool) error {
	return failed(strict, r.Rejections, r.ParseErrors)
}

func failed(strict bool, rejections []*RowRejection, parseErrors []ParseError) error {
	if !strict {
		return nil
	}
	if len(rejections) > 0 {
		return fmt.Errorf("%d rows rejected, first: %w", len(rejections), rejections[0])
	}
	if len(parseErrors) > 0 {
		return fmt.Errorf("%w: %d unreadable rows, first: %s", domain.ErrParseFailure, len(parseErrors), parseErrors[0].Error())
	}
	return nil
}

func newParser(opts LoadOptions) *Parser {
	return NewParser().WithChunkSize(opts.ChunkSize).WithProgress(opts.OnProgress)
}

// LoadTrades parses and validates a trade log.
// Rejected rows are collected, never fatal; the remaining trades are sorted chronologically.
func LoadTrades(ctx context.Context, data []byte, opts LoadOptions) (*TradeLoadResult, error) {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = DefaultTradeMapping()
	}
	mapping = mapping.Merge(opts.TradeHeaders)

	parsed, err := newParser(opts).Parse(ctx, data, mapping)
	if err != nil {
		return nil, fmt.Errorf("parse trade log: %w", err)
	}

	result := &TradeLoadResult{
		DatasetKey:  idhash.ComputeDatasetKey(data),
		ParseErrors: parsed.Errors,
		Unmapped:    parsed.Unmapped,
		TotalRows:   parsed.TotalRows,
		Trades:      make([]*domain.Trade, 0, len(parsed.Rows)),
	}
	for _, row := range parsed.Rows {
		trade, rej := ValidateTradeRow(row.Fields, row.Index)
		if rej != nil {
			result.Rejections = append(result.Rejections, rej)
			continue
		}
		trade.TradeID = idhash.ComputeTradeID(
			result.DatasetKey,
			trade.RowIndex,
			trade.DateOpened.Format("2006-01-02"),
			trade.TimeOpened,
			trade.Strategy,
			trade.PL,
		)
		result.Trades = append(result.Trades, trade)
	}

	SortTrades(result.Trades)
	return result, nil
}

// LoadDailyLog parses and validates a daily log.
func LoadDailyLog(ctx context.Context, data []byte, opts LoadOptions) (*DailyLogLoadResult, error) {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = DefaultDailyLogMapping()
	}
	mapping = mapping.Merge(opts.DailyLogHeaders)

	parsed, err := newParser(opts).Parse(ctx, data, mapping)
	if err != nil {
		return nil, fmt.Errorf("parse daily log: %w", err)
	}

	result := &DailyLogLoadResult{
		DatasetKey:  idhash.ComputeDatasetKey(data),
		ParseErrors: parsed.Errors,
		Unmapped:    parsed.Unmapped,
		TotalRows:   parsed.TotalRows,
		Entries:     make([]*domain.DailyLogEntry, 0, len(parsed.Rows)),
	}
	for _, row := range parsed.Rows {
		entry, rej := ValidateDailyLogRow(row.Fields, row.Index)
		if rej != nil {
			result.Rejections = append(result.Rejections, rej)
			continue
		}
		result.Entries = append(result.Entries, entry)
	}

	SortDailyLog(result.Entries)
	return result, nil
}

// FilterByStrategy returns trades whose strategy equals name. Empty name returns trades unchanged.
func FilterByStrategy(trades []*domain.Trade, name string) []*domain.Trade {
	if name == "" {
		return trades
	}
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Strategy == name {
			out = append(out, t)
		}
	}
	return out
}
