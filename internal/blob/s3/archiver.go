package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// Archiver uploads a resolved market's final state and full trade history to
// blob storage as newline-delimited JSON, one file per market. Archives are
// write-once: the market is terminal by the time it is archived, so the
// object is never rewritten.
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver creates an Archiver that uploads through the given writer.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveMarket serializes the market followed by its trades to JSONL and
// uploads the result to archive/markets/YYYY-MM/market-<id>.jsonl. The first
// line is the market record, each subsequent line one trade.
func (a *Archiver) ArchiveMarket(ctx context.Context, m domain.Market, trades []domain.Trade) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("s3blob: archive market %d: marshal market: %w", m.ID, err)
	}
	for i, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("s3blob: archive market %d: marshal trade %d: %w", m.ID, i, err)
		}
	}

	path := archivePath(m.ID, m.UpdatedAt)
	if err := a.writer.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive market %d: upload: %w", m.ID, err)
	}
	return nil
}

// archivePath builds the S3 key for a market archive, partitioned by the
// year-month of the market's resolution time.
//
//	archive/markets/2026-03/market-42.jsonl
func archivePath(marketID uint64, resolvedAt time.Time) string {
	return fmt.Sprintf("archive/markets/%s/market-%d.jsonl", resolvedAt.UTC().Format("2006-01"), marketID)
}
