package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
)

// BlobWriter is the upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// TradeArchiveStore is the narrow trade-store surface the archiver needs:
// time-ranged reads plus deletion of successfully archived rows.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves trades older than the retention window to object storage
// as JSON lines and deletes them from the primary store. The cutoff is
// always a reference-zone day boundary, so today's rows, and with them the
// live PnL invariants, are never touched.
type Archiver struct {
	writer    BlobWriter
	trades    TradeArchiveStore
	retention time.Duration
	clk       clock.Clock
	logger    *slog.Logger
}

// NewArchiver creates an Archiver keeping retentionDays of trades in the
// primary store.
func NewArchiver(writer BlobWriter, trades TradeArchiveStore, retentionDays int, clk clock.Clock, logger *slog.Logger) *Archiver {
	if retentionDays < 1 {
		retentionDays = 1
	}
	return &Archiver{
		writer:    writer,
		trades:    trades,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		clk:       clk,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run archives once immediately and then once per day until the context is
// cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	if err := a.ArchiveOnce(ctx); err != nil {
		a.logger.Error("archive run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ArchiveOnce uploads all trades older than the retention cutoff and, only
// after the upload succeeded, deletes them from the store.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	cutoff := clock.DayStart(a.clk.Now().Add(-a.retention))

	trades, err := a.trades.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("s3blob: archive encode: %w", err)
		}
	}

	path := fmt.Sprintf("archive/trades/%s.jsonl", cutoff.Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive delete: %w", err)
	}

	a.logger.Info("trades archived",
		slog.String("path", path),
		slog.Int("uploaded", len(trades)),
		slog.Int64("deleted", deleted),
	)
	return nil
}
