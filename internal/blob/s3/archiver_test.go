package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/memstore"
)

type memWriter struct {
	objects map[string][]byte
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.objects == nil {
		w.objects = make(map[string][]byte)
	}
	w.objects[path] = buf
	return nil
}

func TestArchiveOnceMovesOldTrades(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, clock.RefZone)
	trades := memstore.NewTradeStore()

	old := now.AddDate(0, 0, -40)
	recent := now.Add(-time.Hour)
	for _, tr := range []domain.Trade{
		{Signature: "sig-old", WalletAddress: "W1", Type: domain.TradeTypeBuy, Timestamp: old},
		{Signature: "sig-recent", WalletAddress: "W1", Type: domain.TradeTypeSell, Timestamp: recent},
	} {
		_, err := trades.Upsert(context.Background(), tr)
		require.NoError(t, err)
	}

	writer := &memWriter{}
	arch := NewArchiver(writer, trades, 30, clock.Fixed{Instant: now}, slog.Default())

	require.NoError(t, arch.ArchiveOnce(context.Background()))

	// The old trade left the store, the recent one stayed.
	assert.Equal(t, 1, trades.Count())
	_, err := trades.GetBySignature(context.Background(), "sig-recent")
	assert.NoError(t, err)

	require.Len(t, writer.objects, 1)
	for _, data := range writer.objects {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		require.True(t, scanner.Scan())
		var archived domain.Trade
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &archived))
		assert.Equal(t, "sig-old", archived.Signature)
	}
}

func TestArchiveOnceNoopWhenEmpty(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, clock.RefZone)
	writer := &memWriter{}
	arch := NewArchiver(writer, memstore.NewTradeStore(), 30, clock.Fixed{Instant: now}, slog.Default())

	require.NoError(t, arch.ArchiveOnce(context.Background()))
	assert.Empty(t, writer.objects)
}
