package state

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/leapstack-labs/insightql/pkg/core"
)

// Encoder and decoder are safe for concurrent EncodeAll/DecodeAll.
var (
	rowsEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	rowsDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// encodeRows serializes records as a zstd-compressed JSON array.
func encodeRows(rows []core.Record) ([]byte, error) {
	if rows == nil {
		rows = []core.Record{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}
	return rowsEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/4)), nil
}

// decodeRows reverses encodeRows.
func decodeRows(blob []byte) ([]core.Record, error) {
	raw, err := rowsDecoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress rows: %w", err)
	}
	var rows []core.Record
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	return rows, nil
}
