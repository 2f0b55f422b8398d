package source

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/withObsrvr/obsrvr-battle-exporter/internal/splatnet"
)

// ErrInvalidRecord is returned for files that do not hold a record.
var ErrInvalidRecord = errors.New("invalid record file")

// Decoder handles zstd decompression and record parsing.
type Decoder struct {
	zstdDecoder *zstd.Decoder
}

// NewDecoder creates a new record decoder.
func NewDecoder() (*Decoder, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Decoder{zstdDecoder: dec}, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	if d.zstdDecoder != nil {
		d.zstdDecoder.Close()
	}
}

// Decompress returns data unchanged unless name marks it as compressed.
func (d *Decoder) Decompress(name string, data []byte) ([]byte, error) {
	if !IsCompressed(name) {
		return data, nil
	}
	raw, err := d.zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress %s: %w", name, err)
	}
	return raw, nil
}

// DecodeGame decodes a record file. Files written by export tools wrap the
// record as {"data": record, ...}; both layouts are accepted.
func (d *Decoder) DecodeGame(name string, data []byte) (*splatnet.Game, error) {
	raw, err := d.Decompress(name, data)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
	}
	if len(envelope.Detail) == 0 && len(envelope.Data) > 0 {
		raw = envelope.Data
	}

	g, err := splatnet.ParseGame(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, name, err)
	}
	return g, nil
}

// IsCompressed reports whether name is a zstd file.
func IsCompressed(name string) bool {
	return strings.HasSuffix(name, ".zst")
}

// IsRecordFile reports whether name can hold a record.
func IsRecordFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst")
}
