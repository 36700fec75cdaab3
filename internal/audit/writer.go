package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/susu3304/pokediabot/internal/models"
)

const dayLayout = "2006-01-02"

// TradeLog archives finalized trades as JSON lines in one zstd file per UTC
// day, trades-YYYY-MM-DD.jsonl.zst. The day comes from the record's
// FinalizedAt, so a trade always lands in the file for the day it settled.
type TradeLog struct {
	dir string

	mu  sync.Mutex
	day string
	f   *os.File
	zw  *zstd.Encoder
	enc *json.Encoder
}

func NewTradeLog(dir string) *TradeLog {
	return &TradeLog{dir: dir}
}

// PathFor returns the archive file holding trades finalized on t's UTC day.
func (l *TradeLog) PathFor(t time.Time) string {
	return filepath.Join(l.dir, "trades-"+t.UTC().Format(dayLayout)+".jsonl.zst")
}

// Append writes rec and flushes it, so a crash loses at most the record being
// written. Records without a finalize time are stamped with the current time.
func (l *TradeLog) Append(rec models.TradeRecord) error {
	if rec.FinalizedAt.IsZero() {
		rec.FinalizedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if day := rec.FinalizedAt.UTC().Format(dayLayout); day != l.day {
		if err := l.open(rec.FinalizedAt); err != nil {
			return fmt.Errorf("open trade archive: %w", err)
		}
	}
	if err := l.enc.Encode(rec); err != nil {
		return fmt.Errorf("archive trade %s: %w", rec.ID, err)
	}
	return l.zw.Flush()
}

func (l *TradeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFile()
}

func (l *TradeLog) open(t time.Time) error {
	if err := l.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	// Reopening appends a new zstd frame; readers decode concatenated frames.
	f, err := os.OpenFile(l.PathFor(t), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	l.f, l.zw, l.enc = f, zw, json.NewEncoder(zw)
	l.day = t.UTC().Format(dayLayout)
	return nil
}

func (l *TradeLog) closeFile() error {
	if l.f == nil {
		return nil
	}
	err := errors.Join(l.zw.Close(), l.f.Close())
	l.f, l.zw, l.enc, l.day = nil, nil, nil, ""
	return err
}

// ReadTrades decodes every record in one archive file.
func ReadTrades(path string) ([]models.TradeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeTrades(f)
}

func DecodeTrades(r io.Reader) ([]models.TradeRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []models.TradeRecord
	jd := json.NewDecoder(dec)
	for {
		var rec models.TradeRecord
		if err := jd.Decode(&rec); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("decode record %d: %w", len(out)+1, err)
		}
		out = append(out, rec)
	}
}
