package historical

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sabarim/intradata/internal/logger"
)

// Persister downloads a series and merges it into the store
type Persister struct {
	fetcher *Fetcher
	store   *Store
	mirror  *ParquetMirror
	log     *logger.Logger
	out     io.Writer
}

// NewPersister creates a persister. mirror may be nil to disable the parquet copy.
func NewPersister(fetcher *Fetcher, store *Store, mirror *ParquetMirror, log *logger.Logger) *Persister {
	return &Persister{
		fetcher: fetcher,
		store:   store,
		mirror:  mirror,
		log:     log,
		out:     fetcher.out,
	}
}

// Save downloads req and writes it to the store. When a file already exists
// it is loaded, merged with the download (downloaded rows win on equal
// timestamps), removed and written again. It returns false without touching
// the store when the download yields nothing.
func (p *Persister) Save(ctx context.Context, req Request) (bool, error) {
	fetched, err := p.fetcher.Fetch(ctx, req).Take()
	if err != nil {
		return false, nil
	}

	exists, err := p.store.Exists(req.Symbol, req.Interval)
	if err != nil {
		return false, err
	}

	var filename string
	if exists {
		existing, err := p.store.Load(req.Symbol, req.Interval)
		if err != nil {
			return false, fmt.Errorf("failed to load existing data: %w", err)
		}

		merged := Series{
			Symbol:   req.Symbol,
			Interval: req.Interval,
			Bars:     Merge(existing.Bars, fetched.Bars),
		}
		p.log.Debug("Merged series",
			zap.String("symbol", req.Symbol),
			zap.Int("existing", existing.Len()),
			zap.Int("fetched", fetched.Len()),
			zap.Int("merged", merged.Len()))

		if err := p.store.Remove(req.Symbol, req.Interval); err != nil {
			return false, err
		}
		if filename, err = p.store.Write(merged); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "Merged data saved to %s.\n", filename)
		fetched = merged
	} else {
		fetched.Bars = Merge(nil, fetched.Bars)
		if filename, err = p.store.Write(fetched); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "Data saved to %s.\n", filename)
	}

	p.log.Info("Saved series",
		zap.String("symbol", req.Symbol),
		zap.String("interval", req.Interval),
		zap.String("file", filename),
		zap.Int("rows", fetched.Len()))

	if p.mirror != nil {
		if _, err := p.mirror.Write(fetched); err != nil {
			p.log.Error("Error converting data to Parquet", zap.String("symbol", req.Symbol), zap.Error(err))
		}
	}

	return true, nil
}

// ensureDir creates dir if missing
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
