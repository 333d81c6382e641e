// Package importer drives the RF2 import pipeline (spec §4.2): it discovers
// distribution files, parses them with rf2.Reader, batches records by
// component type and applies each batch to a store.Store through a bounded
// worker pool. Grounded on the teacher's (now-deleted) import2.go
// (findImportableFiles/readFile/batchWriter/pooledPut), retargeted onto
// rf2.Reader/rf2.Discover and store.Store instead of the teacher's inline
// per-line parsing switch.
package importer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/eldrix/snomed-terminology/apperr"
	"github.com/eldrix/snomed-terminology/rf2"
	"github.com/eldrix/snomed-terminology/snomed"
	"github.com/eldrix/snomed-terminology/store"
)

// Options configures an import run.
type Options struct {
	// BatchSize is the number of records of one component type accumulated
	// before a batch is handed to a worker (spec §4.2 default: 5000).
	BatchSize int
	// Workers bounds the number of concurrent store.Put calls in flight.
	Workers int
	// Verbose prints one line per file processed, in addition to the
	// progress bar.
	Verbose bool
	Logger  *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5000
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Import discovers every RF2 file under roots, parses it and applies its
// records to s, in dependency order (concepts and descriptions before
// relationships and refsets). Re-running Import against the same store is
// idempotent: store.Store.Put resolves duplicates by effective time (spec
// §4.2/§4.3). Once ctx is cancelled, workers write no further batch (a Put
// already under way completes), no further file is opened, and Import
// returns ctx.Err().
func Import(ctx context.Context, s store.Store, roots []string, opts Options) error {
	opts = opts.withDefaults()

	manifest, err := rf2.Discover(roots...)
	if err != nil {
		return &apperr.Error{Kind: apperr.KindInput, Message: fmt.Sprintf("discovering RF2 files under %v: %s", roots, err), Err: err}
	}
	fileTypes := manifest.OrderedFileTypes()
	if len(fileTypes) == 0 {
		return apperr.Usage("no recognisable RF2 files found under %v", roots)
	}

	bar := progressbar.NewOptions64(manifest.TotalSize,
		progressbar.OptionSetDescription("importing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)

	batches := make(chan store.Batch, opts.Workers*2)
	var workerErr error
	var workerErrOnce sync.Once
	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				if ctx.Err() != nil {
					continue
				}
				if err := s.Put(batch); err != nil {
					workerErrOnce.Do(func() { workerErr = err })
				}
			}
		}()
	}

	start := time.Now()
	produceErr := func() error {
		for _, ft := range fileTypes {
			for _, path := range manifest.Files[ft] {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if opts.Verbose {
					opts.Logger.Info("importing file", zap.String("type", ft.String()), zap.String("path", path))
				}
				if err := readFile(ft, path, opts.BatchSize, bar, batches); err != nil {
					return apperr.Input(path, 0, err)
				}
			}
		}
		return nil
	}()

	close(batches)
	wg.Wait()

	if produceErr != nil {
		return produceErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if workerErr != nil {
		return workerErr
	}
	opts.Logger.Info("import complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// readFile scans one RF2 file, accumulating decoded records into
// per-component-type slices and pushing a store.Batch onto batches every
// opts.BatchSize records.
func readFile(ft rf2.FileType, path string, batchSize int, bar *progressbar.ProgressBar, batches chan<- store.Batch) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tee := &teeReader{r: f, bar: bar}
	reader, err := rf2.NewReader(tee, ft, path)
	if err != nil {
		return err
	}

	var pending store.Batch
	count := 0
	for reader.Scan() {
		switch rec := reader.Record().(type) {
		case *snomed.Concept:
			pending.Concepts = append(pending.Concepts, rec)
		case *snomed.Description:
			pending.Descriptions = append(pending.Descriptions, rec)
		case *snomed.Relationship:
			pending.Relationships = append(pending.Relationships, rec)
		case *snomed.ReferenceSetItem:
			pending.RefsetItems = append(pending.RefsetItems, rec)
		}
		count++
		if count >= batchSize {
			batches <- pending
			pending = store.Batch{}
			count = 0
		}
	}
	if err := reader.Err(); err != nil {
		return err
	}
	if !pending.Empty() {
		batches <- pending
	}
	return nil
}

// teeReader feeds bytes read through to a progress bar without needing
// io.TeeReader's separate io.Writer dance at each call site.
type teeReader struct {
	r   *os.File
	bar *progressbar.ProgressBar
}

func (t *teeReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.bar.Add(n)
	}
	return n, err
}
