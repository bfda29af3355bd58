// Package extractor drives the whole per-chromosome conversion: it
// dispatches one job per reference (plus the synthetic "*" unplaced
// bucket) across a bounded worker pool, each job independently opening the
// alignment file and running it through Pairer -> Shuffler -> Formatter,
// then runs a final cross-chromosome rescue pass over the collected
// orphans. It is grounded on encoding/bamprovider/bamprovider.go (each
// worker opens its own reader and index) and on the original
// implementation's main.rs (gather_chromosome_info/doit2 dispatch,
// collect, rescue-pass structure).
package extractor

import (
	"context"
	"fmt"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/grailbio/bamfastq/internal/blockwriter"
	"github.com/grailbio/bamfastq/internal/formatter"
	"github.com/grailbio/bamfastq/internal/pairer"
	"github.com/grailbio/bamfastq/internal/progress"
	"github.com/grailbio/bamfastq/internal/record"
	"github.com/grailbio/bamfastq/internal/shuffler"
	"github.com/grailbio/bamfastq/internal/summary"
)

const (
	shufflerCapacity = 65536
	shufflerSeed     = 19
	// progressJobThreshold is the per-reference record count above which a
	// job gets its own progress reporter (spec: "jobs with count > 1000 get
	// their own progress bar").
	progressJobThreshold = 1000
	// unplacedName is the synthetic bucket for unmapped/unplaced records.
	unplacedName = "*"
	// rescueName tags the cross-chromosome rescue pass's output blocks.
	rescueName = "<>"
)

// Options configures a Run.
type Options struct {
	BAMPath   string
	IndexPath string // "" means BAMPath + ".bai"

	FASTQ1Path, FASTQ2Path string
	CompressionLevel       int // gzip.NoCompression disables compression.

	Workers int
	Verbose bool
}

func (o Options) indexPath() string {
	if o.IndexPath != "" {
		return o.IndexPath
	}
	return o.BAMPath + ".bai"
}

// Result summarizes a completed Run.
type Result struct {
	Flags   [1 << 16]uint64
	Orphans map[string]record.Record
}

type chromosomeInfo struct {
	name        string
	recordCount uint64
}

// Run converts the alignment file at opts.BAMPath into the two FASTQ files
// at opts.FASTQ1Path/FASTQ2Path.
func Run(ctx context.Context, opts Options) (Result, error) {
	infos, err := gatherChromosomeInfo(ctx, opts.BAMPath, opts.indexPath())
	if err != nil {
		return Result{}, errors.E(err, "extractor: gather chromosome info")
	}

	out1, err := file.Create(ctx, opts.FASTQ1Path)
	if err != nil {
		return Result{}, errors.E(err, "extractor: create", opts.FASTQ1Path)
	}
	defer out1.Close(ctx)
	out2, err := file.Create(ctx, opts.FASTQ2Path)
	if err != nil {
		return Result{}, errors.E(err, "extractor: create", opts.FASTQ2Path)
	}
	defer out2.Close(ctx)

	bw := blockwriter.New(out1.Writer(ctx), out2.Writer(ctx), opts.CompressionLevel)

	var jobs []chromosomeInfo
	for _, info := range infos {
		if info.recordCount > 0 {
			jobs = append(jobs, info)
		}
	}

	// Partition jobs across opts.Workers goroutines (at least one, and never
	// more than there are jobs), following the
	// pack's own width-limited traverse.Each idiom (pileup/snp's
	// pileupSNPMain splits its shard list the same way across a
	// caller-chosen parallelism rather than one goroutine per shard).
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	remainders := make([]pairer.Remainder, len(jobs))
	var errs errors.Once
	err = traverse.Each(workers, func(workerIdx int) error {
		startIdx := (workerIdx * len(jobs)) / workers
		endIdx := ((workerIdx + 1) * len(jobs)) / workers
		for i := startIdx; i < endIdx; i++ {
			info := jobs[i]
			var prog *progress.Reporter
			if opts.Verbose && info.recordCount > progressJobThreshold {
				prog = progress.New(info.name, info.recordCount)
			}
			remainder, err := runChromosome(ctx, opts, info.name, bw.Writers(info.name), prog)
			if err != nil {
				err = errors.E(err, "extractor: chromosome", info.name)
				errs.Set(err)
				return err
			}
			remainders[i] = remainder
		}
		return nil
	})
	if err != nil {
		bw.Finish()
		return Result{}, errs.Err()
	}

	var flags [1 << 16]uint64
	var orphanCounts summary.Summariser
	var allOrphans []record.Record
	for _, r := range remainders {
		for i := range flags {
			flags[i] += r.Flags[i]
		}
		orphanCounts.Add(float64(len(r.Orphans)))
		for _, rec := range r.Orphans {
			allOrphans = append(allOrphans, rec)
		}
	}
	if stddev, ok := orphanCounts.StdDev(); ok {
		log.Debug.Printf("extractor: per-chromosome orphan count mean=%.1f stddev=%.1f", orphanCounts.Mean(), stddev)
	}

	finalRemainder, err := runRescuePass(allOrphans, bw.Writers(rescueName))
	if err != nil {
		bw.Finish()
		return Result{}, errors.E(err, "extractor: rescue pass")
	}

	if err := bw.Finish(); err != nil {
		return Result{}, errors.E(err, "extractor: finish output")
	}

	return Result{Flags: flags, Orphans: finalRemainder.Orphans}, nil
}

// runChromosome converts one reference's (or the unplaced bucket's)
// records, using its own independently-opened reader and index, per
// bamprovider's "one reader per worker" convention.
func runChromosome(ctx context.Context, opts Options, name string, writers *blockwriter.LocalBlockPairWriter, prog *progress.Reporter) (pairer.Remainder, error) {
	in, err := file.Open(ctx, opts.BAMPath)
	if err != nil {
		return pairer.Remainder{}, err
	}
	defer in.Close(ctx)
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return pairer.Remainder{}, err
	}
	defer reader.Close()

	var src *recordSource
	if name == unplacedName {
		idxFile, err := file.Open(ctx, opts.indexPath())
		if err != nil {
			return pairer.Remainder{}, err
		}
		defer idxFile.Close(ctx)
		idx, err := bam.ReadIndex(idxFile.Reader(ctx))
		if err != nil {
			return pairer.Remainder{}, err
		}
		offset, err := unmappedOffset(reader, idx, reader.Header())
		if err != nil {
			return pairer.Remainder{}, err
		}
		if err := reader.Seek(offset); err != nil {
			return pairer.Remainder{}, err
		}
		src = newSequentialSource(reader)
	} else {
		ref, err := findReference(reader.Header(), name)
		if err != nil {
			return pairer.Remainder{}, err
		}
		idxFile, err := file.Open(ctx, opts.indexPath())
		if err != nil {
			return pairer.Remainder{}, err
		}
		defer idxFile.Close(ctx)
		idx, err := bam.ReadIndex(idxFile.Reader(ctx))
		if err != nil {
			return pairer.Remainder{}, err
		}
		chunks, err := idx.Chunks(ref, 0, ref.Len())
		if err != nil {
			return pairer.Remainder{}, err
		}
		src, err = newReferenceSource(reader, chunks)
		if err != nil {
			return pairer.Remainder{}, err
		}
	}

	p := pairer.New(src, prog)
	sh := shuffler.New(p, shufflerCapacity, shufflerSeed)
	f := formatter.New(writers)
	for sh.Scan() {
		if err := f.Write(sh.Pair()); err != nil {
			return pairer.Remainder{}, err
		}
	}
	if err := sh.Err(); err != nil {
		return pairer.Remainder{}, err
	}
	if err := f.Flush(); err != nil {
		return pairer.Remainder{}, err
	}
	return p.Remainder(), nil
}

// runRescuePass re-pairs records that were orphaned on one reference but
// whose mates were orphaned on a different reference. Its flag histogram
// is discarded by the caller: those records were already counted when
// first scanned by their originating chromosome job. A write or formatter
// error here is fatal, matching the per-chromosome path: it is returned
// rather than swallowed.
func runRescuePass(orphans []record.Record, writers *blockwriter.LocalBlockPairWriter) (pairer.Remainder, error) {
	src := &sliceSource{recs: orphans}
	p := pairer.New(src, nil)
	sh := shuffler.New(p, shufflerCapacity, shufflerSeed)
	f := formatter.New(writers)
	for sh.Scan() {
		if err := f.Write(sh.Pair()); err != nil {
			return pairer.Remainder{}, err
		}
	}
	if err := sh.Err(); err != nil {
		return pairer.Remainder{}, err
	}
	if err := f.Flush(); err != nil {
		return pairer.Remainder{}, err
	}
	return p.Remainder(), nil
}

func findReference(header *sam.Header, name string) (*sam.Reference, error) {
	for _, ref := range header.Refs() {
		if ref.Name() == name {
			return ref, nil
		}
	}
	return nil, fmt.Errorf("extractor: unknown reference %q", name)
}

func gatherChromosomeInfo(ctx context.Context, bamPath, indexPath string) ([]chromosomeInfo, error) {
	in, err := file.Open(ctx, bamPath)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx)
	reader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	header := reader.Header()

	idxFile, err := file.Open(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	defer idxFile.Close(ctx)
	idx, err := bam.ReadIndex(idxFile.Reader(ctx))
	if err != nil {
		return nil, err
	}

	refs := header.Refs()
	infos := make([]chromosomeInfo, 0, len(refs)+1)
	for i, ref := range refs {
		var count uint64
		if stats, ok := idx.ReferenceStats(i); ok {
			count = stats.Mapped + stats.Unmapped
		}
		infos = append(infos, chromosomeInfo{name: ref.Name(), recordCount: count})
	}
	var unplaced uint64
	if n, ok := idx.Unmapped(); ok {
		unplaced = n
	}
	infos = append(infos, chromosomeInfo{name: unplacedName, recordCount: unplaced})
	return infos, nil
}
