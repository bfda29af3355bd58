// bamfastq converts an indexed, coordinate-sorted paired-end BAM into two
// synchronized FASTQ files, or (in -X mode) computes an order-independent
// digest over an existing FASTQ pair.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/bamfastq/internal/checksum"
	"github.com/grailbio/bamfastq/internal/extractor"
)

var (
	verbose      = flag.Bool("v", false, "produce verbose (progress) output")
	compression  = flag.String("C", "default", "gzip level: 0-9, none, fast, default, or best")
	threads      = flag.Int("t", 4, "worker count")
	reportOrphan = flag.Bool("U", false, "print read_id: <name> for each final orphan")
	checksumMode = flag.Bool("X", false, "compute an order-independent digest instead of converting")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <bam> <fastq1> <fastq2>\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "       %s -X [options] <fastq1> <fastq2>\n", os.Args[0])
	flag.PrintDefaults()
}

func parseCompression(s string) (int, error) {
	switch s {
	case "none":
		return gzip.NoCompression, nil
	case "fast":
		return gzip.BestSpeed, nil
	case "default":
		return gzip.DefaultCompression, nil
	case "best":
		return gzip.BestCompression, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 9 {
		return 0, fmt.Errorf("invalid compression level %q: want 0-9, none, fast, default, or best", s)
	}
	return n, nil
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()
	flag.Parse()

	if *checksumMode {
		runChecksumMode()
		return
	}
	runConvertMode()
}

func runChecksumMode() {
	if flag.NArg() != 2 {
		usage()
		log.Fatalf("checksum mode requires exactly two positional arguments (fastq1, fastq2)")
	}
	f1, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer f1.Close()
	f2, err := os.Open(flag.Arg(1))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer f2.Close()

	res, computeErr := checksum.Compute(f1, f2)
	fmt.Printf("number of read pairs: %d\n", res.NumPairs)
	fmt.Println(res.DigestHex())
	fmt.Println("sketch:")
	if err := res.WriteSketch(os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
	if computeErr != nil {
		log.Fatalf("%v", computeErr)
	}
}

func runConvertMode() {
	if flag.NArg() != 3 {
		usage()
		log.Fatalf("conversion mode requires exactly three positional arguments (bam, fastq1, fastq2)")
	}
	if *threads <= 0 {
		log.Fatalf("-t must be a positive integer, got %d", *threads)
	}
	level, err := parseCompression(*compression)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := vcontext.Background()
	opts := extractor.Options{
		BAMPath:          flag.Arg(0),
		FASTQ1Path:       flag.Arg(1),
		FASTQ2Path:       flag.Arg(2),
		CompressionLevel: level,
		Workers:          *threads,
		Verbose:          *verbose,
	}
	result, err := extractor.Run(ctx, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Println("flags: bits\tPAIRED\tPROPER\tUNMAP\tMUNMAP\tREVERSE\tMREVERSE\tREAD1\tREAD2\tSECONDARY\tQCFAIL\tDUP\tSUPPLEMENTARY")
	for i, count := range result.Flags {
		if count == 0 {
			continue
		}
		fmt.Printf("flags: %d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			i, count,
			i&1, (i>>1)&1, (i>>2)&1, (i>>3)&1, (i>>4)&1, (i>>5)&1,
			(i>>6)&1, (i>>7)&1, (i>>8)&1, (i>>9)&1, (i>>10)&1, (i>>11)&1)
	}
	fmt.Printf("unpaired: %d\n", len(result.Orphans))
	if *reportOrphan {
		for name := range result.Orphans {
			fmt.Printf("read_id: %s\n", name)
		}
	}
}
