// Package fastq turns a FASTQ file into the initial tuple stream the
// key-phase reducer consumes: one tuple per k-mer, keyed by the
// canonical k-mer's hash, carrying the originating read's globally
// unique id in both Pn and Pc.
package fastq

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/ashwin1596/gclabel/internal/gcerr"
	"github.com/ashwin1596/gclabel/internal/tuple"
)

// DefaultKmerLen is used when the caller does not override it.
const DefaultKmerLen = 21

// Options configures one peer's share of a FASTQ read.
type Options struct {
	Path    string
	KmerLen int
	Rank    int
	Size    int
}

// Read parses this peer's share of path and returns one tuple per
// k-mer found in it. Gzip-compressed inputs (path ending in ".gz")
// cannot be byte-range split — compressed offsets don't line up with
// record boundaries — so only rank 0 can read them; every other peer
// in a multi-peer group has no local segment to start with, which is
// a fatal input error rather than a silently empty producer.
func Read(opts Options) ([]tuple.T, error) {
	k := opts.KmerLen
	if k <= 0 {
		k = DefaultKmerLen
	}

	gzipped := strings.HasSuffix(opts.Path, ".gz")
	if gzipped && opts.Rank != 0 {
		return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf(
			"local segment empty at start: gzip input %s can only be read by rank 0", opts.Path))
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf("open %s: %w", opts.Path, err))
	}
	defer f.Close()

	var r io.Reader = f
	readIDBase := 0
	if gzipped {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf("open gzip %s: %w", opts.Path, err))
		}
		defer gr.Close()
		r = gr
	} else {
		start, end, err := seekToShare(f, opts.Rank, opts.Size)
		if err != nil {
			return nil, gcerr.NewInputError(opts.Rank, err)
		}
		readIDBase = start
		r = io.LimitReader(f, int64(end-start))
	}

	out, err := scanRecords(r, k, opts.Rank, readIDBase)
	if err != nil {
		return nil, gcerr.NewInputError(opts.Rank, err)
	}
	if len(out) == 0 {
		return nil, gcerr.NewInputError(opts.Rank, fmt.Errorf(
			"local segment empty at start: no k-mers of length %d found in %s", k, opts.Path))
	}
	return out, nil
}

// seekToShare computes this rank's byte range under a floor/ceil block
// decomposition of the file, moves both ends of that range forward to
// the next record start (so [start, end) holds whole records only),
// seeks to start, and returns (start, end) so the caller can cap its
// reader at end.
func seekToShare(f *os.File, rank, size int) (int, int, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	n := int(info.Size())
	base, rem := n/size, n%size
	start := rank*base + min(rank, rem)
	count := base
	if rank < rem {
		count++
	}
	end := start + count

	if start > 0 {
		aligned, err := alignToRecordStart(f, start, n)
		if err != nil {
			return 0, 0, err
		}
		start = aligned
	}
	if end < n {
		aligned, err := alignToRecordStart(f, end, n)
		if err != nil {
			return 0, 0, err
		}
		end = aligned
	}
	if _, err := f.Seek(int64(start), io.SeekStart); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// alignToRecordStart scans forward from offset for the first line that
// looks like the header of a FASTQ record: a "@..." line whose second
// following line begins with "+" and which has at least three lines
// after it. Returns the byte offset of that
// line's first byte, or limit if none is found before it.
func alignToRecordStart(f *os.File, offset, limit int) (int, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return 0, err
	}
	sc := bufio.NewScanner(io.LimitReader(f, int64(limit-offset)))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	type line struct {
		text  string
		start int
	}
	var window []line
	pos := offset
	for sc.Scan() {
		text := sc.Text()
		window = append(window, line{text: text, start: pos})
		if len(window) > 4 {
			window = window[1:]
		}
		if len(window) == 4 && strings.HasPrefix(window[0].text, "@") && strings.HasPrefix(window[2].text, "+") {
			return window[0].start, nil
		}
		pos += len(text) + 1
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return limit, nil
}

func scanRecords(r io.Reader, k, rank, readIDBase int) ([]tuple.T, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var out []tuple.T
	readID := readIDBase
	lineNo := 0
	var seq string
	for sc.Scan() {
		line := sc.Text()
		switch lineNo % 4 {
		case 1:
			seq = line
		case 3:
			out = append(out, kmersOf(seq, k, uint64(readID))...)
			readID++
		}
		lineNo++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func kmersOf(seq string, k int, readID uint64) []tuple.T {
	if len(seq) < k {
		return nil
	}
	out := make([]tuple.T, 0, len(seq)-k+1)
	for i := 0; i+k <= len(seq); i++ {
		fwd := seq[i : i+k]
		if strings.ContainsAny(fwd, "Nn") {
			continue
		}
		canon := canonicalKmer(fwd)
		h := xxhash.Sum64String(canon)
		out = append(out, tuple.T{Key: h, Pn: readID, Pc: readID})
	}
	return out
}

// canonicalKmer returns the lexicographically smaller of fwd and its
// reverse complement, so a k-mer and its complement collapse to the
// same key regardless of which strand it was read from.
func canonicalKmer(fwd string) string {
	rc := reverseComplement(fwd)
	if rc < fwd {
		return rc
	}
	return fwd
}

func reverseComplement(seq string) string {
	buf := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		buf[len(seq)-1-i] = complementBase(seq[i])
	}
	return string(buf)
}

func complementBase(b byte) byte {
	switch b {
	case 'A', 'a':
		return 'T'
	case 'T', 't':
		return 'A'
	case 'C', 'c':
		return 'G'
	case 'G', 'g':
		return 'C'
	default:
		return b
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
