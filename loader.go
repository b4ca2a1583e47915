package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// Ledger is the result of a full load: the booked, padded and validated
// directive stream, every problem found along the way, the aggregated
// options, and a digest of the input files.
type Ledger struct {
	Entries   []Directive
	Errors    []*Error
	Options   *Options
	Filenames []string
	Hash      string
}

// Load reads a ledger file, follows its includes recursively, and runs the
// whole pipeline: parse, sort, book, pad, check balances, validate.
//
// User-level problems accumulate in the returned Ledger's Errors. The error
// return is reserved for internal invariant violations that invalidate the
// whole result.
func Load(filename string) (*Ledger, error) {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", filename, err)
	}
	l := &loadRun{visited: make(map[string]bool)}
	entries, options := l.file(abs)
	return l.finish(entries, options)
}

// LoadString runs the pipeline on a literal source. Includes are resolved
// relative to the working directory.
func LoadString(source string) (*Ledger, error) {
	l := &loadRun{visited: make(map[string]bool)}
	entries, options, errs := ParseString("<string>", source)
	l.errs = append(l.errs, errs...)
	entries = append(entries, l.includes("", options)...)
	return l.finish(entries, options)
}

type loadRun struct {
	visited   map[string]bool
	filenames []string
	errs      []*Error
}

// file parses one file and everything it includes. It returns nil options on
// read failure.
func (l *loadRun) file(abs string) ([]Directive, *Options) {
	if l.visited[abs] {
		return nil, nil
	}
	l.visited[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		l.errs = append(l.errs, newErrorAt(LoadError, Source{Filename: abs}, "cannot read %s: %v", abs, err))
		return nil, nil
	}
	l.filenames = append(l.filenames, abs)

	entries, options, errs := ParseString(abs, string(data))
	l.errs = append(l.errs, errs...)
	entries = append(entries, l.includes(filepath.Dir(abs), options)...)
	return entries, options
}

// includes loads the files an option map names, relative to dir, and merges
// their option contributions into it.
func (l *loadRun) includes(dir string, options *Options) []Directive {
	var extra []Directive
	for _, path := range options.includes {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			l.errs = append(l.errs, newErrorAt(LoadError, Source{Filename: path}, "cannot resolve %s: %v", path, err))
			continue
		}
		entries, included := l.file(abs)
		extra = append(extra, entries...)
		if included != nil {
			options.mergeIncluded(included)
		}
	}
	return extra
}

// finish sorts the merged entries and runs booking, padding, balance checks
// and validation.
func (l *loadRun) finish(entries []Directive, options *Options) (*Ledger, error) {
	if options == nil {
		options = DefaultOptions()
	}
	slices.SortStableFunc(entries, CompareDirectives)

	booked, bookErrs, err := Book(entries, options)
	if err != nil {
		return nil, err
	}
	l.errs = append(l.errs, bookErrs...)

	padded, padErrs := PadEntries(booked, options)
	l.errs = append(l.errs, padErrs...)
	l.errs = append(l.errs, CheckBalances(padded, options)...)
	l.errs = append(l.errs, Validate(padded, options)...)

	return &Ledger{
		Entries:   padded,
		Errors:    l.errs,
		Options:   options,
		Filenames: l.filenames,
		Hash:      l.hash(),
	}, nil
}

// hash digests the sorted absolute filenames and their contents, so that any
// change in any included file changes the ledger hash.
func (l *loadRun) hash() string {
	names := slices.Clone(l.filenames)
	sort.Strings(names)
	h := sha256.New()
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(data)
		fmt.Fprintf(h, "%s %s\n", name, hex.EncodeToString(sum[:]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Prices builds the read-only price map of a loaded ledger from its Price
// directives and the costed postings of its transactions.
func (l *Ledger) Prices() *PriceMap {
	return NewPriceMap(l.Entries)
}

// Balances computes the final per-account inventories of the ledger.
func (l *Ledger) Balances() map[string]*Inventory {
	return FinalBalances(l.Entries)
}

// HasErrors reports whether the load surfaced any problem.
func (l *Ledger) HasErrors() bool { return len(l.Errors) > 0 }
