// jsonl inspects and updates a line store from the command line.
//
//	jsonl [-v] [-logdir dir] <base path> <command> [args]
//
// Commands:
//
//	len              print number of records
//	get <i>...       print records, -1 is the last one
//	append           append JSON lines read from stdin
//	import <file>    append JSON lines from a file (.gz, .zst, .br are decompressed)
//	rebuild          re-create the index by scanning the data file
//	verify           compare the index with the data file
//	stats            print sizes of the data and index files
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/pretty"

	"github.com/kjk/jsonline/linestore"
	"github.com/kjk/jsonline/log"
	"github.com/kjk/jsonline/u"
)

var (
	flgVerbose bool
	flgLogDir  string
	flgCompact bool
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: jsonl [flags] <base path> len|get|append|import|rebuild|verify|stats [args]\n")
	flag.PrintDefaults()
}

// readLines returns non-empty lines from r as raw JSON records
func readLines(r io.Reader) ([]jsonRaw, error) {
	var res []jsonRaw
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		res = append(res, jsonRaw(bytes.Clone(line)))
	}
	return res, scanner.Err()
}

// jsonRaw is a record stored as-is, after checking it's valid JSON
type jsonRaw []byte

func (j jsonRaw) MarshalJSON() ([]byte, error) {
	return j, nil
}

func (j *jsonRaw) UnmarshalJSON(d []byte) error {
	*j = append((*j)[:0], d...)
	return nil
}

func appendLines(s *linestore.Store[jsonRaw], r io.Reader) (int, error) {
	records, err := readLines(r)
	if err != nil {
		return 0, err
	}
	for i, rec := range records {
		var v any
		if err = linestore.JSONiter.Unmarshal(rec, &v); err != nil {
			return 0, fmt.Errorf("line %d is not valid JSON: %w", i+1, err)
		}
	}
	return len(records), s.Extend(records)
}

func printRecord(i int, d jsonRaw) {
	if flgCompact {
		fmt.Printf("%s\n", pretty.Ugly(d))
		return
	}
	fmt.Printf("%d: %s", i, pretty.Pretty(d))
}

func run(path string, cmd string, args []string) error {
	s, err := linestore.Open[jsonRaw](path, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	switch cmd {
	case "len":
		fmt.Printf("%d\n", s.Len())
	case "get":
		if len(args) == 0 {
			return fmt.Errorf("get: need at least one position")
		}
		for _, arg := range args {
			i, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("get: invalid position '%s'", arg)
			}
			d, err := s.At(i)
			if err != nil {
				return err
			}
			printRecord(i, d)
		}
	case "append":
		n, err := appendLines(s, os.Stdin)
		if err != nil {
			return err
		}
		log.Logf("appended %d records, %d total\n", n, s.Len())
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("import: need a file name")
		}
		r, err := u.OpenFileMaybeCompressed(args[0])
		if err != nil {
			return err
		}
		defer r.Close()
		n, err := appendLines(s, r)
		if err != nil {
			return err
		}
		log.Logf("imported %d records from '%s', %d total\n", n, args[0], s.Len())
	case "rebuild":
		if err := s.RebuildIndex(); err != nil {
			return err
		}
		log.Logf("rebuilt index, %d records\n", s.Len())
	case "verify":
		pos, err := s.Verify()
		if err != nil {
			return err
		}
		if pos >= 0 {
			return fmt.Errorf("index doesn't match data file starting at record %d, run 'rebuild'", pos)
		}
		log.Logf("index matches data file, %d records\n", s.Len())
	case "stats":
		fmt.Printf("records: %d\n", s.Len())
		fmt.Printf("data:    %s (%s)\n", s.DataPath(), u.FormatSize(u.FileSize(s.DataPath())))
		fmt.Printf("index:   %s (%s)\n", s.IndexPath(), u.FormatSize(u.FileSize(s.IndexPath())))
	default:
		return fmt.Errorf("unknown command '%s'", cmd)
	}
	return nil
}

func main() {
	flag.BoolVar(&flgVerbose, "v", false, "verbose logging")
	flag.StringVar(&flgLogDir, "logdir", "", "if set, write logs and events to this directory")
	flag.BoolVar(&flgCompact, "compact", false, "print records in compact form, one per line")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}
	log.Verbose = flgVerbose
	if flgLogDir != "" {
		log.Init(&log.Config{Dir: flgLogDir})
		defer log.Close()
	}
	err := run(args[0], args[1], args[2:])
	if log.IfErrf(err) {
		log.Close()
		os.Exit(1)
	}
}
