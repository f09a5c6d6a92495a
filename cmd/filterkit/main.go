package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/filterkit/filterkit/filterkit"
	"github.com/filterkit/filterkit/filterkit/conditions"
	"github.com/filterkit/filterkit/filterkit/storage"
	"github.com/filterkit/filterkit/filterkit/storage/postgres"
	"github.com/filterkit/filterkit/filterkit/storage/sqlite"
)

// setArgs is a custom flag type for repeatable --set flags
type setArgs []string

func (s *setArgs) String() string { return strings.Join(*s, ",") }
func (s *setArgs) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	ctx := context.Background()

	switch command {
	case "render":
		handleRender(os.Args[2:])
	case "index":
		if len(os.Args) < 3 || os.Args[2] != "create" {
			fmt.Println("Usage: filterkit index create -i <path> [--backend sqlite|postgres]")
			os.Exit(1)
		}
		handleIndexCreate(ctx, os.Args[3:])
	case "put":
		handlePut(ctx, os.Args[2:])
	case "get":
		handleGet(ctx, os.Args[2:])
	case "delete":
		handleDelete(ctx, os.Args[2:])
	case "search":
		handleSearch(ctx, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("filterkit - condition trees to boolean search filters")
	fmt.Println("\nUsage:")
	fmt.Println("  filterkit render [-w <conditions-json>]                       (reads stdin when -w is omitted)")
	fmt.Println("  filterkit index create -i <path> [--backend sqlite|postgres]")
	fmt.Println("  filterkit put -i <path> [--id <id>] --json                    (read JSON lines from stdin)")
	fmt.Println("  filterkit put -i <path> [--id <id>] --set key=value...")
	fmt.Println("  filterkit get -i <path> --id <id>")
	fmt.Println("  filterkit delete -i <path> --id <id>")
	fmt.Println("  filterkit delete -i <path> -w <conditions-json>")
	fmt.Println("  filterkit search -i <path> -w <conditions-json> [--limit N] [--explain] [--format pretty|ids|json]")
	fmt.Println("\nCommon flags:")
	fmt.Println("  --backend sqlite|postgres   backend (default sqlite; FILTERKIT_BACKEND)")
	fmt.Println("  --driver <name>             sqlite driver name (default sqlite)")
	fmt.Println("  --pg-schema <name>          postgres schema (default filterkit)")
	fmt.Println("  --verbose                   debug logging")
}

// backendFlags holds flags shared by every index-touching command.
type backendFlags struct {
	index    string
	backend  string
	driver   string
	pgSchema string
	verbose  bool
}

func registerBackendFlags(fs *flag.FlagSet, bf *backendFlags) {
	fs.StringVar(&bf.index, "i", "", "index path (sqlite) or DSN (postgres)")
	fs.StringVar(&bf.index, "index", "", "index path (sqlite) or DSN (postgres)")
	fs.StringVar(&bf.backend, "backend", envOr("FILTERKIT_BACKEND", "sqlite"), "backend: sqlite|postgres")
	fs.StringVar(&bf.driver, "driver", envOr("FILTERKIT_SQLITE_DRIVER", "sqlite"), "sqlite driver name")
	fs.StringVar(&bf.pgSchema, "pg-schema", envOr("FILTERKIT_PG_SCHEMA", "filterkit"), "postgres schema")
	fs.BoolVar(&bf.verbose, "verbose", false, "debug logging")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (bf *backendFlags) adapter() (storage.Adapter, error) {
	if bf.index == "" {
		return nil, fmt.Errorf("missing --index")
	}
	switch bf.backend {
	case "sqlite":
		return sqlite.NewWithDriver(bf.index, bf.driver), nil
	case "postgres":
		return postgres.New(bf.index, bf.pgSchema), nil
	}
	return nil, fmt.Errorf("unknown backend %q", bf.backend)
}

func (bf *backendFlags) options() filterkit.IndexOptions {
	opts := filterkit.DefaultIndexOptions()
	if bf.verbose {
		if log, err := zap.NewDevelopment(); err == nil {
			opts.Logger = log
		}
	}
	return opts
}

func (bf *backendFlags) open(ctx context.Context) (*filterkit.Index, error) {
	adapter, err := bf.adapter()
	if err != nil {
		return nil, err
	}
	return filterkit.Open(ctx, adapter, bf.options())
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func readConditions(where string) (conditions.Cond, error) {
	data := []byte(where)
	if where == "" {
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, err
		}
	}
	return conditions.DecodeJSON(data)
}

func handleRender(argv []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var where string
	fs.StringVar(&where, "w", "", "conditions JSON")
	fs.StringVar(&where, "where", "", "conditions JSON")
	_ = fs.Parse(argv)

	cond, err := readConditions(where)
	if err != nil {
		fail(err)
	}
	body, err := filterkit.Render(cond)
	if err != nil {
		fail(err)
	}
	fmt.Println(string(body))
}

func handleIndexCreate(ctx context.Context, argv []string) {
	fs := flag.NewFlagSet("index create", flag.ExitOnError)
	var bf backendFlags
	registerBackendFlags(fs, &bf)
	_ = fs.Parse(argv)

	adapter, err := bf.adapter()
	if err != nil {
		fail(err)
	}
	ix, err := filterkit.Create(ctx, adapter, bf.options())
	if err != nil {
		fail(err)
	}
	defer ix.Close()
	fmt.Printf("created %s index %s\n", adapter.Backend(), adapter.IndexID())
}

func handlePut(ctx context.Context, argv []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	var bf backendFlags
	registerBackendFlags(fs, &bf)
	var id string
	var jsonLines bool
	var sets setArgs
	fs.StringVar(&id, "id", "", "document id (generated when empty)")
	fs.BoolVar(&jsonLines, "json", false, "read JSON documents from stdin, one per line")
	fs.Var(&sets, "set", "field=value (repeatable)")
	_ = fs.Parse(argv)

	ix, err := bf.open(ctx)
	if err != nil {
		fail(err)
	}
	defer ix.Close()

	if jsonLines {
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			docID, err := ix.Put(ctx, "", []byte(line))
			if err != nil {
				fail(err)
			}
			fmt.Println(docID)
		}
		if err := scanner.Err(); err != nil {
			fail(err)
		}
		return
	}

	doc := make(map[string]any, len(sets))
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			fail(fmt.Errorf("bad --set %q (want key=value)", kv))
		}
		doc[k] = v
	}
	body, err := json.Marshal(doc)
	if err != nil {
		fail(err)
	}
	docID, err := ix.Put(ctx, id, body)
	if err != nil {
		fail(err)
	}
	fmt.Println(docID)
}

func handleGet(ctx context.Context, argv []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	var bf backendFlags
	registerBackendFlags(fs, &bf)
	var id string
	fs.StringVar(&id, "id", "", "document id")
	_ = fs.Parse(argv)
	if id == "" {
		fail(fmt.Errorf("missing --id"))
	}

	ix, err := bf.open(ctx)
	if err != nil {
		fail(err)
	}
	defer ix.Close()

	doc, err := ix.Get(ctx, id)
	if err != nil {
		fail(err)
	}
	fmt.Println(string(doc.Body))
}

func handleDelete(ctx context.Context, argv []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	var bf backendFlags
	registerBackendFlags(fs, &bf)
	var id, where string
	fs.StringVar(&id, "id", "", "document id")
	fs.StringVar(&where, "w", "", "conditions JSON")
	fs.StringVar(&where, "where", "", "conditions JSON")
	_ = fs.Parse(argv)
	if id == "" && where == "" {
		fail(fmt.Errorf("missing --id or --where"))
	}

	ix, err := bf.open(ctx)
	if err != nil {
		fail(err)
	}
	defer ix.Close()

	if id != "" {
		if err := ix.Delete(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("deleted 1")
		return
	}

	cond, err := conditions.DecodeJSON([]byte(where))
	if err != nil {
		fail(err)
	}
	n, err := ix.DeleteWhere(ctx, cond)
	if err != nil {
		fail(err)
	}
	fmt.Printf("deleted %d\n", n)
}

func handleSearch(ctx context.Context, argv []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var bf backendFlags
	registerBackendFlags(fs, &bf)
	var where, format string
	var limit int
	var explain bool
	fs.StringVar(&where, "w", "", "conditions JSON")
	fs.StringVar(&where, "where", "", "conditions JSON")
	fs.IntVar(&limit, "limit", filterkit.DefaultSearchLimit, "limit")
	fs.BoolVar(&explain, "explain", false, "explain")
	fs.StringVar(&format, "format", "pretty", "format: pretty|ids|json")
	_ = fs.Parse(argv)
	if where == "" {
		fail(fmt.Errorf("missing --where"))
	}

	ix, err := bf.open(ctx)
	if err != nil {
		fail(err)
	}
	defer ix.Close()

	cond, err := readConditions(where)
	if err != nil {
		fail(err)
	}
	page, err := ix.Search(ctx, cond, filterkit.SearchOptions{Limit: limit, Explain: explain})
	if err != nil {
		fail(err)
	}

	if explain {
		fmt.Fprintf(os.Stderr, "sql: %s\n", page.ExplainSQL)
		for _, step := range page.ExplainSteps {
			fmt.Fprintf(os.Stderr, "step: %s\n", step)
		}
	}

	switch format {
	case "ids":
		for _, doc := range page.Items {
			fmt.Println(doc.ID)
		}
	case "json":
		out := make([]json.RawMessage, 0, len(page.Items))
		for _, doc := range page.Items {
			out = append(out, json.RawMessage(doc.Body))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fail(err)
		}
		fmt.Println(string(data))
	default:
		for _, doc := range page.Items {
			fmt.Printf("%s\t%s\n", doc.ID, string(doc.Body))
		}
		fmt.Printf("%d of %d matched\n", len(page.Items), page.Total)
	}
}
