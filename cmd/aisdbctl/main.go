// Command aisdbctl drives the transactional schema manager against a
// standalone in-memory KV gateway: bootstrap the catalog, apply a scripted
// DDL, and dump the resulting catalog as JSON. It exists to exercise
// internal/schemamgr end to end the way the teacher's cmd/coordinator and
// cmd/node binaries exercise internal/cluster and internal/coordinator.
//
// Configuration:
//   - AISDB_KV_ADDR: address of the backing KV cluster (default
//     "127.0.0.1:4500"); this build only ever constructs an in-process
//     kv.MemoryGateway, so the value is accepted and logged for parity
//     with a clustered deployment but otherwise unused.
//   - AISDB_MAX_CATALOG_BYTES: per-schema serialized blob cap, 0 for
//     unlimited (default "0").
//
// Example usage:
//
//	# Create a schema and table, then dump the catalog
//	aisdbctl -ddl 'add-schema:sales;add-table:sales.orders'
//
//	# Drop a schema
//	aisdbctl -ddl 'drop-schema:hr'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/dreamware/aisdb/internal/catalog"
	"github.com/dreamware/aisdb/internal/kv"
	"github.com/dreamware/aisdb/internal/schemamgr"
)

func main() {
	ddl := flag.String("ddl", "", "semicolon-separated DDL script: add-schema:NAME, add-table:SCHEMA.TABLE, drop-schema:NAME")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aisdbctl: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(*ddl); err != nil {
		logger.Error("aisdbctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ddlScript string) error {
	kvAddr := getenv("AISDB_KV_ADDR", "127.0.0.1:4500")
	maxCatalogBytes, err := strconv.Atoi(getenv("AISDB_MAX_CATALOG_BYTES", "0"))
	if err != nil {
		return fmt.Errorf("aisdbctl: parse AISDB_MAX_CATALOG_BYTES: %w", err)
	}

	zap.L().Info("starting aisdbctl",
		zap.String("kv_addr", kvAddr),
		zap.Int("max_catalog_bytes", maxCatalogBytes),
	)

	ctx := context.Background()
	gw := kv.NewMemoryGateway()
	mgr := schemamgr.NewManager(gw, maxCatalogBytes)

	const session schemamgr.SessionID = "aisdbctl"
	if err := mgr.Start(ctx, session); err != nil {
		return fmt.Errorf("aisdbctl: start schema manager: %w", err)
	}

	steps, err := parseDDLScript(ddlScript)
	if err != nil {
		return fmt.Errorf("aisdbctl: parse -ddl: %w", err)
	}

	var snap *catalog.Snapshot
	for _, step := range steps {
		txn, err := gw.Begin(ctx, session)
		if err != nil {
			return fmt.Errorf("aisdbctl: begin transaction: %w", err)
		}
		snap, err = mgr.SaveAISChangeWithRowDefs(ctx, txn, session, step.change())
		txn.Release()
		if err != nil {
			return fmt.Errorf("aisdbctl: apply %q: %w", step.raw, err)
		}
	}

	if snap == nil {
		txn, err := gw.Begin(ctx, session)
		if err != nil {
			return fmt.Errorf("aisdbctl: begin transaction: %w", err)
		}
		defer txn.Release()
		snap, err = mgr.GetAIS(ctx, txn, session)
		if err != nil {
			return fmt.Errorf("aisdbctl: read catalog: %w", err)
		}
	}

	return json.NewEncoder(os.Stdout).Encode(dumpCatalog(snap))
}

// ddlStep is one parsed instruction from -ddl.
type ddlStep struct {
	raw    string
	kind   string
	schema string
	table  string
}

// parseDDLScript splits a semicolon-separated -ddl script into steps of the
// form "add-schema:NAME", "add-table:SCHEMA.TABLE", or "drop-schema:NAME".
// An empty script yields no steps (aisdbctl then just dumps the bootstrap
// catalog).
func parseDDLScript(script string) ([]ddlStep, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, nil
	}

	var steps []ddlStep
	for _, raw := range strings.Split(script, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		kind, arg, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("malformed step %q: expected KIND:ARG", raw)
		}
		step := ddlStep{raw: raw, kind: kind}
		switch kind {
		case "add-schema", "drop-schema":
			step.schema = arg
		case "add-table":
			schema, table, ok := strings.Cut(arg, ".")
			if !ok {
				return nil, fmt.Errorf("malformed add-table step %q: expected SCHEMA.TABLE", raw)
			}
			step.schema, step.table = schema, table
		default:
			return nil, fmt.Errorf("unknown step kind %q in %q", kind, raw)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// change returns the schemamgr.Change that applies this step.
func (s ddlStep) change() schemamgr.Change {
	switch s.kind {
	case "add-schema":
		schema := s.schema
		return func(b *catalog.Builder) ([]string, error) {
			b.Schema(schema)
			return []string{schema}, nil
		}
	case "add-table":
		schema, table := s.schema, s.table
		return func(b *catalog.Builder) ([]string, error) {
			sc := b.Schema(schema)
			sc.Tables[table] = &catalog.Table{
				Schema: schema,
				Name:   table,
				ID:     int32(len(sc.Tables) + 1),
				Columns: []catalog.Column{
					{Name: "id", Type: "int", Position: 0},
				},
			}
			return []string{schema}, nil
		}
	case "drop-schema":
		schema := s.schema
		return func(b *catalog.Builder) ([]string, error) {
			b.DropSchema(schema)
			return []string{schema}, nil
		}
	default:
		panic("aisdbctl: unreachable ddl step kind " + s.kind)
	}
}

// catalogDump and its children are the JSON-friendly projection of a
// catalog.Snapshot dumped to stdout: every schema with its tables and
// their column names. Sequences, routines, and jars are not included.
type catalogDump struct {
	Generation int64        `json:"generation"`
	Schemas    []schemaDump `json:"schemas"`
}

type schemaDump struct {
	Name   string      `json:"name"`
	Tables []tableDump `json:"tables"`
}

type tableDump struct {
	Name    string   `json:"name"`
	ID      int32    `json:"id"`
	Columns []string `json:"columns"`
}

func dumpCatalog(snap *catalog.Snapshot) catalogDump {
	out := catalogDump{Generation: snap.Generation()}
	for _, name := range snap.SchemaNames() {
		sc, _ := snap.Schema(name)
		sd := schemaDump{Name: name}
		tableNames := make([]string, 0, len(sc.Tables))
		for t := range sc.Tables {
			tableNames = append(tableNames, t)
		}
		slices.Sort(tableNames)
		for _, t := range tableNames {
			tbl := sc.Tables[t]
			cols := make([]string, 0, len(tbl.Columns))
			for _, c := range tbl.Columns {
				cols = append(cols, c.Name)
			}
			sd.Tables = append(sd.Tables, tableDump{Name: tbl.Name, ID: tbl.ID, Columns: cols})
		}
		out.Schemas = append(out.Schemas, sd)
	}
	return out
}

// getenv retrieves an environment variable with a default fallback value,
// matching the teacher's cmd/coordinator and cmd/node configuration
// pattern.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
