package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chronicle.ai/internal/config"
	"chronicle.ai/internal/persistence/archive"
	"chronicle.ai/internal/persistence/save"
	"chronicle.ai/internal/persistence/store"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "export":
			exportCmd(os.Args[2:])
			return
		case "import":
			importCmd(os.Args[2:])
			return
		case "delete":
			deleteCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		case "remote":
			remoteCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// storeFlags binds -store and -path, defaulting to the server's environment.
type storeFlags struct {
	kind *string
	path *string
}

func bindStore(fs *flag.FlagSet) storeFlags {
	env, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return storeFlags{
		kind: fs.String("store", env.Store, "save store kind (memory, files, sqlite)"),
		path: fs.String("path", env.StorePath, "save store path"),
	}
}

func (f storeFlags) open() (*save.Manager, func()) {
	st, err := store.Open(*f.kind, *f.path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	m, err := save.New(st, save.Config{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "save manager:", err)
		os.Exit(1)
	}
	return m, func() { _ = store.Close(st) }
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sf := bindStore(fs)
	asJSON := fs.Bool("json", false, "print json")
	_ = fs.Parse(args)

	m, done := sf.open()
	defer done()
	slots := m.ListSlots()
	if *asJSON {
		printJSON(slots)
		return
	}
	for _, s := range slots {
		fmt.Printf("slot=%d name=%q player=%s turns=%d time=%d-%02d-%02d last_saved=%d\n",
			s.Slot, s.SaveName, s.PlayerID, s.TotalTurns, s.Time.Year, s.Time.Month, s.Time.Day, s.LastSaved)
	}
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sf := bindStore(fs)
	slot := fs.Int("slot", -1, "save slot (required)")
	out := fs.String("out", "", "output file (default: stdout)")
	_ = fs.Parse(args)
	requireSlot(*slot)

	m, done := sf.open()
	defer done()
	doc, ok := m.ExportSave(*slot)
	if !ok {
		fmt.Fprintf(os.Stderr, "slot %d is empty\n", *slot)
		os.Exit(1)
	}
	if strings.TrimSpace(*out) == "" {
		fmt.Println(doc)
		return
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "mkdir:", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, []byte(doc), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write:", err)
		os.Exit(1)
	}
	fmt.Printf("export ok: slot=%d out=%s\n", *slot, *out)
}

func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	sf := bindStore(fs)
	slot := fs.Int("slot", -1, "target save slot (required)")
	in := fs.String("in", "", "exported save file (default: stdin)")
	_ = fs.Parse(args)
	requireSlot(*slot)

	var (
		raw []byte
		err error
	)
	if strings.TrimSpace(*in) == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*in)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	m, done := sf.open()
	defer done()
	if !m.ImportSave(string(raw), *slot) {
		fmt.Fprintln(os.Stderr, "import rejected: not a valid save document")
		os.Exit(1)
	}
	fmt.Printf("import ok: slot=%d\n", *slot)
}

func deleteCmd(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	sf := bindStore(fs)
	slot := fs.Int("slot", -1, "save slot (required)")
	_ = fs.Parse(args)
	requireSlot(*slot)

	m, done := sf.open()
	defer done()
	if !m.DeleteSave(*slot) {
		fmt.Fprintf(os.Stderr, "delete slot %d failed\n", *slot)
		os.Exit(1)
	}
	fmt.Printf("delete ok: slot=%d\n", *slot)
}

func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	env, _ := config.Load()
	dir := fs.String("dir", env.ArchiveDir, "archive directory")
	_ = fs.Parse(args)

	metas, err := archive.List(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list archives:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}

func requireSlot(slot int) {
	if slot < 0 {
		fmt.Fprintln(os.Stderr, "missing -slot")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
