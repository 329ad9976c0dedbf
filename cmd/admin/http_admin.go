package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// remoteCmd queries a running server's loopback admin endpoints, so saves
// can be inspected without opening the store alongside the server.
func remoteCmd(args []string) {
	fs := flag.NewFlagSet("remote", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	slot := fs.Int("slot", -1, "save slot (export only)")
	_ = fs.Parse(args)

	what := "slots"
	if fs.NArg() > 0 {
		what = strings.TrimSpace(fs.Arg(0))
	}
	path := ""
	switch what {
	case "slots", "archives", "offsite":
		path = "/admin/v1/" + what
	case "export":
		requireSlot(*slot)
		path = fmt.Sprintf("/admin/v1/export?slot=%d", *slot)
	default:
		fmt.Fprintf(os.Stderr, "unknown remote query %q (slots, archives, offsite, export)\n", what)
		os.Exit(2)
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
