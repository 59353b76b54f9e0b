package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodGet, adminURL(*baseURL, "state", nil), 5*time.Second)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodPost, adminURL(*baseURL, "snapshot", nil), 10*time.Second)
}

func priceCmd(args []string) {
	fs := flag.NewFlagSet("price", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	commodity := fs.String("commodity", "", "commodity id")
	planet := fs.String("planet", "", "planet name")
	side := fs.String("side", "buy", "buy or sell")
	_ = fs.Parse(args)
	call(http.MethodGet, adminURL(*baseURL, "price", url.Values{
		"commodity": {*commodity},
		"planet":    {*planet},
		"side":      {*side},
	}), 5*time.Second)
}

func blockadeCmd(args []string) {
	fs := flag.NewFlagSet("blockade", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	planet := fs.String("planet", "", "planet name")
	on := fs.Bool("on", true, "blockade on or off")
	_ = fs.Parse(args)
	call(http.MethodPost, adminURL(*baseURL, "blockade", url.Values{
		"planet": {*planet},
		"on":     {fmt.Sprint(*on)},
	}), 5*time.Second)
}

func adminURL(base, endpoint string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + "/admin/v1/" + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func call(method, u string, timeout time.Duration) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
