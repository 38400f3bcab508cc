// Command pakbus talks PakBus to a Campbell Scientific datalogger: clock
// get/set, settings dump, file directory and download, table listing, and
// data collection.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	flags "github.com/zmap/zflags"
	log "github.com/sirupsen/logrus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gopakbus "github.com/LionelDarras/gopakbus"
)

// globalOptions are the flags shared by every subcommand, mirroring the
// teacher's top-level flag group (formerly BaseFlags) ahead of its
// per-module flags.
type globalOptions struct {
	Link         string `long:"url" description:"Link target: tcp:host:port or serial:/dev/ttyUSB0:baud"`
	Timeout      int    `long:"timeout" description:"Per-transaction timeout in seconds (10 if unset)"`
	SrcNode      uint16 `long:"src" description:"Our PakBus node address (2050 if unset)"`
	DestNode     uint16 `long:"dest" description:"Target PakBus node address (1 if unset)"`
	SecurityCode uint16 `long:"code" description:"PakBus security code"`
	Swath        uint16 `long:"swath" description:"FileUpload chunk size in bytes (512 if unset)"`
	Proxy        string `long:"proxy" description:"SOCKS5 proxy URL for tcp links, e.g. socks5://127.0.0.1:1080"`
	Config       string `long:"config" description:"JSON/YAML file providing defaults for the flags above"`
	MetricsAddr  string `long:"metrics-addr" description:"If set, serve Prometheus metrics on this address (e.g. :9110)"`
	FullArrays   bool   `long:"full-arrays" description:"Preserve every element of Dimension>1 fields instead of only the first"`
	Debug        bool   `long:"debug" description:"Enable debug-level logging"`
}

var opts globalOptions

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("gettime", "Print the datalogger clock", "", &gettimeCmd{})
	parser.AddCommand("settime", "Set the datalogger clock", "", &settimeCmd{})
	parser.AddCommand("getprogstat", "Print programming statistics", "", &getprogstatCmd{})
	parser.AddCommand("getsettings", "Print device settings", "", &getsettingsCmd{})
	parser.AddCommand("listfiles", "List files in the device's .DIR directory", "", &listfilesCmd{})
	parser.AddCommand("getfile", "Download a file from the device", "", &getfileCmd{})
	parser.AddCommand("listtables", "List the tables in the device's .TDF", "", &listtablesCmd{})
	parser.AddCommand("getdata", "Collect records from a table", "", &getdataCmd{})
	parser.AddCommand("getrawpackets", "Dump undecoded CollectData fragments for a table", "", &getrawpacketsCmd{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatal(err.Error())
	}
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// applyConfig merges a loaded FileConfig into globalOptions wherever the
// flag was left at its zero value, so a --config file sets defaults a CLI
// flag can still override.
func applyConfig(o *globalOptions) error {
	if o.Config == "" {
		return nil
	}
	cfg, err := gopakbus.LoadConfig(o.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.Link == "" {
		o.Link = cfg.Link
	}
	if o.DestNode == 0 {
		o.DestNode = cfg.DestNode
	}
	if o.SrcNode == 0 {
		o.SrcNode = cfg.SrcNode
	}
	if o.SecurityCode == 0 {
		o.SecurityCode = cfg.SecurityCode
	}
	if o.Timeout == 0 && cfg.TimeoutSec != 0 {
		o.Timeout = cfg.TimeoutSec
	}
	if o.Swath == 0 && cfg.Swath != 0 {
		o.Swath = cfg.Swath
	}
	if o.MetricsAddr == "" {
		o.MetricsAddr = cfg.MetricsAddr
	}
	return nil
}

// connect builds the Link named by --url and dials a Device, wiring in
// Prometheus metrics and (if --metrics-addr is set) a background promhttp
// server, the way the teacher wires its Monitor ahead of a scan.
func connect() (*gopakbus.Device, error) {
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if err := applyConfig(&opts); err != nil {
		return nil, err
	}
	gopakbus.PreserveArrays = opts.FullArrays

	link, err := dialLink(opts.Link, opts.Proxy)
	if err != nil {
		return nil, err
	}

	var metrics *gopakbus.Metrics
	if opts.MetricsAddr != "" {
		metrics = gopakbus.NewMetrics(prometheus.DefaultRegisterer)
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(opts.MetricsAddr, nil); err != nil {
				log.WithError(err).Warn("pakbus: metrics server stopped")
			}
		}()
	}

	cfg := gopakbus.Config{
		DestNode:     opts.DestNode,
		SrcNode:      opts.SrcNode,
		SecurityCode: opts.SecurityCode,
		Timeout:      time.Duration(opts.Timeout) * time.Second,
		Swath:        opts.Swath,
		Metrics:      metrics,
	}
	return gopakbus.NewDevice(link, cfg)
}

func dialLink(url, proxy string) (gopakbus.Link, error) {
	switch {
	case hasPrefix(url, "tcp:"):
		return gopakbus.NewTCPLink(url[len("tcp:"):], proxy), nil
	case hasPrefix(url, "serial:"):
		rest := url[len("serial:"):]
		path, baudStr := splitLast(rest, ':')
		baud := uint32(9600)
		if baudStr != "" {
			parsed, err := strconv.ParseUint(baudStr, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad baud rate %q: %w", baudStr, err)
			}
			baud = uint32(parsed)
		}
		return gopakbus.NewSerialLink(path, baud), nil
	default:
		return nil, fmt.Errorf("unrecognized link url %q (want tcp:host:port or serial:/dev/tty:baud)", url)
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func splitLast(s string, sep byte) (string, string) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
