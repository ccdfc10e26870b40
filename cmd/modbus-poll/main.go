// Command modbus-poll runs a single poll request against a Modbus TCP or
// RTU target at a fixed cadence, printing each row as JSON to stdout and
// optionally appending it to a CSV file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	modbus "github.com/brineworks/modbus-poller"
	"github.com/brineworks/modbus-poller/poller"
)

func main() {
	raw, csvPath := parseFlags()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	req, errRec := modbus.ValidatePollRequest(raw)
	if errRec != nil {
		logger.Error("invalid poll request", "code", errRec.Code, "message", errRec.Message)
		os.Exit(1)
	}

	observer, closeObserver, err := buildObserver(req, csvPath, logger)
	if err != nil {
		logger.Error("failed to open csv sink", "err", err)
		os.Exit(1)
	}
	defer closeObserver()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	p := poller.New(poller.Config{Logger: logger})
	result, err := p.Run(ctx, req, observer)
	if err != nil {
		logger.Error("poller not started", "err", err)
		os.Exit(1)
	}
	if result.Err != nil {
		logger.Error("polling ended with failure", "code", result.Err.Code, "message", result.Err.Message)
		os.Exit(1)
	}
	logger.Info("polling ended")
}

func parseFlags() (modbus.RawPollRequest, string) {
	var raw modbus.RawPollRequest
	var csvPath string
	var knownSerialPorts string

	flag.StringVar(&raw.TargetToken, "target", "", "IPv4 address for Modbus TCP, or a serial device path/COM port for Modbus RTU")
	flag.IntVar(&raw.TCPPort, "tcp-port", 502, "TCP port, Modbus TCP only")
	flag.IntVar(&raw.Baud, "baud", 9600, "serial baud rate, Modbus RTU only")
	flag.StringVar(&knownSerialPorts, "known-ports", "", "comma-separated list of valid COM ports, Windows only")

	flag.IntVar(&raw.DeviceID, "device-id", 1, "unit/device id, 1-255")
	flag.IntVar(&raw.FunctionCode, "function", 3, "Modbus function code: 1,2,3,4,5,6,16")
	flag.IntVar(&raw.StartRegister, "start", 1, "starting register/coil address")
	flag.IntVar(&raw.CountOrValue, "count", 1, "number of values (or coils) to read, or the value to write for functions 5/6")
	flag.StringVar(&raw.DataType, "type", "uint16", "data type token, see Table 1")

	flag.BoolVar(&raw.ByteSwap, "byte-swap", false, "swap adjacent bytes within each register before decoding")
	flag.BoolVar(&raw.WordSwap, "word-swap", false, "reverse register order within each value group before decoding")
	flag.BoolVar(&raw.ZeroBased, "zero-based", false, "treat -start as already zero-based instead of 1-based")
	flag.BoolVar(&raw.RawBytes, "raw-bytes", false, "bypass the data type decoder and return raw bytes per register")

	flag.IntVar(&raw.TimeoutMS, "timeout-ms", 1000, "per-poll response timeout in milliseconds")
	flag.IntVar(&raw.PollCount, "poll-count", 1, "number of polls to run, 0 means poll forever")
	flag.IntVar(&raw.DelayMS, "delay-ms", 1000, "delay between polls in milliseconds")

	flag.StringVar(&csvPath, "csv", "", "optional CSV file to append rows to")
	flag.IntVar(&raw.DirectionPin, "direction-pin", -1, "BCM GPIO pin driving a half-duplex RS-485 transceiver, -1 for none")

	flag.Parse()

	if knownSerialPorts != "" {
		raw.KnownSerialPorts = strings.Split(knownSerialPorts, ",")
	}
	return raw, csvPath
}

// stdoutObserver prints each row as a timestamped JSON object.
type stdoutObserver struct {
	addrs []int
	now   func() time.Time
}

type stdoutRow struct {
	Time   time.Time      `json:"time"`
	Values map[string]any `json:"values"`
}

func (o *stdoutObserver) OnRow(values []modbus.Value) {
	row := make(map[string]any, len(values))
	for i, v := range values {
		addr := i
		if i < len(o.addrs) {
			addr = o.addrs[i]
		}
		row[fmt.Sprintf("%d", addr)] = valueAsAny(v)
	}
	raw, err := json.Marshal(stdoutRow{Time: o.now(), Values: row})
	if err != nil {
		return
	}
	fmt.Println(string(raw))
}

func (o *stdoutObserver) OnError(err *modbus.ErrorRecord) {
	fmt.Fprintf(os.Stderr, "Err %d: %s\n", err.Code, err.Message)
}

func valueAsAny(v modbus.Value) any {
	switch v.Kind {
	case modbus.ValueUint:
		return v.Uint
	case modbus.ValueInt:
		return v.Int
	case modbus.ValueFloat:
		return v.Flt
	case modbus.ValueString:
		return v.Str
	case modbus.ValueRaw:
		return fmt.Sprintf("% x", v.Raw)
	default:
		return nil
	}
}

// buildObserver wires the stdout printer together with an optional CSV
// sink, returning a combined observer and its cleanup func.
func buildObserver(req modbus.PollRequest, csvPath string, logger *slog.Logger) (modbus.RowObserver, func(), error) {
	addrs := modbus.DisplayAddresses(req.FunctionCode, req.StartAddr, req.NumRegs(), max(req.Count, 1))
	stdout := &stdoutObserver{addrs: addrs, now: time.Now}

	if csvPath == "" {
		return stdout, func() {}, nil
	}

	sink, errRec := modbus.NewCSVSink(csvPath, addrs)
	if errRec != nil {
		return nil, func() {}, errRec
	}
	logger.Info("appending rows to csv", "path", csvPath)
	return modbus.NewMultiObserver(stdout, sink), func() { _ = sink.Close() }, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
