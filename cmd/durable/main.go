// Command durable manages orchestration instances through the webhook URLs
// exposed by their task hub. It exercises every client operation: starting
// instances, querying and filtering status, raising events, terminating,
// rewinding, purging history and waiting for completion.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goa.design/clue/log"

	"goa.design/durable/client"
	"goa.design/durable/telemetry"
)

func main() {
	var (
		configF  = flag.String("config", "durable.json", "webhook configuration file (JSON or YAML)")
		timeoutF = flag.Duration("timeout", 0, "per-request timeout (0 uses the transport default)")
		dbgF     = flag.Bool("debug", false, "log debug messages")
	)
	flag.Usage = usage
	flag.Parse()

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "load configuration %q", *configF)
	}
	opts := []client.Option{
		client.WithLogger(telemetry.NewClueLogger()),
		client.WithMetrics(telemetry.NewClueMetrics()),
		client.WithTracer(telemetry.NewClueTracer()),
	}
	if *timeoutF > 0 {
		opts = append(opts, client.WithRequestTimeout(*timeoutF))
	}
	c, err := client.New(cfg, opts...)
	if err != nil {
		log.Fatalf(ctx, err, "create client")
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := run(ctx, c, cmd, args); err != nil {
		log.Fatalf(ctx, err, "%s failed", cmd)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "start":
		return runStart(ctx, c, args)
	case "status":
		return runStatus(ctx, c, args)
	case "status-all":
		return runStatusAll(ctx, c, args)
	case "status-by":
		return runStatusBy(ctx, c, args)
	case "raise":
		return runRaise(ctx, c, args)
	case "terminate":
		return runTerminate(ctx, c, args)
	case "rewind":
		return runRewind(ctx, c, args)
	case "purge":
		return runPurge(ctx, c, args)
	case "purge-by":
		return runPurgeBy(ctx, c, args)
	case "wait":
		return runWait(ctx, c, args)
	case "payload":
		return runPayload(c, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runStart(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	idF := fs.String("id", "", "instance id to assign (empty lets the host choose)")
	assignF := fs.Bool("assign-id", false, "generate and assign a fresh instance id")
	inputF := fs.String("input", "", "orchestrator input as JSON")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable start [flags] ORCHESTRATOR")
	}

	var opts []client.StartOption
	id := *idF
	if id == "" && *assignF {
		id = client.NewInstanceID()
	}
	if id != "" {
		opts = append(opts, client.WithInstanceID(id))
	}
	if *inputF != "" {
		if !json.Valid([]byte(*inputF)) {
			return fmt.Errorf("input is not valid JSON: %s", *inputF)
		}
		opts = append(opts, client.WithInput(json.RawMessage(*inputF)))
	}

	res, err := c.StartNew(ctx, fs.Arg(0), opts...)
	if err != nil {
		return err
	}
	if !res.HasInstanceID {
		log.Printf(ctx, "start accepted, host returned no instance id")
		return nil
	}
	return printJSON(res)
}

func runStatus(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	historyF := fs.Bool("history", false, "include the execution history")
	historyOutputF := fs.Bool("history-output", false, "include activity outputs in the history")
	showInputF := fs.String("show-input", "", `echo the instance input ("true" or "false"; empty uses the host default)`)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable status [flags] INSTANCE")
	}

	var opts []client.StatusOption
	if *historyF {
		opts = append(opts, client.WithShowHistory())
	}
	if *historyOutputF {
		opts = append(opts, client.WithShowHistoryOutput())
	}
	if *showInputF != "" {
		show, err := parseBool(*showInputF)
		if err != nil {
			return fmt.Errorf("-show-input: %w", err)
		}
		opts = append(opts, client.WithShowInput(show))
	}

	status, err := c.GetStatus(ctx, fs.Arg(0), opts...)
	if err != nil {
		return err
	}
	if status == nil {
		log.Printf(ctx, "no status for instance %q", fs.Arg(0))
		return nil
	}
	return printJSON(status)
}

func runStatusAll(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("status-all", flag.ExitOnError)
	_ = fs.Parse(args)

	statuses, err := c.GetStatusAll(ctx)
	if err != nil {
		return err
	}
	return printJSON(statuses)
}

func runStatusBy(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("status-by", flag.ExitOnError)
	fromF := fs.String("from", "", "created-time lower bound (RFC 3339)")
	toF := fs.String("to", "", "created-time upper bound (RFC 3339)")
	statusF := fs.String("status", "", "comma-separated runtime statuses")
	_ = fs.Parse(args)

	var filter client.StatusFilter
	var err error
	if filter.CreatedTimeFrom, err = parseTime(*fromF); err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	if filter.CreatedTimeTo, err = parseTime(*toF); err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	filter.RuntimeStatuses = parseStatuses(*statusF)

	statuses, err := c.GetStatusBy(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(statuses)
}

func runRaise(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("raise", flag.ExitOnError)
	dataF := fs.String("data", "", "event payload as JSON")
	taskHubF := fs.String("task-hub", "", "target task hub (defaults to the configured one)")
	connectionF := fs.String("connection", "", "target storage connection name")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("usage: durable raise [flags] INSTANCE EVENT")
	}

	var opts []client.RaiseEventOption
	if *dataF != "" {
		if !json.Valid([]byte(*dataF)) {
			return fmt.Errorf("data is not valid JSON: %s", *dataF)
		}
		opts = append(opts, client.WithEventData(json.RawMessage(*dataF)))
	}
	if *taskHubF != "" {
		opts = append(opts, client.WithTaskHub(*taskHubF))
	}
	if *connectionF != "" {
		opts = append(opts, client.WithConnection(*connectionF))
	}

	if err := c.RaiseEvent(ctx, fs.Arg(0), fs.Arg(1), opts...); err != nil {
		return err
	}
	log.Printf(ctx, "event %q raised on instance %q", fs.Arg(1), fs.Arg(0))
	return nil
}

func runTerminate(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("terminate", flag.ExitOnError)
	reasonF := fs.String("reason", "", "termination reason")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable terminate [flags] INSTANCE")
	}

	if err := c.Terminate(ctx, fs.Arg(0), *reasonF); err != nil {
		return err
	}
	log.Printf(ctx, "termination of instance %q requested", fs.Arg(0))
	return nil
}

func runRewind(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("rewind", flag.ExitOnError)
	reasonF := fs.String("reason", "", "rewind reason")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable rewind [flags] INSTANCE")
	}

	if err := c.Rewind(ctx, fs.Arg(0), *reasonF); err != nil {
		return err
	}
	log.Printf(ctx, "rewind of instance %q requested", fs.Arg(0))
	return nil
}

func runPurge(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable purge INSTANCE")
	}

	result, err := c.PurgeInstanceHistory(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runPurgeBy(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("purge-by", flag.ExitOnError)
	fromF := fs.String("from", "", "created-time lower bound (RFC 3339, required)")
	toF := fs.String("to", "", "created-time upper bound (RFC 3339)")
	statusF := fs.String("status", "", "comma-separated runtime statuses")
	_ = fs.Parse(args)

	var filter client.PurgeFilter
	var err error
	if filter.CreatedTimeFrom, err = parseTime(*fromF); err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	if filter.CreatedTimeTo, err = parseTime(*toF); err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	filter.RuntimeStatuses = parseStatuses(*statusF)

	result, err := c.PurgeInstanceHistoryBy(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runWait(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("wait", flag.ExitOnError)
	waitTimeoutF := fs.Duration("wait-timeout", client.DefaultWaitTimeout, "total time to poll before returning the check-status response")
	intervalF := fs.Duration("interval", client.DefaultRetryInterval, "pause between status polls")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable wait [flags] INSTANCE")
	}

	resp, err := c.WaitForCompletionOrCreateCheckStatusResponse(ctx, nil, fs.Arg(0),
		client.WithWaitTimeout(*waitTimeoutF),
		client.WithRetryInterval(*intervalF),
	)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runPayload(c *client.Client, args []string) error {
	fs := flag.NewFlagSet("payload", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: durable payload INSTANCE")
	}
	return printJSON(c.CreateHTTPManagementPayload(fs.Arg(0)))
}

// loadConfig reads and validates the webhook configuration, picking the
// parser from the file extension.
func loadConfig(path string) (*client.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return client.ParseConfigYAML(data)
	default:
		return client.ParseConfig(data)
	}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("want %q or %q, got %q", "true", "false", s)
	}
}

func parseStatuses(s string) []client.RuntimeStatus {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	statuses := make([]client.RuntimeStatus, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			statuses = append(statuses, client.RuntimeStatus(p))
		}
	}
	return statuses
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: durable [flags] COMMAND [command flags] ARGS

Commands:
  start        schedule a new orchestration instance
  status       fetch the status of one instance
  status-all   fetch the status of every instance
  status-by    fetch the status of instances matching a filter
  raise        deliver an external event to a waiting instance
  terminate    request termination of a running instance
  rewind       replay a failed instance from its last good checkpoint
  purge        delete the stored history of one instance
  purge-by     delete the stored history of instances matching a filter
  wait         poll an instance until it finishes or the wait times out
  payload      print the management payload for an instance

Flags:
`)
	flag.PrintDefaults()
}
