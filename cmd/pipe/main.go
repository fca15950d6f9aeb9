// Command pipe runs a record pipeline definition over 80-byte fixed-width
// records. It loads an optional JSON run config, resolves the input source
// (console, file, or http), optionally initializes a metrics backend, and
// executes the pipeline with the selected evaluation strategy.
//
// Usage:
//
//	pipe -pipe examples/sales.pipe < input.txt
//	pipe -config configs/runs/nightly.json
//	pipe -config configs/runs/nightly.json -validate
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"recpipe/internal/config"
	"recpipe/internal/datasource"
	"recpipe/internal/datasource/file"
	"recpipe/internal/datasource/remote"
	"recpipe/internal/dsl"
	"recpipe/internal/exec"
	"recpipe/internal/metrics"
	"recpipe/internal/metrics/datadog"
	"recpipe/internal/metrics/prompush"
	"recpipe/internal/sink"
	"recpipe/pkg/records"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run is the whole program behind the process boundary: flags in, records
// through, summary out.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pipe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath           = fs.String("config", "", "run config JSON path")
		pipePath          = fs.String("pipe", "", "pipeline definition path (overrides config)")
		inPath            = fs.String("in", "", "input record file (overrides config; default stdin)")
		outPath           = fs.String("o", "", "output file (overrides config; default stdout)")
		executor          = fs.String("executor", "", "evaluation strategy: batch or rat (overrides config)")
		validate          = fs.Bool("validate", false, "validate the configuration and exit")
		metricsBackendFlg = fs.String("metrics-backend", "", "metrics backend (none, prometheus, datadog; overrides config)")
		pushGatewayURLFlg = fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
		verbose           = fs.Bool("v", false, "enable verbose logs")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var runCfg config.Run
	if *cfgPath != "" {
		var err error
		if runCfg, err = config.Load(*cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	// Flags win over the config file.
	if *pipePath != "" {
		runCfg.Pipe.Path = *pipePath
	}
	if *inPath != "" {
		runCfg.Input.Kind = "file"
		runCfg.Input.File.Path = *inPath
	}
	if *outPath != "" {
		runCfg.Output.Kind = "file"
		runCfg.Output.File.Path = *outPath
	}
	if *executor != "" {
		runCfg.Executor = *executor
	}
	if *metricsBackendFlg != "" {
		runCfg.Metrics.Backend = *metricsBackendFlg
	}

	// An ad hoc invocation without a config file still validates; fill the
	// conventional defaults first.
	if runCfg.Job == "" {
		runCfg.Job = "adhoc"
	}
	if runCfg.Input.Kind == "" {
		runCfg.Input.Kind = "console"
	}
	if runCfg.Output.Kind == "" {
		runCfg.Output.Kind = "console"
	}

	issues := config.ValidateRun(runCfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		return fmt.Errorf("configuration is invalid")
	}
	if *validate {
		fmt.Fprintln(stderr, "configuration is valid")
		return nil
	}

	if runCfg.Pipe.Path == "" {
		return fmt.Errorf("no pipeline definition: pass -pipe or set pipe.path in the config")
	}
	text, err := os.ReadFile(runCfg.Pipe.Path)
	if err != nil {
		return fmt.Errorf("read pipe file: %w", err)
	}
	spec, err := dsl.Parse(string(text))
	if err != nil {
		return fmt.Errorf("parse %s: %w", runCfg.Pipe.Path, err)
	}
	if len(spec.Pipelines) == 0 {
		return fmt.Errorf("%s: no pipelines defined", runCfg.Pipe.Path)
	}

	setupMetrics(runCfg, *pushGatewayURLFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()

	mode := exec.ModeBatch
	if runCfg.Executor == "rat" {
		mode = exec.ModeRAT
	}

	// consoleInput materializes the configured input when a pipeline heads
	// with a console boundary.
	consoleInput := func() ([]records.Record, error) {
		switch runCfg.Input.Kind {
		case "", "console":
			return datasource.ReadRecords(ctx, datasource.NewReader(stdin), "")
		case "file":
			src := file.NewLocal(runCfg.Input.File.Path)
			return datasource.ReadRecords(ctx, src, runCfg.Input.File.Encoding)
		case "http":
			client := remote.NewClient(remote.Config{
				MaxRetries:         runCfg.Input.HTTP.MaxRetries,
				InsecureSkipVerify: runCfg.Input.HTTP.InsecureSkipVerify,
			})
			src := remote.NewSource(client, runCfg.Input.HTTP.URL)
			return datasource.ReadRecords(ctx, src, "")
		default:
			return nil, fmt.Errorf("unknown input kind %q", runCfg.Input.Kind)
		}
	}

	nIn := -1
	source := func(cmd dsl.Command) ([]records.Record, error) {
		recs, err := func() ([]records.Record, error) {
			if cmd.Kind == dsl.KindRead {
				return datasource.ReadRecords(ctx, file.NewLocal(cmd.Path), "")
			}
			return consoleInput()
		}()
		if err == nil && nIn < 0 {
			nIn = len(recs)
		}
		return recs, err
	}
	fileSink := func(cmd dsl.Command, recs []records.Record) error {
		return sink.NewFile(cmd.Path).Write(ctx, recs)
	}

	out, err := exec.RunSpec(spec, mode, source, fileSink)
	if err != nil {
		return err
	}

	if out != nil {
		var dst sink.Sink
		switch runCfg.Output.Kind {
		case "", "console":
			dst = sink.NewWriter(stdout)
		case "file":
			dst = sink.NewFile(runCfg.Output.File.Path)
		default:
			return fmt.Errorf("unknown output kind %q", runCfg.Output.Kind)
		}
		if err := dst.Write(ctx, out); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if nIn < 0 {
		nIn = 0
	}
	fmt.Fprintf(stderr, "Processed %d -> %d records (checksum %016x)\n",
		nIn, len(out), exec.Checksum(out))
	return nil
}

// setupMetrics installs the configured backend, leaving the nop backend in
// place on "none" or on initialization failure.
func setupMetrics(runCfg config.Run, pushGatewayURLFlg string, verbose bool) {
	backendName := runCfg.Metrics.Backend
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "prometheus", "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = runCfg.Metrics.Options.String("pushgateway_url", "")
		}
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		job := runCfg.Metrics.Options.String("job", runCfg.Job)

		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		if verbose {
			log.Printf("metrics: url=%v, backend=%v, job=%v", gwURL, backendName, job)
		}
		metrics.SetBackend(b)

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      runCfg.Metrics.Options.String("statsd_addr", ""),
			Namespace: runCfg.Metrics.Options.String("namespace", ""),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}
