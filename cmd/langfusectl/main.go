// Command langfusectl is a small client for the langfuse HTTP API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rezaarrazi-sqe/langfuse/internal/domain"
	"github.com/rezaarrazi-sqe/langfuse/internal/logger"
)

const usage = `usage: langfusectl [-addr URL] <command> [flags]

commands:
  export       download a dataset run as CSV
  upload       write a dataset run's CSV to blob storage
  observation  fetch one observation
  compose      build a webhook URL from form fields
  parse        split a webhook URL into host, port and path
  trigger      call a dataset's remote experiment webhook
`

func main() {
	addr := flag.String("addr", "http://localhost:8080", "langfuse server address")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New(level, true)

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	client := NewClient(*addr, *timeout)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Debug().Str("addr", *addr).Str("command", flag.Arg(0)).Msg("running")
	if err := runCommand(ctx, client, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		log.Error().Err(err).Msg(flag.Arg(0) + " failed")
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, client *Client, name string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	project := fs.String("project", "", "project id")

	switch name {
	case "export":
		dataset := fs.String("dataset", "", "dataset id")
		run := fs.String("run", "", "dataset run id")
		dir := fs.String("out", ".", "output directory")
		if err := fs.Parse(args); err != nil {
			return err
		}
		fileName, data, err := client.ExportRun(ctx, *project, *dataset, *run)
		if err != nil {
			return err
		}
		path := filepath.Join(*dir, fileName)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(out, "wrote %s (%d bytes)\n", path, len(data))
		return nil

	case "upload":
		dataset := fs.String("dataset", "", "dataset id")
		run := fs.String("run", "", "dataset run id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := client.UploadRun(ctx, *project, *dataset, *run)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "uploaded %d rows to %s\n", resp.Rows, resp.Key)
		return nil

	case "observation":
		id := fs.String("id", "", "observation id")
		trace := fs.String("trace", "", "trace id")
		start := fs.String("start-time", "", "observation start time (RFC 3339)")
		verbosity := fs.String("verbosity", "", "compact, truncated or full")
		if err := fs.Parse(args); err != nil {
			return err
		}
		query := url.Values{}
		if *trace != "" {
			query.Set("traceId", *trace)
		}
		if *start != "" {
			query.Set("startTime", *start)
		}
		if *verbosity != "" {
			query.Set("verbosity", *verbosity)
		}
		raw, err := client.GetObservation(ctx, *project, *id, query)
		if err != nil {
			return err
		}
		return printJSON(out, raw)

	case "compose":
		var req domain.URLFormRequest
		fs.StringVar(&req.Mode, "mode", "split", "split, url or path")
		fs.StringVar(&req.Host, "host", "", "host (split mode)")
		fs.StringVar(&req.Port, "port", "", "port (split mode)")
		fs.StringVar(&req.Path, "path", "", "path")
		fs.StringVar(&req.URL, "url", "", "full URL (url mode)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		composed, err := client.ComposeURL(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, composed)
		return nil

	case "parse":
		raw := fs.String("url", "", "URL to split")
		if err := fs.Parse(args); err != nil {
			return err
		}
		parts, err := client.ParseURL(ctx, *raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "host=%s port=%s path=%s\n", parts.Host, parts.Port, parts.Path)
		return nil

	case "trigger":
		dataset := fs.String("dataset", "", "dataset id")
		payload := fs.String("payload", "", "JSON payload overriding the stored default")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := client.TriggerExperiment(ctx, *project, *dataset, *payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s responded %d\n", resp.URL, resp.StatusCode)
		return nil
	}
	return fmt.Errorf("unknown command %q", name)
}

func printJSON(out io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	formatted, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(formatted))
	return nil
}
