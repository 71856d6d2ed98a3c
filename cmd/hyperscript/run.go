package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opal-lang/hyperscript/runtime/cache"
	"github.com/opal-lang/hyperscript/runtime/command"
	"github.com/opal-lang/hyperscript/runtime/dom"
	"github.com/opal-lang/hyperscript/runtime/execution"
	"github.com/opal-lang/hyperscript/runtime/store"
)

type runOptions struct {
	events   []string
	target   string
	detail   string
	globals  string
	timeout  time.Duration
	validate bool
	quiet    bool
}

func (a *app) runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <page.html>",
		Short: "Load a page, bind its scripts and fire events at it",
		Long: "Load an HTML page, install the scripts in its _ and data-script attributes, then\n" +
			"dispatch each --event at the --target element and print the resulting page.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			doc, err := a.runPage(ctx, args[0], opts)
			if err != nil {
				return err
			}
			if opts.quiet {
				return nil
			}
			if err := doc.Render(cmd.OutOrStdout()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&opts.events, "event", "e", nil, "Event to dispatch (repeatable, in order)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "body", "Selector of the element events are dispatched at")
	cmd.Flags().StringVar(&opts.detail, "detail", "", "JSON event detail")
	cmd.Flags().StringVar(&opts.globals, "globals", "", "Persist $globals in this bbolt file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Abort blocking commands after this long; 0 disables")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "Check command inputs against their JSON schemas")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print the resulting page")
	return cmd
}

func (a *app) runPage(ctx context.Context, path string, opts runOptions) (*dom.HTMLDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file %s: %w", path, err)
	}
	defer f.Close()
	doc, err := dom.ParseHTML(f)
	if err != nil {
		return nil, err
	}

	var detail any
	if opts.detail != "" {
		if err := json.Unmarshal([]byte(opts.detail), &detail); err != nil {
			return nil, fmt.Errorf("--detail: %w", err)
		}
	}

	var globals execution.Scope = execution.NewMapScope()
	if opts.globals != "" {
		b, err := store.OpenBolt(opts.globals)
		if err != nil {
			return nil, err
		}
		defer b.Close()
		globals = b
	}

	dopts := []command.Option{command.WithLogger(a.logger)}
	if opts.validate {
		dopts = append(dopts, command.WithSchemaValidation())
	}
	d := command.NewDispatcher(a.registry, dopts...)
	h := newHost(d, cache.New(cache.WithLogger(a.logger)), a.logger)
	h.base = d.NewContext(ctx,
		execution.WithDocument(doc),
		execution.WithSink(h),
		execution.WithGlobals(globals),
	)
	if err := h.install(doc); err != nil {
		return nil, err
	}

	if len(opts.events) == 0 {
		return doc, nil
	}
	targets, err := doc.QueryAll(opts.target)
	if err != nil {
		return nil, fmt.Errorf("--target: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("--target %q matches no element", opts.target)
	}
	for _, name := range opts.events {
		a.logger.Debug("firing", "event", name, "target", opts.target)
		if err := h.Dispatch(targets[0], dom.NewEvent(name, targets[0], detail)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
