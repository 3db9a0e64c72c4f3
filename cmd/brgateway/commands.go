package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/brgateway/config"
	"github.com/jonwraymond/brgateway/gateway"
	"github.com/jonwraymond/brgateway/observe"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "brgateway",
		Short:         "Resilient gateway for CNPJ, CEP and web search lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("BRGW_CONFIG"),
		"path to a YAML config file (env: BRGW_CONFIG)")

	root.AddCommand(
		newServeCmd(&configPath),
		newLookupCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx, *configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) (err error) {
	a, err := newApp(ctx, cfg, version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		err = errors.Join(err, a.Close(shutdownCtx))
	}()

	a.startBackground(ctx)

	handler, err := a.handler()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "gateway listening", observe.F("addr", cfg.Server.Addr), observe.F("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLookupCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Resolve one identifier and print the upstream record",
	}

	run := func(kind string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx, *configPath)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, version)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, a.Close(context.WithoutCancel(ctx))) }()

			var res *gateway.Result
			switch kind {
			case gateway.KindCNPJ:
				res, err = a.gateway.LookupCNPJ(ctx, args[0])
			default:
				res, err = a.gateway.LookupCEP(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "cnpj <cnpj>",
			Short: "Look up a company by CNPJ",
			Args:  cobra.ExactArgs(1),
			RunE:  run(gateway.KindCNPJ),
		},
		&cobra.Command{
			Use:   "cep <cep>",
			Short: "Look up an address by CEP",
			Args:  cobra.ExactArgs(1),
			RunE:  run(gateway.KindCEP),
		},
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
