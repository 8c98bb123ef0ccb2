package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ehr/fhirpath/internal/config"
	"github.com/ehr/fhirpath/internal/platform/fhir"
	"github.com/ehr/fhirpath/internal/platform/middleware"
	"github.com/ehr/fhirpath/pkg/fhirmodels"
	"github.com/ehr/fhirpath/pkg/fhirpath"
	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fhirpath",
		Short:        "Compile and evaluate FHIRPath expressions",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(evalCmd())
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(serveCmd())
	return rootCmd
}

// setup loads the configuration and builds the logger and engine every
// command shares.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, *fhirpath.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	cache, err := ast.NewCache(cfg.ExpressionCacheSize)
	if err != nil {
		return nil, logger, nil, err
	}
	engine := fhirpath.NewEngine(fhirpath.WithCache(cache), fhirpath.WithLogger(logger))
	return cfg, logger, engine, nil
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, _ := cfg.Level()
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// readResource decodes the resource in path, or stdin when path is "" or
// "-". YAML is chosen by file extension.
func readResource(cmd *cobra.Command, path string, typed bool) (interface{}, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading resource: %w", err)
	}

	format := fhirmodels.FormatFromPath(path)
	if typed {
		return fhirmodels.DecodeTyped(data, format)
	}
	return fhirmodels.Decode(data, format)
}

func evalCmd() *cobra.Command {
	var (
		expr  string
		file  string
		typed bool
	)
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate an expression and print the resulting items as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			resource, err := readResource(cmd, file, typed)
			if err != nil {
				return err
			}
			result, err := engine.Evaluate(resource, expr)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result.Value(true))
		},
	}
	cmd.Flags().StringVarP(&expr, "expression", "e", "", "FHIRPath expression")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "resource file (.json, .yaml); - for stdin")
	cmd.Flags().BoolVar(&typed, "typed", false, "decode the resource into its typed model")
	_ = cmd.MarkFlagRequired("expression")
	return cmd
}

func testCmd() *cobra.Command {
	var (
		expr string
		file string
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Evaluate an expression and print its boolean verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			resource, err := readResource(cmd, file, false)
			if err != nil {
				return err
			}
			ok, err := engine.Test(fhirpath.NewElement(resource), expr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "expression", "e", "", "FHIRPath expression")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "resource file (.json, .yaml); - for stdin")
	_ = cmd.MarkFlagRequired("expression")
	return cmd
}

func checkCmd() *cobra.Command {
	var dumpAST bool
	cmd := &cobra.Command{
		Use:   "check EXPRESSION...",
		Short: "Compile expressions and report every one that fails",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var errs error
			for _, expr := range args {
				if _, err := engine.Compile(expr); err != nil {
					errs = multierr.Append(errs, err)
					fmt.Fprintf(out, "FAIL %s\n", expr)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", expr)
				if dumpAST {
					node, _ := engine.CompileExpression(expr)
					fmt.Fprintln(out, node.String())
				}
			}
			if n := len(multierr.Errors(errs)); n > 0 {
				return fmt.Errorf("%d of %d expressions failed: %w", n, len(args), errs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dumpAST, "ast", false, "print the AST of each valid expression")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the FHIRPath HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, engine, err := setup(cmd)
			if err != nil {
				return err
			}
			return runServer(cfg, logger, engine)
		},
	}
}

func newServer(cfg *config.Config, logger zerolog.Logger, engine *fhirpath.Engine) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = fhir.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":             "ok",
			"version":            version,
			"cached_expressions": engine.Cache().Len(),
		})
	})

	fhirGroup := e.Group("/fhir")
	fhir.NewFHIRPathHandler(engine, cfg.MaxResults, logger).RegisterRoutes(fhirGroup)
	return e
}

func runServer(cfg *config.Config, logger zerolog.Logger, engine *fhirpath.Engine) error {
	e := newServer(cfg, logger, engine)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
