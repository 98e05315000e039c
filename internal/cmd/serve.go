package cmd

import (
	"strings"

	"github.com/haatos/nightly/internal"
	"github.com/haatos/nightly/internal/handler"
	"github.com/haatos/nightly/internal/settings"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

var (
	serveConfigPath string
	servePort       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve run history and release downloads over HTTP",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVarP(
		&serveConfigPath, "config", "c", internal.DefaultConfigPath, "path to the build configuration")
	serveCmd.Flags().StringVarP(
		&servePort, "port", "p", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := settings.ReadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	history, closeDB, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if !strings.HasPrefix(servePort, ":") {
		servePort = ":" + servePort
	}

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	handler.SetupRunRoutes(e, handler.NewRunHandler(history, cfg.OutputDir))

	internal.GracefulShutdown(e, servePort)
	return nil
}
