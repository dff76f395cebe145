package main

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/example/ai-detect/internal/admission"
	"github.com/example/ai-detect/internal/batch"
	"github.com/example/ai-detect/internal/classifier"
	"github.com/example/ai-detect/internal/config"
	"github.com/example/ai-detect/internal/detectclient"
	"github.com/example/ai-detect/internal/export"
	"github.com/example/ai-detect/internal/history"
	"github.com/example/ai-detect/internal/preview"
)

func main() {
	app := &cli.App{
		Name:  "ai-detect",
		Usage: "submit images to a deepfake classification service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to config file"},
			&cli.StringFlag{Name: "endpoint", Usage: "override the service base URL"},
			&cli.StringFlag{Name: "out", Usage: "override the export directory"},
		},
		Commands: []*cli.Command{
			{
				Name:      "scan",
				Usage:     "analyze a single image and print the report",
				ArgsUsage: "<image file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "also write a JSON export"},
					&cli.BoolFlag{Name: "report", Usage: "also write the text report to a file"},
				},
				Action: scanAction,
			},
			{
				Name:      "batch",
				Usage:     "analyze multiple images sequentially",
				ArgsUsage: "<image files...>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "write a JSON export of all completed results"},
					&cli.DurationFlag{Name: "delay", Usage: "override the inter-request delay"},
				},
				Action: batchAction,
			},
			{
				Name:   "ping",
				Usage:  "check the remote service health",
				Action: pingAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	client *detectclient.Client
}

func bootstrap(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if endpoint := c.String("endpoint"); endpoint != "" {
		cfg.BaseURL = endpoint
	}
	if out := c.String("out"); out != "" {
		cfg.ExportDir = out
	}

	logger, err := newCLILogger()
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	client := detectclient.New(cfg.BaseURL, httpClient, logger)
	return &runtime{cfg: cfg, logger: logger, client: client}, nil
}

func newCLILogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func scanAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("scan expects exactly one image file")
	}

	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	item, err := loadItem(c.Args().First())
	if err != nil {
		return err
	}
	policy := admission.Policy{MaxSize: rt.cfg.MaxUploadSize}
	if err := policy.Validate(item); err != nil {
		return err
	}

	result, err := rt.client.Detect(c.Context, item)
	if err != nil {
		return err
	}
	result.Preview = preview.DataURI(item)

	fmt.Print(export.Report(*result))

	now := time.Now()
	if c.Bool("json") {
		path, err := export.WriteJSON(rt.cfg.ExportDir, []classifier.Result{*result}, now)
		if err != nil {
			return err
		}
		fmt.Println("JSON export:", path)
	}
	if c.Bool("report") {
		path, err := export.WriteReport(rt.cfg.ExportDir, *result, now)
		if err != nil {
			return err
		}
		fmt.Println("Report:", path)
	}
	return nil
}

func batchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("batch expects at least one image file")
	}

	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	delay := rt.cfg.BatchDelay
	if c.IsSet("delay") {
		delay = c.Duration("delay")
	}

	candidates := make([]admission.Item, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		item, err := loadItem(path)
		if err != nil {
			return err
		}
		candidates = append(candidates, item)
	}

	policy := admission.Policy{MaxSize: rt.cfg.MaxUploadSize}
	ledger := history.NewLedger()
	previews := preview.NewLoader(rt.logger)
	queue := batch.NewQueue(policy, rt.client, ledger, previews, delay, rt.logger)

	admitted, err := queue.Admit(candidates)
	if err != nil {
		return err
	}
	if admitted < len(candidates) {
		fmt.Printf("Admitted %d of %d files (rejected files skipped)\n", admitted, len(candidates))
	}

	if err := queue.Run(c.Context); err != nil {
		return err
	}
	previews.Wait()

	for _, entry := range queue.Snapshot() {
		switch entry.Status {
		case batch.StatusCompleted:
			verdict := "SYNTHETIC"
			if entry.Result.IsReal {
				verdict = "AUTHENTIC"
			}
			fmt.Printf("%-40s %-10s %.1f%% risk=%s\n", entry.Item.Name, verdict,
				entry.Result.Confidence*100, entry.Result.RiskLevel)
		case batch.StatusError:
			fmt.Printf("%-40s FAILED     %s\n", entry.Item.Name, entry.ErrMessage)
		}
	}

	progress := queue.Progress()
	fmt.Printf("Done: %d completed, %d failed\n", progress.Completed, progress.Failed)

	if c.Bool("json") && ledger.Len() > 0 {
		path, err := export.WriteJSON(rt.cfg.ExportDir, ledger.All(), time.Now())
		if err != nil {
			return err
		}
		fmt.Println("JSON export:", path)
	}
	return nil
}

func pingAction(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	health, err := rt.client.CheckHealth(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Status: %s\n", health.Status)
	fmt.Printf("Message: %s\n", health.Message)
	fmt.Printf("Model Loaded: %t\n", health.ModelLoaded)
	fmt.Printf("Device: %s\n", health.Device)
	return nil
}

// loadItem reads a file from disk into an admission candidate. The
// declared media type comes from the file extension, falling back to
// content sniffing.
func loadItem(path string) (admission.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return admission.Item{}, fmt.Errorf("read %s: %w", path, err)
	}
	mediaType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	return admission.Item{
		Name:      filepath.Base(path),
		Data:      data,
		MediaType: mediaType,
	}, nil
}
