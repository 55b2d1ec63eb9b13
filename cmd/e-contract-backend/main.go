package main

import (
	"os"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	backend "github.com/CuongBC195/e-contract-backend"
	"github.com/CuongBC195/e-contract-backend/pkg/archive"
	"github.com/CuongBC195/e-contract-backend/pkg/cli"
	"github.com/CuongBC195/e-contract-backend/pkg/logutils"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf/fonts"
	"github.com/CuongBC195/e-contract-backend/pkg/renderclient"
	"github.com/CuongBC195/e-contract-backend/pkg/renderclient/caroundtripper"
	"github.com/CuongBC195/e-contract-backend/pkg/storage"
	"github.com/CuongBC195/e-contract-backend/pkg/storage/model"
)

var args struct {
	ArchiveDir        string  `arg:"--archive-dir,env:ARCHIVE_DIR" help:"Directory where exported PDFs are archived (optional)"`
	ArchivePassphrase string  `arg:"env:ARCHIVE_PASSPHRASE" help:"Passphrase for archive encryption (optional)"`
	DbDsn             string  `arg:"--db-dsn,env:DB_DSN" help:"Postgres DSN - when using the db storage"`
	ExportTimeout     int     `arg:"--export-timeout,env:EXPORT_TIMEOUT" default:"30" help:"PDF export timeout in seconds"`
	ListenAddr        string  `arg:"-L,--listen-addr" default:"127.0.0.1:8085"`
	LogLevel          string  `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	RateLimit         float64 `arg:"--rate-limit,env:RATE_LIMIT" default:"10" help:"Requests per second per client"`
	RateBurst         int     `arg:"--rate-burst,env:RATE_BURST" default:"20"`
	RenderApiAddr     string  `arg:"--render-api-addr,env:RENDER_API_ADDR" help:"Address of the capture service (optional)"`
	RenderApiCaPath   string  `arg:"--render-api-ca-path,env:RENDER_API_CA_PATH" help:"CA certificate for the capture service"`
	StorageType       string  `arg:"--storage-type,env:STORAGE_TYPE,required" help:"Type of storage to use (memory, db)"`
	TypedFontPath     string  `arg:"--typed-font-path,env:TYPED_FONT_PATH" help:"TrueType font embedded for typed signatures (optional)"`
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)

	exporterOpts := []pdf.ExporterOption{
		pdf.WithTimeout(time.Duration(args.ExportTimeout) * time.Second),
	}
	if args.TypedFontPath != "" {
		data, err := os.ReadFile(args.TypedFontPath)
		if err != nil {
			log.Fatalf("read typed font: %v", err)
		}
		f, err := fonts.ParseTTF("TypedSignature", data)
		if err != nil {
			log.Fatalf("parse typed font: %v", err)
		}
		exporterOpts = append(exporterOpts, pdf.WithTypedFont(f))
	}

	opts := []backend.Option{
		backend.WithExporter(pdf.NewExporter(exporterOpts...)),
		backend.WithRateLimit(args.RateLimit, args.RateBurst),
	}

	if args.ArchiveDir != "" {
		a, err := archive.New(args.ArchiveDir, args.ArchivePassphrase)
		if err != nil {
			log.Fatalf("open archive: %v", err)
		}
		opts = append(opts, backend.WithArchive(a))
	}

	if args.RenderApiAddr != "" {
		opts = append(opts, backend.WithRenderClient(getRenderClient()))
	}

	s := backend.New(getStorage(), opts...)
	if err := s.Run(args.ListenAddr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func getRenderClient() *renderclient.Client {
	rc, err := renderclient.New(args.RenderApiAddr)
	if err != nil {
		log.Fatalf("create render client: %v", err)
	}
	if args.RenderApiCaPath != "" {
		transport, err := caroundtripper.New(args.RenderApiCaPath)
		if err != nil {
			log.Fatalf("load render API CA: %v", err)
		}
		rc.SetHttpTransport(transport)
	}
	healthy, err := rc.Healthz()
	if err != nil || !healthy {
		log.Warnf("capture service at %s is not healthy: %v", args.RenderApiAddr, err)
	} else {
		log.Infof("capture service at %s is healthy", args.RenderApiAddr)
	}
	return rc
}

func getStorage() model.DocumentStore {
	switch strings.ToLower(args.StorageType) {
	case "memory":
		return storage.SetupMemoryStorage()
	case "db":
		return storage.SetupDbStorage(args.DbDsn)
	}

	log.Fatalf("unknown storage type: %s", args.StorageType)
	return nil
}
