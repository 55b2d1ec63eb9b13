package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/CuongBC195/e-contract-backend/pkg/logutils"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf/fonts"
)

var args struct {
	Input         string `arg:"positional,required" help:"Path to a document JSON file"`
	Output        string `arg:"-o,--output" default:"out.pdf"`
	LogLevel      string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	Timeout       int    `arg:"--timeout" default:"30" help:"Export timeout in seconds"`
	TypedFontPath string `arg:"--typed-font-path,env:TYPED_FONT_PATH" help:"TrueType font embedded for typed signatures (optional)"`
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	logutils.SetLoggerLevel(args.LogLevel)

	data, err := os.ReadFile(args.Input)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Fatalf("parse document: %v", err)
	}

	opts := []pdf.ExporterOption{
		pdf.WithTimeout(time.Duration(args.Timeout) * time.Second),
	}
	if args.TypedFontPath != "" {
		fontData, err := os.ReadFile(args.TypedFontPath)
		if err != nil {
			log.Fatalf("read typed font: %v", err)
		}
		f, err := fonts.ParseTTF("TypedSignature", fontData)
		if err != nil {
			log.Fatalf("parse typed font: %v", err)
		}
		opts = append(opts, pdf.WithTypedFont(f))
	}

	out, err := pdf.NewExporter(opts...).Export(context.Background(), &doc)
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	if err := os.WriteFile(args.Output, out, 0644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Infof("wrote %s (%d bytes)", args.Output, len(out))
}
