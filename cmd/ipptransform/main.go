// Command ipptransform converts a PDF or JPEG print job into PWG
// raster or HP PCL and writes the result to stdout or a socket://
// device URI. It is invoked per job by an IPP server, which passes the
// job ticket through IPP_* environment variables and reads progress
// from stderr.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenPrinting/go-mfp/util/optional"

	"github.com/mzyy94/ipptransform/internal/ippopt"
	"github.com/mzyy94/ipptransform/internal/report"
	"github.com/mzyy94/ipptransform/internal/sink"
	"github.com/mzyy94/ipptransform/internal/source"
	"github.com/mzyy94/ipptransform/internal/transform"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ()))
}

// cli holds the flag and environment inputs of one invocation.
type cli struct {
	filename    string
	deviceURI   string
	inputType   string
	outputType  string
	resolutions string
	sheetBack   string
	types       string
	clauses     []string
	verbosity   int
}

func run(args, environ []string) int {
	c, err := parseArgs(args, environ)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		usage(os.Stderr)
		return 1
	}
	if c == nil {
		usage(os.Stdout)
		return 0
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(c.verbosity),
	})))
	rep := report.New(os.Stderr, c.verbosity)

	if err := transformFile(c, environ, rep); err != nil {
		rep.Error("%s", err)
		return 1
	}
	return 0
}

// parseArgs walks the argument list. A nil cli with nil error means
// --help was requested.
func parseArgs(args, environ []string) (*cli, error) {
	c := &cli{
		deviceURI:   envValue(environ, "DEVICE_URI"),
		inputType:   envValue(environ, "CONTENT_TYPE"),
		outputType:  envValue(environ, "OUTPUT_TYPE"),
		resolutions: envValue(environ, "PWG_RASTER_DOCUMENT_RESOLUTION_SUPPORTED"),
		sheetBack:   envValue(environ, "PWG_RASTER_DOCUMENT_SHEET_BACK"),
		types:       envValue(environ, "PWG_RASTER_DOCUMENT_TYPE_SUPPORTED"),
	}
	switch envValue(environ, "SERVER_LOGLEVEL") {
	case "debug":
		c.verbosity = 2
	case "info":
		c.verbosity = 1
	}

	needArg := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("missing argument for %q", flag)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--help":
			return nil, nil
		case "-d":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.deviceURI = v
			i++
		case "-i":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.inputType = v
			i++
		case "-m":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.outputType = v
			i++
		case "-o":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.clauses = append(c.clauses, v)
			i++
		case "-r":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.resolutions = v
			i++
		case "-s":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.sheetBack = v
			i++
		case "-t":
			v, err := needArg(i, arg)
			if err != nil {
				return nil, err
			}
			c.types = v
			i++
		case "-v":
			c.verbosity++
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, fmt.Errorf("unknown option %q", arg)
			}
			if c.filename != "" {
				return nil, fmt.Errorf("unexpected argument %q", arg)
			}
			c.filename = arg
		}
	}

	if c.filename == "" {
		return nil, errors.New("no input file")
	}
	if c.inputType == "" {
		c.inputType = sniffType(c.filename)
	}
	if c.inputType == "" {
		return nil, fmt.Errorf("cannot determine the format of %q, use -i", c.filename)
	}
	if c.outputType == "" {
		c.outputType = transform.MimePWGRaster
	}
	if c.resolutions == "" {
		c.resolutions = "300dpi"
	}
	if c.types == "" {
		c.types = transform.TypeSGray8 + "," + transform.TypeSRGB8
	}
	return c, nil
}

// transformFile runs the whole pipeline for one job.
func transformFile(c *cli, environ []string, rep *report.Reporter) error {
	opts := ippopt.New()
	opts.LoadEnv(environ)
	for _, clause := range c.clauses {
		opts.ParseClause(clause)
	}
	if c.deviceURI == "" {
		c.deviceURI = opts.Get("device-uri")
	}

	doc, err := source.Open(c.filename, c.inputType)
	if err != nil {
		return err
	}
	defer doc.Close()

	set := transform.Settings{
		Resolutions: ippopt.ParseResolutionList(c.resolutions),
		Types:       ippopt.ParseKeywordList(c.types),
		SheetBack:   c.sheetBack,
		Log:         rep,
	}
	if v := envValue(environ, "PRINTER_MEDIA_DEFAULT"); v != "" {
		set.MediaDefault = optional.New(v)
	}
	if v := envValue(environ, "PRINTER_SIDES_DEFAULT"); v != "" {
		set.SidesDefault = optional.New(v)
	}
	if c.outputType == transform.MimePCL {
		// PCL output dithers from grayscale; color never applies
		set.Types = []string{transform.TypeSGray8}
	}

	ticket, err := transform.NewTicket(opts, set, doc.Pages(), doc.Color())
	if err != nil {
		return err
	}
	slog.Info("job configured",
		"media", ticket.Media.Name,
		"resolution", ticket.Resolution,
		"type", ticket.ColorType,
		"sides", ticket.Sides,
		"copies", ticket.Copies,
		"pages", ticket.Pages)

	out, err := sink.Open(c.deviceURI)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := transform.NewEncoder(c.outputType, out)
	if err != nil {
		return err
	}

	job := &transform.Job{
		Doc:      doc,
		Ticket:   ticket,
		Encoder:  enc,
		Reporter: rep,
		Upscale:  c.inputType == source.MimeJPEG,
	}
	return job.Run()
}

// sniffType infers the input MIME type from the file extension.
func sniffType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return source.MimePDF
	case ".jpg", ".jpeg":
		return source.MimeJPEG
	default:
		return ""
	}
}

func envValue(environ []string, name string) string {
	prefix := name + "="
	for _, kv := range environ {
		if strings.HasPrefix(kv, prefix) {
			return kv[len(prefix):]
		}
	}
	return ""
}

func logLevel(verbosity int) slog.Level {
	switch {
	case verbosity >= 2:
		return slog.LevelDebug
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}

func usage(w *os.File) {
	fmt.Fprintln(w, `Usage: ipptransform [options] filename

Options:
  -d device-uri    Output to socket://host[:port] instead of stdout
  -i mime-type     Input format (application/pdf or image/jpeg)
  -m mime-type     Output format (application/vnd.hp-pcl or image/pwg-raster)
  -o "name=value"  Job options, repeatable
  -r resolutions   Supported resolutions, e.g. 300dpi,600dpi
  -s sheet-back    Back side transform: normal, flipped, manual-tumble, rotated
  -t types         Supported raster types, e.g. sgray_8,srgb_8
  -v               Increase verbosity
  --help           Show this help`)
}
