package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"smartmeter-synth/internal/auth"
	"smartmeter-synth/internal/config"
	generationapp "smartmeter-synth/internal/generation/application"
	"smartmeter-synth/internal/generation/application/eventbus"
	generation "smartmeter-synth/internal/generation/domain"
	"smartmeter-synth/internal/generation/interfaces"
)

const usage = `usage: meter-synth <command> [flags]

commands:
  generate   synthesize a dataset and write it as json, csv, xlsx or pdf
  validate   check that MPANs are 13 digits
  token      mint a bearer token for the HTTP API
`

var errInvalidMpan = errors.New("meter-synth: invalid mpan")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "generate":
		return runGenerate(ctx, args[1:], stdout, stderr)
	case "validate":
		return runValidate(args[1:], stdout)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("meter-synth: unknown command %q", args[0])
	}
}

type generateFlags struct {
	configPath       string
	start            string
	end              string
	period           int
	businessType     string
	measurementClass string
	meters           int
	meterIDs         string
	site             string
	deterministic    bool
	seed             int64
	estimatedRate    float64
	missingRate      float64
	format           string
	out              string
	quiet            bool
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f generateFlags
	fs.StringVar(&f.configPath, "config", "", "YAML settings file (defaults to $SYNTH_CONFIG)")
	fs.StringVar(&f.start, "start", "", "first day (YYYY-MM-DD)")
	fs.StringVar(&f.end, "end", "", "last day, inclusive (YYYY-MM-DD)")
	fs.IntVar(&f.period, "period", 0, "period length in minutes")
	fs.StringVar(&f.businessType, "business-type", "", "Office, Retail, Industrial, Residential or Other")
	fs.StringVar(&f.measurementClass, "measurement-class", "", "measurement class tag")
	fs.IntVar(&f.meters, "meters", 0, "number of meters to synthesize")
	fs.StringVar(&f.meterIDs, "meter-ids", "", "comma separated meter uuids")
	fs.StringVar(&f.site, "site", "", "site name")
	fs.BoolVar(&f.deterministic, "deterministic", false, "derive the seed from the configuration")
	fs.Int64Var(&f.seed, "seed", 0, "explicit seed (implies deterministic)")
	fs.Float64Var(&f.estimatedRate, "estimated-rate", 0, "share of estimated days")
	fs.Float64Var(&f.missingRate, "missing-rate", 0, "share of missing days")
	fs.StringVar(&f.format, "format", string(interfaces.FormatJSON), "json, csv, xlsx or pdf")
	fs.StringVar(&f.out, "out", "", "output file (defaults to stdout)")
	fs.BoolVar(&f.quiet, "quiet", false, "suppress the run log line")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("meter-synth: unexpected arguments %v", fs.Args())
	}

	format, err := interfaces.ParseFormat(f.format)
	if err != nil {
		return err
	}
	settings, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	defaults, err := settings.Generation.Configuration()
	if err != nil {
		return err
	}

	logOut := stderr
	if f.quiet {
		logOut = io.Discard
	}
	bus := eventbus.NewInMemoryBus()
	interfaces.NewLoggingSubscriber(log.New(logOut, "", log.LstdFlags)).Register(bus)
	generator := generation.NewGenerator(generation.WithMpanOptions(generation.WithMaxAttempts(settings.Limits.MaxMpanAttempts)))
	service, err := generationapp.NewService(generator, bus, defaults, generationapp.WithLimits(generationapp.Limits{
		MaxMeters:       settings.Limits.MaxMeters,
		MaxDays:         settings.Limits.MaxDays,
		MaxPeriodValues: settings.Limits.MaxPeriodValues,
	}))
	if err != nil {
		return err
	}

	result, err := service.GenerateRequest(ctx, requestFromFlags(fs, f))
	if err != nil {
		return err
	}

	if f.out == "" {
		return interfaces.Export(stdout, format, result.Dataset)
	}
	file, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("meter-synth: create %s: %w", f.out, err)
	}
	if err := interfaces.Export(file, format, result.Dataset); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// requestFromFlags maps only the flags the user set, so unset ones fall back
// to the loaded settings.
func requestFromFlags(fs *flag.FlagSet, f generateFlags) generationapp.GenerateRequest {
	var req generationapp.GenerateRequest
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "start":
			req.StartDate = f.start
		case "end":
			req.EndDate = f.end
		case "period":
			req.Period = &f.period
		case "business-type":
			req.BusinessType = f.businessType
		case "measurement-class":
			req.MeasurementClass = f.measurementClass
		case "meters":
			req.MeterCount = &f.meters
		case "meter-ids":
			for _, id := range strings.Split(f.meterIDs, ",") {
				if id = strings.TrimSpace(id); id != "" {
					req.MeterIDs = append(req.MeterIDs, id)
				}
			}
		case "site":
			req.SiteName = &f.site
		case "deterministic":
			req.Deterministic = &f.deterministic
		case "seed":
			req.Seed = &f.seed
		case "estimated-rate":
			req.EstimatedRate = &f.estimatedRate
		case "missing-rate":
			req.MissingRate = &f.missingRate
		}
	})
	return req
}

func runValidate(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no mpan given", errInvalidMpan)
	}
	invalid := 0
	for _, mpan := range args {
		status := "valid"
		if !generation.ValidateMpan(mpan) {
			status = "invalid"
			invalid++
		}
		fmt.Fprintf(stdout, "%s\t%s\n", mpan, status)
	}
	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidMpan, invalid, len(args))
	}
	return nil
}

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", envOrDefault("AUTH_JWT_SECRET", envOrDefault("JWT_SECRET", "")), "HS256 signing secret")
	tenant := fs.String("tenant", envOrDefault("TENANT_ID", "tenant-demo"), "tenant_id claim")
	role := fs.String("role", string(auth.RoleViewer), "viewer, operator or admin")
	subject := fs.String("subject", "meter-synth", "sub claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	normalized, ok := auth.NormalizeRole(*role)
	if !ok {
		return fmt.Errorf("meter-synth: invalid role %q", *role)
	}
	token, err := auth.IssueJWT([]byte(*secret), *tenant, normalized, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
