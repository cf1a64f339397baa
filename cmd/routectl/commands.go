package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-corridors/pkg/audit"
	"github.com/dd0wney/cluso-corridors/pkg/auth"
	"github.com/dd0wney/cluso-corridors/pkg/corridor"
	"github.com/dd0wney/cluso-corridors/pkg/ingest"
	"github.com/dd0wney/cluso-corridors/pkg/logging"
	"github.com/dd0wney/cluso-corridors/pkg/routing"
	corridortls "github.com/dd0wney/cluso-corridors/pkg/tls"
	"github.com/dd0wney/cluso-corridors/pkg/validation"
)

// usageError marks failures the flag package already reported.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }

func isUsageError(err error) bool {
	var ue usageError
	return errors.As(err, &ue)
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return usageError{errors.New("unexpected arguments")}
	}
	return nil
}

// graphFlags selects where a command loads its graph from.
type graphFlags struct {
	source    string
	snapshot  string
	predictor string
	logLevel  string
}

func (g *graphFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.source, "source", os.Getenv("CORRIDOR_GRAPH_SOURCE"), "corridor dataset: CSV path, s3://, postgres:// or neo4j:// URI")
	fs.StringVar(&g.snapshot, "snapshot", "", "read the graph from a snapshot file instead of -source")
	fs.StringVar(&g.predictor, "predictor", os.Getenv("CORRIDOR_PREDICTOR_URL"), "friction predictor base URL for rows missing metrics")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level written to stderr")
}

func (g *graphFlags) logger(stderr io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(g.logLevel)
	return logging.NewJSONLogger(stderr, level), nil
}

func (g *graphFlags) load(ctx context.Context, logger logging.Logger) (*corridor.Graph, error) {
	if g.snapshot != "" {
		return ingest.ReadSnapshot(g.snapshot)
	}
	if g.source == "" {
		return nil, errors.New("one of -source or -snapshot is required")
	}

	source, err := ingest.OpenSource(ctx, g.source)
	if err != nil {
		return nil, err
	}
	var predictor ingest.Predictor
	if g.predictor != "" {
		predictor = ingest.NewHTTPPredictor(ingest.DefaultPredictorConfig(g.predictor), logger, nil)
	}
	builder := ingest.NewBuilder(source, ingest.BuilderOptions{Predictor: predictor, Logger: logger})
	defer builder.Close()
	return builder.Build(ctx)
}

func runRoute(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		gf      graphFlags
		from    = fs.String("from", "", "source country code")
		to      = fs.String("to", "", "destination country code")
		k       = fs.Int("k", routing.DefaultK, "number of routes to return")
		maxHops = fs.Int("max-hops", routing.DefaultMaxHops, "maximum corridors per route")
		weights = fs.String("weights", "", "cost,time,risk weights (default 0.6,0.2,0.2)")
		higher  = fs.Bool("higher-is-better", false, "rank by descending score")
		timeout = fs.Duration("timeout", 30*time.Second, "overall time limit")
	)
	gf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	req := &validation.RouteRequest{
		Source:         strings.TrimSpace(*from),
		Destination:    strings.TrimSpace(*to),
		K:              k,
		MaxHops:        maxHops,
		HigherIsBetter: *higher,
	}
	if *weights != "" {
		w, err := parseWeights(*weights)
		if err != nil {
			return err
		}
		req.Weights = w
	}
	if err := validation.ValidateRouteRequest(req, validation.Limits{}); err != nil {
		return err
	}

	logger, err := gf.logger(stderr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	g, err := gf.load(ctx, logger)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	engine := routing.NewEngine(corridor.NewStore(g, nil, logger), nil, routing.EngineConfig{}, logger)
	resp, err := engine.Route(ctx, req.ToRouting())
	if err != nil {
		return err
	}
	return writeJSON(stdout, resp)
}

// parseWeights reads "cost,time,risk".
func parseWeights(s string) (*validation.WeightsRequest, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("weights must be cost,time,risk: %q", s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", p, err)
		}
		vals[i] = v
	}
	return &validation.WeightsRequest{Cost: vals[0], Time: vals[1], Risk: vals[2]}, nil
}

func runSnapshot(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var gf graphFlags
	out := fs.String("out", "", "snapshot file to write")
	gf.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("-out is required")
	}

	logger, err := gf.logger(stderr)
	if err != nil {
		return err
	}
	g, err := gf.load(context.Background(), logger)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	if err := ingest.WriteSnapshot(*out, g); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s: %d nodes, %d corridors\n", *out, g.NodeCount(), g.EdgeCount())
	return nil
}

func runToken(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		secret  = fs.String("secret", os.Getenv("CORRIDOR_JWT_SECRET"), "HMAC signing secret shared with corridord")
		issuer  = fs.String("issuer", "corridord", "token issuer")
		ttl     = fs.Duration("ttl", time.Hour, "token lifetime")
		subject = fs.String("subject", "", "token subject")
		role    = fs.String("role", auth.RoleOperator, "admin, operator or viewer")
	)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-subject is required")
	}

	m, err := auth.NewJWTManager(*secret, *issuer, *ttl)
	if err != nil {
		return err
	}
	tok, err := m.GenerateToken(*subject, *role)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}

func runCert(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("cert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		certFile = fs.String("cert", "certs/server.crt", "certificate output file")
		keyFile  = fs.String("key", "certs/server.key", "private key output file")
		hosts    = fs.String("hosts", "localhost,127.0.0.1", "comma-separated DNS names and IPs")
		validFor = fs.Duration("valid-for", 365*24*time.Hour, "certificate lifetime")
	)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var hostList []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hostList = append(hostList, h)
		}
	}
	if err := corridortls.WriteSelfSigned(hostList, *validFor, *certFile, *keyFile); err != nil {
		return err
	}
	notAfter, err := corridortls.CertificateNotAfter(*certFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s and %s, valid until %s\n", *certFile, *keyFile, notAfter.UTC().Format(time.RFC3339))
	return nil
}

func runAuditVerify(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("audit-verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "audit log to verify")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	n, err := audit.VerifyFile(*file)
	if err != nil {
		return fmt.Errorf("%s: %w", *file, err)
	}
	fmt.Fprintf(stdout, "%s: %d events, chain intact\n", *file, n)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
