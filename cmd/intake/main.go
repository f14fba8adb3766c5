package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	intakex "github.com/tanpawarit/fluxy-lead-intake/agent/agents/intake"
	channelx "github.com/tanpawarit/fluxy-lead-intake/agent/channel"
	contactx "github.com/tanpawarit/fluxy-lead-intake/agent/contact"
	contractx "github.com/tanpawarit/fluxy-lead-intake/agent/contract"
	handoffx "github.com/tanpawarit/fluxy-lead-intake/agent/handoff"
	dedupex "github.com/tanpawarit/fluxy-lead-intake/agent/handoff/dedupe"
	leadx "github.com/tanpawarit/fluxy-lead-intake/agent/lead"
	llmx "github.com/tanpawarit/fluxy-lead-intake/agent/llm"
	backendx "github.com/tanpawarit/fluxy-lead-intake/pkg/backend"
	configx "github.com/tanpawarit/fluxy-lead-intake/pkg/config"
	_ "github.com/tanpawarit/fluxy-lead-intake/pkg/logger/autoload"
	postgresx "github.com/tanpawarit/fluxy-lead-intake/pkg/postgres"
	rabbitmqx "github.com/tanpawarit/fluxy-lead-intake/pkg/rabbitmq"
)

type AppConfig struct {
	SessionID   string `envconfig:"SESSION_ID"`
	AgentType   string `envconfig:"AGENT_TYPE" default:"orchestrator"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Usage: intake [-env path/to/.env] [session-id]
func main() {
	flag.Parse()
	appCfg := configx.MustNew[AppConfig]("")
	if v := strings.TrimSpace(flag.Arg(0)); v != "" {
		appCfg.SessionID = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *appCfg, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("intake stopped")
	}
}

func run(ctx context.Context, appCfg AppConfig, in io.Reader, out io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	db := postgresx.MustOpen(*configx.MustNew[postgresx.Config]("POSTGRES"))
	defer db.Close()

	if err := channelx.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate channel accounts: %w", err)
	}
	if err := contactx.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate contacts: %w", err)
	}

	resolver, err := channelx.NewResolver(db)
	if err != nil {
		return err
	}
	contacts, err := contactx.NewStore(db)
	if err != nil {
		return err
	}
	leads, err := leadx.New(contacts, resolver)
	if err != nil {
		return err
	}

	dispatcher, closeHandoff, err := newDispatcher(ctx, reg)
	if err != nil {
		return err
	}
	defer closeHandoff()

	svc, err := intakex.New(leads, dispatcher, *configx.MustNew[intakex.Config](""), intakex.WithMetrics(intakex.NewMetrics(reg)))
	if err != nil {
		return err
	}

	if appCfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(appCfg.MetricsAddr, reg)
		defer stopMetrics()
	}

	if strings.TrimSpace(appCfg.SessionID) != "" {
		ctx = contractx.WithSession(ctx, contractx.StaticSession(appCfg.SessionID))
	} else {
		log.Warn().Msg("no session id given, contacts will be keyed by the serialized session")
	}

	agentType := contractx.AgentType(appCfg.AgentType)
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")

	var respond func(ctx context.Context, line string) (string, error)
	if llmCfg.Enabled() {
		respond, err = chatResponder(ctx, *llmCfg, agentType, svc)
		if err != nil {
			return err
		}
	} else {
		log.Info().Msg("openrouter api key not set, reading tool calls as '<tool> <json>'")
		respond = directResponder(svc)
	}

	return loop(ctx, in, out, respond)
}

func newDispatcher(ctx context.Context, reg prometheus.Registerer) (*handoffx.Dispatcher, func(), error) {
	backend, err := backendx.NewClient(*configx.MustNew[backendx.Config](""))
	if err != nil {
		return nil, nil, err
	}

	opts := []handoffx.Option{handoffx.WithMetrics(handoffx.NewMetrics(reg))}
	closer := func() {}

	mqCfg := configx.MustNew[rabbitmqx.Config]("RABBITMQ")
	if mqCfg.Enabled() {
		pub, err := rabbitmqx.Dial(ctx, *mqCfg)
		if err != nil {
			return nil, nil, err
		}
		notifier, err := handoffx.NewAMQPNotifier(pub, mqCfg.Exchange)
		if err != nil {
			_ = pub.Close()
			return nil, nil, err
		}
		opts = append(opts, handoffx.WithNotifier(notifier))
		closer = func() {
			if err := pub.Close(); err != nil {
				log.Warn().Err(err).Msg("close rabbitmq publisher")
			}
		}
	}

	claimCfg := configx.MustNew[dedupex.UpstashConfig]("UPSTASH_REDIS")
	if claimCfg.Enabled() {
		claims, err := dedupex.NewUpstashStore(*claimCfg)
		if err != nil {
			closer()
			return nil, nil, err
		}
		opts = append(opts, handoffx.WithClaimer(claims))
	}

	d, err := handoffx.New(backend, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return d, closer, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func loop(ctx context.Context, in io.Reader, out io.Writer, respond func(context.Context, string) (string, error)) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		reply, err := respond(ctx, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			reply = "Desculpe, tive um problema agora. Pode repetir?"
		}
		fmt.Fprintf(out, "%s\n> ", reply)
	}
	return scanner.Err()
}
