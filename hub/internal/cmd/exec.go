package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amurg-ai/contenthub/hub/internal/config"
	"github.com/amurg-ai/contenthub/hub/internal/events"
	"github.com/amurg-ai/contenthub/hub/internal/host"
	"github.com/amurg-ai/contenthub/hub/internal/store"
	"github.com/amurg-ai/contenthub/pkg/protocol"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <request-json>",
		Short: "Apply one exec command directly against the configured store",
		Example: `  contenthub exec --as alice '{"type":"create_hub","payload":{"name":"Chess Club","price":{"denom":"uxion","amount":"100"}}}'
  contenthub exec --as bob --funds 100uxion '{"type":"subscribe_to_hub","payload":{"hub_id":"alice"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: runExec,
	}
	cmd.Flags().String("as", "", "caller identity (required)")
	cmd.Flags().String("funds", "", `attached funds, e.g. "100uxion,5ustake"`)
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "query <request-json>",
		Short:   "Answer one query directly against the configured store",
		Example: `  contenthub query '{"type":"hub_posts","payload":{"user":"bob","hub_id":"alice","page":1,"size":10}}'`,
		Args:    cobra.ExactArgs(1),
		RunE:    runQuery,
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	sender, _ := cmd.Flags().GetString("as")
	fundsFlag, _ := cmd.Flags().GetString("funds")

	var req protocol.ExecRequest
	if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if fundsFlag != "" {
		funds, err := protocol.ParseCoins(fundsFlag)
		if err != nil {
			return err
		}
		req.Funds = append(req.Funds, funds...)
	}

	h, closeFn, err := openHost(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := h.Exec(cmd.Context(), sender, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runQuery(cmd *cobra.Command, args []string) error {
	var req protocol.Request
	if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}

	h, closeFn, err := openHost(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := h.Query(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

// openHost opens the configured store behind a Host. Exec results are also
// published to Kafka when brokers are configured.
func openHost(cmd *cobra.Command) (*host.Host, func(), error) {
	cfg, err := config.Load(resolveConfigPath(cmd, nil, defaultConfigPath))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

	s, err := store.New(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	var publishers []events.Publisher
	var kafkaPub *events.KafkaPublisher
	if len(cfg.Events.KafkaBrokers) > 0 {
		kafkaPub, err = events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publishers = append(publishers, kafkaPub)
	}

	closeFn := func() {
		if kafkaPub != nil {
			if err := kafkaPub.Close(); err != nil {
				logger.Warn("close kafka publisher", "error", err)
			}
		}
		if err := s.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}
	return host.New(s, logger, publishers...), closeFn, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
