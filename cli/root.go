package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vitalvas/sph/config"
)

const longDescription = `sphctl signs and verifies requests for the payment gateway's SPH1
HMAC-SHA256 signature scheme.

Quick start:

  # Sign a server-to-server request
  sphctl sign --method POST --path /transaction --body '{"amount":990}'

  # Verify fields received on a redirect
  sphctl verify --method GET --path /payment/success \
    --field sph-request-id=... --field sph-timestamp=... --signature 'SPH1 ...'

  # Generate a signed hosted form
  sphctl form payment --amount 990 --currency EUR --order 1000 \
    --success-url https://shop.example.com/ok \
    --failure-url https://shop.example.com/fail \
    --cancel-url https://shop.example.com/cancel

  # Serve a merchant endpoint that verifies gateway redirects
  sphctl serve --addr :8080

Credentials and defaults come from --config and SPH_* environment
variables, e.g. SPH_GATEWAY_KEY_ID and SPH_GATEWAY_SECRET.`

// options carries global flags and the state loaded from them.
type options struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the sphctl command tree.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "sphctl",
		Short:         "SPH1 request signing toolkit",
		Long:          longDescription,
		Version:       cliVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")

	cmd.AddCommand(
		newSignCmd(opts),
		newVerifyCmd(opts),
		newFormCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel

		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logger

	return nil
}

func newLogger(c config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if c.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
