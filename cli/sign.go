package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitalvas/sph/sphsig"
)

var errSignatureInvalid = errors.New("signature does not match")

// requestFlags describe the request being signed or verified.
type requestFlags struct {
	method   string
	path     string
	body     string
	bodyFile string
	fields   []string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.method, "method", "POST", "HTTP method")
	cmd.Flags().StringVar(&f.path, "path", "/", "Request path, without query string")
	cmd.Flags().StringVar(&f.body, "body", "", "Request body")
	cmd.Flags().StringVar(&f.bodyFile, "body-file", "", "Read the request body from a file, - for stdin")
	cmd.Flags().StringArrayVar(&f.fields, "field", nil, "Field as name=value; repeatable")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
}

func (f *requestFlags) params() (*sphsig.ParameterSet, error) {
	return parseFields(f.fields)
}

func (f *requestFlags) payload(stdin io.Reader) ([]byte, error) {
	switch f.bodyFile {
	case "":
		return []byte(f.body), nil
	case "-":
		return io.ReadAll(stdin)
	default:
		return os.ReadFile(f.bodyFile)
	}
}

// parseFields builds a ParameterSet from name=value pairs. Repeating a
// name, in any case, is an error.
func parseFields(pairs []string) (*sphsig.ParameterSet, error) {
	p := &sphsig.ParameterSet{}

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: expected name=value", pair)
		}

		if _, exists := p.Get(sphsig.Field(name)); exists {
			return nil, fmt.Errorf("%w: %s", sphsig.ErrDuplicateField, name)
		}

		p.Set(sphsig.Field(name), value)
	}

	return p, nil
}

func printFields(w io.Writer, p *sphsig.ParameterSet) {
	p.Each(func(name sphsig.Field, value string) {
		fmt.Fprintf(w, "%s: %s\n", name, value)
	})
}

func newSignCmd(o *options) *cobra.Command {
	var (
		req     requestFlags
		noStamp bool
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a request and print its fields with the signature",
		Long: `Sign a request and print its fields with the signature.

Unless --no-stamp is given, a fresh sph-request-id and sph-timestamp are
added, and sph-account and sph-merchant are taken from the configuration
when not passed with --field.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds := o.cfg.Credentials()
			if err := creds.Validate(); err != nil {
				return err
			}

			params, err := req.params()
			if err != nil {
				return err
			}

			body, err := req.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}

			if !noStamp {
				if err := o.stamp(params); err != nil {
					return err
				}
			}

			if _, err := sphsig.SignParameters(req.method, req.path, params, body, creds); err != nil {
				return err
			}

			requestID, _ := params.Get(sphsig.FieldRequestID)
			o.logger.Debug("request signed",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.String("request_id", requestID),
				zap.Object("credentials", creds),
			)

			printFields(cmd.OutOrStdout(), params)

			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().BoolVar(&noStamp, "no-stamp", false, "Sign the given fields as they are")

	return cmd
}

// stamp adds a fresh identity and the configured account and merchant
// where the caller did not provide them.
func (o *options) stamp(p *sphsig.ParameterSet) error {
	id, err := sphsig.NewIdentity()
	if err != nil {
		return err
	}

	setIfAbsent(p, sphsig.FieldRequestID, id.RequestID)
	setIfAbsent(p, sphsig.FieldTimestamp, id.Timestamp)
	setIfAbsent(p, sphsig.FieldAccount, o.cfg.Gateway.Account)
	setIfAbsent(p, sphsig.FieldMerchant, o.cfg.Gateway.Merchant)

	return nil
}

func setIfAbsent(p *sphsig.ParameterSet, name sphsig.Field, value string) {
	if value == "" {
		return
	}

	if _, ok := p.Get(name); !ok {
		p.Set(name, value)
	}
}

func newVerifyCmd(o *options) *cobra.Command {
	var (
		req       requestFlags
		signature string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the signature of received fields",
		Long: `Verify the signature of received fields.

The token is taken from --signature or from a "signature" field. The exit
status is non-zero when the signature does not match.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds := o.cfg.Credentials()
			if err := creds.Validate(); err != nil {
				return err
			}

			params, err := req.params()
			if err != nil {
				return err
			}

			if signature != "" {
				params.Set(sphsig.FieldSignature, signature)
			}

			body, err := req.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}

			valid, err := sphsig.Verify(params, req.method, req.path, body, creds.KeyID, creds.Secret)
			if err != nil {
				return err
			}

			requestID, _ := params.Get(sphsig.FieldRequestID)
			o.logger.Debug("signature checked",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.String("request_id", requestID),
				zap.Bool("valid", valid),
			)

			if !valid {
				fmt.Fprintln(cmd.OutOrStdout(), "signature invalid")
				return errSignatureInvalid
			}

			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")

			return nil
		},
	}

	req.register(cmd)
	cmd.Flags().StringVar(&signature, "signature", "", "Received SPH1 token")

	return cmd
}
