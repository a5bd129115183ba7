package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vitalvas/sph/form"
)

type formFlags struct {
	successURL  string
	failureURL  string
	cancelURL   string
	language    string
	amount      string
	currency    string
	order       string
	description string
	token       string
	submit      bool
}

// boolFlags are the optional form switches, named after their fields
// without the sph- prefix.
var boolFlags = []string{
	"accept-cvc-required",
	"skip-form-notifications",
	"exit-iframe-on-result",
	"exit-iframe-on-three-d-secure",
	"use-three-d-secure",
}

func newFormCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "form",
		Short: "Generate signed hosted form parameters",
	}

	cmd.AddCommand(
		newFormTypeCmd(o, "add-card", "Add a card", false, func(b *form.Builder, f *formFlags, cmd *cobra.Command) (*form.Container, error) {
			return b.AddCard(form.AddCardOptions{
				SuccessURL:        f.successURL,
				FailureURL:        f.failureURL,
				CancelURL:         f.cancelURL,
				Language:          f.language,
				AcceptCVCRequired: optionalBool(cmd, "accept-cvc-required"),
				Flags:             formSwitches(cmd),
			})
		}),
		newFormTypeCmd(o, "payment", "Pay with a card", true, func(b *form.Builder, f *formFlags, cmd *cobra.Command) (*form.Container, error) {
			return b.Payment(f.paymentOptions(cmd))
		}),
		newFormTypeCmd(o, "add-card-and-pay", "Add a card and pay with it", true, func(b *form.Builder, f *formFlags, cmd *cobra.Command) (*form.Container, error) {
			return b.AddCardAndPayment(f.paymentOptions(cmd))
		}),
		newFormTypeCmd(o, "pay-with-token", "Pay with a stored card token and CVC", true, func(b *form.Builder, f *formFlags, cmd *cobra.Command) (*form.Container, error) {
			token, err := uuid.Parse(f.token)
			if err != nil {
				return nil, fmt.Errorf("invalid --token: %w", err)
			}

			return b.PayWithTokenAndCVC(token, f.paymentOptions(cmd))
		}),
	)

	return cmd
}

type formBuildFunc func(b *form.Builder, f *formFlags, cmd *cobra.Command) (*form.Container, error)

func newFormTypeCmd(o *options, use, short string, payment bool, build formBuildFunc) *cobra.Command {
	f := &formFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			builder, err := form.NewBuilder(form.Config{
				BaseURL:     o.cfg.Gateway.BaseURL,
				Credentials: o.cfg.Credentials(),
				Account:     o.cfg.Gateway.Account,
				Merchant:    o.cfg.Gateway.Merchant,
				Logger:      o.logger,
			})
			if err != nil {
				return err
			}

			c, err := build(builder, f, cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if f.submit {
				client := form.NewClient(form.ClientConfig{Logger: o.logger})

				body, err := client.Submit(cmd.Context(), c)
				if err != nil {
					return err
				}

				_, err = out.Write(body)

				return err
			}

			fmt.Fprintf(out, "action: %s %s\n", c.Method, c.ActionURL())
			printFields(out, c.Fields)

			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.successURL, "success-url", "", "Redirect target after the form is handled")
	flags.StringVar(&f.failureURL, "failure-url", "", "Redirect target after a failure")
	flags.StringVar(&f.cancelURL, "cancel-url", "", "Redirect target when the user cancels")
	flags.StringVar(&f.language, "language", "", "Form language, e.g. EN or FI")
	flags.BoolVar(&f.submit, "submit", false, "Submit the form to the gateway and print the response")

	if payment {
		flags.StringVar(&f.amount, "amount", "", "Amount in minor units")
		flags.StringVar(&f.currency, "currency", "EUR", "Currency code")
		flags.StringVar(&f.order, "order", "", "Merchant order id")
		flags.StringVar(&f.description, "description", "", "Description shown on the form")
	}

	if use == "pay-with-token" {
		flags.StringVar(&f.token, "token", "", "Stored card token")
		_ = cmd.MarkFlagRequired("token")
	}

	for _, name := range boolFlags {
		if name == "accept-cvc-required" && use != "add-card" {
			continue
		}

		flags.Bool(name, false, "Set sph-"+name+"; omitted unless given")
	}

	return cmd
}

func (f *formFlags) paymentOptions(cmd *cobra.Command) form.PaymentOptions {
	return form.PaymentOptions{
		SuccessURL:  f.successURL,
		FailureURL:  f.failureURL,
		CancelURL:   f.cancelURL,
		Language:    f.language,
		Amount:      f.amount,
		Currency:    f.currency,
		Order:       f.order,
		Description: f.description,
		Flags:       formSwitches(cmd),
	}
}

func formSwitches(cmd *cobra.Command) form.Flags {
	return form.Flags{
		SkipFormNotifications:    optionalBool(cmd, "skip-form-notifications"),
		ExitIframeOnResult:       optionalBool(cmd, "exit-iframe-on-result"),
		ExitIframeOnThreeDSecure: optionalBool(cmd, "exit-iframe-on-three-d-secure"),
		UseThreeDSecure:          optionalBool(cmd, "use-three-d-secure"),
	}
}

// optionalBool returns nil unless the flag was given on the command line.
func optionalBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}

	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return nil
	}

	return form.Bool(v)
}
