package form

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitalvas/sph/sphsig"
)

// Form view paths on the gateway.
const (
	PathAddCard            = "/form/view/add_card"
	PathPayWithCard        = "/form/view/pay_with_card"
	PathAddCardAndPay      = "/form/view/add_and_pay_with_card"
	PathPayWithTokenAndCVC = "/form/view/pay_with_token_and_cvc"
)

// ErrInvalidConfig is returned by NewBuilder when the configuration is
// incomplete.
var ErrInvalidConfig = errors.New("form: invalid builder config")

// Config configures a Builder.
type Config struct {
	// Method is the form submission method. Defaults to POST.
	Method string

	// BaseURL is the gateway service URL, e.g. https://v1-hub-staging.sph-test-solinor.com.
	BaseURL string

	// Credentials sign every generated form.
	Credentials sphsig.Credentials

	// Account and Merchant identify the merchant at the gateway.
	Account  string
	Merchant string

	// Logger receives one debug entry per generated form. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// Flags are optional form behavior switches. A nil flag is omitted from
// the form and the gateway default applies.
type Flags struct {
	SkipFormNotifications    *bool
	ExitIframeOnResult       *bool
	ExitIframeOnThreeDSecure *bool
	UseThreeDSecure          *bool
}

// AddCardOptions are the inputs of an add-card form.
type AddCardOptions struct {
	SuccessURL string
	FailureURL string
	CancelURL  string
	Language   string

	// AcceptCVCRequired accepts a card token even if the card requires a
	// CVC for payments.
	AcceptCVCRequired *bool

	Flags
}

// PaymentOptions are the inputs of the payment forms.
type PaymentOptions struct {
	SuccessURL string
	FailureURL string
	CancelURL  string
	Language   string

	// Amount in the currency's minor unit, e.g. "1990" for 19.90 EUR.
	Amount   string
	Currency string
	Order    string

	// Description is shown on the form. It is not signed.
	Description string

	Flags
}

// Bool returns a pointer to v for use in Flags.
func Bool(v bool) *bool {
	return &v
}

// Builder generates signed form parameters for the gateway's hosted forms.
// A Builder is safe for concurrent use.
type Builder struct {
	method      string
	baseURL     string
	credentials sphsig.Credentials
	account     string
	merchant    string
	logger      *zap.Logger
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url must be absolute", ErrInvalidConfig)
	}

	if cfg.Account == "" {
		return nil, fmt.Errorf("%w: account is required", ErrInvalidConfig)
	}

	if cfg.Merchant == "" {
		return nil, fmt.Errorf("%w: merchant is required", ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		method:      method,
		baseURL:     cfg.BaseURL,
		credentials: cfg.Credentials,
		account:     cfg.Account,
		merchant:    cfg.Merchant,
		logger:      logger,
	}, nil
}

// AddCard generates the parameters of the add-card form.
func (b *Builder) AddCard(opts AddCardOptions) (*Container, error) {
	p, err := b.common(opts.SuccessURL, opts.FailureURL, opts.CancelURL, opts.Language)
	if err != nil {
		return nil, err
	}

	setBool(p, sphsig.FieldAcceptCVCRequired, opts.AcceptCVCRequired)
	opts.Flags.apply(p)

	return b.sign(PathAddCard, p)
}

// Payment generates the parameters of the pay-with-card form.
func (b *Builder) Payment(opts PaymentOptions) (*Container, error) {
	p, err := b.payment(opts)
	if err != nil {
		return nil, err
	}

	return b.sign(PathPayWithCard, p)
}

// AddCardAndPayment generates the parameters of the form that stores a
// card and pays with it in one step.
func (b *Builder) AddCardAndPayment(opts PaymentOptions) (*Container, error) {
	p, err := b.payment(opts)
	if err != nil {
		return nil, err
	}

	return b.sign(PathAddCardAndPay, p)
}

// PayWithTokenAndCVC generates the parameters of the form that pays with
// a stored card token and asks the user for the CVC.
func (b *Builder) PayWithTokenAndCVC(token uuid.UUID, opts PaymentOptions) (*Container, error) {
	if token == uuid.Nil {
		return nil, fmt.Errorf("%w: %s", sphsig.ErrMissingField, sphsig.FieldToken)
	}

	p, err := b.payment(opts)
	if err != nil {
		return nil, err
	}

	p.Set(sphsig.FieldToken, token.String())

	return b.sign(PathPayWithTokenAndCVC, p)
}

func (b *Builder) common(successURL, failureURL, cancelURL, language string) (*sphsig.ParameterSet, error) {
	if err := required(
		field{sphsig.FieldSuccessURL, successURL},
		field{sphsig.FieldFailureURL, failureURL},
		field{sphsig.FieldCancelURL, cancelURL},
	); err != nil {
		return nil, err
	}

	id, err := sphsig.NewIdentity()
	if err != nil {
		return nil, err
	}

	p := &sphsig.ParameterSet{}
	p.Set(sphsig.FieldAPIVersion, sphsig.APIVersion)
	p.Set(sphsig.FieldAccount, b.account)
	p.Set(sphsig.FieldMerchant, b.merchant)
	p.Set(sphsig.FieldCancelURL, cancelURL)
	p.Set(sphsig.FieldFailureURL, failureURL)
	p.Set(sphsig.FieldSuccessURL, successURL)
	id.Apply(p)

	if language != "" {
		p.Set(sphsig.FieldLanguage, language)
	}

	return p, nil
}

func (b *Builder) payment(opts PaymentOptions) (*sphsig.ParameterSet, error) {
	if err := required(
		field{sphsig.FieldAmount, opts.Amount},
		field{sphsig.FieldCurrency, opts.Currency},
		field{sphsig.FieldOrder, opts.Order},
	); err != nil {
		return nil, err
	}

	p, err := b.common(opts.SuccessURL, opts.FailureURL, opts.CancelURL, opts.Language)
	if err != nil {
		return nil, err
	}

	p.Set(sphsig.FieldAmount, opts.Amount)
	p.Set(sphsig.FieldCurrency, opts.Currency)
	p.Set(sphsig.FieldOrder, opts.Order)

	if opts.Description != "" {
		p.Set(sphsig.FieldDescription, opts.Description)
	}

	opts.Flags.apply(p)

	return p, nil
}

func (b *Builder) sign(action string, p *sphsig.ParameterSet) (*Container, error) {
	if _, err := sphsig.SignParameters(b.method, action, p, nil, b.credentials); err != nil {
		return nil, err
	}

	requestID, _ := p.Get(sphsig.FieldRequestID)

	b.logger.Debug("form parameters generated",
		zap.String("action", action),
		zap.String("request_id", requestID),
		zap.Object("credentials", b.credentials),
	)

	return &Container{
		Method:    b.method,
		BaseURL:   b.baseURL,
		Action:    action,
		Fields:    p,
		RequestID: requestID,
	}, nil
}

func (f Flags) apply(p *sphsig.ParameterSet) {
	setBool(p, sphsig.FieldSkipFormNotifications, f.SkipFormNotifications)
	setBool(p, sphsig.FieldExitIframeOnResult, f.ExitIframeOnResult)
	setBool(p, sphsig.FieldExitIframeOnThreeDSecure, f.ExitIframeOnThreeDSecure)
	setBool(p, sphsig.FieldUseThreeDSecure, f.UseThreeDSecure)
}

func setBool(p *sphsig.ParameterSet, name sphsig.Field, v *bool) {
	if v != nil {
		p.Set(name, strconv.FormatBool(*v))
	}
}

type field struct {
	name  sphsig.Field
	value string
}

func required(fields ...field) error {
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s", sphsig.ErrMissingField, f.name)
		}
	}

	return nil
}
