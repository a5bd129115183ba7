package form

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/sph/sphsig"
)

var testCredentials = sphsig.Credentials{KeyID: "testKey", Secret: []byte("testSecret")}

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()

	b, err := NewBuilder(Config{
		BaseURL:     "https://v1-hub-staging.sph-test-solinor.com",
		Credentials: testCredentials,
		Account:     "test",
		Merchant:    "test_merchantId",
	})
	require.NoError(t, err)

	return b
}

func paymentOptions() PaymentOptions {
	return PaymentOptions{
		SuccessURL:  "https://merchant.example.com/success",
		FailureURL:  "https://merchant.example.com/failure",
		CancelURL:   "https://merchant.example.com/cancel",
		Language:    "EN",
		Amount:      "1990",
		Currency:    "EUR",
		Order:       "1000123A",
		Description: "A Box of Dreams. 19,90€",
	}
}

func assertSigned(t *testing.T, c *Container) {
	t.Helper()

	ok, err := sphsig.Verify(c.Fields, c.Method, c.Action, nil, testCredentials.KeyID, testCredentials.Secret)
	require.NoError(t, err)
	assert.True(t, ok)
}

func fieldValue(t *testing.T, c *Container, name sphsig.Field) string {
	t.Helper()

	v, ok := c.Fields.Get(name)
	require.True(t, ok, "missing %s", name)

	return v
}

func TestNewBuilder(t *testing.T) {
	valid := Config{
		BaseURL:     "https://v1-hub-staging.sph-test-solinor.com",
		Credentials: testCredentials,
		Account:     "test",
		Merchant:    "test_merchantId",
	}

	t.Run("defaults to POST", func(t *testing.T) {
		b, err := NewBuilder(valid)
		require.NoError(t, err)
		assert.Equal(t, "POST", b.method)
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
		err    error
	}{
		{"missing secret", func(c *Config) { c.Credentials.Secret = nil }, sphsig.ErrEmptySecret},
		{"missing key id", func(c *Config) { c.Credentials.KeyID = "" }, sphsig.ErrEmptyKeyID},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, ErrInvalidConfig},
		{"relative base url", func(c *Config) { c.BaseURL = "/gateway" }, ErrInvalidConfig},
		{"missing account", func(c *Config) { c.Account = "" }, ErrInvalidConfig},
		{"missing merchant", func(c *Config) { c.Merchant = "" }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			_, err := NewBuilder(cfg)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestAddCard(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("common fields", func(t *testing.T) {
		c, err := b.AddCard(AddCardOptions{
			SuccessURL: "https://merchant.example.com/success",
			FailureURL: "https://merchant.example.com/failure",
			CancelURL:  "https://merchant.example.com/cancel",
			Language:   "EN",
		})
		require.NoError(t, err)

		assert.Equal(t, PathAddCard, c.Action)
		assert.Equal(t, "POST", c.Method)
		assert.Equal(t, "20151028", fieldValue(t, c, sphsig.FieldAPIVersion))
		assert.Equal(t, "test", fieldValue(t, c, sphsig.FieldAccount))
		assert.Equal(t, "test_merchantId", fieldValue(t, c, sphsig.FieldMerchant))
		assert.Equal(t, "https://merchant.example.com/cancel", fieldValue(t, c, sphsig.FieldCancelURL))
		assert.Equal(t, "EN", fieldValue(t, c, sphsig.FieldLanguage))
		assert.Equal(t, c.RequestID, fieldValue(t, c, sphsig.FieldRequestID))
		assert.Regexp(t, `^SPH1 testKey [0-9a-f]{64}$`, fieldValue(t, c, sphsig.FieldSignature))

		_, err = uuid.Parse(c.RequestID)
		assert.NoError(t, err)

		_, ok := c.Fields.Get(sphsig.FieldAcceptCVCRequired)
		assert.False(t, ok)

		assertSigned(t, c)
	})

	t.Run("optional flags", func(t *testing.T) {
		c, err := b.AddCard(AddCardOptions{
			SuccessURL:        "https://merchant.example.com/success",
			FailureURL:        "https://merchant.example.com/failure",
			CancelURL:         "https://merchant.example.com/cancel",
			AcceptCVCRequired: Bool(true),
			Flags: Flags{
				SkipFormNotifications:    Bool(true),
				ExitIframeOnResult:       Bool(false),
				ExitIframeOnThreeDSecure: Bool(true),
				UseThreeDSecure:          Bool(false),
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "true", fieldValue(t, c, sphsig.FieldAcceptCVCRequired))
		assert.Equal(t, "true", fieldValue(t, c, sphsig.FieldSkipFormNotifications))
		assert.Equal(t, "false", fieldValue(t, c, sphsig.FieldExitIframeOnResult))
		assert.Equal(t, "true", fieldValue(t, c, sphsig.FieldExitIframeOnThreeDSecure))
		assert.Equal(t, "false", fieldValue(t, c, sphsig.FieldUseThreeDSecure))

		_, ok := c.Fields.Get(sphsig.FieldLanguage)
		assert.False(t, ok)

		assertSigned(t, c)
	})

	t.Run("each form gets a fresh request id", func(t *testing.T) {
		opts := AddCardOptions{
			SuccessURL: "https://merchant.example.com/success",
			FailureURL: "https://merchant.example.com/failure",
			CancelURL:  "https://merchant.example.com/cancel",
		}

		first, err := b.AddCard(opts)
		require.NoError(t, err)

		second, err := b.AddCard(opts)
		require.NoError(t, err)

		assert.NotEqual(t, first.RequestID, second.RequestID)
		assert.NotEqual(t, fieldValue(t, first, sphsig.FieldSignature), fieldValue(t, second, sphsig.FieldSignature))
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := b.AddCard(AddCardOptions{
			SuccessURL: "https://merchant.example.com/success",
			CancelURL:  "https://merchant.example.com/cancel",
		})
		assert.ErrorIs(t, err, sphsig.ErrMissingField)
		assert.ErrorContains(t, err, "sph-failure-url")
	})
}

func TestPaymentForms(t *testing.T) {
	b := newTestBuilder(t)
	token := uuid.MustParse("71435029-fbb6-4506-aa86-8529efb640b0")

	forms := []struct {
		name   string
		action string
		build  func(PaymentOptions) (*Container, error)
	}{
		{"payment", PathPayWithCard, b.Payment},
		{"add card and payment", PathAddCardAndPay, b.AddCardAndPayment},
		{"pay with token and cvc", PathPayWithTokenAndCVC, func(o PaymentOptions) (*Container, error) {
			return b.PayWithTokenAndCVC(token, o)
		}},
	}

	for _, f := range forms {
		t.Run(f.name, func(t *testing.T) {
			c, err := f.build(paymentOptions())
			require.NoError(t, err)

			assert.Equal(t, f.action, c.Action)
			assert.Equal(t, "1990", fieldValue(t, c, sphsig.FieldAmount))
			assert.Equal(t, "EUR", fieldValue(t, c, sphsig.FieldCurrency))
			assert.Equal(t, "1000123A", fieldValue(t, c, sphsig.FieldOrder))
			assert.Equal(t, "A Box of Dreams. 19,90€", fieldValue(t, c, sphsig.FieldDescription))
			assertSigned(t, c)

			// description is not signed
			c.Fields.Set(sphsig.FieldDescription, "changed")
			assertSigned(t, c)
		})

		t.Run(f.name+" flags", func(t *testing.T) {
			opts := paymentOptions()
			opts.UseThreeDSecure = Bool(true)
			opts.ExitIframeOnResult = Bool(true)

			c, err := f.build(opts)
			require.NoError(t, err)

			assert.Equal(t, "true", fieldValue(t, c, sphsig.FieldUseThreeDSecure))
			assert.Equal(t, "true", fieldValue(t, c, sphsig.FieldExitIframeOnResult))

			_, ok := c.Fields.Get(sphsig.FieldSkipFormNotifications)
			assert.False(t, ok)

			assertSigned(t, c)
		})

		t.Run(f.name+" missing amount", func(t *testing.T) {
			opts := paymentOptions()
			opts.Amount = ""

			_, err := f.build(opts)
			assert.ErrorIs(t, err, sphsig.ErrMissingField)
		})
	}

	t.Run("token is signed", func(t *testing.T) {
		c, err := b.PayWithTokenAndCVC(token, paymentOptions())
		require.NoError(t, err)
		assert.Equal(t, token.String(), fieldValue(t, c, sphsig.FieldToken))

		c.Fields.Set(sphsig.FieldToken, uuid.NewString())

		ok, err := sphsig.Verify(c.Fields, c.Method, c.Action, nil, testCredentials.KeyID, testCredentials.Secret)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nil token", func(t *testing.T) {
		_, err := b.PayWithTokenAndCVC(uuid.Nil, paymentOptions())
		assert.ErrorIs(t, err, sphsig.ErrMissingField)
	})
}
