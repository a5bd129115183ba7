package sphsig

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification result labels.
const (
	ResultValid     = "valid"
	ResultMismatch  = "mismatch"
	ResultMalformed = "malformed"
	ResultExpired   = "expired"
	ResultReplayed  = "replayed"
	ResultError     = "error"
)

// Metrics counts signing and verification outcomes. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	signatures    *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

// NewMetrics registers the sph_signatures_total and
// sph_verifications_total counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		signatures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sph_signatures_total",
			Help: "Outbound requests signed, by result.",
		}, []string{"result"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sph_verifications_total",
			Help: "Inbound request signatures verified, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeSign(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = ResultError
	}

	m.signatures.WithLabelValues(result).Inc()
}

func (m *Metrics) observeVerify(result string) {
	if m == nil {
		return
	}

	m.verifications.WithLabelValues(result).Inc()
}

func verifyResult(err error) string {
	switch {
	case err == nil:
		return ResultValid
	case errors.Is(err, ErrSignatureMismatch):
		return ResultMismatch
	case errors.Is(err, ErrSignatureExpired):
		return ResultExpired
	case errors.Is(err, ErrReplayed):
		return ResultReplayed
	case IsMalformed(err):
		return ResultMalformed
	default:
		return ResultError
	}
}
