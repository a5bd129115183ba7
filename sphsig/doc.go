// Package sphsig implements the SPH1 request signature used by the Payment
// Highway gateway for server-to-server calls and browser form redirects.
//
// A request is a ParameterSet of named fields (headers or form fields).
// Fields named with the "sph-" prefix are signed; every other field, and
// the signature field itself, is ignored by the signature.
//
// # Canonical String
//
// Canonicalize serializes the method, path, signable fields and body:
//
//	POST
//	/form/view/add_card
//	sph-account:test
//	sph-merchant:test_merchantId
//	sph-request-id:11111111-1111-1111-1111-111111111111
//	sph-timestamp:2023-01-01T00:00:00Z
//	<body>
//
// Keys are lower-cased and sorted; values are kept as they are.
//
// # Signing
//
// Sign computes HMAC-SHA256 over the canonical string and returns a Token
// whose wire form is "SPH1 <keyId> <hex digest>":
//
//	canonical, err := sphsig.Canonicalize("POST", "/form/view/add_card", params, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := sphsig.Sign(canonical, "testKey", []byte("testSecret"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	params.Set(sphsig.FieldSignature, tok.String())
//
// SignParameters does all three steps at once.
//
// # Verifying
//
// Verify recomputes the token and compares it in constant time. A mismatch
// is a false result, not an error:
//
//	ok, err := sphsig.Verify(params, "GET", "/payment/success", nil, keyID, secret)
//
// # Client Transport
//
// NewTransport creates an http.RoundTripper that stamps a fresh request id
// and timestamp on every outgoing request and signs it:
//
//	client := &http.Client{
//	    Transport: sphsig.NewTransport(nil, sphsig.SignConfig{
//	        Credentials: sphsig.Credentials{KeyID: keyID, Secret: secret},
//	        Account:     "test",
//	        Merchant:    "test_merchantId",
//	    }),
//	}
//
// # Server Middleware
//
// Middleware returns a mux.MiddlewareFunc that verifies requests coming
// back from the gateway. Browser redirects carry their fields in the query
// string:
//
//	mw, err := sphsig.Middleware(sphsig.MiddlewareConfig{
//	    Verify: sphsig.VerifyConfig{
//	        Resolver:  resolver,
//	        Extractor: sphsig.QueryFields,
//	        MaxAge:    5 * time.Minute,
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
package sphsig
