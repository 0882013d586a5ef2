// Package foxentry provides a client for the Foxentry data validation API.
//
// Foxentry validates and enriches companies, email addresses, locations,
// names and phone numbers. Every endpoint shares one request pipeline: a
// Request builder collects the query and call settings, Send performs a
// single POST, and the answer comes back as a Response or an *Error.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := foxentry.NewClient("your-api-key", logger,
//		foxentry.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := client.Email().ValidateAddress(ctx, "info@foxentry.com",
//		foxentry.WithOptions(foxentry.Options{"validationType": "extended"}),
//		foxentry.WithCustomID("order-1234"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var result struct {
//		IsValid  bool   `json:"isValid"`
//		Proposal string `json:"proposal"`
//	}
//	if err := resp.DecodeResult(&result); err != nil {
//		log.Fatal(err)
//	}
//
// Every resource call builds its own Request, so settings such as the custom
// ID never carry over to the next call. Use Client.NewRequest for direct
// access to the builder.
//
// # Error Handling
//
// All failures are *Error values carrying a Kind. Status codes 400, 401,
// 402, 403, 404, 429, 500 and 503 have dedicated kinds; any other status and
// transport failures are KindGeneric. Kinds can be matched with errors.Is:
//
//	if errors.Is(err, foxentry.ErrTooManyRequests) {
//		fxErr, _ := foxentry.AsError(err)
//		resp, _ := fxErr.Response.Decode()
//		remaining, _ := resp.RateLimitRemaining()
//		// back off
//	}
//
// Invalid client IPs and country codes fail with KindValidation, and a
// request without an API key, endpoint or query fails with
// KindConfiguration. Neither reaches the network. The client never retries.
package foxentry
