// Package streamledger is a continuous-payment ledger. A sender locks funds
// that a recipient can claim over time. Senders may top a stream up or
// cancel it early, and cancellation splits the deposit fairly between the
// parties. An administrator can halt new funding with an emergency switch.
//
// Streamledger is a library. The engine owns the stream lifecycle and its
// arithmetic; everything else is injected:
//
//   - store.Store persists streams, the id counter and governance state
//     (memory, sqlite, postgres and mongo backends are provided)
//   - custody.Transferer moves tokens in and out of the custody account
//   - auth.Authenticator decides whether the caller may act as an address
//   - clock.Clock supplies the current time in seconds
//   - plugin.Plugin hooks receive notifications after each change
//
// # Quick Start
//
//	book := custody.NewBook()
//	l := streamledger.New(memory.New(),
//	    streamledger.WithTransferer(book),
//	    streamledger.WithAuthenticator(gate),
//	)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	id, err := l.CreateStream(ctx, "alice", "bob", "XLM", streamledger.NewAmount(1000), 1000)
//
// # Vesting
//
// A stream created with deposit D and duration T vests linearly: after e
// seconds floor(D*e/T) has vested, and everything has vested once e >= T.
// RatePerSecond is D/T rounded down and is informational. Withdraw pays the
// recipient everything deposited and not yet withdrawn.
//
// # Amounts
//
// Amounts are signed 128-bit integers in the asset's smallest unit. They
// serialize as decimal strings in JSON and in every store backend.
package streamledger
