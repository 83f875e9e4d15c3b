package streamledger_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xraph/streamledger"
	"github.com/xraph/streamledger/auth"
	"github.com/xraph/streamledger/clock"
	"github.com/xraph/streamledger/custody"
	"github.com/xraph/streamledger/store/memory"
)

// Example mirrors the Quick Start in the package documentation.
func Example() {
	ctx := context.Background()

	book := custody.NewBook()
	_ = book.Mint("alice", "XLM", streamledger.NewAmount(1000))

	clk := clock.NewManual(0)
	l := streamledger.New(memory.New(),
		streamledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		streamledger.WithTransferer(book),
		streamledger.WithAuthenticator(auth.NewStatic("alice", "bob")),
		streamledger.WithClock(clk),
	)
	if err := l.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}
	defer l.Stop()

	id, _ := l.CreateStream(ctx, "alice", "bob", "XLM", streamledger.NewAmount(1000), 1000)

	clk.Advance(500)
	split, _ := l.CancelStream(ctx, "alice", id)

	fmt.Println("stream", id)
	fmt.Println("vested", split.Vested, "remainder", split.Remainder)
	fmt.Println("bob", book.Balance("bob", "XLM"), "alice", book.Balance("alice", "XLM"))

	// Output:
	// stream 1
	// vested 500 remainder 500
	// bob 500 alice 500
}
