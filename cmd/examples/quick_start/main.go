package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	bridge "github.com/TheAlpha16/cmdbridge"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create a client for the default local control process
	client := bridge.NewClient(bridge.DefaultAddress, bridge.WithLogger(logger))

	// Register a simple command handler
	client.Register("hello", func(ctx context.Context, params bridge.Params) error {
		name := "World"
		if n, ok := params["name"].(string); ok {
			name = n
		}
		fmt.Printf("Hello, %s!\n", name)
		return nil
	})

	// Connect returns immediately; the client keeps retrying until Disconnect
	client.Connect()
	defer client.Disconnect()

	fmt.Printf("Bridge started, waiting for commands from %s (Ctrl-C to stop)\n", client.Address())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	// Tell the peer we are leaving, if it is still there
	client.Send("goodbye", nil)
	fmt.Println("Quick start example completed!")
}
