package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/mosaicnetworks/fuelnet/src/service"
	"github.com/sirupsen/logrus"
)

type consoleCmd struct {
	usage string
	run   func(args []string) error
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startService serves node on addr in the background and returns a function
// stopping it. With noService it does nothing.
func startService(noService bool, addr string, node service.Node, logger *logrus.Entry) func() {
	if noService {
		return func() {}
	}
	s := service.NewService(addr, node, logger)
	go s.Serve()
	return func() { s.Close() }
}

// runConsole reads commands from stdin until "quit" or ctx is done. When stdin
// ends it keeps waiting for ctx, so the node can run detached.
func runConsole(ctx context.Context, name string, cmds map[string]consoleCmd) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	printHelp := func() {
		names := make([]string, 0, len(cmds))
		for n := range cmds {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Printf("  %-12s %s\n", n, cmds[n].usage)
		}
		fmt.Printf("  %-12s %s\n", "quit", "stop the node")
	}

	fmt.Printf("%s ready, type help for commands\n", name)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			switch fields[0] {
			case "quit", "exit":
				return
			case "help":
				printHelp()
				continue
			}
			c, ok := cmds[fields[0]]
			if !ok {
				fmt.Printf("unknown command %q\n", fields[0])
				continue
			}
			if err := c.run(fields[1:]); err != nil {
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}
