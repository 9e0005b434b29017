//go:build linux || darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// evloop-demo: echo server and client on the hioload-evloop reactor.
// The demo layer owns argument parsing and logging; all scheduling
// lives in the library.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/momentics/hioload-evloop/control"
	"github.com/momentics/hioload-evloop/coro"
	"github.com/momentics/hioload-evloop/reactor"
	"github.com/momentics/hioload-evloop/transport"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "evloop-demo",
		Short:         "Echo demo for the hioload-evloop reactor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd(&verbose), echoCmd(&verbose))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func serveCmd(verbose *bool) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an echo server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			r, err := reactor.New(reactor.WithLogger(log))
			if err != nil {
				return err
			}
			ln, err := transport.Listen(r, addr, 128)
			if err != nil {
				return err
			}
			fmt.Printf("listening on %s\n", ln.Addr())

			probes := control.NewDebugProbes()
			probes.AttachLoop("loop", r)

			_, err = coro.Run(r, acceptLoop(ln, log))
			if *verbose {
				metrics := control.NewMetricsRegistry()
				metrics.CollectLoop(r)
				for key, value := range metrics.GetSnapshot() {
					log.Info("loop metric", zap.String("key", key), zap.Any("value", value))
				}
				for name, state := range probes.DumpState() {
					log.Info("final state", zap.String("probe", name), zap.Any("state", state))
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9002", "listen address")
	return cmd
}

func acceptLoop(ln *transport.Listener, log *zap.Logger) coro.Fn {
	return func(t *coro.Task) (any, error) {
		for {
			conn, err := coro.Accept(t, ln)
			if err != nil {
				return nil, err
			}
			log.Info("connection accepted", zap.Int("fd", conn.FD()))
			coro.Spawn(t.Reactor(), echoConn(conn, log))
		}
	}
}

func echoConn(conn *transport.Socket, log *zap.Logger) coro.Fn {
	return func(t *coro.Task) (any, error) {
		defer conn.Close()
		for {
			data, err := coro.Recv(t, conn, 4096)
			if err != nil {
				return nil, err
			}
			if len(data) == 0 {
				log.Info("peer closed", zap.Int("fd", conn.FD()))
				return nil, nil
			}
			if _, err := coro.Send(t, conn, data); err != nil {
				return nil, err
			}
		}
	}
}

func echoCmd(verbose *bool) *cobra.Command {
	var addr, message string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Send one message and print the echo",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			r, err := reactor.New(reactor.WithLogger(log))
			if err != nil {
				return err
			}
			reply, err := coro.Run(r, func(t *coro.Task) (any, error) {
				sock, err := transport.New(r)
				if err != nil {
					return nil, err
				}
				defer sock.Close()
				if err := coro.Connect(t, sock, addr); err != nil {
					return nil, err
				}
				if _, err := coro.Send(t, sock, []byte(message)); err != nil {
					return nil, err
				}
				return coro.Recv(t, sock, 4096)
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", reply.([]byte))
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9002", "server address")
	cmd.Flags().StringVar(&message, "message", "foobar", "message to send")
	return cmd
}
