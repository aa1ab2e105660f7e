package main

import (
	hostbuf "HostBuf"
	"HostBuf/registry"
	"HostBuf/store"
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

var serviceName = "HostBuf"

func main() {
	cmd := &cli.Command{
		Name:  "hostbuf",
		Usage: "Drive host-owned buffers from a command loop",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "runtimes",
				Aliases: []string{"n"},
				Value:   2,
				Usage:   "Number of runtimes in the pool",
				Sources: cli.EnvVars("HOSTBUF_RUNTIMES"),
			},
			&cli.StringFlag{
				Name:    "backing",
				Value:   string(store.GoHeap),
				Usage:   "Buffer storage: go or mmap",
				Sources: cli.EnvVars("HOSTBUF_BACKING"),
			},
			&cli.StringFlag{
				Name:    "heap",
				Value:   string(store.Table),
				Usage:   "Slot table: table or sharded",
				Sources: cli.EnvVars("HOSTBUF_HEAP"),
			},
			&cli.Int64Flag{
				Name:    "max-bytes",
				Value:   hostbuf.DefaultRuntimeOptions.MaxBytes,
				Usage:   "Heap budget per runtime in bytes",
				Sources: cli.EnvVars("HOSTBUF_MAX_BYTES"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level",
				Sources: cli.EnvVars("HOSTBUF_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "inspect",
				Usage:   "Serve the inspector at this address",
				Sources: cli.EnvVars("HOSTBUF_INSPECT_ADDR"),
			},
			&cli.StringSliceFlag{
				Name:    "etcd",
				Usage:   "etcd endpoints; registration is off when empty",
				Sources: cli.EnvVars("HOSTBUF_ETCD"),
			},
		},
		Action: runLoop,
		Commands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "Query a remote inspector",
				ArgsUsage: "<addr> [runtime]",
				Action:    inspectAction,
			},
			{
				Name:   "discover",
				Usage:  "List inspectors registered in etcd",
				Action: discoverAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runLoop(ctx context.Context, cmd *cli.Command) error {
	if err := hostbuf.SetLogLevel(cmd.String("log-level")); err != nil {
		return err
	}

	opts := hostbuf.DefaultRuntimeOptions
	opts.Backing = store.Backing(cmd.String("backing"))
	opts.HeapType = store.HeapType(cmd.String("heap"))
	opts.MaxBytes = cmd.Int64("max-bytes")

	pool, err := hostbuf.NewPool("rt", cmd.Int("runtimes"), opts)
	if err != nil {
		return err
	}
	defer pool.Close()

	if addr := cmd.String("inspect"); addr != "" {
		endpoints := cmd.StringSlice("etcd")
		if len(endpoints) > 0 {
			registry.Endpoints = endpoints
		}
		server, err := hostbuf.NewServer(addr, serviceName, hostbuf.ServerOptions{Register: len(endpoints) > 0})
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(); err != nil {
				log.Printf("inspector stopped: %v", err)
			}
		}()
		defer server.Stop()
	}

	return repl(os.Stdin, os.Stdout, pool)
}

func repl(in io.Reader, out io.Writer, pool *hostbuf.Pool) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" {
			return nil
		}

		result, err := execute(pool, fields)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, result)
	}
	return scanner.Err()
}

// execute runs one command. Each command is a single activation, so values
// never survive from one line to the next.
func execute(pool *hostbuf.Pool, fields []string) (string, error) {
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "alloc":
		if len(args) != 2 {
			return "", errors.New("usage: alloc <session> <size>")
		}
		size, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return "", fmt.Errorf("bad size: %w", err)
		}
		var n int
		err = enter(pool, args[0], func(s *hostbuf.Scope) error {
			h, err := hostbuf.NewBuffer(s, uint32(size))
			if err != nil {
				return err
			}
			b, _ := hostbuf.Downcast[hostbuf.Buffer](h)
			n = b.Len()
			return nil
		})
		return fmt.Sprintf("allocated %d bytes", n), err

	case "write":
		if len(args) < 2 {
			return "", errors.New("usage: write <session> <text>")
		}
		return roundTrip(pool, args[0], []byte(strings.Join(args[1:], " ")))

	case "hex":
		if len(args) != 2 {
			return "", errors.New("usage: hex <session> <bytes>")
		}
		raw, err := hex.DecodeString(args[1])
		if err != nil {
			return "", fmt.Errorf("bad hex: %w", err)
		}
		return roundTrip(pool, args[0], raw)

	case "kind":
		if len(args) != 2 {
			return "", errors.New("usage: kind <session> <literal>")
		}
		var kind string
		err := enter(pool, args[0], func(s *hostbuf.Scope) error {
			h, err := valueOf(s, args[1])
			if err != nil {
				return err
			}
			switch v := hostbuf.Narrow(h).(type) {
			case hostbuf.Buffer:
				kind = fmt.Sprintf("buffer of %d bytes", v.Len())
			case hostbuf.Number:
				kind = fmt.Sprintf("number %g", v.Value())
			case hostbuf.String:
				kind = fmt.Sprintf("string %q", v.Value())
			default:
				kind = "unknown"
			}
			return nil
		})
		return kind, err

	case "stats":
		if len(args) != 1 {
			return "", errors.New("usage: stats <runtime>")
		}
		rt := hostbuf.GetRuntime(args[0])
		if rt == nil {
			return "", fmt.Errorf("runtime %s not found", args[0])
		}
		return formatStats(rt.Stats()), nil

	case "list":
		names := hostbuf.ListRuntimes()
		slices.Sort(names)
		return strings.Join(names, " "), nil

	case "pick":
		if len(args) != 1 {
			return "", errors.New("usage: pick <session>")
		}
		return pool.Pick(args[0]).Name(), nil
	}

	return "", fmt.Errorf("unknown command %q", cmd)
}

func enter(pool *hostbuf.Pool, session string, fn func(s *hostbuf.Scope) error) error {
	rt := pool.Pick(session)
	if rt == nil {
		return hostbuf.ErrRuntimeClosed
	}
	return rt.Enter(fn)
}

// roundTrip copies data into a fresh host buffer byte by byte, reads it back
// and decodes it.
func roundTrip(pool *hostbuf.Pool, session string, data []byte) (string, error) {
	var result string
	err := enter(pool, session, func(s *hostbuf.Scope) error {
		h, err := hostbuf.NewBuffer(s, uint32(len(data)))
		if err != nil {
			return err
		}
		b, ok := hostbuf.Downcast[hostbuf.Buffer](h)
		if !ok {
			return hostbuf.NewTypeError("not a buffer")
		}

		for i, c := range data {
			b.Set(i, c)
		}
		back := make([]byte, b.Len())
		for i := range back {
			back[i] = b.At(i)
		}

		str, err := b.CheckStr()
		if err != nil {
			return err
		}
		result = fmt.Sprintf("%x %q", back, str)
		return nil
	})
	return result, err
}

// valueOf turns a literal into a host value: numbers become Number, #n
// becomes an n-byte Buffer, anything else a String.
func valueOf(s *hostbuf.Scope, literal string) (hostbuf.Handle, error) {
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return hostbuf.NewNumber(s, f)
	}
	if size, ok := strings.CutPrefix(literal, "#"); ok {
		n, err := strconv.ParseUint(size, 10, 32)
		if err != nil {
			return hostbuf.Handle{}, fmt.Errorf("bad buffer size: %w", err)
		}
		return hostbuf.NewBuffer(s, uint32(n))
	}
	return hostbuf.NewString(s, literal)
}

func formatStats(stats map[string]any) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", k, stats[k])
	}
	return sb.String()
}

func inspectAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return cli.ShowSubcommandHelp(cmd)
	}

	inspector, err := hostbuf.NewInspector(cmd.Args().First())
	if err != nil {
		return err
	}
	defer inspector.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if cmd.NArg() == 1 {
		names, err := inspector.ListRuntimes(ctx)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(names, " "))
		return nil
	}

	stats, err := inspector.RuntimeStats(ctx, cmd.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Println(formatStats(stats))
	return nil
}

func discoverAction(ctx context.Context, cmd *cli.Command) error {
	if endpoints := cmd.Root().StringSlice("etcd"); len(endpoints) > 0 {
		registry.Endpoints = endpoints
	}

	addrs, err := registry.Discover(ctx, serviceName)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		fmt.Println(addr)
	}
	return nil
}
