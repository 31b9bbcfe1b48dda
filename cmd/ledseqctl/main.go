// ledseqctl sends commands to a running ledseq daemon.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/ledseq/pkg/image"
	"github.com/chazu/ledseq/pkg/sequencer"
	"github.com/chazu/ledseq/server"
)

var (
	Version = "dev"

	flags struct {
		addr    string
		grpc    bool
		timeout time.Duration
	}
)

var rootCmd = &cobra.Command{
	Use:   "ledseqctl",
	Short: "Control a ledseq LED sequencer",
	Long: `ledseqctl talks to a ledseq daemon over Connect (default) or gRPC.

Structural commands (clear, run, pause, edit) change the controller mode.
Between "edit" and "done", "add" appends one instruction to the program.
"send" does a whole edit session from an assembly file.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.addr, "addr", "a", "localhost:4568",
		"Sequencer address (host:port)")
	rootCmd.PersistentFlags().BoolVar(&flags.grpc, "grpc", false,
		"Use gRPC instead of the Connect protocol")
	rootCmd.PersistentFlags().DurationVar(&flags.timeout, "timeout", 5*time.Second,
		"Per-request timeout")

	rootCmd.AddCommand(
		structuralCmd("clear", "Erase the program and pause", sequencer.CmdClear),
		structuralCmd("run", "Start or resume playback", sequencer.CmdRun),
		structuralCmd("pause", "Pause playback", sequencer.CmdPause),
		structuralCmd("edit", "Enter edit mode, appending after the program", sequencer.CmdEnterEdit),
		doneCmd,
		addCmd,
		sendCmd,
		inspectCmd,
		snapshotCmd,
		loadCmd,
		disasmCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func dial() (server.Controller, error) {
	if flags.grpc {
		return server.DialGRPC(flags.addr)
	}
	base := flags.addr
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return server.NewClient(http.DefaultClient, base), nil
}

// withController dials, runs fn with a request context and closes the
// connection.
func withController(fn func(ctx context.Context, c server.Controller) error) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()
	return fn(ctx, c)
}

func send(ctx context.Context, c server.Controller, command byte, payload ...byte) error {
	st, err := c.HandleCommand(ctx, command, payload...)
	if err != nil {
		return err
	}
	if st != server.StatusOK {
		return fmt.Errorf("command 0x%02X ignored: %s", command, st)
	}
	return nil
}

func structuralCmd(use, short string, cmd sequencer.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return withController(func(ctx context.Context, c server.Controller) error {
				return send(ctx, c, byte(cmd))
			})
		},
	}
}

var doneCmd = &cobra.Command{
	Use:   "done",
	Short: "Leave edit mode",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withController(func(ctx context.Context, c server.Controller) error {
			return send(ctx, c, byte(sequencer.OpTerminator))
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <clear | pixel I R G B | delay N | all R G B>",
	Short: "Append one instruction (edit mode only)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		in, ok, err := sequencer.AssembleLine(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no instruction in %q", strings.Join(args, " "))
		}
		return withController(func(ctx context.Context, c server.Controller) error {
			return send(ctx, c, byte(in.Op), in.Operands[:]...)
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <file.seq>",
	Short: "Append every instruction in an assembly file in one edit session",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		src, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		code, err := sequencer.Assemble(string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		return withController(func(ctx context.Context, c server.Controller) error {
			if err := send(ctx, c, byte(sequencer.CmdEnterEdit)); err != nil {
				return err
			}
			var appendErr error
			count := 0
			for offset := 0; offset < len(code); {
				in, n := sequencer.Decode(code, offset)
				if appendErr = send(ctx, c, byte(in.Op), in.Operands[:]...); appendErr != nil {
					break
				}
				offset += n
				count++
			}
			if err := send(ctx, c, byte(sequencer.OpTerminator)); err != nil {
				return err
			}
			fmt.Printf("appended %d instructions\n", count)
			return appendErr
		})
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the program listing and controller state",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		return withController(func(ctx context.Context, c server.Controller) error {
			listing, err := c.Inspect(ctx)
			if err != nil {
				return err
			}
			fmt.Print(listing)
			return nil
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file.lseq>",
	Short: "Save the current program as an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withController(func(ctx context.Context, c server.Controller) error {
			data, err := c.Snapshot(ctx)
			if err != nil {
				return err
			}
			img, err := image.Unmarshal(data)
			if err != nil {
				return err
			}
			if err := image.WriteFile(args[0], img); err != nil {
				return err
			}
			fmt.Printf("wrote %d byte program to %s\n", len(img.Code), args[0])
			return nil
		})
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <file.lseq>",
	Short: "Replace the program with an image file (paused only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		img, err := image.ReadFile(args[0])
		if err != nil {
			return err
		}
		data, err := image.Marshal(img)
		if err != nil {
			return err
		}
		return withController(func(ctx context.Context, c server.Controller) error {
			st, err := c.Load(ctx, data)
			if err != nil {
				return err
			}
			if st != server.StatusOK {
				return fmt.Errorf("load refused: %s", st)
			}
			return nil
		})
	},
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <file.lseq>",
	Short: "Print the program in an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		img, err := image.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("; %s v%d, capacity %d\n", img.Magic, img.Version, img.Capacity)
		fmt.Print(sequencer.Disassemble(img.Code))
		return nil
	},
}
